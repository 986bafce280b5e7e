// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// kvcore is an introspection CLI over the storage core's on-disk formats,
// grounded on the teacher's tool package: one cobra root command per
// on-disk artifact (sstable, wal) plus an in-process cache benchmark.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kvcore",
		Short: "introspection tools for the storage core's on-disk formats",
	}
	root.AddCommand(newSSTableCommand(), newWALCommand(), newCacheCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
