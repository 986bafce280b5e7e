// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/record"
	"github.com/spf13/cobra"
)

func newWALCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wal",
		Short: "write-ahead log introspection tools",
	}
	root.AddCommand(&cobra.Command{
		Use:   "dump <logs>",
		Short: "print every record physically stored in each log file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWALDump,
	})
	return root
}

func runWALDump(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		if err := dumpWAL(cmd, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func dumpWAL(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path)
	opt := (&base.Options{}).EnsureDefaults()
	r := record.NewReader(f)
	r.Reporter = base.LoggingReporter(opt.Logger)

	for i := 0; ; i++ {
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "record %d: %d bytes\n", i, len(rec))
	}
}
