// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble-storage-core/internal/base"
	"github.com/cockroachdb/pebble-storage-core/internal/cache"
	"github.com/cockroachdb/pebble-storage-core/sstable"
	"github.com/cockroachdb/pebble-storage-core/sstable/filter"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func sstableOptions() *base.Options {
	return (&base.Options{FilterPolicy: filter.NewPolicy(base.DefaultFilterBitsPerKey)}).EnsureDefaults()
}

// sstableCache is shared across every table this process opens in one
// invocation, matching the store-wide (not per-table) block cache spec §5
// describes.
var sstableCache = func() *cache.Cache {
	opt := sstableOptions()
	return cache.New(opt.CacheSize, opt.CacheShards, nil)
}()

func openTable(path string) (*sstable.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	r, err := sstable.NewReader(f, info.Size(), sstableOptions(), sstableCache)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, f, nil
}

func newSSTableCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sstable",
		Short: "sstable introspection tools",
	}
	root.AddCommand(&cobra.Command{
		Use:   "dump <sstables>",
		Short: "print each table's data block layout",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSSTableDump,
	})
	root.AddCommand(&cobra.Command{
		Use:   "scan <sstables>",
		Short: "print every record in each table, in key order",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSSTableScan,
	})
	return root
}

func runSSTableDump(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		r, f, err := openTable(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		stats, err := r.Layout()
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path)
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"offset", "length", "index key"})
		for _, s := range stats {
			table.Append([]string{
				fmt.Sprintf("%d", s.Offset),
				fmt.Sprintf("%d", s.Length),
				s.IndexKey.String(),
			})
		}
		table.Render()
	}
	return nil
}

func runSSTableScan(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		r, f, err := openTable(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		it := r.NewIterator()
		for it.First(); it.Valid(); it.Next() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %q\n", it.Key().String(), it.Value())
		}
		err = it.Error()
		it.Close()
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
