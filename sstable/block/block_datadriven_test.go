// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package block

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

// TestBlockRestarts exercises the prefix-compression/restart-point scheme
// across a range of restart intervals, following the build-then-iterate
// shape of the corpus's own block-level datadriven tests.
func TestBlockRestarts(t *testing.T) {
	for _, interval := range []int{1, 2, 4, 16} {
		t.Run(fmt.Sprintf("restart=%d", interval), func(t *testing.T) {
			var data []byte
			datadriven.RunTest(t, fmt.Sprintf("testdata/restarts-%d", interval), func(t *testing.T, d *datadriven.TestData) string {
				switch d.Cmd {
				case "build":
					b := NewBuilder(interval)
					for _, k := range strings.Split(strings.TrimSpace(d.Input), ",") {
						b.Add([]byte(strings.TrimSpace(k)), []byte(strings.ToUpper(k)))
					}
					data = b.Finish()
					return fmt.Sprintf("%d bytes", len(data))

				case "run":
					r, err := NewReader(data, bytes.Compare)
					require.NoError(t, err)
					it := r.NewIterator()
					var buf strings.Builder
					for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
						fields := strings.Fields(line)
						switch fields[0] {
						case "first":
							it.First()
						case "next":
							it.Next()
						case "seek":
							it.SeekGE([]byte(fields[1]))
						default:
							return fmt.Sprintf("unknown op %q", fields[0])
						}
						if it.Valid() {
							fmt.Fprintf(&buf, "%s: %s\n", it.Key(), it.Value())
						} else {
							fmt.Fprintf(&buf, ".\n")
						}
					}
					return buf.String()

				default:
					return fmt.Sprintf("unknown command %q", d.Cmd)
				}
			})
		})
	}
}
