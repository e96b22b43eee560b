// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"log/slog"
	"os"

	"github.com/cznic/fileutil"
)

// punchHole best-effort reclaims the disk space backing a block that was
// freed but is not the tail block, since the paged file manager keeps no
// free list. Errors are logged and otherwise ignored: the
// higher layer never relies on the hole actually materializing.
func punchHole(f *os.File, off, size int64) {
	if err := fileutil.PunchHole(f, off, size); err != nil {
		slog.Debug("punch hole failed", "off", off, "size", size, "err", err)
	}
}
