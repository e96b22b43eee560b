// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmaddb

import (
	"fmt"
	"path/filepath"

	"github.com/rmad-db/core/store"
)

// Options are passed to Create/Open to amend default behavior. The
// compatibility promise is the same as for struct types in the Go
// standard library: new fields may be added, but client code should
// always use field names when building an Options literal.
type Options struct {
	// BlockSize is the index file's node block size. Defaults to 4096.
	BlockSize int

	// PoolBytes sizes the index file's frame pool. Defaults to
	// 64 * BlockSize.
	PoolBytes int

	// Policy selects the frame pool's replacement policy. The zero value
	// is store.PolicyLRU; pass store.PolicyPriority for the second-chance
	// variant that grants the B+Tree's hot nodes extra survival time.
	Policy store.PolicyKind

	// Flush, if true, fsyncs the index and data files after every
	// Insert/Delete. Off by default: callers that need a durability
	// point after a batch should call DB.Flush explicitly instead.
	Flush bool

	// DataPath overrides the companion data file's path. Empty means
	// the default of the index path with a ".data" suffix.
	DataPath string

	checked bool
}

func (o *Options) check(indexPath string) error {
	if o.checked {
		return nil
	}

	if o.BlockSize == 0 {
		o.BlockSize = 4096
	}
	if o.BlockSize < 64 {
		return fmt.Errorf("rmaddb: BlockSize %d too small", o.BlockSize)
	}
	if o.PoolBytes == 0 {
		o.PoolBytes = 64 * o.BlockSize
	}
	if o.PoolBytes < o.BlockSize {
		return fmt.Errorf("rmaddb: PoolBytes %d smaller than BlockSize %d", o.PoolBytes, o.BlockSize)
	}
	if o.DataPath == "" {
		o.DataPath = defaultDataPath(indexPath)
	}

	o.checked = true
	return nil
}

func defaultDataPath(indexPath string) string {
	return filepath.Clean(indexPath) + ".data"
}
