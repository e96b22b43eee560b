// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A paged file: turns a regular file into a numbered array of fixed-size
// blocks, block 0 reserved for a header maintained by the caller.

package store

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// counterOff/counterSize is the header field every BlockFile owns
// regardless of what the caller layers on top of block 0: the
// last_block_allocated counter, offset 0 size 8.
const (
	counterOff  = 0
	counterSize = 8
)

// BlockFile is a fixed-block-size file: a contiguous, numbered array of
// blocks with block 0 reserved for a header. It is the lowest of the three
// subsystems (component A); it knows nothing about frames, nodes or trees.
//
// A BlockFile is not safe for concurrent use from multiple goroutines; it
// is designed for single-threaded, cooperative access.
type BlockFile struct {
	f         *os.File
	path      string
	blockSize int
	last      int64 // last_block_allocated
	locked    bool
}

// OpenBlockFile opens or creates the file at path, mode 0644, acquires an exclusive
// non-blocking advisory lock, and parses last_block_allocated from block 0
// if the file is non-empty. blockSize must not change across opens of an
// existing file; OpenBlockFile does not itself validate that (the caller,
// which knows the header layout, does).
func OpenBlockFile(path string, blockSize int) (*BlockFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, &LockUnavailableError{Path: path}
		}
		return nil, &IOError{Op: "flock", Path: path, Err: err}
	}

	bf := &BlockFile{f: f, path: path, blockSize: blockSize, locked: true}

	fi, err := f.Stat()
	if err != nil {
		bf.unlock()
		f.Close()
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}

	if fi.Size() > 0 {
		hdr := make([]byte, blockSize)
		if _, err := f.ReadAt(hdr, 0); err != nil && err != io.EOF {
			bf.unlock()
			f.Close()
			return nil, &IOError{Op: "read header", Path: path, Err: err}
		}
		bf.last = int64(binary.LittleEndian.Uint64(hdr[counterOff : counterOff+counterSize]))
	}

	slog.Debug("blockfile opened", "path", path, "blockSize", blockSize, "last", bf.last)
	return bf, nil
}

func (f *BlockFile) unlock() {
	if f.locked {
		unix.Flock(int(f.f.Fd()), unix.LOCK_UN)
		f.locked = false
	}
}

// Name returns the path the BlockFile was opened from.
func (f *BlockFile) Name() string { return f.path }

// BlockSize returns the fixed block size chosen at creation.
func (f *BlockFile) BlockSize() int { return f.blockSize }

// LastBlockAllocated returns the highest block number currently in use.
func (f *BlockFile) LastBlockAllocated() int64 { return f.last }

// ReadBlock reads block n into into, which must be exactly BlockSize()
// bytes. Reading a block beyond the end of the underlying file yields a
// zero-filled block, by convention of the OS's positioned read.
func (f *BlockFile) ReadBlock(n int64, into []byte) error {
	if len(into) != f.blockSize {
		panic("store: ReadBlock: buffer size mismatch")
	}
	for i := range into {
		into[i] = 0
	}
	_, err := f.f.ReadAt(into, n*int64(f.blockSize))
	if err != nil && err != io.EOF {
		return &IOError{Op: "read block", Path: f.path, Err: err}
	}
	return nil
}

// WriteBlock writes from, which must be exactly BlockSize() bytes, to
// block n. Writing a block beyond last_block_allocated is a no-op: the
// caller is expected to AllotBlock first.
func (f *BlockFile) WriteBlock(n int64, from []byte) error {
	if len(from) != f.blockSize {
		panic("store: WriteBlock: buffer size mismatch")
	}
	if n > f.last {
		return nil
	}
	if _, err := f.f.WriteAt(from, n*int64(f.blockSize)); err != nil {
		return &IOError{Op: "write block", Path: f.path, Err: err}
	}
	return nil
}

// AllotBlock increments last_block_allocated and returns the new block
// number. No disk write is implied; the caller writes the block's content
// itself via WriteBlock.
func (f *BlockFile) AllotBlock() (int64, error) {
	f.last++
	return f.last, nil
}

// DeleteBlock frees block n. If n is the highest allocated block the
// counter is simply decremented; otherwise no free list is kept — the
// higher layer is responsible for tracking reuse — but the space is
// best-effort reclaimed with a hole punch. DeleteBlock(0) is always a
// no-op, since block 0 is the header.
func (f *BlockFile) DeleteBlock(n int64) error {
	if n == 0 {
		return nil
	}
	if n == f.last {
		f.last--
		return nil
	}
	punchHole(f.f, n*int64(f.blockSize), int64(f.blockSize))
	return nil
}

// Sync flushes the file to durable storage without closing it, for
// callers that need a per-operation durability point.
func (f *BlockFile) Sync() error {
	if err := f.f.Sync(); err != nil {
		return &IOError{Op: "fsync", Path: f.path, Err: err}
	}
	return nil
}

// Close patches last_block_allocated into block 0, truncates the file to
// exactly (last+1)*blockSize, fsyncs, and releases the advisory lock.
func (f *BlockFile) Close() error {
	hdr := make([]byte, f.blockSize)
	if _, err := f.f.ReadAt(hdr, 0); err != nil && err != io.EOF {
		return &IOError{Op: "read header", Path: f.path, Err: err}
	}
	binary.LittleEndian.PutUint64(hdr[counterOff:counterOff+counterSize], uint64(f.last))
	if _, err := f.f.WriteAt(hdr, 0); err != nil {
		return &IOError{Op: "write header", Path: f.path, Err: err}
	}

	size := (f.last + 1) * int64(f.blockSize)
	if err := f.f.Truncate(size); err != nil {
		return &IOError{Op: "truncate", Path: f.path, Err: err}
	}
	if err := f.f.Sync(); err != nil {
		return &IOError{Op: "fsync", Path: f.path, Err: err}
	}

	f.unlock()
	slog.Debug("blockfile closed", "path", f.path, "size", size)
	return f.f.Close()
}
