// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestBufferedFileCacheHitAvoidsReread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.db")
	f, err := OpenBufferedFile(path, 32, 32*4, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n, err := f.AllotBlock()
	if err != nil {
		t.Fatal(err)
	}

	fr1, err := f.GetFrame(n)
	if err != nil {
		t.Fatal(err)
	}
	copy(fr1.Bytes(), bytes.Repeat([]byte{0x11}, 32))
	fr1.MarkDirty()

	fr2, err := f.GetFrame(n)
	if err != nil {
		t.Fatal(err)
	}
	if g, e := fr2.BlockNumber(), n; g != e {
		t.Fatal(g, e)
	}
	if !bytes.Equal(fr2.Bytes(), bytes.Repeat([]byte{0x11}, 32)) {
		t.Fatal("cached frame lost its write")
	}
}

func TestBufferedFileEvictionWritesBackDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.db")
	// Pool holds only one frame, forcing every distinct block fetch past
	// the first to evict the previous one.
	f, err := OpenBufferedFile(path, 16, 16, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a, err := f.AllotBlock()
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.AllotBlock()
	if err != nil {
		t.Fatal(err)
	}

	frA, err := f.GetFrame(a)
	if err != nil {
		t.Fatal(err)
	}
	copy(frA.Bytes(), bytes.Repeat([]byte{0xCD}, 16))
	frA.MarkDirty()

	// Fetching b evicts a's frame; since it was dirty, the eviction must
	// write it back to disk before reuse.
	if _, err := f.GetFrame(b); err != nil {
		t.Fatal(err)
	}

	frA2, err := f.GetFrame(a)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(frA2.Bytes(), bytes.Repeat([]byte{0xCD}, 16)) {
		t.Fatal("dirty eviction did not persist to disk")
	}
}

func TestBufferedFileWriteBlockFlushesImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.db")
	f, err := OpenBufferedFile(path, 16, 16*4, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n, err := f.AllotBlock()
	if err != nil {
		t.Fatal(err)
	}
	fr, err := f.GetFrame(n)
	if err != nil {
		t.Fatal(err)
	}
	copy(fr.Bytes(), bytes.Repeat([]byte{0x42}, 16))
	fr.MarkDirty()

	if err := f.WriteBlock(n); err != nil {
		t.Fatal(err)
	}

	raw := make([]byte, 16)
	if err := f.bf.ReadBlock(n, raw); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, bytes.Repeat([]byte{0x42}, 16)) {
		t.Fatal("WriteBlock did not flush synchronously")
	}
}

func TestBufferedFileHeaderSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.db")
	f, err := OpenBufferedFile(path, 16, 16*4, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	hdr := f.ReadHeader()
	// Bytes [0, counterSize) hold last_block_allocated, which the block
	// file rewrites on Close; the rest of block 0 belongs to the caller.
	copy(hdr.Bytes()[counterSize:], bytes.Repeat([]byte{0x99}, 16-counterSize))
	if err := f.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	f2, err := OpenBufferedFile(path, 16, 16*4, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	defer f2.Close()
	if !bytes.Equal(f2.ReadHeader().Bytes()[counterSize:], bytes.Repeat([]byte{0x99}, 16-counterSize)) {
		t.Fatal("header not preserved across reopen")
	}
}

func TestBufferedFilePinBlocksEviction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.db")
	f, err := OpenBufferedFile(path, 16, 16, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a, _ := f.AllotBlock()
	b, _ := f.AllotBlock()

	frA, err := f.GetFrame(a)
	if err != nil {
		t.Fatal(err)
	}
	f.Pin(frA, 0)

	if _, err := f.GetFrame(b); err == nil {
		t.Fatal("expected pool exhaustion while the sole frame is pinned")
	} else if _, ok := err.(*PoolExhaustedError); !ok {
		t.Fatalf("got %T, want *PoolExhaustedError", err)
	}

	f.Unpin(frA)
	if _, err := f.GetFrame(b); err != nil {
		t.Fatal(err)
	}
}

func TestBufferedFileDeleteBlockDropsCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.db")
	f, err := OpenBufferedFile(path, 16, 16*4, PolicyLRU)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n, _ := f.AllotBlock()
	fr, err := f.GetFrame(n)
	if err != nil {
		t.Fatal(err)
	}
	copy(fr.Bytes(), bytes.Repeat([]byte{0x7E}, 16))
	fr.MarkDirty()

	if err := f.DeleteBlock(n); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.index[n]; ok {
		t.Fatal("deleted block left a stale cache entry")
	}
}
