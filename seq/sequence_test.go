// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seq

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
)

const recordSize = 8

func rec(v int64) []byte {
	b := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func recToInt64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func openTestSequence(t *testing.T) (*Sequence, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seq.db")
	s, err := Open(path, 64, recordSize, 64*4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSequencePushBackAndAt(t *testing.T) {
	s, _ := openTestSequence(t)
	const n = 50
	for i := int64(0); i < n; i++ {
		if err := s.PushBack(rec(i * 3)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if g, e := s.Len(), int64(n); g != e {
		t.Fatal(g, e)
	}
	for i := int64(0); i < n; i++ {
		got, err := s.At(i)
		if err != nil {
			t.Fatalf("at %d: %v", i, err)
		}
		if want := rec(i * 3); !bytes.Equal(got, want) {
			t.Fatalf("at %d: got %d want %d", i, recToInt64(got), recToInt64(want))
		}
	}
}

func TestSequenceAtOutOfRange(t *testing.T) {
	s, _ := openTestSequence(t)
	if _, err := s.At(0); err == nil {
		t.Fatal("expected NotFoundError on empty sequence")
	}
	if err := s.PushBack(rec(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.At(1); err == nil {
		t.Fatal("expected NotFoundError past the end")
	}
	if _, err := s.At(-1); err == nil {
		t.Fatal("expected NotFoundError for negative index")
	}
}

func TestSequenceSetOverwrites(t *testing.T) {
	s, _ := openTestSequence(t)
	for i := int64(0); i < 10; i++ {
		if err := s.PushBack(rec(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Set(5, rec(999)); err != nil {
		t.Fatal(err)
	}
	got, err := s.At(5)
	if err != nil {
		t.Fatal(err)
	}
	if recToInt64(got) != 999 {
		t.Fatalf("got %d, want 999", recToInt64(got))
	}
}

func TestSequencePopBackFreesBlocks(t *testing.T) {
	s, _ := openTestSequence(t)
	const perBlock = 64 / recordSize
	const n = perBlock*3 + 2
	for i := int64(0); i < n; i++ {
		if err := s.PushBack(rec(i)); err != nil {
			t.Fatal(err)
		}
	}
	lastBlock := s.bf.LastBlockAllocated()

	for i := int64(0); i < perBlock+2; i++ {
		if err := s.PopBack(); err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
	}
	if g, e := s.Len(), int64(n-perBlock-2); g != e {
		t.Fatal(g, e)
	}
	if g := s.bf.LastBlockAllocated(); g >= lastBlock {
		t.Fatalf("pop_back past a block boundary did not free it: last=%d (was %d)", g, lastBlock)
	}
}

func TestSequencePopBackOnEmpty(t *testing.T) {
	s, _ := openTestSequence(t)
	if err := s.PopBack(); err == nil {
		t.Fatal("expected NotFoundError popping an empty sequence")
	}
}

func TestSequenceClear(t *testing.T) {
	s, _ := openTestSequence(t)
	for i := int64(0); i < 40; i++ {
		if err := s.PushBack(rec(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if g, e := s.Len(), int64(0); g != e {
		t.Fatal(g, e)
	}
	if g := s.bf.LastBlockAllocated(); g != 0 {
		t.Fatalf("Clear left %d blocks allocated", g)
	}
	if err := s.PushBack(rec(7)); err != nil {
		t.Fatal(err)
	}
	got, err := s.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if recToInt64(got) != 7 {
		t.Fatal("cleared sequence did not accept a fresh push")
	}
}

func TestSequencePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.db")
	s, err := Open(path, 64, recordSize, 64*4)
	if err != nil {
		t.Fatal(err)
	}
	const n = 30
	for i := int64(0); i < n; i++ {
		if err := s.PushBack(rec(i * 5)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path, 64, recordSize, 64*4)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if g, e := s2.Len(), int64(n); g != e {
		t.Fatal(g, e)
	}
	for _, i := range []int64{0, 1, n - 2, n - 1} {
		got, err := s2.At(i)
		if err != nil {
			t.Fatalf("at %d after reopen: %v", i, err)
		}
		if want := rec(i * 5); !bytes.Equal(got, want) {
			t.Fatalf("at %d after reopen: got %d want %d", i, recToInt64(got), recToInt64(want))
		}
	}
}

func TestSequenceRecordSizeMismatchOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.db")
	s, err := Open(path, 64, recordSize, 64*4)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, 64, recordSize*2, 64*4); err == nil {
		t.Fatal("expected SignatureMismatchError on record size change")
	}
}
