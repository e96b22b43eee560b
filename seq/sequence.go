// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seq implements a persistent, random-access sequence of
// fixed-size records packed across the blocks of a single buffered
// file, indexed by integer position.
package seq

import (
	"github.com/rmad-db/core/store"
)

const (
	hdrSignature    = 8
	hdrSignatureLen = 4
	hdrRecordSize   = 12
	hdrLength       = 20
)

// Signature is the 4 byte magic a sequence file's header carries.
const Signature = "RMAQ"

// Sequence is a packed, random-access array of fixed-size records of
// recordSize bytes, stored across the blocks of its own BufferedFile.
// Record i lives at block ⌊i/ep⌋+1, offset (i mod ep)·recordSize, where
// ep = blockSize/recordSize; the header keeps its signature, record size
// and length.
type Sequence struct {
	bf         *store.BufferedFile
	recordSize int
	perBlock   int
	length     int64
}

// Open opens or creates a sequence at path. blockSize and recordSize
// are fixed at creation; on reopen recordSize is checked against the
// stored header, while blockSize is not stored and is not checked.
// poolBytes sizes the underlying frame pool.
func Open(path string, blockSize, recordSize, poolBytes int) (*Sequence, error) {
	bf, err := store.OpenBufferedFile(path, blockSize, poolBytes, store.PolicyLRU)
	if err != nil {
		return nil, err
	}

	hdr := bf.ReadHeader()
	sig := string(hdr.Bytes()[hdrSignature : hdrSignature+hdrSignatureLen])
	s := &Sequence{bf: bf, recordSize: recordSize, perBlock: blockSize / recordSize}

	if sig == Signature {
		storedSize := store.ReadAt[int64](hdr, hdrRecordSize)
		if int(storedSize) != recordSize {
			bf.Close()
			return nil, &store.SignatureMismatchError{Path: path, Expected: "record size match", Got: "mismatch"}
		}
		s.length = store.ReadAt[int64](hdr, hdrLength)
	} else {
		store.Memcpy(hdr, hdrSignature, []byte(Signature))
		store.WriteAt(hdr, hdrRecordSize, int64(recordSize))
		store.WriteAt(hdr, hdrLength, int64(0))
		if err := bf.WriteHeader(); err != nil {
			bf.Close()
			return nil, err
		}
	}

	return s, nil
}

// Len returns the number of records currently stored.
func (s *Sequence) Len() int64 { return s.length }

// Close flushes and closes the underlying buffered file, persisting the
// current length into the header first.
func (s *Sequence) Close() error {
	s.syncHeader()
	return s.bf.Close()
}

// Flush writes back all dirty state without closing.
func (s *Sequence) Flush() error {
	s.syncHeader()
	return s.bf.Flush()
}

func (s *Sequence) syncHeader() {
	hdr := s.bf.ReadHeader()
	store.WriteAt(hdr, hdrLength, s.length)
}

func (s *Sequence) addr(i int64) (block int64, offset int) {
	return i/int64(s.perBlock) + 1, int(i%int64(s.perBlock)) * s.recordSize
}

// At returns a copy of the record at position i.
func (s *Sequence) At(i int64) ([]byte, error) {
	if i < 0 || i >= s.length {
		return nil, &store.NotFoundError{Op: "at"}
	}
	block, offset := s.addr(i)
	fr, err := s.bf.GetFrame(block)
	if err != nil {
		return nil, err
	}
	out := make([]byte, s.recordSize)
	copy(out, fr.Bytes()[offset:offset+s.recordSize])
	return out, nil
}

// Set overwrites the record at position i.
func (s *Sequence) Set(i int64, record []byte) error {
	if i < 0 || i >= s.length {
		return &store.NotFoundError{Op: "set"}
	}
	if len(record) != s.recordSize {
		panic("seq: record size mismatch")
	}
	block, offset := s.addr(i)
	fr, err := s.bf.GetFrame(block)
	if err != nil {
		return err
	}
	store.Memcpy(fr, offset, record)
	return nil
}

// PushBack appends record, allocating a new block whenever the current
// tail block is full.
func (s *Sequence) PushBack(record []byte) error {
	if len(record) != s.recordSize {
		panic("seq: record size mismatch")
	}
	block, offset := s.addr(s.length)
	if offset == 0 {
		if _, err := s.bf.AllotBlock(); err != nil {
			return err
		}
	}
	fr, err := s.bf.GetFrame(block)
	if err != nil {
		return err
	}
	store.Memcpy(fr, offset, record)
	s.length++
	return nil
}

// PopBack removes the last record, freeing the backing block once it
// becomes empty.
func (s *Sequence) PopBack() error {
	if s.length == 0 {
		return &store.NotFoundError{Op: "pop_back"}
	}
	s.length--
	if s.length%int64(s.perBlock) == 0 {
		block, _ := s.addr(s.length)
		if err := s.bf.DeleteBlock(block); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every record, freeing all backing blocks.
func (s *Sequence) Clear() error {
	last, _ := s.addr(s.length)
	for b := last; b > 0; b-- {
		if err := s.bf.DeleteBlock(b); err != nil {
			return err
		}
	}
	s.length = 0
	return nil
}
