// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The node layout codec (component D): fixed field offsets within a node
// block. Byte order is fixed little-endian throughout.

package store

import "encoding/binary"

// Node kinds, stored in the one-byte tag at offset 0.
const (
	NodeInternal byte = 0
	NodeLeaf     byte = 1
)

// Fixed header field offsets, identical for both node kinds (prev/next
// are simply unused (reserved) on an internal node).
const (
	offType     = 0
	offPrev     = 1
	offNext     = 9
	offParent   = 17
	offKeyCount = 25
	offKeysBase = 33

	leafPointerSize     = 16 // (block int64, offset int64)
	internalPointerSize = 8  // block int64
	nodeHeaderSize      = offKeysBase
)

// ReadAt reads a fixed-size little-endian integer field at off from fr.
func ReadAt[T int64 | uint64](fr *Frame, off int) T {
	return T(binary.LittleEndian.Uint64(fr.Bytes()[off : off+8]))
}

// WriteAt writes a fixed-size little-endian integer field at off into fr
// and marks it dirty.
func WriteAt[T int64 | uint64](fr *Frame, off int, v T) {
	binary.LittleEndian.PutUint64(fr.Bytes()[off:off+8], uint64(v))
	fr.MarkDirty()
}

// Memcpy copies src into fr at off and marks fr dirty.
func Memcpy(fr *Frame, off int, src []byte) {
	copy(fr.Bytes()[off:off+len(src)], src)
	fr.MarkDirty()
}

// Memmove copies length bytes within fr from src to dst, correctly
// handling overlap (Go's copy already behaves like memmove), and marks fr
// dirty.
func Memmove(fr *Frame, dst, src, length int) {
	copy(fr.Bytes()[dst:dst+length], fr.Bytes()[src:src+length])
	fr.MarkDirty()
}

// Memset fills length bytes of fr starting at off with val and marks fr
// dirty.
func Memset(fr *Frame, off int, val byte, length int) {
	b := fr.Bytes()[off : off+length]
	for i := range b {
		b[i] = val
	}
	fr.MarkDirty()
}

// NodeLayout computes and caches the field offsets for a B+Tree whose
// nodes live in blockSize blocks with fixed keySize keys. M — the maximum
// number of keys per node — is derived once so that the worst case body
// (M keys plus M+1 leaf pointers, the larger of the two pointer shapes)
// fits the block; internal nodes then have unused tail space, trading a
// few bytes for a single M shared by both node kinds.
type NodeLayout struct {
	blockSize, keySize, m int
	pointersBase          int
}

// NewNodeLayout computes the layout for the given block and key size.
func NewNodeLayout(blockSize, keySize int) *NodeLayout {
	m := computeM(blockSize, keySize)
	return &NodeLayout{
		blockSize:    blockSize,
		keySize:      keySize,
		m:            m,
		pointersBase: offKeysBase + m*keySize,
	}
}

// computeM returns the largest M such that a header, M keys and M+1 leaf
// pointers fit in blockSize bytes.
func computeM(blockSize, keySize int) int {
	body := blockSize - nodeHeaderSize
	// m*keySize + (m+1)*leafPointerSize <= body
	m := (body - leafPointerSize) / (keySize + leafPointerSize)
	if m < 2 {
		panic("store: block size too small for key size")
	}
	return m
}

// M returns the maximum number of keys a node may hold.
func (l *NodeLayout) M() int { return l.m }

func (l *NodeLayout) Type(fr *Frame) byte    { return fr.Bytes()[offType] }
func (l *NodeLayout) IsLeaf(fr *Frame) bool  { return l.Type(fr) == NodeLeaf }
func (l *NodeLayout) SetType(fr *Frame, t byte) {
	fr.Bytes()[offType] = t
	fr.MarkDirty()
}

func (l *NodeLayout) Prev(fr *Frame) int64      { return ReadAt[int64](fr, offPrev) }
func (l *NodeLayout) SetPrev(fr *Frame, v int64) { WriteAt(fr, offPrev, v) }

func (l *NodeLayout) Next(fr *Frame) int64      { return ReadAt[int64](fr, offNext) }
func (l *NodeLayout) SetNext(fr *Frame, v int64) { WriteAt(fr, offNext, v) }

func (l *NodeLayout) Parent(fr *Frame) int64      { return ReadAt[int64](fr, offParent) }
func (l *NodeLayout) SetParent(fr *Frame, v int64) { WriteAt(fr, offParent, v) }

func (l *NodeLayout) KeyCount(fr *Frame) int { return int(ReadAt[int64](fr, offKeyCount)) }
func (l *NodeLayout) SetKeyCount(fr *Frame, n int) {
	WriteAt(fr, offKeyCount, int64(n))
}

// keyOffset returns the byte offset of the i'th key slot.
func (l *NodeLayout) keyOffset(i int) int { return offKeysBase + i*l.keySize }

// Key returns a slice directly over the i'th key's bytes (not a copy) —
// safe to pass to the comparator but must not be retained past the
// frame's pin.
func (l *NodeLayout) Key(fr *Frame, i int) []byte {
	off := l.keyOffset(i)
	return fr.Bytes()[off : off+l.keySize]
}

// SetKey overwrites the i'th key slot.
func (l *NodeLayout) SetKey(fr *Frame, i int, key []byte) {
	if len(key) != l.keySize {
		panic("store: key size mismatch")
	}
	Memcpy(fr, l.keyOffset(i), key)
}

// internalChildOffset returns the byte offset of the i'th internal child
// pointer (a bare block number).
func (l *NodeLayout) internalChildOffset(i int) int {
	return l.pointersBase + i*internalPointerSize
}

// Child returns the i'th child block number of an internal node.
func (l *NodeLayout) Child(fr *Frame, i int) int64 {
	return ReadAt[int64](fr, l.internalChildOffset(i))
}

// SetChild sets the i'th child block number of an internal node.
func (l *NodeLayout) SetChild(fr *Frame, i int, block int64) {
	WriteAt(fr, l.internalChildOffset(i), block)
}

// leafPointerOffset returns the byte offset of the i'th leaf value
// pointer, a (block, offset) pair into the data file.
func (l *NodeLayout) leafPointerOffset(i int) int {
	return l.pointersBase + i*leafPointerSize
}

// Value returns the i'th leaf pointer: the data-file block and offset the
// stored value lives at.
func (l *NodeLayout) Value(fr *Frame, i int) (block, offset int64) {
	off := l.leafPointerOffset(i)
	return ReadAt[int64](fr, off), ReadAt[int64](fr, off+8)
}

// SetValue sets the i'th leaf pointer.
func (l *NodeLayout) SetValue(fr *Frame, i int, block, offset int64) {
	off := l.leafPointerOffset(i)
	WriteAt(fr, off, block)
	WriteAt(fr, off+8, offset)
}

// shiftKeysRight moves keys [from, count) to [from+1, count+1), opening a
// gap at from for an insertion. Likewise for the matching pointer kind.
func (l *NodeLayout) shiftKeysRight(fr *Frame, from, count int) {
	if count > from {
		Memmove(fr, l.keyOffset(from+1), l.keyOffset(from), (count-from)*l.keySize)
	}
}

func (l *NodeLayout) shiftKeysLeft(fr *Frame, from, count int) {
	if count > from {
		Memmove(fr, l.keyOffset(from-1), l.keyOffset(from), (count-from)*l.keySize)
	}
}

func (l *NodeLayout) shiftInternalChildrenRight(fr *Frame, from, count int) {
	if count > from {
		Memmove(fr, l.internalChildOffset(from+1), l.internalChildOffset(from), (count-from)*internalPointerSize)
	}
}

func (l *NodeLayout) shiftInternalChildrenLeft(fr *Frame, from, count int) {
	if count > from {
		Memmove(fr, l.internalChildOffset(from-1), l.internalChildOffset(from), (count-from)*internalPointerSize)
	}
}

func (l *NodeLayout) shiftLeafValuesRight(fr *Frame, from, count int) {
	if count > from {
		Memmove(fr, l.leafPointerOffset(from+1), l.leafPointerOffset(from), (count-from)*leafPointerSize)
	}
}

func (l *NodeLayout) shiftLeafValuesLeft(fr *Frame, from, count int) {
	if count > from {
		Memmove(fr, l.leafPointerOffset(from-1), l.leafPointerOffset(from), (count-from)*leafPointerSize)
	}
}
