// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The index file header (block 0).
// last_block_allocated (offset 0, size 8) is owned and maintained by
// BlockFile itself; everything from offset 8 on is owned by this type,
// operating on the BufferedFile's always-resident header frame.

package store

import "strings"

const (
	hdrLastBlock    = 0
	hdrSignature    = 8
	hdrSignatureLen = 4
	hdrStructID     = 12
	hdrStructIDLen  = 8
	hdrKeySize      = 20
	hdrValueSize    = 24
	hdrRoot         = 28
	hdrLeafHead     = 36
	hdrLeafTail     = 44
	hdrDataFile     = 52
	hdrDataFileLen  = 32
)

// Signature is the fixed 4 byte magic every index file header carries.
const Signature = "RMAD"

// StructBTree is the structure id stamped by the B+Tree engine.
const StructBTree = "BTREE"

// Header is a typed view over the BufferedFile's header frame (block 0).
type Header struct {
	fr *Frame
}

// NewHeader wraps fr, which must be a BufferedFile's ReadHeader() frame.
func NewHeader(fr *Frame) *Header { return &Header{fr: fr} }

// Initialized reports whether the header already carries the RMAD
// signature, i.e. whether this is a freshly created (all-zero) file or a
// previously initialized one.
func (h *Header) Initialized() bool {
	return string(h.fr.Bytes()[hdrSignature:hdrSignature+hdrSignatureLen]) == Signature
}

// Validate checks the signature and structure id against what the caller
// expects, returning SignatureMismatchError on any mismatch.
func (h *Header) Validate(path, wantStruct string) error {
	sig := string(h.fr.Bytes()[hdrSignature : hdrSignature+hdrSignatureLen])
	if sig != Signature {
		return &SignatureMismatchError{Path: path, Expected: Signature, Got: sig}
	}
	got := h.structID()
	if got != wantStruct {
		return &SignatureMismatchError{Path: path, Expected: wantStruct, Got: got}
	}
	return nil
}

// Init stamps a fresh header: signature, structure id, key/value sizes,
// a zeroed root and leaf chain, and the companion data file's name.
func (h *Header) Init(structID string, keySize, valueSize int32, dataFileName string) {
	Memcpy(h.fr, hdrSignature, []byte(Signature))
	Memset(h.fr, hdrStructID, 0, hdrStructIDLen)
	Memcpy(h.fr, hdrStructID, []byte(structID))
	WriteAt(h.fr, hdrKeySize, int64(keySize))
	WriteAt(h.fr, hdrValueSize, int64(valueSize))
	h.SetRoot(0)
	h.SetLeafHead(0)
	h.SetLeafTail(0)
	h.SetDataFileName(dataFileName)
}

func (h *Header) structID() string {
	b := h.fr.Bytes()[hdrStructID : hdrStructID+hdrStructIDLen]
	return strings.TrimRight(string(b), "\x00")
}

// KeySize returns the fixed key size stamped at creation.
func (h *Header) KeySize() int32 { return int32(ReadAt[int64](h.fr, hdrKeySize)) }

// ValueSize returns the fixed value size stamped at creation.
func (h *Header) ValueSize() int32 { return int32(ReadAt[int64](h.fr, hdrValueSize)) }

// Root returns the current root block number.
func (h *Header) Root() int64 { return ReadAt[int64](h.fr, hdrRoot) }

// SetRoot updates the root block number.
func (h *Header) SetRoot(block int64) { WriteAt(h.fr, hdrRoot, block) }

// LeafHead returns the head of the leaf chain.
func (h *Header) LeafHead() int64 { return ReadAt[int64](h.fr, hdrLeafHead) }

// SetLeafHead updates the head of the leaf chain.
func (h *Header) SetLeafHead(block int64) { WriteAt(h.fr, hdrLeafHead, block) }

// LeafTail returns the tail of the leaf chain.
func (h *Header) LeafTail() int64 { return ReadAt[int64](h.fr, hdrLeafTail) }

// SetLeafTail updates the tail of the leaf chain.
func (h *Header) SetLeafTail(block int64) { WriteAt(h.fr, hdrLeafTail, block) }

// DataFileName returns the companion data file's name, as stamped at
// creation (NUL-padded to hdrDataFileLen bytes on disk).
func (h *Header) DataFileName() string {
	b := h.fr.Bytes()[hdrDataFile : hdrDataFile+hdrDataFileLen]
	return strings.TrimRight(string(b), "\x00")
}

// SetDataFileName stamps the companion data file's name.
func (h *Header) SetDataFileName(name string) {
	if len(name) > hdrDataFileLen {
		panic("store: data file name too long")
	}
	Memset(h.fr, hdrDataFile, 0, hdrDataFileLen)
	Memcpy(h.fr, hdrDataFile, []byte(name))
}
