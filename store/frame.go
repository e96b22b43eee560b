// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

// frame is a slot in the buffer pool: one block's bytes plus replacement
// and pin bookkeeping. Per the Design Notes, frames live in an arena
// (pool.frames) and reference their neighbours by index, never by
// pointer, so the LRU ring is cache-friendly and alias-free.
type frame struct {
	valid       bool
	dirty       bool
	pinCount    int
	blockNumber int64
	data        []byte

	prev, next int // neighbour indices in the ring; -1 means "adjacent to head"

	maxChance   int // assigned by the caller on Pin, priority policy only
	priorityNum int // decreasing chance counter, priority policy only
}

func (f *frame) pinned() bool { return f.pinCount > 0 }
