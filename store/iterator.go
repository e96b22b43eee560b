// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Ordered traversal along the leaf chain.

package store

// Iterator walks the tree's entries in key order, forward or backward,
// by following the doubly-linked leaf chain. It holds no lock on the
// tree: a structural change made through Insert/Delete between calls to
// Next/Prev invalidates it, and its subsequent behavior is undefined
// (it may skip, repeat, or read stale entries).
type Iterator struct {
	t       *Tree
	block   int64
	pos     int
	err     error
	started bool
}

// Err returns the first error encountered while advancing the iterator,
// if any.
func (it *Iterator) Err() error { return it.err }

// Begin returns an iterator positioned before the first entry; call Next
// once to reach it.
func (t *Tree) Begin() *Iterator {
	return &Iterator{t: t, block: t.header.LeafHead(), pos: -1}
}

// End returns an iterator positioned after the last entry; call Prev once
// to reach it.
func (t *Tree) End() *Iterator {
	return &Iterator{t: t, block: t.header.LeafTail(), pos: -1, started: true}
}

// Next advances to the next entry, returning false once there are none
// left.
func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
		it.pos = 0
	} else {
		it.pos++
	}

	for it.block != nilBlock {
		fr, err := it.t.idx.GetFrame(it.block)
		if err != nil {
			it.err = err
			return false
		}
		n := it.t.layout.KeyCount(fr)
		if it.pos < n {
			return true
		}
		it.block = it.t.layout.Next(fr)
		it.pos = 0
	}
	return false
}

// Prev moves to the previous entry, returning false once there are none
// left.
func (it *Iterator) Prev() bool {
	for {
		if it.block == nilBlock {
			return false
		}
		fr, err := it.t.idx.GetFrame(it.block)
		if err != nil {
			it.err = err
			return false
		}
		n := it.t.layout.KeyCount(fr)
		if it.pos == -1 {
			it.pos = n - 1
		} else {
			it.pos--
		}
		if it.pos >= 0 {
			return true
		}
		it.block = it.t.layout.Prev(fr)
	}
}

// Key returns a copy of the current entry's key. Valid only after Next or
// Prev returned true.
func (it *Iterator) Key() []byte {
	fr, err := it.t.idx.GetFrame(it.block)
	if err != nil {
		it.err = err
		return nil
	}
	return append([]byte(nil), it.t.layout.Key(fr, it.pos)...)
}

// Value returns the current entry's stored value.
func (it *Iterator) Value() ([]byte, error) {
	fr, err := it.t.idx.GetFrame(it.block)
	if err != nil {
		return nil, err
	}
	vb, vo := it.t.layout.Value(fr, it.pos)
	return it.t.readValue(vb, vo)
}
