// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The buffer pool: a bounded arena of frames with a pluggable replacement
// policy, threaded through a circular LRU chain.

package store

import "github.com/cznic/mathutil"

// PolicyKind selects which replacement policy a pool uses.
type PolicyKind int

const (
	// PolicyLRU is the basic (non-priority) variant used by the
	// sequence container.
	PolicyLRU PolicyKind = iota

	// PolicyPriority is the second-chance variant used by the B+Tree,
	// where the caller can grant hot nodes (root, spine) extra survival
	// time via maxChance on Pin.
	PolicyPriority
)

// replacementPolicy is the strategy pickVictim/touch/evict dispatch to.
// Both variants share the pool's arena and ring; only the bookkeeping on
// pin/touch/evict differs.
type replacementPolicy interface {
	pickVictim(p *pool) (int, error)
	touch(p *pool, idx int)
	evict(p *pool, idx int)
}

// pool is the frame pool (component B). poolSize = reservedMemory /
// blockSize frames are allocated once at construction and never grow.
type pool struct {
	frames    []frame
	blockSize int
	policy    replacementPolicy

	// headNext is the LRU end of the ring (least recently used frame,
	// just after the sentinel head); headPrev is the MRU end (most
	// recently used, just before head). A value of -1 means the ring
	// is empty on that side.
	headNext, headPrev int
}

// newPool builds a pool of size frames of blockSize bytes, threaded into a
// single ring in index order (frame 0 at the LRU end).
func newPool(size, blockSize int, kind PolicyKind) *pool {
	size = mathutil.Max(size, 1)
	p := &pool{
		frames:    make([]frame, size),
		blockSize: blockSize,
		headNext:  0,
		headPrev:  size - 1,
	}
	for i := range p.frames {
		p.frames[i].data = make([]byte, blockSize)
		p.frames[i].prev = i - 1
		p.frames[i].next = i + 1
	}
	p.frames[0].prev = -1
	p.frames[size-1].next = -1

	switch kind {
	case PolicyLRU:
		p.policy = lruPolicy{}
	case PolicyPriority:
		p.policy = priorityPolicy{}
	default:
		panic("store: unknown replacement policy")
	}
	return p
}

func (p *pool) size() int { return len(p.frames) }

// unlink removes idx from wherever it currently sits in the ring.
func (p *pool) unlink(idx int) {
	f := &p.frames[idx]
	if f.prev == -1 {
		p.headNext = f.next
	} else {
		p.frames[f.prev].next = f.next
	}
	if f.next == -1 {
		p.headPrev = f.prev
	} else {
		p.frames[f.next].prev = f.prev
	}
	f.prev, f.next = -1, -1
}

// linkMRU inserts idx immediately before head (the MRU end).
func (p *pool) linkMRU(idx int) {
	f := &p.frames[idx]
	f.next = -1
	f.prev = p.headPrev
	if p.headPrev == -1 {
		p.headNext = idx
	} else {
		p.frames[p.headPrev].next = idx
	}
	p.headPrev = idx
}

// linkLRU inserts idx immediately after head (the LRU end).
func (p *pool) linkLRU(idx int) {
	f := &p.frames[idx]
	f.prev = -1
	f.next = p.headNext
	if p.headNext == -1 {
		p.headPrev = idx
	} else {
		p.frames[p.headNext].prev = idx
	}
	p.headNext = idx
}

// pickVictim returns the index of a frame to reuse, per the pool's policy.
func (p *pool) pickVictim() (int, error) { return p.policy.pickVictim(p) }

// touch promotes idx to the MRU end and lets the policy record the visit.
func (p *pool) touch(idx int) { p.policy.touch(p, idx) }

// evict clears idx's identity and returns it to the LRU end.
func (p *pool) evict(idx int) { p.policy.evict(p, idx) }

// pin prevents idx from being chosen as a victim. maxChance is only
// meaningful under PolicyPriority; the caller assigns it when pinning a
// node it wants to survive longer between accesses (e.g. the tree root).
func (p *pool) pin(idx int, maxChance int) {
	f := &p.frames[idx]
	f.pinCount++
	if maxChance > 0 {
		f.maxChance = maxChance
		f.priorityNum = maxChance
	}
}

// unpin releases one pin previously taken on idx.
func (p *pool) unpin(idx int) {
	f := &p.frames[idx]
	if f.pinCount == 0 {
		panic("store: unpin of unpinned frame")
	}
	f.pinCount--
}

// lruPolicy is the basic, non-priority replacement variant.
type lruPolicy struct{}

func (lruPolicy) pickVictim(p *pool) (int, error) {
	for idx := p.headNext; idx != -1; idx = p.frames[idx].next {
		if !p.frames[idx].pinned() {
			return idx, nil
		}
	}
	return -1, &PoolExhaustedError{PoolSize: p.size()}
}

func (lruPolicy) touch(p *pool, idx int) {
	p.unlink(idx)
	p.linkMRU(idx)
}

func (lruPolicy) evict(p *pool, idx int) {
	p.unlink(idx)
	p.linkLRU(idx)
	f := &p.frames[idx]
	f.valid, f.dirty, f.blockNumber = false, false, 0
}

// priorityPolicy is the second-chance variant used by the B+Tree: a frame
// survives pickVictim scans until its priorityNum counter is spent, and
// touch grants it fresh chances capped at maxChance.
type priorityPolicy struct{}

func (priorityPolicy) pickVictim(p *pool) (int, error) {
	n := p.size()
	if n == 0 {
		return -1, &PoolExhaustedError{PoolSize: 0}
	}

	ignorePin := false
	idx := p.headNext
	for attempt := 0; attempt < 2*n+1; attempt++ {
		if idx == -1 {
			// Reached the MRU end of the ring; wrap back to the LRU
			// end. If we've already made one full lap, every
			// non-pinned frame has been re-granted chances at least
			// once — from here on, pinned status stops excluding a
			// candidate so the pool can still make progress when
			// saturated with pins.
			if attempt >= n {
				ignorePin = true
			}
			idx = p.headNext
			continue
		}

		f := &p.frames[idx]
		if !ignorePin && f.pinned() {
			idx = f.next
			continue
		}
		if f.priorityNum > 0 {
			f.priorityNum--
			idx = f.next
			continue
		}
		return idx, nil
	}
	return -1, &PoolExhaustedError{PoolSize: n}
}

func (priorityPolicy) touch(p *pool, idx int) {
	f := &p.frames[idx]
	if f.maxChance > 0 {
		f.priorityNum = mathutil.Min(f.priorityNum+1, f.maxChance)
	}
	p.unlink(idx)
	p.linkMRU(idx)
}

func (priorityPolicy) evict(p *pool, idx int) {
	f := &p.frames[idx]
	f.maxChance, f.priorityNum, f.pinCount = 0, 0, 0
	f.valid, f.dirty, f.blockNumber = false, false, 0
	p.unlink(idx)
	p.linkLRU(idx)
}
