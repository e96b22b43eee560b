// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The B+Tree engine (component E): search, proactive top-down split on
// insert, borrow/merge rebalancing on delete, and ordered iteration via
// the leaf chain.

package store

import (
	"log/slog"
	"path/filepath"

	"github.com/cznic/mathutil"
)

// nilBlock is the null sentinel for prev/next/parent/child fields: block 0
// is reserved for the header and can never be a real node, so it doubles
// as "no such node" the way a zero handle conventionally does.
const nilBlock int64 = 0

// rootMaxChance is the priority granted to the root frame each time it is
// pinned, giving it more survival time between accesses than ordinary
// nodes.
const rootMaxChance = 8

// Comparator is a strict weak ordering over fixed-size keys: cmp(a, b)
// means a < b. Equality is !cmp(a,b) && !cmp(b,a). Injected as a plain
// function, not a type-system bound, per the Design Notes.
type Comparator func(a, b []byte) bool

func equalKeys(cmp Comparator, a, b []byte) bool {
	return !cmp(a, b) && !cmp(b, a)
}

// Tree is a disk-resident B+Tree: its nodes live as blocks of an index
// BufferedFile, its values as one-block-each records in a companion data
// BufferedFile.
type Tree struct {
	idx    *BufferedFile
	data   *BufferedFile
	layout *NodeLayout
	header *Header
	cmp    Comparator
}

// Open opens or creates a B+Tree over indexPath/dataPath. blockSize fixes
// the index file's node size; keySize/valueSize are fixed at creation and
// validated against the stored header on reopen.
func Open(indexPath, dataPath string, blockSize, keySize, valueSize, poolBytes int, cmp Comparator, policy PolicyKind) (*Tree, error) {
	idx, err := OpenBufferedFile(indexPath, blockSize, poolBytes, policy)
	if err != nil {
		return nil, err
	}

	header := NewHeader(idx.ReadHeader())
	layout := NewNodeLayout(blockSize, keySize)

	if header.Initialized() {
		if err := header.Validate(indexPath, StructBTree); err != nil {
			idx.Close()
			return nil, err
		}
		if int(header.KeySize()) != keySize || int(header.ValueSize()) != valueSize {
			idx.Close()
			return nil, &SignatureMismatchError{Path: indexPath, Expected: "key/value size match", Got: "mismatch"}
		}
	} else {
		header.Init(StructBTree, int32(keySize), int32(valueSize), filepath.Base(dataPath))
		rootBlock, err := idx.AllotBlock()
		if err != nil {
			idx.Close()
			return nil, err
		}
		rootFr, err := idx.GetFrame(rootBlock)
		if err != nil {
			idx.Close()
			return nil, err
		}
		layout.SetType(rootFr, NodeLeaf)
		layout.SetKeyCount(rootFr, 0)
		layout.SetPrev(rootFr, nilBlock)
		layout.SetNext(rootFr, nilBlock)
		layout.SetParent(rootFr, nilBlock)
		header.SetRoot(rootBlock)
		header.SetLeafHead(rootBlock)
		header.SetLeafTail(rootBlock)
	}

	dataBlockSize := mathutil.Max(valueSize, 8)
	data, err := OpenBufferedFile(dataPath, dataBlockSize, mathutil.Max(poolBytes/4, dataBlockSize), PolicyLRU)
	if err != nil {
		idx.Close()
		return nil, err
	}

	t := &Tree{idx: idx, data: data, layout: layout, header: header, cmp: cmp}
	slog.Debug("tree opened", "index", indexPath, "data", dataPath, "M", layout.M())
	return t, nil
}

// Close flushes and closes both underlying files.
func (t *Tree) Close() error {
	if err := t.idx.Close(); err != nil {
		return err
	}
	return t.data.Close()
}

// Flush writes back all dirty state without closing, for callers that
// need a per-operation durability point.
func (t *Tree) Flush() error {
	if err := t.idx.Flush(); err != nil {
		return err
	}
	return t.data.Flush()
}

// M returns the maximum number of keys a node may hold.
func (t *Tree) M() int { return t.layout.M() }

func (t *Tree) minKeys() int { return (t.layout.M()+1)/2 - 1 }

func (t *Tree) pin(block int64, maxChance int) (*Frame, error) {
	fr, err := t.idx.GetFrame(block)
	if err != nil {
		return nil, err
	}
	t.idx.Pin(fr, maxChance)
	return fr, nil
}

func (t *Tree) unpin(fr *Frame) { t.idx.Unpin(fr) }

// childIndex finds the leftmost child to follow for key at an internal
// node's frame: the leftmost key k_i with search_key <= k_i determines
// child[i], except on a tie (k_i == search_key), where child[i+1] is
// followed instead.
func (t *Tree) childIndex(fr *Frame, key []byte) int {
	n := t.layout.KeyCount(fr)
	i := 0
	for i < n && t.cmp(t.layout.Key(fr, i), key) {
		i++
	}
	if i < n && equalKeys(t.cmp, t.layout.Key(fr, i), key) {
		i++
	}
	return i
}

// leafInsertPos finds where key belongs in a sorted leaf: the first
// position with Key(pos) >= key, advanced past any run of equal keys so
// a new equal key lands immediately after existing occurrences.
func (t *Tree) leafInsertPos(fr *Frame, key []byte) int {
	n := t.layout.KeyCount(fr)
	i := 0
	for i < n && t.cmp(t.layout.Key(fr, i), key) {
		i++
	}
	for i < n && equalKeys(t.cmp, t.layout.Key(fr, i), key) {
		i++
	}
	return i
}

// leafRun finds [start, end) — the contiguous run of entries
// equal to key in a sorted leaf, which may be empty.
func (t *Tree) leafRun(fr *Frame, key []byte) (start, end int) {
	n := t.layout.KeyCount(fr)
	i := 0
	for i < n && t.cmp(t.layout.Key(fr, i), key) {
		i++
	}
	start = i
	for i < n && equalKeys(t.cmp, t.layout.Key(fr, i), key) {
		i++
	}
	return start, i
}

// Search returns the first value stored for key in leaf-chain order, or
// NotFoundError.
func (t *Tree) Search(key []byte) ([]byte, error) {
	block := t.header.Root()
	for {
		fr, err := t.idx.GetFrame(block)
		if err != nil {
			return nil, err
		}
		if t.layout.IsLeaf(fr) {
			start, end := t.leafRun(fr, key)
			if start == end {
				return nil, &NotFoundError{Op: "search"}
			}
			vb, vo := t.layout.Value(fr, start)
			// A run of equal keys can begin in an earlier leaf: follow the
			// chain back to the run's first entry.
			for start == 0 && t.layout.Prev(fr) != nilBlock {
				if fr, err = t.idx.GetFrame(t.layout.Prev(fr)); err != nil {
					return nil, err
				}
				if start, _ = t.leafRun(fr, key); start == t.layout.KeyCount(fr) {
					break
				}
				vb, vo = t.layout.Value(fr, start)
			}
			return t.readValue(vb, vo)
		}
		block = t.layout.Child(fr, t.childIndex(fr, key))
	}
}

// Count returns the number of occurrences of key currently stored.
func (t *Tree) Count(key []byte) (int, error) {
	block := t.header.Root()
	for {
		fr, err := t.idx.GetFrame(block)
		if err != nil {
			return 0, err
		}
		if t.layout.IsLeaf(fr) {
			count := 0
			for {
				start, end := t.leafRun(fr, key)
				count += end - start
				n := t.layout.KeyCount(fr)
				if end < n || t.layout.Next(fr) == nilBlock {
					return count, nil
				}
				// the run may continue into the next leaf
				nextBlock := t.layout.Next(fr)
				nfr, err := t.idx.GetFrame(nextBlock)
				if err != nil {
					return count, err
				}
				if t.layout.KeyCount(nfr) == 0 || !equalKeys(t.cmp, t.layout.Key(nfr, 0), key) {
					return count, nil
				}
				fr = nfr
			}
		}
		// Descend to the leftmost leaf that can hold key (ties go left
		// here, unlike childIndex), so the forward walk sees the whole run.
		i, n := 0, t.layout.KeyCount(fr)
		for i < n && t.cmp(t.layout.Key(fr, i), key) {
			i++
		}
		block = t.layout.Child(fr, i)
	}
}

// Size returns the total number of (key, value) pairs, by walking the
// leaf chain and summing key counts.
func (t *Tree) Size() (int64, error) {
	var total int64
	block := t.header.LeafHead()
	for block != nilBlock {
		fr, err := t.idx.GetFrame(block)
		if err != nil {
			return 0, err
		}
		total += int64(t.layout.KeyCount(fr))
		block = t.layout.Next(fr)
	}
	return total, nil
}

func (t *Tree) readValue(block, offset int64) ([]byte, error) {
	fr, err := t.data.GetFrame(block)
	if err != nil {
		return nil, err
	}
	size := t.data.BlockSize()
	valSize := int(t.header.ValueSize())
	if int(offset)+valSize > size {
		return nil, &CorruptionError{Block: block, Reason: "value pointer out of range"}
	}
	out := make([]byte, valSize)
	copy(out, fr.Bytes()[offset:int(offset)+valSize])
	return out, nil
}

// Insert adds (key, value). Duplicates are allowed: an equal key is
// inserted immediately after existing occurrences.
func (t *Tree) Insert(key, value []byte) error {
	M := t.layout.M()

	rootBlock := t.header.Root()
	rootFr, err := t.pin(rootBlock, rootMaxChance)
	if err != nil {
		return err
	}

	if t.layout.KeyCount(rootFr) == M {
		newRootBlock, err := t.idx.AllotBlock()
		if err != nil {
			t.unpin(rootFr)
			return err
		}
		newRootFr, err := t.pin(newRootBlock, rootMaxChance)
		if err != nil {
			t.unpin(rootFr)
			return err
		}
		t.layout.SetType(newRootFr, NodeInternal)
		t.layout.SetKeyCount(newRootFr, 0)
		t.layout.SetParent(newRootFr, nilBlock)
		t.layout.SetChild(newRootFr, 0, rootBlock)
		t.layout.SetParent(rootFr, newRootBlock)
		t.header.SetRoot(newRootBlock)

		medianKey, _, siblingFr, err := t.splitChild(newRootFr, newRootBlock, 0, rootBlock, rootFr)
		if err != nil {
			t.unpin(rootFr)
			t.unpin(newRootFr)
			return err
		}
		if t.cmp(medianKey, key) {
			t.unpin(rootFr)
			rootFr = siblingFr
		} else {
			t.unpin(siblingFr)
		}
		t.unpin(newRootFr)
	}

	cur := rootFr
	for !t.layout.IsLeaf(cur) {
		i := t.childIndex(cur, key)
		childBlock := t.layout.Child(cur, i)
		childFr, err := t.pin(childBlock, 1)
		if err != nil {
			t.unpin(cur)
			return err
		}

		if t.layout.KeyCount(childFr) == M {
			curBlock := childFr.BlockNumber()
			parentBlock := cur.BlockNumber()
			medianKey, _, siblingFr, err := t.splitChild(cur, parentBlock, i, curBlock, childFr)
			if err != nil {
				t.unpin(cur)
				t.unpin(childFr)
				return err
			}
			if t.cmp(medianKey, key) {
				t.unpin(childFr)
				childFr = siblingFr
			} else {
				t.unpin(siblingFr)
			}
		}

		t.unpin(cur)
		cur = childFr
	}

	pos := t.leafInsertPos(cur, key)
	n := t.layout.KeyCount(cur)

	dataBlock, err := t.data.AllotBlock()
	if err != nil {
		t.unpin(cur)
		return err
	}
	dfr, err := t.data.GetFrame(dataBlock)
	if err != nil {
		t.unpin(cur)
		return err
	}
	Memcpy(dfr, 0, value)

	t.layout.shiftKeysRight(cur, pos, n)
	t.layout.shiftLeafValuesRight(cur, pos, n)
	t.layout.SetKey(cur, pos, key)
	t.layout.SetValue(cur, pos, dataBlock, 0)
	t.layout.SetKeyCount(cur, n+1)

	t.unpin(cur)
	return nil
}

// splitChild splits the full node at childBlock (childFr, already pinned
// by the caller), which is child index childIdx of parentFr/parentBlock,
// inserting the promoted median into the parent. It returns the promoted
// key, the new sibling's block number, and the sibling's frame (pinned;
// the caller must unpin whichever of childFr/siblingFr it does not
// continue descending into, and always unpin the one it does once done).
func (t *Tree) splitChild(parentFr *Frame, parentBlock int64, childIdx int, childBlock int64, childFr *Frame) (medianKey []byte, siblingBlock int64, siblingFr *Frame, err error) {
	isLeaf := t.layout.IsLeaf(childFr)
	count := t.layout.KeyCount(childFr)
	median := count / 2

	siblingBlock, err = t.idx.AllotBlock()
	if err != nil {
		return nil, 0, nil, err
	}
	siblingFr, err = t.pin(siblingBlock, 1)
	if err != nil {
		return nil, 0, nil, err
	}
	if isLeaf {
		t.layout.SetType(siblingFr, NodeLeaf)
	} else {
		t.layout.SetType(siblingFr, NodeInternal)
	}
	t.layout.SetParent(siblingFr, parentBlock)

	if isLeaf {
		moved := count - median
		for j := 0; j < moved; j++ {
			t.layout.SetKey(siblingFr, j, t.layout.Key(childFr, median+j))
			vb, vo := t.layout.Value(childFr, median+j)
			t.layout.SetValue(siblingFr, j, vb, vo)
		}
		t.layout.SetKeyCount(siblingFr, moved)
		t.layout.SetKeyCount(childFr, median)

		oldNext := t.layout.Next(childFr)
		t.layout.SetPrev(siblingFr, childBlock)
		t.layout.SetNext(siblingFr, oldNext)
		if oldNext != nilBlock {
			nfr, err := t.pin(oldNext, 1)
			if err != nil {
				t.unpin(siblingFr)
				return nil, 0, nil, err
			}
			t.layout.SetPrev(nfr, siblingBlock)
			t.unpin(nfr)
		} else {
			t.header.SetLeafTail(siblingBlock)
		}
		t.layout.SetNext(childFr, siblingBlock)

		medianKey = append([]byte(nil), t.layout.Key(siblingFr, 0)...)
	} else {
		movedKeys := count - median - 1
		for j := 0; j < movedKeys; j++ {
			t.layout.SetKey(siblingFr, j, t.layout.Key(childFr, median+1+j))
		}
		movedChildren := count - median
		for j := 0; j < movedChildren; j++ {
			cb := t.layout.Child(childFr, median+1+j)
			t.layout.SetChild(siblingFr, j, cb)
			mfr, err := t.pin(cb, 1)
			if err != nil {
				t.unpin(siblingFr)
				return nil, 0, nil, err
			}
			t.layout.SetParent(mfr, siblingBlock)
			t.unpin(mfr)
		}
		medianKey = append([]byte(nil), t.layout.Key(childFr, median)...)
		t.layout.SetKeyCount(siblingFr, movedKeys)
		t.layout.SetKeyCount(childFr, median)
	}

	parentCount := t.layout.KeyCount(parentFr)
	t.layout.shiftKeysRight(parentFr, childIdx, parentCount)
	t.layout.shiftInternalChildrenRight(parentFr, childIdx+1, parentCount+1)
	t.layout.SetKey(parentFr, childIdx, medianKey)
	t.layout.SetChild(parentFr, childIdx+1, siblingBlock)
	t.layout.SetKeyCount(parentFr, parentCount+1)

	return medianKey, siblingBlock, siblingFr, nil
}

// Delete removes every occurrence of key. Deleting an absent key is a
// silent no-op.
func (t *Tree) Delete(key []byte) error {
	var pathBlocks []int64
	var pathFrames []*Frame
	defer func() {
		for _, fr := range pathFrames {
			t.unpin(fr)
		}
	}()

	sepBlock := nilBlock
	sepIdx := -1

	cur := t.header.Root()
	for {
		fr, err := t.pin(cur, 1)
		if err != nil {
			return err
		}
		pathBlocks = append(pathBlocks, cur)
		pathFrames = append(pathFrames, fr)
		if t.layout.IsLeaf(fr) {
			break
		}
		n := t.layout.KeyCount(fr)
		i := 0
		for i < n && t.cmp(t.layout.Key(fr, i), key) {
			i++
		}
		if i < n && equalKeys(t.cmp, t.layout.Key(fr, i), key) {
			if sepBlock == nilBlock {
				sepBlock, sepIdx = cur, i
			}
			i++
		}
		cur = t.layout.Child(fr, i)
	}

	leafFr := pathFrames[len(pathFrames)-1]
	start, end := t.leafRun(leafFr, key)
	if start == end {
		return nil
	}
	n := t.layout.KeyCount(leafFr)
	removed := end - start
	if end < n {
		// close the gap [start,end) by sliding [end,n) left by `removed`
		for j := end; j < n; j++ {
			t.layout.SetKey(leafFr, j-removed, t.layout.Key(leafFr, j))
			vb, vo := t.layout.Value(leafFr, j)
			t.layout.SetValue(leafFr, j-removed, vb, vo)
		}
	}
	t.layout.SetKeyCount(leafFr, n-removed)

	if sepBlock != nilBlock {
		sepFr, err := t.pin(sepBlock, 1)
		if err != nil {
			return err
		}
		successor, err := t.findSuccessor(t.layout.Child(sepFr, sepIdx+1))
		t.unpin(sepFr)
		if err != nil {
			return err
		}
		sepFr, err = t.pin(sepBlock, 1)
		if err != nil {
			return err
		}
		t.layout.SetKey(sepFr, sepIdx, successor)
		t.unpin(sepFr)
	}

	idx := len(pathBlocks) - 1
	for idx > 0 {
		childBlock := pathBlocks[idx]
		childFr := pathFrames[idx]
		if t.layout.KeyCount(childFr) >= t.minKeys() {
			break
		}
		parentFr := pathFrames[idx-1]
		childIdx := t.findChildIndex(parentFr, childBlock)
		if err := t.rebalance(parentFr, childFr, childBlock, childIdx); err != nil {
			return err
		}
		idx--
	}

	rootFr := pathFrames[0]
	if !t.layout.IsLeaf(rootFr) && t.layout.KeyCount(rootFr) == 0 {
		onlyChild := t.layout.Child(rootFr, 0)
		oldRoot := pathBlocks[0]
		t.header.SetRoot(onlyChild)
		cfr, err := t.pin(onlyChild, rootMaxChance)
		if err != nil {
			return err
		}
		t.layout.SetParent(cfr, nilBlock)
		t.unpin(cfr)
		if err := t.idx.DeleteBlock(oldRoot); err != nil {
			return err
		}
	}

	return nil
}

// findChildIndex scans parentFr's children for block, returning its index.
func (t *Tree) findChildIndex(parentFr *Frame, block int64) int {
	n := t.layout.KeyCount(parentFr)
	for i := 0; i <= n; i++ {
		if t.layout.Child(parentFr, i) == block {
			return i
		}
	}
	panic("store: child block not found in parent")
}

// findSuccessor returns a copy of the smallest key in the subtree rooted
// at block, by following the leftmost child chain down to a leaf.
func (t *Tree) findSuccessor(block int64) ([]byte, error) {
	for {
		fr, err := t.idx.GetFrame(block)
		if err != nil {
			return nil, err
		}
		if t.layout.IsLeaf(fr) {
			return append([]byte(nil), t.layout.Key(fr, 0)...), nil
		}
		block = t.layout.Child(fr, 0)
	}
}

// rebalance restores childFr (child index childIdx of parentFr) to at
// least minKeys keys, by borrowing from a sibling with a surplus or,
// failing that, merging with one.
func (t *Tree) rebalance(parentFr *Frame, childFr *Frame, childBlock int64, childIdx int) error {
	parentCount := t.layout.KeyCount(parentFr)
	isLeaf := t.layout.IsLeaf(childFr)

	if childIdx > 0 {
		leftBlock := t.layout.Child(parentFr, childIdx-1)
		leftFr, err := t.pin(leftBlock, 1)
		if err != nil {
			return err
		}
		if t.layout.KeyCount(leftFr) > t.minKeys() {
			t.borrowFromLeft(parentFr, childIdx, leftFr, childFr, isLeaf)
			t.unpin(leftFr)
			return nil
		}
		t.unpin(leftFr)
	}

	if childIdx < parentCount {
		rightBlock := t.layout.Child(parentFr, childIdx+1)
		rightFr, err := t.pin(rightBlock, 1)
		if err != nil {
			return err
		}
		if t.layout.KeyCount(rightFr) > t.minKeys() {
			t.borrowFromRight(parentFr, childIdx, childFr, rightFr, isLeaf)
			t.unpin(rightFr)
			return nil
		}
		t.unpin(rightFr)
	}

	if childIdx > 0 {
		leftBlock := t.layout.Child(parentFr, childIdx-1)
		leftFr, err := t.pin(leftBlock, 1)
		if err != nil {
			return err
		}
		err = t.mergeInto(parentFr, childIdx-1, leftBlock, leftFr, childBlock, childFr, isLeaf)
		t.unpin(leftFr)
		return err
	}

	rightBlock := t.layout.Child(parentFr, childIdx+1)
	rightFr, err := t.pin(rightBlock, 1)
	if err != nil {
		return err
	}
	err = t.mergeInto(parentFr, childIdx, childBlock, childFr, rightBlock, rightFr, isLeaf)
	t.unpin(rightFr)
	return err
}

// borrowFromLeft moves one entry from leftFr (child childIdx-1) into the
// front of childFr (child childIdx), patching the parent separator.
func (t *Tree) borrowFromLeft(parentFr *Frame, childIdx int, leftFr, childFr *Frame, isLeaf bool) {
	n := t.layout.KeyCount(childFr)
	ln := t.layout.KeyCount(leftFr)

	if isLeaf {
		t.layout.shiftKeysRight(childFr, 0, n)
		t.layout.shiftLeafValuesRight(childFr, 0, n)
		t.layout.SetKey(childFr, 0, t.layout.Key(leftFr, ln-1))
		vb, vo := t.layout.Value(leftFr, ln-1)
		t.layout.SetValue(childFr, 0, vb, vo)
		t.layout.SetKeyCount(childFr, n+1)
		t.layout.SetKeyCount(leftFr, ln-1)
		t.layout.SetKey(parentFr, childIdx-1, t.layout.Key(childFr, 0))
		return
	}

	t.layout.shiftKeysRight(childFr, 0, n)
	t.layout.shiftInternalChildrenRight(childFr, 0, n+1)
	t.layout.SetKey(childFr, 0, t.layout.Key(parentFr, childIdx-1))
	moved := t.layout.Child(leftFr, ln)
	t.layout.SetChild(childFr, 0, moved)
	if mfr, err := t.pin(moved, 1); err == nil {
		t.layout.SetParent(mfr, childFr.BlockNumber())
		t.unpin(mfr)
	}
	t.layout.SetKeyCount(childFr, n+1)

	t.layout.SetKey(parentFr, childIdx-1, t.layout.Key(leftFr, ln-1))
	t.layout.SetKeyCount(leftFr, ln-1)
}

// borrowFromRight moves one entry from rightFr (child childIdx+1) into the
// end of childFr (child childIdx), patching the parent separator.
func (t *Tree) borrowFromRight(parentFr *Frame, childIdx int, childFr, rightFr *Frame, isLeaf bool) {
	n := t.layout.KeyCount(childFr)
	rn := t.layout.KeyCount(rightFr)

	if isLeaf {
		t.layout.SetKey(childFr, n, t.layout.Key(rightFr, 0))
		vb, vo := t.layout.Value(rightFr, 0)
		t.layout.SetValue(childFr, n, vb, vo)
		t.layout.SetKeyCount(childFr, n+1)

		t.layout.shiftKeysLeft(rightFr, 1, rn)
		t.layout.shiftLeafValuesLeft(rightFr, 1, rn)
		t.layout.SetKeyCount(rightFr, rn-1)

		t.layout.SetKey(parentFr, childIdx, t.layout.Key(rightFr, 0))
		return
	}

	t.layout.SetKey(childFr, n, t.layout.Key(parentFr, childIdx))
	moved := t.layout.Child(rightFr, 0)
	t.layout.SetChild(childFr, n+1, moved)
	if mfr, err := t.pin(moved, 1); err == nil {
		t.layout.SetParent(mfr, childFr.BlockNumber())
		t.unpin(mfr)
	}
	t.layout.SetKeyCount(childFr, n+1)

	t.layout.SetKey(parentFr, childIdx, t.layout.Key(rightFr, 0))
	t.layout.shiftKeysLeft(rightFr, 1, rn)
	t.layout.shiftInternalChildrenLeft(rightFr, 1, rn+1)
	t.layout.SetKeyCount(rightFr, rn-1)
}

// mergeInto merges rightFr (child sepIdx+1) into leftFr (child sepIdx),
// pulling down the parent's separator at sepIdx, then removes that
// separator and the right child pointer from the parent and frees the
// right block.
func (t *Tree) mergeInto(parentFr *Frame, sepIdx int, leftBlock int64, leftFr *Frame, rightBlock int64, rightFr *Frame, isLeaf bool) error {
	ln := t.layout.KeyCount(leftFr)
	rn := t.layout.KeyCount(rightFr)

	if isLeaf {
		for j := 0; j < rn; j++ {
			t.layout.SetKey(leftFr, ln+j, t.layout.Key(rightFr, j))
			vb, vo := t.layout.Value(rightFr, j)
			t.layout.SetValue(leftFr, ln+j, vb, vo)
		}
		t.layout.SetKeyCount(leftFr, ln+rn)

		nextBlock := t.layout.Next(rightFr)
		t.layout.SetNext(leftFr, nextBlock)
		if nextBlock != nilBlock {
			nfr, err := t.pin(nextBlock, 1)
			if err != nil {
				return err
			}
			t.layout.SetPrev(nfr, leftBlock)
			t.unpin(nfr)
		} else {
			t.header.SetLeafTail(leftBlock)
		}
	} else {
		t.layout.SetKey(leftFr, ln, t.layout.Key(parentFr, sepIdx))
		for j := 0; j < rn; j++ {
			t.layout.SetKey(leftFr, ln+1+j, t.layout.Key(rightFr, j))
		}
		for j := 0; j <= rn; j++ {
			cb := t.layout.Child(rightFr, j)
			t.layout.SetChild(leftFr, ln+1+j, cb)
			mfr, err := t.pin(cb, 1)
			if err != nil {
				return err
			}
			t.layout.SetParent(mfr, leftBlock)
			t.unpin(mfr)
		}
		t.layout.SetKeyCount(leftFr, ln+1+rn)
	}

	parentCount := t.layout.KeyCount(parentFr)
	for j := sepIdx; j < parentCount-1; j++ {
		t.layout.SetKey(parentFr, j, t.layout.Key(parentFr, j+1))
	}
	t.layout.shiftInternalChildrenLeft(parentFr, sepIdx+2, parentCount+1)
	t.layout.SetKeyCount(parentFr, parentCount-1)

	return t.idx.DeleteBlock(rightBlock)
}
