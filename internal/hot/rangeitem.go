// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hot

import (
	"sync"

	"github.com/google/btree"
)

const rangeItemBytes = 192

// RangeItem is the per-1MiB-range tracking record within one file.
type RangeItem struct {
	node

	start uint64 // byte offset, aligned down to RangeSize
	inode *InodeItem

	Freq *FreqSample
}

func (it *RangeItem) Less(than *RangeItem) bool {
	return it.start < than.start
}

// AlignRange truncates a byte offset down to its containing range's start.
func AlignRange(offset uint64) uint64 {
	return offset &^ (RangeSize - 1)
}

// RangeIndex is one InodeItem's ordered map from aligned range start to
// RangeItem. Same two-phase insert shape and same locking caveat as
// InodeIndex; see inode.go's doc comment.
type RangeIndex struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*RangeItem]
}

func newRangeIndex() *RangeIndex {
	return &RangeIndex{
		tree: btree.NewG(32, (*RangeItem).Less),
	}
}

func (idx *RangeIndex) FindOrInsert(inode *InodeItem, start uint64, now uint64) (item *RangeItem, created bool, err error) {
	probe := &RangeItem{start: start}

	idx.mu.RLock()
	if existing, ok := idx.tree.Get(probe); ok {
		existing.addRef()
		idx.mu.RUnlock()
		return existing, false, nil
	}
	idx.mu.RUnlock()

	if err := inode.root.rangeAccount.admit(rangeItemBytes); err != nil {
		return nil, false, err
	}

	candidate := inode.root.rangeSlab.get()
	candidate.start = start
	candidate.inode = inode
	candidate.Freq = NewFreqSample()
	candidate.kind = kindRange
	candidate.owner = candidate

	idx.mu.Lock()
	if existing, ok := idx.tree.Get(candidate); ok {
		idx.mu.Unlock()
		existing.addRef()
		inode.root.rangeAccount.release(rangeItemBytes)
		inode.root.rangeSlab.put(candidate)
		return existing, false, nil
	}
	candidate.addRef() // the index's own reference
	candidate.addRef() // the caller's reference
	idx.tree.ReplaceOrInsert(candidate)
	idx.mu.Unlock()

	inode.root.rangeHeat.rebucket(&candidate.node, Temperature(candidate.Freq, now))
	return candidate, true, nil
}

func (idx *RangeIndex) Lookup(start uint64) (*RangeItem, error) {
	probe := &RangeItem{start: start}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	existing, ok := idx.tree.Get(probe)
	if !ok {
		return nil, ErrNotFound
	}
	existing.addRef()
	return existing, nil
}

// Remove drops the index's reference to the range item at start, if any.
func (idx *RangeIndex) Remove(start uint64) {
	probe := &RangeItem{start: start}
	idx.mu.Lock()
	item, existed := idx.tree.Delete(probe)
	idx.mu.Unlock()
	if !existed {
		return
	}
	item.inode.root.releaseRange(item)
}

// removeItem is Remove given an already-resolved item pointer, used by the
// inode teardown cascade and by the governor's eviction walk, both of which
// already hold a *RangeItem and would otherwise have to re-derive start.
func (idx *RangeIndex) removeItem(item *RangeItem) {
	idx.mu.Lock()
	_, existed := idx.tree.Delete(item)
	idx.mu.Unlock()
	if !existed {
		return
	}
	item.inode.root.releaseRange(item)
}

func (idx *RangeIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}

// forEachItem snapshots every currently-indexed range item. Used only for
// inode teardown, where the whole range tree is about to be torn down
// anyway, so a snapshot-then-remove is simpler and safer than mutating the
// btree while ascending it.
func (idx *RangeIndex) forEachItem(fn func(*RangeItem)) {
	idx.mu.RLock()
	items := make([]*RangeItem, 0, idx.tree.Len())
	idx.tree.Ascend(func(it *RangeItem) bool {
		items = append(items, it)
		return true
	})
	idx.mu.RUnlock()
	for _, it := range items {
		fn(it)
	}
}
