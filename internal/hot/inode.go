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

// inodeItemBytes is the accounted size, in bytes, of one InodeItem for the
// purposes of the memory governor's high-watermark sweep. It does not need
// to be exact — it needs to be a stable, comparable unit so that the
// configured MiB ceiling means roughly the same thing across item kinds.
const inodeItemBytes = 256

// InodeItem is the per-file tracking record: one FreqSample for whole-file
// access frequency, plus the sub-file RangeIndex.
type InodeItem struct {
	node

	fileID uint64
	root   *Root

	Freq *FreqSample

	ranges *RangeIndex
}

func (it *InodeItem) Less(than *InodeItem) bool {
	return it.fileID < than.fileID
}

// InodeIndex is the root's ordered map from file ID to InodeItem, backed by
// a google/btree.BTreeG. No example repo in the retrieval pack vendors a
// balanced tree or skip list of its own (see DESIGN.md); btree is the
// closest ecosystem equivalent to the source's ordered index and is used
// here purely as a sorted container — all concurrency safety comes from mu,
// since BTreeG itself is not safe for concurrent writers.
type InodeIndex struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*InodeItem]
}

func newInodeIndex() *InodeIndex {
	return &InodeIndex{
		tree: btree.NewG(32, (*InodeItem).Less),
	}
}

// FindOrInsert returns the InodeItem for fileID, creating it if necessary.
// The returned item carries one reference on behalf of the caller, which
// the caller must drop with Root.releaseInode when done. created is true
// iff this call allocated a new item.
//
// The allocate-unlocked/probe-locked/discard-on-race shape mirrors every
// other two-phase insert in this package (RangeIndex.FindOrInsert is the
// same pattern one level down): constructing an InodeItem never needs the
// index lock, so the common case of inserting into a cold index doesn't
// serialize unrelated inserts behind tree rebalancing any longer than
// necessary.
func (idx *InodeIndex) FindOrInsert(fileID uint64, root *Root, now uint64) (item *InodeItem, created bool, err error) {
	probe := &InodeItem{fileID: fileID}

	idx.mu.RLock()
	if existing, ok := idx.tree.Get(probe); ok {
		existing.addRef()
		idx.mu.RUnlock()
		return existing, false, nil
	}
	idx.mu.RUnlock()

	if err := root.inodeAccount.admit(inodeItemBytes); err != nil {
		return nil, false, err
	}

	candidate := root.inodeSlab.get()
	candidate.fileID = fileID
	candidate.root = root
	candidate.Freq = NewFreqSample()
	candidate.ranges = newRangeIndex()
	candidate.kind = kindInode
	candidate.owner = candidate

	idx.mu.Lock()
	if existing, ok := idx.tree.Get(candidate); ok {
		idx.mu.Unlock()
		existing.addRef()
		root.inodeAccount.release(inodeItemBytes)
		root.inodeSlab.put(candidate)
		return existing, false, nil
	}
	candidate.addRef() // the index's own reference
	candidate.addRef() // the caller's reference
	idx.tree.ReplaceOrInsert(candidate)
	idx.mu.Unlock()

	root.inodeHeat.rebucket(&candidate.node, Temperature(candidate.Freq, now))
	return candidate, true, nil
}

// Lookup returns the InodeItem for fileID without creating one. The
// returned item carries a reference the caller must drop with
// Root.releaseInode.
func (idx *InodeIndex) Lookup(fileID uint64) (*InodeItem, error) {
	probe := &InodeItem{fileID: fileID}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	existing, ok := idx.tree.Get(probe)
	if !ok {
		return nil, ErrNotFound
	}
	existing.addRef()
	return existing, nil
}

// Remove drops the index's own reference to the item for fileID, if
// present. It is idempotent. It does not itself free memory: release
// merely decrements the refcount, and only triggers teardown when no other
// holder remains.
func (idx *InodeIndex) Remove(fileID uint64) {
	probe := &InodeItem{fileID: fileID}
	idx.mu.Lock()
	item, existed := idx.tree.Delete(probe)
	idx.mu.Unlock()
	if !existed {
		return
	}
	item.root.releaseInode(item)
}

// ForEachInode calls fn once for every item currently indexed at the time
// of the call, ascending by file ID. Each item is addRef'd while idx.mu is
// held and handed to fn only after the lock is released; fn is responsible
// for releasing that reference (typically via Root.releaseInode).
//
// This two-step shape — snapshot-and-addRef under the lock, then call fn
// outside it — exists because fn (Shutdown's teardown body, for one) may
// itself call back into this index's Remove, and
// sync.RWMutex forbids recursive read-locking: a writer arriving between
// an outer and inner RLock would deadlock against it.
func (idx *InodeIndex) ForEachInode(fn func(item *InodeItem)) {
	idx.mu.RLock()
	items := make([]*InodeItem, 0, idx.tree.Len())
	idx.tree.Ascend(func(it *InodeItem) bool {
		it.addRef()
		items = append(items, it)
		return true
	})
	idx.mu.RUnlock()

	for _, it := range items {
		fn(it)
	}
}

func (idx *InodeIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}
