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

import "sync/atomic"

// itemKind distinguishes the two kinds of tracked item sharing one heat-map
// implementation.
type itemKind uint8

const (
	kindInode itemKind = iota
	kindRange
)

// node is the refcounted, heat-map-linkable base embedded by both
// InodeItem and RangeItem. It plays the role the source's intrusive list
// head plus atomic refcount play for every tracked object: one piece of
// shared bookkeeping, two owners.
//
// The heat-map linkage fields (prev, next, linked, lastTemp) are
// guarded by the owning HeatMap's lock, never by the item's own lock —
// this is what lets a rebucket from the aging worker proceed without
// taking the index lock, and vice versa.
type node struct {
	kind  itemKind
	owner any // *InodeItem or *RangeItem, set once at construction

	refCount atomic.Int32

	prev, next *node
	linked     bool
	lastTemp   uint32
}

// addRef records one more live reference to the owning item.
func (n *node) addRef() {
	n.refCount.Add(1)
}

// release drops one reference. It returns true exactly when this call
// brought the count to zero, i.e. the caller is responsible for unlinking
// the item from the heat map and scheduling its deferred free.
func (n *node) release() bool {
	return n.refCount.Add(-1) == 0
}

func (n *node) refs() int32 {
	return n.refCount.Load()
}
