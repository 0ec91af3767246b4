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

// bucketList is an intrusive, sentinel-headed doubly linked FIFO list of
// *node, one per heat-map bucket. It follows the same sentinel-node shape
// as container/list.List, specialized to *node's own prev/next fields
// instead of a generic Element wrapper, so pushBack/remove are O(1) given a
// node pointer and never allocate.
type bucketList struct {
	root node // sentinel; root.next is the oldest entry, root.prev the newest
	size int
}

func (l *bucketList) init() {
	l.root.next = &l.root
	l.root.prev = &l.root
}

// pushBack appends n as the newest entry.
func (l *bucketList) pushBack(n *node) {
	last := l.root.prev
	n.prev = last
	n.next = &l.root
	last.next = n
	l.root.prev = n
	n.linked = true
	l.size++
}

// remove unlinks n. It is a no-op if n is not currently linked in any list,
// so callers don't need to track membership themselves.
func (l *bucketList) remove(n *node) {
	if !n.linked {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	n.linked = false
	l.size--
}

// front returns the oldest entry, or nil if the list is empty. Eviction
// walks buckets coldest-first and, within a bucket, from front to back.
func (l *bucketList) front() *node {
	if l.root.next == &l.root {
		return nil
	}
	return l.root.next
}

// forEach calls fn for every entry, oldest first. fn must not mutate the
// list; callers that need to remove while iterating should snapshot with
// nodes() first.
func (l *bucketList) forEach(fn func(*node)) {
	for n := l.root.next; n != &l.root; n = n.next {
		fn(n)
	}
}

// nodes returns a snapshot slice of the list's members, oldest first. Used
// by the governor's eviction walk, which removes entries as it goes and so
// cannot safely range over live list pointers.
func (l *bucketList) nodes() []*node {
	out := make([]*node, 0, l.size)
	l.forEach(func(n *node) { out = append(out, n) })
	return out
}
