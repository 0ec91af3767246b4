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
	"context"
	"sync/atomic"
)

// inShrinker prevents the governor from being re-entered from within its
// own reclamation path: releasing an inode's last reference can, in a
// pathological configuration, itself be reached from a caller that is
// walking the heat map under memory pressure. The guard is process-wide,
// shared by every Root: while one sweep or ScanObjects call is running, any
// other call (from an aging worker or ScanObjects, on any Root) returns 0
// without evicting.
var inShrinker atomic.Bool

// sweepHighWatermark evicts coldest-first, range items then inode items,
// until both size accounts are back under their configured ceiling (if
// any). It returns the number of items reclaimed.
func (r *Root) sweepHighWatermark() int {
	cfg := r.config()
	if cfg.MemHighThreshMB <= 0 {
		return 0
	}
	if !inShrinker.CompareAndSwap(false, true) {
		return 0
	}
	defer inShrinker.Store(false)

	reclaimed := 0
	reclaimed += r.evictUntilUnderCeiling(r.rangeHeat, r.rangeAccount, r.evictRangeNode)
	reclaimed += r.evictUntilUnderCeiling(r.inodeHeat, r.inodeAccount, r.evictInodeNode)
	return reclaimed
}

// ScanObjects implements a kernel-shrinker-style count-based eviction: try
// to reclaim up to want items, coldest-first, regardless of whether the
// byte ceiling has been reached, and report how many were actually
// reclaimed. Ranges are evicted before inodes so that a reclaimed inode
// never leaves behind range items that briefly outlive it in the heat map.
func (r *Root) ScanObjects(want int) (reclaimed int) {
	if want <= 0 {
		return 0
	}
	if !inShrinker.CompareAndSwap(false, true) {
		return 0
	}
	defer inShrinker.Store(false)

	remaining := want
	n := r.evictCount(r.rangeHeat, remaining, r.evictRangeNode)
	reclaimed += n
	remaining -= n
	if remaining > 0 {
		n = r.evictCount(r.inodeHeat, remaining, r.evictInodeNode)
		reclaimed += n
	}
	return reclaimed
}

// evictUntilUnderCeiling walks hm coldest-first, reclaiming eligible items
// via evict, until account reports it is back under its ceiling or the map
// is exhausted.
func (r *Root) evictUntilUnderCeiling(hm *heatMap, account *sizeAccount, evict func(*node) bool) int {
	reclaimed := 0
	ceiling := account.getCeiling()
	hm.coldestFirst(func(_ int, members []*node) bool {
		for _, n := range members {
			bytes, _ := account.snapshot()
			if bytes <= ceiling {
				return true // stop: back under the watermark
			}
			if evict(n) {
				reclaimed++
			}
		}
		bytes, _ := account.snapshot()
		return bytes <= ceiling
	})
	return reclaimed
}

// evictCount walks hm coldest-first, reclaiming up to want eligible items.
func (r *Root) evictCount(hm *heatMap, want int, evict func(*node) bool) int {
	reclaimed := 0
	hm.coldestFirst(func(_ int, members []*node) bool {
		for _, n := range members {
			if reclaimed >= want {
				return true
			}
			if evict(n) {
				reclaimed++
			}
		}
		return reclaimed >= want
	})
	return reclaimed
}

// evictInodeNode attempts to reclaim the InodeItem owning n. An item with
// an external reference beyond the index's own (refs() > 1) is skipped:
// the governor only reclaims items nothing outside the index is currently
// looking at. A concurrent Lookup can still addRef between this check and
// Remove below; that's fine, per §5 — Remove then only drops the index's
// own reference, and the item survives on the caller's.
func (r *Root) evictInodeNode(n *node) bool {
	item, ok := n.owner.(*InodeItem)
	if !ok || item.refs() > 1 {
		return false
	}
	r.inodes.Remove(item.fileID)
	if r.metric != nil {
		r.metric.itemsEvicted.Add(context.Background(), 1)
	}
	return true
}

func (r *Root) evictRangeNode(n *node) bool {
	item, ok := n.owner.(*RangeItem)
	if !ok || item.refs() > 1 {
		return false
	}
	item.inode.ranges.removeItem(item)
	if r.metric != nil {
		r.metric.itemsEvicted.Add(context.Background(), 1)
	}
	return true
}
