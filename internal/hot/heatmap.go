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

import "sync"

// heatMap buckets every live item of one kind (inode or range) by its most
// recently published temperature, into MapSize FIFO buckets. One heatMap
// lock covers every bucket of a given kind — per SPEC_FULL.md's resolved
// Open Question, bucket-granular locking was rejected because rebucketing
// moves an item between two buckets and a per-bucket lock would require
// lock-ordering across arbitrary bucket pairs for no measured benefit at
// MapSize=256.
type heatMap struct {
	mu      sync.Mutex
	buckets [MapSize]bucketList
}

func newHeatMap() *heatMap {
	hm := &heatMap{}
	for i := range hm.buckets {
		hm.buckets[i].init()
	}
	return hm
}

// bucketIndex maps a temperature scalar to its heat-map bucket.
func bucketIndex(temp uint32) int {
	return int(temp >> (32 - MapBits))
}

// rebucket moves n to the bucket for temp, linking it for the first time if
// it is not yet linked. It is idempotent: calling it again with the same
// temp before the next access is a no-op past the initial lock acquisition.
func (hm *heatMap) rebucket(n *node, temp uint32) {
	b := bucketIndex(temp)
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if n.linked {
		if bucketIndex(n.lastTemp) == b {
			return
		}
		hm.buckets[bucketIndex(n.lastTemp)].remove(n)
	}
	hm.buckets[b].pushBack(n)
	n.lastTemp = temp
}

// unlink removes n from whichever bucket currently holds it, if any.
func (hm *heatMap) unlink(n *node) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if n.linked {
		hm.buckets[bucketIndex(n.lastTemp)].remove(n)
	}
}

// coldestFirst returns a snapshot, per bucket from coldest (0) to hottest
// (MapSize-1), of that bucket's members oldest-first. Used by the governor's
// eviction walk. Snapshotting under one lock acquisition per bucket keeps
// the map usable by concurrent rebuckets between buckets.
func (hm *heatMap) coldestFirst(visit func(bucket int, members []*node) (stop bool)) {
	for b := 0; b < MapSize; b++ {
		hm.mu.Lock()
		members := hm.buckets[b].nodes()
		hm.mu.Unlock()
		if visit(b, members) {
			return
		}
	}
}

// count returns the number of items linked in this map, across all buckets.
func (hm *heatMap) count() int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	n := 0
	for i := range hm.buckets {
		n += hm.buckets[i].size
	}
	return n
}
