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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeatMap_RebucketLinksOnFirstCall(t *testing.T) {
	hm := newHeatMap()
	n := &node{}
	hm.rebucket(n, 0)
	assert.True(t, n.linked)
	assert.Equal(t, 1, hm.buckets[0].size)
}

func TestHeatMap_RebucketMovesBucketsOnTemperatureChange(t *testing.T) {
	hm := newHeatMap()
	n := &node{}
	hm.rebucket(n, 0)
	hm.rebucket(n, math.MaxUint32) // should move to the hottest bucket

	assert.Equal(t, 0, hm.buckets[0].size)
	assert.Equal(t, 1, hm.buckets[MapSize-1].size)
}

func TestHeatMap_RebucketSameBucketIsNoOp(t *testing.T) {
	hm := newHeatMap()
	n := &node{}
	hm.rebucket(n, 5)
	hm.rebucket(n, 5)
	assert.Equal(t, 1, hm.buckets[bucketIndex(5)].size)
}

func TestHeatMap_Unlink(t *testing.T) {
	hm := newHeatMap()
	n := &node{}
	hm.rebucket(n, 0)
	hm.unlink(n)
	assert.False(t, n.linked)
	assert.Equal(t, 0, hm.count())
}

func TestHeatMap_ColdestFirstVisitsBucketsInOrder(t *testing.T) {
	hm := newHeatMap()
	hot := &node{}
	cold := &node{}
	hm.rebucket(cold, 0)
	hm.rebucket(hot, math.MaxUint32)

	var order []*node
	hm.coldestFirst(func(_ int, members []*node) bool {
		order = append(order, members...)
		return false
	})

	assert.Equal(t, []*node{cold, hot}, order)
}

func TestBucketIndex_TopBitsOnly(t *testing.T) {
	assert.Equal(t, 0, bucketIndex(0))
	assert.Equal(t, MapSize-1, bucketIndex(math.MaxUint32))
}
