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

// slab is a typed, pool-backed allocator for one of the two fixed-size item
// kinds (InodeItem, RangeItem). It stands in for the source's slab-cache
// allocator: Go has no user-controlled slab cache, so a sync.Pool of
// pointers is the idiomatic replacement (see DESIGN.md — this is one of the
// few components without a corpus library, because recycling fixed-size
// allocations is exactly what sync.Pool is for).
//
// admit/release additionally track the tracker's byte budget so that the
// memory governor can compare live bytes against cfg.HotTrackingConfig's
// configured high watermark.
type slab[T any] struct {
	pool      sync.Pool
	itemBytes int64
}

func newSlab[T any](itemBytes int64) *slab[T] {
	return &slab[T]{
		pool:      sync.Pool{New: func() any { return new(T) }},
		itemBytes: itemBytes,
	}
}

// get returns a zeroed *T. It never fails: Go's allocator does not expose a
// recoverable out-of-memory signal the way the source's slab cache does, so
// the ErrOutOfMemory path is instead driven by the tracker's own accounted
// byte budget in sizeAccount.admit, checked by the caller before get.
func (s *slab[T]) get() *T {
	v := s.pool.Get().(*T)
	var zero T
	*v = zero
	return v
}

// put returns v to the pool for reuse. Callers must not touch v afterward.
func (s *slab[T]) put(v *T) {
	s.pool.Put(v)
}

// sizeAccount tracks accounted live bytes and item counts for one item kind,
// compared against the configured high watermark by the memory governor.
type sizeAccount struct {
	mu        sync.Mutex
	liveBytes int64
	liveCount int64
	ceiling   int64 // 0 means unbounded
}

// admit accounts for one more live item of the given byte size. It returns
// ErrOutOfMemory if the configured ceiling would be exceeded.
func (a *sizeAccount) admit(bytes int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ceiling > 0 && a.liveBytes+bytes > a.ceiling {
		return ErrOutOfMemory
	}
	a.liveBytes += bytes
	a.liveCount++
	return nil
}

// release removes the accounting for one item freed.
func (a *sizeAccount) release(bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.liveBytes -= bytes
	a.liveCount--
}

func (a *sizeAccount) snapshot() (bytes, count int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liveBytes, a.liveCount
}

func (a *sizeAccount) setCeiling(bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ceiling = bytes
}

func (a *sizeAccount) getCeiling() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ceiling
}
