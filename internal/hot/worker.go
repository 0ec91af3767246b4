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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/googlecloudplatform/hot-tracking/internal/logger"
)

// StartWorker launches the aging worker: a single goroutine that wakes up
// every UpdateIntervalSeconds (re-read from cfg on each tick, so a live
// config change takes effect on the following wake-up) and runs one
// AgeSweep. The goroutine is started through an errgroup and closes
// workerDone on exit; stopWorker (called by Shutdown) cancels its context
// and waits on workerDone.
//
// Calling StartWorker twice without an intervening Shutdown is a caller
// error; the second call replaces the first worker's cancel func, leaking
// the first goroutine until its own context is separately canceled.
func (r *Root) StartWorker(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.workerCancel = cancel
	r.workerDone = make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(r.workerDone)
		r.workerLoop(gctx)
		return nil
	})
}

func (r *Root) workerLoop(ctx context.Context) {
	for {
		interval := time.Duration(r.config().UpdateIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(interval):
		}

		start := r.clock.Now()
		r.AgeSweep()
		if r.metric != nil && r.metric.ageSweepDuration != nil {
			r.metric.ageSweepDuration.Record(ctx, r.clock.Now().Sub(start).Seconds())
		}
	}
}

func (r *Root) stopWorker() {
	if r.workerCancel == nil {
		return
	}
	r.workerCancel()
	<-r.workerDone
	r.workerCancel = nil
}

// AgeSweep rebuckets every currently-indexed inode and range item against
// its freshly computed temperature, then runs the governor's high-
// watermark sweep. It is exposed (rather than purely worker-internal) so
// tests can drive aging deterministically with a SimulatedClock instead of
// waiting on the real interval.
func (r *Root) AgeSweep() {
	now := r.now()
	g := r.epoch.enter()
	defer g.exit()

	r.inodes.ForEachInode(func(item *InodeItem) {
		r.inodeHeat.rebucket(&item.node, Temperature(item.Freq, now))
		item.ranges.forEachItem(func(ri *RangeItem) {
			r.rangeHeat.rebucket(&ri.node, Temperature(ri.Freq, now))
		})
		r.releaseInode(item)
	})

	if evicted := r.sweepHighWatermark(); evicted > 0 {
		logger.Debugf("hot: high-watermark sweep reclaimed %d items", evicted)
	}
}
