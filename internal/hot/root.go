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

// Package hot implements the hot-data tracking engine: per-file and
// per-byte-range I/O frequency sampling, a temperature function, and the
// heat map and memory governor used to decide which tracked ranges are
// worth keeping warm in memory.
package hot

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/googlecloudplatform/hot-tracking/cfg"
	"github.com/googlecloudplatform/hot-tracking/clock"
	"github.com/googlecloudplatform/hot-tracking/internal/logger"
)

// Root owns every piece of shared state for one tracking instance: the
// inode index, the two heat maps, the size accounts the governor reads, the
// reclamation epoch, and the aging worker's lifecycle.
type Root struct {
	clock  clock.Clock
	epoch  *epoch
	metric *Metrics

	inodes    *InodeIndex
	inodeHeat *heatMap
	rangeHeat *heatMap

	inodeAccount *sizeAccount
	rangeAccount *sizeAccount

	inodeSlab *slab[InodeItem]
	rangeSlab *slab[RangeItem]

	cfgMu sync.RWMutex
	cfg   cfg.HotTrackingConfig

	workerCancel context.CancelFunc
	workerDone   chan struct{}
}

// NewRoot constructs a Root from a loaded Config. The aging worker is not
// started; call StartWorker to begin periodic rebucketing and high-watermark
// sweeps.
func NewRoot(c cfg.Config, clk clock.Clock, metric *Metrics) *Root {
	configureInvariants(c.Debug)

	r := &Root{
		clock:        clk,
		epoch:        newEpoch(),
		metric:       metric,
		inodes:       newInodeIndex(),
		inodeHeat:    newHeatMap(),
		rangeHeat:    newHeatMap(),
		inodeAccount: &sizeAccount{},
		rangeAccount: &sizeAccount{},
		inodeSlab:    newSlab[InodeItem](inodeItemBytes),
		rangeSlab:    newSlab[RangeItem](rangeItemBytes),
		cfg:          c.HotTracking,
	}
	r.applyCeiling(c.HotTracking.MemHighThreshMB)
	return r
}

func (r *Root) applyCeiling(memHighThreshMB int64) {
	if memHighThreshMB <= 0 {
		r.inodeAccount.setCeiling(0)
		r.rangeAccount.setCeiling(0)
		return
	}
	total := memHighThreshMB * 1024 * 1024
	// Split the configured ceiling evenly between the two accounts; an
	// exact split isn't load-bearing, only that both accounts are bounded
	// once a ceiling is configured at all.
	r.inodeAccount.setCeiling(total / 2)
	r.rangeAccount.setCeiling(total / 2)
}

// Reconfigure applies a (possibly changed) HotTrackingConfig read from
// viper, per spec.md §6's "read at event time" requirement.
func (r *Root) Reconfigure(c cfg.HotTrackingConfig) {
	r.cfgMu.Lock()
	r.cfg = c
	r.cfgMu.Unlock()
	r.applyCeiling(c.MemHighThreshMB)
}

func (r *Root) config() cfg.HotTrackingConfig {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.cfg
}

// RegisterGauges wires this Root's live counts into its Metrics'
// observable gauges. Split from construction because the gauge callbacks
// need a live *Root to read, which doesn't exist until NewRoot returns.
func (r *Root) RegisterGauges(meter metric.Meter) error {
	if r.metric == nil {
		return nil
	}
	return r.metric.registerGauges(meter, r)
}

func (r *Root) now() uint64 {
	return clock.NowNanos(r.clock)
}

// releaseInode drops one reference to item, unlinking and scheduling its
// reclamation if that was the last one.
func (r *Root) releaseInode(item *InodeItem) {
	if !item.release() {
		return
	}
	r.inodeHeat.unlink(&item.node)

	// Cascade: every range item still indexed under this inode loses the
	// inode's implicit hold on it. A range item with an external reference
	// in flight simply doesn't reach zero yet; it is reclaimed on its own
	// when that caller releases it.
	item.ranges.forEachItem(func(ri *RangeItem) {
		item.ranges.removeItem(ri)
	})

	r.inodeAccount.release(inodeItemBytes)
	r.epoch.deferFree(func() {
		logger.Debugf("hot: reclaimed inode %d", item.fileID)
		r.inodeSlab.put(item)
	})
}

// releaseRange drops one reference to item, unlinking and scheduling its
// reclamation if that was the last one.
func (r *Root) releaseRange(item *RangeItem) {
	if !item.release() {
		return
	}
	r.rangeHeat.unlink(&item.node)
	r.rangeAccount.release(rangeItemBytes)
	r.epoch.deferFree(func() {
		logger.Debugf("hot: reclaimed range [%d,%d) of inode %d", item.start, item.start+RangeSize, item.inode.fileID)
		r.rangeSlab.put(item)
	})
}

// OnUnlink forces removal of the inode (and, transitively, all its range
// items) from the index regardless of its current heat, mirroring a file
// deletion: there is no future access to keep tracking.
func (r *Root) OnUnlink(fileID uint64) {
	r.inodes.Remove(fileID)
}

// Shutdown stops the aging worker (if running), drops the index's own
// reference to every still-tracked inode (cascading into their range
// items, exactly like OnUnlink), and blocks until every deferred free this
// produces — including the cascaded range frees — has completed. Per
// spec.md §5's cancellation contract, after Shutdown returns both size
// accounts are back at zero unless some other caller is still holding a
// reference of its own.
func (r *Root) Shutdown() {
	r.stopWorker()

	r.inodes.ForEachInode(func(item *InodeItem) {
		r.releaseInode(item) // drop the reference ForEachInode just took
		r.inodes.Remove(item.fileID)
	})

	r.epoch.barrier()
}
