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

// Package hottrack is the public facade over the hot-tracking engine: one
// Tracker holds one internal/hot.Root per enabled filesystem ID, so a
// process tracking several mounted filesystems never shares index state
// between them (spec.md §9's "avoid a true process global unless the host
// dictates it").
package hottrack

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/googlecloudplatform/hot-tracking/cfg"
	"github.com/googlecloudplatform/hot-tracking/clock"
	"github.com/googlecloudplatform/hot-tracking/internal/hot"
	"github.com/googlecloudplatform/hot-tracking/internal/logger"
)

// HeatReport re-exports the engine's reporting layout so callers never
// need to import internal/hot directly.
type HeatReport = hot.HeatReport

// ErrOutOfMemory and ErrNotFound re-export the engine's sentinel errors.
var (
	ErrOutOfMemory = hot.ErrOutOfMemory
	ErrNotFound    = hot.ErrNotFound
)

// Tracker is the process-wide entry point for hot-data tracking. It is
// safe for concurrent use by multiple goroutines, including concurrent
// Enable/Disable of different filesystem IDs.
type Tracker struct {
	cfg    cfg.Config
	clock  clock.Clock
	meter  metric.Meter

	mu    sync.RWMutex
	roots map[string]*hot.Root
}

// New constructs a Tracker. meter may be nil, in which case no metrics are
// published.
func New(c cfg.Config, clk clock.Clock, meter metric.Meter) *Tracker {
	return &Tracker{
		cfg:   c,
		clock: clk,
		meter: meter,
		roots: make(map[string]*hot.Root),
	}
}

// Enable starts tracking for fsID. Calling Enable twice for the same fsID
// without an intervening Disable is a no-op that returns nil: the existing
// root keeps running.
func (t *Tracker) Enable(fsID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.roots[fsID]; ok {
		return nil
	}

	var metrics *hot.Metrics
	if t.meter != nil {
		m, err := hot.NewMetrics(t.meter)
		if err != nil {
			return fmt.Errorf("hottrack: enabling %q: %w", fsID, err)
		}
		metrics = m
	}

	root := hot.NewRoot(t.cfg, t.clock, metrics)
	if metrics != nil {
		if err := root.RegisterGauges(t.meter); err != nil {
			return fmt.Errorf("hottrack: enabling %q: %w", fsID, err)
		}
	}
	root.StartWorker(context.Background())

	t.roots[fsID] = root
	logger.Infof("hottrack: enabled tracking for filesystem %q (instance %s)", fsID, uuid.NewString())
	return nil
}

// Disable stops tracking for fsID and blocks until every deferred free has
// completed. It is idempotent; disabling an fsID that was never enabled
// returns nil.
func (t *Tracker) Disable(fsID string) error {
	t.mu.Lock()
	root, ok := t.roots[fsID]
	if ok {
		delete(t.roots, fsID)
	}
	t.mu.Unlock()

	if !ok {
		return nil
	}
	root.Shutdown()
	logger.Infof("hottrack: disabled tracking for filesystem %q", fsID)
	return nil
}

func (t *Tracker) root(fsID string) (*hot.Root, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	root, ok := t.roots[fsID]
	return root, ok
}

// OnUnlink notifies the tracker that fileID was deleted on fsID, so its
// inode item (and all range items under it) is reclaimed immediately
// rather than waiting to cool off naturally. A no-op if fsID isn't
// currently enabled.
func (t *Tracker) OnUnlink(fsID string, fileID uint64) {
	root, ok := t.root(fsID)
	if !ok {
		return
	}
	root.OnUnlink(fileID)
}

// RecordAccess ingests one I/O access. It is infallible from the caller's
// perspective by design (spec.md §7): a missing fsID is silently ignored
// and an internal out-of-memory skip is logged at debug level, never
// returned, since the ingress path must never make a caller's I/O fail
// because tracking fell behind.
func (t *Tracker) RecordAccess(fsID string, fileID uint64, offset, length uint64, isWrite bool) {
	root, ok := t.root(fsID)
	if !ok {
		return
	}
	if err := root.RecordAccess(context.Background(), fileID, offset, length, isWrite); err != nil {
		logger.Debugf("hottrack: record_access(%q, %d): %v", fsID, fileID, err)
	}
}

// HeatReport returns the current heat report for fileID on fsID.
func (t *Tracker) HeatReport(fsID string, fileID uint64) (HeatReport, bool) {
	root, ok := t.root(fsID)
	if !ok {
		return HeatReport{}, false
	}
	return root.InodeHeatReport(fileID)
}

// RangeHeatReport returns the current heat report for the range containing
// offset within fileID on fsID.
func (t *Tracker) RangeHeatReport(fsID string, fileID, offset uint64) (HeatReport, bool) {
	root, ok := t.root(fsID)
	if !ok {
		return HeatReport{}, false
	}
	return root.RangeHeatReport(fileID, offset)
}

// CountObjects reports the current number of tracked items on fsID, for a
// kernel-style shrinker's count_objects callback.
func (t *Tracker) CountObjects(fsID string) uint64 {
	root, ok := t.root(fsID)
	if !ok {
		return 0
	}
	return root.CountObjects()
}

// ScanObjects attempts to reclaim up to target items on fsID, coldest
// first, for a kernel-style shrinker's scan_objects callback. When
// avoidFSRecursion is set, the call returns immediately with stopped=true
// and freed=0: the shrinker honors the "don't allocate/recurse into the
// filesystem while reclaiming" contract by simply declining to run.
func (t *Tracker) ScanObjects(fsID string, target uint64, avoidFSRecursion bool) (freed uint64, stopped bool) {
	if avoidFSRecursion {
		return 0, true
	}
	root, ok := t.root(fsID)
	if !ok {
		return 0, false
	}
	return uint64(root.ScanObjects(int(target))), false
}
