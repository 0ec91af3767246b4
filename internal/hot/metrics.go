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

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds every OpenTelemetry instrument the engine publishes. All
// names are under the hot_tracking namespace so a Prometheus scrape (via
// the bridge meter provider in metrics_prom.go) renders them as
// hot_tracking_<name>.
type Metrics struct {
	accessesRecorded metric.Int64Counter
	oomSkips         metric.Int64Counter
	itemsEvicted     metric.Int64Counter
	ageSweepDuration metric.Float64Histogram

	inodeCount metric.Int64ObservableGauge
	rangeCount metric.Int64ObservableGauge
	inodeBytes metric.Int64ObservableGauge
	rangeBytes metric.Int64ObservableGauge
}

// NewMetrics registers the hot-tracking counters and histogram against
// meter. The observable gauges, which read a Root at collection time, are
// registered separately by registerGauges (via Root.RegisterGauges) once
// the Root exists.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.accessesRecorded, err = meter.Int64Counter(
		"hot_tracking.accesses_recorded",
		metric.WithDescription("Number of record_access calls ingested."),
	); err != nil {
		return nil, err
	}

	if m.oomSkips, err = meter.Int64Counter(
		"hot_tracking.oom_skips",
		metric.WithDescription("Number of record_access calls skipped because the memory ceiling was reached."),
	); err != nil {
		return nil, err
	}

	if m.itemsEvicted, err = meter.Int64Counter(
		"hot_tracking.items_evicted",
		metric.WithDescription("Number of inode/range items reclaimed by the memory governor."),
	); err != nil {
		return nil, err
	}

	if m.ageSweepDuration, err = meter.Float64Histogram(
		"hot_tracking.age_sweep_duration_seconds",
		metric.WithDescription("Wall time spent in one aging-worker sweep."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// registerGauges wires the observable gauges to read live counts off root.
// Split out from NewMetrics because the gauges' callbacks close over root,
// which doesn't exist until after NewRoot has already been handed a
// *Metrics.
func (m *Metrics) registerGauges(meter metric.Meter, root *Root) error {
	var err error
	if m.inodeCount, err = meter.Int64ObservableGauge(
		"hot_tracking.inode_items",
		metric.WithDescription("Current number of tracked inode items."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			_, count := root.inodeAccount.snapshot()
			o.Observe(count)
			return nil
		}),
	); err != nil {
		return err
	}

	if m.rangeCount, err = meter.Int64ObservableGauge(
		"hot_tracking.range_items",
		metric.WithDescription("Current number of tracked range items."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			_, count := root.rangeAccount.snapshot()
			o.Observe(count)
			return nil
		}),
	); err != nil {
		return err
	}

	if m.inodeBytes, err = meter.Int64ObservableGauge(
		"hot_tracking.inode_bytes",
		metric.WithDescription("Accounted bytes held by tracked inode items."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			bytes, _ := root.inodeAccount.snapshot()
			o.Observe(bytes)
			return nil
		}),
	); err != nil {
		return err
	}

	if m.rangeBytes, err = meter.Int64ObservableGauge(
		"hot_tracking.range_bytes",
		metric.WithDescription("Accounted bytes held by tracked range items."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			bytes, _ := root.rangeAccount.snapshot()
			o.Observe(bytes)
			return nil
		}),
	); err != nil {
		return err
	}

	return nil
}
