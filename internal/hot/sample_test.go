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
	"github.com/stretchr/testify/require"
)

func TestTemperature_FreshSampleIsCold(t *testing.T) {
	s := NewFreqSample()
	require.Equal(t, uint32(0), Temperature(s, 1_000_000))
}

func TestTemperature_OneReadMatchesClosedForm(t *testing.T) {
	s := NewFreqSample()
	now := uint64(1_000_000_000)
	s.UpdateSample(now, false)

	got := Temperature(s, now)

	// Per spec.md §8 property 9: a brand-new item accessed once has
	// temperature equal to the read-count term plus the recency term
	// evaluated at now, with the EMA (burstiness) terms still zero (the
	// very first access can't yet have an inter-access delta).
	wantNrTerm := weighted(saturateU32(uint64(1)<<NrrMultPower), NrrCoeffPower)
	wantRecencyTerm := weighted(recencyTerm(now, now, LtrDivPower), LtrCoeffPower)
	want := satAddU32(wantNrTerm, wantRecencyTerm)

	assert.Equal(t, want, got)
}

func TestTemperature_MonotonicInReadCount(t *testing.T) {
	s := NewFreqSample()
	now := uint64(1)
	prev := Temperature(s, now)
	for i := 0; i < 50; i++ {
		now += oneSecondNanos
		s.UpdateSample(now, false)
		cur := Temperature(s, now)
		assert.GreaterOrEqualf(t, cur, prev, "temperature must not decrease as reads accumulate, iteration %d", i)
		prev = cur
	}
}

func TestTemperature_SaturatesRatherThanWraps(t *testing.T) {
	s := NewFreqSample()
	// Push the read counter high enough that its term alone would overflow
	// u32 a few times over; the sum must saturate at MaxUint32, never wrap
	// to a small value.
	for i := 0; i < 1000; i++ {
		s.UpdateSample(uint64(i+1), false)
	}
	got := Temperature(s, 2000)
	assert.LessOrEqual(t, got, uint32(math.MaxUint32))
}

func TestEMAFold_ConvergesTowardTrueDelta(t *testing.T) {
	s := NewFreqSample()
	const delta = 1 << 20
	now := uint64(0)
	for i := 0; i < 200; i++ {
		now += delta
		s.UpdateSample(now, false)
	}
	ss := s.snapshot()
	// After many folds at a constant delta, the EMA should sit close to the
	// shifted delta, not the u64::MAX seed it started from.
	assert.Less(t, ss.avgDeltaReads, uint64(delta))
}

const oneSecondNanos = 1_000_000_000
