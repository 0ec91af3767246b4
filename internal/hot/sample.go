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
	"sync"
	"sync/atomic"
)

// Tunables, named after the GLOSSARY defaults. These are compile-time
// constants, not process knobs: unlike MemHighThreshMB/UpdateIntervalSeconds
// they describe the shape of the temperature function itself, which the
// source treats as a kernel build-time choice rather than a runtime one.
const (
	// RangeBits is the log2 of the fixed sub-file range width (1 MiB).
	RangeBits = 20
	RangeSize = 1 << RangeBits

	// MapBits is the log2 of the heat-map bucket count (256 buckets).
	MapBits = 8
	MapSize = 1 << MapBits

	// FreqPower is the EMA smoothing power: smoothing factor is 1/2^FreqPower.
	FreqPower = 4

	NrrMultPower = 20
	NrwMultPower = 20
	LtrDivPower  = 30
	LtwDivPower  = 30
	AvrDivPower  = 40
	AvwDivPower  = 40

	NrrCoeffPower = 0
	NrwCoeffPower = 0
	LtrCoeffPower = 1
	LtwCoeffPower = 1
	AvrCoeffPower = 0
	AvwCoeffPower = 0
)

// FreqSample is the moving-average access-frequency counter attached to
// every InodeItem and RangeItem. Counter increments are atomic (a documented
// deviation from the source, which does not make them atomic — see
// DESIGN.md); the EMA and timestamp fields are multi-word and are instead
// guarded by the sample's own mu.
type FreqSample struct {
	nrReads  atomic.Uint64
	nrWrites atomic.Uint64

	// mu guards the fields below: they are folded together in UpdateSample
	// and read together in Temperature, so a per-field atomic would not be
	// enough to keep them consistent with one another.
	mu             sync.Mutex
	lastReadTime   uint64
	lastWriteTime  uint64
	avgDeltaReads  uint64
	avgDeltaWrites uint64
}

// NewFreqSample returns a zeroed sample with the EMA fields biased cold, per
// spec: initializing avg_delta_* to u64::MAX forces the burstiness terms of
// Temperature to zero until an item has at least two accesses.
func NewFreqSample() *FreqSample {
	return &FreqSample{
		avgDeltaReads:  math.MaxUint64,
		avgDeltaWrites: math.MaxUint64,
	}
}

// UpdateSample folds one access of the given kind at time now (nanoseconds)
// into the sample.
func (s *FreqSample) UpdateSample(now uint64, isWrite bool) {
	if isWrite {
		s.nrWrites.Add(1)
	} else {
		s.nrReads.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A zero last-access time means this is the first access of its kind:
	// there is no inter-access delta yet, so the EMA keeps its cold seed.
	if isWrite {
		if s.lastWriteTime != 0 {
			delta := (now - s.lastWriteTime) >> FreqPower
			s.avgDeltaWrites = emaFold(s.avgDeltaWrites, delta)
		}
		s.lastWriteTime = now
	} else {
		if s.lastReadTime != 0 {
			delta := (now - s.lastReadTime) >> FreqPower
			s.avgDeltaReads = emaFold(s.avgDeltaReads, delta)
		}
		s.lastReadTime = now
	}
}

// emaFold applies avg <- ((avg << FreqPower) - avg + delta) >> FreqPower.
// Arithmetic intentionally wraps on uint64 overflow, matching the source's
// unchecked C shift-and-subtract; the first fold against the MaxUint64
// seed therefore wraps to roughly delta>>FreqPower, a small value that
// subsequent folds move toward delta.
func emaFold(avg, delta uint64) uint64 {
	return ((avg << FreqPower) - avg + delta) >> FreqPower
}

// snapshot is an atomically-consistent-enough read of a FreqSample for
// Temperature and for HeatReport. It is not a single atomic load (the
// source isn't either): it takes the sample lock for the multi-word
// fields and atomic-loads the independent counters.
type snapshot struct {
	nrReads, nrWrites               uint64
	lastReadTime, lastWriteTime     uint64
	avgDeltaReads, avgDeltaWrites   uint64
}

func (s *FreqSample) snapshot() snapshot {
	s.mu.Lock()
	ss := snapshot{
		lastReadTime:   s.lastReadTime,
		lastWriteTime:  s.lastWriteTime,
		avgDeltaReads:  s.avgDeltaReads,
		avgDeltaWrites: s.avgDeltaWrites,
	}
	s.mu.Unlock()
	ss.nrReads = s.nrReads.Load()
	ss.nrWrites = s.nrWrites.Load()
	return ss
}

// Temperature computes the 32-bit temperature scalar for sample as of now.
// The result saturates rather than wraps on overflow of the final sum: the
// source leaves overflow behavior undocumented (spec.md §9 Open Questions);
// this implementation resolves it as saturating so that temperature stays
// monotonic in its inputs, which is the property the test suite checks.
func Temperature(s *FreqSample, now uint64) uint32 {
	ss := s.snapshot()
	return temperatureFromSnapshot(ss, now)
}

func temperatureFromSnapshot(ss snapshot, now uint64) uint32 {
	term1 := weighted(saturateU32(ss.nrReads<<NrrMultPower), NrrCoeffPower)
	term2 := weighted(saturateU32(ss.nrWrites<<NrwMultPower), NrwCoeffPower)
	term3 := weighted(recencyTerm(now, ss.lastReadTime, LtrDivPower), LtrCoeffPower)
	term4 := weighted(recencyTerm(now, ss.lastWriteTime, LtwDivPower), LtwCoeffPower)
	term5 := weighted(burstinessTerm(ss.avgDeltaReads, AvrDivPower), AvrCoeffPower)
	term6 := weighted(burstinessTerm(ss.avgDeltaWrites, AvwDivPower), AvwCoeffPower)

	sum := satAddU32(term1, term2)
	sum = satAddU32(sum, term3)
	sum = satAddU32(sum, term4)
	sum = satAddU32(sum, term5)
	sum = satAddU32(sum, term6)
	return sum
}

// weighted right-shifts a term by its coefficient weight, coeff in [0,3].
func weighted(term uint32, coeffPower int) uint32 {
	return term >> (3 - coeffPower)
}

// recencyTerm computes max(0, 2^32 - ((now-last)>>divPower)), saturating the
// subtraction instead of wrapping the way an unsigned C expression would —
// "max(0, ...)" in the spec's own words. A last of zero means that kind of
// access has never happened, and the term is zero.
func recencyTerm(now, last uint64, divPower int) uint32 {
	if last == 0 {
		return 0
	}
	if now < last {
		return math.MaxUint32
	}
	shifted := (now - last) >> uint(divPower)
	if shifted >= math.MaxUint32 {
		return 0
	}
	return math.MaxUint32 - uint32(shifted)
}

// burstinessTerm computes min(u32::MAX, (u64::MAX - avg) >> divPower).
func burstinessTerm(avg uint64, divPower int) uint32 {
	diff := math.MaxUint64 - avg
	shifted := diff >> uint(divPower)
	return saturateU32(shifted)
}

func saturateU32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func satAddU32(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
