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

// Package clock abstracts wall-clock access so that code driven by
// real time (aging, TTLs, backoff) can be exercised deterministically
// in tests.
package clock

import "time"

// Clock is satisfied by RealClock, FakeClock and SimulatedClock.
type Clock interface {
	// Now returns the current time according to the clock.
	Now() time.Time

	// After returns a channel on which the current time is sent once the
	// given duration has elapsed according to the clock.
	After(d time.Duration) <-chan time.Time
}

var (
	_ Clock = RealClock{}
	_ Clock = &FakeClock{}
	_ Clock = &SimulatedClock{}
)

// NowNanos returns Now() as a Unix nanosecond timestamp, the resolution the
// hot-tracking engine's frequency samples are kept in.
func NowNanos(c Clock) uint64 {
	return uint64(c.Now().UnixNano())
}
