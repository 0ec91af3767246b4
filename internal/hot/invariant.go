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
	"fmt"
	"os"

	"github.com/googlecloudplatform/hot-tracking/cfg"
)

// exitOnInvariantViolation mirrors cfg.DebugConfig.ExitOnInvariantViolation.
// It defaults to false (log-and-continue) so that a corrupted-but-survivable
// data structure never takes a production process down; set it from cfg
// during tracker construction to get hard-fail behavior in tests and CI.
var exitOnInvariantViolation = false

// configureInvariants wires the debug policy from a loaded Config.
func configureInvariants(d cfg.DebugConfig) {
	exitOnInvariantViolation = d.ExitOnInvariantViolation
}

// assertf checks an internal consistency invariant. On failure it always
// logs; it additionally terminates the process when configured to do so.
// It must never be used to validate caller-supplied input — that belongs
// in ordinary error returns (ErrOutOfMemory, ErrNotFound).
func assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	msg := fmt.Sprintf("hot: invariant violation: "+format, args...)
	fmt.Fprintln(os.Stderr, msg)
	if exitOnInvariantViolation {
		os.Exit(1)
	}
}
