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

import "errors"

// ErrOutOfMemory is returned by record-access paths that allocate a new
// InodeItem or RangeItem when the tracker's configured memory ceiling has
// already been reached and the governor has not yet freed enough to admit
// the new item. Callers are expected to treat it as "skip tracking this
// access", never as a fatal condition.
var ErrOutOfMemory = errors.New("hot: memory ceiling reached, tracking skipped")

// ErrNotFound is returned by lookups that do not match an existing item.
var ErrNotFound = errors.New("hot: no matching item")
