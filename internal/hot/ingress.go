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

import "context"

// RecordAccess ingests one I/O access of size bytes at offset into fileID,
// updating the inode's whole-file sample and every 1MiB range the access
// spans. It is the engine's hot path: it never logs and never blocks on
// anything but the index locks it briefly takes to find-or-insert.
//
// If the configured memory ceiling has been reached, new items are simply
// not created: an access against an already-tracked file or range still
// updates its sample. An access that would require allocating a
// previously-unseen inode returns ErrOutOfMemory and otherwise does
// nothing; a previously-unseen range that cannot be admitted is skipped,
// the other ranges and the inode are still updated, and the call returns
// nil. Untracked accesses are lost, not retried.
func (r *Root) RecordAccess(ctx context.Context, fileID uint64, offset, size uint64, isWrite bool) error {
	if size == 0 {
		return nil
	}

	now := r.now()

	inode, _, err := r.inodes.FindOrInsert(fileID, r, now)
	if err != nil {
		if r.metric != nil {
			r.metric.oomSkips.Add(ctx, 1)
		}
		return err
	}
	defer r.releaseInode(inode)

	inode.Freq.UpdateSample(now, isWrite)

	start := AlignRange(offset)
	end := offset + size // exclusive
	for rangeStart := start; rangeStart < end; rangeStart += RangeSize {
		ri, _, err := inode.ranges.FindOrInsert(inode, rangeStart, now)
		if err != nil {
			if r.metric != nil {
				r.metric.oomSkips.Add(ctx, 1)
			}
			continue
		}
		ri.Freq.UpdateSample(now, isWrite)
		r.releaseRange(ri)
	}

	if r.metric != nil {
		r.metric.accessesRecorded.Add(ctx, 1)
	}
	return nil
}
