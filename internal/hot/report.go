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

import "encoding/binary"

// HeatReport is the array-of-scalars layout handed to whatever user-space
// reporting surface a caller bolts on (no ioctl handler is implemented
// here — that VFS-facing plumbing is out of scope). Field order and widths
// are fixed; ToBytes lays them out host-endian, matching a struct a C
// caller would read directly off an ioctl buffer.
type HeatReport struct {
	Live           bool
	Temperature    uint32
	AvgDeltaReads  uint64
	AvgDeltaWrites uint64
	LastReadTime   uint64
	LastWriteTime  uint64
	NumReads       uint32
	NumWrites      uint32
}

// reportSize is the encoded size: 1 (live) + 3 (reserved) + 4 (temperature)
// + 8*4 (the four u64 fields) + 4*2 (the two u32 counters) + 8*4 (four
// reserved u64 for forward compatibility).
const reportSize = 1 + 3 + 4 + 8*4 + 4*2 + 8*4

// ToBytes encodes the report in the fixed array-of-scalars layout, host
// endian.
func (h HeatReport) ToBytes() []byte {
	buf := make([]byte, 0, reportSize)

	if h.Live {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, 0, 0, 0) // reserved

	buf = binary.NativeEndian.AppendUint32(buf, h.Temperature)
	buf = binary.NativeEndian.AppendUint64(buf, h.AvgDeltaReads)
	buf = binary.NativeEndian.AppendUint64(buf, h.AvgDeltaWrites)
	buf = binary.NativeEndian.AppendUint64(buf, h.LastReadTime)
	buf = binary.NativeEndian.AppendUint64(buf, h.LastWriteTime)
	buf = binary.NativeEndian.AppendUint32(buf, h.NumReads)
	buf = binary.NativeEndian.AppendUint32(buf, h.NumWrites)

	for i := 0; i < 4; i++ {
		buf = binary.NativeEndian.AppendUint64(buf, 0) // reserved
	}
	return buf
}

func reportFromSample(s *FreqSample, now uint64) HeatReport {
	ss := s.snapshot()
	return HeatReport{
		Live:           true,
		Temperature:    temperatureFromSnapshot(ss, now),
		AvgDeltaReads:  ss.avgDeltaReads,
		AvgDeltaWrites: ss.avgDeltaWrites,
		LastReadTime:   ss.lastReadTime,
		LastWriteTime:  ss.lastWriteTime,
		NumReads:       uint32(ss.nrReads),
		NumWrites:      uint32(ss.nrWrites),
	}
}

// InodeHeatReport returns the current heat report for fileID, or false if
// it is not currently tracked.
func (r *Root) InodeHeatReport(fileID uint64) (HeatReport, bool) {
	item, err := r.inodes.Lookup(fileID)
	if err != nil {
		return HeatReport{}, false
	}
	defer r.releaseInode(item)
	return reportFromSample(item.Freq, r.now()), true
}

// RangeHeatReport returns the current heat report for the range containing
// offset within fileID, or false if either the file or that range is not
// currently tracked.
func (r *Root) RangeHeatReport(fileID uint64, offset uint64) (HeatReport, bool) {
	item, err := r.inodes.Lookup(fileID)
	if err != nil {
		return HeatReport{}, false
	}
	defer r.releaseInode(item)

	ri, err := item.ranges.Lookup(AlignRange(offset))
	if err != nil {
		return HeatReport{}, false
	}
	defer r.releaseRange(ri)
	return reportFromSample(ri.Freq, r.now()), true
}

// CountObjects returns the total number of tracked inode and range items,
// the value a kernel-style shrinker's count callback reports.
func (r *Root) CountObjects() uint64 {
	_, inodeCount := r.inodeAccount.snapshot()
	_, rangeCount := r.rangeAccount.snapshot()
	return uint64(inodeCount + rangeCount)
}
