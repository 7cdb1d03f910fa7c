// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"sort"
	"time"
)

// CalcMedianTimePast returns the median of the given timestamps, sorted
// ascending. Callers pass however many ancestor timestamps are
// available (fewer near genesis); the median of an even-length slice
// is the upper of the two central elements, i.e. element len/2 after
// sorting.
func CalcMedianTimePast(timestamps []time.Time) time.Time {
	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted[len(sorted)/2]
}

// CheckTimestampAfterMTP verifies that a new block's timestamp is strictly
// greater than the median-time-past of its ancestors.
func CheckTimestampAfterMTP(blockTimestamp time.Time, ancestorTimestamps []time.Time) error {
	mtp := CalcMedianTimePast(ancestorTimestamps)
	if !blockTimestamp.After(mtp) {
		return ruleError(ErrTimestampTooOld,
			"block timestamp is not strictly greater than median-time-past")
	}
	return nil
}
