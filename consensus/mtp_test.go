// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalcMedianTimePast(t *testing.T) {
	base := time.Unix(1738800000, 0)
	// Deliberately out of order; MTP must sort before taking the median.
	timestamps := []time.Time{
		base.Add(5 * time.Minute),
		base,
		base.Add(2 * time.Minute),
		base.Add(4 * time.Minute),
		base.Add(1 * time.Minute),
	}
	// Sorted: 0,1,2,4,5 minutes -> median index 2 -> +2 minutes.
	require.Equal(t, base.Add(2*time.Minute), CalcMedianTimePast(timestamps))
}

func TestCheckTimestampAfterMTP(t *testing.T) {
	base := time.Unix(1738800000, 0)
	ancestors := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}

	require.NoError(t, CheckTimestampAfterMTP(base.Add(3*time.Minute), ancestors))
	require.Error(t, CheckTimestampAfterMTP(base.Add(time.Minute), ancestors))
	require.Error(t, CheckTimestampAfterMTP(base.Add(time.Minute), ancestors), "equal to MTP must fail (strictly greater required)")
}
