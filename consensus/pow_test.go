// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"testing"

	"github.com/astram-project/astramd/astramutil"
	"github.com/stretchr/testify/require"
)

func TestCheckDifficultyRange(t *testing.T) {
	require.NoError(t, CheckDifficultyRange(1, 32))
	require.NoError(t, CheckDifficultyRange(32, 32))
	require.Error(t, CheckDifficultyRange(0, 32))
	require.Error(t, CheckDifficultyRange(33, 32))
}

func TestCheckProofOfWork(t *testing.T) {
	var easy astramutil.Hash256
	easy[0] = 0x00
	easy[31] = 0x01 // smallest possible nonzero hash, meets any target.
	require.NoError(t, CheckProofOfWork(easy, 1))

	var hard astramutil.Hash256
	for i := range hard {
		hard[i] = 0xff
	}
	require.Error(t, CheckProofOfWork(hard, 1))
}

func TestCumulativeWorkMonotonic(t *testing.T) {
	low := CumulativeWork(1)
	high := CumulativeWork(2)
	require.True(t, low.LessThan(high))

	total := AddWork(low, 1)
	require.True(t, low.LessThan(total))
}
