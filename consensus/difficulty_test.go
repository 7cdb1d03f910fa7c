// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"testing"
	"time"

	"github.com/astram-project/astramd/chaincfg"
	"github.com/stretchr/testify/require"
)

func testParams() *chaincfg.Params {
	return &chaincfg.Params{
		RetargetInterval:   30,
		TargetTimePerBlock: 120 * time.Second,
		MinDifficulty:      1,
		MaxDifficulty:      10,
		SlowStartHeight:    100,
	}
}

// TestSlowStartDifficulty checks that heights up to 100 use
// min(3, 1+h/20), regardless of retarget boundary alignment.
func TestSlowStartDifficulty(t *testing.T) {
	p := testParams()
	now := time.Unix(1738800000, 0)

	cases := []struct {
		height int64
		want   uint32
	}{
		{1, 1},
		{19, 1},
		{20, 2},
		{39, 2},
		{40, 3},
		{100, 3},
	}
	for _, tc := range cases {
		got := ExpectedDifficulty(p, tc.height, 1, now, now)
		require.Equalf(t, tc.want, got, "height %d", tc.height)
	}
}

// TestRetargetFastSpacing checks that 10s/block spacing (too fast)
// drives the ratio above 1.25, incrementing difficulty.
func TestRetargetFastSpacing(t *testing.T) {
	p := testParams()
	anchor := time.Unix(1738800000, 0)
	// 29 blocks at 10s spacing between the anchor (height h-30) and the
	// parent (height h-1).
	parentTime := anchor.Add(29 * 10 * time.Second)

	got := ExpectedDifficulty(p, 300, 5, parentTime, anchor)
	require.Equal(t, uint32(6), got)
}

// TestRetargetSlowSpacing checks the converse: 480s spacing drives the
// ratio below 0.8, decrementing difficulty.
func TestRetargetSlowSpacing(t *testing.T) {
	p := testParams()
	anchor := time.Unix(1738800000, 0)
	parentTime := anchor.Add(29 * 480 * time.Second)

	got := ExpectedDifficulty(p, 300, 5, parentTime, anchor)
	require.Equal(t, uint32(4), got)
}

// TestRetargetClamp verifies the retarget result never leaves [1, 10]
// regardless of how extreme the observed spacing is.
func TestRetargetClamp(t *testing.T) {
	p := testParams()
	anchor := time.Unix(1738800000, 0)

	// Absurdly fast spacing still only moves difficulty by 1 per retarget.
	fast := ExpectedDifficulty(p, 300, 10, anchor.Add(time.Second), anchor)
	require.Equal(t, uint32(10), fast)

	// Absurdly slow spacing still only moves difficulty by 1, floored at 1.
	slow := ExpectedDifficulty(p, 300, 1, anchor.Add(1000*time.Hour), anchor)
	require.Equal(t, uint32(1), slow)
}

// TestNonRetargetHeightCarriesForward verifies a height that isn't a
// retarget boundary inherits the parent's difficulty unchanged.
func TestNonRetargetHeightCarriesForward(t *testing.T) {
	p := testParams()
	anchor := time.Unix(1738800000, 0)
	got := ExpectedDifficulty(p, 301, 7, anchor.Add(time.Hour), anchor)
	require.Equal(t, uint32(7), got)
}

func TestCheckDifficultyDelta(t *testing.T) {
	require.NoError(t, CheckDifficultyDelta(5, 7))
	require.NoError(t, CheckDifficultyDelta(5, 3))
	require.Error(t, CheckDifficultyDelta(5, 8))
	require.Error(t, CheckDifficultyDelta(5, 2))
}
