// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"time"

	"github.com/astram-project/astramd/chaincfg"
)

// slowStartDifficulty implements the slow-start schedule:
// difficulty = min(3, 1 + h/20) for h <= SlowStartHeight, overriding the
// retarget formula entirely regardless of retarget-interval alignment.
func slowStartDifficulty(height int64, minDifficulty uint32) uint32 {
	d := uint32(1 + height/20)
	if d > 3 {
		d = 3
	}
	if d < minDifficulty {
		d = minDifficulty
	}
	return d
}

// ExpectedDifficulty computes the difficulty a block at the given height
// must carry: consult the special-cased slow-start schedule first,
// fall through to "unchanged since last retarget", and only run the full
// ratio computation at a retarget boundary.
//
// parentDifficulty is the difficulty of the block at height-1.
// parentTimestamp and retargetAnchorTimestamp are the timestamps of the
// blocks at height-1 and height-RetargetInterval respectively; both are
// only consulted when height is a retarget boundary.
func ExpectedDifficulty(p *chaincfg.Params, height int64, parentDifficulty uint32, parentTimestamp, retargetAnchorTimestamp time.Time) uint32 {
	if height <= p.SlowStartHeight {
		return slowStartDifficulty(height, p.MinDifficulty)
	}

	if p.RetargetInterval <= 0 || height%p.RetargetInterval != 0 {
		return parentDifficulty
	}

	targetSpan := p.TargetTimePerBlock * time.Duration(p.RetargetInterval)
	minSpan := targetSpan / 4
	maxSpan := targetSpan * 4

	actualSpan := parentTimestamp.Sub(retargetAnchorTimestamp)
	clamped := actualSpan
	if clamped < minSpan {
		clamped = minSpan
	} else if clamped > maxSpan {
		clamped = maxSpan
	}

	ratio := float64(targetSpan) / float64(clamped)

	next := parentDifficulty
	switch {
	case ratio > 1.25:
		next++
	case ratio < 0.8:
		if next > 0 {
			next--
		}
	}

	if next < p.MinDifficulty {
		next = p.MinDifficulty
	} else if next > p.MaxDifficulty {
		next = p.MaxDifficulty
	}
	return next
}

// CheckDifficultyDelta enforces the adjacent-block difficulty delta
// bound: a block's announced difficulty may not differ
// from its parent's by more than 2, independent of what the retarget
// formula alone would produce (guards against a parent difficulty that
// predates a chain parameter change).
func CheckDifficultyDelta(parentDifficulty, announcedDifficulty uint32) error {
	var delta int64
	if announcedDifficulty >= parentDifficulty {
		delta = int64(announcedDifficulty) - int64(parentDifficulty)
	} else {
		delta = int64(parentDifficulty) - int64(announcedDifficulty)
	}
	if delta > 2 {
		return ruleError(ErrDifficultyOutOfRange,
			"adjacent block difficulty delta exceeds 2")
	}
	return nil
}
