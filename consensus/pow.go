// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"github.com/astram-project/astramd/astramutil"
)

// CheckDifficultyRange reports whether difficulty is within the
// well-formedness bound for a header (d in [1, maxHeaderDifficulty]),
// independent of whatever narrower range the current retarget clamp
// enforces for newly-mined blocks.
func CheckDifficultyRange(difficulty uint32, maxHeaderDifficulty uint32) error {
	if difficulty < 1 || difficulty > maxHeaderDifficulty {
		return ruleError(ErrDifficultyOutOfRange,
			"block difficulty out of range [1, max]")
	}
	return nil
}

// CheckProofOfWork verifies that hash, interpreted big-endian as a U256,
// is strictly less than target(difficulty), compared numerically rather
// than by leading-zero prefix.
func CheckProofOfWork(hash astramutil.Hash256, difficulty uint32) error {
	if !astramutil.HashMeetsTarget(hash, difficulty) {
		return ruleError(ErrInvalidPoW, "block hash does not meet target difficulty")
	}
	return nil
}

// CumulativeWork returns the work a single block at the given difficulty
// contributes to its chain's cumulative work: 2^difficulty.
func CumulativeWork(difficulty uint32) astramutil.Uint256 {
	return astramutil.PowOfTwoSaturating(uint(difficulty))
}

// AddWork adds the work contributed by a block at the given difficulty to
// an existing cumulative-work total, saturating at the U256 maximum
// rather than wrapping on overflow.
func AddWork(total astramutil.Uint256, difficulty uint32) astramutil.Uint256 {
	return total.Add(CumulativeWork(difficulty))
}
