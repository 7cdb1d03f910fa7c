// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"time"

	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/wire"
)

// MaxTimeOffset is the maximum a block's timestamp may be ahead of the
// validator's own clock.
const MaxTimeOffset = 2 * 60 * 60 * time.Second

// CheckHeaderSanity runs the context-free header checks:
// difficulty well-formedness and the timestamp bounds relative to
// genesis and the current time. It does not check PoW, parent linkage, or
// retarget agreement -- those require chain context and are checked
// separately (CheckProofOfWork, ExpectedDifficulty/CheckDifficultyDelta,
// CheckTimestampAfterMTP).
func CheckHeaderSanity(header *wire.BlockHeader, p *chaincfg.Params, now time.Time) error {
	if err := CheckDifficultyRange(header.Difficulty, p.MaxHeaderDifficulty); err != nil {
		return err
	}
	if header.Timestamp.Before(p.GenesisTimestamp) {
		return ruleError(ErrTimestampTooOld, "block timestamp predates genesis")
	}
	if header.Timestamp.After(now.Add(MaxTimeOffset)) {
		return ruleError(ErrTimestampTooFuture, "block timestamp too far in the future")
	}
	return nil
}
