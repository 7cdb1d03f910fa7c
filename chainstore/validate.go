// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/wire"
)

// checkContextFree runs the parent-independent checks: header sanity,
// PoW, and block/coinbase shape.
func (s *Store) checkContextFree(block *wire.MsgBlock, hash astramutil.Hash256, now time.Time) error {
	if err := consensus.CheckHeaderSanity(&block.Header, s.params, now); err != nil {
		return err
	}
	if err := consensus.CheckProofOfWork(hash, block.Header.Difficulty); err != nil {
		return err
	}
	if len(block.Transactions) == 0 {
		return consensus.NewRuleError(consensus.ErrEmptyBlock, "block has no transactions")
	}
	if block.MerkleRoot() != block.Header.MerkleRoot {
		return consensus.NewRuleError(consensus.ErrMerkleRootMismatch, "merkle root does not match block header")
	}
	if len(block.Transactions[0].TxIn) != 1 || !block.Transactions[0].TxIn[0].PreviousOutPoint.IsNull() {
		return consensus.NewRuleError(consensus.ErrInvalidCoinbase, "first transaction is not a valid coinbase")
	}
	for _, tx := range block.Transactions[1:] {
		if len(tx.TxIn) > 0 && tx.TxIn[0].PreviousOutPoint.IsNull() {
			return consensus.NewRuleError(consensus.ErrInvalidCoinbase, "non-first transaction is a coinbase")
		}
	}
	return nil
}

// checkContextual runs the parent-dependent checks: retarget
// agreement, delta bound, and median-time-past.
func (s *Store) checkContextual(accessor *chaindb.Accessor, block *wire.MsgBlock, parent *chaindb.ChainEntry) error {
	height := parent.Height + 1

	ancestorTimestamps, err := s.ancestorTimestamps(accessor, parent, s.params.MedianTimeBlocks)
	if err != nil {
		return err
	}
	if err := consensus.CheckTimestampAfterMTP(block.Header.Timestamp, ancestorTimestamps); err != nil {
		return err
	}

	anchorTimestamp := parent.Header.Timestamp
	if height%s.params.RetargetInterval == 0 {
		anchor, err := s.ancestorAtHeight(accessor, parent, height-s.params.RetargetInterval)
		if err != nil {
			return err
		}
		anchorTimestamp = anchor.Header.Timestamp
	}

	expected := consensus.ExpectedDifficulty(s.params, height, parent.Header.Difficulty, parent.Header.Timestamp, anchorTimestamp)
	if block.Header.Difficulty != expected {
		return consensus.NewRuleError(consensus.ErrDifficultyOutOfRange, "announced difficulty does not match expected retarget")
	}
	if err := consensus.CheckDifficultyDelta(parent.Header.Difficulty, block.Header.Difficulty); err != nil {
		return err
	}

	if cp, ok := s.params.CheckpointAtHeight(height); ok {
		hash := block.BlockHash()
		if cp.Hash != hash {
			return consensus.NewRuleError(consensus.ErrCheckpointViolation, "block conflicts with installed checkpoint")
		}
	}

	return nil
}

// NextBlockContext returns the height, expected difficulty, and
// median-time-past a block extending the current tip must satisfy,
// for the mining driver's template assembly.
func (s *Store) NextBlockContext() (height int64, expectedDifficulty uint32, medianTimePast time.Time, err error) {
	s.mu.RLock()
	tip := s.tip
	s.mu.RUnlock()

	accessor := chaindb.NewAccessor(s.db)
	height = tip.Height + 1

	timestamps, err := s.ancestorTimestamps(accessor, tip, s.params.MedianTimeBlocks)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	medianTimePast = consensus.CalcMedianTimePast(timestamps)

	anchorTimestamp := tip.Header.Timestamp
	if height%s.params.RetargetInterval == 0 {
		anchor, err := s.ancestorAtHeight(accessor, tip, height-s.params.RetargetInterval)
		if err != nil {
			return 0, 0, time.Time{}, err
		}
		anchorTimestamp = anchor.Header.Timestamp
	}

	expectedDifficulty = consensus.ExpectedDifficulty(s.params, height, tip.Header.Difficulty, tip.Header.Timestamp, anchorTimestamp)
	return height, expectedDifficulty, medianTimePast, nil
}

// ancestorAtHeight walks PrevHash links from start back to the given
// height, following a single specific branch rather than any hash
// recorded at that height (there may be several during a fork).
func (s *Store) ancestorAtHeight(accessor *chaindb.Accessor, start *chaindb.ChainEntry, height int64) (*chaindb.ChainEntry, error) {
	if height < 0 {
		height = 0
	}
	entry := start
	for entry.Height > height {
		parent, err := accessor.GetChainEntry(entry.PrevHash)
		if err != nil {
			return nil, err
		}
		entry = parent
	}
	return entry, nil
}

// ancestorTimestamps collects up to n timestamps of the blocks
// immediately preceding start (inclusive), oldest constrained to
// genesis, for the median-time-past rule.
func (s *Store) ancestorTimestamps(accessor *chaindb.Accessor, start *chaindb.ChainEntry, n int) ([]time.Time, error) {
	timestamps := make([]time.Time, 0, n)
	entry := start
	for i := 0; i < n; i++ {
		timestamps = append(timestamps, entry.Header.Timestamp)
		if entry.Height == 0 {
			break
		}
		parent, err := accessor.GetChainEntry(entry.PrevHash)
		if err != nil {
			return nil, err
		}
		entry = parent
	}
	return timestamps, nil
}
