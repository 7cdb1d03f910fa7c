// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/wire"
)

// MempoolReconciler is the narrow interface chainstore uses to keep the
// mempool consistent across a reorg, implemented by package mempool
// and wired in by the node-assembly package so that neither package
// imports the other.
type MempoolReconciler interface {
	// ReturnTransactions offers disconnected blocks' non-coinbase
	// transactions back for re-admission.
	ReturnTransactions(txs []*wire.MsgTx)

	// RemoveConfirmed drops transactions that a newly connected block
	// included, and re-evaluates remaining entries for conflicts.
	RemoveConfirmed(txs []*wire.MsgTx)
}

// SetMempoolReconciler wires the mempool's reorg callback. It must be
// called before any block is processed if the caller runs a mempool.
func (s *Store) SetMempoolReconciler(m MempoolReconciler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mempool = m
}

// ProcessBlock validates and indexes a single block: a block with an
// unknown parent is queued as an orphan; one
// that fails validation is discarded without side effects on the
// existing chain; one that validates is indexed with its cumulative
// work and, if that work exceeds the current tip's, triggers a
// reorganization.
func (s *Store) ProcessBlock(block *wire.MsgBlock, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processBlockLocked(block, now)
}

func (s *Store) processBlockLocked(block *wire.MsgBlock, now time.Time) error {
	accessor := chaindb.NewAccessor(s.db)
	hash := block.BlockHash()

	if has, err := accessor.HasChainEntry(hash); err != nil {
		return err
	} else if has {
		return ErrDuplicateBlock
	}

	if err := s.checkContextFree(block, hash, now); err != nil {
		return err
	}

	parent, err := accessor.GetChainEntry(block.Header.PrevBlock)
	if err == database.ErrKeyNotFound {
		s.orphans.Add(block, now)
		return ErrOrphanBlock
	}
	if err != nil {
		return err
	}

	if err := s.checkContextual(accessor, block, parent); err != nil {
		return err
	}

	entry := &chaindb.ChainEntry{
		Hash:           hash,
		PrevHash:       parent.Hash,
		Height:         parent.Height + 1,
		Header:         block.Header,
		CumulativeWork: consensus.AddWork(parent.CumulativeWork, block.Header.Difficulty),
		ArrivalOrder:   s.nextArrivalOrder(),
		Valid:          true,
	}

	if err := accessor.PutBlockBody(hash, block); err != nil {
		return err
	}
	if err := accessor.PutChainEntry(entry); err != nil {
		return err
	}

	if entry.CumulativeWork.Cmp(s.tip.CumulativeWork) > 0 {
		if err := s.reorganizeTo(entry); err != nil {
			log.Warnf("chain reorganization to block %s refused: %v", hash, err)
		}
	}

	s.promoteOrphans(hash, now)
	return nil
}

func (s *Store) nextArrivalOrder() uint64 {
	order := s.arrivalSeq
	s.arrivalSeq++
	return order
}

func (s *Store) promoteOrphans(parentHash astramutil.Hash256, now time.Time) {
	for _, child := range s.orphans.Children(parentHash) {
		if err := s.processBlockLocked(child, now); err != nil && err != ErrOrphanBlock {
			log.Debugf("orphan block %s rejected after promotion: %v", child.BlockHash(), err)
		}
	}
}
