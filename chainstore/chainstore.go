// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstore implements the block index, the height index, and
// cumulative-work fork choice, tracking a saturating U256 cumulative
// work per chain entry and reorganizing via a common-ancestor walk
// followed by undo-replay, with a rebuild fallback for any height
// whose undo record is missing.
package chainstore

import (
	"sync"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

// Store is the chain-writer task's exclusive handle onto the block
// index, UTXO set, and active tip: exactly one chain-writer task
// serializes all mutations to the chain store, UTXO store, and
// mempool-tip-reconciliation. Every exported mutating
// method takes Store's lock for its duration; readers needing a
// consistent snapshot should use Tip()/GetChainEntry(), each a single
// short read.
type Store struct {
	mu     sync.RWMutex
	db     database.DB
	params *chaincfg.Params

	tip        *chaindb.ChainEntry
	orphans    *orphanPool
	arrivalSeq uint64
	sigCache   *txvalidate.SigCache
	mempool    MempoolReconciler
	tipSubs    []chan struct{}
}

// New opens a Store over db for the given network parameters,
// connecting the genesis block if the database is empty.
func New(db database.DB, params *chaincfg.Params, sigCache *txvalidate.SigCache) (*Store, error) {
	s := &Store{
		db:       db,
		params:   params,
		orphans:  newOrphanPool(),
		sigCache: sigCache,
	}

	accessor := chaindb.NewAccessor(db)
	tipHash, err := accessor.GetChainTip()
	if err == database.ErrKeyNotFound {
		if err := s.connectGenesis(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	entry, err := accessor.GetChainEntry(tipHash)
	if err != nil {
		return nil, err
	}
	s.tip = entry

	if ckpt, err := accessor.GetReorgCheckpoint(); err == nil {
		if err := s.recoverFromCheckpoint(ckpt); err != nil {
			return nil, err
		}
	} else if err != database.ErrKeyNotFound {
		return nil, err
	}

	return s, nil
}

func (s *Store) connectGenesis() error {
	genesis := s.params.GenesisBlock
	hash := s.params.GenesisHash

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	accessor := chaindb.NewAccessor(tx)

	undo, err := utxo.ApplyBlock(tx, hash, 0, genesis.Transactions)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := accessor.PutUndoLog(hash, utxo.EncodeUndo(undo)); err != nil {
		tx.Rollback()
		return err
	}
	if err := accessor.PutBlockBody(hash, genesis); err != nil {
		tx.Rollback()
		return err
	}

	entry := &chaindb.ChainEntry{
		Hash:           hash,
		PrevHash:       astramutil.Hash256{},
		Height:         0,
		Header:         genesis.Header,
		CumulativeWork: consensus.CumulativeWork(genesis.Header.Difficulty),
		ArrivalOrder:   0,
		Valid:          true,
	}
	if err := accessor.PutChainEntry(entry); err != nil {
		tx.Rollback()
		return err
	}
	if err := accessor.PutChainTip(hash); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.tip = entry
	s.arrivalSeq = 1
	return nil
}

// Tip returns the active tip's block-index record.
func (s *Store) Tip() *chaindb.ChainEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip
}

// TipHeight returns the active tip's height, satisfying
// mempool.ChainSource without that package needing chaindb's full
// ChainEntry shape.
func (s *Store) TipHeight() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip.Height
}

// GetChainEntry loads a block-index record by hash.
func (s *Store) GetChainEntry(hash astramutil.Hash256) (*chaindb.ChainEntry, error) {
	return chaindb.NewAccessor(s.db).GetChainEntry(hash)
}

// GetBlock loads a full block body by hash.
func (s *Store) GetBlock(hash astramutil.Hash256) (*wire.MsgBlock, error) {
	return chaindb.NewAccessor(s.db).GetBlockBody(hash)
}

// UTXOStore returns a UTXO store reading through the committed
// database (the live tip's snapshot).
func (s *Store) UTXOStore() *utxo.Store {
	return utxo.NewStore(s.db)
}

// Params returns the network parameters this store was opened with.
func (s *Store) Params() *chaincfg.Params {
	return s.params
}

// SubscribeTipChange returns a channel that receives a value every time
// the active tip changes, whether by simple extension or reorganization.
// The mining driver subscribes to this channel to know when to discard
// an in-progress template and rebuild. The channel
// is buffered to depth 1; a consumer that is slow to drain it only
// learns that the tip changed at least once since its last receive, not
// how many times, which is all the driver needs to decide to re-template.
func (s *Store) SubscribeTipChange() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.tipSubs = append(s.tipSubs, ch)
	return ch
}

// notifyTipChanged wakes every subscriber registered via
// SubscribeTipChange. Callers must hold s.mu for writing.
func (s *Store) notifyTipChanged() {
	for _, ch := range s.tipSubs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
