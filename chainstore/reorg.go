// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Reorganization: find the common ancestor of the current tip and a
// newly-validated, heavier candidate; refuse if the disconnect depth
// exceeds policy bounds or would cross an installed checkpoint;
// otherwise disconnect down to the ancestor and reconnect up to the
// candidate, restoring the original tip atomically if any reconnect
// step fails.
package chainstore

import (
	"bytes"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

// reorgCheckpoint is the crash-recovery marker written before any
// block is disconnected, so a node killed mid-reorg can detect on
// restart that it left the chain store in a known-consistent
// intermediate state and resume from there.
type reorgCheckpoint struct {
	OldTip   astramutil.Hash256
	NewTip   astramutil.Hash256
	Ancestor astramutil.Hash256
}

func (c reorgCheckpoint) encode() []byte {
	var buf bytes.Buffer
	buf.Write(c.OldTip[:])
	buf.Write(c.NewTip[:])
	buf.Write(c.Ancestor[:])
	return buf.Bytes()
}

func decodeReorgCheckpoint(data []byte) (reorgCheckpoint, bool) {
	if len(data) != 3*astramutil.HashSize {
		return reorgCheckpoint{}, false
	}
	var c reorgCheckpoint
	copy(c.OldTip[:], data[0:32])
	copy(c.NewTip[:], data[32:64])
	copy(c.Ancestor[:], data[64:96])
	return c, true
}

// commonAncestor returns the most recent block both a and b's chains
// share, walking PrevHash links down to equal height first and then
// together.
func (s *Store) commonAncestor(accessor *chaindb.Accessor, a, b *chaindb.ChainEntry) (*chaindb.ChainEntry, error) {
	var err error
	for a.Height > b.Height {
		a, err = accessor.GetChainEntry(a.PrevHash)
		if err != nil {
			return nil, err
		}
	}
	for b.Height > a.Height {
		b, err = accessor.GetChainEntry(b.PrevHash)
		if err != nil {
			return nil, err
		}
	}
	for a.Hash != b.Hash {
		a, err = accessor.GetChainEntry(a.PrevHash)
		if err != nil {
			return nil, err
		}
		b, err = accessor.GetChainEntry(b.PrevHash)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// pathToAncestor returns the chain entries strictly above ancestor
// leading to tip, in ascending height order (ancestor+1 first).
func (s *Store) pathToAncestor(accessor *chaindb.Accessor, tip, ancestor *chaindb.ChainEntry) ([]*chaindb.ChainEntry, error) {
	var reversed []*chaindb.ChainEntry
	entry := tip
	for entry.Hash != ancestor.Hash {
		reversed = append(reversed, entry)
		parent, err := accessor.GetChainEntry(entry.PrevHash)
		if err != nil {
			return nil, err
		}
		entry = parent
	}
	path := make([]*chaindb.ChainEntry, len(reversed))
	for i, e := range reversed {
		path[len(reversed)-1-i] = e
	}
	return path, nil
}

// reorganizeTo switches the active tip from s.tip to candidate by
// walking back to their common ancestor, disconnecting the old
// branch, and connecting the new one. s.mu is held by the caller.
func (s *Store) reorganizeTo(candidate *chaindb.ChainEntry) error {
	accessor := chaindb.NewAccessor(s.db)
	oldTip := s.tip

	ancestor, err := s.commonAncestor(accessor, oldTip, candidate)
	if err != nil {
		return err
	}

	depth := oldTip.Height - ancestor.Height
	if depth > s.params.MaxReorgDepth {
		return consensus.NewRuleError(consensus.ErrReorgTooDeep, "reorganization exceeds maximum depth")
	}
	if latest := s.params.LatestCheckpointHeight(); latest >= 0 && ancestor.Height < latest {
		return consensus.NewRuleError(consensus.ErrCheckpointViolation, "reorganization would disconnect a checkpointed height")
	}
	if depth > s.params.CriticalReorgDepth {
		log.Criticalf("deep chain reorganization: disconnecting %d blocks down to height %d", depth, ancestor.Height)
	}

	ckpt := reorgCheckpoint{OldTip: oldTip.Hash, NewTip: candidate.Hash, Ancestor: ancestor.Hash}
	if err := accessor.PutReorgCheckpoint(ckpt.encode()); err != nil {
		return err
	}

	disconnectPath, err := s.pathToAncestor(accessor, oldTip, ancestor)
	if err != nil {
		return err
	}
	connectPath, err := s.pathToAncestor(accessor, candidate, ancestor)
	if err != nil {
		return err
	}

	returnedTxs, err := s.disconnectBlocks(accessor, disconnectPath)
	if err != nil {
		return err
	}

	confirmedTxs, err := s.connectBlocks(connectPath)
	if err != nil {
		// Restore the original chain exactly: replay the disconnect
		// path back in ascending order.
		if restoreErr := s.restoreChain(disconnectPath); restoreErr != nil {
			log.Errorf("failed to restore chain after aborted reorganization: %v", restoreErr)
			return restoreErr
		}
		if markErr := s.markInvalid(connectPath[len(connectPath)-1].Hash); markErr != nil {
			log.Errorf("failed to mark offending block invalid: %v", markErr)
		}
		return err
	}

	if err := accessor.PutChainTip(candidate.Hash); err != nil {
		return err
	}
	if err := accessor.DeleteReorgCheckpoint(); err != nil {
		return err
	}
	s.tip = candidate
	s.notifyTipChanged()

	if s.mempool != nil {
		s.mempool.ReturnTransactions(returnedTxs)
		s.mempool.RemoveConfirmed(confirmedTxs)
	}

	return nil
}

// disconnectBlocks reverts path (tip-first order) and returns every
// non-coinbase transaction it freed, for offering back to the mempool.
func (s *Store) disconnectBlocks(accessor *chaindb.Accessor, path []*chaindb.ChainEntry) ([]*wire.MsgTx, error) {
	var freed []*wire.MsgTx

	for i := len(path) - 1; i >= 0; i-- {
		entry := path[i]

		tx, err := s.db.Begin()
		if err != nil {
			return nil, err
		}
		txAccessor := chaindb.NewAccessor(tx)

		undoData, err := txAccessor.GetUndoLog(entry.Hash)
		if err == database.ErrKeyNotFound {
			tx.Rollback()
			if err := s.rebuildUTXOToHeight(entry.Height - 1); err != nil {
				return nil, err
			}
		} else if err != nil {
			tx.Rollback()
			return nil, err
		} else {
			undo, err := utxo.DecodeUndo(undoData)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := utxo.Revert(tx, undo); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := txAccessor.DeleteUndoLog(entry.Hash); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
		}

		block, err := accessor.GetBlockBody(entry.Hash)
		if err != nil {
			return nil, err
		}
		freed = append(freed, block.Transactions[1:]...)
	}

	return freed, nil
}

// connectBlocks applies path (ancestor-first order) and returns every
// coinbase-excluded transaction newly confirmed, so the mempool can
// drop them. It stops and returns an error at the first block that
// fails full validation.
func (s *Store) connectBlocks(path []*chaindb.ChainEntry) ([]*wire.MsgTx, error) {
	accessor := chaindb.NewAccessor(s.db)
	var confirmed []*wire.MsgTx

	for _, entry := range path {
		block, err := accessor.GetBlockBody(entry.Hash)
		if err != nil {
			return nil, err
		}

		tx, err := s.db.Begin()
		if err != nil {
			return nil, err
		}

		if err := s.connectBlockFull(tx, entry, block); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		confirmed = append(confirmed, block.Transactions[1:]...)
	}

	return confirmed, nil
}

// connectBlockFull validates every transaction in block against the
// UTXO snapshot visible through tx, applies the block, and records its
// undo log, all within the same open transaction.
func (s *Store) connectBlockFull(tx database.Transaction, entry *chaindb.ChainEntry, block *wire.MsgBlock) error {
	source := utxo.NewStore(tx)
	params := txvalidate.Params{CoinbaseMaturity: s.params.CoinbaseMaturity, SigCache: s.sigCache}

	var totalFees uint64
	seen := make(map[wire.OutPoint]struct{})
	for _, t := range block.Transactions[1:] {
		for _, in := range t.TxIn {
			if _, dup := seen[in.PreviousOutPoint]; dup {
				return consensus.NewRuleError(consensus.ErrDuplicateInput, "duplicate input across block transactions")
			}
			seen[in.PreviousOutPoint] = struct{}{}
		}
		fee, err := txvalidate.CheckTransaction(t, source, entry.Height, params)
		if err != nil {
			return err
		}
		totalFees += fee
	}

	subsidy := consensus.BlockSubsidy(entry.Height, s.params)
	if err := txvalidate.CheckCoinbase(block.Transactions[0], subsidy, totalFees); err != nil {
		return err
	}

	undo, err := utxo.ApplyBlock(tx, entry.Hash, entry.Height, block.Transactions)
	if err != nil {
		return err
	}
	return chaindb.NewAccessor(tx).PutUndoLog(entry.Hash, utxo.EncodeUndo(undo))
}

// restoreChain re-applies a previously disconnected path (ascending
// order) after an aborted reorganization, bringing the chain back to
// oldTip exactly.
func (s *Store) restoreChain(disconnectPath []*chaindb.ChainEntry) error {
	_, err := s.connectBlocks(disconnectPath)
	return err
}

// markInvalid flags a block as failing full validation so it will not
// be retried as a reorg candidate again.
func (s *Store) markInvalid(hash astramutil.Hash256) error {
	accessor := chaindb.NewAccessor(s.db)
	entry, err := accessor.GetChainEntry(hash)
	if err != nil {
		return err
	}
	entry.Valid = false
	return accessor.PutChainEntry(entry)
}

// rebuildUTXOToHeight recovers from a missing undo record by replaying
// every block from genesis up to and including height into a scratch
// in-memory store, then adopting its UTXO set as the live one.
func (s *Store) rebuildUTXOToHeight(height int64) error {
	accessor := chaindb.NewAccessor(s.db)

	scratch := database.NewMemDB()
	defer scratch.Close()

	entry, err := accessor.GetChainEntry(s.params.GenesisHash)
	if err != nil {
		return err
	}
	path := []*chaindb.ChainEntry{entry}
	for entry.Height < height {
		hashes, err := accessor.HashesAtHeight(entry.Height + 1)
		if err != nil {
			return err
		}
		var next *chaindb.ChainEntry
		for _, h := range hashes {
			candidate, err := accessor.GetChainEntry(h)
			if err != nil {
				return err
			}
			if candidate.PrevHash == entry.Hash && candidate.Valid {
				next = candidate
				break
			}
		}
		if next == nil {
			break
		}
		path = append(path, next)
		entry = next
	}

	for _, e := range path {
		block, err := accessor.GetBlockBody(e.Hash)
		if err != nil {
			return err
		}
		if _, err := utxo.ApplyBlock(scratch, e.Hash, e.Height, block.Transactions); err != nil {
			return err
		}
	}

	rebuilt, err := chaindb.NewAccessor(scratch).AllUTXOEntries()
	if err != nil {
		return err
	}
	return accessor.ReplaceUTXOSet(rebuilt)
}

// recoverFromCheckpoint resumes a reorg that was interrupted by a
// crash: the checkpoint records exactly which disconnect/reconnect
// pass was in flight, so we can simply retry it.
func (s *Store) recoverFromCheckpoint(data []byte) error {
	ckpt, ok := decodeReorgCheckpoint(data)
	if !ok {
		return chaindb.NewAccessor(s.db).DeleteReorgCheckpoint()
	}

	log.Warnf("resuming interrupted chain reorganization from %s to %s", ckpt.OldTip, ckpt.NewTip)

	accessor := chaindb.NewAccessor(s.db)
	newTip, err := accessor.GetChainEntry(ckpt.NewTip)
	if err != nil {
		return err
	}

	s.tip, err = accessor.GetChainEntry(ckpt.OldTip)
	if err != nil {
		return err
	}

	return s.reorganizeTo(newTip)
}
