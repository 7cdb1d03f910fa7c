// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/wire"
)

// Store is the UTXO set's storage surface: a thin, chaindb-table-keyed
// view over whatever DataAccessor a caller hands it (a live DB handle
// for reads, an open transaction while connecting/disconnecting a
// block), offering get/insert/remove/apply_block/revert operations.
type Store struct {
	accessor *chaindb.Accessor
}

// NewStore wraps a DataAccessor (a database.DB handle or an open
// database.Transaction) as a UTXO store.
func NewStore(da database.DataAccessor) *Store {
	return &Store{accessor: chaindb.NewAccessor(da)}
}

// Get returns the unspent entry for an outpoint, or
// database.ErrKeyNotFound if it is spent or never existed.
func (s *Store) Get(op wire.OutPoint) (*Entry, error) {
	return s.accessor.GetUTXO(op)
}

// Exists reports whether an outpoint is currently unspent.
func (s *Store) Exists(op wire.OutPoint) (bool, error) {
	return s.accessor.HasUTXO(op)
}

// Insert adds a new unspent entry for an outpoint.
func (s *Store) Insert(op wire.OutPoint, entry *Entry) error {
	return s.accessor.PutUTXO(op, entry)
}

// Remove deletes the unspent entry for an outpoint (marks it spent).
func (s *Store) Remove(op wire.OutPoint) error {
	return s.accessor.DeleteUTXO(op)
}

// Undo records exactly what ApplyBlock changed, in the order needed to
// reverse it: the entries removed by spent inputs (restored on revert,
// in reverse order) and the outpoints created by the block's outputs (deleted
// on revert, in reverse order).
type Undo struct {
	BlockHash     astramutil.Hash256
	Height        int64
	SpentEntries  []SpentEntry
	CreatedOutPts []wire.OutPoint
}

// SpentEntry is a UTXO consumed by a block, kept so it can be restored
// verbatim on revert.
type SpentEntry struct {
	OutPoint wire.OutPoint
	Entry    Entry
}

// ApplyBlock spends every non-coinbase input and creates every output
// of the block's transactions against da (normally an open
// transaction so the whole step commits or discards atomically),
// returning the Undo record needed to reverse it during a reorg.
//
// txs must already be validated against this exact UTXO snapshot;
// ApplyBlock performs no consensus checks of its own beyond asserting
// referenced inputs exist.
func ApplyBlock(da database.DataAccessor, blockHash astramutil.Hash256, height int64, txs []*wire.MsgTx) (*Undo, error) {
	store := NewStore(da)
	undo := &Undo{BlockHash: blockHash, Height: height}

	for txIdx, tx := range txs {
		isCoinbase := txIdx == 0

		if !isCoinbase {
			for _, in := range tx.TxIn {
				entry, err := store.Get(in.PreviousOutPoint)
				if err != nil {
					return nil, err
				}
				undo.SpentEntries = append(undo.SpentEntries, SpentEntry{
					OutPoint: in.PreviousOutPoint,
					Entry:    *entry,
				})
				if err := store.Remove(in.PreviousOutPoint); err != nil {
					return nil, err
				}
			}
		}

		txHash := tx.TxHash()
		for outIdx, out := range tx.TxOut {
			op := wire.OutPoint{Hash: txHash, Index: uint32(outIdx)}
			if err := store.Insert(op, NewEntry(out, height, isCoinbase)); err != nil {
				return nil, err
			}
			undo.CreatedOutPts = append(undo.CreatedOutPts, op)
		}
	}

	return undo, nil
}

// Revert reverses an Undo record against da, restoring the UTXO set to
// the state it held before the corresponding block was applied.
// Outputs created by the block are deleted first, in reverse order,
// then spent inputs are restored — the exact inverse of ApplyBlock's
// order.
func Revert(da database.DataAccessor, undo *Undo) error {
	store := NewStore(da)

	for i := len(undo.CreatedOutPts) - 1; i >= 0; i-- {
		if err := store.Remove(undo.CreatedOutPts[i]); err != nil {
			return err
		}
	}

	for i := len(undo.SpentEntries) - 1; i >= 0; i-- {
		spent := undo.SpentEntries[i]
		entry := spent.Entry
		if err := store.Insert(spent.OutPoint, &entry); err != nil {
			return err
		}
	}

	return nil
}
