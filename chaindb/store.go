// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"bytes"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

// Accessor is the typed view over the chain's logical tables, usable
// against either a database.DB handle or an open database.Transaction
// since both satisfy database.DataAccessor.
type Accessor struct {
	da database.DataAccessor
}

// NewAccessor wraps a DataAccessor (a DB handle or an open
// Transaction) with the chain's table layout.
func NewAccessor(da database.DataAccessor) *Accessor {
	return &Accessor{da: da}
}

// PutChainEntry stores a block-index record.
func (a *Accessor) PutChainEntry(e *ChainEntry) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	if err := a.da.Put(blockIndexKey(e.Hash), data); err != nil {
		return err
	}
	return a.da.Put(heightHashesKey(e.Height, e.Hash), []byte{1})
}

// GetChainEntry loads a block-index record by hash.
func (a *Accessor) GetChainEntry(hash astramutil.Hash256) (*ChainEntry, error) {
	data, err := a.da.Get(blockIndexKey(hash))
	if err != nil {
		return nil, err
	}
	return DecodeChainEntry(hash, data)
}

// HasChainEntry reports whether a block-index record exists for hash.
func (a *Accessor) HasChainEntry(hash astramutil.Hash256) (bool, error) {
	return a.da.Has(blockIndexKey(hash))
}

// HashesAtHeight returns every known block hash at the given height
// (there may be more than one during a fork).
func (a *Accessor) HashesAtHeight(height int64) ([]astramutil.Hash256, error) {
	cur, err := a.da.Cursor(heightHashesPrefix(height))
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	prefixLen := len(heightHashesPrefix(height))
	var hashes []astramutil.Hash256
	for cur.Next() {
		key := cur.Key()
		if len(key) < prefixLen+astramutil.HashSize {
			continue
		}
		var h astramutil.Hash256
		copy(h[:], key[prefixLen:prefixLen+astramutil.HashSize])
		hashes = append(hashes, h)
	}
	return hashes, cur.Error()
}

// PutBlockBody stores a block's full codec-encoded body.
func (a *Accessor) PutBlockBody(hash astramutil.Hash256, block *wire.MsgBlock) error {
	var buf bytes.Buffer
	if err := block.FlcEncode(&buf, wire.ProtocolVersion, wire.BaseEncoding); err != nil {
		return err
	}
	return a.da.Put(blockBodyKey(hash), buf.Bytes())
}

// GetBlockBody loads a block's full body by hash.
func (a *Accessor) GetBlockBody(hash astramutil.Hash256) (*wire.MsgBlock, error) {
	data, err := a.da.Get(blockBodyKey(hash))
	if err != nil {
		return nil, err
	}
	block := new(wire.MsgBlock)
	if err := block.FlcDecode(bytes.NewReader(data), wire.ProtocolVersion, wire.BaseEncoding); err != nil {
		return nil, err
	}
	return block, nil
}

// PutChainTip records the active tip's block hash.
func (a *Accessor) PutChainTip(hash astramutil.Hash256) error {
	return a.da.Put(chainTipKey, hash[:])
}

// GetChainTip returns the active tip's block hash, or
// database.ErrKeyNotFound before genesis is connected.
func (a *Accessor) GetChainTip() (astramutil.Hash256, error) {
	data, err := a.da.Get(chainTipKey)
	if err != nil {
		return astramutil.Hash256{}, err
	}
	var h astramutil.Hash256
	copy(h[:], data)
	return h, nil
}

// PutUTXO stores an unspent output.
func (a *Accessor) PutUTXO(op wire.OutPoint, entry *utxo.Entry) error {
	return a.da.Put(utxoKey(op), encodeUTXOEntry(entry))
}

// GetUTXO loads an unspent output, or database.ErrKeyNotFound if spent
// or never existed.
func (a *Accessor) GetUTXO(op wire.OutPoint) (*utxo.Entry, error) {
	data, err := a.da.Get(utxoKey(op))
	if err != nil {
		return nil, err
	}
	return decodeUTXOEntry(data)
}

// HasUTXO reports whether an outpoint is currently unspent.
func (a *Accessor) HasUTXO(op wire.OutPoint) (bool, error) {
	return a.da.Has(utxoKey(op))
}

// DeleteUTXO removes an outpoint from the unspent set (spends it).
func (a *Accessor) DeleteUTXO(op wire.OutPoint) error {
	return a.da.Delete(utxoKey(op))
}

// AllUTXOEntries returns every entry currently in the UTXO table. It
// is used only by chainstore's rebuild-from-genesis fallback, which
// needs to snapshot or replace the whole set at once rather than one
// outpoint at a time.
func (a *Accessor) AllUTXOEntries() (map[wire.OutPoint]*utxo.Entry, error) {
	cur, err := a.da.Cursor(utxoPrefix)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	entries := make(map[wire.OutPoint]*utxo.Entry)
	for cur.Next() {
		op, ok := decodeOutPointKey(cur.Key())
		if !ok {
			continue
		}
		entry, err := decodeUTXOEntry(cur.Value())
		if err != nil {
			return nil, err
		}
		entries[op] = entry
	}
	return entries, cur.Error()
}

// ReplaceUTXOSet atomically discards every existing UTXO entry and
// installs entries in its place. Used only when recovering from a
// missing undo record: the caller has rebuilt the canonical set by
// replaying blocks from genesis into a scratch store, and this method
// adopts that result as the live set.
func (a *Accessor) ReplaceUTXOSet(entries map[wire.OutPoint]*utxo.Entry) error {
	cur, err := a.da.Cursor(utxoPrefix)
	if err != nil {
		return err
	}
	var keys [][]byte
	for cur.Next() {
		keys = append(keys, append([]byte(nil), cur.Key()...))
	}
	if err := cur.Error(); err != nil {
		cur.Close()
		return err
	}
	cur.Close()

	for _, key := range keys {
		if err := a.da.Delete(key); err != nil {
			return err
		}
	}
	for op, entry := range entries {
		if err := a.PutUTXO(op, entry); err != nil {
			return err
		}
	}
	return nil
}

// PutUndoLog stores the undo record for a connected block.
func (a *Accessor) PutUndoLog(hash astramutil.Hash256, data []byte) error {
	return a.da.Put(undoLogKey(hash), data)
}

// GetUndoLog loads the undo record for a block, or
// database.ErrKeyNotFound if it was never recorded (triggering the
// rebuild-from-genesis fallback).
func (a *Accessor) GetUndoLog(hash astramutil.Hash256) ([]byte, error) {
	return a.da.Get(undoLogKey(hash))
}

// DeleteUndoLog removes a block's undo record; chainstore calls it
// once the block has been reverted.
func (a *Accessor) DeleteUndoLog(hash astramutil.Hash256) error {
	return a.da.Delete(undoLogKey(hash))
}

// PutReorgCheckpoint persists a crash-recovery marker before
// disconnecting any blocks, so a node killed mid-reorg can detect and
// rebuild UTXO state on restart.
func (a *Accessor) PutReorgCheckpoint(data []byte) error {
	return a.da.Put(reorgCheckpointKey, data)
}

// GetReorgCheckpoint loads the crash-recovery marker, or
// database.ErrKeyNotFound if no reorg was in flight at last shutdown.
func (a *Accessor) GetReorgCheckpoint() ([]byte, error) {
	return a.da.Get(reorgCheckpointKey)
}

// DeleteReorgCheckpoint clears the crash-recovery marker after a
// reorg completes successfully.
func (a *Accessor) DeleteReorgCheckpoint() error {
	return a.da.Delete(reorgCheckpointKey)
}
