// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaindb maps the chain's logical tables onto database.DB's
// flat key space using fixed-width byte prefixes: a single ordered
// store carved up by bucket prefix rather than one database handle
// per table.
package chaindb

import (
	"encoding/binary"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// Table prefixes, one byte each, keeping every key's sort order local
// to its table under a plain ordered KV store.
const (
	prefixBlockIndex   byte = 0x01 // block_hash -> ChainEntry
	prefixBlockBody    byte = 0x02 // block_hash -> wire.MsgBlock
	prefixHeaderIndex  byte = 0x03 // height -> block_hash (big-endian height)
	prefixUTXO         byte = 0x04 // OutPoint -> utxo.Entry
	prefixChainTip     byte = 0x05 // singleton -> block_hash
	prefixUndoLog      byte = 0x06 // block_hash -> Undo
	prefixReorgCkpt    byte = 0x07 // singleton -> ReorgCheckpoint
	prefixHeightHashes byte = 0x08 // height|block_hash -> presence marker (multi-candidate height index)
)

func blockIndexKey(hash astramutil.Hash256) []byte {
	return append([]byte{prefixBlockIndex}, hash[:]...)
}

func blockBodyKey(hash astramutil.Hash256) []byte {
	return append([]byte{prefixBlockBody}, hash[:]...)
}

func headerIndexKey(height int64) []byte {
	key := make([]byte, 9)
	key[0] = prefixHeaderIndex
	binary.BigEndian.PutUint64(key[1:], uint64(height))
	return key
}

func heightHashesPrefix(height int64) []byte {
	key := make([]byte, 9)
	key[0] = prefixHeightHashes
	binary.BigEndian.PutUint64(key[1:], uint64(height))
	return key
}

func heightHashesKey(height int64, hash astramutil.Hash256) []byte {
	return append(heightHashesPrefix(height), hash[:]...)
}

func utxoKey(op wire.OutPoint) []byte {
	key := make([]byte, 1+astramutil.HashSize+4)
	key[0] = prefixUTXO
	copy(key[1:], op.Hash[:])
	binary.BigEndian.PutUint32(key[1+astramutil.HashSize:], op.Index)
	return key
}

func undoLogKey(hash astramutil.Hash256) []byte {
	return append([]byte{prefixUndoLog}, hash[:]...)
}

var utxoPrefix = []byte{prefixUTXO}

// decodeOutPointKey parses an outpoint back out of a key produced by
// utxoKey, for bulk iteration over the whole UTXO table.
func decodeOutPointKey(key []byte) (wire.OutPoint, bool) {
	want := 1 + astramutil.HashSize + 4
	if len(key) != want || key[0] != prefixUTXO {
		return wire.OutPoint{}, false
	}
	var op wire.OutPoint
	copy(op.Hash[:], key[1:1+astramutil.HashSize])
	op.Index = binary.BigEndian.Uint32(key[1+astramutil.HashSize:])
	return op, true
}

var chainTipKey = []byte{prefixChainTip}
var reorgCheckpointKey = []byte{prefixReorgCkpt}
