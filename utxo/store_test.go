// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"testing"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/wire"
	"github.com/stretchr/testify/require"
)

func coinbaseTx(recipient astramutil.Address, value uint64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x01}))
	tx.AddTxOut(wire.NewTxOut(value, recipient))
	return tx
}

func spendTx(prevOut wire.OutPoint, recipient astramutil.Address, value uint64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil))
	tx.AddTxOut(wire.NewTxOut(value, recipient))
	return tx
}

func TestApplyBlockCreatesCoinbaseEntry(t *testing.T) {
	db := database.NewMemDB()
	var blockHash astramutil.Hash256
	blockHash[0] = 0xAA
	cb := coinbaseTx(astramutil.Address{0x01}, 800000000)

	undo, err := ApplyBlock(db, blockHash, 1, []*wire.MsgTx{cb})
	require.NoError(t, err)
	require.Empty(t, undo.SpentEntries)
	require.Len(t, undo.CreatedOutPts, 1)

	store := NewStore(db)
	entry, err := store.Get(undo.CreatedOutPts[0])
	require.NoError(t, err)
	require.True(t, entry.IsCoinbase)
	require.Equal(t, uint64(800000000), entry.Amount)
}

func TestApplyThenRevertRestoresSpentEntry(t *testing.T) {
	db := database.NewMemDB()
	var genesisHash astramutil.Hash256
	genesisHash[0] = 0x01
	cb := coinbaseTx(astramutil.Address{0x02}, 100)
	_, err := ApplyBlock(db, genesisHash, 0, []*wire.MsgTx{cb})
	require.NoError(t, err)

	coinbaseOutPoint := wire.OutPoint{Hash: cb.TxHash(), Index: 0}

	var spendBlockHash astramutil.Hash256
	spendBlockHash[0] = 0x02
	spend := spendTx(coinbaseOutPoint, astramutil.Address{0x03}, 90)
	spendCoinbase := coinbaseTx(astramutil.Address{0x04}, 50)

	undo, err := ApplyBlock(db, spendBlockHash, 101, []*wire.MsgTx{spendCoinbase, spend})
	require.NoError(t, err)

	store := NewStore(db)
	exists, err := store.Exists(coinbaseOutPoint)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, Revert(db, undo))

	exists, err = store.Exists(coinbaseOutPoint)
	require.NoError(t, err)
	require.True(t, exists)

	for _, op := range undo.CreatedOutPts {
		exists, err := store.Exists(op)
		require.NoError(t, err)
		require.False(t, exists)
	}
}

func TestUndoRoundTripsThroughCodec(t *testing.T) {
	db := database.NewMemDB()
	var blockHash astramutil.Hash256
	blockHash[0] = 0x05
	cb := coinbaseTx(astramutil.Address{0x06}, 42)
	undo, err := ApplyBlock(db, blockHash, 5, []*wire.MsgTx{cb})
	require.NoError(t, err)

	encoded := EncodeUndo(undo)
	decoded, err := DecodeUndo(encoded)
	require.NoError(t, err)
	require.Equal(t, undo.BlockHash, decoded.BlockHash)
	require.Equal(t, undo.Height, decoded.Height)
	require.Equal(t, undo.CreatedOutPts, decoded.CreatedOutPts)
}

func TestMaturity(t *testing.T) {
	e := &Entry{IsCoinbase: true, BlockHeight: 10}
	require.False(t, e.IsMature(50, 100))
	require.True(t, e.IsMature(110, 100))

	nonCoinbase := &Entry{IsCoinbase: false, BlockHeight: 10}
	require.True(t, nonCoinbase.IsMature(11, 100))
}
