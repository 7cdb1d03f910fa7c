// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"testing"

	"github.com/astram-project/astramd/wire"
	"github.com/stretchr/testify/require"
)

func TestTxHashIsCached(t *testing.T) {
	msgTx := wire.NewMsgTx(1)
	msgTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x01}))
	msgTx.AddTxOut(wire.NewTxOut(5, Address{0x01}))

	tx := NewTx(msgTx)
	h1 := tx.Hash()
	h2 := tx.Hash()
	require.Equal(t, h1, h2)
	require.Equal(t, msgTx.TxHash(), h1)
}

func TestTxIsCoinBase(t *testing.T) {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x01}))
	require.True(t, NewTx(coinbase).IsCoinBase())

	spend := wire.NewMsgTx(1)
	spend.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: Hash256{0x01}, Index: 0}, nil))
	require.False(t, NewTx(spend).IsCoinBase())
}

func TestTxIndex(t *testing.T) {
	tx := NewTx(wire.NewMsgTx(1))
	require.Equal(t, TxIndexUnknown, tx.Index())
	tx.SetIndex(3)
	require.Equal(t, 3, tx.Index())
}
