// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"testing"

	"github.com/astram-project/astramd/wire"
	"github.com/stretchr/testify/require"
)

func newTestMsgBlock() *wire.MsgBlock {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x01}))
	coinbase.AddTxOut(wire.NewTxOut(100, BlockReward))

	block := wire.NewMsgBlock(&wire.BlockHeader{Version: 1, Difficulty: 1})
	block.AddTransaction(coinbase)
	block.Header.MerkleRoot = block.MerkleRoot()
	return block
}

func TestBlockHashIsCached(t *testing.T) {
	b := NewBlock(newTestMsgBlock())
	h1 := b.Hash()
	h2 := b.Hash()
	require.Equal(t, h1, h2)
	require.Equal(t, b.MsgBlock().BlockHash(), h1)
}

func TestBlockTransactionsWrapAndIndex(t *testing.T) {
	msgBlock := newTestMsgBlock()
	msgBlock.AddTransaction(wire.NewMsgTx(1))

	b := NewBlock(msgBlock)
	txs := b.Transactions()
	require.Len(t, txs, 2)
	require.Equal(t, 0, txs[0].Index())
	require.Equal(t, 1, txs[1].Index())
	require.True(t, txs[0].IsCoinBase())
}

func TestBlockHeight(t *testing.T) {
	b := NewBlock(newTestMsgBlock())
	require.Equal(t, int64(BlockHeightUnknown), b.Height())
	b.SetHeight(42)
	require.Equal(t, int64(42), b.Height())
}
