// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"github.com/astram-project/astramd/wire"
)

// BlockHeightUnknown is the value returned for a block's height when it
// hasn't been set (e.g. before the block is connected to a chain).
const BlockHeightUnknown = -1

// Block wraps a wire.MsgBlock, lazily caching its hash and the wrapped
// Tx instances for each of its transactions, mirroring Tx's caching
// contract so validation never recomputes the same hash twice.
type Block struct {
	msgBlock *wire.MsgBlock
	hash     *Hash256
	txs      []*Tx
	height   int64
}

// NewBlock returns a new Block instance from an existing wire.MsgBlock.
func NewBlock(msgBlock *wire.MsgBlock) *Block {
	return &Block{msgBlock: msgBlock, height: BlockHeightUnknown}
}

// MsgBlock returns the underlying wire.MsgBlock.
func (b *Block) MsgBlock() *wire.MsgBlock {
	return b.msgBlock
}

// Hash returns the cached block hash, computing and caching it on
// first use.
func (b *Block) Hash() Hash256 {
	if b.hash != nil {
		return *b.hash
	}
	hash := b.msgBlock.BlockHash()
	b.hash = &hash
	return hash
}

// MerkleRoot recomputes the block's Merkle root from its transactions.
func (b *Block) MerkleRoot() Hash256 {
	return b.msgBlock.MerkleRoot()
}

// Height returns the block's height, or BlockHeightUnknown if it hasn't
// been set.
func (b *Block) Height() int64 {
	return b.height
}

// SetHeight sets the block's height.
func (b *Block) SetHeight(height int64) {
	b.height = height
}

// Transactions returns the block's transactions wrapped as Tx, building
// and caching the slice on first use.
func (b *Block) Transactions() []*Tx {
	if b.txs != nil {
		return b.txs
	}
	b.txs = make([]*Tx, len(b.msgBlock.Transactions))
	for i, tx := range b.msgBlock.Transactions {
		wrapped := NewTx(tx)
		wrapped.SetIndex(i)
		b.txs[i] = wrapped
	}
	return b.txs
}
