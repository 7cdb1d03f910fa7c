// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"github.com/astram-project/astramd/wire"
)

// TxIndexUnknown is the value returned for a transaction's index when it
// hasn't been set (e.g. before the transaction is confirmed in a block).
const TxIndexUnknown = -1

// Tx wraps a wire.MsgTx, lazily caching its id once computed so
// repeated validation passes (initial admission, mempool re-checks,
// reorg replay) don't re-hash the same bytes.
type Tx struct {
	msgTx   *wire.MsgTx
	txHash  *Hash256
	txIndex int
}

// NewTx returns a new Tx instance from an existing wire.MsgTx.
func NewTx(msgTx *wire.MsgTx) *Tx {
	return &Tx{msgTx: msgTx, txIndex: TxIndexUnknown}
}

// MsgTx returns the underlying wire.MsgTx.
func (t *Tx) MsgTx() *wire.MsgTx {
	return t.msgTx
}

// Hash returns the cached transaction id, computing and caching it on
// first use.
func (t *Tx) Hash() Hash256 {
	if t.txHash != nil {
		return *t.txHash
	}
	hash := t.msgTx.TxHash()
	t.txHash = &hash
	return hash
}

// Index returns the index the transaction has within a block, or
// TxIndexUnknown if it hasn't been set.
func (t *Tx) Index() int {
	return t.txIndex
}

// SetIndex sets the index the transaction has within a block.
func (t *Tx) SetIndex(index int) {
	t.txIndex = index
}

// IsCoinBase reports whether the transaction is a coinbase: exactly
// one input with a null previous outpoint.
func (t *Tx) IsCoinBase() bool {
	return t.msgTx.IsCoinBase()
}

// SizeBytes returns the canonical-codec encoded size of the transaction.
func (t *Tx) SizeBytes() int {
	return t.msgTx.SerializeSize()
}
