// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo implements the unspent-transaction-output set: the
// authoritative record of every spendable coin fragment, keyed by
// (txid, vout).
package utxo

import (
	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// Entry is an unspent transaction output together with the metadata
// needed to enforce coinbase maturity and compute balances.
type Entry struct {
	Amount     uint64
	Recipient  astramutil.Address
	BlockHeight int64
	IsCoinbase bool
}

// NewEntry returns a new unspent output entry for a transaction output
// confirmed at the given height.
func NewEntry(txOut *wire.TxOut, blockHeight int64, isCoinbase bool) *Entry {
	return &Entry{
		Amount:      txOut.Value,
		Recipient:   txOut.Recipient,
		BlockHeight: blockHeight,
		IsCoinbase:  isCoinbase,
	}
}

// IsMature reports whether a coinbase entry has accumulated the
// required confirmations to be spendable at spendHeight. Non-coinbase
// entries are always mature.
func (e *Entry) IsMature(spendHeight int64, coinbaseMaturity int64) bool {
	if !e.IsCoinbase {
		return true
	}
	return spendHeight-e.BlockHeight >= coinbaseMaturity
}

// Equal reports whether two entries describe the same spendable coin.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Amount == other.Amount &&
		e.Recipient == other.Recipient &&
		e.BlockHeight == other.BlockHeight &&
		e.IsCoinbase == other.IsCoinbase
}
