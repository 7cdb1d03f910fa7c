// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txvalidate

import (
	"bytes"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// CalcSignatureHash computes the canonical sighash a spending input's
// signature must cover: the transaction's canonical encoding with
// every input's signature script blanked out, double-SHA-256'd. Every
// field except the signature scripts themselves is bound, the usual
// "sign everything but the unlocking script" shape.
func CalcSignatureHash(tx *wire.MsgTx) (astramutil.Hash256, error) {
	stripped := wire.NewMsgTx(tx.Version)
	stripped.LockTime = tx.LockTime
	for _, in := range tx.TxIn {
		blanked := wire.NewTxIn(&in.PreviousOutPoint, nil)
		blanked.Sequence = in.Sequence
		stripped.AddTxIn(blanked)
	}
	for _, out := range tx.TxOut {
		stripped.AddTxOut(wire.NewTxOut(out.Value, out.Recipient))
	}

	var buf bytes.Buffer
	if err := stripped.Serialize(&buf); err != nil {
		return astramutil.Hash256{}, err
	}
	return astramutil.DoubleSha256(buf.Bytes()), nil
}
