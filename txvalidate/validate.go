// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txvalidate

import (
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

// minRelayFeeBase is the flat component of the minimum relay fee:
// base 0.0001 ASRM.
const minRelayFeeBase = uint64(1e14)

// minRelayFeePerByte is the per-byte component of the minimum relay
// fee: 200 Gwei/byte, where 1 Gwei = 1e9 base units.
const minRelayFeePerByte = uint64(200) * uint64(1e9)

// MinRelayFee returns the minimum relay fee, in base units, a
// transaction of the given serialized size must pay.
func MinRelayFee(sizeBytes int) uint64 {
	return minRelayFeeBase + minRelayFeePerByte*uint64(sizeBytes)
}

// UTXOSource resolves an outpoint to its current unspent entry. It is
// satisfied both by *utxo.Store (the committed chain tip) and by any
// caller-supplied overlay that also consults in-flight mempool
// outputs, so inputs resolve against the current tip UTXO set or a
// previously admitted pending transaction's outputs.
type UTXOSource interface {
	Get(op wire.OutPoint) (*utxo.Entry, error)
}

// Params bundles the chain parameters CheckTransaction needs: coinbase
// maturity and the current SigCache.
type Params struct {
	CoinbaseMaturity int64
	SigCache         *SigCache
}

// CheckTransaction validates a single non-coinbase transaction against
// a UTXO snapshot at the given spend height. It returns the
// transaction's fee in base units on success.
func CheckTransaction(tx *wire.MsgTx, source UTXOSource, spendHeight int64, params Params) (uint64, error) {
	if len(tx.TxIn) == 0 {
		return 0, consensus.NewRuleError(consensus.ErrInvalidCoinbase, "non-coinbase transaction has no inputs")
	}
	if len(tx.TxIn) > wire.MaxTxInPerTx || len(tx.TxOut) > wire.MaxTxOutPerTx {
		return 0, consensus.NewRuleError(consensus.ErrOversizedField, "transaction exceeds input/output count limit")
	}
	if tx.SerializeSize() > wire.MaxTxSize {
		return 0, consensus.NewRuleError(consensus.ErrOversizedField, "transaction exceeds maximum serialized size")
	}
	if len(tx.TxOut) == 0 {
		return 0, consensus.NewRuleError(consensus.ErrInvalidCoinbase, "transaction has no outputs")
	}
	for _, out := range tx.TxOut {
		if out.Value < 1 {
			return 0, consensus.NewRuleError(consensus.ErrInvalidCoinbase, "output value below minimum")
		}
	}

	seen := make(map[wire.OutPoint]struct{}, len(tx.TxIn))
	for _, in := range tx.TxIn {
		if _, dup := seen[in.PreviousOutPoint]; dup {
			return 0, consensus.NewRuleError(consensus.ErrDuplicateInput, "duplicate input within transaction")
		}
		seen[in.PreviousOutPoint] = struct{}{}
	}

	sigHash, err := CalcSignatureHash(tx)
	if err != nil {
		return 0, consensus.NewRuleError(consensus.ErrSignatureFailure, "failed to compute signature hash")
	}

	var totalIn uint64
	for _, in := range tx.TxIn {
		entry, err := source.Get(in.PreviousOutPoint)
		if err != nil {
			return 0, consensus.NewRuleError(consensus.ErrUtxoNotFound, "input references unknown or spent output")
		}
		if !entry.IsMature(spendHeight, params.CoinbaseMaturity) {
			return 0, consensus.NewRuleError(consensus.ErrUtxoNotFound, "input spends immature coinbase output")
		}

		pubKey, sig, err := ExtractPubKeyAndSignature(in.SignatureScript, entry.Recipient)
		if err != nil {
			return 0, consensus.NewRuleError(consensus.ErrUtxoOwnershipFailure, "signature script does not match output recipient")
		}

		if params.SigCache == nil || !params.SigCache.Exists(sigHash, sig, pubKey) {
			if !sig.Verify(sigHash[:], pubKey) {
				return 0, consensus.NewRuleError(consensus.ErrSignatureFailure, "signature does not verify against sighash")
			}
			if params.SigCache != nil {
				params.SigCache.Add(sigHash, sig, pubKey, tx.TxHash())
			}
		}

		totalIn += entry.Amount
	}

	var totalOut uint64
	for _, out := range tx.TxOut {
		totalOut += out.Value
	}

	if totalOut > totalIn {
		return 0, consensus.NewRuleError(consensus.ErrInsufficientFee, "outputs exceed inputs")
	}
	fee := totalIn - totalOut

	if fee < MinRelayFee(tx.SerializeSize()) {
		return 0, consensus.NewRuleError(consensus.ErrInsufficientFee, "fee below minimum relay fee")
	}

	return fee, nil
}

// CheckCoinbase validates a block's coinbase transaction: exactly one
// null-prevout input, at least one output, and output sum not
// exceeding the block subsidy plus collected fees.
func CheckCoinbase(tx *wire.MsgTx, subsidy, totalFees uint64) error {
	if len(tx.TxIn) != 1 || !tx.TxIn[0].PreviousOutPoint.IsNull() {
		return consensus.NewRuleError(consensus.ErrInvalidCoinbase, "coinbase must have exactly one null-prevout input")
	}
	if len(tx.TxOut) == 0 {
		return consensus.NewRuleError(consensus.ErrInvalidCoinbase, "coinbase must have at least one output")
	}

	var totalOut uint64
	for _, out := range tx.TxOut {
		if out.Value < 1 {
			return consensus.NewRuleError(consensus.ErrInvalidCoinbase, "coinbase output value below minimum")
		}
		totalOut += out.Value
	}

	if totalOut > subsidy+totalFees {
		return consensus.NewRuleError(consensus.ErrInvalidCoinbase, "coinbase output sum exceeds subsidy plus fees")
	}

	return nil
}
