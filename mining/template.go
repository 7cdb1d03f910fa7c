// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/wire"
)

// Template is a candidate block assembled against the current tip,
// ready for nonce search: parent_hash, height, expected difficulty,
// timestamp, and a coinbase followed by the mempool's highest
// fee-rate transactions.
type Template struct {
	ParentHash astramutil.Hash256
	Height     int64
	Difficulty uint32
	Block      *wire.MsgBlock
}

// BuildTemplate assembles a new candidate block extending chain's
// current tip: coinbase (subsidy(height) + sum of included fees, paid
// to minerAddr) followed by the mempool's highest fee-rate transactions
// up to wire.MaxBlockPayload, timestamp = max(now, MTP+1).
func BuildTemplate(chain *chainstore.Store, pool *mempool.Pool, minerAddr astramutil.Address, now time.Time) (*Template, error) {
	tip := chain.Tip()
	height, expectedDifficulty, mtp, err := chain.NextBlockContext()
	if err != nil {
		return nil, err
	}

	timestamp := now
	floor := mtp.Add(time.Second)
	if timestamp.Before(floor) {
		timestamp = floor
	}

	candidates := pool.HighestFeeRate()
	included := make([]*wire.MsgTx, 0, len(candidates))
	var totalFees uint64
	size := 0
	for _, desc := range candidates {
		if size+desc.Size > wire.MaxBlockPayload {
			continue
		}
		included = append(included, desc.Tx)
		totalFees += desc.Fee
		size += desc.Size
	}

	subsidy := consensus.BlockSubsidy(height, chain.Params())

	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, encodeHeightScript(height)))
	coinbase.AddTxOut(wire.NewTxOut(subsidy+totalFees, minerAddr))

	txs := make([]*wire.MsgTx, 0, len(included)+1)
	txs = append(txs, coinbase)
	txs = append(txs, included...)

	header := wire.NewBlockHeader(1, tip.Hash, astramutil.Hash256{}, expectedDifficulty, 0)
	header.Timestamp = timestamp

	block := wire.NewMsgBlock(header)
	block.Transactions = txs
	block.Header.MerkleRoot = block.MerkleRoot()

	return &Template{
		ParentHash: tip.Hash,
		Height:     height,
		Difficulty: expectedDifficulty,
		Block:      block,
	}, nil
}

// encodeHeightScript records the block height in the coinbase's
// signature script, the way every UTXO coin since BIP34 disambiguates
// otherwise-identical coinbase transactions at different heights.
func encodeHeightScript(height int64) []byte {
	b := make([]byte, 8)
	n := uint64(height)
	for i := 0; i < 8 && n > 0; i++ {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}
