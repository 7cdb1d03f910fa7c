// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// genesisCoinbaseMessage is embedded in the genesis coinbase's signature
// script, following the bitcoin-lineage convention of anchoring the first
// block to a verifiable, un-backdatable fact.
const genesisCoinbaseMessage = "Astram genesis 2025-02-06 leading-zero-nibble PoW launch"

func generateGenesisCoinbaseTx() *wire.MsgTx {
	msgBytes := []byte(genesisCoinbaseMessage)

	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{
				PreviousOutPoint: wire.OutPoint{
					Hash:  astramutil.Hash256{},
					Index: 0xffffffff,
				},
				SignatureScript: msgBytes,
				Sequence:        wire.MaxTxInSequenceNum,
			},
		},
		TxOut: []*wire.TxOut{
			{
				Value:     0,
				Recipient: astramutil.BlockReward,
			},
		},
		LockTime: 0,
	}
}

// mainGenesisBlock defines the genesis block of Astram mainnet.
var mainGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  astramutil.Hash256{},
		MerkleRoot: astramutil.CalcMerkleRoot([]astramutil.Hash256{generateGenesisCoinbaseTx().TxHash()}),
		Timestamp:  time.Unix(1738800000, 0),
		Difficulty: 1,
		Nonce:      0,
	},
	Transactions: []*wire.MsgTx{generateGenesisCoinbaseTx()},
}

var mainGenesisHash = mainGenesisBlock.BlockHash()

// testNetGenesisBlock defines the genesis block of Astram testnet. It
// shares mainnet's coinbase and timestamp but carries a distinct prev-hash
// sentinel so the two networks' genesis hashes never collide.
var testNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  astramutil.Hash256{0x01},
		MerkleRoot: astramutil.CalcMerkleRoot([]astramutil.Hash256{generateGenesisCoinbaseTx().TxHash()}),
		Timestamp:  time.Unix(1738800000, 0),
		Difficulty: 1,
		Nonce:      0,
	},
	Transactions: []*wire.MsgTx{generateGenesisCoinbaseTx()},
}

var testNetGenesisHash = testNetGenesisBlock.BlockHash()

// regTestGenesisBlock defines the genesis block of the local regression
// test network.
var regTestGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  astramutil.Hash256{0x02},
		MerkleRoot: astramutil.CalcMerkleRoot([]astramutil.Hash256{generateGenesisCoinbaseTx().TxHash()}),
		Timestamp:  time.Unix(1738800000, 0),
		Difficulty: 1,
		Nonce:      0,
	},
	Transactions: []*wire.MsgTx{generateGenesisCoinbaseTx()},
}

var regTestGenesisHash = regTestGenesisBlock.BlockHash()
