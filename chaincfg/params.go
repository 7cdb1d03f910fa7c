// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters Astram nodes use to tell
// mainnet, testnet and the local regression-test network apart: genesis
// block, handshake identity (network_id/chain_id), default P2P port,
// checkpoints, and the slow-start/retarget constants.
package chaincfg

import (
	"fmt"
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// Checkpoint pins a block hash at a specific height. Checkpoints are a
// policy guard, not a consensus rule: a reorg that would disconnect a
// height at or below the latest installed checkpoint is refused, and any
// chain offering a different block at a checkpointed height is rejected
// outright.
type Checkpoint struct {
	Height int64
	Hash   astramutil.Hash256
}

// Params defines the network parameters for an Astram network.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net is the magic value placed in every wire frame for this network.
	Net wire.AstramNet

	// NetworkID is the string exchanged in the Handshake message; peers
	// with a different NetworkID are rejected at handshake.
	NetworkID string

	// ChainID further disambiguates handshake identity from NetworkID
	// (e.g. distinct testnets sharing a network_id family).
	ChainID uint32

	// DefaultPort is the default P2P listen port for the network.
	DefaultPort string

	// GenesisBlock is the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the cached hash of GenesisBlock.
	GenesisHash astramutil.Hash256

	// GenesisTimestamp is the minimum timestamp (inclusive) any block on
	// this chain may carry.
	GenesisTimestamp time.Time

	// RetargetInterval is the number of blocks between difficulty
	// retargets.
	RetargetInterval int64

	// TargetTimePerBlock is the desired spacing between blocks.
	TargetTimePerBlock time.Duration

	// MinDifficulty and MaxDifficulty bound every retarget result,
	// including the slow-start schedule. MaxHeaderDifficulty bounds bare
	// header well-formedness, a looser ceiling than the retarget clamp.
	MinDifficulty     uint32
	MaxDifficulty     uint32
	MaxHeaderDifficulty uint32

	// SlowStartHeight is the height at or below which the slow-start
	// schedule min(3, 1+h/20) overrides the retarget formula.
	SlowStartHeight int64

	// MedianTimeBlocks is the number of preceding blocks examined for the
	// median-time-past rule.
	MedianTimeBlocks int

	// MaxReorgDepth bounds how far a reorganization may reach back before
	// being refused.
	MaxReorgDepth int64

	// CriticalReorgDepth is the depth past which a reorg still proceeds
	// but raises a critical alert.
	CriticalReorgDepth int64

	// CoinbaseMaturity is the number of confirmations a coinbase output
	// needs before it is spendable.
	CoinbaseMaturity int64

	// Checkpoints are ordered from oldest to newest.
	Checkpoints []Checkpoint

	// BaseSubsidy is the coinbase reward, in base units, for a block at
	// height 0 before any halving is applied.
	BaseSubsidy uint64

	// SubsidyHalvingInterval is the number of blocks between each
	// halving of the subsidy. Zero disables halving.
	SubsidyHalvingInterval int64

	// MinSubsidy is the floor the subsidy never drops below once
	// halving would otherwise take it lower, keeping a small constant
	// inflation tail rather than letting the reward reach zero.
	MinSubsidy uint64
}

// CheckpointAtHeight returns the checkpoint installed at the given height,
// if any.
func (p *Params) CheckpointAtHeight(height int64) (Checkpoint, bool) {
	for _, cp := range p.Checkpoints {
		if cp.Height == height {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// LatestCheckpointHeight returns the height of the newest installed
// checkpoint, or -1 if none are installed.
func (p *Params) LatestCheckpointHeight() int64 {
	if len(p.Checkpoints) == 0 {
		return -1
	}
	return p.Checkpoints[len(p.Checkpoints)-1].Height
}

// astramGenesisTimestamp is shared by every network: 1,738,800,000
// (2025-02-06 00:00:00 UTC).
var astramGenesisTimestamp = time.Unix(1738800000, 0)

// MainNetParams defines the network parameters for Astram mainnet.
var MainNetParams = Params{
	Name:                "mainnet",
	Net:                 wire.MainNet,
	NetworkID:           "Astram-mainnet",
	ChainID:             1,
	DefaultPort:         "8335",
	GenesisBlock:        &mainGenesisBlock,
	GenesisHash:         mainGenesisHash,
	GenesisTimestamp:    astramGenesisTimestamp,
	RetargetInterval:    30,
	TargetTimePerBlock:  120 * time.Second,
	MinDifficulty:       1,
	MaxDifficulty:       10,
	MaxHeaderDifficulty: 32,
	SlowStartHeight:     100,
	MedianTimeBlocks:    11,
	MaxReorgDepth:       100,
	CriticalReorgDepth:  50,
	CoinbaseMaturity:    100,
	Checkpoints:         nil,

	BaseSubsidy:            5 * astramutil.BaseUnitsPerASRM,
	SubsidyHalvingInterval: 262800,
	MinSubsidy:             astramutil.BaseUnitsPerASRM / 10,
}

// TestNetParams defines the network parameters for Astram testnet.
var TestNetParams = Params{
	Name:                "testnet",
	Net:                 wire.TestNet,
	NetworkID:           "Astram-testnet",
	ChainID:             8888,
	DefaultPort:         "18335",
	GenesisBlock:        &testNetGenesisBlock,
	GenesisHash:         testNetGenesisHash,
	GenesisTimestamp:    astramGenesisTimestamp,
	RetargetInterval:    30,
	TargetTimePerBlock:  120 * time.Second,
	MinDifficulty:       1,
	MaxDifficulty:       10,
	MaxHeaderDifficulty: 32,
	SlowStartHeight:     100,
	MedianTimeBlocks:    11,
	MaxReorgDepth:       100,
	CriticalReorgDepth:  50,
	CoinbaseMaturity:    100,
	Checkpoints:         nil,

	BaseSubsidy:            5 * astramutil.BaseUnitsPerASRM,
	SubsidyHalvingInterval: 262800,
	MinSubsidy:             astramutil.BaseUnitsPerASRM / 10,
}

// RegressionNetParams defines the network parameters for the local
// regression test network, used by integration tests and `astramd
// --network regtest`.
var RegressionNetParams = Params{
	Name:                "regtest",
	Net:                 wire.RegTest,
	NetworkID:           "Astram-regtest",
	ChainID:             1337,
	DefaultPort:         "18555",
	GenesisBlock:        &regTestGenesisBlock,
	GenesisHash:         regTestGenesisHash,
	GenesisTimestamp:    astramGenesisTimestamp,
	RetargetInterval:    30,
	TargetTimePerBlock:  120 * time.Second,
	MinDifficulty:       1,
	MaxDifficulty:       10,
	MaxHeaderDifficulty: 32,
	SlowStartHeight:     100,
	MedianTimeBlocks:    11,
	MaxReorgDepth:       100,
	CriticalReorgDepth:  50,
	CoinbaseMaturity:    100,
	Checkpoints:         nil,

	BaseSubsidy:            5 * astramutil.BaseUnitsPerASRM,
	SubsidyHalvingInterval: 262800,
	MinSubsidy:             astramutil.BaseUnitsPerASRM / 10,
}

// ErrUnknownNetwork is returned by ParamsForNetwork for an unrecognized
// network name.
var ErrUnknownNetwork = fmt.Errorf("unknown network")

// ParamsForNetwork resolves the well-known network name (as accepted by
// the ASTRAM_NETWORK configuration value) to its Params.
func ParamsForNetwork(network string) (*Params, error) {
	switch network {
	case "mainnet":
		return &MainNetParams, nil
	case "testnet":
		return &TestNetParams, nil
	case "regtest":
		return &RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
}
