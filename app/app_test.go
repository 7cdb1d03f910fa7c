// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/config"
	"github.com/astram-project/astramd/wire"
)

// buildTestParams returns a lightweight, honestly-mined genesis block
// and retarget schedule for tests that need a *chaincfg.Params without
// pulling in a real network's genesis, the same shape
// chainstore_test.go's own testParams builds for the same reason.
func buildTestParams(t *testing.T) *chaincfg.Params {
	t.Helper()

	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x00}))
	coinbase.AddTxOut(wire.NewTxOut(1, astramutil.Address{0xff}))

	genesisHeader := wire.BlockHeader{
		Version:    1,
		Timestamp:  time.Unix(1738800000, 0),
		Difficulty: 1,
	}
	genesis := wire.NewMsgBlock(&genesisHeader)
	genesis.AddTransaction(coinbase)
	genesis.Header.MerkleRoot = genesis.MerkleRoot()
	for nonce := uint64(0); ; nonce++ {
		genesis.Header.Nonce = nonce
		if astramutil.HashMeetsTarget(genesis.Header.BlockHash(), genesis.Header.Difficulty) {
			break
		}
	}

	return &chaincfg.Params{
		Name:                   "test",
		DefaultPort:            "0",
		GenesisBlock:           genesis,
		GenesisHash:            genesis.BlockHash(),
		GenesisTimestamp:       time.Unix(1738800000, 0),
		RetargetInterval:       30,
		TargetTimePerBlock:     120 * time.Second,
		MinDifficulty:          1,
		MaxDifficulty:          10,
		MaxHeaderDifficulty:    32,
		SlowStartHeight:        100000,
		MedianTimeBlocks:       11,
		MaxReorgDepth:          100,
		CriticalReorgDepth:     50,
		CoinbaseMaturity:       1,
		BaseSubsidy:            5 * astramutil.BaseUnitsPerASRM,
		SubsidyHalvingInterval: 262800,
		MinSubsidy:             astramutil.BaseUnitsPerASRM / 10,
	}
}

func buildTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:       t.TempDir(),
		P2PBindAddr:   "127.0.0.1",
		P2PPort:       "0",
		MiningBackend: "cpu",
	}
}

func TestNewAssemblesNodeAndStartStopIsIdempotent(t *testing.T) {
	cfg := buildTestConfig(t)
	params := buildTestParams(t)

	node, err := New(cfg, params)
	require.NoError(t, err)
	require.NotNil(t, node)
	require.Nil(t, node.driver, "mining_addr unset, no driver should be built")

	node.Start()
	node.Start() // second call must be a no-op, not a panic or double-start

	require.NoError(t, node.Stop())
	require.NoError(t, node.Stop()) // second call must be a no-op
}

func TestNewRejectsInvalidP2PPort(t *testing.T) {
	cfg := buildTestConfig(t)
	cfg.P2PPort = "not-a-port"
	params := buildTestParams(t)

	_, err := New(cfg, params)
	require.Error(t, err)
}

func TestNewRejectsInvalidMiningAddr(t *testing.T) {
	cfg := buildTestConfig(t)
	cfg.MiningAddr = "not-hex!!"
	params := buildTestParams(t)

	_, err := New(cfg, params)
	require.Error(t, err)
}

func TestNewBuildsMiningDriverWhenAddrConfigured(t *testing.T) {
	cfg := buildTestConfig(t)
	cfg.MiningAddr = "ff00000000000000000000000000000000000000"
	params := buildTestParams(t)

	node, err := New(cfg, params)
	require.NoError(t, err)
	require.NotNil(t, node.driver)
}

func TestProxyDialerNilWhenUnconfigured(t *testing.T) {
	cfg := buildTestConfig(t)
	require.Nil(t, proxyDialer(cfg))
}

func TestProxyDialerSetWhenConfigured(t *testing.T) {
	cfg := buildTestConfig(t)
	cfg.Proxy = "127.0.0.1:9050"
	require.NotNil(t, proxyDialer(cfg))
}
