// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/wire"
)

func testParams(t *testing.T) *chaincfg.Params {
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
	mineHeader(&genesis.Header)

	p := &chaincfg.Params{
		Name:                   "test",
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
	return p
}

// mineHeader finds the first nonce making header.BlockHash() meet its
// own declared difficulty, used so tests exercise CheckProofOfWork
// honestly instead of stubbing it out.
func mineHeader(header *wire.BlockHeader) {
	for nonce := uint64(0); ; nonce++ {
		header.Nonce = nonce
		if astramutil.HashMeetsTarget(header.BlockHash(), header.Difficulty) {
			return
		}
	}
}

// mineChild builds and mines a block extending parent at the given
// timestamp offset, with a single coinbase transaction.
func mineChild(parent *wire.MsgBlock, parentHeight int64, params *chaincfg.Params, secondsAfterParent int64) *wire.MsgBlock {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{byte(parentHeight + 1)}))
	coinbase.AddTxOut(wire.NewTxOut(1, astramutil.Address{0xfe}))

	header := wire.BlockHeader{
		Version:    1,
		PrevBlock:  parent.BlockHash(),
		Timestamp:  parent.Header.Timestamp.Add(time.Duration(secondsAfterParent) * time.Second),
		Difficulty: 1,
	}
	block := wire.NewMsgBlock(&header)
	block.AddTransaction(coinbase)
	block.Header.MerkleRoot = block.MerkleRoot()
	mineHeader(&block.Header)
	return block
}

func TestNewConnectsGenesis(t *testing.T) {
	params := testParams(t)
	store, err := New(database.NewMemDB(), params, nil)
	require.NoError(t, err)

	tip := store.Tip()
	require.Equal(t, int64(0), tip.Height)
	require.Equal(t, params.GenesisHash, tip.Hash)
}

func TestProcessBlockExtendsTip(t *testing.T) {
	params := testParams(t)
	store, err := New(database.NewMemDB(), params, nil)
	require.NoError(t, err)

	child := mineChild(params.GenesisBlock, 0, params, 130)
	err = store.ProcessBlock(child, child.Header.Timestamp.Add(time.Hour))
	require.NoError(t, err)

	tip := store.Tip()
	require.Equal(t, int64(1), tip.Height)
	require.Equal(t, child.BlockHash(), tip.Hash)
}

func TestProcessBlockOrphanIsQueued(t *testing.T) {
	params := testParams(t)
	store, err := New(database.NewMemDB(), params, nil)
	require.NoError(t, err)

	unknownParent := mineChild(params.GenesisBlock, 0, params, 130)
	orphanChild := mineChild(unknownParent, 1, params, 130)

	err = store.ProcessBlock(orphanChild, time.Now())
	require.ErrorIs(t, err, ErrOrphanBlock)
	require.Equal(t, int64(0), store.Tip().Height)
}

func TestProcessBlockDuplicateIsRejected(t *testing.T) {
	params := testParams(t)
	store, err := New(database.NewMemDB(), params, nil)
	require.NoError(t, err)

	child := mineChild(params.GenesisBlock, 0, params, 130)
	now := child.Header.Timestamp.Add(time.Hour)
	require.NoError(t, store.ProcessBlock(child, now))
	require.ErrorIs(t, store.ProcessBlock(child, now), ErrDuplicateBlock)
}

func TestReorgSwitchesToHeavierChain(t *testing.T) {
	params := testParams(t)
	store, err := New(database.NewMemDB(), params, nil)
	require.NoError(t, err)

	now := params.GenesisTimestamp.Add(24 * time.Hour)

	sideA := mineChild(params.GenesisBlock, 0, params, 130)
	require.NoError(t, store.ProcessBlock(sideA, now))
	require.Equal(t, sideA.BlockHash(), store.Tip().Hash)

	// A second, independent fork off genesis with the same work as
	// sideA does not displace it (earliest-arrival tiebreak); but once
	// it gets a second block its cumulative work exceeds sideA's and
	// the tip must switch.
	sideB1 := mineChild(params.GenesisBlock, 0, params, 140)
	require.NoError(t, store.ProcessBlock(sideB1, now))
	require.Equal(t, sideA.BlockHash(), store.Tip().Hash, "equal work keeps the earlier-arrived tip")

	sideB2 := mineChild(sideB1, 1, params, 130)
	require.NoError(t, store.ProcessBlock(sideB2, now))
	require.Equal(t, sideB2.BlockHash(), store.Tip().Hash, "heavier fork becomes the active tip")
}
