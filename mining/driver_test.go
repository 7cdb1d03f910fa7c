// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/wire"
)

func mineHeader(header *wire.BlockHeader) {
	for nonce := uint64(0); ; nonce++ {
		header.Nonce = nonce
		if astramutil.HashMeetsTarget(header.BlockHash(), header.Difficulty) {
			return
		}
	}
}

func testParams() *chaincfg.Params {
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

	return &chaincfg.Params{
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
}

func testDriver(t *testing.T) (*Driver, *chainstore.Store) {
	t.Helper()
	params := testParams()
	store, err := chainstore.New(database.NewMemDB(), params, txvalidate.NewSigCache(100))
	require.NoError(t, err)

	pool := mempool.New(store, txvalidate.Params{CoinbaseMaturity: params.CoinbaseMaturity})
	driver := NewDriver(store, pool, astramutil.Address{0x01}, 2)
	return driver, store
}

// TestBuildTemplateExtendsTip exercises BuildTemplate directly against a
// freshly opened store, confirming the template's parent hash/height
// track the genesis tip and the coinbase alone accounts for its size.
func TestBuildTemplateExtendsTip(t *testing.T) {
	_, store := testDriver(t)

	tmpl, err := BuildTemplate(store, mempool.New(store, txvalidate.Params{CoinbaseMaturity: 1}), astramutil.Address{0x02}, time.Unix(1738800200, 0))
	require.NoError(t, err)
	require.Equal(t, store.Tip().Hash, tmpl.ParentHash)
	require.Equal(t, int64(1), tmpl.Height)
	require.Len(t, tmpl.Block.Transactions, 1)
}

// TestDriverMinesAndAdvancesTip runs the full template/search/submit
// cycle at difficulty 1 (mineable within a handful of nonces) and checks
// the chain tip actually advances, end to end, exactly as the driver's
// production loop does it.
func TestDriverMinesAndAdvancesTip(t *testing.T) {
	driver, store := testDriver(t)

	driver.Start()
	defer driver.Stop()

	deadline := time.After(5 * time.Second)
	for {
		if store.Tip().Height >= 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("driver did not mine a block within the deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// TestEpochAdvancesOnTipChange confirms SubscribeTipChange wakes the
// driver's watcher, which is the mechanism the running search loop
// relies on to abandon a superseded template promptly.
func TestEpochAdvancesOnTipChange(t *testing.T) {
	driver, store := testDriver(t)

	tipCh := store.SubscribeTipChange()
	go driver.watch(tipCh)
	defer close(driver.stop)

	before := driver.epoch

	child := wire.NewMsgBlock(&wire.BlockHeader{
		Version:    1,
		PrevBlock:  store.Tip().Hash,
		Timestamp:  store.Tip().Header.Timestamp.Add(130 * time.Second),
		Difficulty: 1,
	})
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, []byte{0x01}))
	coinbase.AddTxOut(wire.NewTxOut(1, astramutil.Address{0xfe}))
	child.AddTransaction(coinbase)
	child.Header.MerkleRoot = child.MerkleRoot()
	mineHeader(&child.Header)

	require.NoError(t, store.ProcessBlock(child, child.Header.Timestamp.Add(time.Hour)))

	require.Eventually(t, func() bool {
		return driver.epoch != before
	}, time.Second, 5*time.Millisecond)
}
