// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/database"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

type fakeChainSource struct {
	store  *utxo.Store
	height int64
}

func (f *fakeChainSource) UTXOStore() *utxo.Store { return f.store }
func (f *fakeChainSource) TipHeight() int64        { return f.height }

func newTestPool(t *testing.T) (*Pool, *fakeChainSource, *secp256k1.PrivateKey) {
	t.Helper()

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	db := database.NewMemDB()
	chain := &fakeChainSource{store: utxo.NewStore(db), height: 10}

	pool := New(chain, txvalidate.Params{CoinbaseMaturity: 1, SigCache: txvalidate.NewSigCache(16)})
	return pool, chain, priv
}

func buildSpend(t *testing.T, priv *secp256k1.PrivateKey, prevOut wire.OutPoint, value uint64, recipient astramutil.Address) *wire.MsgTx {
	t.Helper()
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil))
	tx.AddTxOut(wire.NewTxOut(value, recipient))

	sigHash, err := txvalidate.CalcSignatureHash(tx)
	require.NoError(t, err)
	sig := ecdsa.Sign(priv, sigHash[:])
	tx.TxIn[0].SignatureScript = txvalidate.BuildSignatureScript(priv.PubKey(), sig)
	return tx
}

func TestAdmitAcceptsValidSpend(t *testing.T) {
	pool, chain, priv := newTestPool(t)
	senderAddr := astramutil.Hash160(priv.PubKey().SerializeCompressed())

	prevOut := wire.OutPoint{Hash: astramutil.Hash256{0x01}, Index: 0}
	require.NoError(t, chain.store.Insert(prevOut, utxo.NewEntry(wire.NewTxOut(2_000_000_000_000_000_000, senderAddr), 1, false)))

	tx := buildSpend(t, priv, prevOut, 1_900_000_000_000_000_000, astramutil.Address{0x09})

	fee, err := pool.Admit(tx, time.Now())
	require.NoError(t, err)
	require.Equal(t, uint64(100_000_000_000_000_000), fee)
	require.Equal(t, 1, pool.Count())

	desc, ok := pool.Get(tx.TxHash())
	require.True(t, ok)
	require.Equal(t, fee, desc.Fee)
}

func TestAdmitRejectsConflictingSpend(t *testing.T) {
	pool, chain, priv := newTestPool(t)
	senderAddr := astramutil.Hash160(priv.PubKey().SerializeCompressed())

	prevOut := wire.OutPoint{Hash: astramutil.Hash256{0x02}, Index: 0}
	require.NoError(t, chain.store.Insert(prevOut, utxo.NewEntry(wire.NewTxOut(2_000_000_000_000_000_000, senderAddr), 1, false)))

	txA := buildSpend(t, priv, prevOut, 1_900_000_000_000_000_000, astramutil.Address{0x09})
	txB := buildSpend(t, priv, prevOut, 1_800_000_000_000_000_000, astramutil.Address{0x0a})

	_, err := pool.Admit(txA, time.Now())
	require.NoError(t, err)

	_, err = pool.Admit(txB, time.Now())
	require.Error(t, err)
	require.Equal(t, 1, pool.Count())
}

func TestAdmitChainsOffPendingOutput(t *testing.T) {
	pool, chain, priv := newTestPool(t)
	senderAddr := astramutil.Hash160(priv.PubKey().SerializeCompressed())

	prevOut := wire.OutPoint{Hash: astramutil.Hash256{0x03}, Index: 0}
	require.NoError(t, chain.store.Insert(prevOut, utxo.NewEntry(wire.NewTxOut(2_000_000_000_000_000_000, senderAddr), 1, false)))

	txA := buildSpend(t, priv, prevOut, 1_900_000_000_000_000_000, senderAddr)
	_, err := pool.Admit(txA, time.Now())
	require.NoError(t, err)

	childPrevOut := wire.OutPoint{Hash: txA.TxHash(), Index: 0}
	txB := buildSpend(t, priv, childPrevOut, 1_800_000_000_000_000_000, astramutil.Address{0x0b})

	_, err = pool.Admit(txB, time.Now())
	require.NoError(t, err, "second transaction should resolve its input against the first's still-pending output")
	require.Equal(t, 2, pool.Count())
}

func TestEvictionDropsLowestFeeRateWhenFull(t *testing.T) {
	pool, _, _ := newTestPool(t)

	// Fabricate entries directly rather than admitting MaxEntries
	// validly-signed transactions: the eviction policy under test
	// operates purely on TxDesc bookkeeping once a transaction is
	// already in the index.
	pool.mu.Lock()
	for i := 0; i < MaxEntries+5; i++ {
		var hash astramutil.Hash256
		hash[0] = byte(i)
		hash[1] = byte(i >> 8)
		desc := &TxDesc{
			Tx:      wire.NewMsgTx(1),
			Hash:    hash,
			Fee:     uint64(i + 1),
			Size:    200,
			FeeRate: float64(i+1) / 200,
			Added:   time.Now(),
			Height:  10,
		}
		pool.insertLocked(desc)
	}
	pool.evictOverflowLocked()
	count := len(pool.entries)
	lowest := pool.byFeeRate[0].FeeRate
	pool.mu.Unlock()

	require.Equal(t, MaxEntries, count)
	require.Greater(t, lowest, float64(0))
}

func TestReturnTransactionsReadmitsSpend(t *testing.T) {
	pool, chain, priv := newTestPool(t)
	senderAddr := astramutil.Hash160(priv.PubKey().SerializeCompressed())

	prevOut := wire.OutPoint{Hash: astramutil.Hash256{0x04}, Index: 0}
	require.NoError(t, chain.store.Insert(prevOut, utxo.NewEntry(wire.NewTxOut(2_000_000_000_000_000_000, senderAddr), 1, false)))

	tx := buildSpend(t, priv, prevOut, 1_900_000_000_000_000_000, astramutil.Address{0x09})
	_, err := pool.Admit(tx, time.Now())
	require.NoError(t, err)

	pool.RemoveConfirmed([]*wire.MsgTx{tx})
	require.Equal(t, 0, pool.Count())

	pool.ReturnTransactions([]*wire.MsgTx{tx})
	require.Equal(t, 1, pool.Count())
}
