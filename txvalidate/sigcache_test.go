// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txvalidate

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
)

func TestSigCacheAddAndExists(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	sigHash := astramutil.DoubleSha256([]byte("hello"))
	sig := ecdsa.Sign(priv, sigHash[:])
	pubKey := priv.PubKey()

	cache := NewSigCache(4)
	require.False(t, cache.Exists(sigHash, sig, pubKey))

	cache.Add(sigHash, sig, pubKey, astramutil.Hash256{0x01})
	require.True(t, cache.Exists(sigHash, sig, pubKey))
}

func TestSigCacheEvictsAtCapacity(t *testing.T) {
	cache := NewSigCache(1)
	priv1, _ := secp256k1.GeneratePrivateKey()
	priv2, _ := secp256k1.GeneratePrivateKey()

	h1 := astramutil.DoubleSha256([]byte("a"))
	h2 := astramutil.DoubleSha256([]byte("b"))
	sig1 := ecdsa.Sign(priv1, h1[:])
	sig2 := ecdsa.Sign(priv2, h2[:])

	cache.Add(h1, sig1, priv1.PubKey(), astramutil.Hash256{0x01})
	cache.Add(h2, sig2, priv2.PubKey(), astramutil.Hash256{0x02})

	require.LessOrEqual(t, len(cache.validSigs), 1)
}

func TestSigCacheEvictTransactions(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	sigHash := astramutil.DoubleSha256([]byte("c"))
	sig := ecdsa.Sign(priv, sigHash[:])
	txHash := astramutil.Hash256{0x03}

	cache := NewSigCache(4)
	cache.Add(sigHash, sig, priv.PubKey(), txHash)
	require.True(t, cache.Exists(sigHash, sig, priv.PubKey()))

	cache.EvictTransactions([]astramutil.Hash256{txHash})
	require.False(t, cache.Exists(sigHash, sig, priv.PubKey()))
}
