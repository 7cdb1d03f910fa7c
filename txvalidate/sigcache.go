// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txvalidate

import (
	"sync"

	"github.com/aead/siphash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/astram-project/astramd/astramutil"
)

// shortTxHashKeySize is the key size siphash.New128 requires.
const shortTxHashKeySize = 16

type sigCacheEntry struct {
	sig         *ecdsa.Signature
	pubKey      *secp256k1.PublicKey
	shortTxHash uint64
}

// SigCache is an ECDSA signature-verification cache with randomized
// eviction: a transaction re-validated after already being accepted
// into the mempool (or replayed during a reorg) need not re-run an
// expensive ECDSA verification, and bounding the cache size mitigates
// a DoS attacker flooding the validator with invalid signatures.
type SigCache struct {
	mu             sync.RWMutex
	validSigs      map[astramutil.Hash256]sigCacheEntry
	maxEntries     uint
	shortTxHashKey [shortTxHashKeySize]byte
}

// NewSigCache returns a new SigCache holding at most maxEntries
// verified signatures.
func NewSigCache(maxEntries uint) *SigCache {
	var key [shortTxHashKeySize]byte
	// A fixed key is acceptable here: shortTxHash is used only to scope
	// proactive eviction by block, not as a security boundary.
	copy(key[:], astramutil.DoubleSha256([]byte("astram-sigcache")).CloneBytes())

	return &SigCache{
		validSigs:      make(map[astramutil.Hash256]sigCacheEntry, maxEntries),
		maxEntries:     maxEntries,
		shortTxHashKey: key,
	}
}

// Exists reports whether sig over sigHash by pubKey was already
// verified and cached.
func (c *SigCache) Exists(sigHash astramutil.Hash256, sig *ecdsa.Signature, pubKey *secp256k1.PublicKey) bool {
	c.mu.RLock()
	entry, ok := c.validSigs[sigHash]
	c.mu.RUnlock()

	return ok && entry.pubKey.IsEqual(pubKey) && entry.sig.IsEqual(sig)
}

// Add records a verified signature, evicting a random entry first if
// the cache is full.
func (c *SigCache) Add(sigHash astramutil.Hash256, sig *ecdsa.Signature, pubKey *secp256k1.PublicKey, txHash astramutil.Hash256) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries == 0 {
		return
	}

	if uint(len(c.validSigs)+1) > c.maxEntries {
		for k := range c.validSigs {
			delete(c.validSigs, k)
			break
		}
	}

	c.validSigs[sigHash] = sigCacheEntry{
		sig:         sig,
		pubKey:      pubKey,
		shortTxHash: c.shortTxHash(txHash),
	}
}

// EvictTransactions removes cached signatures belonging to the given
// transaction hashes, for transactions buried deep enough that their
// signatures are no longer likely to be re-checked. Nothing in the
// node calls it; otherwise entries leave only through Add's random
// eviction.
func (c *SigCache) EvictTransactions(txHashes []astramutil.Hash256) {
	if len(txHashes) == 0 {
		return
	}

	shortSet := make(map[uint64]struct{}, len(txHashes))
	for _, h := range txHashes {
		shortSet[c.shortTxHash(h)] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for sigHash, entry := range c.validSigs {
		if _, ok := shortSet[entry.shortTxHash]; ok {
			delete(c.validSigs, sigHash)
		}
	}
}

func (c *SigCache) shortTxHash(txHash astramutil.Hash256) uint64 {
	return siphash.Sum64(txHash[:], c.shortTxHashKey[:])
}
