// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/astram-project/astramd/astramutil"
)

// nonceOffset and nonceSize locate the little-endian nonce field within
// a serialized BlockHeader: version(4) + prev_hash(32) + merkle_root(32)
// + timestamp(8) + difficulty(4), then the 8-byte nonce, per
// wire.MaxBlockHeaderPayload's layout. Kept as a local constant rather
// than importing wire so this file stays the same shape a CUDA kernel
// would need: a flat byte layout with no struct decoding.
const (
	nonceOffset = 4 + 32 + 32 + 8 + 4
	nonceSize   = 8
)

// searchBatch scans batchSize consecutive nonces starting at startNonce
// for one whose double_sha256(prefix || nonce_le8 || suffix) meets
// target(difficulty), a construction every backend (CPU or GPU) must
// agree on bit-for-bit. found/foundNonce are shared across every
// worker searching the same template; the first worker to succeed
// claims found via CompareAndSwap, and every other worker (CPU or GPU)
// observes it and abandons its own batch. epoch/myEpoch implement
// preemption: a worker checks epoch every epochCheckStride iterations
// and returns early the instant the template it's searching against is
// superseded.
func searchBatch(prefix, suffix []byte, startNonce, batchSize uint64, difficulty uint32, epoch *uint64, myEpoch uint64, found *int32, foundNonce *uint64, foundHash *astramutil.Hash256) bool {
	const epochCheckStride = 1 << 14

	buf := make([]byte, len(prefix)+nonceSize+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix)+nonceSize:], suffix)

	for i := uint64(0); i < batchSize; i++ {
		if i%epochCheckStride == 0 {
			if atomic.LoadUint64(epoch) != myEpoch || atomic.LoadInt32(found) != 0 {
				return false
			}
		}

		nonce := startNonce + i
		binary.LittleEndian.PutUint64(buf[len(prefix):], nonce)
		hash := astramutil.DoubleSha256(buf)

		if astramutil.HashMeetsTarget(hash, difficulty) {
			if atomic.CompareAndSwapInt32(found, 0, 1) {
				atomic.StoreUint64(foundNonce, nonce)
				*foundHash = hash
			}
			return true
		}
	}
	return false
}

// cpuSearch partitions [0, nonceSpace) across numWorkers goroutines,
// each repeatedly claiming a batch of size batchSize via
// searchBatch, until one finds a winning nonce or the epoch advances
// out from under them (the template was superseded). It returns the
// winning nonce, its hash, and true, or false if the whole nonce space
// was exhausted without success (the caller must re-template with an
// updated timestamp/extra-nonce and try again).
func cpuSearch(prefix, suffix []byte, difficulty uint32, numWorkers int, batchSize uint64, epoch *uint64, myEpoch uint64) (uint64, astramutil.Hash256, bool) {
	if numWorkers < 1 {
		numWorkers = 1
	}

	var found int32
	var foundNonce uint64
	var foundHash astramutil.Hash256
	stride := uint64(numWorkers) * batchSize

	done := make(chan struct{}, numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerStart uint64) {
			for start := workerStart; atomic.LoadUint64(epoch) == myEpoch && atomic.LoadInt32(&found) == 0; start += stride {
				if searchBatch(prefix, suffix, start, batchSize, difficulty, epoch, myEpoch, &found, &foundNonce, &foundHash) {
					break
				}
			}
			done <- struct{}{}
		}(uint64(w) * batchSize)
	}
	for w := 0; w < numWorkers; w++ {
		<-done
	}

	if atomic.LoadInt32(&found) == 0 {
		return 0, astramutil.Hash256{}, false
	}
	return atomic.LoadUint64(&foundNonce), foundHash, true
}
