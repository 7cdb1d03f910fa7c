package mempool

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/astram-project/astramd/astramutil"
)

// Default parameters for a freshly constructed FeeEstimator, matching what
// fee_persist_test.go and the node's default configuration wire in.
const (
	DefaultEstimateFeeMaxRollback         = 100
	DefaultEstimateFeeMinRegisteredBlocks = 1

	// estimateFeeBucketCount is the number of confirmation-delay buckets
	// tracked; the last bucket catches everything that took that long
	// or longer.
	estimateFeeBucketCount = 25

	// estimateFeeDecay is applied to every bucket's accumulated weight
	// each time a block is registered, so old network conditions fade
	// rather than permanently bias the estimate.
	estimateFeeDecay = 0.998
)

// ErrNotEnoughData is returned by EstimateFee when too few blocks have
// been registered, or too few observations fall within the requested
// confirmation target, to produce a trustworthy estimate.
var ErrNotEnoughData = errors.New("not enough fee data collected yet")

// FeeEstimator buckets observed transaction fee rates (base units per
// byte) by how many blocks elapsed between the transaction being seen in
// the mempool and being mined, then answers "what fee rate is likely to
// confirm within N blocks" from the weighted history. Buckets decay
// exponentially each registered block so the estimate tracks current
// network conditions instead of its entire lifetime average.
type FeeEstimator struct {
	mu sync.Mutex

	maxRollback         uint32
	minRegisteredBlocks uint32
	registeredBlocks    uint32

	bucketFeeSum [estimateFeeBucketCount]float64
	bucketWeight [estimateFeeBucketCount]float64

	pending map[astramutil.Hash256]pendingFeeObservation
}

type pendingFeeObservation struct {
	feeRate    float64
	seenHeight int64
}

// NewFeeEstimator constructs an estimator that forgets observations older
// than maxRollback blocks and refuses to answer until minRegisteredBlocks
// blocks have been registered.
func NewFeeEstimator(maxRollback, minRegisteredBlocks uint32) *FeeEstimator {
	return &FeeEstimator{
		maxRollback:         maxRollback,
		minRegisteredBlocks: minRegisteredBlocks,
		pending:             make(map[astramutil.Hash256]pendingFeeObservation),
	}
}

// ObserveTransaction records a transaction's fee rate (base units per
// byte) as of the height it was admitted to the pool. It is forgotten,
// unmined, if it is never seen again within maxRollback blocks.
func (ef *FeeEstimator) ObserveTransaction(hash astramutil.Hash256, feeRate float64, height int64) {
	ef.mu.Lock()
	defer ef.mu.Unlock()
	ef.pending[hash] = pendingFeeObservation{feeRate: feeRate, seenHeight: height}
}

// RemoveTransaction forgets a pending observation, used when a
// transaction leaves the pool without being mined (evicted, replaced,
// rejected).
func (ef *FeeEstimator) RemoveTransaction(hash astramutil.Hash256) {
	ef.mu.Lock()
	defer ef.mu.Unlock()
	delete(ef.pending, hash)
}

// RegisterBlock accounts for every mined hash's observed fee rate in the
// bucket matching its confirmation delay, decays every bucket's existing
// weight, and garbage-collects pending observations older than
// maxRollback that were never mined.
func (ef *FeeEstimator) RegisterBlock(height int64, minedHashes []astramutil.Hash256) {
	ef.mu.Lock()
	defer ef.mu.Unlock()

	for i := range ef.bucketFeeSum {
		ef.bucketFeeSum[i] *= estimateFeeDecay
		ef.bucketWeight[i] *= estimateFeeDecay
	}

	for _, h := range minedHashes {
		obs, ok := ef.pending[h]
		if !ok {
			continue
		}
		delete(ef.pending, h)

		delay := height - obs.seenHeight
		if delay < 0 {
			delay = 0
		}
		bucket := int(delay)
		if bucket >= estimateFeeBucketCount {
			bucket = estimateFeeBucketCount - 1
		}
		ef.bucketFeeSum[bucket] += obs.feeRate
		ef.bucketWeight[bucket]++
	}

	for h, obs := range ef.pending {
		if height-obs.seenHeight > int64(ef.maxRollback) {
			delete(ef.pending, h)
		}
	}

	ef.registeredBlocks++
}

// EstimateFee returns the fee rate, in base units per byte, that observed
// history suggests is needed to confirm within confirmTarget blocks. It
// averages every bucket up to and including confirmTarget, weighted by
// how many observations landed in each.
func (ef *FeeEstimator) EstimateFee(confirmTarget uint32) (float64, error) {
	ef.mu.Lock()
	defer ef.mu.Unlock()

	if ef.registeredBlocks < ef.minRegisteredBlocks {
		return 0, ErrNotEnoughData
	}

	limit := int(confirmTarget)
	if limit > estimateFeeBucketCount {
		limit = estimateFeeBucketCount
	}
	if limit < 1 {
		limit = 1
	}

	var feeSum, weight float64
	for i := 0; i < limit; i++ {
		feeSum += ef.bucketFeeSum[i]
		weight += ef.bucketWeight[i]
	}
	if weight == 0 {
		return 0, ErrNotEnoughData
	}
	return feeSum / weight, nil
}

// Save serializes the estimator's bucket state to a versionless binary
// blob; the outer framing (magic, version, timestamp) is SaveFeeEstimatorToFile's
// responsibility.
func (ef *FeeEstimator) Save() []byte {
	ef.mu.Lock()
	defer ef.mu.Unlock()

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, ef.maxRollback)
	binary.Write(buf, binary.BigEndian, ef.minRegisteredBlocks)
	binary.Write(buf, binary.BigEndian, ef.registeredBlocks)
	for i := 0; i < estimateFeeBucketCount; i++ {
		binary.Write(buf, binary.BigEndian, ef.bucketFeeSum[i])
		binary.Write(buf, binary.BigEndian, ef.bucketWeight[i])
	}
	return buf.Bytes()
}

// RestoreFeeEstimator reconstructs an estimator from Save's output.
// Pending (unconfirmed) observations are never persisted; they simply
// re-accumulate as the mempool refills after restart.
func RestoreFeeEstimator(data []byte) (*FeeEstimator, error) {
	r := bytes.NewReader(data)
	ef := &FeeEstimator{pending: make(map[astramutil.Hash256]pendingFeeObservation)}

	if err := binary.Read(r, binary.BigEndian, &ef.maxRollback); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &ef.minRegisteredBlocks); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &ef.registeredBlocks); err != nil {
		return nil, err
	}
	for i := 0; i < estimateFeeBucketCount; i++ {
		if err := binary.Read(r, binary.BigEndian, &ef.bucketFeeSum[i]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &ef.bucketWeight[i]); err != nil {
			return nil, err
		}
	}
	return ef, nil
}
