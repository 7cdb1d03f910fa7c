// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sort"
	"sync"
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/txvalidate"
	"github.com/astram-project/astramd/utxo"
	"github.com/astram-project/astramd/wire"
)

// Pool capacity and expiry bounds: count <= 10,000, bytes <= 300 MB,
// age <= 24h.
const (
	MaxEntries  = 10_000
	MaxBytes    = 300 * 1_000_000
	MaxEntryAge = 24 * time.Hour
)

// TxDesc is a transaction admitted to the pool, plus the bookkeeping
// its priority ordering and eviction policy need.
type TxDesc struct {
	Tx      *wire.MsgTx
	Hash    astramutil.Hash256
	Fee     uint64
	Size    int
	FeeRate float64 // Fee / Size, descending priority
	Added   time.Time
	Height  int64 // tip height at the time of admission
}

// ChainSource is the slice of a live chain store the pool needs: the
// committed UTXO set inputs are checked against, and the active tip's
// height for coinbase-maturity and template-height bookkeeping.
type ChainSource interface {
	UTXOStore() *utxo.Store
	TipHeight() int64
}

// Pool is a fee-rate-prioritized holding area for fully validated,
// not-yet-mined transactions, indexed by txid with a secondary index
// by previous-outpoint so later transactions can spend a still-pending
// transaction's outputs. All mutation happens through a single mutex
// guarding the entries map, the previous-outpoint index, and the
// fee-rate-ordered eviction index together.
type Pool struct {
	mu sync.Mutex

	chain     ChainSource
	params    txvalidate.Params
	estimator *FeeEstimator

	entries    map[astramutil.Hash256]*TxDesc
	byOutpoint map[wire.OutPoint]astramutil.Hash256
	byFeeRate  []*TxDesc // ascending by FeeRate; index 0 is evicted first
	totalBytes int
}

// New constructs an empty pool backed by the given chain source.
func New(chain ChainSource, params txvalidate.Params) *Pool {
	return &Pool{
		chain:      chain,
		params:     params,
		estimator:  NewFeeEstimator(DefaultEstimateFeeMaxRollback, DefaultEstimateFeeMinRegisteredBlocks),
		entries:    make(map[astramutil.Hash256]*TxDesc),
		byOutpoint: make(map[wire.OutPoint]astramutil.Hash256),
	}
}

// poolOverlay resolves an outpoint against the pool's own pending
// outputs first, falling back to the committed chain tip's UTXO set.
// Callers must hold p.mu.
type poolOverlay struct {
	pool *Pool
}

func (o poolOverlay) Get(op wire.OutPoint) (*utxo.Entry, error) {
	if desc, ok := o.pool.entries[op.Hash]; ok && int(op.Index) < len(desc.Tx.TxOut) {
		return utxo.NewEntry(desc.Tx.TxOut[op.Index], desc.Height, false), nil
	}
	return o.pool.chain.UTXOStore().Get(op)
}

// Admit validates tx and, if it passes, adds it to the pool, running
// eviction afterward. It returns the transaction's fee in base units.
func (p *Pool) Admit(tx *wire.MsgTx, now time.Time) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admitLocked(tx, now)
}

func (p *Pool) admitLocked(tx *wire.MsgTx, now time.Time) (uint64, error) {
	hash := tx.TxHash()
	if _, exists := p.entries[hash]; exists {
		return 0, consensus.NewRuleError(consensus.ErrDuplicateInput, "transaction already in pool")
	}
	if tx.IsCoinBase() {
		return 0, consensus.NewRuleError(consensus.ErrInvalidCoinbase, "coinbase transaction is not relayable")
	}

	for _, in := range tx.TxIn {
		if _, ok := p.byOutpoint[in.PreviousOutPoint]; ok {
			return 0, consensus.NewRuleError(consensus.ErrDuplicateInput, "conflicts with a transaction already in the pool")
		}
	}

	spendHeight := p.chain.TipHeight() + 1
	fee, err := txvalidate.CheckTransaction(tx, poolOverlay{pool: p}, spendHeight, p.params)
	if err != nil {
		return 0, err
	}

	size := tx.SerializeSize()
	desc := &TxDesc{
		Tx:      tx,
		Hash:    hash,
		Fee:     fee,
		Size:    size,
		FeeRate: float64(fee) / float64(size),
		Added:   now,
		Height:  p.chain.TipHeight(),
	}

	// Age-based eviction runs before the fullness check so capacity a
	// stale entry just freed is available to the incoming transaction.
	p.evictStaleLocked(now)

	if p.full() && p.isLowestFeeRate(desc.FeeRate) {
		return 0, consensus.NewRuleError(consensus.ErrInsufficientFee, "mempool full and transaction is the lowest fee-rate candidate")
	}

	p.insertLocked(desc)
	p.estimator.ObserveTransaction(hash, desc.FeeRate, desc.Height)
	p.evictOverflowLocked()
	return fee, nil
}

func (p *Pool) full() bool {
	return len(p.entries) >= MaxEntries || p.totalBytes >= MaxBytes
}

func (p *Pool) isLowestFeeRate(feeRate float64) bool {
	if len(p.byFeeRate) == 0 {
		return false
	}
	return feeRate <= p.byFeeRate[0].FeeRate
}

func (p *Pool) insertLocked(desc *TxDesc) {
	p.entries[desc.Hash] = desc
	for _, in := range desc.Tx.TxIn {
		p.byOutpoint[in.PreviousOutPoint] = desc.Hash
	}
	p.totalBytes += desc.Size

	idx := sort.Search(len(p.byFeeRate), func(i int) bool { return p.byFeeRate[i].FeeRate >= desc.FeeRate })
	p.byFeeRate = append(p.byFeeRate, nil)
	copy(p.byFeeRate[idx+1:], p.byFeeRate[idx:])
	p.byFeeRate[idx] = desc
}

func (p *Pool) removeLocked(hash astramutil.Hash256, reason RemovalReason) {
	desc, ok := p.entries[hash]
	if !ok {
		return
	}
	delete(p.entries, hash)
	for _, in := range desc.Tx.TxIn {
		delete(p.byOutpoint, in.PreviousOutPoint)
	}
	p.totalBytes -= desc.Size

	for i, d := range p.byFeeRate {
		if d.Hash == hash {
			p.byFeeRate = append(p.byFeeRate[:i], p.byFeeRate[i+1:]...)
			break
		}
	}

	if reason != RemovalReasonBlock {
		p.estimator.RemoveTransaction(hash)
	}
}

// evictStaleLocked drops every entry older than MaxEntryAge.
func (p *Pool) evictStaleLocked(now time.Time) {
	for hash, desc := range p.entries {
		if now.Sub(desc.Added) > MaxEntryAge {
			p.removeLocked(hash, RemovalReasonEvicted)
		}
	}
}

// evictOverflowLocked repeatedly removes the lowest fee-rate entry
// while the pool still exceeds its count or byte cap.
func (p *Pool) evictOverflowLocked() {
	for (len(p.entries) > MaxEntries || p.totalBytes > MaxBytes) && len(p.byFeeRate) > 0 {
		evicted := p.byFeeRate[0]
		log.Debugf("mempool: evicting %s (fee rate %.4f) to stay within capacity", evicted.Hash, evicted.FeeRate)
		p.removeLocked(evicted.Hash, RemovalReasonEvicted)
	}
}

// Get returns the pooled descriptor for a txid, if present.
func (p *Pool) Get(hash astramutil.Hash256) (*TxDesc, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	desc, ok := p.entries[hash]
	return desc, ok
}

// FeeEstimator returns the estimator backing this pool, for RPC and
// sync-manager layers that report fee estimates alongside pool state.
func (p *Pool) FeeEstimator() *FeeEstimator {
	return p.estimator
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Bytes returns the pool's total serialized size in bytes.
func (p *Pool) Bytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBytes
}

// HighestFeeRate returns a snapshot of pooled transactions ordered by
// descending fee rate, for template assembly.
func (p *Pool) HighestFeeRate() []*TxDesc {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*TxDesc, len(p.byFeeRate))
	for i, d := range p.byFeeRate {
		out[len(out)-1-i] = d
	}
	return out
}

// RemoveConfirmed implements chainstore.MempoolReconciler: drop every
// transaction the new tip just confirmed, crediting the fee estimator
// with the blocks-to-confirm delay observed for each, then drop every
// pooled transaction that spends an outpoint a confirmed transaction
// spent.
func (p *Pool) RemoveConfirmed(txs []*wire.MsgTx) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mined := make([]astramutil.Hash256, 0, len(txs))
	for _, tx := range txs {
		hash := tx.TxHash()
		if _, ok := p.entries[hash]; ok {
			mined = append(mined, hash)
			p.removeLocked(hash, RemovalReasonBlock)
		}
	}
	for _, tx := range txs {
		for _, in := range tx.TxIn {
			if conflict, ok := p.byOutpoint[in.PreviousOutPoint]; ok {
				p.removeLocked(conflict, RemovalReasonConflict)
			}
		}
	}
	p.estimator.RegisterBlock(p.chain.TipHeight(), mined)
}

// ReturnTransactions implements chainstore.MempoolReconciler: offer
// every transaction a disconnected block had confirmed back up for
// re-admission. Transactions that no longer validate (e.g. a
// conflicting spend landed in the new best chain) are silently
// dropped rather than propagated as errors, matching how a
// disconnect-driven re-admission is expected to behave: best-effort,
// not authoritative.
func (p *Pool) ReturnTransactions(txs []*wire.MsgTx) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for _, tx := range txs {
		if tx.IsCoinBase() {
			continue
		}
		p.admitLocked(tx, now)
	}
}
