// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/wire"
)

// DebounceInterval bounds how long the driver waits for mempool churn to
// settle before tearing down an in-progress search to re-template. A
// new tip always preempts immediately; mempool updates are coalesced
// onto this tick instead, since an admitted transaction arriving
// mid-search is not worth restarting the batch over by itself.
const DebounceInterval = 500 * time.Millisecond

// DefaultBatchSize is the number of nonces a single searchBatch call
// covers before a worker rechecks the epoch, small enough that
// preemption lands within roughly a batch's worth of hashing
// (cancellation latency at most one batch, ~10^6-10^7 hashes).
const DefaultBatchSize = 1 << 20

// Driver is the mining package's scheduler: single producer of block
// templates, multiple consumers of nonce ranges. It owns the epoch
// counter that preempts an in-progress search whenever the chain tip
// advances or the mempool changes beyond the debounce window. Template
// production and nonce search run in a single goroutine, since the
// driver works in-process against chainstore.Store rather than polling
// an RPC client for templates.
type Driver struct {
	chain      *chainstore.Store
	pool       *mempool.Pool
	minerAddr  astramutil.Address
	numWorkers int
	batchSize  uint64

	epoch   uint64
	stop    chan struct{}
	stopped chan struct{}

	onBlockFound func(*wire.MsgBlock)
}

// NewDriver constructs a Driver that builds templates from chain and
// pool, pays the coinbase to minerAddr, and searches with numWorkers CPU
// threads (runtime.NumCPU() if numWorkers <= 0).
func NewDriver(chain *chainstore.Store, pool *mempool.Pool, minerAddr astramutil.Address, numWorkers int) *Driver {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Driver{
		chain:      chain,
		pool:       pool,
		minerAddr:  minerAddr,
		numWorkers: numWorkers,
		batchSize:  DefaultBatchSize,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// OnBlockFound registers a callback invoked with every block the driver
// mines, after it has already been submitted to chain.ProcessBlock. Used
// by the node-assembly package to relay the block to connected peers.
func (d *Driver) OnBlockFound(fn func(*wire.MsgBlock)) {
	d.onBlockFound = fn
}

// Start launches the driver's template/search/submit loop and its
// preemption watcher. Call Stop to shut both down.
func (d *Driver) Start() {
	tipCh := d.chain.SubscribeTipChange()
	go d.watch(tipCh)
	go d.run()
}

// Stop signals the driver's goroutines to exit and waits for the search
// loop to observe the signal and return. Bumping the epoch first makes
// any in-progress cpuSearch unwind within one epoch-check stride instead
// of running until it finds a block or exhausts the nonce space.
func (d *Driver) Stop() {
	atomic.AddUint64(&d.epoch, 1)
	close(d.stop)
	<-d.stopped
}

// watch bumps the epoch on every tip change immediately, and on mempool
// content changes no more often than once per DebounceInterval.
func (d *Driver) watch(tipCh <-chan struct{}) {
	ticker := time.NewTicker(DebounceInterval)
	defer ticker.Stop()

	lastCount, lastBytes := d.pool.Count(), d.pool.Bytes()
	for {
		select {
		case <-d.stop:
			return
		case <-tipCh:
			atomic.AddUint64(&d.epoch, 1)
		case <-ticker.C:
			count, bytes := d.pool.Count(), d.pool.Bytes()
			if count != lastCount || bytes != lastBytes {
				lastCount, lastBytes = count, bytes
				atomic.AddUint64(&d.epoch, 1)
			}
		}
	}
}

// run repeatedly builds a template against the current epoch and
// searches it until the epoch advances (a fresher tip or mempool state
// arrived) or the nonce space is exhausted, in which case it rebuilds
// with an advanced timestamp and tries again.
func (d *Driver) run() {
	defer close(d.stopped)

	for {
		select {
		case <-d.stop:
			return
		default:
		}

		myEpoch := atomic.LoadUint64(&d.epoch)

		tmpl, err := BuildTemplate(d.chain, d.pool, d.minerAddr, time.Now())
		if err != nil {
			log.Errorf("failed to build mining template: %v", err)
			time.Sleep(DebounceInterval)
			continue
		}

		prefix, suffix := headerSearchBytes(&tmpl.Block.Header)
		nonce, hash, found := cpuSearch(prefix, suffix, tmpl.Difficulty, d.numWorkers, d.batchSize, &d.epoch, myEpoch)
		if !found {
			// Either the epoch advanced mid-search (normal preemption,
			// loop to re-template) or the nonce space was exhausted
			// against this exact template (astronomically unlikely at
			// real difficulties); either way, re-templating is correct.
			continue
		}

		tmpl.Block.Header.Nonce = nonce
		log.Infof("mined block %s at height %d", hash, tmpl.Height)

		if err := d.chain.ProcessBlock(tmpl.Block, time.Now()); err != nil {
			log.Warnf("mined block %s rejected by chain store: %v", hash, err)
			continue
		}
		if d.onBlockFound != nil {
			d.onBlockFound(tmpl.Block)
		}
	}
}

// headerSearchBytes serializes header with its nonce zeroed and splits
// the result into the prefix preceding the nonce field and the (empty)
// suffix following it, the exact (prefix, suffix) shape searchBatch and
// a CUDA backend both hash nonces into. Astram's BlockHeader carries
// the nonce as its last field, so suffix is always empty; the split is
// still expressed explicitly so a future header layout with trailing
// fields after the nonce would only require changing this function.
func headerSearchBytes(header *wire.BlockHeader) (prefix, suffix []byte) {
	h := *header
	h.Nonce = 0

	buf := make([]byte, 0, wire.MaxBlockHeaderPayload)
	w := byteBuffer{buf: buf}
	_ = h.Serialize(&w)

	full := w.buf
	cut := len(full) - nonceSize
	return full[:cut], nil
}

// byteBuffer is a minimal io.Writer backed by a growable slice, avoiding
// a bytes.Buffer import purely to keep this file's dependency footprint
// matching cpu.go's (flat byte slices only).
type byteBuffer struct{ buf []byte }

func (b *byteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
