// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validatorstats counts block/tx rejections by error taxonomy
// category and code, for the admin/status surface's validation-failure
// counters. Counters are plain atomics rather than an actor behind a
// channel: every other validating package (consensus, txvalidate,
// utxo, chainstore, mempool) already returns a `consensus.RuleError`
// synchronously at the point of rejection, so incrementing here is a
// single uncontended add on the same goroutine that discovered the
// error -- no request/response round trip needed.
package validatorstats

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/astram-project/astramd/consensus"
)

// Counters tracks rejection counts by error code, with per-category
// totals derived on read rather than maintained as a second set of
// atomics (cheap to recompute, and keeps Record to one atomic op).
type Counters struct {
	mu     sync.RWMutex
	byCode map[consensus.ErrorCode]*uint64
}

// New returns an empty counter set.
func New() *Counters {
	return &Counters{byCode: make(map[consensus.ErrorCode]*uint64)}
}

// Record increments the counter for err's code if err is (or wraps) a
// consensus.RuleError; any other error is logged and ignored, since
// validatorstats only tracks the shared consensus.RuleError taxonomy.
func (c *Counters) Record(err error) {
	var ruleErr consensus.RuleError
	if !errors.As(err, &ruleErr) {
		log.Debugf("validatorstats: ignoring non-taxonomy error: %v", err)
		return
	}
	c.RecordCode(ruleErr.Code)
}

// RecordCode increments the counter for code directly, for callers
// (e.g. codec-layer rejections) that classify a failure without going
// through a consensus.RuleError.
func (c *Counters) RecordCode(code consensus.ErrorCode) {
	c.mu.RLock()
	counter, ok := c.byCode[code]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		counter, ok = c.byCode[code]
		if !ok {
			var v uint64
			counter = &v
			c.byCode[code] = counter
		}
		c.mu.Unlock()
	}
	atomic.AddUint64(counter, 1)
}

// Snapshot returns a point-in-time copy of every nonzero counter,
// keyed by error code, for the admin/status RPC surface.
func (c *Counters) Snapshot() map[consensus.ErrorCode]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[consensus.ErrorCode]uint64, len(c.byCode))
	for code, counter := range c.byCode {
		if v := atomic.LoadUint64(counter); v > 0 {
			out[code] = v
		}
	}
	return out
}

// CategoryTotals aggregates Snapshot's per-code counts under each of
// the six error-code categories, the grouping the admin/status
// surface presents.
func (c *Counters) CategoryTotals() map[consensus.Category]uint64 {
	totals := make(map[consensus.Category]uint64)
	for code, count := range c.Snapshot() {
		totals[code.Category()] += count
	}
	return totals
}
