// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package validatorstats

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/consensus"
)

func TestRecordIncrementsByCode(t *testing.T) {
	c := New()
	c.Record(consensus.NewRuleError(consensus.ErrInvalidPoW, "bad pow"))
	c.Record(consensus.NewRuleError(consensus.ErrInvalidPoW, "bad pow again"))
	c.Record(consensus.NewRuleError(consensus.ErrCheckpointViolation, "checkpoint mismatch"))

	snap := c.Snapshot()
	require.Equal(t, uint64(2), snap[consensus.ErrInvalidPoW])
	require.Equal(t, uint64(1), snap[consensus.ErrCheckpointViolation])
}

func TestRecordIgnoresNonTaxonomyErrors(t *testing.T) {
	c := New()
	c.Record(errors.New("not a rule error"))
	require.Empty(t, c.Snapshot())
}

func TestCategoryTotalsAggregate(t *testing.T) {
	c := New()
	c.RecordCode(consensus.ErrHashMismatch)
	c.RecordCode(consensus.ErrInvalidPoW)
	c.RecordCode(consensus.ErrCheckpointViolation)

	totals := c.CategoryTotals()
	require.Equal(t, uint64(2), totals[consensus.CategoryHeaderPoW])
	require.Equal(t, uint64(1), totals[consensus.CategoryPolicy])
}

func TestRecordIsConcurrencySafe(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordCode(consensus.ErrInsufficientFee)
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(50), c.Snapshot()[consensus.ErrInsufficientFee])
}
