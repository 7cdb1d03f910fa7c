// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mempool provides a policy-enforced pool of unmined Astram transactions.

A key responsibility of the Astram network is mining user-generated transactions
into blocks.  In order to facilitate this, the mining process relies on having a
readily-available source of transactions to include in a block that is being
solved.

At a high level, this package satisfies that requirement by providing an
in-memory pool of fully validated transactions. Its limits (count, bytes,
age) are fixed constants; there is no configurable policy.

Since this package does not deal with other Astram specifics such as network
communication and transaction relay, it returns a list of transactions that were
accepted which gives the caller a high level of flexibility in how they want to
proceed. Typically, this will involve things such as relaying the transactions
to other peers on the network and notifying the mining process that new
transactions are available.

# Feature Overview

The following is a quick overview of the major features. It is not intended to
be an exhaustive list.

  - Maintain a pool of fully validated transactions
    1. Reject transactions already in the pool
    2. Reject coinbase transactions
    3. Reject double spends (both from the chain and other transactions in pool)
    4. Reject invalid transactions according to the network consensus rules
    5. Full signature validation with signature cache support
    6. Individual transaction query support
  - Inputs may spend outputs of transactions already in the pool; there is no
    orphan transaction pool, so a transaction spending an unknown output is
    rejected
  - Age-based expiry and fee-based eviction once the pool exceeds its capacity
  - Reorg reconciliation: disconnected blocks' transactions are offered back
    for re-admission, newly connected blocks' transactions are dropped and
    pooled transactions spending the same outpoints are removed
  - Removal of a transaction does not remove transactions that spend its
    outputs, and there is no exported method for manual removal

# Errors

Errors returned by this package are either the raw errors provided by underlying
calls or a consensus.RuleError surfaced from the shared validation error
taxonomy, letting the caller distinguish unexpected errors such as database
failures from rejections due to an actual rule violation.
*/
package mempool
