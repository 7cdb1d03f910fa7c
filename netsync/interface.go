// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/validatorstats"
	"github.com/astram-project/astramd/wire"
)

// PeerNotifier exposes methods to notify peers of status changes to
// transactions, blocks, etc. The node-assembly package's server type
// implements this interface.
type PeerNotifier interface {
	AnnounceNewTransactions(newTxs []*mempool.TxDesc)

	UpdatePeerHeights(latestHash astramutil.Hash256, latestHeight int64, updateSource *peer.Peer)

	RelayInventory(invType wire.InvType, hash astramutil.Hash256)

	TransactionConfirmed(tx *wire.MsgTx)
}

// Config is a configuration struct used to initialize a new SyncManager.
type Config struct {
	PeerNotifier PeerNotifier
	Chain        *chainstore.Store
	TxMemPool    *mempool.Pool
	ChainParams  *chaincfg.Params

	DisableCheckpoints bool
	MaxPeers           int

	FeeEstimator *mempool.FeeEstimator

	// Stats, if non-nil, receives every rejected block/tx's taxonomy
	// code for the admin/status surface's per-category counters. Left
	// nil in tests that don't care about it.
	Stats *validatorstats.Counters
}
