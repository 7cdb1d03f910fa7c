// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package app

import (
	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/wire"
)

// Node implements netsync.PeerNotifier by fanning each notification
// out to every Ready peer currently in the relay set.

// AnnounceNewTransactions relays freshly admitted mempool transactions
// to every connected peer.
func (n *Node) AnnounceNewTransactions(newTxs []*mempool.TxDesc) {
	if len(newTxs) == 0 {
		return
	}
	hashes := make([]astramutil.Hash256, len(newTxs))
	for i, desc := range newTxs {
		hashes[i] = desc.Hash
	}
	n.broadcastInv(wire.InvTypeTx, hashes, nil)
}

// UpdatePeerHeights is a no-op beyond logging: each peer already
// tracks its own last-announced height (peer.Stats.Height), and the
// sync manager reads it directly rather than through a side channel.
func (n *Node) UpdatePeerHeights(latestHash astramutil.Hash256, latestHeight int64, updateSource *peer.Peer) {
	log.Debugf("tip now %s at height %d", latestHash, latestHeight)
}

// RelayInventory announces hash to every connected peer; it takes no
// source peer, so none is excluded.
func (n *Node) RelayInventory(invType wire.InvType, hash astramutil.Hash256) {
	n.broadcastInv(invType, []astramutil.Hash256{hash}, nil)
}

// TransactionConfirmed is a no-op: mempool.Pool.RemoveConfirmed
// already drops a mined transaction and credits the fee estimator
// directly from chainstore's MempoolReconciler callback, so there is
// nothing left for the node layer to do here.
func (n *Node) TransactionConfirmed(tx *wire.MsgTx) {}

// broadcastInv pushes an Inv announcement for hashes to every Ready
// peer other than exclude.
func (n *Node) broadcastInv(invType wire.InvType, hashes []astramutil.Hash256, exclude *peer.Peer) {
	n.peersMu.Lock()
	peers := make([]*peer.Peer, 0, len(n.peers))
	for _, p := range n.peers {
		if p != exclude {
			peers = append(peers, p)
		}
	}
	n.peersMu.Unlock()

	for _, p := range peers {
		p.PushInvMsg(invType, hashes)
	}
}
