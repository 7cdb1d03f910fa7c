// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/wire"
)

// handleHeadersMsg validates each header in msg individually and, for any
// whose body we don't already have, requests it via GetData -- spread
// across up to maxSyncPeers peers and bounded by maxBlocksInTransit so
// memory stays windowed while bodies are in flight.
func (m *SyncManager) handleHeadersMsg(msg *wire.MsgHeaders, p *peer.Peer) {
	state, ok := m.peerStates[p]
	if !ok {
		return
	}
	if len(msg.Headers) == 0 {
		return
	}

	now := time.Now()
	var toFetch []astramutil.Hash256
	for _, header := range msg.Headers {
		if err := m.validateHeader(header, now); err != nil {
			log.Warnf("peer %s sent invalid header: %v", p.Addr(), err)
			return
		}
		hash := header.BlockHash()
		if _, err := m.chain.GetBlock(hash); err == nil {
			continue // already have the body
		}
		if _, inflight := m.requestedBlocks[hash]; inflight {
			continue
		}
		toFetch = append(toFetch, hash)
	}

	m.requestBlocks(toFetch, p, state)

	// A full-size response may mean there is more beyond it; keep pulling
	// headers from the same peer until it returns a short batch.
	if len(msg.Headers) == wire.MaxBlockHeadersPerMsg {
		locator := []astramutil.Hash256{msg.Headers[len(msg.Headers)-1].BlockHash()}
		p.PushGetHeadersMsg(locator, astramutil.Hash256{})
	}
}

// requestBlocks fans the hashes in want out across the sync peer plus up
// to maxSyncPeers-1 other Ready peers, never exceeding maxBlocksInTransit
// outstanding requests in total.
func (m *SyncManager) requestBlocks(want []astramutil.Hash256, origin *peer.Peer, originState *peerSyncState) {
	if len(want) == 0 {
		return
	}

	fetchers := []*peer.Peer{origin}
	for candidate, st := range m.peerStates {
		if len(fetchers) >= m.maxSyncPeers {
			break
		}
		if candidate == origin || !st.syncCandidate {
			continue
		}
		fetchers = append(fetchers, candidate)
	}

	idx := 0
	for _, hash := range want {
		if len(m.requestedBlocks) >= maxBlocksInTransit {
			break
		}
		target := fetchers[idx%len(fetchers)]
		idx++

		st := originState
		if target != origin {
			st = m.peerStates[target]
		}
		getData := wire.NewMsgGetData()
		getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, hash))
		if !target.QueueMessage(getData) {
			continue
		}
		st.requestedBlocks[hash] = struct{}{}
		m.requestedBlocks[hash] = target
	}
}

// handleGetHeadersMsg answers a peer's locator-based header request. Since
// chainstore's block index only links backward (PrevHash), the active
// chain from the first recognized locator hash up to the tip is collected
// by walking backward from the tip and keeping the suffix at or above the
// locator height, then emitted in forward order.
func (m *SyncManager) handleGetHeadersMsg(msg *wire.MsgGetHeaders, p *peer.Peer) {
	tip := m.chain.Tip()
	if tip == nil {
		return
	}

	startHeight := int64(-1)
	for _, hash := range msg.BlockLocatorHashes {
		if entry, err := m.chain.GetChainEntry(hash); err == nil {
			startHeight = entry.Height
			break
		}
	}

	var path []*chaindb.ChainEntry
	cur := tip
	for cur.Height > startHeight && len(path) < wire.MaxBlockHeadersPerMsg {
		path = append(path, cur)
		if cur.Height == 0 {
			break
		}
		parent, err := m.chain.GetChainEntry(cur.PrevHash)
		if err != nil {
			break
		}
		cur = parent
	}

	resp := wire.NewMsgHeaders()
	for i := len(path) - 1; i >= 0; i-- {
		header := path[i].Header
		if err := resp.AddBlockHeader(&header); err != nil {
			break
		}
		if path[i].Hash == msg.HashStop {
			break
		}
	}
	if len(resp.Headers) > 0 {
		p.QueueMessage(resp)
	}
}

// handleInvMsg requests data for any advertised hash we don't already
// have, applying the per-peer block-announcement rate limit.
func (m *SyncManager) handleInvMsg(msg *wire.MsgInv, p *peer.Peer) {
	state, ok := m.peerStates[p]
	if !ok {
		return
	}

	now := time.Now()
	getData := wire.NewMsgGetData()
	for _, iv := range msg.InvList {
		hash := astramutil.Hash256(iv.Hash)
		switch iv.Type {
		case wire.InvTypeBlock:
			if !state.allowAnnouncement(now) {
				continue
			}
			if _, err := m.chain.GetBlock(hash); err == nil {
				continue
			}
			if _, inflight := m.requestedBlocks[hash]; inflight {
				continue
			}
			getData.AddInvVect(iv)
			state.requestedBlocks[hash] = struct{}{}
			m.requestedBlocks[hash] = p
		case wire.InvTypeTx:
			if _, ok := m.rejectedTxns[hash]; ok {
				continue
			}
			if _, ok := m.txMemPool.Get(hash); ok {
				continue
			}
			getData.AddInvVect(iv)
		}
	}
	if len(getData.InvList) > 0 {
		p.QueueMessage(getData)
	}
}

// allowAnnouncement enforces maxBlockAnnouncementsPerMinute, rolling the
// window forward once a minute has elapsed since it started.
func (s *peerSyncState) allowAnnouncement(now time.Time) bool {
	if now.Sub(s.announceWindowStart) > time.Minute {
		s.announceWindowStart = now
		s.announceCount = 0
	}
	if s.announceCount >= maxBlockAnnouncementsPerMinute {
		return false
	}
	s.announceCount++
	return true
}

// handleBlockMsg submits a received block body to the chain store and
// relays the new tip to the rest of the peer set on success.
func (m *SyncManager) handleBlockMsg(msg *wire.MsgBlock, p *peer.Peer) {
	hash := msg.BlockHash()
	if state, ok := m.peerStates[p]; ok {
		delete(state.requestedBlocks, hash)
	}
	delete(m.requestedBlocks, hash)

	prevTip := m.chain.Tip()
	err := m.chain.ProcessBlock(msg, time.Now())
	switch err {
	case nil:
		newTip := m.chain.Tip()
		if newTip != nil && (prevTip == nil || newTip.Hash != prevTip.Hash) {
			if m.peerNotifier != nil {
				m.peerNotifier.UpdatePeerHeights(newTip.Hash, newTip.Height, p)
				m.peerNotifier.RelayInventory(wire.InvTypeBlock, newTip.Hash)
			}
			m.txMemPool.RemoveConfirmed(msg.Transactions)
		}
	case chainstore.ErrOrphanBlock, chainstore.ErrDuplicateBlock:
		// Nothing further to do: an orphan will be promoted once its
		// parent arrives, a duplicate is already accounted for.
	default:
		log.Warnf("rejected block %s from peer %s: %v", hash, p.Addr(), err)
		if m.stats != nil {
			m.stats.Record(err)
		}
	}
}

// handleTxMsg admits a received transaction to the mempool and relays it
// on success.
func (m *SyncManager) handleTxMsg(tx *wire.MsgTx, p *peer.Peer) {
	hash := tx.TxHash()
	_, err := m.txMemPool.Admit(tx, time.Now())
	if err != nil {
		m.rejectedTxns[hash] = struct{}{}
		log.Debugf("rejected tx %s from peer %s: %v", hash, p.Addr(), err)
		if m.stats != nil {
			m.stats.Record(err)
		}
		return
	}
	if m.peerNotifier != nil {
		m.peerNotifier.RelayInventory(wire.InvTypeTx, hash)
	}
}
