// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netsync implements header-first chain sync: a single actor
// goroutine serializes NewPeer/DonePeer/Headers/Inv/Block/Tx events
// from every connected peer, requests headers by locator, validates
// each header individually before asking for its body, and fetches
// bodies in parallel from up to maxSyncPeers peers within a bounded
// in-flight window. Headers are validated against consensus/chainstore
// directly, and chainstore.ProcessBlock's own orphan handling absorbs
// any body that arrives out of order, rather than this package
// maintaining a parallel headers-only index.
package netsync

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/chaindb"
	"github.com/astram-project/astramd/chainstore"
	"github.com/astram-project/astramd/consensus"
	"github.com/astram-project/astramd/mempool"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/validatorstats"
	"github.com/astram-project/astramd/wire"
)

// defaultMaxSyncPeers bounds how many peers bodies are requested from
// in parallel when Config.MaxPeers leaves it unspecified.
const defaultMaxSyncPeers = 4

// maxBlocksInTransit bounds how many block bodies may be outstanding
// (requested but not yet received) across the whole peer set at once, to
// bound memory while a window of bodies is in flight.
const maxBlocksInTransit = 128

// maxBlockAnnouncementsPerMinute caps inbound block Inv announcements
// per peer; excess announcements are silently dropped rather than
// decrementing score, since a legitimate peer relaying a busy chain
// can exceed this during a burst.
const maxBlockAnnouncementsPerMinute = 10

// peerSyncState tracks the per-peer bookkeeping the manager needs: which
// block hashes are currently outstanding to this peer, and its recent
// block-announcement rate.
type peerSyncState struct {
	syncCandidate   bool
	requestedBlocks map[astramutil.Hash256]struct{}

	announceWindowStart time.Time
	announceCount       int
}

// SyncManager coordinates chain sync across every connected peer from a
// single actor goroutine; all of its unexported state is only ever
// touched from that goroutine, so none of it needs its own lock.
type SyncManager struct {
	peerNotifier       PeerNotifier
	chain              *chainstore.Store
	txMemPool          *mempool.Pool
	chainParams        *chaincfg.Params
	feeEstimator       *mempool.FeeEstimator
	stats              *validatorstats.Counters
	disableCheckpoints bool
	maxSyncPeers       int

	started  int32
	shutdown int32
	msgChan  chan interface{}
	wg       sync.WaitGroup
	quit     chan struct{}

	// Touched only from the actor goroutine (messageHandler).
	peerStates      map[*peer.Peer]*peerSyncState
	syncPeer        *peer.Peer
	requestedBlocks map[astramutil.Hash256]*peer.Peer
	rejectedTxns    map[astramutil.Hash256]struct{}
}

// New constructs a SyncManager from cfg. Start must be called before it
// processes any events.
func New(cfg *Config) (*SyncManager, error) {
	maxPeers := cfg.MaxPeers
	if maxPeers <= 0 {
		maxPeers = defaultMaxSyncPeers
	}
	return &SyncManager{
		peerNotifier:       cfg.PeerNotifier,
		chain:              cfg.Chain,
		txMemPool:          cfg.TxMemPool,
		chainParams:        cfg.ChainParams,
		feeEstimator:       cfg.FeeEstimator,
		stats:              cfg.Stats,
		disableCheckpoints: cfg.DisableCheckpoints,
		maxSyncPeers:       maxPeers,
		msgChan:            make(chan interface{}, maxPeers*4),
		quit:               make(chan struct{}),
		peerStates:         make(map[*peer.Peer]*peerSyncState),
		requestedBlocks:    make(map[astramutil.Hash256]*peer.Peer),
		rejectedTxns:       make(map[astramutil.Hash256]struct{}),
	}, nil
}

// FeeEstimator returns the estimator this manager was configured with,
// for RPC layers that report fee estimates (may be nil).
func (m *SyncManager) FeeEstimator() *mempool.FeeEstimator {
	return m.feeEstimator
}

// Start begins the actor goroutine. Safe to call only once.
func (m *SyncManager) Start() {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return
	}
	m.wg.Add(1)
	go m.messageHandler()
}

// Stop signals the actor goroutine to exit and waits for it to do so.
func (m *SyncManager) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.shutdown, 0, 1) {
		return nil
	}
	close(m.quit)
	m.wg.Wait()
	return nil
}

// Internal actor messages. Each mirrors one public Queue*/NewPeer/DonePeer
// entry point; the actor goroutine is the only place that reads peerStates,
// syncPeer, or requestedBlocks.
type newPeerMsg struct {
	peer *peer.Peer
}

type donePeerMsg struct {
	peer *peer.Peer
}

type headersMsg struct {
	msg  *wire.MsgHeaders
	peer *peer.Peer
}

type getHeadersMsg struct {
	msg  *wire.MsgGetHeaders
	peer *peer.Peer
}

type invMsg struct {
	msg  *wire.MsgInv
	peer *peer.Peer
}

type blockMsg struct {
	msg  *wire.MsgBlock
	peer *peer.Peer
}

type txMsg struct {
	tx   *wire.MsgTx
	peer *peer.Peer
}

// NewPeer informs the sync manager of a newly Ready peer.
func (m *SyncManager) NewPeer(p *peer.Peer) {
	select {
	case m.msgChan <- newPeerMsg{peer: p}:
	case <-m.quit:
	}
}

// DonePeer informs the sync manager that a peer has disconnected.
func (m *SyncManager) DonePeer(p *peer.Peer) {
	select {
	case m.msgChan <- donePeerMsg{peer: p}:
	case <-m.quit:
	}
}

// QueueHeaders queues a Headers message received from p for processing.
func (m *SyncManager) QueueHeaders(msg *wire.MsgHeaders, p *peer.Peer) {
	select {
	case m.msgChan <- headersMsg{msg: msg, peer: p}:
	case <-m.quit:
	}
}

// QueueGetHeaders queues a GetHeaders request received from p.
func (m *SyncManager) QueueGetHeaders(msg *wire.MsgGetHeaders, p *peer.Peer) {
	select {
	case m.msgChan <- getHeadersMsg{msg: msg, peer: p}:
	case <-m.quit:
	}
}

// QueueInv queues an Inv message received from p.
func (m *SyncManager) QueueInv(msg *wire.MsgInv, p *peer.Peer) {
	select {
	case m.msgChan <- invMsg{msg: msg, peer: p}:
	case <-m.quit:
	}
}

// QueueBlock queues a Block message received from p.
func (m *SyncManager) QueueBlock(msg *wire.MsgBlock, p *peer.Peer) {
	select {
	case m.msgChan <- blockMsg{msg: msg, peer: p}:
	case <-m.quit:
	}
}

// QueueTx queues a Tx message received from p.
func (m *SyncManager) QueueTx(tx *wire.MsgTx, p *peer.Peer) {
	select {
	case m.msgChan <- txMsg{tx: tx, peer: p}:
	case <-m.quit:
	}
}

// IsCurrent reports whether the local chain looks caught up with the
// sync peer's last-announced height, synchronously querying the actor
// goroutine.
func (m *SyncManager) IsCurrent() bool {
	reply := make(chan bool, 1)
	select {
	case m.msgChan <- isCurrentMsg{reply: reply}:
	case <-m.quit:
		return false
	}
	select {
	case v := <-reply:
		return v
	case <-m.quit:
		return false
	}
}

type isCurrentMsg struct {
	reply chan bool
}

// messageHandler is the sole actor goroutine; every field it touches
// outside of m.chain/m.txMemPool (which have their own internal locking)
// is unsynchronized and must only be read here.
func (m *SyncManager) messageHandler() {
	defer m.wg.Done()
	for {
		select {
		case msg := <-m.msgChan:
			switch v := msg.(type) {
			case newPeerMsg:
				m.handleNewPeerMsg(v.peer)
			case donePeerMsg:
				m.handleDonePeerMsg(v.peer)
			case headersMsg:
				m.handleHeadersMsg(v.msg, v.peer)
			case getHeadersMsg:
				m.handleGetHeadersMsg(v.msg, v.peer)
			case invMsg:
				m.handleInvMsg(v.msg, v.peer)
			case blockMsg:
				m.handleBlockMsg(v.msg, v.peer)
			case txMsg:
				m.handleTxMsg(v.tx, v.peer)
			case isCurrentMsg:
				v.reply <- m.current()
			}
		case <-m.quit:
			return
		}
	}
}

// isSyncCandidate reports whether p is eligible to become the sync peer:
// any Ready peer. Its advertised height is not compared with our own.
func (m *SyncManager) isSyncCandidate(p *peer.Peer) bool {
	return p.State() == peer.StateReady
}

// current reports whether the local tip is at or beyond the sync peer's
// last-announced height, or there simply is no sync peer (nothing to
// sync against, so we consider ourselves current).
func (m *SyncManager) current() bool {
	if m.syncPeer == nil {
		return true
	}
	return m.chain.TipHeight() >= int64(m.syncPeer.Height())
}

// handleNewPeerMsg registers p and, if no sync is in progress, starts one
// against it.
func (m *SyncManager) handleNewPeerMsg(p *peer.Peer) {
	if _, ok := m.peerStates[p]; ok {
		return
	}
	m.peerStates[p] = &peerSyncState{
		syncCandidate:   m.isSyncCandidate(p),
		requestedBlocks: make(map[astramutil.Hash256]struct{}),
	}

	if m.syncPeer == nil && m.isSyncCandidate(p) {
		m.startSync(p)
	}
}

// handleDonePeerMsg drops p's bookkeeping and, if p was the sync peer,
// picks a replacement.
func (m *SyncManager) handleDonePeerMsg(p *peer.Peer) {
	state, ok := m.peerStates[p]
	if !ok {
		return
	}
	for hash := range state.requestedBlocks {
		delete(m.requestedBlocks, hash)
	}
	delete(m.peerStates, p)

	if m.syncPeer == p {
		m.syncPeer = nil
		for candidate, st := range m.peerStates {
			if st.syncCandidate {
				m.startSync(candidate)
				break
			}
		}
	}
}

// startSync requests headers from p starting at our current locator.
func (m *SyncManager) startSync(p *peer.Peer) {
	m.syncPeer = p
	locator := m.buildLocator()
	p.PushGetHeadersMsg(locator, astramutil.Hash256{})
}

// buildLocator returns an exponentially back-spaced set of ancestor
// hashes of the active tip: the most recent ten heights, then
// doubling gaps, ending at genesis.
func (m *SyncManager) buildLocator() []astramutil.Hash256 {
	tip := m.chain.Tip()
	if tip == nil {
		return nil
	}

	var locator []astramutil.Hash256
	step := int64(1)
	height := tip.Height
	entry := tip
	for {
		locator = append(locator, entry.Hash)
		if height == 0 {
			break
		}
		if len(locator) >= 10 {
			step *= 2
		}
		height -= step
		if height < 0 {
			height = 0
		}
		e, err := m.ancestorAtHeight(entry, height)
		if err != nil || e == nil {
			break
		}
		entry = e
	}
	return locator
}

// ancestorAtHeight walks PrevHash links back from start until it reaches
// height, the only access chainstore's public API offers into historical
// entries off the active tip's own linkage.
func (m *SyncManager) ancestorAtHeight(start *chaindb.ChainEntry, height int64) (*chaindb.ChainEntry, error) {
	cur := start
	for cur.Height > height {
		parent, err := m.chain.GetChainEntry(cur.PrevHash)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return cur, nil
}

// validateHeader runs the context-free and (when the parent is known)
// contextual checks required before a header is trusted enough to
// request its body: sanity, proof of work, and parent difficulty
// continuity.
func (m *SyncManager) validateHeader(header *wire.BlockHeader, now time.Time) error {
	if err := consensus.CheckHeaderSanity(header, m.chainParams, now); err != nil {
		return err
	}
	hash := header.BlockHash()
	if err := consensus.CheckProofOfWork(hash, header.Difficulty); err != nil {
		return err
	}
	parent, err := m.chain.GetChainEntry(header.PrevBlock)
	if err != nil {
		// Parent not yet known locally; body-level validation through
		// chainstore.ProcessBlock will catch this as an orphan.
		return nil
	}
	if err := consensus.CheckDifficultyDelta(parent.Header.Difficulty, header.Difficulty); err != nil {
		return err
	}
	if !m.disableCheckpoints {
		if cp, ok := m.chainParams.CheckpointAtHeight(parent.Height + 1); ok && cp.Hash != hash {
			return consensus.NewRuleError(consensus.ErrCheckpointViolation,
				"header does not match installed checkpoint")
		}
	}
	return nil
}
