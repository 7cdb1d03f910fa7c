// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the per-connection handshake state machine
// and message pump: Dialing sends Handshake, AwaitingHandshakeAck
// exchanges HandshakeAck then Version/VerAck, and Ready/Syncing
// exchange the application message set (GetHeaders, Headers, Inv,
// GetData, Block, Tx, Ping/Pong).
package peer

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/lru"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/wire"
)

// ErrAlreadyConnected is returned by AssociateConnection when called more
// than once on the same Peer.
var ErrAlreadyConnected = errors.New("peer: connection already associated")

// Stats is a point-in-time snapshot of a peer's scoring inputs, used
// to compute a composite score weighted 0.3 height rank, 0.2 uptime
// rank, 0.5 latency rank. Peer reports the raw ingredients; ranking
// across the peer set, being relative, is the peer manager's job.
type Stats struct {
	Height    uint64
	Connected time.Time
	Latency   time.Duration
	State     State
	Inbound   bool
	Addr      string
}

// Peer represents an Astram P2P connection to a remote node.
type Peer struct {
	cfg  Config
	conn net.Conn
	addr string

	inbound bool
	state   int32 // State, accessed atomically

	connected   chan struct{}
	quit        chan struct{}
	quitOnce    sync.Once
	disconnected chan struct{}

	outQueue chan wire.Message

	mu             sync.Mutex
	height         uint64
	connectedAt    time.Time
	latency        time.Duration
	lastPingNonce  uint64
	lastPingSent   time.Time
	handshakeStart time.Time

	announced *lru.Cache[astramutil.Hash256]

	protocolViolations int32
}

// NewOutboundPeer returns a new Peer in StateDialing for an outbound
// connection to addr. The caller must still call AssociateConnection
// once net.Dial succeeds.
func NewOutboundPeer(cfg *Config, addr string) (*Peer, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("peer: invalid address %q: %w", addr, err)
	}
	return newPeer(cfg, addr, false), nil
}

// NewInboundPeer returns a new Peer for a connection accepted by a
// listener. The caller must still call AssociateConnection with the
// accepted net.Conn.
func NewInboundPeer(cfg *Config) *Peer {
	return newPeer(cfg, "", true)
}

func newPeer(cfg *Config, addr string, inbound bool) *Peer {
	return &Peer{
		cfg:          *cfg,
		addr:         addr,
		inbound:      inbound,
		state:        int32(StateDialing),
		connected:    make(chan struct{}),
		quit:         make(chan struct{}),
		disconnected: make(chan struct{}),
		outQueue:     make(chan wire.Message, 50),
		announced:    lru.New[astramutil.Hash256](announceLRUSize),
	}
}

// Addr returns the peer's remote address.
func (p *Peer) Addr() string {
	if p.conn != nil {
		return p.conn.RemoteAddr().String()
	}
	return p.addr
}

// Inbound reports whether the connection was accepted rather than dialed.
func (p *Peer) Inbound() bool { return p.inbound }

// State returns the peer's current handshake/session state.
func (p *Peer) State() State { return State(atomic.LoadInt32(&p.state)) }

func (p *Peer) setState(s State) { atomic.StoreInt32(&p.state, int32(s)) }

// Height returns the peer's last-announced chain height.
func (p *Peer) Height() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// Stats returns a snapshot of the peer's current scoring inputs.
func (p *Peer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Height:    p.height,
		Connected: p.connectedAt,
		Latency:   p.latency,
		State:     p.State(),
		Inbound:   p.inbound,
		Addr:      p.Addr(),
	}
}

// MarkAnnounced records that hash has been advertised to this peer
// already, for per-peer duplicate-announcement suppression. It
// returns true if this is the first time hash has been seen for this
// peer.
func (p *Peer) MarkAnnounced(hash astramutil.Hash256) bool {
	if p.announced.Contains(hash) {
		return false
	}
	p.announced.Add(hash)
	return true
}

// AssociateConnection binds conn to the peer and starts its handshake
// and message pump goroutines. For an outbound peer this sends the
// initial Handshake; for an inbound peer it waits to receive one.
func (p *Peer) AssociateConnection(conn net.Conn) error {
	if p.conn != nil {
		return ErrAlreadyConnected
	}
	p.conn = conn
	p.mu.Lock()
	p.handshakeStart = time.Now()
	p.mu.Unlock()

	go p.handshakeHandler()

	return nil
}

// Disconnect closes the peer's connection and stops its goroutines. Safe
// to call more than once and from any goroutine.
func (p *Peer) Disconnect() {
	p.quitOnce.Do(func() {
		close(p.quit)
		if p.conn != nil {
			p.conn.Close()
		}
	})
}

// WaitForDisconnect blocks until the peer's goroutines have fully torn
// down.
func (p *Peer) WaitForDisconnect() {
	<-p.disconnected
}

// WaitForReady returns a channel that closes once the peer reaches
// StateReady, for a caller (the node-assembly layer's connection
// handler) that must not hand the peer to the sync manager until its
// handshake has actually completed. Closes immediately if the peer
// disconnects before ever becoming ready.
func (p *Peer) WaitForReady() <-chan struct{} {
	ready := make(chan struct{})
	go func() {
		select {
		case <-p.connected:
		case <-p.disconnected:
		}
		close(ready)
	}()
	return ready
}

// QueueMessage adds msg to the outbound queue. It drops the message and
// returns false if the queue is full. No peer score is kept, so the
// drop is only logged.
func (p *Peer) QueueMessage(msg wire.Message) bool {
	select {
	case p.outQueue <- msg:
		return true
	case <-p.quit:
		return false
	default:
		log.Debugf("outbound queue full for peer %s, dropping %s", p.Addr(), msg.Command())
		return false
	}
}

// PushGetHeadersMsg is a convenience wrapper queuing a GetHeaders request.
func (p *Peer) PushGetHeadersMsg(locator []astramutil.Hash256, hashStop astramutil.Hash256) bool {
	msg := wire.NewMsgGetHeaders()
	for _, h := range locator {
		msg.AddBlockLocatorHash(h)
	}
	msg.HashStop = hashStop
	return p.QueueMessage(msg)
}

// PushInvMsg is a convenience wrapper queuing an Inv announcement,
// skipping any hash already marked announced to this peer.
func (p *Peer) PushInvMsg(invType wire.InvType, hashes []astramutil.Hash256) bool {
	msg := wire.NewMsgInv()
	for _, h := range hashes {
		if !p.MarkAnnounced(h) {
			continue
		}
		msg.AddInvVect(wire.NewInvVect(invType, h))
	}
	if len(msg.InvList) == 0 {
		return true
	}
	return p.QueueMessage(msg)
}

// PushPingMsg sends a Ping carrying a fresh nonce and records the send
// time for latency measurement when the matching Pong arrives.
func (p *Peer) PushPingMsg(nonce uint64) bool {
	p.mu.Lock()
	p.lastPingNonce = nonce
	p.lastPingSent = time.Now()
	p.mu.Unlock()
	return p.QueueMessage(wire.NewMsgPing(nonce))
}
