// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync/atomic"
	"time"

	"github.com/astram-project/astramd/wire"
)

// maxProtocolViolations disconnects a peer after this many dispatch
// errors. A read error, including a frame over its command's payload
// cap, ends the read loop at once instead of counting here. A
// disconnect for violations records no ban: nothing in the node calls
// connmgr.ConnManager.Ban.
const maxProtocolViolations = 10

// inHandler is the Ready-state read loop: it applies the per-peer idle
// timeout, dispatches each message to the configured listener, and
// disconnects after too many protocol violations.
func (p *Peer) inHandler() {
	p.conn.SetReadDeadline(time.Now().Add(IdleTimeout))

	for {
		select {
		case <-p.quit:
			return
		default:
		}

		msg, _, err := wire.ReadMessage(p.conn, wire.ProtocolVersion, p.cfg.ChainParams.Net)
		if err != nil {
			log.Debugf("read error from peer %s: %v", p.Addr(), err)
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(IdleTimeout))

		if err := p.dispatch(msg); err != nil {
			log.Warnf("protocol violation from peer %s: %v", p.Addr(), err)
			if p.violate() {
				return
			}
		}
	}
}

func (p *Peer) dispatch(msg wire.Message) error {
	switch m := msg.(type) {
	case *wire.MsgGetHeaders:
		if fn := p.cfg.Listeners.OnGetHeaders; fn != nil {
			fn(p, m)
		}
	case *wire.MsgHeaders:
		if fn := p.cfg.Listeners.OnHeaders; fn != nil {
			fn(p, m)
		}
	case *wire.MsgInv:
		if fn := p.cfg.Listeners.OnInv; fn != nil {
			fn(p, m)
		}
	case *wire.MsgGetData:
		if fn := p.cfg.Listeners.OnGetData; fn != nil {
			fn(p, m)
		}
	case *wire.MsgBlock:
		if fn := p.cfg.Listeners.OnBlock; fn != nil {
			fn(p, m)
		}
	case *wire.MsgTx:
		if fn := p.cfg.Listeners.OnTx; fn != nil {
			fn(p, m)
		}
	case *wire.MsgPing:
		p.QueueMessage(wire.NewMsgPong(m.Nonce))
	case *wire.MsgPong:
		p.handlePong(m)
	case *wire.MsgHandshake, *wire.MsgHandshakeAck, *wire.MsgVersion, *wire.MsgVerAck:
		// Unsolicited handshake-leg messages after Ready are a
		// violation.
		return fmt.Errorf("unexpected %s after handshake", msg.Command())
	default:
		// Everything else recognized by wire but not listed above
		// (e.g. Addr/GetAddr/NotFound) is not wired to a listener and
		// is silently ignored rather than penalized.
	}
	return nil
}

func (p *Peer) handlePong(m *wire.MsgPong) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m.Nonce != p.lastPingNonce {
		return
	}
	p.latency = time.Since(p.lastPingSent)
}

func (p *Peer) violate() bool {
	violations := atomic.AddInt32(&p.protocolViolations, 1)
	return violations >= maxProtocolViolations
}

// outHandler drains the outbound queue onto the wire until the peer is
// torn down.
func (p *Peer) outHandler() {
	for {
		select {
		case msg := <-p.outQueue:
			if err := wire.WriteMessage(p.conn, msg, wire.ProtocolVersion, p.cfg.ChainParams.Net); err != nil {
				log.Debugf("write error to peer %s: %v", p.Addr(), err)
				p.Disconnect()
				return
			}
		case <-p.quit:
			return
		}
	}
}

// pingHandler sends a keepalive Ping every IdlePingInterval, whether
// or not other traffic has flowed in the meantime.
func (p *Peer) pingHandler() {
	ticker := time.NewTicker(IdlePingInterval)
	defer ticker.Stop()

	var nonce uint64
	for {
		select {
		case <-ticker.C:
			nonce++
			p.PushPingMsg(nonce)
		case <-p.quit:
			return
		}
	}
}

func (p *Peer) teardown() {
	p.Disconnect()
	close(p.disconnected)
}
