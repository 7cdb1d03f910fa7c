// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"time"

	"github.com/astram-project/astramd/wire"
)

// handshakeHandler drives the Dialing/AwaitingHandshakeAck legs of the
// peer state machine, then falls through to the Ready message pump.
// The whole handshake is bounded by HandshakeTimeout; any error at any
// step disconnects the peer.
func (p *Peer) handshakeHandler() {
	defer p.teardown()

	p.conn.SetReadDeadline(time.Now().Add(HandshakeTimeout))

	var err error
	if p.inbound {
		err = p.negotiateInbound()
	} else {
		err = p.negotiateOutbound()
	}
	if err != nil {
		log.Debugf("handshake with %s failed: %v", p.Addr(), err)
		return
	}

	p.conn.SetReadDeadline(time.Time{})
	p.setState(StateReady)
	p.mu.Lock()
	p.connectedAt = time.Now()
	p.mu.Unlock()
	close(p.connected)

	go p.outHandler()
	go p.pingHandler()
	p.inHandler()
}

func (p *Peer) negotiateOutbound() error {
	handshake := wire.NewMsgHandshake(p.cfg.ChainParams.NetworkID, p.cfg.ChainParams.ChainID, p.bestHeight(), p.cfg.ListenPort, p.cfg.Services)
	if err := wire.WriteMessage(p.conn, handshake, wire.ProtocolVersion, p.cfg.ChainParams.Net); err != nil {
		return err
	}
	p.setState(StateAwaitingHandshakeAck)

	msg, _, err := wire.ReadMessage(p.conn, wire.ProtocolVersion, p.cfg.ChainParams.Net)
	if err != nil {
		return err
	}
	ack, ok := msg.(*wire.MsgHandshakeAck)
	if !ok {
		return fmt.Errorf("expected handshake-ack, got %s", msg.Command())
	}
	if !ack.Accepted {
		return fmt.Errorf("handshake rejected: %s", ack.Reason)
	}
	if err := p.checkNetworkIdentity(ack.NetworkID, ack.ChainID); err != nil {
		return err
	}
	p.recordRemoteHeight(ack.Height)

	return p.exchangeVersion()
}

func (p *Peer) negotiateInbound() error {
	msg, _, err := wire.ReadMessage(p.conn, wire.ProtocolVersion, p.cfg.ChainParams.Net)
	if err != nil {
		return err
	}
	handshake, ok := msg.(*wire.MsgHandshake)
	if !ok {
		return fmt.Errorf("expected handshake, got %s", msg.Command())
	}

	if err := p.checkNetworkIdentity(handshake.NetworkID, handshake.ChainID); err != nil {
		reject := wire.NewMsgHandshakeReject(err.Error())
		wire.WriteMessage(p.conn, reject, wire.ProtocolVersion, p.cfg.ChainParams.Net)
		return err
	}
	p.recordRemoteHeight(handshake.Height)

	p.setState(StateAwaitingHandshakeAck)
	ack := wire.NewMsgHandshakeAck(p.cfg.ChainParams.NetworkID, p.cfg.ChainParams.ChainID, p.bestHeight(), p.cfg.ListenPort, p.cfg.Services)
	if err := wire.WriteMessage(p.conn, ack, wire.ProtocolVersion, p.cfg.ChainParams.Net); err != nil {
		return err
	}

	return p.exchangeVersion()
}

// checkNetworkIdentity rejects cross-network peers: a mismatched
// net_id/chain_id is refused at handshake.
func (p *Peer) checkNetworkIdentity(networkID string, chainID uint32) error {
	if networkID != p.cfg.ChainParams.NetworkID || chainID != p.cfg.ChainParams.ChainID {
		return fmt.Errorf("network mismatch: got (%s, %d), want (%s, %d)",
			networkID, chainID, p.cfg.ChainParams.NetworkID, p.cfg.ChainParams.ChainID)
	}
	return nil
}

// exchangeVersion sends our Version and waits to receive the remote's
// Version (replying with VerAck) and the remote's VerAck, in whichever
// order they arrive, completing the AwaitingHandshakeAck leg.
func (p *Peer) exchangeVersion() error {
	ourVersion := wire.NewMsgVersion(p.cfg.Services, p.cfg.UserAgentName+"/"+p.cfg.UserAgentVersion)
	if err := wire.WriteMessage(p.conn, ourVersion, wire.ProtocolVersion, p.cfg.ChainParams.Net); err != nil {
		return err
	}

	var gotVersion, gotVerAck bool
	for !gotVersion || !gotVerAck {
		msg, _, err := wire.ReadMessage(p.conn, wire.ProtocolVersion, p.cfg.ChainParams.Net)
		if err != nil {
			return err
		}
		switch msg.(type) {
		case *wire.MsgVersion:
			gotVersion = true
			if err := wire.WriteMessage(p.conn, wire.NewMsgVerAck(), wire.ProtocolVersion, p.cfg.ChainParams.Net); err != nil {
				return err
			}
		case *wire.MsgVerAck:
			gotVerAck = true
		default:
			return fmt.Errorf("expected version/verack, got %s", msg.Command())
		}
	}
	return nil
}

func (p *Peer) bestHeight() uint64 {
	if p.cfg.BestHeight == nil {
		return 0
	}
	return p.cfg.BestHeight()
}

func (p *Peer) recordRemoteHeight(height uint64) {
	p.mu.Lock()
	p.height = height
	p.mu.Unlock()
}
