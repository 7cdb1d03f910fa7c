// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package app

import (
	"net"
	"strconv"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/peer"
	"github.com/astram-project/astramd/wire"
)

// peerConfig returns a fresh peer.Config wired to dispatch every
// incoming protocol message to the sync manager, the same
// Listeners-to-Queue* wiring the loopback test in
// netsync/manager_test.go demonstrates by hand.
func (n *Node) peerConfig() *peer.Config {
	return &peer.Config{
		ChainParams:      n.params,
		Services:         wire.SFNodeNetwork,
		UserAgentName:    userAgentName,
		UserAgentVersion: userAgentVersion,
		ListenPort:       n.listenPort(),
		BestHeight:       func() uint64 { return uint64(n.chain.TipHeight()) },
		Listeners: peer.MessageListeners{
			OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) { n.syncManager.QueueGetHeaders(msg, p) },
			OnHeaders:    func(p *peer.Peer, msg *wire.MsgHeaders) { n.syncManager.QueueHeaders(msg, p) },
			OnInv:        func(p *peer.Peer, msg *wire.MsgInv) { n.syncManager.QueueInv(msg, p) },
			OnGetData:    n.onGetData,
			OnBlock:      func(p *peer.Peer, msg *wire.MsgBlock) { n.syncManager.QueueBlock(msg, p) },
			OnTx:         func(p *peer.Peer, msg *wire.MsgTx) { n.syncManager.QueueTx(msg, p) },
		},
	}
}

func (n *Node) listenPort() uint16 {
	port, _ := strconv.ParseUint(n.cfg.P2PPort, 10, 16)
	return uint16(port)
}

// onGetData answers a peer's request for specific blocks or
// transactions by hash, serving blocks from the chain store and
// transactions from the mempool -- the same switch the loopback test
// in netsync/manager_test.go demonstrates inline for blocks only, here
// generalized to also serve still-pending transactions.
func (n *Node) onGetData(p *peer.Peer, msg *wire.MsgGetData) {
	for _, iv := range msg.InvList {
		hash := astramutil.Hash256(iv.Hash)
		switch iv.Type {
		case wire.InvTypeBlock:
			blk, err := n.chain.GetBlock(hash)
			if err == nil {
				p.QueueMessage(blk)
			}
		case wire.InvTypeTx:
			if desc, ok := n.pool.Get(hash); ok {
				p.QueueMessage(desc.Tx)
			}
		}
	}
}

// onConnect is the connmgr.Config.OnConnect callback: it builds the
// protocol-level peer.Peer over conn, associates the connection, and
// hands off to watchPeer to register it with the sync manager once
// its handshake completes.
func (n *Node) onConnect(conn net.Conn, addr string, inbound bool) {
	var p *peer.Peer
	if inbound {
		p = peer.NewInboundPeer(n.peerConfig())
	} else {
		var err error
		p, err = peer.NewOutboundPeer(n.peerConfig(), addr)
		if err != nil {
			log.Warnf("invalid outbound peer address %s: %v", addr, err)
			conn.Close()
			return
		}
	}

	if err := p.AssociateConnection(conn); err != nil {
		log.Warnf("associating connection to %s: %v", addr, err)
		return
	}

	go n.watchPeer(p, addr, inbound)
}

// watchPeer waits for p's handshake to complete (or fail) and, if it
// succeeded, registers p with the sync manager and the relay set for
// the rest of the connection's lifetime, deregistering once p
// disconnects.
func (n *Node) watchPeer(p *peer.Peer, addr string, inbound bool) {
	<-p.WaitForReady()
	if p.State() != peer.StateReady {
		return
	}

	n.peersMu.Lock()
	n.peers[addr] = p
	n.peersMu.Unlock()
	n.syncManager.NewPeer(p)

	p.WaitForDisconnect()

	n.peersMu.Lock()
	delete(n.peers, addr)
	n.peersMu.Unlock()
	n.syncManager.DonePeer(p)

	host, _, err := net.SplitHostPort(addr)
	ip := net.ParseIP(host)
	if err != nil || ip == nil {
		return
	}
	if inbound {
		n.connManager.DisconnectedInbound(ip)
	} else {
		n.connManager.Disconnected(addr, ip)
	}
}
