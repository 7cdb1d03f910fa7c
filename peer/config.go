// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"time"

	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/wire"
)

// HandshakeTimeout is the hard cap the AwaitingHandshakeAck state
// imposes: a peer that has not completed Handshake/HandshakeAck/
// Version/VerAck within this window is disconnected.
const HandshakeTimeout = 30 * time.Second

// IdlePingInterval is how often Ready sends a keepalive Ping, whether
// or not other traffic is flowing.
const IdlePingInterval = 2 * time.Minute

// IdleTimeout disconnects a peer that sends nothing at all, not even a
// Pong, for this long.
const IdleTimeout = 10 * time.Minute

// announceLRUSize bounds the per-peer duplicate-announcement
// suppression cache.
const announceLRUSize = 5000

// MessageListeners defines callback function pointers the consumer of
// a Peer can set to be notified of various state changes and
// messages. Any unset listener is simply skipped.
type MessageListeners struct {
	OnGetHeaders func(p *Peer, msg *wire.MsgGetHeaders)
	OnHeaders    func(p *Peer, msg *wire.MsgHeaders)
	OnInv        func(p *Peer, msg *wire.MsgInv)
	OnGetData    func(p *Peer, msg *wire.MsgGetData)
	OnBlock      func(p *Peer, msg *wire.MsgBlock)
	OnTx         func(p *Peer, msg *wire.MsgTx)
}

// Config is the struct that contains the options for a new Peer, the same
// shape the pack's peer.Config carries (UserAgentName/UserAgentVersion/
// ChainParams/Services/Listeners), generalized to Astram's explicit
// Handshake/HandshakeAck leg ahead of Version/VerAck.
type Config struct {
	// ChainParams identifies the network this peer must agree on at
	// handshake (NetworkID/ChainID); a mismatch rejects the handshake.
	ChainParams *chaincfg.Params

	// Services advertised in the Handshake message's features field.
	Services wire.ServiceFlag

	// UserAgentName and UserAgentVersion identify this node's software
	// in the Version message.
	UserAgentName    string
	UserAgentVersion string

	// ListenPort is advertised in the Handshake message so the remote
	// peer can offer it back out to other peers as a dialable address.
	ListenPort uint16

	// BestHeight returns the node's current best chain height, sampled
	// fresh for every outgoing Handshake/HandshakeAck.
	BestHeight func() uint64

	Listeners MessageListeners
}
