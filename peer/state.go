// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// State is a peer's position in the handshake/session state machine.
type State int32

const (
	// StateDialing is the initial state: an outbound connection that has
	// not yet sent its Handshake, or an inbound one that has not yet
	// received one.
	StateDialing State = iota

	// StateAwaitingHandshakeAck is an inbound connection that has
	// received a Handshake and sent HandshakeAck, now waiting for the
	// Version/VerAck leg, or an outbound connection that has sent its
	// Handshake and waits for the HandshakeAck and then that leg.
	StateAwaitingHandshakeAck

	// StateReady is a fully negotiated peer exchanging application
	// messages (GetHeaders, Headers, Inv, GetData, Block, Tx, Ping/Pong).
	StateReady

	// StateSyncing names a Ready peer that is the active header/body
	// sync source. No code sets it: netsync tracks its sync peer in its
	// own state and keeps every peer at StateReady.
	StateSyncing

	// StateBanned names a banned peer. No code sets it; bans are kept
	// as an IP ban list by connmgr.ConnManager, which refuses both
	// inbound acceptance and outbound dialing while a ban lasts.
	StateBanned
)

func (s State) String() string {
	switch s {
	case StateDialing:
		return "dialing"
	case StateAwaitingHandshakeAck:
		return "awaiting-handshake-ack"
	case StateReady:
		return "ready"
	case StateSyncing:
		return "syncing"
	case StateBanned:
		return "banned"
	default:
		return "unknown"
	}
}
