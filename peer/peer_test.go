// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/astramutil"
	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/wire"
)

func testChainParams() *chaincfg.Params {
	return &chaincfg.Params{
		Name:      "test",
		Net:       wire.SimNet,
		NetworkID: "Astram-test",
		ChainID:   9999,
	}
}

// TestHandshakeCompletesBothSides dials a real loopback TCP connection
// and drives both the inbound and outbound sides of the handshake state
// machine through Handshake/HandshakeAck/Version/VerAck, the same
// pattern the pack's peer/example_test.go exercises.
func TestHandshakeCompletesBothSides(t *testing.T) {
	params := testChainParams()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	var inboundPeer *Peer
	accepted := make(chan struct{})
	go func() {
		conn, err := listener.Accept()
		require.NoError(t, err)
		inboundPeer = NewInboundPeer(&Config{
			ChainParams: params,
			BestHeight:  func() uint64 { return 5 },
		})
		require.NoError(t, inboundPeer.AssociateConnection(conn))
		close(accepted)
	}()

	outboundPeer, err := NewOutboundPeer(&Config{
		ChainParams:      params,
		UserAgentName:    "astramd",
		UserAgentVersion: "0.1.0",
		BestHeight:       func() uint64 { return 3 },
	}, listener.Addr().String())
	require.NoError(t, err)

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, outboundPeer.AssociateConnection(conn))

	<-accepted

	require.Eventually(t, func() bool {
		return outboundPeer.State() == StateReady
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return inboundPeer.State() == StateReady
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, uint64(5), outboundPeer.Height())
	require.Equal(t, uint64(3), inboundPeer.Height())

	outboundPeer.Disconnect()
	inboundPeer.Disconnect()
	outboundPeer.WaitForDisconnect()
	inboundPeer.WaitForDisconnect()
}

// TestHandshakeRejectsNetworkMismatch confirms a peer announcing a
// different network_id is refused and disconnected at handshake.
func TestHandshakeRejectsNetworkMismatch(t *testing.T) {
	serverParams := testChainParams()
	clientParams := testChainParams()
	clientParams.NetworkID = "Astram-other"

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	var inboundPeer *Peer
	accepted := make(chan struct{})
	go func() {
		conn, err := listener.Accept()
		require.NoError(t, err)
		inboundPeer = NewInboundPeer(&Config{ChainParams: serverParams})
		require.NoError(t, inboundPeer.AssociateConnection(conn))
		close(accepted)
	}()

	outboundPeer, err := NewOutboundPeer(&Config{ChainParams: clientParams}, listener.Addr().String())
	require.NoError(t, err)
	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, outboundPeer.AssociateConnection(conn))

	<-accepted

	done := make(chan struct{})
	go func() {
		inboundPeer.WaitForDisconnect()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("inbound peer did not disconnect after network mismatch")
	}
	require.NotEqual(t, StateReady, inboundPeer.State())
	outboundPeer.WaitForDisconnect()
}

// TestMarkAnnouncedSuppressesDuplicates exercises the per-peer
// duplicate-announcement LRU directly.
func TestMarkAnnouncedSuppressesDuplicates(t *testing.T) {
	p := newPeer(&Config{ChainParams: testChainParams()}, "", true)

	hash := astramutil.Hash256{0x01}
	require.True(t, p.MarkAnnounced(hash))
	require.False(t, p.MarkAnnounced(hash))
}
