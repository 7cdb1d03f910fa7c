// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerdiversity

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanAcceptInboundEnforcesPerIPLimit(t *testing.T) {
	tr := New()
	ip := net.ParseIP("203.0.113.7")
	for i := 0; i < 3; i++ {
		require.True(t, tr.CanAcceptInbound(ip))
		tr.AddInbound(ip)
	}
	require.False(t, tr.CanAcceptInbound(ip))
}

func TestCanAcceptInboundEnforcesPer24Limit(t *testing.T) {
	tr := New()
	tr.AddInbound(net.ParseIP("203.0.113.1"))
	tr.AddInbound(net.ParseIP("203.0.113.2"))
	require.False(t, tr.CanAcceptInbound(net.ParseIP("203.0.113.3")))
	require.True(t, tr.CanAcceptInbound(net.ParseIP("203.0.200.3")))
}

func TestCanAcceptInboundEnforcesPer16Limit(t *testing.T) {
	tr := New()
	tr.AddInbound(net.ParseIP("203.0.1.1"))
	tr.AddInbound(net.ParseIP("203.0.2.1"))
	tr.AddInbound(net.ParseIP("203.0.3.1"))
	tr.AddInbound(net.ParseIP("203.0.4.1"))
	require.False(t, tr.CanAcceptInbound(net.ParseIP("203.0.5.1")))
}

func TestRemoveInboundCleansTablesImmediately(t *testing.T) {
	tr := New()
	ip := net.ParseIP("203.0.113.7")
	tr.AddInbound(ip)
	tr.AddInbound(ip)
	tr.AddInbound(ip)
	require.False(t, tr.CanAcceptInbound(ip))

	tr.RemoveInbound(ip)
	require.True(t, tr.CanAcceptInbound(ip))
}

func TestNeedsOutboundDiversity(t *testing.T) {
	tr := New()
	require.True(t, tr.NeedsOutboundDiversity(8))

	tr.AddOutbound(net.ParseIP("203.0.1.1"))
	tr.AddOutbound(net.ParseIP("204.0.1.1"))
	tr.AddOutbound(net.ParseIP("205.0.1.1"))
	for i := 0; i < 5; i++ {
		tr.AddOutbound(net.ParseIP("205.0.1.1"))
	}
	require.Equal(t, 8, tr.outboundTotal)
	require.False(t, tr.NeedsOutboundDiversity(8))
}
