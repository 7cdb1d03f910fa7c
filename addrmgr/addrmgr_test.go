// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/wire"
)

func TestIsRoutableExcludesPrivateAndLoopback(t *testing.T) {
	require.False(t, IsRoutable(net.ParseIP("127.0.0.1")))
	require.False(t, IsRoutable(net.ParseIP("10.0.0.5")))
	require.False(t, IsRoutable(net.ParseIP("192.168.1.5")))
	require.False(t, IsRoutable(net.ParseIP("169.254.1.1")))
	require.False(t, IsRoutable(net.ParseIP("100.64.1.1")))
	require.True(t, IsRoutable(net.ParseIP("8.8.8.8")))
}

func TestGroupKeysAreSubnetPrefixes(t *testing.T) {
	a := net.ParseIP("203.0.113.7")
	b := net.ParseIP("203.0.113.200")
	c := net.ParseIP("203.0.200.7")

	require.Equal(t, GroupKey16(a), GroupKey16(b))
	require.Equal(t, GroupKey16(a), GroupKey16(c))
	require.Equal(t, GroupKey24(a), GroupKey24(b))
	require.NotEqual(t, GroupKey24(a), GroupKey24(c))
}

func TestAddAddressesSkipsUnroutable(t *testing.T) {
	m := New(8335)
	m.AddAddresses([]*wire.NetAddress{
		wire.NewNetAddressIPPort(net.ParseIP("203.0.113.7"), 8335, wire.SFNodeNetwork),
		wire.NewNetAddressIPPort(net.ParseIP("10.0.0.1"), 8335, wire.SFNodeNetwork),
	})
	require.Equal(t, 1, m.Count())
}

func TestGetAddressExcludesGroups(t *testing.T) {
	m := New(8335)
	m.AddAddresses([]*wire.NetAddress{
		wire.NewNetAddressIPPort(net.ParseIP("203.0.113.7"), 8335, wire.SFNodeNetwork),
	})

	excluded := map[string]struct{}{GroupKey16(net.ParseIP("203.0.113.7")): {}}
	_, ok := m.GetAddress(excluded)
	require.False(t, ok)

	na, ok := m.GetAddress(nil)
	require.True(t, ok)
	require.Equal(t, "203.0.113.7", na.IP.String())
}

func TestMarkAttemptBacksOffRepeatedFailures(t *testing.T) {
	m := New(8335)
	m.AddAddresses([]*wire.NetAddress{
		wire.NewNetAddressIPPort(net.ParseIP("203.0.113.7"), 8335, wire.SFNodeNetwork),
	})
	addr := net.JoinHostPort("203.0.113.7", "8335")
	for i := 0; i < 4; i++ {
		m.MarkAttempt(addr, false)
	}
	_, ok := m.GetAddress(nil)
	require.False(t, ok)

	m.mu.Lock()
	m.addrs[addr].lastAttempt = time.Now().Add(-time.Hour)
	m.mu.Unlock()
	_, ok = m.GetAddress(nil)
	require.True(t, ok)
}
