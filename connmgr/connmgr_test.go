// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/peerdiversity"
	"github.com/astram-project/astramd/wire"
)

func TestAcceptLoopRejectsOverInboundLimit(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var accepted int

	cm, err := New(&Config{
		Listeners: []net.Listener{listener},
		OnConnect: func(conn net.Conn, addr string, inbound bool) {
			mu.Lock()
			accepted++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	cm.Start()
	defer cm.Stop()

	// Four connections from the same loopback source IP; the fourth
	// must be rejected under the per-IP < 3 inbound bound.
	var conns []net.Conn
	for i := 0; i < 4; i++ {
		c, err := net.Dial("tcp", listener.Addr().String())
		require.NoError(t, err)
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return accepted == 3
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, accepted)
}

// fixedAddrSource hands out loopback addresses directly, bypassing
// addrmgr's IsRoutable filter so the outbound loop can be exercised
// entirely over 127.0.0.1.
type fixedAddrSource struct {
	mu      sync.Mutex
	pending []*wire.NetAddress
}

func (s *fixedAddrSource) GetAddress(exclude map[string]struct{}) (*wire.NetAddress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	na := s.pending[0]
	s.pending = s.pending[1:]
	return na, true
}

func TestOutboundLoopDialsUpToTarget(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	_, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	source := &fixedAddrSource{pending: []*wire.NetAddress{
		wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), uint16(port), wire.SFNodeNetwork),
	}}

	var mu sync.Mutex
	connected := 0
	cm, err := New(&Config{
		TargetOutbound: 1,
		AddrSource:     source,
		Diversity:      peerdiversity.New(),
		OnConnect: func(conn net.Conn, addr string, inbound bool) {
			mu.Lock()
			connected++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	cm.Start()
	defer cm.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connected >= 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestBanExpiresAfterDuration(t *testing.T) {
	cm, err := New(&Config{BanDuration: 20 * time.Millisecond})
	require.NoError(t, err)

	ip := net.ParseIP("203.0.113.7")
	cm.Ban(ip)
	require.True(t, cm.IsBanned(ip))

	time.Sleep(30 * time.Millisecond)
	require.False(t, cm.IsBanned(ip))
}
