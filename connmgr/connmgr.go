// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/astram-project/astramd/peerdiversity"
	"github.com/astram-project/astramd/wire"
)

// defaultTargetOutbound is the outbound peer count the ≥3-distinct-/16
// diversity requirement is measured against.
const defaultTargetOutbound = 8

// defaultRetryInterval is the base backoff between dial attempts to
// the same address, doubled per recorded failure up to
// maxRetryInterval. No peer score is kept here.
const defaultRetryInterval = 5 * time.Second

// maxRetryInterval caps the exponential backoff so a long-dead seed
// address doesn't starve the dial loop of attempts to freshly learned
// peers.
const maxRetryInterval = 5 * time.Minute

// defaultBanDuration is how long a banned IP is refused both inbound
// acceptance and outbound dialing.
const defaultBanDuration = 24 * time.Hour

// AddrSource supplies candidate outbound addresses, excluding any
// already-represented /16 group when diversity is still unmet.
// addrmgr.Manager satisfies this.
type AddrSource interface {
	GetAddress(excludeGroups map[string]struct{}) (*wire.NetAddress, bool)
}

// Config bundles everything the connection manager needs from the
// rest of the node. It deals only in net.Conn and addresses -- the
// caller constructs the protocol-level peer.Peer from the conn handed
// to OnConnect, keeping this package agnostic of the wire protocol.
type Config struct {
	// TargetOutbound is the number of outbound connections to
	// maintain. Defaults to 8.
	TargetOutbound int

	// Listeners are the addresses to accept inbound connections on.
	Listeners []net.Listener

	// Dial opens an outbound TCP connection. Defaults to net.Dial
	// wrapped with a timeout if nil.
	Dial func(addr string) (net.Conn, error)

	// OnConnect is invoked once a connection (inbound or outbound) is
	// established, for the caller to perform the protocol handshake
	// and register the resulting peer with the sync manager.
	OnConnect func(conn net.Conn, addr string, inbound bool)

	// OnDisconnect is invoked by Disconnected after an outbound
	// connection is torn down (inbound false), so the caller can
	// deregister the peer. DisconnectedInbound does not invoke it.
	OnDisconnect func(addr string, inbound bool)

	// AddrSource supplies candidate outbound peer addresses.
	AddrSource AddrSource

	// Diversity enforces inbound subnet-bucket gating and tracks
	// outbound subnet diversity. Required.
	Diversity *peerdiversity.Tracker

	// BanDuration overrides defaultBanDuration when nonzero.
	BanDuration time.Duration
}

type outboundConn struct {
	addr     string
	conn     net.Conn
	attempts int
	nextTry  time.Time
}

// ConnManager maintains the node's outbound connection set and gates
// inbound acceptance. One goroutine owns the dial loop; accept loops
// run one goroutine per listener and call OnConnect directly for each
// accepted connection. The outbound set and ban list are guarded by mu.
type ConnManager struct {
	cfg Config

	started int32
	stopped int32
	quit    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	outbound map[string]*outboundConn
	banned   map[string]time.Time
}

// New validates cfg and returns a ConnManager ready to Start.
func New(cfg *Config) (*ConnManager, error) {
	if cfg.Diversity == nil {
		cfg.Diversity = peerdiversity.New()
	}
	if cfg.TargetOutbound <= 0 {
		cfg.TargetOutbound = defaultTargetOutbound
	}
	if cfg.Dial == nil {
		cfg.Dial = func(addr string) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, 10*time.Second)
		}
	}
	if cfg.BanDuration <= 0 {
		cfg.BanDuration = defaultBanDuration
	}
	return &ConnManager{
		cfg:      *cfg,
		quit:     make(chan struct{}),
		outbound: make(map[string]*outboundConn),
		banned:   make(map[string]time.Time),
	}, nil
}

// Start launches the accept loop for each configured listener and the
// outbound dial loop.
func (cm *ConnManager) Start() {
	if !atomic.CompareAndSwapInt32(&cm.started, 0, 1) {
		return
	}
	for _, l := range cm.cfg.Listeners {
		cm.wg.Add(1)
		go cm.acceptLoop(l)
	}
	cm.wg.Add(1)
	go cm.outboundLoop()
}

// Stop closes every listener and tears the dial loop down; already
// established connections are left to their owners to close.
func (cm *ConnManager) Stop() {
	if !atomic.CompareAndSwapInt32(&cm.stopped, 0, 1) {
		return
	}
	close(cm.quit)
	for _, l := range cm.cfg.Listeners {
		l.Close()
	}
	cm.wg.Wait()
}

// Ban refuses ip both inbound acceptance and outbound dialing for
// cfg.BanDuration. No peer score is kept, and nothing in the node
// calls Ban on its own.
func (cm *ConnManager) Ban(ip net.IP) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.banned[ip.String()] = time.Now().Add(cm.cfg.BanDuration)
}

// IsBanned reports whether ip is currently under a ban.
func (cm *ConnManager) IsBanned(ip net.IP) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	until, ok := cm.banned[ip.String()]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(cm.banned, ip.String())
		return false
	}
	return true
}

// acceptLoop accepts inbound connections on l, gating each against
// the ban list and the per-IP/-/24/-/16 inbound limits before handing
// it to OnConnect.
func (cm *ConnManager) acceptLoop(l net.Listener) {
	defer cm.wg.Done()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-cm.quit:
				return
			default:
				log.Warnf("accept error on %s: %v", l.Addr(), err)
				continue
			}
		}

		host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if err != nil || ip == nil {
			conn.Close()
			continue
		}
		if cm.IsBanned(ip) {
			conn.Close()
			continue
		}
		if !cm.cfg.Diversity.CanAcceptInbound(ip) {
			conn.Close()
			continue
		}

		cm.cfg.Diversity.AddInbound(ip)
		if cm.cfg.OnConnect != nil {
			cm.cfg.OnConnect(conn, conn.RemoteAddr().String(), true)
		}
	}
}

// DisconnectedInbound must be called by the owner of an inbound
// connection's peer once it tears down, cleaning up diversity
// bookkeeping immediately.
func (cm *ConnManager) DisconnectedInbound(ip net.IP) {
	cm.cfg.Diversity.RemoveInbound(ip)
}

// outboundLoop periodically tops the outbound set up to
// cfg.TargetOutbound, preferring addresses in a fresh /16 group while
// the ≥3-distinct-/16 bound is unmet.
func (cm *ConnManager) outboundLoop() {
	defer cm.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cm.quit:
			return
		case <-ticker.C:
			cm.maintainOutbound()
		}
	}
}

func (cm *ConnManager) maintainOutbound() {
	cm.mu.Lock()
	deficit := cm.cfg.TargetOutbound - len(cm.outbound)
	cm.mu.Unlock()
	if deficit <= 0 || cm.cfg.AddrSource == nil {
		return
	}

	for i := 0; i < deficit; i++ {
		var exclude map[string]struct{}
		if cm.cfg.Diversity.NeedsOutboundDiversity(cm.cfg.TargetOutbound) {
			exclude = cm.cfg.Diversity.OutboundGroups()
		}
		na, ok := cm.cfg.AddrSource.GetAddress(exclude)
		if !ok {
			return
		}

		addr := net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port)))
		if cm.IsBanned(na.IP) {
			continue
		}

		cm.mu.Lock()
		existing, inflight := cm.outbound[addr]
		if inflight && time.Now().Before(existing.nextTry) {
			cm.mu.Unlock()
			continue
		}
		// Reserve the slot immediately so the next iteration of this
		// same sweep (and the next tick, if this dial is slow) don't
		// also count addr toward the deficit.
		cm.outbound[addr] = &outboundConn{addr: addr}
		cm.mu.Unlock()

		cm.wg.Add(1)
		go cm.dial(addr, na.IP)
	}
}

// dial completes a reserved outbound slot: a connection attempt runs
// in its own goroutine so a slow or hanging Dial never stalls the
// once-a-second maintenance sweep or delays Stop.
func (cm *ConnManager) dial(addr string, ip net.IP) {
	defer cm.wg.Done()

	conn, err := cm.cfg.Dial(addr)
	if err != nil {
		cm.mu.Lock()
		delete(cm.outbound, addr)
		cm.mu.Unlock()
		cm.recordFailure(addr)
		log.Debugf("dial %s failed: %v", addr, err)
		return
	}

	cm.mu.Lock()
	cm.outbound[addr] = &outboundConn{addr: addr, conn: conn}
	cm.mu.Unlock()

	cm.cfg.Diversity.AddOutbound(ip)
	if cm.cfg.OnConnect != nil {
		cm.cfg.OnConnect(conn, addr, false)
	}
}

func (cm *ConnManager) recordFailure(addr string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oc, ok := cm.outbound[addr]
	if !ok {
		oc = &outboundConn{addr: addr}
		cm.outbound[addr] = oc
	}
	oc.attempts++
	backoff := defaultRetryInterval * time.Duration(1<<uint(minInt(oc.attempts, 10)))
	if backoff > maxRetryInterval {
		backoff = maxRetryInterval
	}
	oc.nextTry = time.Now().Add(backoff)
}

// Disconnected must be called by the owner of an outbound connection's
// peer once it tears down, removing it from the managed set so the
// dial loop replaces it.
func (cm *ConnManager) Disconnected(addr string, ip net.IP) {
	cm.mu.Lock()
	delete(cm.outbound, addr)
	cm.mu.Unlock()
	cm.cfg.Diversity.RemoveOutbound(ip)
	if cm.cfg.OnDisconnect != nil {
		cm.cfg.OnDisconnect(addr, false)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
