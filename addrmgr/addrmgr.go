// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr maintains the node's address book: peer network
// addresses gossiped over the wire or learned from the DNS registry,
// bucketed by /16 subnet so the connection manager can satisfy an
// outbound-diversity requirement without scanning the whole set on
// every dial attempt.
package addrmgr

import (
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/astram-project/astramd/wire"
)

// knownAddress wraps a gossiped or seeded network address with local
// bookkeeping: how many times we've tried to reach it and whether the
// last attempt succeeded.
type knownAddress struct {
	na          *wire.NetAddress
	lastAttempt time.Time
	lastSuccess time.Time
	attempts    int
}

// Manager is the address book. A single mutex guards the whole table;
// the table is small (thousands of entries at most) and every method
// call is O(1) or a short scan, so a coarse short-held lock per update
// is enough and keeps the implementation simple.
type Manager struct {
	mu       sync.Mutex
	addrs    map[string]*knownAddress
	selfPort uint16
}

// New returns an empty address manager. selfPort is the node's own
// listen port, used by IsSelf to exclude self-connections when
// combined with a loopback or local-interface IP.
func New(selfPort uint16) *Manager {
	return &Manager{
		addrs:    make(map[string]*knownAddress),
		selfPort: selfPort,
	}
}

// AddAddresses merges a batch of gossiped or DNS-seeded addresses into
// the book, skipping any that fail IsRoutable. Existing entries are
// left with their attempt/success history intact; only the
// advertised service bits and timestamp are refreshed.
func (m *Manager) AddAddresses(nas []*wire.NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, na := range nas {
		if !IsRoutable(na.IP) {
			continue
		}
		key := net.JoinHostPort(na.IP.String(), portString(na.Port))
		if existing, ok := m.addrs[key]; ok {
			existing.na.Services = na.Services
			existing.na.Timestamp = na.Timestamp
			continue
		}
		m.addrs[key] = &knownAddress{na: na}
	}
}

// MarkAttempt records a dial attempt against addr, successful or not.
func (m *Manager) MarkAttempt(addr string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ka, found := m.addrs[addr]
	if !found {
		return
	}
	ka.attempts++
	ka.lastAttempt = time.Now()
	if ok {
		ka.lastSuccess = time.Now()
		ka.attempts = 0
	}
}

// GetAddress returns a random routable address whose /16 group is not
// in excludeGroups, or false if every known address falls in an
// excluded group. excludeGroups lets the connection manager steer
// new outbound dials toward subnets it isn't already connected to.
func (m *Manager) GetAddress(excludeGroups map[string]struct{}) (*wire.NetAddress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []*knownAddress
	for _, ka := range m.addrs {
		if _, excluded := excludeGroups[GroupKey16(ka.na.IP)]; excluded {
			continue
		}
		// Back off an address that has failed repeatedly and recently.
		if ka.attempts > 3 && time.Since(ka.lastAttempt) < time.Duration(ka.attempts)*time.Minute {
			continue
		}
		candidates = append(candidates, ka)
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[rand.Intn(len(candidates))].na, true
}

// Count returns the number of addresses currently known.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.addrs)
}

// GroupKey16 returns the /16 subnet grouping key used for IPv4
// addresses (the full address for IPv6, since IPv6 allocations are
// sparse enough that a coarser grouping isn't meaningful here).
func GroupKey16(ip net.IP) string {
	ip4 := ip.To4()
	if ip4 == nil {
		return ip.String()
	}
	return net.IPv4(ip4[0], ip4[1], 0, 0).String()
}

// GroupKey24 returns the /24 subnet grouping key for IPv4 addresses.
func GroupKey24(ip net.IP) string {
	ip4 := ip.To4()
	if ip4 == nil {
		return ip.String()
	}
	return net.IPv4(ip4[0], ip4[1], ip4[2], 0).String()
}

// IsRoutable reports whether ip is eligible for outbound dialing or
// inbound acceptance: not unspecified, not loopback, not link-local,
// and not within a private RFC 1918 / RFC 4193 range.
func IsRoutable(ip net.IP) bool {
	if ip == nil || ip.IsUnspecified() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	if ip.IsPrivate() {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		// 100.64.0.0/10 carrier-grade NAT, excluded alongside RFC 1918.
		if ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127 {
			return false
		}
	}
	return true
}

// IsSelf reports whether the address ip:port matches the node's own
// listen address: a loopback or local-interface IP combined with the
// node's own listen port.
func (m *Manager) IsSelf(ip net.IP, port uint16) bool {
	if port != m.selfPort {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, a := range ifaceAddrs {
		if ipNet, ok := a.(*net.IPNet); ok && ipNet.IP.Equal(ip) {
			return true
		}
	}
	return false
}

func portString(port uint16) string {
	return strconv.Itoa(int(port))
}
