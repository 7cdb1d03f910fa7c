// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peerdiversity implements inbound-acceptance gating and
// outbound-subnet-diversity bookkeeping: peers-per-IP < 3,
// peers-per-/24 < 2, peers-per-/16 < 4 for inbound acceptance, and at
// least 3 distinct /16 subnets among the outbound set. The tracker
// uses the same mutex-guarded-counter idiom as chainstore's tip
// bookkeeping and mempool's index, grouping addresses with addrmgr's
// GroupKey16/GroupKey24.
package peerdiversity

import (
	"net"
	"sync"

	"github.com/astram-project/astramd/addrmgr"
)

// Tracker counts connected peers by IP, /24 and /16 group, separately
// for inbound and outbound direction, so the connection manager and
// peer manager can enforce gating and diversity rules without walking
// the full peer set on every connection attempt.
type Tracker struct {
	mu sync.Mutex

	inboundByIP  map[string]int
	inboundBy24  map[string]int
	inboundBy16  map[string]int
	outboundBy16 map[string]int

	inboundTotal  int
	outboundTotal int
}

// New returns an empty diversity tracker.
func New() *Tracker {
	return &Tracker{
		inboundByIP:  make(map[string]int),
		inboundBy24:  make(map[string]int),
		inboundBy16:  make(map[string]int),
		outboundBy16: make(map[string]int),
	}
}

// CanAcceptInbound reports whether a new inbound connection from ip
// would keep every inbound bound satisfied: fewer than 3 peers
// already from this exact IP, fewer than 2 from its /24, and fewer
// than 4 from its /16.
func (t *Tracker) CanAcceptInbound(ip net.IP) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inboundByIP[ip.String()] >= 3 {
		return false
	}
	if t.inboundBy24[addrmgr.GroupKey24(ip)] >= 2 {
		return false
	}
	if t.inboundBy16[addrmgr.GroupKey16(ip)] >= 4 {
		return false
	}
	return true
}

// AddInbound records an accepted inbound connection from ip.
func (t *Tracker) AddInbound(ip net.IP) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inboundByIP[ip.String()]++
	t.inboundBy24[addrmgr.GroupKey24(ip)]++
	t.inboundBy16[addrmgr.GroupKey16(ip)]++
	t.inboundTotal++
}

// RemoveInbound cleans up bookkeeping for a disconnected inbound
// peer, immediately on disconnect.
func (t *Tracker) RemoveInbound(ip net.IP) {
	t.mu.Lock()
	defer t.mu.Unlock()

	decrement(t.inboundByIP, ip.String())
	decrement(t.inboundBy24, addrmgr.GroupKey24(ip))
	decrement(t.inboundBy16, addrmgr.GroupKey16(ip))
	if t.inboundTotal > 0 {
		t.inboundTotal--
	}
}

// AddOutbound records a newly dialed outbound connection to ip.
func (t *Tracker) AddOutbound(ip net.IP) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.outboundBy16[addrmgr.GroupKey16(ip)]++
	t.outboundTotal++
}

// RemoveOutbound cleans up bookkeeping for a disconnected outbound peer.
func (t *Tracker) RemoveOutbound(ip net.IP) {
	t.mu.Lock()
	defer t.mu.Unlock()

	decrement(t.outboundBy16, addrmgr.GroupKey16(ip))
	if t.outboundTotal > 0 {
		t.outboundTotal--
	}
}

// OutboundGroups returns the set of /16 groups the outbound set
// currently occupies, for use as the exclude set passed to
// addrmgr.Manager.GetAddress when diversity is still unmet and a
// fresh subnet is wanted over a repeat of an already-heavy one.
func (t *Tracker) OutboundGroups() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	groups := make(map[string]struct{}, len(t.outboundBy16))
	for group, count := range t.outboundBy16 {
		if count > 0 {
			groups[group] = struct{}{}
		}
	}
	return groups
}

// NeedsOutboundDiversity reports whether, with targetOutbound peers
// as the connection manager's goal, the outbound set still falls
// short of 3 distinct /16 subnets once it reaches that target.
func (t *Tracker) NeedsOutboundDiversity(targetOutbound int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outboundTotal >= targetOutbound {
		return false
	}
	return len(t.outboundBy16) < 3
}

// OutboundDistinct16Count returns the number of distinct /16 subnets
// among outbound peers, surfaced on the admin/status RPC's
// subnet-diversity counts.
func (t *Tracker) OutboundDistinct16Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outboundBy16)
}

// InboundDistinct24Count returns the number of distinct /24 subnets
// among inbound peers.
func (t *Tracker) InboundDistinct24Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inboundBy24)
}

func decrement(m map[string]int, key string) {
	if m[key] <= 1 {
		delete(m, key)
		return
	}
	m[key]--
}
