// Copyright (c) 2013-2024 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

// ProtocolVersion is the handshake protocol version this package speaks,
// carried in the Handshake message's `proto` field.
const ProtocolVersion uint32 = 1

// ServiceFlag identifies services supported by an Astram peer, advertised in
// the Handshake message's `features` field.
type ServiceFlag uint64

const (
	// SFNodeNetwork indicates the peer is a full node serving the entire
	// chain, as opposed to a pruned or light client.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeMining indicates the peer runs a mining driver and may be a
	// useful template-propagation partner.
	SFNodeMining
)

var sfStrings = map[ServiceFlag]string{
	SFNodeNetwork: "SFNodeNetwork",
	SFNodeMining:  "SFNodeMining",
}

var orderedSFStrings = []ServiceFlag{
	SFNodeNetwork,
	SFNodeMining,
}

// HasFlag returns a bool indicating if the service has the given flag.
func (f ServiceFlag) HasFlag(s ServiceFlag) bool {
	return f&s == s
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}

	s := ""
	for _, flag := range orderedSFStrings {
		if f&flag == flag {
			s += sfStrings[flag] + "|"
			f -= flag
		}
	}
	if f != 0 {
		s += fmt.Sprintf("0x%x|", uint64(f))
	}
	if len(s) > 0 {
		s = s[:len(s)-1]
	}
	return s
}

// AstramNet identifies the network a message belongs to, carried as the
// magic prefix of every framed message.
type AstramNet uint32

// Network magics. The numeric value has no significance beyond being a
// stable per-network constant distinguishing frames on the wire; the
// authoritative network identity is the NetworkID/ChainID exchanged during
// the handshake (chaincfg.Params).
const (
	MainNet AstramNet = 0x61737472 // "astr"
	TestNet AstramNet = 0x61737474 // "astt"
	SimNet  AstramNet = 0x61737373 // "asss"
	RegTest AstramNet = 0x61737272 // "asrr"
)

var netStrings = map[AstramNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	SimNet:  "SimNet",
	RegTest: "RegTest",
}

// String returns the AstramNet in human-readable form.
func (n AstramNet) String() string {
	if s, ok := netStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown AstramNet (%d)", uint32(n))
}
