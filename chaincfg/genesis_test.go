// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"bytes"
	"testing"
)

// TestGenesisBlockRoundTrip verifies that each network's genesis block
// serializes and deserializes to the same value, and that its cached
// GenesisHash matches BlockHash() recomputed from the block itself.
func TestGenesisBlockRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		p    *Params
	}{
		{"mainnet", &MainNetParams},
		{"testnet", &TestNetParams},
		{"regtest", &RegressionNetParams},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tc.p.GenesisBlock.Serialize(&buf); err != nil {
				t.Fatalf("Serialize: %v", err)
			}

			var decoded = *tc.p.GenesisBlock
			decoded.Transactions = nil
			if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
				t.Fatalf("Deserialize: %v", err)
			}

			hash := tc.p.GenesisBlock.BlockHash()
			if hash != tc.p.GenesisHash {
				t.Fatalf("genesis hash mismatch: got %v, want %v", hash, tc.p.GenesisHash)
			}

			if got := decoded.BlockHash(); got != tc.p.GenesisHash {
				t.Fatalf("round-tripped genesis hash mismatch: got %v, want %v", got, tc.p.GenesisHash)
			}
		})
	}
}

// TestGenesisHashesAreDistinct guards against a copy-paste genesis across
// networks, which would let a testnet node and a mainnet node agree on a
// common ancestor.
func TestGenesisHashesAreDistinct(t *testing.T) {
	hashes := map[string][32]byte{
		"mainnet": MainNetParams.GenesisHash,
		"testnet": TestNetParams.GenesisHash,
		"regtest": RegressionNetParams.GenesisHash,
	}

	seen := make(map[[32]byte]string)
	for name, h := range hashes {
		if other, ok := seen[h]; ok {
			t.Fatalf("%s and %s share a genesis hash", name, other)
		}
		seen[h] = name
	}
}

// TestCheckpointAtHeight exercises the lookup helper used by chain store
// validation.
func TestCheckpointAtHeight(t *testing.T) {
	p := Params{
		Checkpoints: []Checkpoint{
			{Height: 1000, Hash: [32]byte{0xaa}},
			{Height: 2000, Hash: [32]byte{0xbb}},
		},
	}

	if _, ok := p.CheckpointAtHeight(1500); ok {
		t.Fatalf("expected no checkpoint at height 1500")
	}
	cp, ok := p.CheckpointAtHeight(1000)
	if !ok || cp.Hash != ([32]byte{0xaa}) {
		t.Fatalf("expected checkpoint at height 1000 with hash aa..., got %v, %v", cp, ok)
	}
	if got := p.LatestCheckpointHeight(); got != 2000 {
		t.Fatalf("LatestCheckpointHeight: got %d, want 2000", got)
	}
}
