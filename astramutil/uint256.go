// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import "math/big"

// Uint256 is a 256-bit unsigned integer used for PoW targets and cumulative
// chain work. It wraps math/big.Int but enforces the 256-bit domain and
// provides saturating arithmetic, matching the "checked/saturating" contract
// of the spec's U256 type.
type Uint256 struct {
	v big.Int
}

var uint256Max = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}()

// MaxUint256 returns a fresh Uint256 set to 2^256 - 1.
func MaxUint256() Uint256 {
	var u Uint256
	u.v.Set(uint256Max)
	return u
}

// ZeroUint256 returns a fresh Uint256 set to 0.
func ZeroUint256() Uint256 {
	return Uint256{}
}

// NewUint256FromUint64 builds a Uint256 from a uint64 value.
func NewUint256FromUint64(n uint64) Uint256 {
	var u Uint256
	u.v.SetUint64(n)
	return u
}

// NewUint256FromBigEndian interprets b as a big-endian unsigned integer,
// matching how block hashes are compared against PoW targets.
func NewUint256FromBigEndian(b []byte) Uint256 {
	var u Uint256
	u.v.SetBytes(b)
	u.clamp()
	return u
}

func (u *Uint256) clamp() {
	if u.v.Sign() < 0 {
		u.v.SetInt64(0)
		return
	}
	if u.v.Cmp(uint256Max) > 0 {
		u.v.Set(uint256Max)
	}
}

// Cmp returns -1, 0, +1 as u is less than, equal to, or greater than other.
func (u Uint256) Cmp(other Uint256) int {
	return u.v.Cmp(&other.v)
}

// LessThan reports whether u < other.
func (u Uint256) LessThan(other Uint256) bool {
	return u.Cmp(other) < 0
}

// Add returns u+other, saturating at 2^256-1 on overflow.
func (u Uint256) Add(other Uint256) Uint256 {
	var out Uint256
	out.v.Add(&u.v, &other.v)
	out.clamp()
	return out
}

// Lsh returns u left-shifted by n bits, saturating at 2^256-1 on overflow.
func (u Uint256) Lsh(n uint) Uint256 {
	var out Uint256
	out.v.Lsh(&u.v, n)
	out.clamp()
	return out
}

// Rsh returns u right-shifted by n bits.
func (u Uint256) Rsh(n uint) Uint256 {
	var out Uint256
	out.v.Rsh(&u.v, n)
	return out
}

// PowOfTwoSaturating returns 2^exp as a Uint256, saturating at 2^256-1.
func PowOfTwoSaturating(exp uint) Uint256 {
	if exp >= 256 {
		return MaxUint256()
	}
	return NewUint256FromUint64(1).Lsh(exp)
}

// String returns the base-10 decimal representation.
func (u Uint256) String() string {
	return u.v.String()
}

// Bytes returns the big-endian byte representation, left-padded to 32 bytes.
func (u Uint256) Bytes() [32]byte {
	var out [32]byte
	b := u.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// Target computes target(d) = (2^256 - 1) >> (4*d), the leading-zero-nibble
// PoW target for difficulty d. Callers must validate d is in [1, 32]
// beforehand; Target does not itself enforce that range.
func Target(difficulty uint32) Uint256 {
	return MaxUint256().Rsh(uint(4 * difficulty))
}

// HashMeetsTarget reports whether a block hash, interpreted big-endian as a
// Uint256, is strictly less than target(difficulty) -- the numeric PoW check
// required by the spec (not a leading-hex-zero prefix match). The hash's raw
// bytes, in the order DoubleSha256 produced them, are the big-endian
// representation; Hash256.String reverses them only for display.
func HashMeetsTarget(hash Hash256, difficulty uint32) bool {
	h := NewUint256FromBigEndian(hash[:])
	return h.LessThan(Target(difficulty))
}
