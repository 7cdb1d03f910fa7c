// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// HashSize is the number of bytes in a Hash256.
const HashSize = 32

// ErrHashWrongLength is returned when a byte slice handed to NewHash is not
// exactly HashSize bytes long.
var ErrHashWrongLength = errors.New("invalid hash length")

// Hash256 is a 32-byte double-SHA-256 digest. The zero value is the all-zero
// hash used as the coinbase's null previous outpoint hash.
type Hash256 [HashSize]byte

// String returns the lowercase hex encoding of the hash with its bytes
// reversed (block-explorer display order). The in-memory bytes, which
// Compare and HashMeetsTarget read as a big-endian integer, are not
// changed.
func (h Hash256) String() string {
	var reversed Hash256
	for i := 0; i < HashSize; i++ {
		reversed[i] = h[HashSize-1-i]
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a newly allocated copy of the hash bytes.
func (h Hash256) CloneBytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// IsZero reports whether the hash is the all-zero null hash.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

// Compare returns -1, 0 or +1 depending on whether h is lexicographically
// less than, equal to, or greater than other, treating both as big-endian
// unsigned integers over their raw bytes.
func (h Hash256) Compare(other Hash256) int {
	for i := 0; i < HashSize; i++ {
		if h[i] < other[i] {
			return -1
		}
		if h[i] > other[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether h sorts before other under Compare.
func (h Hash256) Less(other Hash256) bool {
	return h.Compare(other) < 0
}

// SetBytes copies src into the hash. src must be exactly HashSize bytes.
func (h *Hash256) SetBytes(src []byte) error {
	if len(src) != HashSize {
		return ErrHashWrongLength
	}
	copy(h[:], src)
	return nil
}

// NewHash constructs a Hash256 from a byte slice of exactly HashSize bytes.
func NewHash(src []byte) (Hash256, error) {
	var h Hash256
	if err := h.SetBytes(src); err != nil {
		return Hash256{}, err
	}
	return h, nil
}

// NewHashFromStr parses a hex string in String's reversed display order
// into a Hash256.
func NewHashFromStr(s string) (Hash256, error) {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return Hash256{}, err
	}
	if len(decoded) != HashSize {
		return Hash256{}, ErrHashWrongLength
	}
	var h Hash256
	for i := 0; i < HashSize; i++ {
		h[i] = decoded[HashSize-1-i]
	}
	return h, nil
}

// DoubleSha256 computes SHA256(SHA256(b)).
func DoubleSha256(b []byte) Hash256 {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return Hash256(second)
}

// DoubleSha256Hash is an alias of DoubleSha256 kept for call sites that read
// more naturally asking for "the hash" of a buffer.
func DoubleSha256Hash(b []byte) Hash256 {
	return DoubleSha256(b)
}
