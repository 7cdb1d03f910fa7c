// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/ripemd160"
)

// AddressSize is the number of bytes in an Address (a public-key hash).
const AddressSize = 20

// ErrAddressWrongLength is returned when a byte slice handed to NewAddress
// is not exactly AddressSize bytes long.
var ErrAddressWrongLength = errors.New("invalid address length")

// Address is a 20-byte public-key hash, ripemd160(sha256(pubkey)) in the
// bitcoin-lineage tradition.
type Address [AddressSize]byte

// BlockReward is the reserved, unspendable sentinel address used only in the
// sole input of a coinbase transaction. It is never a valid recipient.
var BlockReward = Address{}

// IsBlockReward reports whether a is the coinbase sentinel address.
func (a Address) IsBlockReward() bool {
	return a == BlockReward
}

// String returns the lowercase hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// NewAddress constructs an Address from a byte slice of exactly
// AddressSize bytes.
func NewAddress(src []byte) (Address, error) {
	if len(src) != AddressSize {
		return Address{}, ErrAddressWrongLength
	}
	var a Address
	copy(a[:], src)
	return a, nil
}

// Hash160 computes ripemd160(sha256(b)), the standard pubkey-hash function
// used to derive an Address from a serialized public key.
func Hash160(b []byte) Address {
	sha := sha256.Sum256(b)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	sum := ripe.Sum(nil)
	var a Address
	copy(a[:], sum)
	return a
}
