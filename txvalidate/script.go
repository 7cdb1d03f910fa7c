// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txvalidate implements per-transaction consensus checks: size
// and count limits, duplicate-input detection, UTXO resolution,
// signature verification against the canonical sighash, coinbase
// maturity, and the minimum-relay-fee floor.
package txvalidate

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/astram-project/astramd/astramutil"
)

// compressedPubKeySize is the length of a serialized compressed
// secp256k1 public key.
const compressedPubKeySize = 33

// ErrMalformedScriptSig is returned when a signature script is too
// short to contain a pubkey, or the embedded signature fails to parse.
var ErrMalformedScriptSig = errors.New("txvalidate: malformed signature script")

// BuildSignatureScript assembles a spending input's signature script:
// the spender's compressed public key followed by a DER-encoded ECDSA
// signature over the transaction's sighash. Astram keeps the single
// pay-to-pubkey-hash spend form its Address type implies, rather than
// a richer scripting language.
func BuildSignatureScript(pubKey *secp256k1.PublicKey, sig *ecdsa.Signature) []byte {
	out := make([]byte, 0, compressedPubKeySize+72)
	out = append(out, pubKey.SerializeCompressed()...)
	out = append(out, sig.Serialize()...)
	return out
}

// ExtractPubKeyAndSignature parses a signature script back into its
// public key and signature, and verifies the public key hashes to the
// given recipient address.
func ExtractPubKeyAndSignature(scriptSig []byte, wantRecipient astramutil.Address) (*secp256k1.PublicKey, *ecdsa.Signature, error) {
	if len(scriptSig) <= compressedPubKeySize {
		return nil, nil, ErrMalformedScriptSig
	}

	pubKeyBytes := scriptSig[:compressedPubKeySize]
	sigBytes := scriptSig[compressedPubKeySize:]

	if astramutil.Hash160(pubKeyBytes) != wantRecipient {
		return nil, nil, ErrMalformedScriptSig
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, nil, err
	}

	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return nil, nil, err
	}

	return pubKey, sig, nil
}
