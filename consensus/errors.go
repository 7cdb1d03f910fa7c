// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package consensus implements the header-level and retarget rules an
// Astram block must satisfy before it can extend the chain: well-formed
// headers, the leading-zero-nibble proof-of-work check, difficulty
// retargeting with slow start, and median-time-past timestamp ordering.
package consensus

import "fmt"

// ErrorCode identifies the category a rule violation falls under. The
// categories mirror the error taxonomy every validating component
// (consensus, txvalidate, utxo, chainstore, mempool) tags its rejections
// with, so a single counter set can track failures across the node.
type ErrorCode int

const (
	// Codec errors: malformed wire encoding.
	ErrTooShort ErrorCode = iota
	ErrOversizedField
	ErrInvalidTag

	// Header/PoW errors.
	ErrHashMismatch
	ErrInvalidPoW
	ErrDifficultyOutOfRange
	ErrTimestampTooOld
	ErrTimestampTooFuture

	// Structure errors.
	ErrMerkleRootMismatch
	ErrEmptyBlock
	ErrInvalidCoinbase

	// State errors.
	ErrPreviousNotFound
	ErrUtxoNotFound
	ErrUtxoOwnershipFailure
	ErrDuplicateInput
	ErrSignatureFailure
	ErrInsufficientFee

	// Policy errors.
	ErrCheckpointViolation
	ErrReorgTooDeep
	ErrSecurityConstraint

	// I/O errors.
	ErrStorageError
	ErrNetworkError
	ErrTimeout
)

var errorCodeStrings = map[ErrorCode]string{
	ErrTooShort:             "TooShort",
	ErrOversizedField:       "OversizedField",
	ErrInvalidTag:           "InvalidTag",
	ErrHashMismatch:         "HashMismatch",
	ErrInvalidPoW:           "InvalidPoW",
	ErrDifficultyOutOfRange: "DifficultyOutOfRange",
	ErrTimestampTooOld:      "TimestampTooOld",
	ErrTimestampTooFuture:   "TimestampTooFuture",
	ErrMerkleRootMismatch:   "MerkleRootMismatch",
	ErrEmptyBlock:           "EmptyBlock",
	ErrInvalidCoinbase:      "InvalidCoinbase",
	ErrPreviousNotFound:     "PreviousNotFound",
	ErrUtxoNotFound:         "UtxoNotFound",
	ErrUtxoOwnershipFailure: "UtxoOwnershipFailure",
	ErrDuplicateInput:       "DuplicateInput",
	ErrSignatureFailure:     "SignatureFailure",
	ErrInsufficientFee:      "InsufficientFee",
	ErrCheckpointViolation:  "CheckpointViolation",
	ErrReorgTooDeep:         "ReorgTooDeep",
	ErrSecurityConstraint:   "SecurityConstraint",
	ErrStorageError:         "StorageError",
	ErrNetworkError:         "NetworkError",
	ErrTimeout:              "Timeout",
}

// String returns the human-readable name of the error code.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Category groups an ErrorCode under the six §7 taxonomies, used to key
// the per-category failure counters in package validatorstats.
type Category int

const (
	CategoryCodec Category = iota
	CategoryHeaderPoW
	CategoryStructure
	CategoryState
	CategoryPolicy
	CategoryIO
)

func (c Category) String() string {
	switch c {
	case CategoryCodec:
		return "Codec"
	case CategoryHeaderPoW:
		return "Header/PoW"
	case CategoryStructure:
		return "Structure"
	case CategoryState:
		return "State"
	case CategoryPolicy:
		return "Policy"
	case CategoryIO:
		return "I/O"
	default:
		return "Unknown"
	}
}

// Category returns the taxonomy this error code belongs to.
func (e ErrorCode) Category() Category {
	switch {
	case e <= ErrInvalidTag:
		return CategoryCodec
	case e <= ErrTimestampTooFuture:
		return CategoryHeaderPoW
	case e <= ErrInvalidCoinbase:
		return CategoryStructure
	case e <= ErrInsufficientFee:
		return CategoryState
	case e <= ErrSecurityConstraint:
		return CategoryPolicy
	default:
		return CategoryIO
	}
}

// RuleError identifies a rule violation discovered during block or
// transaction validation. Unlike a generic error, callers can switch on
// Code to decide what to do (e.g. drop a peer vs. just discard a block).
type RuleError struct {
	Code        ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{Code: c, Description: desc}
}

// NewRuleError creates a RuleError, exported for use by the other
// validating packages (txvalidate, utxo, chainstore, mempool) that
// share this error taxonomy.
func NewRuleError(c ErrorCode, desc string) RuleError {
	return ruleError(c, desc)
}
