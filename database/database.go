// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database defines the ordered key/value storage interface used
// by chaindb's table layout: a handle that can read and write
// directly, or open an atomic transaction that batches writes into a
// single commit.
package database

import "errors"

// ErrKeyNotFound is returned by Get when the requested key is absent.
var ErrKeyNotFound = errors.New("database: key not found")

// ErrTxClosed is returned when an operation is attempted against a
// transaction that has already been committed or rolled back.
var ErrTxClosed = errors.New("database: transaction closed")

// DataAccessor is the common read/write surface shared by a Database
// handle and an open Transaction.
type DataAccessor interface {
	// Put sets the value for key, overwriting any previous value.
	Put(key []byte, value []byte) error

	// Get returns the value for key. Returns ErrKeyNotFound if absent.
	Get(key []byte) ([]byte, error)

	// Has reports whether key is present.
	Has(key []byte) (bool, error)

	// Delete removes key. It is not an error if key is absent.
	Delete(key []byte) error

	// Cursor opens an iterator over all keys sharing the given prefix.
	Cursor(prefix []byte) (Cursor, error)
}

// Cursor iterates over key/value pairs sharing a common prefix in
// ascending key order.
type Cursor interface {
	// Next advances to the next pair, returning false once exhausted.
	Next() bool

	// Key returns the current pair's key. Valid only after Next returns
	// true.
	Key() []byte

	// Value returns the current pair's value. Valid only after Next
	// returns true.
	Value() []byte

	// Error returns any error encountered during iteration.
	Error() error

	// Close releases the cursor's resources.
	Close() error
}

// Transaction is an atomic batch of reads and writes. Writes are
// invisible to other transactions until Commit succeeds; Rollback
// discards them entirely.
type Transaction interface {
	DataAccessor

	// Commit atomically applies every write made through the
	// transaction. A chain-writer task calls this exactly once per
	// connect/disconnect step.
	Commit() error

	// Rollback discards every write made through the transaction.
	Rollback() error
}

// DB is a handle to an ordered key/value store.
type DB interface {
	DataAccessor

	// Begin starts a new transaction.
	Begin() (Transaction, error)

	// Close releases the database's resources.
	Close() error
}
