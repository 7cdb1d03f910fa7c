// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"sort"
	"sync"
)

// memDB is a process-local, map-backed DB implementation used by unit
// tests and by the rebuild-from-genesis fallback path, which replays
// the entire chain into a scratch store before atomically swapping it
// in (see chainstore's rebuildUTXOToHeight).
type memDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemDB returns a new in-memory DB.
func NewMemDB() DB {
	return &memDB{data: make(map[string][]byte)}
}

func (m *memDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *memDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *memDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memDB) Cursor(prefix []byte) (Cursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	return &memCursor{keys: keys, values: values, pos: -1}, nil
}

func (m *memDB) Begin() (Transaction, error) {
	return &memTx{db: m, writes: make(map[string][]byte), deletes: make(map[string]bool)}, nil
}

func (m *memDB) Close() error {
	return nil
}

type memCursor struct {
	keys   []string
	values [][]byte
	pos    int
}

func (c *memCursor) Next() bool {
	c.pos++
	return c.pos < len(c.keys)
}

func (c *memCursor) Key() []byte {
	return []byte(c.keys[c.pos])
}

func (c *memCursor) Value() []byte {
	return c.values[c.pos]
}

func (c *memCursor) Error() error { return nil }
func (c *memCursor) Close() error { return nil }

// memTx buffers writes until Commit, so readers racing a live
// transaction never observe a partial batch.
type memTx struct {
	db      *memDB
	writes  map[string][]byte
	deletes map[string]bool
	closed  bool
}

func (t *memTx) Put(key, value []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t.writes[string(key)] = cp
	delete(t.deletes, string(key))
	return nil
}

func (t *memTx) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	if t.deletes[string(key)] {
		return nil, ErrKeyNotFound
	}
	if v, ok := t.writes[string(key)]; ok {
		return v, nil
	}
	return t.db.Get(key)
}

func (t *memTx) Has(key []byte) (bool, error) {
	if t.closed {
		return false, ErrTxClosed
	}
	if t.deletes[string(key)] {
		return false, nil
	}
	if _, ok := t.writes[string(key)]; ok {
		return true, nil
	}
	return t.db.Has(key)
}

func (t *memTx) Delete(key []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	delete(t.writes, string(key))
	t.deletes[string(key)] = true
	return nil
}

func (t *memTx) Cursor(prefix []byte) (Cursor, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	// A transaction's cursor reads through to the committed base state;
	// pending writes are merged in Commit before anyone else can see
	// them, so uncommitted entries need not be visible here.
	return t.db.Cursor(prefix)
}

func (t *memTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for k := range t.deletes {
		delete(t.db.data, k)
	}
	for k, v := range t.writes {
		t.db.data[k] = v
	}
	t.closed = true
	return nil
}

func (t *memTx) Rollback() error {
	t.closed = true
	return nil
}
