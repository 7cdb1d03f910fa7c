// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDB is the on-disk DB backend: goleveldb wrapped directly, with
// no separate block-body flat-file store.
type levelDB struct {
	ldb *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a goleveldb store at path
// using goleveldb's own defaults for cache size and open file handles.
func OpenLevelDB(path string) (DB, error) {
	return OpenLevelDBWithOptions(path, 0, 0)
}

// OpenLevelDBWithOptions opens a goleveldb store at path, sizing its
// block cache and open-file-handle budget from the config package's
// db_cache_mb/max_open_files knobs. A zero value for either leaves
// goleveldb's own default in place.
func OpenLevelDBWithOptions(path string, cacheMB, maxOpenFiles int) (DB, error) {
	var opts *opt.Options
	if cacheMB > 0 || maxOpenFiles > 0 {
		opts = &opt.Options{}
		if cacheMB > 0 {
			opts.BlockCacheCapacity = cacheMB * opt.MiB
		}
		if maxOpenFiles > 0 {
			opts.OpenFilesCacheCapacity = maxOpenFiles
		}
	}
	ldb, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, err
	}
	return &levelDB{ldb: ldb}, nil
}

func (d *levelDB) Put(key, value []byte) error {
	return d.ldb.Put(key, value, nil)
}

func (d *levelDB) Get(key []byte) ([]byte, error) {
	v, err := d.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	return v, err
}

func (d *levelDB) Has(key []byte) (bool, error) {
	return d.ldb.Has(key, nil)
}

func (d *levelDB) Delete(key []byte) error {
	return d.ldb.Delete(key, nil)
}

func (d *levelDB) Cursor(prefix []byte) (Cursor, error) {
	it := d.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelCursor{it: it, started: false}, nil
}

func (d *levelDB) Begin() (Transaction, error) {
	ldbTx, err := d.ldb.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &levelTx{tx: ldbTx}, nil
}

func (d *levelDB) Close() error {
	return d.ldb.Close()
}

type levelCursor struct {
	it      iterator.Iterator
	started bool
}

func (c *levelCursor) Next() bool {
	c.started = true
	return c.it.Next()
}

func (c *levelCursor) Key() []byte   { return c.it.Key() }
func (c *levelCursor) Value() []byte { return c.it.Value() }
func (c *levelCursor) Error() error  { return c.it.Error() }
func (c *levelCursor) Close() error {
	c.it.Release()
	return nil
}

// levelTx wraps a goleveldb transaction, which already provides the
// snapshot isolation and atomic commit Transaction requires.
type levelTx struct {
	tx *leveldb.Transaction
}

func (t *levelTx) Put(key, value []byte) error {
	return t.tx.Put(key, value, nil)
}

func (t *levelTx) Get(key []byte) ([]byte, error) {
	v, err := t.tx.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	return v, err
}

func (t *levelTx) Has(key []byte) (bool, error) {
	return t.tx.Has(key, nil)
}

func (t *levelTx) Delete(key []byte) error {
	return t.tx.Delete(key, nil)
}

func (t *levelTx) Cursor(prefix []byte) (Cursor, error) {
	it := t.tx.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelCursor{it: it}, nil
}

func (t *levelTx) Commit() error {
	return t.tx.Commit()
}

func (t *levelTx) Rollback() error {
	t.tx.Discard()
	return nil
}
