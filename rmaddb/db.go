// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rmaddb is the public facade: it wires an index file and a
// data file into a store.Tree and exposes a small key/value API.
package rmaddb

import (
	"log/slog"
	"os"

	"github.com/rmad-db/core/store"
)

// DB is a disk-resident, ordered key/value store backed by a B+Tree.
type DB struct {
	tree *store.Tree
	opts Options
}

// Create creates a new DB at path (and its companion data file). keySize
// and valueSize fix the size of every key/value for the life of the DB.
// cmp defines the key ordering. The index file must not already exist.
func Create(path string, keySize, valueSize int, cmp store.Comparator, opts Options) (*DB, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &os.PathError{Op: "rmaddb.Create", Path: path, Err: os.ErrExist}
	}
	return open(path, keySize, valueSize, cmp, opts)
}

// Open opens an existing DB at path, or creates one if it does not yet
// exist. keySize, valueSize and cmp must match what the DB was created
// with; a size mismatch on an existing DB returns
// *store.SignatureMismatchError.
func Open(path string, keySize, valueSize int, cmp store.Comparator, opts Options) (*DB, error) {
	return open(path, keySize, valueSize, cmp, opts)
}

func open(path string, keySize, valueSize int, cmp store.Comparator, opts Options) (*DB, error) {
	if err := opts.check(path); err != nil {
		return nil, err
	}

	tree, err := store.Open(path, opts.DataPath, opts.BlockSize, keySize, valueSize, opts.PoolBytes, cmp, opts.Policy)
	if err != nil {
		return nil, err
	}

	db := &DB{tree: tree, opts: opts}
	slog.Info("rmaddb opened", "path", path, "data", opts.DataPath, "blockSize", opts.BlockSize)
	return db, nil
}

// Put inserts (key, value). Duplicate keys are allowed: an equal key is
// inserted immediately after existing occurrences of it, matching
// store.Tree.Insert.
func (db *DB) Put(key, value []byte) error {
	if err := db.tree.Insert(key, value); err != nil {
		return err
	}
	return db.maybeFlush()
}

// Get returns the first value stored for key, or *store.NotFoundError.
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.tree.Search(key)
}

// Count returns the number of occurrences of key currently stored.
func (db *DB) Count(key []byte) (int, error) {
	return db.tree.Count(key)
}

// Delete removes every occurrence of key. Deleting an absent key is a
// silent no-op.
func (db *DB) Delete(key []byte) error {
	if err := db.tree.Delete(key); err != nil {
		return err
	}
	return db.maybeFlush()
}

// Len returns the total number of (key, value) pairs in the DB.
func (db *DB) Len() (int64, error) {
	return db.tree.Size()
}

// Begin returns an iterator positioned before the first key.
func (db *DB) Begin() *store.Iterator { return db.tree.Begin() }

// End returns an iterator positioned after the last key.
func (db *DB) End() *store.Iterator { return db.tree.End() }

// Flush writes back all dirty state without closing, for callers that
// need a per-operation durability point without setting Options.Flush.
func (db *DB) Flush() error { return db.tree.Flush() }

// Close flushes and closes the DB, releasing the advisory lock on both
// underlying files.
func (db *DB) Close() error { return db.tree.Close() }

func (db *DB) maybeFlush() error {
	if !db.opts.Flush {
		return nil
	}
	return db.tree.Flush()
}
