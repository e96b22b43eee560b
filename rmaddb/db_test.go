// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rmaddb

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmad-db/core/store"
)

func key(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func lessKeys(a, b []byte) bool { return bytes.Compare(a, b) < 0 }

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Create(path, 8, 8, lessKeys, Options{BlockSize: 160, PoolBytes: 160 * 16, Policy: store.PolicyPriority})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestDBCreateRejectsExistingPath(t *testing.T) {
	_, path := openTestDB(t)
	if _, err := Create(path, 8, 8, lessKeys, Options{}); err == nil {
		t.Fatal("expected Create to reject an already-existing path")
	}
}

func TestDBPutGetDelete(t *testing.T) {
	db, _ := openTestDB(t)
	const n = 80
	for i := int64(0); i < n; i++ {
		if err := db.Put(key(i), key(i*2)); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	length, err := db.Len()
	if err != nil {
		t.Fatal(err)
	}
	if g, e := length, int64(n); g != e {
		t.Fatal(g, e)
	}

	for i := int64(0); i < n; i++ {
		got, err := db.Get(key(i))
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if want := key(i * 2); !bytes.Equal(got, want) {
			t.Fatalf("get %d: got %v want %v", i, got, want)
		}
	}

	for i := int64(0); i < n; i += 2 {
		if err := db.Delete(key(i)); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	length, err = db.Len()
	if err != nil {
		t.Fatal(err)
	}
	if g, e := length, int64(n/2); g != e {
		t.Fatal(g, e)
	}
	for i := int64(0); i < n; i += 2 {
		if _, err := db.Get(key(i)); err == nil {
			t.Fatalf("key %d should have been deleted", i)
		}
	}
}

func TestDBDeleteMissingKeyIsNoop(t *testing.T) {
	db, _ := openTestDB(t)
	if err := db.Put(key(1), key(1)); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(key(999)); err != nil {
		t.Fatalf("delete of a missing key must be a silent no-op, got %v", err)
	}
}

func TestDBIterationOrder(t *testing.T) {
	db, _ := openTestDB(t)
	const n = 40
	for i := int64(n - 1); i >= 0; i-- {
		if err := db.Put(key(i), key(i)); err != nil {
			t.Fatal(err)
		}
	}

	it := db.Begin()
	var i int64
	for it.Next() {
		want := key(i)
		if !bytes.Equal(it.Key(), want) {
			t.Fatalf("iteration[%d]: got %v want %v", i, it.Key(), want)
		}
		i++
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if g, e := i, int64(n); g != e {
		t.Fatal(g, e)
	}
}

func TestDBOpenCreatesWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := Open(path, 8, 8, lessKeys, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Open did not create the index file: %v", err)
	}
}

func TestDBPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	db, err := Create(path, 8, 8, lessKeys, Options{BlockSize: 160, PoolBytes: 160 * 16})
	if err != nil {
		t.Fatal(err)
	}
	const n = 30
	for i := int64(0); i < n; i++ {
		if err := db.Put(key(i), key(i*7)); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := Open(path, 8, 8, lessKeys, Options{BlockSize: 160, PoolBytes: 160 * 16})
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	for _, i := range []int64{0, 1, n - 1} {
		got, err := db2.Get(key(i))
		if err != nil {
			t.Fatalf("get %d after reopen: %v", i, err)
		}
		if want := key(i * 7); !bytes.Equal(got, want) {
			t.Fatalf("get %d after reopen: got %v want %v", i, got, want)
		}
	}
}

func TestDBFlushOptionWritesBackImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.db")
	db, err := Create(path, 8, 8, lessKeys, Options{BlockSize: 160, PoolBytes: 160 * 16, Flush: true})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Put(key(1), key(1)); err != nil {
		t.Fatal(err)
	}
	// With Flush set, the Put has already reached the index file before
	// Close: the header block and the root leaf are on disk.
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if g, e := fi.Size(), int64(2*160); g < e {
		t.Fatalf("index file is %d bytes after a flushed Put, want at least %d", g, e)
	}
}
