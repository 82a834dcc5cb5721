// Package kv implements the ordered byte-key/byte-value store abstraction
// (component C1) every other indexing package is built on: a single
// Pebble database shared by many short ASCII-prefixed namespaces, with
// atomic batch writes, multi-get, and forward/reverse prefix iteration.
//
// The method surface is a direct port of the Mdb type from the original
// reference implementation (src/runtime/mdb.rs), re-expressed over
// cockroachdb/pebble/v2 instead of RocksDB.
package kv

import (
	"fmt"

	"github.com/cockroachdb/pebble/v2"
)

// Store is one namespace view onto a shared Pebble database. Every key
// passed to its methods is RELATIVE; Store transparently prepends its
// namespace prefix and strips it back off on reads that return keys.
type Store struct {
	db     *pebble.DB
	prefix []byte
}

// Open creates or opens a Pebble database at path and returns the root
// store (empty prefix). Use Namespace to scope it to a consumer.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database. Only the root store (the one
// returned by Open) should be closed; namespaced views share the handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("kv: close: %w", err)
	}
	return nil
}

// Namespace returns a view of the same database scoped under prefix.
func (s *Store) Namespace(prefix string) *Store {
	return &Store{db: s.db, prefix: append([]byte(nil), prefix...)}
}

func (s *Store) prefixed(key []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	out = append(out, key...)
	return out
}

// Get returns the value for key, or (nil, false, nil) if absent.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	v, closer, err := s.db.Get(s.prefixed(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: get: %w", err)
	}
	out := append([]byte(nil), v...)
	if cerr := closer.Close(); cerr != nil {
		return nil, false, fmt.Errorf("kv: get close: %w", cerr)
	}
	return out, true, nil
}

// MultiGet looks up keys in order, returning nil entries for misses.
func (s *Store) MultiGet(keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, ok, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

// Put writes a single key/value pair, synced.
func (s *Store) Put(key, value []byte) error {
	if err := s.db.Set(s.prefixed(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("kv: put: %w", err)
	}
	return nil
}

// Delete removes a single key, synced.
func (s *Store) Delete(key []byte) error {
	if err := s.db.Delete(s.prefixed(key), pebble.Sync); err != nil {
		return fmt.Errorf("kv: delete: %w", err)
	}
	return nil
}

// Batch accumulates puts/deletes for one atomic commit.
type Batch struct {
	store *Store
	wb    *pebble.Batch
}

// Put stages a relative-key put.
func (b *Batch) Put(key, value []byte) {
	_ = b.wb.Set(b.store.prefixed(key), value, nil)
}

// Delete stages a relative-key delete.
func (b *Batch) Delete(key []byte) {
	_ = b.wb.Delete(b.store.prefixed(key), nil)
}

// BulkWrite builds and commits exactly one atomic batch. build MUST NOT
// retain the *Batch beyond its call; the commit happens once build returns.
func (s *Store) BulkWrite(build func(b *Batch)) error {
	wb := s.db.NewBatch()
	mb := &Batch{store: s, wb: wb}
	build(mb)
	if err := wb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("kv: bulk write commit: %w", err)
	}
	return nil
}

// KV is a single key/value pair returned from a scan, with the namespace
// prefix and the scan prefix already stripped from Key.
type KV struct {
	Key   []byte
	Value []byte
}

// ScanPrefix returns every entry whose relative key starts with prefix,
// in ascending key order. Returned keys have prefix stripped.
func (s *Store) ScanPrefix(prefix []byte) ([]KV, error) {
	start := s.prefixed(prefix)
	upper := prefixUpperBound(start)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("kv: scan prefix iter: %w", err)
	}
	defer iter.Close()

	var out []KV
	for valid := iter.First(); valid; valid = iter.Next() {
		k := iter.Key()
		v := iter.Value()
		rel := append([]byte(nil), k[len(start):]...)
		out = append(out, KV{Key: rel, Value: append([]byte(nil), v...)})
	}
	return out, nil
}

// IterPrefixRev returns every entry whose relative key starts with prefix,
// newest (lexicographically largest) key first. Returned keys have prefix
// stripped.
func (s *Store) IterPrefixRev(prefix []byte) ([]KV, error) {
	start := s.prefixed(prefix)
	upper := prefixUpperBound(start)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("kv: iter prefix rev: %w", err)
	}
	defer iter.Close()

	var out []KV
	for valid := iter.Last(); valid; valid = iter.Prev() {
		k := iter.Key()
		v := iter.Value()
		rel := append([]byte(nil), k[len(start):]...)
		out = append(out, KV{Key: rel, Value: append([]byte(nil), v...)})
	}
	return out, nil
}

// prefixUpperBound returns the smallest byte string that compares greater
// than every string with the given prefix, by incrementing the last
// non-0xFF byte and truncating after it. If prefix is all 0xFF bytes (or
// empty) there is no finite upper bound and nil is returned.
func prefixUpperBound(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

// DB exposes the underlying Pebble handle for callers (height-indexed
// overlay, journal) that need to share the same physical database under a
// different sub-namespace.
func (s *Store) DB() *pebble.DB { return s.db }

// Prefix returns this view's namespace prefix.
func (s *Store) Prefix() []byte { return append([]byte(nil), s.prefix...) }
