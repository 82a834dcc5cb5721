package kv

import (
	"encoding/binary"
	"fmt"
)

// HeightIndexedStore is the versioned overlay used for namespaces that must
// support rollback-by-deletion above a cutoff height: the activity primary
// log, its secondary indexes, the activity counters, and the reserves
// snapshot (see SPEC_FULL.md §4.0). It is grounded on src/runtime/height_indexed_storage.rs, referenced
// by Mdb::put_versioned / Mdb::get_at_height / Mdb::rollback_to_height in
// the original reference implementation.
//
// Every versioned key also has a plain "current" value written to the
// backing Store, exactly as Mdb::put_versioned does both hi_storage.put and
// self.put. The overlay only needs to hold enough history to roll the
// current value back to an earlier height.
type HeightIndexedStore struct {
	plain   *Store // the regular namespace (current values live here)
	history *Store // "__HI/<label>/" sub-namespace (version history)
}

// NewHeightIndexedStore builds an overlay sharing db with plain's namespace
// prefix, storing history under "__HI/<label>/".
func NewHeightIndexedStore(plain *Store, label string) *HeightIndexedStore {
	root := &Store{db: plain.db}
	return &HeightIndexedStore{
		plain:   plain,
		history: root.Namespace("__HI/" + label + "/"),
	}
}

func versionKey(userKey []byte, height uint32) []byte {
	var lenB [4]byte
	binary.BigEndian.PutUint32(lenB[:], uint32(len(userKey)))
	out := make([]byte, 0, 4+len(userKey)+4)
	out = append(out, lenB[:]...)
	out = append(out, userKey...)
	var hB [4]byte
	binary.BigEndian.PutUint32(hB[:], height)
	out = append(out, hB[:]...)
	return out
}

func versionKeyPrefix(userKey []byte) []byte {
	var lenB [4]byte
	binary.BigEndian.PutUint32(lenB[:], uint32(len(userKey)))
	out := make([]byte, 0, 4+len(userKey))
	out = append(out, lenB[:]...)
	out = append(out, userKey...)
	return out
}

// parseVersionKey splits a raw history key back into (userKey, height).
func parseVersionKey(k []byte) ([]byte, uint32, error) {
	if len(k) < 8 {
		return nil, 0, fmt.Errorf("kv: malformed version key (len=%d)", len(k))
	}
	klen := binary.BigEndian.Uint32(k[:4])
	if uint32(len(k)) != 4+klen+4 {
		return nil, 0, fmt.Errorf("kv: malformed version key length fields")
	}
	userKey := k[4 : 4+klen]
	height := binary.BigEndian.Uint32(k[4+klen:])
	return userKey, height, nil
}

// PutVersioned records value for key at height in both the history overlay
// and the plain current-value namespace, as one logical write (callers are
// expected to stage both inside the same outer block-commit batch; this
// type does not itself open a transaction spanning both stores beyond what
// Pebble gives us for free on a shared DB).
func (h *HeightIndexedStore) PutVersioned(key, value []byte, height uint32) error {
	if err := h.history.Put(versionKey(key, height), value); err != nil {
		return fmt.Errorf("kv: put versioned history: %w", err)
	}
	if err := h.plain.Put(key, value); err != nil {
		return fmt.Errorf("kv: put versioned current: %w", err)
	}
	return nil
}

// StageVersioned adds the history-side write for key/value/height into an
// already-open Batch on the plain store; callers must also Put the current
// value into the same batch (kept separate because Batch is bound to one
// Store's prefix).
func (h *HeightIndexedStore) StageVersioned(b *Batch, key, value []byte, height uint32) {
	histBatch := &Batch{store: h.history, wb: b.wb}
	histBatch.Put(versionKey(key, height), value)
}

// GetAtHeight returns the newest version of key with version height <= height.
func (h *HeightIndexedStore) GetAtHeight(key []byte, height uint32) ([]byte, bool, error) {
	entries, err := h.history.IterPrefixRev(versionKeyPrefix(key))
	if err != nil {
		return nil, false, fmt.Errorf("kv: get at height scan: %w", err)
	}
	for _, e := range entries {
		_, ver, perr := parseVersionKey(append(versionKeyPrefix(key), e.Key...))
		if perr != nil {
			continue
		}
		if ver <= height {
			return e.Value, true, nil
		}
	}
	return nil, false, nil
}

// GetCurrent returns the plain current value (no versioning lookup needed
// on the hot path — only RollbackToHeight touches history directly).
func (h *HeightIndexedStore) GetCurrent(key []byte) ([]byte, bool, error) {
	return h.plain.Get(key)
}

// RollbackToHeight deletes every version with height > target, across every
// distinct key ever written to this overlay, and restores each affected
// key's plain current value to its newest surviving version (or deletes the
// plain key if no version survives). This is a full-namespace scan, which
// is acceptable because rollback is a rare, operator-triggered event, not a
// per-block hot path.
func (h *HeightIndexedStore) RollbackToHeight(target uint32) error {
	all, err := h.history.ScanPrefix(nil)
	if err != nil {
		return fmt.Errorf("kv: rollback scan: %w", err)
	}

	type versionedKey struct {
		userKey []byte
		newest  []byte // newest surviving value, nil if none
		hasAny  bool
	}
	affected := map[string]*versionedKey{}

	for _, e := range all {
		userKey, height, perr := parseVersionKey(e.Key)
		if perr != nil {
			continue
		}
		sk := string(userKey)
		if _, ok := affected[sk]; !ok {
			affected[sk] = &versionedKey{userKey: userKey}
		}
		if height > target {
			if err := h.history.Delete(e.Key); err != nil {
				return fmt.Errorf("kv: rollback delete version: %w", err)
			}
			continue
		}
		// Track the newest surviving version (entries arrive in ascending
		// key order from ScanPrefix, and height is the key's tail, so a
		// later iteration with height<=target that is numerically larger
		// supersedes an earlier one).
		rec := affected[sk]
		rec.hasAny = true
		rec.newest = e.Value
	}

	for _, rec := range affected {
		if rec.hasAny {
			if err := h.plain.Put(rec.userKey, rec.newest); err != nil {
				return fmt.Errorf("kv: rollback restore current: %w", err)
			}
		} else {
			if err := h.plain.Delete(rec.userKey); err != nil {
				return fmt.Errorf("kv: rollback delete current: %w", err)
			}
		}
	}
	return nil
}
