package activity

import (
	"encoding/binary"

	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// SortKey selects which secondary index a read walks.
type SortKey byte

const (
	SortTimestamp SortKey = iota
	SortAmountBaseAbs
	SortAmountQuoteAbs
	SortSideBaseTs
	SortSideQuoteTs
	SortSideBaseAmount
	SortSideQuoteAmount
)

const (
	groupTagNone   = 0xFF
	groupTagTrades = 0x00
	groupTagEvents = 0x01
)

func groupTag(g *Group) byte {
	if g == nil {
		return groupTagNone
	}
	if *g == GroupTrades {
		return groupTagTrades
	}
	return groupTagEvents
}

func poolBytes(pool trace.AlkaneId) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], pool.Block)
	binary.BigEndian.PutUint64(b[4:12], pool.Tx)
	return b
}

// activityNsPrefix is the namespace for one pool's primary activity log.
func activityNsPrefix(pool trace.AlkaneId) []byte {
	out := append([]byte("activity:v1:"), poolBytes(pool)...)
	return out
}

// activityKey is the primary-log key for one row: namespace + ts(8) + seq(4).
func activityKey(pool trace.AlkaneId, ts uint64, seq uint32) []byte {
	k := activityNsPrefix(pool)
	var tail [12]byte
	binary.BigEndian.PutUint64(tail[0:8], ts)
	binary.BigEndian.PutUint32(tail[8:12], seq)
	return append(k, tail[:]...)
}

func idxNsPrefix(pool trace.AlkaneId, group *Group) []byte {
	out := append([]byte("activity:idx:v1:"), poolBytes(pool)...)
	return append(out, groupTag(group))
}

func idxPrefixFor(pool trace.AlkaneId, sort SortKey, group *Group) []byte {
	return append(idxNsPrefix(pool, group), byte(sort))
}

// countKey returns the O(1) running-total key for pool, scoped to group
// when non-nil.
func countKey(pool trace.AlkaneId, group *Group) []byte {
	return append(idxNsPrefix(pool, group), "__count"...)
}

func encodeU64BE(x uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], x)
	return b[:]
}

func decodeU64BE(v []byte) (uint64, bool) {
	if len(v) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

// indexValue mirrors append_index_entries' payload: ts(8) || seq(4).
func indexValue(ts uint64, seq uint32) []byte {
	v := make([]byte, 12)
	binary.BigEndian.PutUint64(v[0:8], ts)
	binary.BigEndian.PutUint32(v[8:12], seq)
	return v
}

func decodeTsSeq(v []byte) (ts uint64, seq uint32, ok bool) {
	if len(v) != 12 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint64(v[0:8]), binary.BigEndian.Uint32(v[8:12]), true
}
