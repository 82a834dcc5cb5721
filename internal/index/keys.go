// Package index implements component C6: the per-block finalizer that folds
// one block's detected pool creations and swaps into the activity log,
// candle cache, and pool metrics, then commits the whole block as one
// atomic batch with a rollback journal.
package index

import (
	"encoding/binary"

	"github.com/alkanes-indexing/blockcore/internal/trace"
)

func poolBytes(pool trace.AlkaneId) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], pool.Block)
	binary.BigEndian.PutUint64(b[4:12], pool.Tx)
	return b
}

func decodePoolBytes(b []byte) trace.AlkaneId {
	return trace.AlkaneId{Block: binary.BigEndian.Uint32(b[0:4]), Tx: binary.BigEndian.Uint64(b[4:12])}
}

func poolDefKey(pool trace.AlkaneId) []byte {
	return append([]byte("pooldef:v1:"), poolBytes(pool)...)
}

func poolMetricsKey(pool trace.AlkaneId) []byte {
	return append([]byte("poolmetrics:v1:"), poolBytes(pool)...)
}

func reservesSnapshotKey(pool trace.AlkaneId) []byte {
	return append([]byte("reserves:v1:"), poolBytes(pool)...)
}

// heightPointerKey is the single "index_height" pointer bumped on every
// committed block.
var heightPointerKey = []byte("index_height")

func journalKey(height uint32) []byte {
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], height)
	return append([]byte("index_height_journal:"), h[:]...)
}

func encodeHeight(h uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h)
	return b[:]
}

func decodeHeight(v []byte) (uint32, bool) {
	if len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// encodeJournal packs the set of plain (non-height-indexed) keys written at
// one height into a single value: repeated len_be16 || key.
func encodeJournal(keys [][]byte) []byte {
	var out []byte
	for _, k := range keys {
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(k)))
		out = append(out, l[:]...)
		out = append(out, k...)
	}
	return out
}

func decodeJournal(v []byte) [][]byte {
	var out [][]byte
	for len(v) >= 2 {
		l := binary.BigEndian.Uint16(v[0:2])
		v = v[2:]
		if int(l) > len(v) {
			break
		}
		out = append(out, append([]byte(nil), v[:l]...))
		v = v[l:]
	}
	return out
}
