package activity

import (
	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

type seqKey struct {
	pool trace.AlkaneId
	ts   uint64
}

// PoolGroupKey scopes a per-block count delta to one pool's one group.
type PoolGroupKey struct {
	Pool  trace.AlkaneId
	Group Group
}

// Accumulator collects one block's activity writes: the primary log rows,
// all seven secondary-index entries (written twice, once globally and once
// group-scoped), and the per-pool/per-group counter deltas the caller
// (component C6) needs to bump the O(1) running totals.
type Accumulator struct {
	seqs              map[seqKey]uint32
	writes            []kv.KV
	perPoolDelta      map[trace.AlkaneId]uint64
	perPoolGroupDelta map[PoolGroupKey]uint64
}

// NewAccumulator returns an empty per-block activity accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		seqs:              map[seqKey]uint32{},
		perPoolDelta:      map[trace.AlkaneId]uint64{},
		perPoolGroupDelta: map[PoolGroupKey]uint64{},
	}
}

// Push appends one activity row for pool at ts, assigning the next unused
// seq for that (pool, ts) pair, and stages the primary write plus every
// secondary-index write (global and group-scoped). Returns the assigned seq.
func (a *Accumulator) Push(pool trace.AlkaneId, ts uint64, rec Record) uint32 {
	key := seqKey{pool: pool, ts: ts}
	seq := a.seqs[key]
	a.seqs[key] = seq + 1

	a.writes = append(a.writes, kv.KV{Key: activityKey(pool, ts, seq), Value: rec.encode()})

	a.appendIndexEntries(pool, ts, seq, rec, nil)
	group := GroupFor(rec.Kind)
	a.appendIndexEntries(pool, ts, seq, rec, &group)

	a.perPoolDelta[pool]++
	a.perPoolGroupDelta[PoolGroupKey{Pool: pool, Group: group}]++
	return seq
}

func (a *Accumulator) appendIndexEntries(pool trace.AlkaneId, ts uint64, seq uint32, rec Record, group *Group) {
	val := indexValue(ts, seq)
	absb := rec.BaseDelta.Mag
	absq := rec.QuoteDelta.Mag
	sb := rec.BaseDelta.SideCode()
	sq := rec.QuoteDelta.SideCode()

	put := func(key []byte) { a.writes = append(a.writes, kv.KV{Key: key, Value: val}) }

	var tsSuffix [12]byte
	putU64(tsSuffix[0:8], ts)
	putU32(tsSuffix[8:12], seq)

	put(append(idxPrefixFor(pool, SortTimestamp, group), tsSuffix[:]...))

	var absbBuf [16]byte
	absb.PutBE(absbBuf[:])
	put(append(append(idxPrefixFor(pool, SortAmountBaseAbs, group), absbBuf[:]...), tsSuffix[:]...))

	var absqBuf [16]byte
	absq.PutBE(absqBuf[:])
	put(append(append(idxPrefixFor(pool, SortAmountQuoteAbs, group), absqBuf[:]...), tsSuffix[:]...))

	put(append(append(append(idxPrefixFor(pool, SortSideBaseAmount, group), sb), absbBuf[:]...), tsSuffix[:]...))
	put(append(append(append(idxPrefixFor(pool, SortSideQuoteAmount, group), sq), absqBuf[:]...), tsSuffix[:]...))
	put(append(append(idxPrefixFor(pool, SortSideBaseTs, group), sb), tsSuffix[:]...))
	put(append(append(idxPrefixFor(pool, SortSideQuoteTs, group), sq), tsSuffix[:]...))
}

func putU64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> uint(8*(7-i)))
	}
}

func putU32(dst []byte, v uint32) {
	for i := 0; i < 4; i++ {
		dst[i] = byte(v >> uint(8*(3-i)))
	}
}

// Writes returns every staged write (primary + all index entries).
func (a *Accumulator) Writes() []kv.KV { return a.writes }

// PerPoolDelta returns how many rows were added per pool this block.
func (a *Accumulator) PerPoolDelta() map[trace.AlkaneId]uint64 { return a.perPoolDelta }

// PerPoolGroupDelta returns how many rows were added per (pool, group) this block.
func (a *Accumulator) PerPoolGroupDelta() map[PoolGroupKey]uint64 { return a.perPoolGroupDelta }

// CounterKey exposes the O(1) running-total key for pool (overall, when
// group is nil, or scoped to one group).
func CounterKey(pool trace.AlkaneId, group *Group) []byte { return countKey(pool, group) }

// ReadCounter reads the current O(1) counter value for key, defaulting to 0
// when unset.
func ReadCounter(store *kv.Store, key []byte) (uint64, error) {
	v, ok, err := store.Get(key)
	if err != nil || !ok {
		return 0, err
	}
	n, _ := decodeU64BE(v)
	return n, nil
}

// EncodeCounter serializes a counter value for storage.
func EncodeCounter(n uint64) []byte { return encodeU64BE(n) }
