package candles

import (
	"encoding/binary"
	"fmt"

	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// candleNsPrefix returns the fixed-width prefix shared by every bucket of
// one (pool, timeframe) series; big-endian bucket timestamps appended after
// it sort lexicographically in timestamp order, which IterPrefixRev and
// ScanPrefix rely on.
func candleNsPrefix(pool trace.AlkaneId, tf Timeframe) []byte {
	out := make([]byte, 13)
	binary.BigEndian.PutUint32(out[0:4], pool.Block)
	binary.BigEndian.PutUint64(out[4:12], pool.Tx)
	out[12] = byte(tf)
	return out
}

func candleKey(pool trace.AlkaneId, tf Timeframe, bucketTS uint64) []byte {
	k := candleNsPrefix(pool, tf)
	tsBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBytes, bucketTS)
	return append(k, tsBytes...)
}

func bucketTSFromKey(key []byte) (uint64, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), true
}

// encodeFullCandle serializes both sides of a bucket into a fixed 160-byte
// blob: five u128 fields (open, high, low, close, volume) per side.
func encodeFullCandle(dc DualCandle) []byte {
	out := make([]byte, 160)
	putSide := func(dst []byte, c Candle) {
		c.Open.PutBE(dst[0:16])
		c.High.PutBE(dst[16:32])
		c.Low.PutBE(dst[32:48])
		c.Close.PutBE(dst[48:64])
		c.Volume.PutBE(dst[64:80])
	}
	putSide(out[0:80], dc.Base)
	putSide(out[80:160], dc.Quote)
	return out
}

func decodeFullCandle(v []byte) (DualCandle, error) {
	if len(v) != 160 {
		return DualCandle{}, fmt.Errorf("candles: decode full candle: expected 160 bytes, got %d", len(v))
	}
	getSide := func(src []byte) Candle {
		return Candle{
			Open:   num.Uint128FromBE(src[0:16]),
			High:   num.Uint128FromBE(src[16:32]),
			Low:    num.Uint128FromBE(src[32:48]),
			Close:  num.Uint128FromBE(src[48:64]),
			Volume: num.Uint128FromBE(src[64:80]),
		}
	}
	return DualCandle{Base: getSide(v[0:80]), Quote: getSide(v[80:160])}, nil
}

// MergeWithExisting reads whatever candle already sits at (pool, tf,
// bucket) in store and folds dcNew into it the way SPEC_FULL.md §4.6
// describes: open kept from the stored candle (the earliest price),
// high/low widened over both, close from the new value (it is later in
// time), volume summed.
func MergeWithExisting(store *kv.Store, key []byte, dcNew DualCandle) ([]byte, error) {
	raw, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("candles: read existing: %w", err)
	}
	if !ok {
		return encodeFullCandle(dcNew), nil
	}
	existing, err := decodeFullCandle(raw)
	if err != nil {
		return nil, err
	}
	merge := func(old, n Candle) Candle {
		out := old
		if n.High.Cmp(out.High) > 0 {
			out.High = n.High
		}
		if n.Low.Cmp(out.Low) < 0 {
			out.Low = n.Low
		}
		out.Close = n.Close
		out.Volume = out.Volume.SatAdd(n.Volume)
		return out
	}
	merged := DualCandle{Base: merge(existing.Base, dcNew.Base), Quote: merge(existing.Quote, dcNew.Quote)}
	return encodeFullCandle(merged), nil
}

// IntoWrites turns the cache's accumulated buckets into (key, value) pairs
// ready for the caller's atomic commit batch, each merged with whatever
// already exists on disk for that bucket.
func (c *Cache) IntoWrites(store *kv.Store) ([]kv.KV, error) {
	writes := make([]kv.KV, 0, len(c.buckets))
	for key, dc := range c.buckets {
		k := candleKey(key.Pool, key.TF, key.BucketTS)
		v, err := MergeWithExisting(store, k, dc)
		if err != nil {
			return nil, err
		}
		writes = append(writes, kv.KV{Key: k, Value: v})
	}
	return writes, nil
}
