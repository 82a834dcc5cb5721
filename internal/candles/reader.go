package candles

import (
	"sort"

	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// Side picks which half of a dual candle a reader wants.
type Side int

const (
	// SideBase is price = quote/base.
	SideBase Side = iota
	// SideQuote is price = base/quote.
	SideQuote
)

// Slice is a read result: newest-first candles plus the bucket start the
// caller should treat as "now" for chart continuation.
type Slice struct {
	CandlesNewestFirst []Candle
	NewestTS           uint64
}

// ReadCandlesV1 returns every bucket from the earliest stored one through
// "now", forward gap-filling missing buckets with a flat candle at the
// last known close (SPEC_FULL.md §4.6), then re-emits newest-first.
func ReadCandlesV1(store *kv.Store, pool trace.AlkaneId, tf Timeframe, nowTS uint64, side Side) (Slice, error) {
	dur := tf.DurationSecs()
	prefix := candleNsPrefix(pool, tf)

	entries, err := store.ScanPrefix(prefix)
	if err != nil {
		return Slice{}, err
	}

	perBucket := map[uint64]DualCandle{}
	for _, e := range entries {
		ts, ok := bucketTSFromKey(e.Key)
		if !ok {
			continue
		}
		dc, err := decodeFullCandle(e.Value)
		if err != nil {
			return Slice{}, err
		}
		perBucket[ts] = dc
	}
	if len(perBucket) == 0 {
		return Slice{}, nil
	}

	buckets := make([]uint64, 0, len(perBucket))
	for ts := range perBucket {
		buckets = append(buckets, ts)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	startBucket := buckets[0]
	newestWithData := buckets[len(buckets)-1]
	newestNow := (nowTS / dur) * dur

	var lastClose num.Uint128
	haveClose := false
	forward := map[uint64]Candle{}
	order := make([]uint64, 0, len(buckets)+8)

	pick := func(dc DualCandle) Candle {
		if side == SideBase {
			return dc.Base
		}
		return dc.Quote
	}

	for bts := startBucket; bts <= newestWithData; bts += dur {
		if dc, ok := perBucket[bts]; ok {
			c := pick(dc)
			if haveClose {
				c.Open = lastClose
				if c.Open.Cmp(c.High) > 0 {
					c.High = c.Open
				}
				if c.Open.Cmp(c.Low) < 0 {
					c.Low = c.Open
				}
			}
			lastClose = c.Close
			haveClose = true
			forward[bts] = c
			order = append(order, bts)
		} else {
			c := flatCandle(lastClose)
			haveClose = true
			forward[bts] = c
			order = append(order, bts)
		}
		// Guard against an unsigned-wraparound loop when dur is 0 or huge.
		if dur == 0 {
			break
		}
	}

	if newestNow > newestWithData {
		for t := newestWithData + dur; t <= newestNow; t += dur {
			forward[t] = flatCandle(lastClose)
			order = append(order, t)
			if dur == 0 {
				break
			}
		}
	}

	out := make([]Candle, len(order))
	for i, ts := range order {
		out[len(order)-1-i] = forward[ts]
	}

	return Slice{CandlesNewestFirst: out, NewestTS: newestNow}, nil
}

func flatCandle(lastClose num.Uint128) Candle {
	return Candle{Open: lastClose, High: lastClose, Low: lastClose, Close: lastClose}
}
