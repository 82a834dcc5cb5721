package candles

import (
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// Candle is one OHLCV bar, prices and volume carried as fixed-point u128.
type Candle struct {
	Open, High, Low, Close num.Uint128
	Volume                 num.Uint128
}

func newCandle(price num.Uint128) Candle {
	return Candle{Open: price, High: price, Low: price, Close: price}
}

func (c *Candle) update(price, volDelta num.Uint128) {
	if price.Cmp(c.High) > 0 {
		c.High = price
	}
	if price.Cmp(c.Low) < 0 {
		c.Low = price
	}
	c.Close = price
	c.Volume = c.Volume.SatAdd(volDelta)
}

// DualCandle tracks both sides of the same bucket: the base candle (price =
// quote/base, volume = base_in) and the quote candle (price = base/quote,
// volume = quote_out).
type DualCandle struct {
	Base  Candle
	Quote Candle
}

func newDualCandle(priceQuotePerBase, priceBasePerQuote num.Uint128) DualCandle {
	return DualCandle{Base: newCandle(priceQuotePerBase), Quote: newCandle(priceBasePerQuote)}
}

func (dc *DualCandle) update(priceQuotePerBase, priceBasePerQuote, baseIn, quoteOut num.Uint128) {
	dc.Base.update(priceQuotePerBase, baseIn)
	dc.Quote.update(priceBasePerQuote, quoteOut)
}

// CandleKey identifies one bucket of one timeframe for one pool.
type CandleKey struct {
	Pool     trace.AlkaneId
	TF       Timeframe
	BucketTS uint64
}

// Cache accumulates one block's worth of trades into in-memory dual
// candles, grouped by (pool, timeframe, bucket), before being flushed to
// the store as one merged write set.
type Cache struct {
	buckets map[CandleKey]DualCandle
}

// NewCache returns an empty per-block candle accumulator.
func NewCache() *Cache {
	return &Cache{buckets: map[CandleKey]DualCandle{}}
}

// ApplyTradeForFrames folds one trade into every frame in frames, updating
// the in-memory bucket for (pool, frame, bucket_start(ts, frame)).
func (c *Cache) ApplyTradeForFrames(ts uint64, pool trace.AlkaneId, frames []Timeframe, priceBasePerQuote, priceQuotePerBase, baseIn, quoteOut num.Uint128) {
	for _, tf := range frames {
		key := CandleKey{Pool: pool, TF: tf, BucketTS: BucketStart(ts, tf)}
		dc, ok := c.buckets[key]
		if !ok {
			dc = newDualCandle(priceQuotePerBase, priceBasePerQuote)
		}
		dc.update(priceQuotePerBase, priceBasePerQuote, baseIn, quoteOut)
		c.buckets[key] = dc
	}
}

// Empty reports whether no trade touched this cache.
func (c *Cache) Empty() bool { return len(c.buckets) == 0 }

// Buckets exposes the accumulated (key, candle) pairs for merging by the
// caller (component C6's finalizer), which knows how to read/write the
// store atomically within its own commit batch.
func (c *Cache) Buckets() map[CandleKey]DualCandle { return c.buckets }
