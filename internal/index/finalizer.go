package index

import (
	"fmt"

	"github.com/alkanes-indexing/blockcore/internal/activity"
	"github.com/alkanes-indexing/blockcore/internal/candles"
	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// SwapObservation pairs one detected swap with the transaction context the
// trace walker itself does not carry: when it happened, which transaction,
// and who sent it.
type SwapObservation struct {
	Extraction trace.ReserveExtraction
	Timestamp  uint64
	TxID       [32]byte
	AddressSPK []byte
}

// PoolCreationObservation pairs one detected pool-creation event with its
// transaction context.
type PoolCreationObservation struct {
	Info       trace.NewPoolInfo
	Timestamp  uint64
	TxID       [32]byte
	AddressSPK []byte
}

// Finalizer holds the per-block commit contract: one atomic batch covering
// candles, the activity log and its counters, pool definitions, pool
// metrics, reserve snapshots, the rollback journal, and the height pointer.
type Finalizer struct {
	store      *kv.Store
	activityHI *kv.HeightIndexedStore
	reservesHI *kv.HeightIndexedStore
	countersHI *kv.HeightIndexedStore
	priceScale uint64
}

// NewFinalizer builds a finalizer writing into store's namespace, scaling
// candle prices by priceScale (component A1's configured PRICE_SCALE).
func NewFinalizer(store *kv.Store, priceScale uint64) *Finalizer {
	return &Finalizer{
		store:      store,
		activityHI: kv.NewHeightIndexedStore(store, "activity"),
		reservesHI: kv.NewHeightIndexedStore(store, "reserves"),
		countersHI: kv.NewHeightIndexedStore(store, "counters"),
		priceScale: priceScale,
	}
}

// CurrentHeight returns the last committed /index_height, or (0, false) if
// nothing has been indexed yet.
func (f *Finalizer) CurrentHeight() (uint32, bool, error) {
	v, ok, err := f.store.Get(heightPointerKey)
	if err != nil || !ok {
		return 0, false, err
	}
	h, valid := decodeHeight(v)
	return h, valid, nil
}

// PoolDefinition looks up a previously recorded pool definition.
func (f *Finalizer) PoolDefinition(pool trace.AlkaneId) (trace.PoolDefinition, bool, error) {
	v, ok, err := f.store.Get(poolDefKey(pool))
	if err != nil || !ok {
		return trace.PoolDefinition{}, false, err
	}
	def, derr := decodePoolDef(v)
	if derr != nil {
		return trace.PoolDefinition{}, false, derr
	}
	return def, true, nil
}

// AllPoolDefinitions scans every committed pool definition, for seeding a
// fresh process's in-memory pool registry on startup (the trace walker
// needs the full set of known pools to recognize swap anchors against
// pools created in earlier blocks).
func (f *Finalizer) AllPoolDefinitions() (map[trace.AlkaneId]trace.PoolDefinition, error) {
	rows, err := f.store.ScanPrefix([]byte("pooldef:v1:"))
	if err != nil {
		return nil, fmt.Errorf("index: scan pool defs: %w", err)
	}
	out := make(map[trace.AlkaneId]trace.PoolDefinition, len(rows))
	for _, row := range rows {
		def, derr := decodePoolDef(row.Value)
		if derr != nil {
			return nil, fmt.Errorf("index: corrupt pool def: %w", derr)
		}
		out[def.PoolID] = def
	}
	return out, nil
}

// PoolMetricsFor returns the current committed metrics for pool, or the
// zero value if the pool has never traded.
func (f *Finalizer) PoolMetricsFor(pool trace.AlkaneId) (PoolMetrics, error) {
	v, ok, err := f.store.Get(poolMetricsKey(pool))
	if err != nil {
		return PoolMetrics{}, err
	}
	if !ok {
		return PoolMetrics{}, nil
	}
	m, valid := decodePoolMetrics(v)
	if !valid {
		return PoolMetrics{}, fmt.Errorf("index: corrupt pool metrics for %+v", pool)
	}
	return m, nil
}

// ReservesAtHeight returns the reserve snapshot for pool as of height,
// newest version with version height <= height.
func (f *Finalizer) ReservesAtHeight(pool trace.AlkaneId, height uint32) (base, quote num.Uint128, ok bool, err error) {
	v, found, err := f.reservesHI.GetAtHeight(reservesSnapshotKey(pool), height)
	if err != nil || !found {
		return num.Uint128{}, num.Uint128{}, false, err
	}
	b, q, valid := decodeReservesSnapshot(v)
	if !valid {
		return num.Uint128{}, num.Uint128{}, false, fmt.Errorf("index: corrupt reserves snapshot for %+v", pool)
	}
	return b, q, true, nil
}

// uint128Delta computes the signed difference newV-oldV without relying on
// two's-complement arithmetic: magnitude plus sign.
func uint128Delta(newV, oldV num.Uint128) num.Int128 {
	if newV.Cmp(oldV) >= 0 {
		d, _ := newV.Sub(oldV)
		return num.Int128{Mag: d}
	}
	d, _ := oldV.Sub(newV)
	return num.Int128{Neg: true, Mag: d}
}

// ProcessBlock folds one block's pool creations and detected swaps into the
// activity log, candle cache, and pool metrics, then commits the whole
// block as one atomic batch plus its rollback journal entry, finally
// bumping /index_height to height.
func (f *Finalizer) ProcessBlock(height uint32, creations []PoolCreationObservation, swaps []SwapObservation) error {
	acc := activity.NewAccumulator()
	cache := candles.NewCache()
	touchedMetrics := map[trace.AlkaneId]PoolMetrics{}
	var journaledKeys [][]byte

	seenDefs := map[trace.AlkaneId]bool{}
	var poolDefWrites []kv.KV
	for _, c := range creations {
		if seenDefs[c.Info.PoolID] {
			continue
		}
		seenDefs[c.Info.PoolID] = true
		if _, ok, err := f.PoolDefinition(c.Info.PoolID); err != nil {
			return fmt.Errorf("index: check existing pool def: %w", err)
		} else if ok {
			continue
		}

		def := trace.PoolDefinition{
			PoolID:    c.Info.PoolID,
			BaseID:    c.Info.BaseID,
			QuoteID:   c.Info.QuoteID,
			FactoryID: c.Info.FactoryID,
		}
		key := poolDefKey(def.PoolID)
		poolDefWrites = append(poolDefWrites, kv.KV{Key: key, Value: encodePoolDef(def)})
		journaledKeys = append(journaledKeys, key)

		acc.Push(def.PoolID, c.Timestamp, activity.Record{
			Timestamp:  c.Timestamp,
			TxID:       c.TxID,
			Kind:       activity.PoolCreate,
			AddressSPK: c.AddressSPK,
			Success:    true,
		})
	}

	for _, s := range swaps {
		ext := s.Extraction
		baseDelta := uint128Delta(ext.NewReserves[0], ext.PrevReserves[0])
		quoteDelta := uint128Delta(ext.NewReserves[1], ext.PrevReserves[1])

		dir := activity.QuoteIn
		kind := activity.TradeBuy
		if !baseDelta.Neg && !baseDelta.Mag.IsZero() {
			dir = activity.BaseIn
			kind = activity.TradeSell
		}

		acc.Push(ext.Pool, s.Timestamp, activity.Record{
			Timestamp:  s.Timestamp,
			TxID:       s.TxID,
			Kind:       kind,
			Direction:  &dir,
			BaseDelta:  baseDelta,
			QuoteDelta: quoteDelta,
			AddressSPK: s.AddressSPK,
			Success:    true,
		})

		priceQuotePerBase := candles.PriceQuotePerBase(ext.NewReserves[0], ext.NewReserves[1], f.priceScale)
		priceBasePerQuote := candles.PriceBasePerQuote(ext.NewReserves[0], ext.NewReserves[1], f.priceScale)
		cache.ApplyTradeForFrames(s.Timestamp, ext.Pool, candles.AllTimeframes, priceBasePerQuote, priceQuotePerBase, ext.Volume[0], ext.Volume[1])

		prev, ok := touchedMetrics[ext.Pool]
		if !ok {
			stored, err := f.PoolMetricsFor(ext.Pool)
			if err != nil {
				return fmt.Errorf("index: read pool metrics: %w", err)
			}
			prev = stored
		}
		touchedMetrics[ext.Pool] = PoolMetrics{
			BaseReserve:           ext.NewReserves[0],
			QuoteReserve:          ext.NewReserves[1],
			CumulativeBaseVolume:  prev.CumulativeBaseVolume.SatAdd(ext.Volume[0]),
			CumulativeQuoteVolume: prev.CumulativeQuoteVolume.SatAdd(ext.Volume[1]),
		}
	}

	candleWrites, err := cache.IntoWrites(f.store)
	if err != nil {
		return fmt.Errorf("index: merge candle writes: %w", err)
	}
	for _, w := range candleWrites {
		journaledKeys = append(journaledKeys, w.Key)
	}
	for pool := range touchedMetrics {
		journaledKeys = append(journaledKeys, poolMetricsKey(pool))
	}

	counterUpdates := map[string][]byte{}
	for pool, delta := range acc.PerPoolDelta() {
		key := activity.CounterKey(pool, nil)
		cur, err := activity.ReadCounter(f.store, key)
		if err != nil {
			return fmt.Errorf("index: read activity counter: %w", err)
		}
		counterUpdates[string(key)] = activity.EncodeCounter(cur + delta)
	}
	for pg, delta := range acc.PerPoolGroupDelta() {
		group := pg.Group
		key := activity.CounterKey(pg.Pool, &group)
		cur, err := activity.ReadCounter(f.store, key)
		if err != nil {
			return fmt.Errorf("index: read activity group counter: %w", err)
		}
		counterUpdates[string(key)] = activity.EncodeCounter(cur + delta)
	}

	err = f.store.BulkWrite(func(b *kv.Batch) {
		for _, w := range poolDefWrites {
			b.Put(w.Key, w.Value)
		}
		for _, w := range acc.Writes() {
			f.activityHI.StageVersioned(b, w.Key, w.Value, height)
			b.Put(w.Key, w.Value)
		}
		for key, val := range counterUpdates {
			k := []byte(key)
			f.countersHI.StageVersioned(b, k, val, height)
			b.Put(k, val)
		}
		for _, w := range candleWrites {
			b.Put(w.Key, w.Value)
		}
		for pool, m := range touchedMetrics {
			b.Put(poolMetricsKey(pool), encodePoolMetrics(m))
			snapKey := reservesSnapshotKey(pool)
			snapVal := encodeReservesSnapshot(m.BaseReserve, m.QuoteReserve)
			f.reservesHI.StageVersioned(b, snapKey, snapVal, height)
			b.Put(snapKey, snapVal)
		}
		if len(journaledKeys) > 0 {
			b.Put(journalKey(height), encodeJournal(journaledKeys))
		}
		b.Put(heightPointerKey, encodeHeight(height))
	})
	if err != nil {
		return fmt.Errorf("index: commit block %d: %w", height, err)
	}
	return nil
}

// RollbackToHeight undoes every block committed above target. Height-indexed
// concerns (activity rows, their secondary indexes, reserve snapshots, and
// activity counters) roll back via HeightIndexedStore.RollbackToHeight;
// journaled plain keys (candles, pool definitions, pool metrics) written
// above target are deleted outright — re-indexing forward rebuilds them,
// per the lifecycle this store was designed around.
func (f *Finalizer) RollbackToHeight(target uint32) error {
	if err := f.activityHI.RollbackToHeight(target); err != nil {
		return fmt.Errorf("index: rollback activity: %w", err)
	}
	if err := f.reservesHI.RollbackToHeight(target); err != nil {
		return fmt.Errorf("index: rollback reserves: %w", err)
	}
	if err := f.countersHI.RollbackToHeight(target); err != nil {
		return fmt.Errorf("index: rollback activity counters: %w", err)
	}

	cur, ok, err := f.CurrentHeight()
	if err != nil {
		return fmt.Errorf("index: read current height: %w", err)
	}
	if !ok || cur <= target {
		return nil
	}

	for h := target + 1; h <= cur; h++ {
		jKey := journalKey(h)
		v, found, err := f.store.Get(jKey)
		if err != nil {
			return fmt.Errorf("index: read journal for height %d: %w", h, err)
		}
		if !found {
			continue
		}
		for _, k := range decodeJournal(v) {
			if err := f.store.Delete(k); err != nil {
				return fmt.Errorf("index: rollback delete journaled key: %w", err)
			}
		}
		if err := f.store.Delete(jKey); err != nil {
			return fmt.Errorf("index: delete journal entry: %w", err)
		}
	}

	if err := f.store.Put(heightPointerKey, encodeHeight(target)); err != nil {
		return fmt.Errorf("index: reset height pointer: %w", err)
	}
	return nil
}
