package index

import (
	"path/filepath"
	"testing"

	"github.com/alkanes-indexing/blockcore/internal/activity"
	"github.com/alkanes-indexing/blockcore/internal/candles"
	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

const testPriceScale = 100_000_000

func openTestStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func swap(pool trace.AlkaneId, ts uint64, prevBase, prevQuote, newBase, newQuote, baseIn, quoteOut uint64) SwapObservation {
	return SwapObservation{
		Timestamp: ts,
		Extraction: trace.ReserveExtraction{
			Pool:         pool,
			PrevReserves: [2]num.Uint128{num.Uint128From64(prevBase), num.Uint128From64(prevQuote)},
			NewReserves:  [2]num.Uint128{num.Uint128From64(newBase), num.Uint128From64(newQuote)},
			Volume:       [2]num.Uint128{num.Uint128From64(baseIn), num.Uint128From64(quoteOut)},
		},
	}
}

func TestProcessBlockWritesActivityCandlesAndMetrics(t *testing.T) {
	store := openTestStore(t)
	f := NewFinalizer(store, testPriceScale)

	pool := trace.AlkaneId{Block: 2, Tx: 7}
	base := trace.AlkaneId{Block: 2, Tx: 1}
	quote := trace.AlkaneId{Block: 2, Tx: 2}

	creation := PoolCreationObservation{
		Info:      trace.NewPoolInfo{PoolID: pool, BaseID: base, QuoteID: quote},
		Timestamp: 10_000_000,
	}
	s := swap(pool, 10_000_010, 1_000_000, 1_000_000, 1_010_000, 990_099, 10_000, 9_901)

	if err := f.ProcessBlock(100, []PoolCreationObservation{creation}, []SwapObservation{s}); err != nil {
		t.Fatalf("process block: %v", err)
	}

	height, ok, err := f.CurrentHeight()
	if err != nil || !ok || height != 100 {
		t.Fatalf("expected current height 100, got %d ok=%v err=%v", height, ok, err)
	}

	def, ok, err := f.PoolDefinition(pool)
	if err != nil || !ok {
		t.Fatalf("expected pool definition to exist: ok=%v err=%v", ok, err)
	}
	if def.BaseID != base || def.QuoteID != quote {
		t.Fatalf("unexpected pool definition: %+v", def)
	}

	metrics, err := f.PoolMetricsFor(pool)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if metrics.BaseReserve != num.Uint128From64(1_010_000) || metrics.QuoteReserve != num.Uint128From64(990_099) {
		t.Fatalf("unexpected reserves in metrics: %+v", metrics)
	}
	if metrics.CumulativeBaseVolume != num.Uint128From64(10_000) {
		t.Fatalf("unexpected cumulative base volume: %+v", metrics.CumulativeBaseVolume)
	}

	page, err := activity.ReadForPool(store, pool, 1, 10, activity.ChosenBase, activity.FilterAll, testPriceScale)
	if err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 activity rows (creation + trade), got %d", page.Total)
	}

	slice, err := candles.ReadCandlesV1(store, pool, candles.M10, 10_000_010, candles.SideBase)
	if err != nil {
		t.Fatalf("read candles: %v", err)
	}
	if len(slice.CandlesNewestFirst) == 0 {
		t.Fatalf("expected at least one candle bucket")
	}
}

func TestProcessBlockPoolCreationIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	f := NewFinalizer(store, testPriceScale)
	pool := trace.AlkaneId{Block: 3, Tx: 1}
	creation := PoolCreationObservation{
		Info:      trace.NewPoolInfo{PoolID: pool, BaseID: trace.AlkaneId{Block: 3, Tx: 2}, QuoteID: trace.AlkaneId{Block: 3, Tx: 3}},
		Timestamp: 1_000,
	}

	if err := f.ProcessBlock(1, []PoolCreationObservation{creation}, nil); err != nil {
		t.Fatalf("process block 1: %v", err)
	}
	if err := f.ProcessBlock(2, []PoolCreationObservation{creation}, nil); err != nil {
		t.Fatalf("process block 2: %v", err)
	}

	page, err := activity.ReadForPool(store, pool, 1, 10, activity.ChosenBase, activity.FilterEvents, testPriceScale)
	if err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected exactly one pool-create row despite two creation observations, got %d", page.Total)
	}
}

func TestRollbackToHeightDeletesLaterBlocksState(t *testing.T) {
	store := openTestStore(t)
	f := NewFinalizer(store, testPriceScale)
	pool := trace.AlkaneId{Block: 5, Tx: 1}

	s1 := swap(pool, 10_000_000, 1_000_000, 1_000_000, 1_010_000, 990_099, 10_000, 9_901)
	s2 := swap(pool, 10_010_000, 1_010_000, 990_099, 1_020_000, 980_295, 10_000, 9_804)

	if err := f.ProcessBlock(1, nil, []SwapObservation{s1}); err != nil {
		t.Fatalf("process block 1: %v", err)
	}
	if err := f.ProcessBlock(2, nil, []SwapObservation{s2}); err != nil {
		t.Fatalf("process block 2: %v", err)
	}

	if err := f.RollbackToHeight(1); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	height, ok, err := f.CurrentHeight()
	if err != nil || !ok || height != 1 {
		t.Fatalf("expected height pointer reset to 1, got %d ok=%v err=%v", height, ok, err)
	}

	page, err := activity.ReadForPool(store, pool, 1, 10, activity.ChosenBase, activity.FilterAll, testPriceScale)
	if err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected only block 1's trade row to survive rollback, got %d", page.Total)
	}

	slice, err := candles.ReadCandlesV1(store, pool, candles.M10, 10_010_000, candles.SideBase)
	if err != nil {
		t.Fatalf("read candles: %v", err)
	}
	newestBucket := candles.BucketStart(10_010_000, candles.M10)
	if slice.NewestTS != newestBucket {
		t.Fatalf("expected newest bucket %d, got %d", newestBucket, slice.NewestTS)
	}
}
