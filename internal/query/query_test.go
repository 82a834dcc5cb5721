package query

import (
	"testing"

	"github.com/alkanes-indexing/blockcore/internal/activity"
	"github.com/alkanes-indexing/blockcore/internal/candles"
	"github.com/alkanes-indexing/blockcore/internal/index"
	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

const testPriceScale = 100_000_000

func openTestStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServicePoolAndCandlesAndActivity(t *testing.T) {
	store := openTestStore(t)
	finalizer := index.NewFinalizer(store, testPriceScale)

	pool := trace.AlkaneId{Block: 2, Tx: 1}
	base := trace.AlkaneId{Block: 2, Tx: 0}
	quote := trace.AlkaneId{Block: 0, Tx: 0}

	creation := index.PoolCreationObservation{
		Info:      trace.NewPoolInfo{PoolID: pool, BaseID: base, QuoteID: quote},
		Timestamp: 1_700_000_000,
	}
	swap := index.SwapObservation{
		Extraction: trace.ReserveExtraction{
			Pool:         pool,
			BaseID:       base,
			QuoteID:      quote,
			PrevReserves: [2]num.Uint128{num.Uint128From64(1_000_000), num.Uint128From64(1_000_000)},
			NewReserves:  [2]num.Uint128{num.Uint128From64(1_100_000), num.Uint128From64(909_091)},
			Volume:       [2]num.Uint128{num.Uint128From64(100_000), num.Uint128From64(90_909)},
		},
		Timestamp: 1_700_000_000,
	}

	if err := finalizer.ProcessBlock(100, []index.PoolCreationObservation{creation}, []index.SwapObservation{swap}); err != nil {
		t.Fatalf("process block: %v", err)
	}

	svc := New(store, finalizer, testPriceScale)

	summary, ok, err := svc.Pool(pool)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !ok {
		t.Fatalf("expected pool to be found")
	}
	if summary.Definition.BaseID != base || summary.Definition.QuoteID != quote {
		t.Fatalf("unexpected pool definition: %+v", summary.Definition)
	}
	if summary.Metrics.BaseReserve != num.Uint128From64(1_100_000) {
		t.Fatalf("unexpected base reserve: %+v", summary.Metrics.BaseReserve)
	}

	slice, err := svc.Candles(pool, candles.M10, 1_700_000_100, candles.SideBase)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(slice.CandlesNewestFirst) == 0 {
		t.Fatalf("expected at least one candle bucket")
	}

	page, err := svc.Activity(pool, 0, 10, activity.ChosenBase, activity.FilterAll)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(page.Activity) != 2 {
		t.Fatalf("expected 2 activity rows (pool_create + trade), got %d", len(page.Activity))
	}

	sorted, err := svc.ActivitySorted(pool, 0, 10, activity.ChosenBase, activity.SortTimestamp, activity.SortDesc, activity.SideFilterAll, activity.FilterTrades)
	if err != nil {
		t.Fatalf("activity sorted: %v", err)
	}
	if len(sorted.Activity) != 1 {
		t.Fatalf("expected 1 trade row, got %d", len(sorted.Activity))
	}
}
