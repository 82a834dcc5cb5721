package activity

import (
	"path/filepath"
	"testing"

	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/num"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

func openTestStore(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Open(filepath.Join(t.TempDir(), "activity"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func buyRecord(ts uint64, base, quote int64) Record {
	return Record{
		Timestamp:  ts,
		Kind:       TradeBuy,
		Direction:  directionPtr(QuoteIn),
		BaseDelta:  num.Int128FromInt64(base),
		QuoteDelta: num.Int128FromInt64(quote),
		Success:    true,
	}
}

func sellRecord(ts uint64, base, quote int64) Record {
	return Record{
		Timestamp:  ts,
		Kind:       TradeSell,
		Direction:  directionPtr(BaseIn),
		BaseDelta:  num.Int128FromInt64(base),
		QuoteDelta: num.Int128FromInt64(quote),
		Success:    true,
	}
}

func directionPtr(d Direction) *Direction { return &d }

func commit(t *testing.T, store *kv.Store, acc *Accumulator) {
	t.Helper()
	for _, w := range acc.Writes() {
		if err := store.Put(w.Key, w.Value); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := buyRecord(1_000, -100, 50)
	rec.AddressSPK = []byte{0xde, 0xad, 0xbe, 0xef}
	rec.TxID[0] = 0x42

	got, err := decodeRecord(rec.encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Timestamp != rec.Timestamp || got.Kind != rec.Kind || got.Success != rec.Success {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, rec)
	}
	if got.BaseDelta != rec.BaseDelta || got.QuoteDelta != rec.QuoteDelta {
		t.Fatalf("delta round trip mismatch: %+v vs %+v", got, rec)
	}
	if got.Direction == nil || *got.Direction != *rec.Direction {
		t.Fatalf("direction round trip mismatch")
	}
	if string(got.AddressSPK) != string(rec.AddressSPK) {
		t.Fatalf("spk round trip mismatch")
	}
}

func TestAccumulatorAssignsIncrementingSeqPerPoolTimestamp(t *testing.T) {
	pool := trace.AlkaneId{Block: 2, Tx: 5}
	acc := NewAccumulator()

	s0 := acc.Push(pool, 1_000, buyRecord(1_000, -10, 5))
	s1 := acc.Push(pool, 1_000, sellRecord(1_000, 20, -8))
	s2 := acc.Push(pool, 1_001, buyRecord(1_001, -1, 1))

	if s0 != 0 || s1 != 1 {
		t.Fatalf("expected seq 0,1 for same-timestamp pushes, got %d,%d", s0, s1)
	}
	if s2 != 0 {
		t.Fatalf("expected seq to reset for a new timestamp, got %d", s2)
	}
	if acc.PerPoolDelta()[pool] != 3 {
		t.Fatalf("expected per-pool delta 3, got %d", acc.PerPoolDelta()[pool])
	}
	if acc.PerPoolGroupDelta()[PoolGroupKey{Pool: pool, Group: GroupTrades}] != 3 {
		t.Fatalf("expected all three rows counted under the trades group")
	}
}

func TestReadForPoolReturnsNewestFirstAndRespectsPagination(t *testing.T) {
	store := openTestStore(t)
	pool := trace.AlkaneId{Block: 4, Tx: 9}
	acc := NewAccumulator()
	for i := uint64(0); i < 5; i++ {
		acc.Push(pool, 1_000+i, buyRecord(1_000+i, -int64(i)-1, int64(i)+1))
	}
	commit(t, store, acc)

	page, err := ReadForPool(store, pool, 1, 2, ChosenBase, FilterAll, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if len(page.Activity) != 2 {
		t.Fatalf("expected page size 2, got %d", len(page.Activity))
	}
	if page.Activity[0].Timestamp != 1_004 {
		t.Fatalf("expected newest row first (ts 1004), got %d", page.Activity[0].Timestamp)
	}

	page2, err := ReadForPool(store, pool, 3, 2, ChosenBase, FilterAll, 1)
	if err != nil {
		t.Fatalf("read page 3: %v", err)
	}
	if len(page2.Activity) != 1 {
		t.Fatalf("expected last page to have 1 row, got %d", len(page2.Activity))
	}
	if page2.Activity[0].Timestamp != 1_000 {
		t.Fatalf("expected oldest row on the last page, got %d", page2.Activity[0].Timestamp)
	}
}

func TestReadForPoolFilterScopesToGroup(t *testing.T) {
	store := openTestStore(t)
	pool := trace.AlkaneId{Block: 4, Tx: 10}
	acc := NewAccumulator()
	acc.Push(pool, 1_000, buyRecord(1_000, -5, 5))
	acc.Push(pool, 1_001, Record{Timestamp: 1_001, Kind: PoolCreate, Success: true})
	commit(t, store, acc)

	trades, err := ReadForPool(store, pool, 1, 10, ChosenBase, FilterTrades, 1)
	if err != nil {
		t.Fatalf("read trades: %v", err)
	}
	if trades.Total != 1 || trades.Activity[0].Kind != "trade_buy" {
		t.Fatalf("expected exactly one trade row, got %+v", trades)
	}

	events, err := ReadForPool(store, pool, 1, 10, ChosenBase, FilterEvents, 1)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if events.Total != 1 || events.Activity[0].Kind != "pool_create" {
		t.Fatalf("expected exactly one event row, got %+v", events)
	}
}

func TestReadForPoolSortedBySideFiltersBuysFromSells(t *testing.T) {
	store := openTestStore(t)
	pool := trace.AlkaneId{Block: 7, Tx: 3}
	acc := NewAccumulator()
	acc.Push(pool, 1_000, buyRecord(1_000, -10, 5))
	acc.Push(pool, 1_001, sellRecord(1_001, 10, -5))
	acc.Push(pool, 1_002, buyRecord(1_002, -20, 9))
	commit(t, store, acc)

	buys, err := ReadForPoolSorted(store, pool, 1, 10, ChosenBase, SortTimestamp, SortDesc, SideFilterBuy, FilterAll, 1)
	if err != nil {
		t.Fatalf("read buys: %v", err)
	}
	if buys.Total != 2 {
		t.Fatalf("expected 2 buy rows, got %d", buys.Total)
	}
	for _, r := range buys.Activity {
		if r.Side != "buy" {
			t.Fatalf("expected only buy rows, got side=%s", r.Side)
		}
	}

	sells, err := ReadForPoolSorted(store, pool, 1, 10, ChosenBase, SortTimestamp, SortDesc, SideFilterSell, FilterAll, 1)
	if err != nil {
		t.Fatalf("read sells: %v", err)
	}
	if sells.Total != 1 || sells.Activity[0].Side != "sell" {
		t.Fatalf("expected exactly one sell row, got %+v", sells)
	}
}

func TestReadForPoolSortedByAmountOrdersDescending(t *testing.T) {
	store := openTestStore(t)
	pool := trace.AlkaneId{Block: 7, Tx: 4}
	acc := NewAccumulator()
	acc.Push(pool, 1_000, sellRecord(1_000, 5, -2))
	acc.Push(pool, 1_001, sellRecord(1_001, 50, -20))
	acc.Push(pool, 1_002, sellRecord(1_002, 1, -1))
	commit(t, store, acc)

	page, err := ReadForPoolSorted(store, pool, 1, 10, ChosenBase, SortAmountBaseAbs, SortDesc, SideFilterAll, FilterAll, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(page.Activity) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(page.Activity))
	}
	if page.Activity[0].BaseDelta != "50" {
		t.Fatalf("expected largest base delta first, got %s", page.Activity[0].BaseDelta)
	}
	if page.Activity[2].BaseDelta != "1" {
		t.Fatalf("expected smallest base delta last, got %s", page.Activity[2].BaseDelta)
	}
}

func TestReadForPoolSortedEventsGroupRejectsSideFilter(t *testing.T) {
	store := openTestStore(t)
	pool := trace.AlkaneId{Block: 7, Tx: 5}
	acc := NewAccumulator()
	acc.Push(pool, 1_000, Record{Timestamp: 1_000, Kind: PoolCreate, Success: true})
	commit(t, store, acc)

	page, err := ReadForPoolSorted(store, pool, 1, 10, ChosenBase, SortTimestamp, SortDesc, SideFilterBuy, FilterEvents, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if page.Total != 0 || len(page.Activity) != 0 {
		t.Fatalf("expected empty result for events+side-filter combination, got %+v", page)
	}
}
