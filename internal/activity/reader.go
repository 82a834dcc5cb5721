package activity

import (
	"encoding/hex"

	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// Filter scopes a read to one activity group, or to everything.
type Filter byte

const (
	FilterAll Filter = iota
	FilterTrades
	FilterEvents
)

func groupFromFilter(f Filter) *Group {
	switch f {
	case FilterTrades:
		g := GroupTrades
		return &g
	case FilterEvents:
		g := GroupEvents
		return &g
	default:
		return nil
	}
}

// SideFilter narrows a sorted read to one side of the market.
type SideFilter byte

const (
	SideFilterAll SideFilter = iota
	SideFilterBuy
	SideFilterSell
)

// SortDir controls ascending vs. descending traversal of a secondary index.
type SortDir byte

const (
	SortDesc SortDir = iota
	SortAsc
)

// ChosenSide picks which delta (base or quote) drives the UI-facing side
// and amount fields of a row.
type ChosenSide byte

const (
	ChosenBase ChosenSide = iota
	ChosenQuote
)

// Row is the UI-facing projection of a Record.
type Row struct {
	Timestamp  uint64
	TxID       string
	Kind       string
	Direction  *string
	BaseDelta  string
	QuoteDelta string
	Side       string // "buy" | "sell" | "neutral"
	Amount     float64
}

// Page is one page of activity rows plus the total row count for the query.
type Page struct {
	Activity []Row
	Total    int
}

func rowFromRecord(rec Record, chosen ChosenSide, priceScale uint64) Row {
	amt := rec.BaseDelta
	if chosen == ChosenQuote {
		amt = rec.QuoteDelta
	}

	side := "neutral"
	isTrade := rec.Kind == TradeBuy || rec.Kind == TradeSell
	if isTrade {
		switch amt.Sign() {
		case -1:
			side = "buy"
		case 1:
			side = "sell"
		}
	}

	kindStr := rec.Kind.String()
	if isTrade {
		switch side {
		case "buy":
			kindStr = "trade_buy"
		case "sell":
			kindStr = "trade_sell"
		default:
			kindStr = "trade"
		}
	}

	var dir *string
	if rec.Direction != nil {
		s := rec.Direction.String()
		dir = &s
	}

	txidBE := make([]byte, 32)
	for i := 0; i < 32; i++ {
		txidBE[i] = rec.TxID[31-i]
	}

	return Row{
		Timestamp:  rec.Timestamp,
		TxID:       hex.EncodeToString(txidBE),
		Kind:       kindStr,
		Direction:  dir,
		BaseDelta:  rec.BaseDelta.String(),
		QuoteDelta: rec.QuoteDelta.String(),
		Side:       side,
		Amount:     amt.Mag.Float64() / float64(priceScale),
	}
}

// ReadForPool is the legacy reader: newest-to-oldest by timestamp, paginated,
// optionally scoped to one group. page is 1-based.
func ReadForPool(store *kv.Store, pool trace.AlkaneId, page, limit int, chosen ChosenSide, filter Filter, priceScale uint64) (Page, error) {
	entries, err := store.IterPrefixRev(activityNsPrefix(pool))
	if err != nil {
		return Page{}, err
	}

	group := groupFromFilter(filter)
	var all []Record
	for _, e := range entries {
		rec, err := decodeRecord(e.Value)
		if err != nil {
			continue
		}
		if group != nil && GroupFor(rec.Kind) != *group {
			continue
		}
		all = append(all, rec)
	}

	total := len(all)
	if limit <= 0 {
		return Page{Total: total}, nil
	}
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	end := start + limit
	if end > total {
		end = total
	}
	if start >= end {
		return Page{Total: total}, nil
	}

	rows := make([]Row, 0, end-start)
	for _, rec := range all[start:end] {
		rows = append(rows, rowFromRecord(rec, chosen, priceScale))
	}
	return Page{Activity: rows, Total: total}, nil
}

func adjustForSideFilter(sort SortKey, chosen ChosenSide, filter SideFilter) (SortKey, *byte) {
	var fixed *byte
	switch filter {
	case SideFilterBuy:
		v := byte(0)
		fixed = &v
	case SideFilterSell:
		v := byte(2)
		fixed = &v
	}
	if fixed == nil {
		return sort, nil
	}
	switch sort {
	case SortTimestamp:
		if chosen == ChosenBase {
			return SortSideBaseTs, fixed
		}
		return SortSideQuoteTs, fixed
	case SortAmountBaseAbs:
		return SortSideBaseAmount, fixed
	case SortAmountQuoteAbs:
		return SortSideQuoteAmount, fixed
	default:
		return sort, fixed
	}
}

func allowsCountKey(sort SortKey) bool {
	return sort == SortTimestamp || sort == SortAmountBaseAbs || sort == SortAmountQuoteAbs
}

// ReadForPoolSorted reads one page according to the chosen secondary index,
// direction, and optional side filter, per SPEC_FULL.md §4.7/§4.8. page is
// 1-based.
func ReadForPoolSorted(store *kv.Store, pool trace.AlkaneId, page, limit int, chosen ChosenSide, sort SortKey, dir SortDir, sideFilter SideFilter, filter Filter, priceScale uint64) (Page, error) {
	group := groupFromFilter(filter)
	if group != nil && *group == GroupEvents && sideFilter != SideFilterAll {
		return Page{}, nil
	}

	effSort, fixedSide := adjustForSideFilter(sort, chosen, sideFilter)
	iprefix := idxPrefixFor(pool, effSort, group)
	if fixedSide != nil {
		iprefix = append(iprefix, *fixedSide)
	}

	var total int
	if fixedSide == nil && allowsCountKey(effSort) {
		n, err := ReadCounter(store, countKey(pool, group))
		if err != nil {
			return Page{}, err
		}
		total = int(n)
	} else {
		entries, err := store.IterPrefixRev(iprefix)
		if err != nil {
			return Page{}, err
		}
		total = len(entries)
	}

	if limit <= 0 {
		return Page{Total: total}, nil
	}
	skip := limit * (page - 1)
	if skip < 0 {
		skip = 0
	}

	entries, err := store.IterPrefixRev(iprefix)
	if err != nil {
		return Page{}, err
	}
	if dir == SortAsc {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	type pair struct {
		ts  uint64
		seq uint32
	}
	var pairs []pair
	for i, e := range entries {
		if i < skip {
			continue
		}
		if len(pairs) >= limit {
			break
		}
		ts, seq, ok := decodeTsSeq(e.Value)
		if !ok {
			continue
		}
		pairs = append(pairs, pair{ts: ts, seq: seq})
	}

	rows := make([]Row, 0, len(pairs))
	for _, p := range pairs {
		raw, ok, err := store.Get(activityKey(pool, p.ts, p.seq))
		if err != nil {
			return Page{}, err
		}
		if !ok {
			continue
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			continue
		}
		if group != nil && GroupFor(rec.Kind) != *group {
			continue
		}
		if fixedSide != nil {
			if rec.Kind != TradeBuy && rec.Kind != TradeSell {
				continue
			}
			actual := rec.BaseDelta.SideCode()
			if chosen == ChosenQuote {
				actual = rec.QuoteDelta.SideCode()
			}
			if actual != *fixedSide {
				continue
			}
		}
		rows = append(rows, rowFromRecord(rec, chosen, priceScale))
	}

	return Page{Activity: rows, Total: total}, nil
}
