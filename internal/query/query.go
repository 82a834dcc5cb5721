// Package query is the read-side façade SPEC_FULL.md describes as "a
// sorted, paginated query layer on top of [the] derived state" — exposed
// as plain Go functions for an external HTTP layer to call, not as
// handlers itself (outside this repository's scope).
package query

import (
	"fmt"

	"github.com/alkanes-indexing/blockcore/internal/activity"
	"github.com/alkanes-indexing/blockcore/internal/candles"
	"github.com/alkanes-indexing/blockcore/internal/index"
	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// Service bundles the store and finalizer every read in this package needs.
type Service struct {
	store      *kv.Store
	finalizer  *index.Finalizer
	priceScale uint64
}

// New builds a Service over store, reading pool metrics/definitions through
// finalizer and scaling prices by priceScale (A1's configured PRICE_SCALE).
func New(store *kv.Store, finalizer *index.Finalizer, priceScale uint64) *Service {
	return &Service{store: store, finalizer: finalizer, priceScale: priceScale}
}

// PoolSummary combines a pool's static definition with its latest
// committed reserve/volume metrics, the shape a pool detail page reads.
type PoolSummary struct {
	Definition trace.PoolDefinition
	Metrics    index.PoolMetrics
}

// Pool returns the summary for pool, or ok=false if it has never been
// recorded.
func (s *Service) Pool(pool trace.AlkaneId) (PoolSummary, bool, error) {
	def, ok, err := s.finalizer.PoolDefinition(pool)
	if err != nil || !ok {
		return PoolSummary{}, false, err
	}
	metrics, err := s.finalizer.PoolMetricsFor(pool)
	if err != nil {
		return PoolSummary{}, false, fmt.Errorf("query: pool metrics: %w", err)
	}
	return PoolSummary{Definition: def, Metrics: metrics}, true, nil
}

// Candles returns the forward-filled chart series for pool/timeframe/side,
// delegating to C7's read path.
func (s *Service) Candles(pool trace.AlkaneId, tf candles.Timeframe, nowTS uint64, side candles.Side) (candles.Slice, error) {
	slice, err := candles.ReadCandlesV1(s.store, pool, tf, nowTS, side)
	if err != nil {
		return candles.Slice{}, fmt.Errorf("query: candles: %w", err)
	}
	return slice, nil
}

// Activity returns one page of a pool's activity log in default
// newest-first timestamp order, scoped by filter.
func (s *Service) Activity(pool trace.AlkaneId, page, limit int, chosen activity.ChosenSide, filter activity.Filter) (activity.Page, error) {
	p, err := activity.ReadForPool(s.store, pool, page, limit, chosen, filter, s.priceScale)
	if err != nil {
		return activity.Page{}, fmt.Errorf("query: activity: %w", err)
	}
	return p, nil
}

// ActivitySorted returns one page of a pool's activity log under an
// explicit sort key, direction, and side filter, delegating to C8/C9's
// secondary-index reader.
func (s *Service) ActivitySorted(pool trace.AlkaneId, page, limit int, chosen activity.ChosenSide, sort activity.SortKey, dir activity.SortDir, sideFilter activity.SideFilter, filter activity.Filter) (activity.Page, error) {
	p, err := activity.ReadForPoolSorted(s.store, pool, page, limit, chosen, sort, dir, sideFilter, filter, s.priceScale)
	if err != nil {
		return activity.Page{}, fmt.Errorf("query: activity sorted: %w", err)
	}
	return p, nil
}
