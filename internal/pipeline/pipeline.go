// Package pipeline drives the per-block ingestion loop described by
// SPEC_FULL.md's data-flow summary: C4 resolves a block, each of its
// transactions' execution trace is fetched over RPC and walked by C5, and
// the resulting swaps and pool creations are handed to C6's finalizer as
// one block.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"

	"github.com/alkanes-indexing/blockcore/internal/index"
	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// BlockSource is the narrow C4 surface the pipeline drives; satisfied by
// *blocksource.Source.
type BlockSource interface {
	Resolve(ctx context.Context, height uint32, tip uint32) (*wire.MsgBlock, error)
}

// TraceFetcher is the narrow A4 surface needed to recover one transaction's
// execution trace; satisfied by *chain.Client.
type TraceFetcher interface {
	GetTrace(ctx context.Context, txid *chainhash.Hash) (json.RawMessage, error)
}

// Pipeline wires a BlockSource and TraceFetcher through C5's trace walker
// into a C6 Finalizer, keeping the in-memory pool registry the walker needs
// to recognize swap anchors against pools created in prior blocks.
type Pipeline struct {
	source    BlockSource
	tracer    TraceFetcher
	finalizer *index.Finalizer
	log       *logrus.Logger

	pools map[trace.AlkaneId]trace.PoolDefinition
}

// New builds a Pipeline. It does not touch the store; call LoadPools once
// before the first ProcessHeight to seed the pool registry from whatever
// has already been committed.
func New(source BlockSource, tracer TraceFetcher, finalizer *index.Finalizer, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		tracer:    tracer,
		finalizer: finalizer,
		log:       log,
		pools:     map[trace.AlkaneId]trace.PoolDefinition{},
	}
}

// LoadPools seeds the in-memory pool registry from the finalizer's
// committed state. Call once at startup and again after any rollback.
func (p *Pipeline) LoadPools() error {
	defs, err := p.finalizer.AllPoolDefinitions()
	if err != nil {
		return fmt.Errorf("pipeline: load pools: %w", err)
	}
	p.pools = defs
	return nil
}

// ProcessHeight resolves height, walks every transaction's trace, and
// commits the block's detected activity through the finalizer.
func (p *Pipeline) ProcessHeight(ctx context.Context, height, tip uint32) error {
	blk, err := p.source.Resolve(ctx, height, tip)
	if err != nil {
		return fmt.Errorf("pipeline: resolve height %d: %w", height, err)
	}

	ts := uint64(blk.Header.Timestamp.Unix())

	var creations []index.PoolCreationObservation
	var swaps []index.SwapObservation

	for _, tx := range blk.Transactions {
		txid := tx.TxHash()

		raw, err := p.tracer.GetTrace(ctx, &txid)
		if err != nil {
			return fmt.Errorf("pipeline: trace tx %s: %w", txid, err)
		}
		events, err := trace.DecodeEventsJSON(raw)
		if err != nil {
			return fmt.Errorf("pipeline: decode trace for tx %s: %w", txid, err)
		}
		if len(events) == 0 {
			continue
		}

		// AddressSPK is left nil: recovering the sender's scriptPubKey
		// needs the previous outputs' UTXO set, which this pipeline
		// does not maintain. Activity rows therefore carry no sender
		// address.
		for _, info := range trace.ExtractNewPools(events) {
			def := trace.PoolDefinition{
				PoolID:    info.PoolID,
				BaseID:    info.BaseID,
				QuoteID:   info.QuoteID,
				FactoryID: info.FactoryID,
			}
			p.pools[def.PoolID] = def
			creations = append(creations, index.PoolCreationObservation{
				Info:      info,
				Timestamp: ts,
				TxID:      [32]byte(txid),
			})
		}

		for _, ext := range trace.ExtractReserves(events, p.pools) {
			swaps = append(swaps, index.SwapObservation{
				Extraction: ext,
				Timestamp:  ts,
				TxID:       [32]byte(txid),
			})
		}
	}

	return p.finalizer.ProcessBlock(height, creations, swaps)
}
