package main

import (
	"fmt"
	"strings"

	"github.com/alkanes-indexing/blockcore/internal/blockarchive"
	"github.com/alkanes-indexing/blockcore/internal/blocksource"
	"github.com/alkanes-indexing/blockcore/internal/chain"
	"github.com/alkanes-indexing/blockcore/internal/index"
	"github.com/alkanes-indexing/blockcore/internal/kv"
	"github.com/alkanes-indexing/blockcore/internal/logging"
	"github.com/alkanes-indexing/blockcore/internal/pipeline"
	"github.com/sirupsen/logrus"

	pkgconfig "github.com/alkanes-indexing/blockcore/pkg/config"
)

// app bundles every wired component a subcommand needs, closed over one
// opened store for the lifetime of the command.
type app struct {
	cfg       *pkgconfig.Config
	log       *logrus.Logger
	store     *kv.Store
	client    *chain.Client
	finalizer *index.Finalizer
	pipeline  *pipeline.Pipeline
}

func parseNetwork(s string) (blockarchive.Network, error) {
	switch strings.ToLower(s) {
	case "mainnet", "":
		return blockarchive.Mainnet, nil
	case "testnet", "testnet3":
		return blockarchive.Testnet3, nil
	case "regtest":
		return blockarchive.Regtest, nil
	case "signet":
		return blockarchive.Signet, nil
	default:
		return 0, fmt.Errorf("cmd/indexer: unknown network %q", s)
	}
}

func parseMode(s string) (blocksource.Mode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return blocksource.Auto, nil
	case "rpc_only":
		return blocksource.RpcOnly, nil
	case "blk_only":
		return blocksource.BlkOnly, nil
	default:
		return 0, fmt.Errorf("cmd/indexer: unknown index mode %q", s)
	}
}

// buildApp loads config for env, opens the store, and wires every
// component C1-C6 needs to drive the ingestion loop.
func buildApp(env string) (*app, error) {
	cfg, err := pkgconfig.Load(env)
	if err != nil {
		return nil, fmt.Errorf("cmd/indexer: load config: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("cmd/indexer: build logger: %w", err)
	}

	store, err := kv.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("cmd/indexer: open store: %w", err)
	}

	client, err := chain.NewClient(chain.Config{
		Host:       cfg.Node.RPCHost,
		User:       cfg.Node.RPCUser,
		Pass:       cfg.Node.RPCPass,
		DisableTLS: true,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("cmd/indexer: dial node: %w", err)
	}

	network, err := parseNetwork(cfg.Node.Network)
	if err != nil {
		store.Close()
		client.Shutdown()
		return nil, err
	}
	mode, err := parseMode(cfg.Index.Mode)
	if err != nil {
		store.Close()
		client.Shutdown()
		return nil, err
	}

	archive := blockarchive.New(cfg.Archive.Dir, network, store, log, nil)
	verifier := chain.NewVerifier(client)
	heightHash := blockarchive.NewHeightToHash()
	source := blocksource.New(mode, cfg.Index.NearTipRPCThreshold, archive, verifier, client, heightHash, log)

	finalizer := index.NewFinalizer(store, cfg.Index.PriceScale)
	pl := pipeline.New(source, client, finalizer, log)
	if err := pl.LoadPools(); err != nil {
		store.Close()
		client.Shutdown()
		return nil, fmt.Errorf("cmd/indexer: seed pool registry: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		client:    client,
		finalizer: finalizer,
		pipeline:  pl,
	}, nil
}

func (a *app) Close() {
	a.client.Shutdown()
	a.store.Close()
}
