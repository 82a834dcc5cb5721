// Package chain wraps the node's JSON-RPC surface (component A4) and
// implements the active-chain verifier (component C3). The client wrapper
// is grounded on leanlp-BTC-coinjoin/internal/bitcoin/client.go's
// rpcclient.Client construction pattern.
package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// Config holds node RPC connection parameters (populated from A1's Config).
type Config struct {
	Host     string
	User     string
	Pass     string
	DisableTLS bool
}

// Client is a thin wrapper over rpcclient.Client exposing only the methods
// SPEC_FULL.md §6 names as consumed. Its methods take a context.Context,
// but the underlying blocking calls do not observe its deadline or
// cancellation.
type Client struct {
	rpc *rpcclient.Client
}

// NewClient dials the node over HTTP POST JSON-RPC with optional basic auth.
func NewClient(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
	}
	c, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}
	return &Client{rpc: c}, nil
}

// Shutdown releases the underlying RPC client's resources.
func (c *Client) Shutdown() { c.rpc.Shutdown() }

// GetBlockCount returns the node's current tip height.
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	n, err := c.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("chain: getblockcount: %w", err)
	}
	return n, nil
}

// GetBlockHash returns the block hash at height.
func (c *Client) GetBlockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	h, err := c.rpc.GetBlockHash(height)
	if err != nil {
		return nil, fmt.Errorf("chain: getblockhash(%d): %w", height, err)
	}
	return h, nil
}

// HeaderInfo is the subset of getblockheader(hash, true) this system reads.
type HeaderInfo struct {
	Confirmations int64
	Height        int64
	Time          int64
}

// ErrHeaderNotFound mirrors btcjson's "block not found" RPC error, surfaced
// when a pruned node has no header for the requested hash.
var ErrHeaderNotFound = fmt.Errorf("chain: header not found")

// GetBlockHeader fetches verbose header info for hash.
func (c *Client) GetBlockHeader(ctx context.Context, hash *chainhash.Hash) (HeaderInfo, error) {
	verbose, err := c.rpc.GetBlockHeaderVerbose(hash)
	if err != nil {
		if rpcErr, ok := err.(*btcjson.RPCError); ok && rpcErr.Code == btcjson.ErrRPCBlockNotFound {
			return HeaderInfo{}, ErrHeaderNotFound
		}
		return HeaderInfo{}, fmt.Errorf("chain: getblockheader(%s): %w", hash, err)
	}
	return HeaderInfo{
		Confirmations: int64(verbose.Confirmations),
		Height:        int64(verbose.Height),
		Time:          verbose.Time,
	}, nil
}

// GetBlock fetches and decodes the full block body for hash.
func (c *Client) GetBlock(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	blk, err := c.rpc.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("chain: getblock(%s): %w", hash, err)
	}
	return blk, nil
}

// GetTrace fetches a transaction's raw alkanes execution trace via the
// node's RawRequest escape hatch, the same pattern leanlp-BTC-coinjoin's
// client wrapper uses for RPC methods rpcclient has no typed helper for.
func (c *Client) GetTrace(ctx context.Context, txid *chainhash.Hash) (json.RawMessage, error) {
	param, err := json.Marshal(txid.String())
	if err != nil {
		return nil, fmt.Errorf("chain: marshal trace param: %w", err)
	}
	raw, err := c.rpc.RawRequest("alkanes_trace", []json.RawMessage{param})
	if err != nil {
		return nil, fmt.Errorf("chain: alkanes_trace(%s): %w", txid, err)
	}
	return raw, nil
}
