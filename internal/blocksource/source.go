// Package blocksource implements component C4: the hybrid block source
// that decides, per height, whether to read a block from the on-disk blk
// archive or fall back to the node's RPC interface.
package blocksource

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"

	"github.com/alkanes-indexing/blockcore/internal/blockarchive"
)

// Mode selects how aggressively the source prefers the blk archive over RPC.
type Mode int

const (
	// Auto scans the archive when possible and falls back to RPC, per the
	// near-tip threshold below.
	Auto Mode = iota
	// RpcOnly always fetches via the node's RPC interface.
	RpcOnly
	// BlkOnly never falls back to RPC; a miss is a hard error.
	BlkOnly
)

// NearTipRPCThreshold is the default distance-from-tip, in blocks, within
// which Auto mode prefers RPC over the archive to avoid racing the node's
// own blk-file writer.
const NearTipRPCThreshold = 6000

// BlockNotInArchive is returned in BlkOnly mode when a height cannot be
// resolved from the archive.
type BlockNotInArchive struct{ Height uint32 }

func (e *BlockNotInArchive) Error() string {
	return fmt.Sprintf("blocksource: height %d not present in archive (blk-only mode)", e.Height)
}

// nodeClient is the narrow RPC surface Source needs; satisfied by
// *chain.Client. Extracted as an interface so tests can supply a fake node.
type nodeClient interface {
	GetBlockHash(ctx context.Context, height int64) (*chainhash.Hash, error)
	GetBlock(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error)
}

// activeChainVerifier is the narrow verifier surface Source needs;
// satisfied by *chain.Verifier.
type activeChainVerifier interface {
	Verify(ctx context.Context, hash chainhash.Hash) (bool, error)
}

// Source resolves (height, tip) to a decoded block body, combining the blk
// archive (C2), the active-chain verifier (C3), and the node RPC client
// (A4) as described by SPEC_FULL.md §4.3.
type Source struct {
	mode      Mode
	threshold uint32

	archive  *blockarchive.Archive
	verifier activeChainVerifier
	client   nodeClient

	htMu       sync.Mutex
	heightHash *blockarchive.HeightToHash

	log *logrus.Logger
}

// New constructs a Source. threshold overrides NearTipRPCThreshold when
// non-zero.
func New(mode Mode, threshold uint32, archive *blockarchive.Archive, verifier activeChainVerifier, client nodeClient, heightHash *blockarchive.HeightToHash, log *logrus.Logger) *Source {
	if threshold == 0 {
		threshold = NearTipRPCThreshold
	}
	return &Source{
		mode:       mode,
		threshold:  threshold,
		archive:    archive,
		verifier:   verifier,
		client:     client,
		heightHash: heightHash,
		log:        log,
	}
}

// Resolve returns the decoded block at height, given the node's current tip
// height, following SPEC_FULL.md §4.3's six-step algorithm.
func (s *Source) Resolve(ctx context.Context, height uint32, tip uint32) (*wire.MsgBlock, error) {
	// Step 1: RpcOnly short-circuits everything else.
	if s.mode == RpcOnly {
		hash, err := s.client.GetBlockHash(ctx, int64(height))
		if err != nil {
			return nil, err
		}
		return s.client.GetBlock(ctx, hash)
	}

	// Step 2: consult the in-memory height->hash map.
	s.htMu.Lock()
	cachedHash, haveCached := s.heightHash.Get(height)
	s.htMu.Unlock()

	var hash chainhash.Hash
	if haveCached {
		hash = cachedHash
	} else {
		// Step 3: resolve via RPC and cache it.
		h, err := s.client.GetBlockHash(ctx, int64(height))
		if err != nil {
			return nil, err
		}
		hash = *h
		s.htMu.Lock()
		s.heightHash.Set(height, hash)
		s.htMu.Unlock()

		if tip >= height && tip-height <= s.threshold && s.mode != BlkOnly {
			return s.client.GetBlock(ctx, &hash)
		}
	}

	// Step 4: archive already has this hash indexed.
	if blk, err, ok := s.tryReadFromArchive(ctx, hash); ok {
		return blk, err
	}

	// Step 5: force the archive to catch up, then retry.
	found, err := s.archive.EnsureIndexContains(hash, height)
	if err != nil {
		return nil, fmt.Errorf("blocksource: ensure index contains: %w", err)
	}
	if found {
		if blk, err, ok := s.tryReadFromArchive(ctx, hash); ok {
			return blk, err
		}
	}

	// Step 6: archive exhausted.
	if s.mode == BlkOnly {
		return nil, &BlockNotInArchive{Height: height}
	}
	if s.log != nil {
		s.log.WithFields(logrus.Fields{"component": "blocksource", "height": height}).
			Debug("falling back to rpc: hash not found in archive")
	}
	return s.client.GetBlock(ctx, &hash)
}

// tryReadFromArchive attempts the archive+verify read path. ok is false when
// the archive has no location for hash at all, signalling the caller should
// move on to EnsureIndexContains or RPC fallback.
func (s *Source) tryReadFromArchive(ctx context.Context, hash chainhash.Hash) (*wire.MsgBlock, error, bool) {
	loc, found, err := s.archive.Lookup(hash)
	if err != nil {
		return nil, fmt.Errorf("blocksource: archive lookup: %w", err), true
	}
	if !found {
		return nil, nil, false
	}

	verify := func(h chainhash.Hash) (bool, error) {
		return s.verifier.Verify(ctx, h)
	}
	blk, err := s.archive.ReadBlockFromLoc(hash, loc, verify)
	if err == blockarchive.ErrNotActiveChain {
		return nil, nil, false
	}
	if err != nil {
		return nil, fmt.Errorf("blocksource: read from archive: %w", err), true
	}
	return blk, nil, true
}
