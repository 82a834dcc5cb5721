package blocksource

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/alkanes-indexing/blockcore/internal/blockarchive"
	"github.com/alkanes-indexing/blockcore/internal/kv"
)

type fakeNode struct {
	hashesByHeight map[int64]chainhash.Hash
	blocksByHash   map[chainhash.Hash]*wire.MsgBlock
	getBlockCalls  int
}

func (f *fakeNode) GetBlockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	h := f.hashesByHeight[height]
	return &h, nil
}

func (f *fakeNode) GetBlock(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	f.getBlockCalls++
	return f.blocksByHash[*hash], nil
}

type alwaysActive struct{}

func (alwaysActive) Verify(ctx context.Context, hash chainhash.Hash) (bool, error) { return true, nil }

func sampleBlock(nonce uint32) *wire.MsgBlock {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0xffffffff}, Sequence: 0xffffffff})
	tx.AddTxOut(&wire.TxOut{Value: 50 * 1e8})
	blk := wire.NewMsgBlock(&wire.BlockHeader{Version: 1, Timestamp: time.Unix(1600000000, 0), Bits: 0x1d00ffff, Nonce: nonce})
	_ = blk.AddTransaction(tx)
	return blk
}

func writeBlkFile(t *testing.T, dir string, blocks []*wire.MsgBlock) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "blk00000.dat"))
	if err != nil {
		t.Fatalf("create blk file: %v", err)
	}
	defer f.Close()
	for _, blk := range blocks {
		var payload bytes.Buffer
		if err := blk.Serialize(&payload); err != nil {
			t.Fatalf("serialize: %v", err)
		}
		var hdr [8]byte
		binary.LittleEndian.PutUint32(hdr[0:4], blockarchive.Magic(blockarchive.Regtest))
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(payload.Len()))
		f.Write(hdr[:])
		f.Write(payload.Bytes())
	}
}

func openArchive(t *testing.T, dir string) *blockarchive.Archive {
	t.Helper()
	store, err := kv.Open(filepath.Join(t.TempDir(), "idx"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return blockarchive.New(dir, blockarchive.Regtest, store, nil, nil)
}

func TestResolveRpcOnlyNeverTouchesArchive(t *testing.T) {
	blk := sampleBlock(1)
	hash := blk.BlockHash()
	node := &fakeNode{
		hashesByHeight: map[int64]chainhash.Hash{10: hash},
		blocksByHash:   map[chainhash.Hash]*wire.MsgBlock{hash: blk},
	}
	s := New(RpcOnly, 0, nil, alwaysActive{}, node, blockarchive.NewHeightToHash(), nil)

	got, err := s.Resolve(context.Background(), 10, 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.BlockHash() != hash {
		t.Fatalf("unexpected block returned")
	}
}

func TestResolveNearTipPrefersRPC(t *testing.T) {
	dir := t.TempDir()
	blk := sampleBlock(2)
	hash := blk.BlockHash()
	writeBlkFile(t, dir, []*wire.MsgBlock{blk})
	archive := openArchive(t, dir)

	node := &fakeNode{
		hashesByHeight: map[int64]chainhash.Hash{100: hash},
		blocksByHash:   map[chainhash.Hash]*wire.MsgBlock{hash: blk},
	}
	s := New(Auto, 10, archive, alwaysActive{}, node, blockarchive.NewHeightToHash(), nil)

	got, err := s.Resolve(context.Background(), 100, 105)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.BlockHash() != hash {
		t.Fatalf("unexpected block")
	}
	if node.getBlockCalls != 1 {
		t.Fatalf("expected the near-tip RPC path to be taken, calls=%d", node.getBlockCalls)
	}
}

func TestResolveFarFromTipReadsArchive(t *testing.T) {
	dir := t.TempDir()
	blk := sampleBlock(3)
	hash := blk.BlockHash()
	writeBlkFile(t, dir, []*wire.MsgBlock{blk})
	archive := openArchive(t, dir)
	// Pre-populate the archive index so step 4 hits directly.
	if _, err := archive.EnsureIndexContains(hash, 50); err != nil {
		t.Fatalf("seed index: %v", err)
	}

	node := &fakeNode{
		hashesByHeight: map[int64]chainhash.Hash{50: hash},
		blocksByHash:   map[chainhash.Hash]*wire.MsgBlock{},
	}
	s := New(Auto, 10, archive, alwaysActive{}, node, blockarchive.NewHeightToHash(), nil)

	got, err := s.Resolve(context.Background(), 50, 500000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.BlockHash() != hash {
		t.Fatalf("unexpected block")
	}
	if node.getBlockCalls != 0 {
		t.Fatalf("expected archive read, not RPC get_block; calls=%d", node.getBlockCalls)
	}
}

func TestResolveBlkOnlyFailsOnMiss(t *testing.T) {
	dir := t.TempDir()
	archive := openArchive(t, dir)
	missing := chainhash.Hash{0xAB}
	node := &fakeNode{hashesByHeight: map[int64]chainhash.Hash{7: missing}}
	s := New(BlkOnly, 10, archive, alwaysActive{}, node, blockarchive.NewHeightToHash(), nil)

	_, err := s.Resolve(context.Background(), 7, 500000)
	if err == nil {
		t.Fatalf("expected BlockNotInArchive error")
	}
	var target *BlockNotInArchive
	if !errors.As(err, &target) {
		t.Fatalf("expected *BlockNotInArchive, got %T: %v", err, err)
	}
}
