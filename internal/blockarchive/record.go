// Package blockarchive implements component C2: translating the node's
// on-disk blkNNNNN.dat files into a hash -> BlockLocation index, plus a
// small decoded-block cache. Grounded on src/core/blockfetcher.rs from the
// original reference implementation; block bytes are decoded with
// btcsuite/btcd/wire instead of the original's own codec.
package blockarchive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Network identifies which per-network magic bytes a blk file uses.
type Network int

const (
	Mainnet Network = iota
	Testnet3
	Regtest
	Signet
)

// Magic returns the 4-byte little-endian magic constant for the network.
func Magic(n Network) uint32 {
	switch n {
	case Mainnet:
		return 0xD9B4BEF9
	case Testnet3:
		return 0x0709110B
	case Regtest:
		return 0xDAB5BFFA
	case Signet:
		return 0x40CF030A
	default:
		return 0xD9B4BEF9
	}
}

// MaxRecordLen is the largest payload length accepted before a record is
// treated as corrupt (spec invariant: BlockLocation.len <= 8_000_000).
const MaxRecordLen = 8_000_000

// ErrMagicMismatch is returned internally by readRecordHeader when it hits
// a record whose magic does not match the expected network magic; callers
// stop scanning there (no crash), but unlike a clean EOF the file is not
// marked as fully indexed.
var ErrMagicMismatch = errors.New("blockarchive: magic mismatch")

// ErrRecordTooLarge flags a payload length above MaxRecordLen.
var ErrRecordTooLarge = errors.New("blockarchive: record length exceeds maximum")

// rawRecord is one parsed record header plus its payload offset.
type rawRecord struct {
	payloadOffset int64
	payloadLen    uint32
}

// readRecordHeader reads the 8-byte magic+len header at the current file
// position. It returns (nil, io.EOF) on a clean (all-zero or short) tail,
// and (nil, ErrMagicMismatch) when bytes are present but don't match magic.
func readRecordHeader(f *os.File, magic uint32) (*rawRecord, error) {
	var hdr [8]byte
	n, err := io.ReadFull(f, hdr[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("blockarchive: read header: %w", err)
	}
	if n < 8 {
		return nil, io.EOF
	}
	if hdr == ([8]byte{}) {
		return nil, io.EOF
	}
	gotMagic := binary.LittleEndian.Uint32(hdr[0:4])
	if gotMagic != magic {
		return nil, ErrMagicMismatch
	}
	payloadLen := binary.LittleEndian.Uint32(hdr[4:8])
	if payloadLen > MaxRecordLen {
		return nil, ErrRecordTooLarge
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("blockarchive: seek: %w", err)
	}
	return &rawRecord{payloadOffset: pos, payloadLen: payloadLen}, nil
}

// decodeBlockPayload consensus-decodes a raw block payload.
func decodeBlockPayload(payload []byte) (*wire.MsgBlock, error) {
	var blk wire.MsgBlock
	if err := blk.Deserialize(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("blockarchive: decode block: %w", err)
	}
	return &blk, nil
}

// blockHash returns the double-SHA256 header hash of a decoded block.
func blockHash(blk *wire.MsgBlock) chainhash.Hash {
	return blk.BlockHash()
}
