package blockarchive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/sirupsen/logrus"

	"github.com/alkanes-indexing/blockcore/internal/kv"
)

// Archive owns the hash->BlockLocation index and the file-marker bookkeeping
// described in SPEC_FULL.md §4.1. One Archive serves one blk-file directory.
type Archive struct {
	dir        string
	network    Network
	index      *kv.Store // namespaced "blkidx:"
	log        *logrus.Logger
	stopHash   *chainhash.Hash
	decodeOnce decodedCache
}

// New builds an Archive over dir, storing its index under store's
// "blkidx:" namespace. stopHash, if non-nil, is the Alkanes-genesis block
// hash; scans stop once it is found in the index.
func New(dir string, network Network, store *kv.Store, log *logrus.Logger, stopHash *chainhash.Hash) *Archive {
	return &Archive{
		dir:      dir,
		network:  network,
		index:    store.Namespace("blkidx:"),
		log:      log,
		stopHash: stopHash,
	}
}

// listFilesNewestFirst returns blk<N>.dat file numbers present in dir,
// sorted descending (newest first), per SPEC_FULL.md's "newest-filename-last"
// archive convention (we consume it in reverse: newest first).
func (a *Archive) listFilesNewestFirst() ([]uint32, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("blockarchive: read dir %s: %w", a.dir, err)
	}
	var nums []uint32
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "blk") || !strings.HasSuffix(name, ".dat") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(name, "blk"), ".dat")
		n, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil {
			continue
		}
		nums = append(nums, uint32(n))
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] > nums[j] })
	return nums, nil
}

func (a *Archive) filePath(fileNo uint32) string {
	return filepath.Join(a.dir, fmt.Sprintf("blk%05d.dat", fileNo))
}

func (a *Archive) isFileIndexed(fileNo uint32) (bool, error) {
	_, ok, err := a.index.Get(fileMarkerKey(fileNo))
	return ok, err
}

// Lookup returns the indexed BlockLocation for hash, if any.
func (a *Archive) Lookup(hash chainhash.Hash) (BlockLocation, bool, error) {
	return a.hasHash(hash)
}

func (a *Archive) hasHash(hash chainhash.Hash) (BlockLocation, bool, error) {
	v, ok, err := a.index.Get(hashKey(hash))
	if err != nil || !ok {
		return BlockLocation{}, false, err
	}
	loc, err := DecodeBlockLocation(v)
	if err != nil {
		return BlockLocation{}, false, err
	}
	return loc, true, nil
}

// EnsureIndexContains guarantees hash is present in the index (or that it
// provably cannot be, because the stop-hash was reached first), scanning
// blk files newest-to-oldest and indexing each unvisited file exactly
// once. Returns whether hash was found.
func (a *Archive) EnsureIndexContains(hash chainhash.Hash, height uint32) (bool, error) {
	if _, ok, err := a.hasHash(hash); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	files, err := a.listFilesNewestFirst()
	if err != nil {
		return false, err
	}

	for _, fileNo := range files {
		indexed, err := a.isFileIndexed(fileNo)
		if err != nil {
			return false, err
		}
		if indexed {
			continue
		}
		if err := a.indexFile(fileNo); err != nil {
			if a.log != nil {
				a.log.WithFields(logrus.Fields{"component": "blockarchive", "file_no": fileNo}).
					WithError(err).Warn("indexing file failed")
			}
			continue
		}
		if _, ok, err := a.hasHash(hash); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
		if a.stopHash != nil {
			if _, ok, err := a.hasHash(*a.stopHash); err != nil {
				return false, err
			} else if ok {
				return false, nil
			}
		}
	}
	return false, nil
}

// indexFile streams path in one pass, building a single batch containing
// every hash->BlockLocation put plus the file marker. A corrupt record
// stops the scan at the current offset; the file is only marked indexed
// if parsing reached a clean EOF.
func (a *Archive) indexFile(fileNo uint32) error {
	path := a.filePath(fileNo)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file: treated as pruned, not an error.
			return nil
		}
		return fmt.Errorf("blockarchive: open %s: %w", path, err)
	}
	defer f.Close()

	type pending struct {
		hash chainhash.Hash
		loc  BlockLocation
	}
	var puts []pending
	var offset int64
	magic := Magic(a.network)
	cleanEOF := false

	for {
		rec, herr := readRecordHeader(f, magic)
		if herr == io.EOF {
			cleanEOF = true
			break
		}
		if herr != nil {
			// Magic mismatch or oversized record: stop, keep what we have.
			break
		}
		payload := make([]byte, rec.payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			break
		}
		blk, derr := decodeBlockPayload(payload)
		if derr != nil {
			break
		}
		h := blockHash(blk)
		puts = append(puts, pending{hash: h, loc: BlockLocation{
			FileNo: fileNo,
			Offset: uint64(rec.payloadOffset),
			Len:    rec.payloadLen,
			Txs:    uint32(len(blk.Transactions)),
		}})
		offset = rec.payloadOffset + int64(rec.payloadLen)
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			break
		}
	}

	err = a.index.BulkWrite(func(b *kv.Batch) {
		for _, p := range puts {
			b.Put(hashKey(p.hash), p.loc.Encode())
		}
		if cleanEOF {
			b.Put(fileMarkerKey(fileNo), []byte{1})
		}
	})
	if err != nil {
		return fmt.Errorf("blockarchive: commit index batch for file %d: %w", fileNo, err)
	}
	return nil
}

// HeightToHash records active-chain height->hash pairs in memory. It starts
// empty and is filled only as the block source resolves heights through
// RPC getblockhash; it is not built from the archive index at startup and
// is not refreshed after file-indexing passes. Kept here because it is a
// simple in-memory side table next to the archive's persistent index, not
// persisted itself.
type HeightToHash struct {
	m map[uint32]chainhash.Hash
}

// NewHeightToHash constructs an empty table.
func NewHeightToHash() *HeightToHash { return &HeightToHash{m: map[uint32]chainhash.Hash{}} }

// Get returns the cached hash for height, if any.
func (h *HeightToHash) Get(height uint32) (chainhash.Hash, bool) {
	v, ok := h.m[height]
	return v, ok
}

// Set records height -> hash.
func (h *HeightToHash) Set(height uint32, hash chainhash.Hash) {
	h.m[height] = hash
}
