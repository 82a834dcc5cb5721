package blockarchive

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockLocation pinpoints one block's payload inside the blk-file archive.
// Offset is the start of the payload, i.e. just past the record's 8-byte
// magic+len header. Invariant: Len <= MaxRecordLen.
type BlockLocation struct {
	FileNo uint32
	Offset uint64
	Len    uint32
	Txs    uint32
}

// encodedBlockLocationLen is the fixed wire size of an encoded BlockLocation.
const encodedBlockLocationLen = 4 + 8 + 4 + 4

// Encode serializes a BlockLocation as fixed-width big-endian fields.
func (l BlockLocation) Encode() []byte {
	out := make([]byte, encodedBlockLocationLen)
	binary.BigEndian.PutUint32(out[0:4], l.FileNo)
	binary.BigEndian.PutUint64(out[4:12], l.Offset)
	binary.BigEndian.PutUint32(out[12:16], l.Len)
	binary.BigEndian.PutUint32(out[16:20], l.Txs)
	return out
}

// DecodeBlockLocation parses bytes produced by Encode.
func DecodeBlockLocation(b []byte) (BlockLocation, error) {
	if len(b) != encodedBlockLocationLen {
		return BlockLocation{}, fmt.Errorf("blockarchive: malformed BlockLocation (len=%d)", len(b))
	}
	return BlockLocation{
		FileNo: binary.BigEndian.Uint32(b[0:4]),
		Offset: binary.BigEndian.Uint64(b[4:12]),
		Len:    binary.BigEndian.Uint32(b[12:16]),
		Txs:    binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// fileMarkerKey builds the 5-byte 'F'-prefixed sentinel key recording that
// file_no has already been fully indexed: 'F' followed by file_no as a
// little-endian u32.
func fileMarkerKey(fileNo uint32) []byte {
	out := make([]byte, 5)
	out[0] = 'F'
	binary.LittleEndian.PutUint32(out[1:], fileNo)
	return out
}

// hashKey is the raw 32-byte index key for a block hash.
func hashKey(h chainhash.Hash) []byte {
	b := h // chainhash.Hash is [32]byte
	return b[:]
}
