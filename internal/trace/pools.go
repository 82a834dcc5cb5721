package trace

import "encoding/binary"

// NewPoolInfo describes a pool deployed within a transaction, recovered
// from its constructor's storage writes.
type NewPoolInfo struct {
	PoolID    AlkaneId
	BaseID    AlkaneId
	QuoteID   AlkaneId
	FactoryID *AlkaneId
}

// decodeAlkaneIDLE32 decodes a 32-byte value as two little-endian u128
// halves (block, tx), matching the on-chain storage encoding used by pool
// constructors for "/alkane/0", "/alkane/1", and "/factory_id". Values
// whose block/tx halves do not fit in u32/u64 are rejected, mirroring the
// overflow check the reference extractor performs.
func decodeAlkaneIDLE32(v []byte) (AlkaneId, bool) {
	if len(v) != 32 {
		return AlkaneId{}, false
	}
	blockHi := binary.LittleEndian.Uint64(v[8:16])
	blockLo := binary.LittleEndian.Uint64(v[0:8])
	txHi := binary.LittleEndian.Uint64(v[24:32])
	txLo := binary.LittleEndian.Uint64(v[16:24])
	if blockHi != 0 || blockLo > uint64(^uint32(0)) {
		return AlkaneId{}, false
	}
	if txHi != 0 {
		return AlkaneId{}, false
	}
	return AlkaneId{Block: uint32(blockLo), Tx: txLo}, true
}

// ExtractNewPools walks events in order, remembering every Create(id) seen
// and emitting a NewPoolInfo the first time that id's frame returns with
// both "/alkane/0" and "/alkane/1" present in its storage writes. Results
// are de-duplicated by pool id within the event stream.
func ExtractNewPools(events []TraceEvent) []NewPoolInfo {
	created := map[AlkaneId]bool{}
	for _, ev := range events {
		if c, ok := ev.(CreateEvent); ok {
			created[c.ID] = true
		}
	}
	if len(created) == 0 {
		return nil
	}

	var stack []AlkaneId
	seen := map[AlkaneId]bool{}
	var out []NewPoolInfo

	for _, ev := range events {
		switch e := ev.(type) {
		case InvokeEvent:
			stack = append(stack, e.Self)
		case ReturnEvent:
			if len(stack) == 0 {
				continue
			}
			leaving := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !created[leaving] || seen[leaving] {
				continue
			}
			var alk0, alk1, factory []byte
			for _, w := range e.StorageWrites {
				switch w.Key {
				case "/alkane/0":
					alk0 = w.Value
				case "/alkane/1":
					alk1 = w.Value
				case "/factory_id":
					factory = w.Value
				}
			}
			if alk0 == nil || alk1 == nil {
				continue
			}
			baseID, ok := decodeAlkaneIDLE32(alk0)
			if !ok {
				continue
			}
			quoteID, ok := decodeAlkaneIDLE32(alk1)
			if !ok {
				continue
			}
			info := NewPoolInfo{PoolID: leaving, BaseID: baseID, QuoteID: quoteID}
			if factory != nil {
				if fid, ok := decodeAlkaneIDLE32(factory); ok {
					info.FactoryID = &fid
				}
			}
			seen[leaving] = true
			out = append(out, info)
		}
	}
	return out
}
