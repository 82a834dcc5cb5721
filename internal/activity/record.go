// Package activity implements component C8: an append-only per-pool
// activity log with seven sorted secondary indexes, plus component C9's
// paginated reader built on top of those indexes.
package activity

import (
	"encoding/binary"
	"fmt"

	"github.com/alkanes-indexing/blockcore/internal/num"
)

// Kind discriminates the observed pool effect a Record represents.
type Kind byte

const (
	TradeBuy Kind = iota
	TradeSell
	LiquidityAdd
	LiquidityRemove
	PoolCreate
)

func (k Kind) String() string {
	switch k {
	case TradeBuy:
		return "trade_buy"
	case TradeSell:
		return "trade_sell"
	case LiquidityAdd:
		return "liquidity_add"
	case LiquidityRemove:
		return "liquidity_remove"
	case PoolCreate:
		return "pool_create"
	default:
		return "unknown"
	}
}

// Group buckets a Kind into one of the two activity namespaces every index
// is additionally mirrored under.
type Group byte

const (
	GroupTrades Group = iota
	GroupEvents
)

func (g Group) tag() string {
	if g == GroupTrades {
		return "trades"
	}
	return "events"
}

// GroupFor reports which group a kind belongs to.
func GroupFor(k Kind) Group {
	switch k {
	case TradeBuy, TradeSell:
		return GroupTrades
	default:
		return GroupEvents
	}
}

// Direction records which side of a swap was the input, when applicable.
type Direction byte

const (
	BaseIn Direction = iota
	QuoteIn
)

func (d Direction) String() string {
	if d == BaseIn {
		return "base_in"
	}
	return "quote_in"
}

// Record is one observed pool effect: a trade, a liquidity change, or a
// pool-creation marker.
type Record struct {
	Timestamp  uint64
	TxID       [32]byte
	Kind       Kind
	Direction  *Direction
	BaseDelta  num.Int128
	QuoteDelta num.Int128
	AddressSPK []byte
	Success    bool
}

// encode serializes a Record to its fixed-prefix-plus-tail on-disk form:
// ts(8) kind(1) hasDir(1) dir(1) baseNeg(1) baseMag(16) quoteNeg(1)
// quoteMag(16) success(1) txid(32) spkLen(2) spk(var).
func (r Record) encode() []byte {
	out := make([]byte, 0, 8+1+1+1+1+16+1+16+1+32+2+len(r.AddressSPK))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], r.Timestamp)
	out = append(out, ts[:]...)
	out = append(out, byte(r.Kind))
	if r.Direction != nil {
		out = append(out, 1, byte(*r.Direction))
	} else {
		out = append(out, 0, 0)
	}
	out = append(out, boolByte(r.BaseDelta.Neg))
	var mag [16]byte
	r.BaseDelta.Mag.PutBE(mag[:])
	out = append(out, mag[:]...)
	out = append(out, boolByte(r.QuoteDelta.Neg))
	r.QuoteDelta.Mag.PutBE(mag[:])
	out = append(out, mag[:]...)
	out = append(out, boolByte(r.Success))
	out = append(out, r.TxID[:]...)
	var spkLen [2]byte
	binary.BigEndian.PutUint16(spkLen[:], uint16(len(r.AddressSPK)))
	out = append(out, spkLen[:]...)
	out = append(out, r.AddressSPK...)
	return out
}

func decodeRecord(v []byte) (Record, error) {
	const fixedLen = 8 + 1 + 1 + 1 + 1 + 16 + 1 + 16 + 1 + 32 + 2
	if len(v) < fixedLen {
		return Record{}, fmt.Errorf("activity: record too short: %d bytes", len(v))
	}
	var r Record
	r.Timestamp = binary.BigEndian.Uint64(v[0:8])
	r.Kind = Kind(v[8])
	off := 9
	if v[off] == 1 {
		d := Direction(v[off+1])
		r.Direction = &d
	}
	off += 2
	r.BaseDelta.Neg = v[off] == 1
	off++
	r.BaseDelta.Mag = num.Uint128FromBE(v[off : off+16])
	off += 16
	r.QuoteDelta.Neg = v[off] == 1
	off++
	r.QuoteDelta.Mag = num.Uint128FromBE(v[off : off+16])
	off += 16
	r.Success = v[off] == 1
	off++
	copy(r.TxID[:], v[off:off+32])
	off += 32
	spkLen := int(binary.BigEndian.Uint16(v[off : off+2]))
	off += 2
	if len(v) < off+spkLen {
		return Record{}, fmt.Errorf("activity: truncated address_spk")
	}
	if spkLen > 0 {
		r.AddressSPK = append([]byte(nil), v[off:off+spkLen]...)
	}
	return r, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
