package trace

import (
	"bytes"
	"math"

	"github.com/alkanes-indexing/blockcore/internal/num"
)

// kTolerance bounds the acceptable relative drift of the constant product
// k=base*quote across a detected swap; anything outside this band is
// treated as a mis-detected anchor rather than a real trade.
const kTolerance = 1e-6

// PoolDefinition is the authoritative (base, quote) pair for a pool id,
// looked up while walking a transaction's trace.
type PoolDefinition struct {
	PoolID    AlkaneId
	BaseID    AlkaneId
	QuoteID   AlkaneId
	FactoryID *AlkaneId
}

// ReserveExtraction is one detected swap against a known pool.
type ReserveExtraction struct {
	Pool         AlkaneId
	BaseID       AlkaneId
	QuoteID      AlkaneId
	PrevReserves [2]num.Uint128 // (base, quote)
	NewReserves  [2]num.Uint128 // (base, quote)
	Volume       [2]num.Uint128 // (base_in, quote_out)
	KRatio       *float64
}

func isAnchor(inv InvokeEvent) bool {
	return inv.Kind == "delegatecall" &&
		len(inv.Inputs) == 1 &&
		bytes.Equal(inv.Inputs[0], []byte{0x61}) &&
		inv.Caller == FactoryID
}

func nextReturnIdx(events []TraceEvent, start int) int {
	for i := start; i < len(events); i++ {
		if _, ok := events[i].(ReturnEvent); ok {
			return i
		}
	}
	return -1
}

// decodeLEUint128Pair decodes a 32-byte value as two little-endian u128
// halves, matching the reserves-return payload encoding.
func decodeLEUint128Pair(v []byte) (base, quote num.Uint128, ok bool) {
	if len(v) != 32 {
		return num.Uint128{}, num.Uint128{}, false
	}
	return leUint128(v[0:16]), leUint128(v[16:32]), true
}

func leUint128(v []byte) num.Uint128 {
	var lo, hi uint64
	for i := 0; i < 8; i++ {
		lo |= uint64(v[i]) << uint(8*i)
	}
	for i := 0; i < 8; i++ {
		hi |= uint64(v[8+i]) << uint(8*i)
	}
	return num.Uint128{Hi: hi, Lo: lo}
}

// ExtractReserves walks events in order detecting swap anchors against
// pools already known via defs, per SPEC_FULL.md §4.4's six-step state
// machine. A transaction with no anchors, or whose anchors all fail the
// per-step checks, simply yields no results — not an error, since a single
// transaction can contain other, independently valid anchors and callers
// never want one malformed swap to hide its siblings.
func ExtractReserves(events []TraceEvent, defs map[AlkaneId]PoolDefinition) []ReserveExtraction {
	var out []ReserveExtraction

	i := 0
	for i < len(events) {
		inv, ok := events[i].(InvokeEvent)
		if !ok || !isAnchor(inv) {
			i++
			continue
		}

		poolID := inv.Self
		def, ok := defs[poolID]
		if !ok {
			i++
			continue
		}

		r1 := nextReturnIdx(events, i+1)
		if r1 < 0 {
			i++
			continue
		}
		r2 := nextReturnIdx(events, r1+1)
		if r2 < 0 {
			i = r1 + 1
			continue
		}

		d1 := events[r1].(ReturnEvent).Data
		d2 := events[r2].(ReturnEvent).Data
		if !bytes.Equal(d1, d2) {
			i = r2 + 1
			continue
		}
		prevBase, prevQuote, ok := decodeLEUint128Pair(d1)
		if !ok {
			i = r2 + 1
			continue
		}

		var baseIn, quoteIn num.Uint128
		validSwap := false
		sawCandidateCall := false
		poolDepth := 0

		for j := r2 + 1; j < len(events); j++ {
			switch e := events[j].(type) {
			case InvokeEvent:
				if e.Self != poolID {
					continue
				}
				poolDepth++
				if e.Kind == "call" && !sawCandidateCall {
					matches := 0
					var tmpBaseIn, tmpQuoteIn num.Uint128
					for _, inc := range e.IncomingAlkanes {
						switch inc.ID {
						case def.BaseID:
							matches++
							tmpBaseIn = inc.Amount
						case def.QuoteID:
							matches++
							tmpQuoteIn = inc.Amount
						}
					}
					sawCandidateCall = true
					if matches == 1 {
						baseIn, quoteIn = tmpBaseIn, tmpQuoteIn
						validSwap = true
					} else {
						validSwap = false
					}
				}
			case ReturnEvent:
				if poolDepth > 0 {
					poolDepth--
					if poolDepth == 0 {
						goto scanDone
					}
				}
			}
		}
	scanDone:

		if !validSwap {
			i = r2 + 1
			continue
		}

		kPrev, overflow := prevBase.Mul(prevQuote)
		if overflow {
			i = r2 + 1
			continue
		}

		var newBase, newQuote, baseInRes, quoteOutRes num.Uint128
		if !baseIn.IsZero() {
			nb, ovf := prevBase.Add(baseIn)
			if ovf {
				i = r2 + 1
				continue
			}
			var nq num.Uint128
			if !nb.IsZero() {
				nq = kPrev.Div(nb)
			}
			if nq.Cmp(prevQuote) > 0 {
				i = r2 + 1
				continue
			}
			y, _ := prevQuote.Sub(nq)
			newBase, newQuote, baseInRes, quoteOutRes = nb, nq, baseIn, y
		} else {
			nq, ovf := prevQuote.Add(quoteIn)
			if ovf {
				i = r2 + 1
				continue
			}
			var nb num.Uint128
			if !nq.IsZero() {
				nb = kPrev.Div(nq)
			}
			if nb.Cmp(prevBase) > 0 {
				i = r2 + 1
				continue
			}
			newBase, newQuote = nb, nq
		}

		if prevBase.IsZero() || prevQuote.IsZero() {
			// k_ratio is undefined (division by zero pre-reserves); the
			// reference extractor treats this as an always-out-of-tolerance
			// ratio, so this anchor is skipped the same way.
			i = r2 + 1
			continue
		}
		ratio := (newBase.Float64() * newQuote.Float64()) / (prevBase.Float64() * prevQuote.Float64())
		if math.Abs(ratio-1.0) > kTolerance {
			i = r2 + 1
			continue
		}

		out = append(out, ReserveExtraction{
			Pool:         poolID,
			BaseID:       def.BaseID,
			QuoteID:      def.QuoteID,
			PrevReserves: [2]num.Uint128{prevBase, prevQuote},
			NewReserves:  [2]num.Uint128{newBase, newQuote},
			Volume:       [2]num.Uint128{baseInRes, quoteOutRes},
			KRatio:       &ratio,
		})
		i = r2 + 1
	}

	return out
}
