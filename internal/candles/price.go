package candles

import "github.com/alkanes-indexing/blockcore/internal/num"

var maxUint128 = num.Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}

func satMul(a, b num.Uint128) num.Uint128 {
	r, overflow := a.Mul(b)
	if overflow {
		return maxUint128
	}
	return r
}

// divScaled computes floor(n*scale/d), saturating the multiplication, and
// returns zero if d is zero (an unseeded pool has no price yet).
func divScaled(n, d num.Uint128, scale uint64) num.Uint128 {
	if d.IsZero() {
		return num.Uint128{}
	}
	return satMul(n, num.Uint128From64(scale)).Div(d)
}

// PriceQuotePerBase is the price of one unit of base, denominated in quote.
func PriceQuotePerBase(baseReserve, quoteReserve num.Uint128, scale uint64) num.Uint128 {
	return divScaled(quoteReserve, baseReserve, scale)
}

// PriceBasePerQuote is the price of one unit of quote, denominated in base.
func PriceBasePerQuote(baseReserve, quoteReserve num.Uint128, scale uint64) num.Uint128 {
	return divScaled(baseReserve, quoteReserve, scale)
}
