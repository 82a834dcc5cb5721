// Package num provides the fixed-width 128-bit integer arithmetic the
// indexing core needs for reserves, candle prices, and activity deltas.
// Go has no native u128/i128; every operation here is built from two
// uint64 limbs plus math/bits for overflow-checked multiplication.
package num

import "math/bits"

// Uint128 is an unsigned 128-bit integer, stored as (hi, lo) big-endian limbs.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Uint128From64 widens a uint64 into a Uint128.
func Uint128From64(v uint64) Uint128 { return Uint128{Lo: v} }

// IsZero reports whether the value is zero.
func (u Uint128) IsZero() bool { return u.Hi == 0 && u.Lo == 0 }

// Cmp returns -1, 0, or 1 comparing u to v.
func (u Uint128) Cmp(v Uint128) int {
	if u.Hi != v.Hi {
		if u.Hi < v.Hi {
			return -1
		}
		return 1
	}
	if u.Lo != v.Lo {
		if u.Lo < v.Lo {
			return -1
		}
		return 1
	}
	return 0
}

// Add returns u+v and whether the addition overflowed 128 bits.
func (u Uint128) Add(v Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry2 := bits.Add64(u.Hi, v.Hi, carry)
	return Uint128{Hi: hi, Lo: lo}, carry2 != 0
}

// SatAdd returns u+v, saturating at the maximum Uint128 on overflow.
func (u Uint128) SatAdd(v Uint128) Uint128 {
	r, overflow := u.Add(v)
	if overflow {
		return Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}
	}
	return r
}

// Sub returns u-v and whether the subtraction underflowed.
func (u Uint128) Sub(v Uint128) (Uint128, bool) {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, borrow2 := bits.Sub64(u.Hi, v.Hi, borrow)
	return Uint128{Hi: hi, Lo: lo}, borrow2 != 0
}

// Mul returns u*v and whether the product overflowed 128 bits.
func (u Uint128) Mul(v Uint128) (Uint128, bool) {
	// Only the low 64 bits of each operand matter for every call site in
	// this package (reserves and prices never exceed 2^64 individually),
	// but guard the general case so a future caller doesn't silently get
	// a truncated answer.
	if u.Hi != 0 && v.Hi != 0 {
		return Uint128{}, true
	}
	hi, lo := bits.Mul64(u.Lo, v.Lo)
	var crossHi, crossLo uint64
	if u.Hi != 0 {
		crossHi, crossLo = bits.Mul64(u.Hi, v.Lo)
	} else if v.Hi != 0 {
		crossHi, crossLo = bits.Mul64(v.Hi, u.Lo)
	}
	if crossHi != 0 {
		return Uint128{}, true
	}
	sumHi, carry := bits.Add64(hi, crossLo, 0)
	if carry != 0 {
		return Uint128{}, true
	}
	return Uint128{Hi: sumHi, Lo: lo}, false
}

// Div returns floor(u/v). Division by zero returns the zero value.
func (u Uint128) Div(v Uint128) Uint128 {
	if v.IsZero() {
		return Uint128{}
	}
	if u.Hi == 0 && v.Hi == 0 {
		return Uint128{Lo: u.Lo / v.Lo}
	}
	// Slow path: binary long division, good enough at indexing rates.
	var quotient, remainder Uint128
	for i := 127; i >= 0; i-- {
		remainder = remainder.shl1()
		if bitAt(u, i) {
			remainder.Lo |= 1
		}
		if remainder.Cmp(v) >= 0 {
			remainder, _ = remainder.Sub(v)
			quotient = setBit(quotient, i)
		}
	}
	return quotient
}

func (u Uint128) shl1() Uint128 {
	hi := (u.Hi << 1) | (u.Lo >> 63)
	lo := u.Lo << 1
	return Uint128{Hi: hi, Lo: lo}
}

func bitAt(u Uint128, i int) bool {
	if i >= 64 {
		return (u.Hi>>(uint(i)-64))&1 == 1
	}
	return (u.Lo >> uint(i) & 1) == 1
}

func setBit(u Uint128, i int) Uint128 {
	if i >= 64 {
		u.Hi |= 1 << (uint(i) - 64)
	} else {
		u.Lo |= 1 << uint(i)
	}
	return u
}

// AbsInt128 returns the absolute value of a signed 128-bit quantity
// represented as (negative, magnitude), matching how this codebase carries
// base_delta/quote_delta (a sign flag plus an unsigned magnitude) rather
// than a full two's-complement i128 type.
func AbsInt128(negative bool, magnitude Uint128) Uint128 {
	return magnitude
}

// Float64 converts to a float64, losing precision above 2^53 — used for the
// K-ratio sanity check and for display amounts in activity rows, never for
// stored values.
func (u Uint128) Float64() float64 {
	return float64(u.Hi)*18446744073709551616.0 + float64(u.Lo)
}

// PutBE writes u as a 16-byte big-endian value into dst (len(dst) must be 16).
func (u Uint128) PutBE(dst []byte) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(u.Hi >> uint(8*(7-i)))
		dst[8+i] = byte(u.Lo >> uint(8*(7-i)))
	}
}

// Uint128FromBE reads a 16-byte big-endian value.
func Uint128FromBE(src []byte) Uint128 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(src[i])
		lo = lo<<8 | uint64(src[8+i])
	}
	return Uint128{Hi: hi, Lo: lo}
}
