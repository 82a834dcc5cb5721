package num

// Int128 is a signed 128-bit magnitude used for activity deltas
// (base_delta/quote_delta). Go has no native i128; representing sign and
// magnitude separately avoids re-deriving two's-complement arithmetic that
// none of the call sites in this package actually need (deltas are only
// ever added to, compared for sign, and stored).
type Int128 struct {
	Neg bool
	Mag Uint128
}

// Int128FromInt64 widens a plain int64 delta.
func Int128FromInt64(v int64) Int128 {
	if v < 0 {
		return Int128{Neg: true, Mag: Uint128From64(uint64(-v))}
	}
	return Int128{Neg: false, Mag: Uint128From64(uint64(v))}
}

// SideCode returns the activity side byte: 0=buy(negative), 1=zero, 2=sell(positive).
func (i Int128) SideCode() byte {
	if i.Mag.IsZero() {
		return 1
	}
	if i.Neg {
		return 0
	}
	return 2
}

// Sign returns -1, 0, or 1.
func (i Int128) Sign() int {
	if i.Mag.IsZero() {
		return 0
	}
	if i.Neg {
		return -1
	}
	return 1
}

// String renders a decimal signed representation over the full 128-bit
// magnitude range.
func (i Int128) String() string {
	s := i.Mag.decimalString()
	if i.Neg && s != "0" {
		return "-" + s
	}
	return s
}

func (u Uint128) decimalString() string {
	if u.IsZero() {
		return "0"
	}
	var digits []byte
	v := u
	ten := Uint128From64(10)
	for !v.IsZero() {
		rem := v.Div(ten)
		mul, _ := rem.Mul(ten)
		digit, _ := v.Sub(mul)
		digits = append(digits, byte('0')+byte(digit.Lo))
		v = rem
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
