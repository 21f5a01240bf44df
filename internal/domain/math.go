package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// YoctoPrecision is the number of decimal places between yocto and whole NEAR.
const YoctoPrecision = 24

// magnitudeBits is the width of the ledger's native amount type.
const magnitudeBits = 128

var yoctoPerNear = decimal.New(1, YoctoPrecision)

// Magnitude is a non-negative yocto amount bounded to 128 bits.
// The zero value is a valid zero amount.
type Magnitude struct {
	v uint256.Int
}

// ParseMagnitude parses a base-10 yocto amount. Surrounding JSON quotes are tolerated.
func ParseMagnitude(s string) (Magnitude, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" {
		return Magnitude{}, fmt.Errorf("parsing magnitude: empty value")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Magnitude{}, fmt.Errorf("parsing magnitude %q: %w", s, err)
	}
	if v.BitLen() > magnitudeBits {
		return Magnitude{}, fmt.Errorf("parsing magnitude %q: %w", s, ErrMagnitudeOverflow)
	}
	return Magnitude{v: *v}, nil
}

// MustParseMagnitude is like ParseMagnitude but panics on error. Intended for constants and tests.
func MustParseMagnitude(s string) Magnitude {
	m, err := ParseMagnitude(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MagnitudeFromUint64 returns a magnitude holding n yocto.
func MagnitudeFromUint64(n uint64) Magnitude {
	return Magnitude{v: *uint256.NewInt(n)}
}

// NearToMagnitude converts whole NEAR into yocto. It panics above 2^128 yocto.
func NearToMagnitude(near uint64) Magnitude {
	m, err := MagnitudeFromHuman(decimal.NewFromBigInt(new(big.Int).SetUint64(near), 0))
	if err != nil {
		panic(err)
	}
	return m
}

// MagnitudeFromHuman scales a human NEAR amount to yocto, truncating anything below one yocto.
func MagnitudeFromHuman(d decimal.Decimal) (Magnitude, error) {
	if d.IsNegative() {
		return Magnitude{}, fmt.Errorf("converting %s NEAR: %w", d, ErrNegativeMagnitude)
	}
	scaled := d.Mul(yoctoPerNear).Truncate(0)
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow || v.BitLen() > magnitudeBits {
		return Magnitude{}, fmt.Errorf("converting %s NEAR: %w", d, ErrMagnitudeOverflow)
	}
	return Magnitude{v: *v}, nil
}

// Add returns m+o, failing if the result does not fit in 128 bits.
func (m Magnitude) Add(o Magnitude) (Magnitude, error) {
	var z uint256.Int
	z.Add(&m.v, &o.v)
	if z.BitLen() > magnitudeBits {
		return Magnitude{}, fmt.Errorf("adding %s and %s: %w", m, o, ErrMagnitudeOverflow)
	}
	return Magnitude{v: z}, nil
}

// Sub returns m-o, failing instead of wrapping when o > m.
func (m Magnitude) Sub(o Magnitude) (Magnitude, error) {
	var z uint256.Int
	if _, underflow := z.SubOverflow(&m.v, &o.v); underflow {
		return Magnitude{}, fmt.Errorf("subtracting %s from %s: %w", o, m, ErrNegativeMagnitude)
	}
	return Magnitude{v: z}, nil
}

// Cmp compares m and o and returns -1, 0 or +1.
func (m Magnitude) Cmp(o Magnitude) int {
	return m.v.Cmp(&o.v)
}

// IsZero reports whether m is zero.
func (m Magnitude) IsZero() bool {
	return m.v.IsZero()
}

// String returns the base-10 yocto representation.
func (m Magnitude) String() string {
	return m.v.Dec()
}

// Big returns m as a new big.Int.
func (m Magnitude) Big() *big.Int {
	return m.v.ToBig()
}

// Human converts yocto to NEAR exactly.
func (m Magnitude) Human() decimal.Decimal {
	return decimal.NewFromBigInt(m.v.ToBig(), -YoctoPrecision)
}

// Whole returns the floor of m in whole NEAR.
// 2^128 yocto is below 3.5e14 NEAR, so the quotient always fits.
func (m Magnitude) Whole() uint64 {
	var q uint256.Int
	q.Div(&m.v, yoctoPerNearInt)
	return q.Uint64()
}

var yoctoPerNearInt = uint256.MustFromDecimal("1000000000000000000000000")

// MarshalJSON encodes the magnitude as a quoted yocto string, the way the ledger does.
func (m Magnitude) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted or bare yocto amount.
func (m *Magnitude) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	parsed, err := ParseMagnitude(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum is a 256-bit accumulator of magnitudes used for portfolio totals.
// It cannot overflow for fewer than 2^128 addends.
type Sum struct {
	v uint256.Int
}

// Add returns s+m.
func (s Sum) Add(m Magnitude) Sum {
	var z uint256.Int
	z.Add(&s.v, &m.v)
	return Sum{v: z}
}

// String returns the base-10 yocto representation.
func (s Sum) String() string {
	return s.v.Dec()
}

// Human converts the accumulated yocto to NEAR exactly.
func (s Sum) Human() decimal.Decimal {
	return decimal.NewFromBigInt(s.v.ToBig(), -YoctoPrecision)
}

// MarshalJSON encodes the sum as a quoted yocto string.
func (s Sum) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
