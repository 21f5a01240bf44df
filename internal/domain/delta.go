package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RewardDelta is a signed difference of two magnitudes in sign-magnitude form,
// which covers the full 129-bit range without overflow.
type RewardDelta struct {
	sign int
	abs  Magnitude
}

// NewRewardDelta returns current - reference.
func NewRewardDelta(current, reference Magnitude) (RewardDelta, error) {
	sign := current.Cmp(reference)
	var (
		abs Magnitude
		err error
	)
	switch sign {
	case 1:
		abs, err = current.Sub(reference)
	case -1:
		abs, err = reference.Sub(current)
	}
	if err != nil {
		return RewardDelta{}, fmt.Errorf("computing delta: %w", ErrMagnitudeOverflow)
	}
	return RewardDelta{sign: sign, abs: abs}, nil
}

// Sign returns -1, 0 or +1.
func (d RewardDelta) Sign() int { return d.sign }

// Abs returns the absolute value of the delta.
func (d RewardDelta) Abs() Magnitude { return d.abs }

// Human returns the signed delta in NEAR.
func (d RewardDelta) Human() decimal.Decimal {
	h := d.abs.Human()
	if d.sign < 0 {
		return h.Neg()
	}
	return h
}

// Format renders the delta with the given number of decimal places and an explicit sign.
// A zero delta has no sign.
func (d RewardDelta) Format(places int32) string {
	s := d.abs.Human().StringFixed(places)
	switch {
	case d.sign > 0:
		return "+" + s
	case d.sign < 0:
		return "-" + s
	default:
		return s
	}
}

// String renders the delta with two decimal places.
func (d RewardDelta) String() string {
	return d.Format(2)
}

// MarshalJSON encodes the delta as a signed yocto string.
func (d RewardDelta) MarshalJSON() ([]byte, error) {
	s := d.abs.String()
	if d.sign < 0 {
		s = "-" + s
	}
	return []byte(`"` + s + `"`), nil
}
