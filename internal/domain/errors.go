package domain

import (
	"context"
	"errors"
)

var (
	// ErrMagnitudeOverflow is returned when an amount does not fit in 128 bits.
	ErrMagnitudeOverflow = errors.New("magnitude exceeds 128 bits")
	// ErrNegativeMagnitude is returned instead of a wrapped value when a subtraction goes below zero.
	ErrNegativeMagnitude = errors.New("magnitude would be negative")

	ErrPoolUnresolved     = errors.New("staking pool unresolved")
	ErrDelegationQuery    = errors.New("delegated stake query failed")
	ErrNativeBalanceQuery = errors.New("native balance query failed")
	ErrNegativeReward     = errors.New("locked amount exceeds stake and balances")

	// ErrHeightBeforeEpochStart is returned when a block height precedes its epoch start.
	ErrHeightBeforeEpochStart = errors.New("height is before epoch start")
	// ErrChainSnapshot is returned when the current or reference block cannot be established.
	ErrChainSnapshot = errors.New("chain snapshot unavailable")
)

// FailureKind classifies why an account produced no row.
type FailureKind string

const (
	FailurePoolUnresolved  FailureKind = "pool_unresolved"
	FailureDelegation      FailureKind = "delegation_query"
	FailureNativeBalance   FailureKind = "native_balance_query"
	FailureNegativeReward  FailureKind = "negative_reward"
	FailureOverflow        FailureKind = "overflow"
	FailureUnknown         FailureKind = "unknown"
	FailureContextCanceled FailureKind = "canceled"
)

// ClassifyFailure maps an account-level error onto its FailureKind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, ErrPoolUnresolved):
		return FailurePoolUnresolved
	case errors.Is(err, ErrDelegationQuery):
		return FailureDelegation
	case errors.Is(err, ErrNativeBalanceQuery):
		return FailureNativeBalance
	case errors.Is(err, ErrNegativeReward):
		return FailureNegativeReward
	case errors.Is(err, ErrMagnitudeOverflow):
		return FailureOverflow
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureContextCanceled
	default:
		return FailureUnknown
	}
}
