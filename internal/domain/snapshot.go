package domain

import "fmt"

// ChainSnapshot pins a block height and the start height of the epoch it belongs to.
type ChainSnapshot struct {
	Height           uint64 `json:"height"`
	BlockHash        string `json:"block_hash,omitempty"`
	EpochStartHeight uint64 `json:"epoch_start_height"`
}

// BalanceSnapshot combines the balance queries of one account at one block.
type BalanceSnapshot struct {
	AccountID     string        `json:"account_id"`
	PoolAccountID string        `json:"pool_account_id"`
	Chain         ChainSnapshot `json:"chain"`

	Staked      Magnitude `json:"staked"`
	Unstaked    Magnitude `json:"unstaked"`
	CanWithdraw bool      `json:"can_withdraw"`
	Locked      Magnitude `json:"locked"`
	Native      Magnitude `json:"native"`
	Liquid      Magnitude `json:"liquid"`
	Reward      Magnitude `json:"reward"`

	// LockedDefaulted is set when the lock schedule query failed and zero was used.
	LockedDefaulted bool `json:"locked_defaulted,omitempty"`
	// LiquidFromNative is set when the liquid balance query failed and the native balance was used.
	LiquidFromNative bool `json:"liquid_from_native,omitempty"`
}

// ComputeReward derives the reward from the raw balances:
//
//	reward = staked + unstaked + (native if locked > 0) - locked
//
// The native balance only counts while tokens are still locked. A lock larger than
// everything else is an inconsistency and yields ErrNegativeReward.
func ComputeReward(staked, unstaked, native, locked Magnitude) (Magnitude, error) {
	total, err := staked.Add(unstaked)
	if err != nil {
		return Magnitude{}, fmt.Errorf("computing reward: %w", err)
	}
	if !locked.IsZero() {
		total, err = total.Add(native)
		if err != nil {
			return Magnitude{}, fmt.Errorf("computing reward: %w", err)
		}
	}
	reward, err := total.Sub(locked)
	if err != nil {
		return Magnitude{}, fmt.Errorf("computing reward: locked %s exceeds %s: %w", locked, total, ErrNegativeReward)
	}
	return reward, nil
}
