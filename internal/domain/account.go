package domain

// TrackedAccount is one entry of the tracked accounts file.
type TrackedAccount struct {
	AccountID     string `json:"account_id"`
	PoolAccountID string `json:"pool_account_id,omitempty"`
	// LockedAmountOverride replaces the on-chain lock schedule when set.
	LockedAmountOverride *Magnitude `json:"locked_amount_override,omitempty"`
}

// HasPool reports whether the staking pool is already known.
func (a TrackedAccount) HasPool() bool {
	return a.PoolAccountID != ""
}

// ResolvedAccount is a tracked account whose staking pool has been established.
// It is produced once by pool resolution and passed by value afterwards.
type ResolvedAccount struct {
	Account       TrackedAccount
	PoolAccountID string
}

// AccountID returns the tracked account id.
func (r ResolvedAccount) AccountID() string {
	return r.Account.AccountID
}
