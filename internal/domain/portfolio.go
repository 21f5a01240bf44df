package domain

import (
	"time"

	"github.com/samber/lo"
)

// AccountRow is the reconciled result of one tracked account.
type AccountRow struct {
	AccountID     string      `json:"account_id"`
	PoolAccountID string      `json:"pool_account_id"`
	Reward        Magnitude   `json:"reward"`
	Delta         RewardDelta `json:"delta"`
	Liquid        Magnitude   `json:"liquid"`
	// LiquidCounted is false when an earlier row with the same account id already contributed its liquid balance.
	LiquidCounted bool      `json:"liquid_counted"`
	Unstaked      Magnitude `json:"unstaked"`
	CanWithdraw   bool      `json:"can_withdraw"`
	Native        Magnitude `json:"native"`

	Current   BalanceSnapshot `json:"-"`
	Reference BalanceSnapshot `json:"-"`
}

// NewAccountRow builds a row from the two snapshots of one account.
func NewAccountRow(current, reference BalanceSnapshot) (AccountRow, error) {
	delta, err := NewRewardDelta(current.Reward, reference.Reward)
	if err != nil {
		return AccountRow{}, err
	}
	return AccountRow{
		AccountID:     current.AccountID,
		PoolAccountID: current.PoolAccountID,
		Reward:        current.Reward,
		Delta:         delta,
		Liquid:        current.Liquid,
		Unstaked:      current.Unstaked,
		CanWithdraw:   current.CanWithdraw,
		Native:        current.Native,
		Current:       current,
		Reference:     reference,
	}, nil
}

// AccountFailure records an account that produced no row.
type AccountFailure struct {
	AccountID     string      `json:"account_id"`
	PoolAccountID string      `json:"pool_account_id,omitempty"`
	Kind          FailureKind `json:"kind"`
	Message       string      `json:"message"`
	Err           error       `json:"-"`
}

// NewAccountFailure classifies err for the given account.
func NewAccountFailure(accountID, poolAccountID string, err error) AccountFailure {
	return AccountFailure{
		AccountID:     accountID,
		PoolAccountID: poolAccountID,
		Kind:          ClassifyFailure(err),
		Message:       err.Error(),
		Err:           err,
	}
}

// PortfolioTotals are the run-wide sums.
type PortfolioTotals struct {
	RewardSum Sum `json:"reward_sum"`
	LiquidSum Sum `json:"liquid_sum"`
}

// TotalsAccumulator folds rows into PortfolioTotals. It owns the per-run set of
// account ids whose liquid balance has already been counted, so a liquid balance
// shared by several rows is summed once.
type TotalsAccumulator struct {
	totals  PortfolioTotals
	counted map[string]struct{}
}

// NewTotalsAccumulator returns an empty accumulator.
func NewTotalsAccumulator() *TotalsAccumulator {
	return &TotalsAccumulator{counted: make(map[string]struct{})}
}

// Add folds row into the totals and returns it with LiquidCounted set.
func (a *TotalsAccumulator) Add(row AccountRow) AccountRow {
	a.totals.RewardSum = a.totals.RewardSum.Add(row.Reward)
	if _, seen := a.counted[row.AccountID]; !seen {
		a.counted[row.AccountID] = struct{}{}
		a.totals.LiquidSum = a.totals.LiquidSum.Add(row.Liquid)
		row.LiquidCounted = true
	} else {
		row.LiquidCounted = false
	}
	return row
}

// Totals returns the accumulated totals.
func (a *TotalsAccumulator) Totals() PortfolioTotals {
	return a.totals
}

// Report is the outcome of one reconciliation run.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Current     ChainSnapshot `json:"current"`
	Reference   ChainSnapshot `json:"reference"`
	// EpochProgress is nil when the current height precedes the reported epoch start.
	EpochProgress *uint64          `json:"epoch_progress"`
	Rows          []AccountRow     `json:"rows"`
	Failures      []AccountFailure `json:"failures"`
	Totals        PortfolioTotals  `json:"totals"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// RowsFor returns the rows of the given account id.
func (r Report) RowsFor(accountID string) []AccountRow {
	return lo.Filter(r.Rows, func(row AccountRow, _ int) bool {
		return row.AccountID == accountID
	})
}

// FailuresFor returns the failures of the given account id.
func (r Report) FailuresFor(accountID string) []AccountFailure {
	return lo.Filter(r.Failures, func(f AccountFailure, _ int) bool {
		return f.AccountID == accountID
	})
}
