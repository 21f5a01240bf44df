package export

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/khorolets/near-rewards/internal/domain"
)

// RewardsHeader lists the columns of the REWARDS sheet.
var RewardsHeader = []any{
	"Account", "Pool", "Reward", "Delta", "Liquid", "Liquid Counted", "Unstaked", "Can Withdraw", "Native",
}

// HistoryHeader lists the columns of the HISTORY sheet.
var HistoryHeader = []any{
	"Date", "Height", "Reference Height", "Epoch Progress", "Reward Sum", "Liquid Sum", "Accounts", "Failures",
}

// buildRewardRows returns the header, one row per account row, then the totals row.
func buildRewardRows(report domain.Report) [][]any {
	data := make([][]any, 0, len(report.Rows)+2)
	data = append(data, RewardsHeader)

	data = append(data, lo.Map(report.Rows, func(r domain.AccountRow, _ int) []any {
		return []any{
			r.AccountID,
			r.PoolAccountID,
			toFloat(r.Reward.Human()),
			toFloat(r.Delta.Human()),
			toFloat(r.Liquid.Human()),
			r.LiquidCounted,
			toFloat(r.Unstaked.Human()),
			r.CanWithdraw,
			toFloat(r.Native.Human()),
		}
	})...)

	data = append(data, []any{
		"TOTAL", "",
		toFloat(report.Totals.RewardSum.Human()), "",
		toFloat(report.Totals.LiquidSum.Human()),
		"", "", "", "",
	})
	return data
}

// buildFailureRows lists the accounts that produced no row.
func buildFailureRows(report domain.Report) [][]any {
	data := [][]any{{"Account", "Pool", "Kind", "Message"}}
	for _, f := range report.Failures {
		data = append(data, []any{f.AccountID, f.PoolAccountID, string(f.Kind), f.Message})
	}
	return data
}

// buildHistoryRow summarizes one run as a single appended row.
func buildHistoryRow(report domain.Report, at time.Time) []any {
	var progress any
	if report.EpochProgress != nil {
		progress = float64(*report.EpochProgress)
	}
	return []any{
		at.UTC().Format("02.01.2006 15:04"),
		float64(report.Current.Height),
		float64(report.Reference.Height),
		progress,
		toFloat(report.Totals.RewardSum.Human()),
		toFloat(report.Totals.LiquidSum.Human()),
		float64(len(report.Rows)),
		float64(len(report.Failures)),
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
