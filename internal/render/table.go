// Package render draws a reconciliation report as a terminal table.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/price"
)

// AccountWidth is the number of characters of an account id shown in the table.
const AccountWidth = 14

const places = 2

var (
	accountStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	rewardStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	liquidStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	withdrawStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	lockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	totalStyle    = lipgloss.NewStyle().Bold(true)
	usdStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
)

var headers = []string{"ACCOUNT", "REWARD", "LIQUID", "UNSTAKED", "NATIVE", "POOL"}

const (
	colAccount = iota
	colReward
	colLiquid
	colUnstaked
)

// Report renders the report. quote may be nil, in which case the USD line is omitted.
func Report(report domain.Report, quote *price.Quote) string {
	var b strings.Builder

	b.WriteString(EpochLine(report))
	b.WriteString("\n")

	rows := lo.Map(report.Rows, func(r domain.AccountRow, _ int) []string {
		return []string{
			Truncate(r.AccountID),
			rewardStyle.Render(FormatNear(r.Reward.Human())) + " " + deltaStyle(r.Delta).Render(r.Delta.Format(places)),
			FormatNear(r.Liquid.Human()),
			FormatNear(r.Unstaked.Human()),
			FormatNear(r.Native.Human()),
			r.PoolAccountID,
		}
	})

	rewardSum := report.Totals.RewardSum.Human()
	liquidSum := report.Totals.LiquidSum.Human()
	rows = append(rows, []string{"TOTAL", FormatNear(rewardSum), FormatNear(liquidSum), "", "", ""})
	if quote != nil {
		rows = append(rows, []string{
			"USD",
			FormatUSD(rewardSum.Mul(quote.USD)),
			FormatUSD(liquidSum.Mul(quote.USD)),
			"", "", "@ " + FormatUSD(quote.USD),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= len(report.Rows) {
				return summaryStyle(row-len(report.Rows), col)
			}
			switch col {
			case colAccount:
				return accountStyle.Padding(0, 1)
			case colLiquid:
				if !report.Rows[row].LiquidCounted {
					return mutedStyle.Padding(0, 1)
				}
				return liquidStyle.Padding(0, 1)
			case colUnstaked:
				if report.Rows[row].CanWithdraw {
					return withdrawStyle.Padding(0, 1)
				}
				return lockedStyle.Padding(0, 1)
			}
			return cellStyle
		})

	b.WriteString(t.String())
	b.WriteString("\n")

	for _, f := range report.Failures {
		b.WriteString(lossStyle.Render(fmt.Sprintf("FAILED %s (%s): %s", f.AccountID, f.Kind, f.Message)))
		b.WriteString("\n")
	}
	for _, w := range report.Warnings {
		b.WriteString(mutedStyle.Render("warning: " + w))
		b.WriteString("\n")
	}

	return b.String()
}

// EpochLine renders the epoch progress header.
func EpochLine(report domain.Report) string {
	if report.EpochProgress == nil {
		return "Epoch progress: unknown"
	}
	return fmt.Sprintf("Epoch progress: %d%%", *report.EpochProgress)
}

// Truncate shortens an account id to AccountWidth characters.
func Truncate(accountID string) string {
	return lo.Substring(accountID, 0, AccountWidth)
}

// FormatNear renders an amount of NEAR with two decimal places.
func FormatNear(d decimal.Decimal) string {
	return d.StringFixed(places)
}

// FormatUSD renders a dollar amount.
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(places)
}

func deltaStyle(d domain.RewardDelta) lipgloss.Style {
	switch d.Sign() {
	case 1:
		return gainStyle
	case -1:
		return lossStyle
	}
	return mutedStyle
}

func summaryStyle(offset, col int) lipgloss.Style {
	if offset == 1 {
		if col == colReward || col == colLiquid {
			return usdStyle.Padding(0, 1)
		}
		return cellStyle
	}
	if col == colReward {
		return totalStyle.Foreground(lipgloss.Color("1")).Padding(0, 1)
	}
	return totalStyle.Padding(0, 1)
}
