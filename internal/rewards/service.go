package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/metrics"
)

// PoolResolver defines the staking pool resolution interface.
type PoolResolver interface {
	Resolve(ctx context.Context, acc domain.TrackedAccount) (domain.ResolvedAccount, error)
}

// poolForgetter is implemented by resolvers that memoize lookups.
type poolForgetter interface {
	Forget(accountID string)
}

// SnapshotCollector defines the balance snapshot interface.
type SnapshotCollector interface {
	Collect(ctx context.Context, acc domain.ResolvedAccount, chain domain.ChainSnapshot) (domain.BalanceSnapshot, error)
}

// ChainLocator defines how the two chain snapshots of a run are established.
type ChainLocator interface {
	Locate(ctx context.Context) (current, reference domain.ChainSnapshot, err error)
}

// Service orchestrates a reconciliation run over a set of tracked accounts.
type Service struct {
	resolver    PoolResolver
	collector   SnapshotCollector
	locator     ChainLocator
	concurrency int
	now         func() time.Time
}

// NewService creates a new rewards Service. All dependencies are required.
// concurrency bounds how many accounts are processed at once.
func NewService(resolver PoolResolver, collector SnapshotCollector, locator ChainLocator, concurrency int) *Service {
	if resolver == nil {
		panic("rewards.NewService: resolver is nil")
	}
	if collector == nil {
		panic("rewards.NewService: collector is nil")
	}
	if locator == nil {
		panic("rewards.NewService: locator is nil")
	}
	return &Service{
		resolver:    resolver,
		collector:   collector,
		locator:     locator,
		concurrency: max(concurrency, 1),
		now:         time.Now,
	}
}

// Run pins the current and reference blocks and reconciles every account against them.
// Only a failure to pin the blocks fails the run; account failures are part of the report.
func (s *Service) Run(ctx context.Context, accounts []domain.TrackedAccount) (domain.Report, error) {
	current, reference, err := s.locator.Locate(ctx)
	if err != nil {
		metrics.ObserveRunFailure()
		return domain.Report{}, fmt.Errorf("locating chain snapshots: %w", err)
	}
	slog.Info("rewards: chain snapshots located",
		"current", current.Height, "epoch_start", current.EpochStartHeight, "reference", reference.Height)

	report := s.Aggregate(ctx, accounts, current, reference)
	if err := ctx.Err(); err != nil {
		metrics.ObserveRunFailure()
		return domain.Report{}, fmt.Errorf("reconciliation interrupted: %w", err)
	}

	metrics.ObserveReport(report)
	slog.Info("rewards: run completed",
		"rows", len(report.Rows), "failures", len(report.Failures),
		"reward_sum", report.Totals.RewardSum.Human().StringFixed(2),
		"liquid_sum", report.Totals.LiquidSum.Human().StringFixed(2))
	return report, nil
}

type accountResult struct {
	account domain.TrackedAccount
	pool    string
	row     domain.AccountRow
	err     error
}

type fold struct {
	totals *domain.TotalsAccumulator
	rows   []domain.AccountRow
}

// Aggregate reconciles accounts against the given snapshots. Accounts are processed
// concurrently but folded into rows and totals in account id order.
func (s *Service) Aggregate(ctx context.Context, accounts []domain.TrackedAccount, current, reference domain.ChainSnapshot) domain.Report {
	ordered := slices.Clone(accounts)
	slices.SortStableFunc(ordered, func(a, b domain.TrackedAccount) int {
		return strings.Compare(a.AccountID, b.AccountID)
	})

	results := make([]accountResult, len(ordered))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, acc := range ordered {
		g.Go(func() error {
			results[i] = s.processAccount(ctx, acc, current, reference)
			return nil
		})
	}
	_ = g.Wait()

	failures := lo.FilterMap(results, func(r accountResult, _ int) (domain.AccountFailure, bool) {
		if r.err == nil {
			return domain.AccountFailure{}, false
		}
		slog.Warn("rewards: account skipped", "account", r.account.AccountID, "pool", r.pool, "error", r.err)
		return domain.NewAccountFailure(r.account.AccountID, r.pool, r.err), true
	})
	succeeded := lo.FilterMap(results, func(r accountResult, _ int) (domain.AccountRow, bool) {
		return r.row, r.err == nil
	})

	folded := lo.Reduce(succeeded, func(f fold, row domain.AccountRow, _ int) fold {
		f.rows = append(f.rows, f.totals.Add(row))
		return f
	}, fold{totals: domain.NewTotalsAccumulator(), rows: make([]domain.AccountRow, 0, len(succeeded))})

	report := domain.Report{
		GeneratedAt: s.now().UTC(),
		Current:     current,
		Reference:   reference,
		Rows:        folded.rows,
		Failures:    failures,
		Totals:      folded.totals.Totals(),
	}

	if progress, err := domain.EpochProgress(current.EpochStartHeight, current.Height); err != nil {
		slog.Warn("rewards: epoch progress unavailable", "error", err)
		report.Warnings = append(report.Warnings, err.Error())
	} else {
		report.EpochProgress = &progress
	}

	return report
}

// processAccount resolves the pool once and collects both snapshots of one account.
func (s *Service) processAccount(ctx context.Context, acc domain.TrackedAccount, current, reference domain.ChainSnapshot) accountResult {
	res := accountResult{account: acc, pool: acc.PoolAccountID}

	resolved, err := s.resolver.Resolve(ctx, acc)
	if err != nil {
		res.err = err
		return res
	}
	res.pool = resolved.PoolAccountID

	var cur, ref domain.BalanceSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.collector.Collect(gctx, resolved, current)
		return err
	})
	g.Go(func() error {
		var err error
		ref, err = s.collector.Collect(gctx, resolved, reference)
		return err
	})
	if err := g.Wait(); err != nil {
		// a looked-up pool may have been switched by the owner since it was memoized
		if errors.Is(err, domain.ErrDelegationQuery) && !acc.HasPool() {
			if f, ok := s.resolver.(poolForgetter); ok {
				f.Forget(acc.AccountID)
			}
		}
		res.err = err
		return res
	}

	row, err := domain.NewAccountRow(cur, ref)
	if err != nil {
		res.err = err
		return res
	}
	res.row = row
	return res
}
