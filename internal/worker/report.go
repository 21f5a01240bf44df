package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khorolets/near-rewards/internal/domain"
)

// ErrNoReport is returned before the first run has completed.
var ErrNoReport = errors.New("no report yet")

// ReportRunner produces a reconciliation report for a set of accounts.
type ReportRunner interface {
	Run(ctx context.Context, accounts []domain.TrackedAccount) (domain.Report, error)
}

// AccountSource returns the accounts to reconcile. It is called before every run
// so edits to the accounts file are picked up without a restart.
type AccountSource func() ([]domain.TrackedAccount, error)

// AfterRunHook is called after each successful run.
type AfterRunHook interface {
	Export(ctx context.Context, report domain.Report) error
}

// ReportWorker periodically reconciles the tracked accounts and keeps the latest report.
type ReportWorker struct {
	runner   ReportRunner
	accounts AccountSource
	interval time.Duration
	hook     AfterRunHook // optional

	runMu  sync.Mutex
	latest atomic.Pointer[domain.Report]
}

// NewReportWorker creates a new ReportWorker with an optional post-run hook.
func NewReportWorker(runner ReportRunner, accounts AccountSource, interval time.Duration, hook AfterRunHook) *ReportWorker {
	if runner == nil || accounts == nil {
		panic("worker.NewReportWorker: runner and accounts are required")
	}
	return &ReportWorker{
		runner:   runner,
		accounts: accounts,
		interval: interval,
		hook:     hook,
	}
}

// Latest returns the most recent successful report.
func (w *ReportWorker) Latest() (domain.Report, error) {
	r := w.latest.Load()
	if r == nil {
		return domain.Report{}, ErrNoReport
	}
	return *r, nil
}

// Refresh runs a reconciliation now. Concurrent calls are serialized.
func (w *ReportWorker) Refresh(ctx context.Context) (domain.Report, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	accounts, err := w.accounts()
	if err != nil {
		return domain.Report{}, err
	}

	report, err := w.runner.Run(ctx, accounts)
	if err != nil {
		return domain.Report{}, err
	}
	w.latest.Store(&report)
	w.runHook(ctx, report)
	return report, nil
}

// runHook calls the post-run hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, report domain.Report) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, report); err != nil {
		slog.Error("ReportWorker: export hook failed", "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed")
	}
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting", "interval", w.interval)

	// Run immediately on startup
	if report, err := w.Refresh(ctx); err != nil {
		slog.Error("ReportWorker: initial run failed", "error", err)
	} else {
		slog.Info("ReportWorker: initial run completed", "rows", len(report.Rows), "failures", len(report.Failures))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			if report, err := w.Refresh(ctx); err != nil {
				slog.Error("ReportWorker: run failed", "error", err)
			} else {
				slog.Info("ReportWorker: run completed", "rows", len(report.Rows), "failures", len(report.Failures))
			}
		}
	}
}
