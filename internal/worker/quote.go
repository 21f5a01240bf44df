package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/khorolets/near-rewards/internal/price"
)

// QuoteFetcher fetches the current NEAR spot price, bypassing any cache.
type QuoteFetcher interface {
	Refresh(ctx context.Context) (price.Quote, error)
}

// QuoteWorker periodically refreshes the NEAR spot price.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
	latest   atomic.Pointer[price.Quote]
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
	}
}

// Latest returns the last fetched quote, or nil when none succeeded yet.
func (w *QuoteWorker) Latest() *price.Quote {
	return w.latest.Load()
}

func (w *QuoteWorker) fetch(ctx context.Context) error {
	q, err := w.fetcher.Refresh(ctx)
	if err != nil {
		return err
	}
	w.latest.Store(&q)
	return nil
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting")

	// Fetch immediately on startup
	if err := w.fetch(ctx); err != nil {
		slog.Error("QuoteWorker: initial fetch failed", "error", err)
	} else {
		slog.Info("QuoteWorker: initial fetch completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.fetch(ctx); err != nil {
				slog.Error("QuoteWorker: fetch failed", "error", err)
			} else {
				slog.Debug("QuoteWorker: fetch completed")
			}
		}
	}
}
