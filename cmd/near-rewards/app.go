package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khorolets/near-rewards/internal/accounts"
	"github.com/khorolets/near-rewards/internal/chain"
	"github.com/khorolets/near-rewards/internal/config"
	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/export"
	"github.com/khorolets/near-rewards/internal/nearrpc"
	"github.com/khorolets/near-rewards/internal/pool"
	"github.com/khorolets/near-rewards/internal/portfolio"
	"github.com/khorolets/near-rewards/internal/price"
	"github.com/khorolets/near-rewards/internal/rewards"
)

// app holds the services shared by the report and serve commands.
type app struct {
	cfg     config.Config
	node    *nearrpc.Client
	rewards *rewards.Service
	prices  *price.Service
}

func newApp(cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	anchor, err := chain.ParseAnchor(cfg.ReferenceAnchor)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	node := nearrpc.NewClient(cfg.RPCURL, cfg.RPCRetryMax, cfg.RPCRetryBaseDelay,
		nearrpc.WithTimeout(cfg.RPCTimeout),
		nearrpc.WithRateLimit(cfg.RPCRateLimit, cfg.RPCBurst),
	)

	svc := rewards.NewService(
		pool.NewResolver(node),
		portfolio.NewService(node),
		chain.NewLocator(node, anchor, cfg.ReferenceOffset, cfg.ReferenceProbes),
		cfg.Concurrency,
	)

	prices := price.NewService(cfg.PriceCacheTTL,
		price.NewBinanceSource(cfg.BinanceURL, cfg.PriceSymbol),
		price.NewCoinGeckoSource(cfg.CoinGeckoURL, cfg.CoinGeckoCoinID, 0, cfg.CoinGeckoRetry),
	)

	return &app{cfg: cfg, node: node, rewards: svc, prices: prices}, nil
}

// loadAccounts reads the accounts file of the configured home directory.
func (a *app) loadAccounts() ([]domain.TrackedAccount, error) {
	return accounts.Load(a.cfg.AccountsFile())
}

// quote returns the spot price, or nil when no source answered.
func (a *app) quote(ctx context.Context) *price.Quote {
	q, err := a.prices.Quote(ctx)
	if err != nil {
		slog.Warn("price unavailable, skipping USD totals", "error", err)
		return nil
	}
	return &q
}

// exporter builds the post-run writers enabled by the configuration.
func (a *app) exporter(ctx context.Context) (*export.Exporter, error) {
	var writers []export.Writer
	if a.cfg.XLSXPath != "" {
		writers = append(writers, export.NewXLSXWriter(a.cfg.XLSXPath))
	}
	if a.cfg.GoogleSheetsID != "" {
		if a.cfg.GoogleCredentialsJSON == "" {
			return nil, fmt.Errorf("google_credentials_json is required when google_sheets_id is set")
		}
		sw, err := export.NewSheetsWriter(ctx, a.cfg.GoogleSheetsID, a.cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		writers = append(writers, sw)
	}
	return export.NewExporter(writers...), nil
}
