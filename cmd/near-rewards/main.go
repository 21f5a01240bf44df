package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/khorolets/near-rewards/internal/api"
	"github.com/khorolets/near-rewards/internal/config"
	"github.com/khorolets/near-rewards/internal/logging"
	"github.com/khorolets/near-rewards/internal/render"
	"github.com/khorolets/near-rewards/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	xlsxFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "xlsx",
			Usage: "also write the report to `FILE`",
		}
	}

	return &cli.App{
		Name:  "near-rewards",
		Usage: "reconcile staking rewards of NEAR lockup accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "home-dir",
				Usage:   "directory holding accounts.json",
				EnvVars: []string{"NEAR_REWARDS_HOME"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration `FILE`",
				EnvVars: []string{"NEAR_REWARDS_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug logging",
			},
			xlsxFlag(),
		},
		Action: runReport,
		Commands: []*cli.Command{
			{
				Name:   "report",
				Usage:  "run one reconciliation and print the table (default)",
				Flags:  []cli.Flag{xlsxFlag()},
				Action: runReport,
			},
			{
				Name:  "serve",
				Usage: "reconcile periodically and serve the latest report over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Usage: "HTTP port"},
					&cli.DurationFlag{Name: "interval", Usage: "time between runs"},
				},
				Action: runServe,
			},
		},
	}
}

// loadConfig layers CLI flags over the file and environment configuration and
// installs the logger.
func loadConfig(c *cli.Context) (config.Config, func(), error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	if v := c.String("home-dir"); v != "" {
		cfg.HomeDir = v
	}
	if v := c.String("xlsx"); v != "" {
		cfg.XLSXPath = v
	}
	if v := c.String("port"); v != "" {
		cfg.HTTPPort = v
	}
	if v := c.Duration("interval"); v > 0 {
		cfg.ReportWorkerInterval = v
	}

	flush, err := logging.Setup(cfg.LogLevel, c.Bool("verbose"))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, flush, nil
}

func runReport(c *cli.Context) error {
	cfg, flush, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer flush()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	list, err := a.loadAccounts()
	if err != nil {
		return err
	}

	ctx := c.Context
	report, err := a.rewards.Run(ctx, list)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	fmt.Fprint(c.App.Writer, render.Report(report, a.quote(ctx)))

	exporter, err := a.exporter(ctx)
	if err != nil {
		return err
	}
	if exporter.Len() > 0 {
		if err := exporter.Export(ctx, report); err != nil {
			return fmt.Errorf("exporting report: %w", err)
		}
	}
	return nil
}

func runServe(c *cli.Context) error {
	cfg, flush, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer flush()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	exporter, err := a.exporter(ctx)
	if err != nil {
		return err
	}
	var hook worker.AfterRunHook
	if exporter.Len() > 0 {
		hook = exporter
	}

	quoteWorker := worker.NewQuoteWorker(a.prices, cfg.PriceCacheTTL)
	go quoteWorker.Run(ctx)

	reportWorker := worker.NewReportWorker(a.rewards, a.loadAccounts, cfg.ReportWorkerInterval, hook)
	go reportWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, refresh endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, api.NewHandler(reportWorker, quoteWorker, a.node), cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	return nil
}
