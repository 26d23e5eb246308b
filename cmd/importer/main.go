// Command importer runs a one-shot import of daily air quality data,
// then optionally keeps importing on a fixed interval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/app"
	"github.com/yuzukaze/aeris/internal/config"
	"github.com/yuzukaze/aeris/internal/logging"
	"github.com/yuzukaze/aeris/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "importer:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.NewLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	summary, err := application.Import(ctx, cfg.ImportDays)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	log.Info("import summary",
		zap.String("run_id", summary.RunID.String()),
		zap.Int64("locations", summary.Locations),
		zap.Int64("sensors", summary.Sensors),
		zap.Int64("measurements", summary.Measurements),
		zap.Int("skips", len(summary.Skips)))

	if cfg.ImportInterval <= 0 {
		return nil
	}

	sched := scheduler.New(application.Import, cfg.ImportInterval, cfg.ImportDays, log)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	log.Info("periodic imports enabled", zap.Duration("interval", cfg.ImportInterval))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
