// Command api serves the pollution analytics REST API.
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
	"github.com/yuzukaze/aeris/internal/httpapi"
	"github.com/yuzukaze/aeris/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "api:", err)
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

	if ok, err := application.SchemaInitialized(ctx); err == nil && !ok {
		log.Warn("schema not initialized; POST /v1/schema/init or run the importer first")
	}

	server := httpapi.New(cfg, application, log)
	log.Info("api listening", zap.String("addr", cfg.ListenAddr()))
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
