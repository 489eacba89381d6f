package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/app"
	"github.com/noah-isme/care-reminder-api/internal/cli"
	"github.com/noah-isme/care-reminder-api/pkg/config"
	"github.com/noah-isme/care-reminder-api/pkg/logger"
	"github.com/noah-isme/care-reminder-api/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "care-worker")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := func(ctx context.Context) (cli.Scheduler, func() error, error) {
		shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
		if err != nil {
			logr.Warn("tracing disabled", zap.Error(err))
		}
		container, err := app.New(ctx, cfg, logr)
		if err != nil {
			return nil, nil, err
		}
		closer := func() error {
			defer shutdownTracing(context.Background()) //nolint:errcheck
			return container.Close()
		}
		return container.Scheduler, closer, nil
	}

	if err := cli.NewRootCommand(factory).ExecuteContext(ctx); err != nil {
		logr.Error("worker command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
