// Command harvester searches the configured news site, collects the articles of the last
// months and writes output/news_data.xlsx. It takes no flags; see internal/config for the
// environment and file settings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/khobor-report/internal/config"
	"github.com/Adda-Baaj/khobor-report/internal/harvester"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
)

// runner executes one harvest.
type runner interface {
	Run(ctx context.Context) (harvester.Result, error)
}

type (
	loadFunc      func() (config.Config, error)
	bootstrapFunc func(ctx context.Context, cfg config.Config, log logger.Logger) (runner, func(), error)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, config.Load, bootstrap)
	stop()
	os.Exit(code)
}

func bootstrap(ctx context.Context, cfg config.Config, log logger.Logger) (runner, func(), error) {
	h, cleanup, err := harvester.Bootstrap(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return h, cleanup, nil
}

// run returns the process exit code: 0 on success, 1 on any fatal failure.
func run(ctx context.Context, load loadFunc, boot bootstrapFunc) int {
	cfg, err := load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	h, cleanup, err := boot(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("bootstrap failed", "bootstrap_error", map[string]any{"error": err.Error()})
		return 1
	}
	defer cleanup()

	if _, err := h.Run(ctx); err != nil {
		return 1
	}
	return 0
}
