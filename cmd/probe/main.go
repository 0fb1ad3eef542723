package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tito-trading/account-probe/internal/app"
	"github.com/tito-trading/account-probe/internal/config"
	"github.com/tito-trading/account-probe/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Stdout)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on stderr and maps it to the process status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "probe failed: %v\n", err)
	return 1
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	if cfg.EnvFileErr != nil {
		logger.WarnObj("env file ignored, using process environment", "env_file_error", cfg.EnvFileErr.Error())
	}
	logger.InfoObj("probe starting", "config", cfg.Redacted())

	runner, err := app.NewRunner(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize probe", "error", err.Error())
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.ErrorObj("probe shutdown failed", "error", err.Error())
		}
	}()

	if err := runner.Run(ctx, stdout); err != nil {
		return fmt.Errorf("probe run: %w", err)
	}

	return nil
}
