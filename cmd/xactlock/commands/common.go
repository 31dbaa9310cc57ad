package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/alanyang/xactlock/internal/config"
	"github.com/alanyang/xactlock/internal/logger"
	"github.com/alanyang/xactlock/internal/wire"
)

// loadConfig reads the env file named by --env and applies command-line
// overrides. Logs go to stderr so stdout stays parseable.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	applyRetryFlags(cmd, cfg)
	logger.NewWithWriter(os.Stderr, cfg.Log)
	return cfg, nil
}

func applyRetryFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("lock-retry-count") {
		cfg.Retry.Count = cmd.Int("lock-retry-count")
	}
	// An interval given alone means constant waits.
	if cmd.IsSet("lock-retry-interval") {
		cfg.Retry.Interval = cmd.Duration("lock-retry-interval")
		cfg.Retry.MaxInterval = cfg.Retry.Interval
	}
	if cmd.IsSet("lock-retry-max-interval") {
		cfg.Retry.MaxInterval = cmd.Duration("lock-retry-max-interval")
	}
}

func newRuntime(ctx context.Context, cmd *cli.Command) (*wire.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return wire.BuildRuntime(ctx, cfg)
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
