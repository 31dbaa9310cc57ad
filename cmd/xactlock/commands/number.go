package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/alanyang/xactlock/internal/domain/lock"
)

// NumberAction prints the lock number for --discriminator. It needs no
// database, so the namespace tag alone is validated.
func NumberAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ns, err := lock.PackTag(cfg.NamespaceTag)
	if err != nil {
		return fmt.Errorf("LOCK_NAMESPACE: %w", err)
	}
	n := lock.NumberFor(ns, cmd.Int32("discriminator"))
	_, err = fmt.Fprintf(stdout(cmd), "%d\t0x%x\n", int64(n), int64(n))
	return err
}
