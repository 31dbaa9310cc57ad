package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/alanyang/xactlock/internal/adapter/postgres/ledger"
	"github.com/alanyang/xactlock/internal/adapter/postgres/session"
)

// ApplyAction executes --file in the transaction that holds the lock, so the
// commit that frees the lock also commits the file and its ledger entry. A file
// whose contents were already applied is skipped unless --force is set.
func ApplyAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	script, err := readScript(path)
	if err != nil {
		return err
	}
	d := cmd.Int32("discriminator")

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	force := cmd.Bool("force")
	var applied bool
	err = rt.Locker.WithSession(ctx, d, func(ctx context.Context, s *session.Session) error {
		ok, err := applyScript(ctx, s, path, script, d, force)
		applied = ok
		return err
	})
	if err != nil {
		return err
	}

	if !applied {
		slog.Info("sql file already applied", "file", path, "discriminator", d)
		_, err = fmt.Fprintf(stdout(cmd), "skipped %s (already applied)\n", path)
		return err
	}
	slog.Info("sql file applied", "file", path, "discriminator", d)
	_, err = fmt.Fprintf(stdout(cmd), "applied %s\n", path)
	return err
}

// applyScript must run with the advisory lock held. It reports whether the
// script was executed.
func applyScript(ctx context.Context, q ledger.Querier, name, script string, d int32, force bool) (bool, error) {
	repo := ledger.New(q)
	if err := repo.Ensure(ctx); err != nil {
		return false, err
	}
	sum := ledger.Checksum(script)
	if !force {
		done, err := repo.Applied(ctx, sum)
		if err != nil {
			return false, err
		}
		if done {
			return false, nil
		}
	}
	if err := q.Exec(ctx, script); err != nil {
		return false, fmt.Errorf("executing %s: %w", name, err)
	}
	if err := repo.Record(ctx, sum, name, d); err != nil {
		return false, err
	}
	return true, nil
}

func readScript(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading sql file: %w", err)
	}
	script := string(b)
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("sql file %s is empty", path)
	}
	return script, nil
}
