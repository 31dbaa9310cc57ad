package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/urfave/cli/v3"

	portlocker "github.com/alanyang/xactlock/internal/port/locker"
)

// RunAction runs the command after "--" while holding the lock. The lock is
// released once the command exits, whatever its status.
func RunAction(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return errors.New("run: missing command after --")
	}

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	code, err := runLocked(ctx, rt.Locker, cmd.Int32("discriminator"), args, stdio{os.Stdin, os.Stdout, os.Stderr})
	if err != nil && code > 0 {
		return cli.Exit(err.Error(), code)
	}
	return err
}

type stdio struct {
	in       io.Reader
	out, err io.Writer
}

// runLocked returns the child's exit code alongside the error when the child
// ran and failed.
func runLocked(ctx context.Context, l portlocker.AdvisoryLocker, d int32, args []string, std stdio) (int, error) {
	var exitCode int
	err := l.WithLock(ctx, d, func(ctx context.Context) error {
		slog.InfoContext(ctx, "lock held, starting command", "discriminator", d, "command", args[0])
		c := exec.CommandContext(ctx, args[0], args[1:]...)
		c.Stdin = std.in
		c.Stdout = std.out
		c.Stderr = std.err
		if err := c.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}
			return fmt.Errorf("command %s: %w", args[0], err)
		}
		return nil
	})
	return exitCode, err
}
