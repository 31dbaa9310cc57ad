package commands

import (
	"github.com/urfave/cli/v3"
)

// New builds the xactlock command tree.
func New() *cli.Command {
	return &cli.Command{
		Name:  "xactlock",
		Usage: "serialize work across processes with transaction-scoped Postgres advisory locks",
		Commands: []*cli.Command{
			{
				Name:   "number",
				Usage:  "print the advisory lock number for a discriminator",
				Flags:  []cli.Flag{envFlag(), discriminatorFlag()},
				Action: NumberAction,
			},
			{
				Name:      "run",
				Usage:     "run a command while holding the lock",
				ArgsUsage: "-- command [args...]",
				Flags:     append([]cli.Flag{envFlag(), discriminatorFlag()}, retryFlags()...),
				Action:    RunAction,
			},
			{
				Name:  "apply",
				Usage: "execute a SQL file inside the transaction that holds the lock",
				Flags: append([]cli.Flag{
					envFlag(),
					discriminatorFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "SQL file to execute",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "execute the file even if its contents were already applied",
					},
				}, retryFlags()...),
				Action: ApplyAction,
			},
			{
				Name:   "locks",
				Usage:  "list current holders of advisory locks in the namespace",
				Flags:  []cli.Flag{envFlag()},
				Action: LocksAction,
			},
		},
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "env file path",
		Value: ".env",
	}
}

func discriminatorFlag() cli.Flag {
	return &cli.Int32Flag{
		Name:     "discriminator",
		Aliases:  []string{"d"},
		Usage:    "discriminator added to the namespace to form the lock number",
		Required: true,
	}
}

func retryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "lock-retry-count",
			Usage: "retries after the first attempt, negative for unlimited (overrides LOCK_RETRY_COUNT)",
		},
		&cli.DurationFlag{
			Name:  "lock-retry-interval",
			Usage: "wait between attempts (overrides LOCK_RETRY_INTERVAL); alone it gives constant waits",
		},
		&cli.DurationFlag{
			Name:  "lock-retry-max-interval",
			Usage: "upper bound for exponential waits (overrides LOCK_RETRY_MAX_INTERVAL); above the interval waits grow",
		},
	}
}
