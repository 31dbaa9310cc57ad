package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/alanyang/xactlock/internal/domain/lock"
)

// LocksAction prints every advisory lock in the namespace with its backend.
func LocksAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	holders, err := rt.StatusSvc.List(ctx)
	if err != nil {
		return err
	}
	if len(holders) == 0 {
		_, err := fmt.Fprintln(stdout(cmd), "no advisory locks held")
		return err
	}
	return renderHolders(stdout(cmd), holders, time.Now())
}

func renderHolders(w io.Writer, holders []lock.Holder, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header("Discriminator", "Lock Number", "PID", "Granted", "Application", "Client", "State", "Held For")

	for _, h := range holders {
		d := "-"
		if h.Discriminator != nil {
			d = strconv.Itoa(int(*h.Discriminator))
		}
		heldFor := "-"
		if h.XactStart != nil {
			heldFor = now.Sub(*h.XactStart).Truncate(time.Millisecond).String()
		}
		if err := table.Append(
			d,
			strconv.FormatInt(int64(h.Number), 10),
			strconv.Itoa(int(h.PID)),
			strconv.FormatBool(h.Granted),
			h.Application,
			h.ClientAddr,
			h.State,
			heldFor,
		); err != nil {
			return err
		}
	}
	return table.Render()
}
