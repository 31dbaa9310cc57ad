package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/xactlock/internal/domain/lock"
	portlockstatus "github.com/alanyang/xactlock/internal/port/lockstatus"
)

var _ portlockstatus.Inspector = (*Inspector)(nil)

// Inspector reads advisory locks of the current database from pg_locks.
type Inspector struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Inspector {
	return &Inspector{pool: pool}
}

// A bigint advisory key is split across classid (high 32 bits) and objid (low
// 32 bits) with objsubid = 1.
const listAdvisorySQL = `
	SELECT l.pid,
	       (l.classid::bigint << 32) | l.objid::bigint AS lock_number,
	       l.granted,
	       l.mode,
	       COALESCE(a.application_name, ''),
	       COALESCE(host(a.client_addr), ''),
	       COALESCE(a.state, ''),
	       a.xact_start
	  FROM pg_locks l
	  LEFT JOIN pg_stat_activity a ON a.pid = l.pid
	 WHERE l.locktype = 'advisory'
	   AND l.objsubid = 1
	   AND l.database = (SELECT oid FROM pg_database WHERE datname = current_database())
	 ORDER BY lock_number, l.granted DESC, l.pid`

func (i *Inspector) ListAdvisory(ctx context.Context) ([]lock.Holder, error) {
	rows, err := i.pool.Query(ctx, listAdvisorySQL)
	if err != nil {
		return nil, fmt.Errorf("list advisory locks: %w", err)
	}
	defer rows.Close()

	var holders []lock.Holder
	for rows.Next() {
		var (
			h         lock.Holder
			number    int64
			xactStart *time.Time
		)
		if err := rows.Scan(
			&h.PID, &number, &h.Granted, &h.Mode,
			&h.Application, &h.ClientAddr, &h.State, &xactStart,
		); err != nil {
			return nil, fmt.Errorf("scan advisory lock: %w", err)
		}
		h.Number = lock.Number(number)
		h.XactStart = xactStart
		holders = append(holders, h)
	}
	return holders, rows.Err()
}
