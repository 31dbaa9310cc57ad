package locker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/xactlock/internal/adapter/postgres/session"
	"github.com/alanyang/xactlock/internal/domain/lock"
	porteventbus "github.com/alanyang/xactlock/internal/port/eventbus"
	portlocker "github.com/alanyang/xactlock/internal/port/locker"
	portretry "github.com/alanyang/xactlock/internal/port/retry"
	"github.com/alanyang/xactlock/internal/service/coordinator"
)

// Locker implements port/locker.AdvisoryLocker with transaction-scoped advisory
// locks. Every call acquires its own pool connection: the lock, the transaction
// that scopes it and the commit that frees it must all happen on one session.
type Locker struct {
	pool      *pgxpool.Pool
	retry     portretry.Policy
	bus       porteventbus.Publisher
	namespace lock.Namespace
	logger    *slog.Logger
}

var _ portlocker.AdvisoryLocker = (*Locker)(nil)

type Option func(*Locker)

func WithPublisher(p porteventbus.Publisher) Option {
	return func(l *Locker) { l.bus = p }
}

func WithNamespace(ns lock.Namespace) Option {
	return func(l *Locker) { l.namespace = ns }
}

func WithLogger(lg *slog.Logger) Option {
	return func(l *Locker) { l.logger = lg }
}

func New(pool *pgxpool.Pool, retry portretry.Policy, opts ...Option) *Locker {
	l := &Locker{
		pool:      pool,
		retry:     retry,
		namespace: lock.DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) WithLock(ctx context.Context, discriminator int32, fn func(ctx context.Context) error) error {
	return l.WithSession(ctx, discriminator, func(ctx context.Context, _ *session.Session) error {
		return fn(ctx)
	})
}

// WithSession is WithLock that also hands fn the locked session, so fn can run
// statements inside the transaction whose commit releases the lock.
func (l *Locker) WithSession(ctx context.Context, discriminator int32, fn func(ctx context.Context, s *session.Session) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for advisory lock: %w", err)
	}
	defer conn.Release()

	s := session.New(conn)
	c := coordinator.New(s, l.retry, discriminator,
		coordinator.WithNamespace(l.namespace),
		coordinator.WithPublisher(l.bus),
		coordinator.WithLogger(l.logger),
	)
	err = c.Run(ctx, func(ctx context.Context) error {
		return fn(ctx, s)
	})
	if conn.Conn().PgConn().TxStatus() != 'I' {
		// Never hand a connection with an open transaction back to the pool.
		conn.Conn().Close(context.WithoutCancel(ctx)) //nolint:errcheck
	}
	return err
}
