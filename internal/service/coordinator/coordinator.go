package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/xactlock/internal/domain/event"
	"github.com/alanyang/xactlock/internal/domain/lock"
	porteventbus "github.com/alanyang/xactlock/internal/port/eventbus"
	portretry "github.com/alanyang/xactlock/internal/port/retry"
	"github.com/alanyang/xactlock/internal/port/sqlexec"
)

const tryLockSQL = "SELECT pg_try_advisory_xact_lock($1)"

// DefaultPublishTimeout bounds each event publish. Publishing happens while the
// lock is held or contended, so a stuck publisher must not stall the protocol.
const DefaultPublishTimeout = 500 * time.Millisecond

const (
	interruptedMsg = "interrupted while attempting to acquire PostgreSQL advisory lock"
	exhaustedMsg   = "number of retries exceeded while attempting to acquire PostgreSQL advisory lock; " +
		"configure the number of retries with LOCK_RETRY_COUNT (--lock-retry-count)"
)

// Coordinator runs work while holding a transaction-scoped Postgres advisory
// lock. It is bound to one session and is safe to reuse sequentially, never
// concurrently.
type Coordinator struct {
	exec      sqlexec.Executor
	retry     portretry.Policy
	bus       porteventbus.Publisher
	logger    *slog.Logger
	namespace lock.Namespace
	number    lock.Number

	publishTimeout time.Duration
}

type Option func(*Coordinator)

func WithPublisher(p porteventbus.Publisher) Option {
	return func(c *Coordinator) { c.bus = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithNamespace(ns lock.Namespace) Option {
	return func(c *Coordinator) { c.namespace = ns }
}

func WithPublishTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.publishTimeout = d }
}

func New(exec sqlexec.Executor, retry portretry.Policy, discriminator int32, opts ...Option) *Coordinator {
	c := &Coordinator{
		exec:      exec,
		retry:     retry,
		logger:    slog.Default(),
		namespace: lock.DefaultNamespace,

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.number = lock.NumberFor(c.namespace, discriminator)
	return c
}

func (c *Coordinator) Number() lock.Number { return c.number }

// Run is Execute for work without a result.
func (c *Coordinator) Run(ctx context.Context, work func(ctx context.Context) error) error {
	_, err := Execute(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	})
	return err
}

// Execute runs work with the advisory lock held and returns its result. The
// lock is released before Execute returns on every path, including a panic in
// work. Errors are prioritised acquisition > work > release; see outcome.
func Execute[T any](ctx context.Context, c *Coordinator, work func(ctx context.Context) (T, error)) (res T, err error) {
	h, acqErr := c.acquire(ctx)

	var out outcome
	out.acquire = acqErr
	defer func() {
		out.release = h.release(ctx)
		if err = out.err(); err != nil {
			var zero T
			res = zero
		}
	}()

	if acqErr != nil {
		return res, nil
	}
	res, out.work = work(withHold(ctx, h))
	return res, nil
}

// acquire captures the session state and drives try-lock attempts through the
// retry policy. The returned hold is non-nil whenever release has work left to
// do, including after a failed acquisition.
func (c *Coordinator) acquire(ctx context.Context) (*hold, error) {
	state, err := c.capture(ctx)
	if err != nil {
		c.publishFailed(ctx, uuid.Nil, 0, err)
		return nil, err
	}

	h := &hold{
		c:          c,
		state:      state,
		invocation: uuid.New(),
		started:    time.Now(),
	}

	err = c.retry.Run(ctx, func(ctx context.Context) (bool, error) {
		h.attempts++
		ok, err := h.tryLock(ctx)
		if err == nil && !ok {
			e := event.New(event.TypeAttemptFailed, h.invocation, c.number)
			e.Attempt = h.attempts
			c.publish(ctx, e)
		}
		return ok, err
	}, interruptedMsg, exhaustedMsg)
	if err != nil {
		if lock.KindOf(err) == 0 {
			err = lock.NewError(lock.KindAcquire, "unable to acquire PostgreSQL advisory lock", err)
		}
		c.publishFailed(ctx, h.invocation, h.attempts, err)
		return h, err
	}

	h.acquired = time.Now()
	e := event.New(event.TypeAcquired, h.invocation, c.number)
	e.Attempt = h.attempts
	e.Elapsed = h.acquired.Sub(h.started)
	c.publish(ctx, e)
	c.logger.DebugContext(ctx, "advisory lock acquired",
		"lock_number", c.number, "invocation_id", h.invocation, "attempts", h.attempts)
	return h, nil
}

// capture reads autocommit once. An enclosing coordinator on the same session
// is an explicit owner of the open transaction, independent of what the
// session reports.
func (c *Coordinator) capture(ctx context.Context) (lock.ConnState, error) {
	auto, err := c.exec.AutoCommit(ctx)
	if err != nil {
		return lock.ConnState{}, lock.NewError(lock.KindAcquire, "unable to read autocommit", err)
	}
	state := lock.ConnState{PriorAutoCommit: auto, TxPreexisting: !auto}
	if outer, ok := holdFrom(ctx); ok && sameExecutor(outer.c.exec, c.exec) {
		state.TxPreexisting = true
	}
	return state, nil
}

// sameExecutor reports whether a and b are the same comparable executor.
// Executors that cannot be compared are never treated as the same; the
// autocommit reading alone then decides ownership.
func sameExecutor(a, b sqlexec.Executor) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// publish is best-effort and bounded by publishTimeout. It ignores the caller's
// cancellation so a cancelled invocation still reports how it ended.
func (c *Coordinator) publish(ctx context.Context, e event.Event) {
	if c.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
	defer cancel()
	if err := c.bus.Publish(ctx, e); err != nil {
		c.logger.WarnContext(ctx, "failed to publish lock event", "type", e.Type, "error", err)
	}
}

func (c *Coordinator) publishFailed(ctx context.Context, id uuid.UUID, attempts int, err error) {
	e := event.New(event.TypeFailed, id, c.number)
	e.Attempt = attempts
	e.ErrorKind = lock.KindOf(err).String()
	e.Error = err.Error()
	c.publish(ctx, e)
}

// hold is the per-invocation state between acquire and release.
type hold struct {
	c          *Coordinator
	state      lock.ConnState
	invocation uuid.UUID
	attempts   int
	started    time.Time
	acquired   time.Time
	// cleaned is set once tryLock has already rolled back and restored the
	// session after a SQL failure; release has nothing left to do.
	cleaned bool
}

func (h *hold) tryLock(ctx context.Context) (bool, error) {
	ok, err := h.queryLock(ctx)
	if err == nil {
		return ok, nil
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if !h.state.TxPreexisting {
		if rbErr := h.c.exec.Rollback(cleanupCtx); rbErr != nil {
			h.c.logger.ErrorContext(ctx, "unable to rollback transaction",
				"lock_number", h.c.number, "error", rbErr)
		}
	}
	h.restoreAutoCommit(cleanupCtx)
	h.cleaned = true
	return false, err
}

func (h *hold) queryLock(ctx context.Context) (bool, error) {
	auto, err := h.c.exec.AutoCommit(ctx)
	if err != nil {
		return false, fmt.Errorf("read autocommit: %w", err)
	}
	if auto {
		if err := h.c.exec.SetAutoCommit(ctx, false); err != nil {
			return false, fmt.Errorf("disable autocommit: %w", err)
		}
	}
	rows, err := h.c.exec.QueryBools(ctx, tryLockSQL, int64(h.c.number))
	if err != nil {
		return false, fmt.Errorf("try advisory lock %d: %w", h.c.number, err)
	}
	return len(rows) == 1 && rows[0], nil
}

// release commits the transaction the coordinator opened, which is what frees
// a transaction-scoped advisory lock. A transaction owned by the caller is left
// untouched. It runs with cancellation stripped so a cancelled caller still
// gets its session back in the state it handed over.
func (h *hold) release(ctx context.Context) error {
	// No attempt means autocommit was never switched off and no
	// transaction was opened.
	if h == nil || h.cleaned || h.attempts == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	if h.state.TxPreexisting {
		return nil
	}
	defer h.restoreAutoCommit(ctx)

	if err := h.c.exec.Commit(ctx); err != nil {
		return lock.NewError(lock.KindRelease, "unable to commit transaction", err)
	}
	if !h.acquired.IsZero() {
		e := event.New(event.TypeReleased, h.invocation, h.c.number)
		e.Attempt = h.attempts
		e.Elapsed = time.Since(h.acquired)
		h.c.publish(ctx, e)
	}
	return nil
}

// restoreAutoCommit is best-effort: by the time it runs the outcome of the
// invocation is already decided, so a failure is logged and published only.
func (h *hold) restoreAutoCommit(ctx context.Context) {
	err := h.c.exec.SetAutoCommit(ctx, h.state.PriorAutoCommit)
	if err == nil {
		return
	}
	h.c.logger.ErrorContext(ctx, "unable to restore autocommit to original value for connection",
		"lock_number", h.c.number, "autocommit", h.state.PriorAutoCommit, "error", err)
	e := event.New(event.TypeAutoCommitRestoreFailed, h.invocation, h.c.number)
	e.Error = err.Error()
	h.c.publish(ctx, e)
}

// outcome is the prioritised union of everything that can go wrong in one
// invocation.
type outcome struct {
	acquire error
	work    error
	release error
}

// err picks the error Execute returns. An acquisition failure means work never
// ran and wins outright. A work error is returned unchanged unless the release
// also failed, in which case it stays primary and the release error rides
// along as suppressed.
func (o outcome) err() error {
	switch {
	case o.acquire != nil:
		if o.release != nil {
			return &lock.SuppressedError{Primary: o.acquire, Suppressed: []error{o.release}}
		}
		return o.acquire
	case o.work != nil:
		if o.release != nil {
			return &lock.SuppressedError{Primary: o.work, Suppressed: []error{o.release}}
		}
		return o.work
	default:
		return o.release
	}
}
