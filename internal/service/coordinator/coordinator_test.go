package coordinator_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/xactlock/internal/domain/event"
	"github.com/alanyang/xactlock/internal/domain/lock"
	"github.com/alanyang/xactlock/internal/mocks"
	portretry "github.com/alanyang/xactlock/internal/port/retry"
	"github.com/alanyang/xactlock/internal/service/coordinator"
)

// ── helpers ───────────────────────────────────────────────────────────────────

const lockSQL = "SELECT pg_try_advisory_xact_lock($1)"

var lockNum = int64(lock.NumberFor(lock.DefaultNamespace, 7))

type deps struct {
	exec   *mocks.MockExecutor
	policy *mocks.MockPolicy
	bus    *mocks.MockPublisher
	logs   *bytes.Buffer
}

func newCoordinator(t *testing.T) (*coordinator.Coordinator, deps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := deps{
		exec:   mocks.NewMockExecutor(ctrl),
		policy: mocks.NewMockPolicy(ctrl),
		bus:    mocks.NewMockPublisher(ctrl),
		logs:   &bytes.Buffer{},
	}
	c := coordinator.New(d.exec, d.policy, 7,
		coordinator.WithPublisher(d.bus),
		coordinator.WithLogger(slog.New(slog.NewTextHandler(d.logs, nil))),
	)
	return c, d
}

// untilAcquired drives attempt the way a real policy does, without waiting.
func untilAcquired(d deps, maxAttempts int) {
	d.policy.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, attempt portretry.Attempt, _, exhausted string) error {
			for i := 0; i < maxAttempts; i++ {
				ok, err := attempt(ctx)
				if err != nil {
					return err
				}
				if ok {
					return nil
				}
			}
			return lock.NewError(lock.KindRetriesExceeded, exhausted, nil)
		})
}

func ignoreEvents(d deps) {
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

// expectTryLock sets up capture plus one attempt on a session whose
// autocommit is auto.
func expectTryLock(d deps, auto bool, granted bool) {
	d.exec.EXPECT().AutoCommit(gomock.Any()).Return(auto, nil).Times(2)
	if auto {
		d.exec.EXPECT().SetAutoCommit(gomock.Any(), false).Return(nil)
	}
	d.exec.EXPECT().QueryBools(gomock.Any(), lockSQL, lockNum).Return([]bool{granted}, nil)
}

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x interface{}) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}
func (m eventTypeMatcher) String() string { return "event.Type=" + string(m.want) }

// ── lock number ───────────────────────────────────────────────────────────────

func TestNumber(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	policy := mocks.NewMockPolicy(ctrl)

	assert.Equal(t, lock.Number(77431708279161+7), coordinator.New(exec, policy, 7).Number())

	ns := lock.MustPackTag("Migr8")
	assert.Equal(t, lock.NumberFor(ns, -3), coordinator.New(exec, policy, -3, coordinator.WithNamespace(ns)).Number())
}

// ── happy paths ───────────────────────────────────────────────────────────────

func TestExecute_CommitsAfterWorkAndRestoresAutoCommit(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)

	workDone := false
	gomock.InOrder(
		d.exec.EXPECT().Commit(gomock.Any()).DoAndReturn(func(context.Context) error {
			assert.True(t, workDone, "commit must follow work")
			return nil
		}),
		d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil),
	)

	res, err := coordinator.Execute(context.Background(), c, func(ctx context.Context) (string, error) {
		held, ok := coordinator.HeldFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, c.Number(), held.Number)
		assert.True(t, held.OwnsTransaction)
		workDone = true
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", res)
}

func TestExecute_AmbientTransactionLeftToCaller(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, false, true)
	// No Commit, Rollback or SetAutoCommit: the strict mock fails on any.

	res, err := coordinator.Execute(context.Background(), c, func(ctx context.Context) (int, error) {
		held, ok := coordinator.HeldFromContext(ctx)
		require.True(t, ok)
		assert.False(t, held.OwnsTransaction)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestRun_AcquiresAfterContention(t *testing.T) {
	c, d := newCoordinator(t)
	untilAcquired(d, 5)

	gomock.InOrder(
		d.exec.EXPECT().AutoCommit(gomock.Any()).Return(true, nil).Times(2),
		d.exec.EXPECT().AutoCommit(gomock.Any()).Return(false, nil).Times(2),
	)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), false).Return(nil)
	gomock.InOrder(
		d.exec.EXPECT().QueryBools(gomock.Any(), lockSQL, lockNum).Return([]bool{false}, nil).Times(2),
		d.exec.EXPECT().QueryBools(gomock.Any(), lockSQL, lockNum).Return([]bool{true}, nil),
	)
	d.exec.EXPECT().Commit(gomock.Any()).Return(nil)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)

	gomock.InOrder(
		d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAttemptFailed)).Return(nil).Times(2),
		d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAcquired)).
			DoAndReturn(func(_ context.Context, e event.Event) error {
				assert.Equal(t, 3, e.Attempt)
				assert.Equal(t, c.Number(), e.LockNumber)
				return errors.New("bus down")
			}),
		d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeReleased)).Return(nil),
	)

	ran := false
	err := c.Run(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Contains(t, d.logs.String(), "failed to publish lock event")
}

func TestRun_MultipleRowsNotTreatedAsAcquired(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	d.exec.EXPECT().AutoCommit(gomock.Any()).Return(true, nil).Times(2)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), false).Return(nil)
	d.exec.EXPECT().QueryBools(gomock.Any(), lockSQL, lockNum).Return([]bool{true, true}, nil)
	d.exec.EXPECT().Commit(gomock.Any()).Return(nil)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)

	err := c.Run(context.Background(), func(context.Context) error {
		t.Fatal("work must not run")
		return nil
	})
	assert.ErrorIs(t, err, lock.ErrRetriesExceeded)
}

// ── error priority ────────────────────────────────────────────────────────────

func TestExecute_WorkErrorReturnedUnchanged(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)
	d.exec.EXPECT().Commit(gomock.Any()).Return(nil)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)

	workErr := errors.New("migration 7 failed")
	res, err := coordinator.Execute(context.Background(), c, func(context.Context) (string, error) {
		return "partial", workErr
	})
	assert.Same(t, workErr, err)
	assert.Equal(t, lock.Kind(0), lock.KindOf(err))
	assert.Empty(t, res)
}

func TestExecute_WorkErrorWithCommitFailure(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)
	commitErr := errors.New("connection reset")
	d.exec.EXPECT().Commit(gomock.Any()).Return(commitErr)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)

	workErr := errors.New("migration 7 failed")
	err := c.Run(context.Background(), func(context.Context) error { return workErr })

	var se *lock.SuppressedError
	require.ErrorAs(t, err, &se)
	assert.Same(t, workErr, se.Primary)
	assert.ErrorIs(t, err, workErr)
	assert.ErrorIs(t, err, lock.ErrRelease)
	assert.ErrorIs(t, err, commitErr)
}

func TestExecute_CommitFailureAfterSuccessfulWork(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)
	commitErr := errors.New("serialization failure")
	d.exec.EXPECT().Commit(gomock.Any()).Return(commitErr)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)

	res, err := coordinator.Execute(context.Background(), c, func(context.Context) (int, error) {
		return 9, nil
	})
	assert.ErrorIs(t, err, lock.ErrRelease)
	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, lock.KindRelease, lock.KindOf(err))
	assert.Contains(t, err.Error(), "unable to commit transaction")
	assert.Zero(t, res)
}

func TestExecute_SQLErrorDuringAttempt(t *testing.T) {
	tests := []struct {
		name        string
		rollbackErr error
	}{
		{name: "rollback succeeds"},
		{name: "rollback fails and is only logged", rollbackErr: errors.New("rollback failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d := newCoordinator(t)
			untilAcquired(d, 3)
			sqlErr := errors.New("permission denied for function pg_try_advisory_xact_lock")

			d.exec.EXPECT().AutoCommit(gomock.Any()).Return(true, nil).Times(2)
			d.exec.EXPECT().SetAutoCommit(gomock.Any(), false).Return(nil)
			d.exec.EXPECT().QueryBools(gomock.Any(), lockSQL, lockNum).Return(nil, sqlErr)
			gomock.InOrder(
				d.exec.EXPECT().Rollback(gomock.Any()).Return(tt.rollbackErr),
				d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil),
			)
			d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeFailed)).
				DoAndReturn(func(_ context.Context, e event.Event) error {
					assert.Equal(t, "acquire", e.ErrorKind)
					return nil
				})

			err := c.Run(context.Background(), func(context.Context) error {
				t.Fatal("work must not run")
				return nil
			})
			assert.ErrorIs(t, err, lock.ErrAcquire)
			assert.ErrorIs(t, err, sqlErr)
			assert.Contains(t, err.Error(), "unable to acquire PostgreSQL advisory lock")
			if tt.rollbackErr != nil {
				assert.NotErrorIs(t, err, tt.rollbackErr)
				assert.Contains(t, d.logs.String(), "unable to rollback transaction")
			}
		})
	}
}

func TestExecute_SQLErrorInAmbientTransactionSkipsRollback(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	sqlErr := errors.New("current transaction is aborted")
	d.exec.EXPECT().AutoCommit(gomock.Any()).Return(false, nil).Times(2)
	d.exec.EXPECT().QueryBools(gomock.Any(), lockSQL, lockNum).Return(nil, sqlErr)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), false).Return(nil)

	err := c.Run(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, sqlErr)
	assert.Equal(t, lock.KindAcquire, lock.KindOf(err))
}

func TestExecute_RetriesExhausted(t *testing.T) {
	c, d := newCoordinator(t)
	untilAcquired(d, 1)
	expectTryLock(d, true, false)
	d.exec.EXPECT().Commit(gomock.Any()).Return(nil)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAttemptFailed)).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeFailed)).
		DoAndReturn(func(_ context.Context, e event.Event) error {
			assert.Equal(t, "retries_exceeded", e.ErrorKind)
			assert.Equal(t, 1, e.Attempt)
			return nil
		})

	err := c.Run(context.Background(), func(context.Context) error {
		t.Fatal("work must not run")
		return nil
	})
	assert.ErrorIs(t, err, lock.ErrRetriesExceeded)
	assert.Contains(t, err.Error(), "LOCK_RETRY_COUNT")
}

func TestExecute_InterruptedBeforeFirstAttempt(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	d.exec.EXPECT().AutoCommit(gomock.Any()).Return(true, nil)
	d.policy.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ portretry.Attempt, interrupted, _ string) error {
			return lock.NewError(lock.KindInterrupted, interrupted, ctx.Err())
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Run(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, lock.ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_AutoCommitReadFailure(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	readErr := errors.New("connection closed")
	d.exec.EXPECT().AutoCommit(gomock.Any()).Return(false, readErr)

	err := c.Run(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, lock.ErrAcquire)
	assert.ErrorIs(t, err, readErr)
}

// ── release guard ─────────────────────────────────────────────────────────────

func TestExecute_RestoreFailureIsLoggedNotReturned(t *testing.T) {
	c, d := newCoordinator(t)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)
	d.exec.EXPECT().Commit(gomock.Any()).Return(nil)
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(errors.New("driver closed"))
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAcquired)).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeReleased)).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAutoCommitRestoreFailed)).Return(nil)

	err := c.Run(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Contains(t, d.logs.String(), "unable to restore autocommit to original value for connection")
	assert.Contains(t, d.logs.String(), "level=ERROR")
}

func TestExecute_PanicInWorkStillReleases(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)
	gomock.InOrder(
		d.exec.EXPECT().Commit(gomock.Any()).Return(nil),
		d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil),
	)

	assert.PanicsWithValue(t, "boom", func() {
		_ = c.Run(context.Background(), func(context.Context) error { panic("boom") })
	})
}

func TestExecute_CancelledWorkStillCommits(t *testing.T) {
	c, d := newCoordinator(t)
	ignoreEvents(d)
	untilAcquired(d, 1)
	expectTryLock(d, true, true)
	d.exec.EXPECT().Commit(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		return ctx.Err()
	})
	d.exec.EXPECT().SetAutoCommit(gomock.Any(), true).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Run(ctx, func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
}

func TestNew_DefaultsLoggerWhenNoneGiven(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	exec.EXPECT().AutoCommit(gomock.Any()).Return(false, errors.New("gone"))

	c := coordinator.New(exec, mocks.NewMockPolicy(ctrl), 1)
	assert.Error(t, c.Run(context.Background(), func(context.Context) error { return nil }))
}
