package retry

import "context"

// Attempt reports whether the guarded action succeeded. A non-nil error
// aborts the retry loop immediately.
type Attempt func(ctx context.Context) (bool, error)

// Policy invokes attempt until it returns true. It fails with a
// lock.KindInterrupted error carrying interruptedMsg when ctx is cancelled
// while waiting, and with a lock.KindRetriesExceeded error carrying
// exhaustedMsg once its attempt budget is spent.
type Policy interface {
	Run(ctx context.Context, attempt Attempt, interruptedMsg, exhaustedMsg string) error
}
