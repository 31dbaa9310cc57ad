package locker

import "context"

// AdvisoryLocker serialises critical sections using Postgres transaction-scoped
// advisory locks. fn runs while the lock identified by discriminator is held;
// the lock is released before WithLock returns.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, discriminator int32, fn func(ctx context.Context) error) error
}
