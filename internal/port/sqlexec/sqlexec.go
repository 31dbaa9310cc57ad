package sqlexec

import "context"

// Executor issues statements on exactly one database session. Autocommit and
// the open transaction are properties of that session, so an Executor must
// not be shared between goroutines.
type Executor interface {
	AutoCommit(ctx context.Context) (bool, error)
	SetAutoCommit(ctx context.Context, on bool) error
	// QueryBools runs a query returning a single boolean column.
	QueryBools(ctx context.Context, sql string, args ...any) ([]bool, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
