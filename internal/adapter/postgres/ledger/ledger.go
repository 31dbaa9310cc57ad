package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const tableDDL = `
	CREATE TABLE IF NOT EXISTS xactlock_applied_scripts (
		checksum      TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		discriminator INTEGER NOT NULL,
		applied_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Querier is the slice of a session the ledger needs. Every call is expected
// to run in the transaction that holds the advisory lock, which serialises
// concurrent appliers of the same discriminator.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryBools(ctx context.Context, sql string, args ...any) ([]bool, error)
}

// Repository records which SQL scripts have been applied, keyed by the
// checksum of their contents.
type Repository struct {
	q Querier
}

func New(q Querier) *Repository {
	return &Repository{q: q}
}

func Checksum(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

func (r *Repository) Ensure(ctx context.Context) error {
	if err := r.q.Exec(ctx, tableDDL); err != nil {
		return fmt.Errorf("creating applied scripts table: %w", err)
	}
	return nil
}

// Applied reports whether a script with this checksum was recorded.
func (r *Repository) Applied(ctx context.Context, checksum string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM xactlock_applied_scripts WHERE checksum = $1)`

	rows, err := r.q.QueryBools(ctx, query, checksum)
	if err != nil {
		return false, fmt.Errorf("checking applied script: %w", err)
	}
	return len(rows) == 1 && rows[0], nil
}

// Record stores the script. Re-recording the same checksum refreshes its name
// and timestamp.
func (r *Repository) Record(ctx context.Context, checksum, name string, discriminator int32) error {
	query := `
		INSERT INTO xactlock_applied_scripts (checksum, name, discriminator, applied_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (checksum) DO UPDATE SET name = EXCLUDED.name, applied_at = EXCLUDED.applied_at`

	if err := r.q.Exec(ctx, query, checksum, name, discriminator); err != nil {
		return fmt.Errorf("recording applied script: %w", err)
	}
	return nil
}
