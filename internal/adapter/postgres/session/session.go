package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alanyang/xactlock/internal/port/sqlexec"
)

// ErrAutoCommit is returned by Commit and Rollback while autocommit is on.
var ErrAutoCommit = errors.New("session: cannot end transaction while autocommit is enabled")

// Conn is the subset of *pgx.Conn and *pgxpool.Conn a Session drives.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Session gives one pgx connection an autocommit switch. With autocommit off
// the first statement opens a transaction that stays open until Commit,
// Rollback, or switching autocommit back on (which commits it).
type Session struct {
	conn       Conn
	tx         pgx.Tx
	autoCommit bool
}

var _ sqlexec.Executor = (*Session)(nil)

func New(conn Conn) *Session {
	return &Session{conn: conn, autoCommit: true}
}

func (s *Session) AutoCommit(_ context.Context) (bool, error) {
	return s.autoCommit, nil
}

func (s *Session) SetAutoCommit(ctx context.Context, on bool) error {
	if on == s.autoCommit {
		return nil
	}
	if on && s.tx != nil {
		tx := s.tx
		s.tx = nil
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit on enabling autocommit: %w", err)
		}
	}
	s.autoCommit = on
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (s *Session) InTransaction() bool { return s.tx != nil }

func (s *Session) querier(ctx context.Context) (querier, error) {
	if s.autoCommit {
		return s.conn, nil
	}
	if s.tx == nil {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

func (s *Session) QueryBools(ctx context.Context, sql string, args ...any) ([]bool, error) {
	q, err := s.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[bool])
}

// Exec runs a statement on the session, inside the open transaction when
// autocommit is off.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) error {
	q, err := s.querier(ctx)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return err
	}
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.autoCommit {
		return ErrAutoCommit
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit(ctx)
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.autoCommit {
		return ErrAutoCommit
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback(ctx)
}
