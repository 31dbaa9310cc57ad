package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alanyang/xactlock/internal/port/sqlexec"
)

// ErrUnsupported is returned for any statement other than the transaction
// advisory try-lock.
var ErrUnsupported = errors.New("memory: unsupported statement")

const tryLockSQL = "SELECT pg_try_advisory_xact_lock($1)"

// Server is an in-process stand-in for the server-side advisory lock table.
// Sessions created from one Server contend for the same lock numbers with
// pg_try_advisory_xact_lock semantics: a lock taken inside a transaction is
// held until that transaction ends.
type Server struct {
	mu      sync.Mutex
	holders map[int64]*Session
}

func NewServer() *Server {
	return &Server{holders: make(map[int64]*Session)}
}

// Holder returns the session holding n, or nil.
func (s *Server) Holder(n int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holders[n]
}

func (s *Server) tryLock(sess *Session, n int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.holders[n]; ok && h != sess {
		return false
	}
	s.holders[n] = sess
	return true
}

func (s *Server) releaseAll(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, h := range s.holders {
		if h == sess {
			delete(s.holders, n)
		}
	}
}

// Faults injects failures into a Session. A nil field means no failure.
type Faults struct {
	AutoCommit    error
	SetAutoCommit error
	Query         error
	Commit        error
	Rollback      error
}

// Session is one connection to a Server. Like a real connection it must not
// be used from more than one goroutine at a time; the mutex only protects the
// counters read by tests.
type Session struct {
	srv *Server

	mu         sync.Mutex
	autoCommit bool
	inTx       bool
	faults     Faults

	Commits   int
	Rollbacks int
	Queries   int
}

var _ sqlexec.Executor = (*Session)(nil)

func (s *Server) Session() *Session {
	return &Session{srv: s, autoCommit: true}
}

func (c *Session) SetFaults(f Faults) {
	c.mu.Lock()
	c.faults = f
	c.mu.Unlock()
}

func (c *Session) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTx
}

func (c *Session) AutoCommit(_ context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faults.AutoCommit != nil {
		return false, c.faults.AutoCommit
	}
	return c.autoCommit, nil
}

func (c *Session) SetAutoCommit(_ context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faults.SetAutoCommit != nil {
		return c.faults.SetAutoCommit
	}
	if on && !c.autoCommit && c.inTx {
		c.endTx()
		c.Commits++
	}
	c.autoCommit = on
	return nil
}

func (c *Session) QueryBools(_ context.Context, sql string, args ...any) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queries++
	if c.faults.Query != nil {
		if !c.autoCommit {
			c.inTx = true
		}
		return nil, c.faults.Query
	}
	if sql != tryLockSQL || len(args) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, sql)
	}
	n, ok := args[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: lock number must be int64, got %T", ErrUnsupported, args[0])
	}

	got := c.srv.tryLock(c, n)
	if c.autoCommit {
		// The implicit transaction ends with the statement.
		if got {
			c.srv.releaseAll(c)
		}
		return []bool{got}, nil
	}
	c.inTx = true
	return []bool{got}, nil
}

func (c *Session) Commit(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCommit {
		return errors.New("memory: cannot commit when autocommit is enabled")
	}
	if c.faults.Commit != nil {
		return c.faults.Commit
	}
	c.endTx()
	c.Commits++
	return nil
}

func (c *Session) Rollback(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCommit {
		return errors.New("memory: cannot rollback when autocommit is enabled")
	}
	if c.faults.Rollback != nil {
		return c.faults.Rollback
	}
	c.endTx()
	c.Rollbacks++
	return nil
}

func (c *Session) endTx() {
	c.inTx = false
	c.srv.releaseAll(c)
}
