package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/xactlock/internal/domain/lock"
)

type Type string

const (
	TypeAttemptFailed           Type = "lock_attempt_failed"
	TypeAcquired                Type = "lock_acquired"
	TypeReleased                Type = "lock_released"
	TypeFailed                  Type = "lock_failed"
	TypeAutoCommitRestoreFailed Type = "autocommit_restore_failed"
)

// Channel is the Postgres NOTIFY channel all lock events travel on.
const Channel = "xactlock_events"

// Event describes one step of a single coordinator invocation. InvocationID
// ties together every event of that invocation across processes.
type Event struct {
	Type         Type          `json:"type"`
	InvocationID uuid.UUID     `json:"invocation_id"`
	LockNumber   lock.Number   `json:"lock_number"`
	Attempt      int           `json:"attempt,omitempty"`
	Elapsed      time.Duration `json:"elapsed_ns,omitempty"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

func New(eventType Type, invocationID uuid.UUID, n lock.Number) Event {
	return Event{
		Type:         eventType,
		InvocationID: invocationID,
		LockNumber:   n,
		Timestamp:    time.Now().UTC(),
	}
}
