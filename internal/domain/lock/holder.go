package lock

import "time"

// Holder is one row of pg_locks for an advisory lock: a backend that holds the
// lock (Granted) or is queued behind it.
type Holder struct {
	PID           int32      `json:"pid"`
	Number        Number     `json:"lock_number"`
	Discriminator *int32     `json:"discriminator,omitempty"`
	Granted       bool       `json:"granted"`
	Mode          string     `json:"mode"`
	Application   string     `json:"application_name,omitempty"`
	ClientAddr    string     `json:"client_addr,omitempty"`
	State         string     `json:"state,omitempty"`
	XactStart     *time.Time `json:"xact_start,omitempty"`
}
