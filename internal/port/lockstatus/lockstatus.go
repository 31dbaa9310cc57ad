package lockstatus

import (
	"context"

	"github.com/alanyang/xactlock/internal/domain/lock"
)

// Inspector reads the server's advisory lock table.
type Inspector interface {
	ListAdvisory(ctx context.Context) ([]lock.Holder, error)
}
