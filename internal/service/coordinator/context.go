package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/alanyang/xactlock/internal/domain/lock"
)

type holdKey struct{}

// Held describes the advisory lock the current work runs under.
type Held struct {
	Number       lock.Number
	InvocationID uuid.UUID
	// OwnsTransaction is true when the coordinator opened the transaction and
	// will commit it on release. Work must not commit or roll back when true.
	OwnsTransaction bool
}

func withHold(ctx context.Context, h *hold) context.Context {
	return context.WithValue(ctx, holdKey{}, h)
}

func holdFrom(ctx context.Context) (*hold, bool) {
	h, ok := ctx.Value(holdKey{}).(*hold)
	return h, ok
}

// HeldFromContext reports the innermost advisory lock held for ctx.
func HeldFromContext(ctx context.Context) (Held, bool) {
	h, ok := holdFrom(ctx)
	if !ok {
		return Held{}, false
	}
	return Held{
		Number:          h.c.number,
		InvocationID:    h.invocation,
		OwnsTransaction: !h.state.TxPreexisting,
	}, true
}
