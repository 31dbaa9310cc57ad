package eventbus

import (
	"context"

	"github.com/alanyang/xactlock/internal/domain/event"
)

type Handler func(ctx context.Context, e event.Event)

type Subscription interface {
	Unsubscribe()
}

// Publisher receives lock events. Publishing is best-effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

type EventBus interface {
	Publisher
	Subscribe(ctx context.Context, handler Handler) (Subscription, error)
}
