package lockstatus

import (
	"context"
	"fmt"

	"github.com/alanyang/xactlock/internal/domain/lock"
	portlockstatus "github.com/alanyang/xactlock/internal/port/lockstatus"
)

// Status is the server-side view of one lock number.
type Status struct {
	Number        lock.Number   `json:"lock_number"`
	Discriminator int32         `json:"discriminator"`
	Held          bool          `json:"held"`
	Holders       []lock.Holder `json:"holders"`
}

// Service answers "who holds which lock" for the configured namespace.
type Service struct {
	inspector portlockstatus.Inspector
	namespace lock.Namespace
}

func NewService(inspector portlockstatus.Inspector, namespace lock.Namespace) *Service {
	return &Service{inspector: inspector, namespace: namespace}
}

func (s *Service) Namespace() lock.Namespace { return s.namespace }

// List returns the advisory locks whose numbers derive from the namespace,
// annotated with their discriminator.
func (s *Service) List(ctx context.Context) ([]lock.Holder, error) {
	all, err := s.inspector.ListAdvisory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list advisory locks: %w", err)
	}
	holders := make([]lock.Holder, 0, len(all))
	for _, h := range all {
		d, ok := h.Number.Discriminator(s.namespace)
		if !ok {
			continue
		}
		h.Discriminator = &d
		holders = append(holders, h)
	}
	return holders, nil
}

func (s *Service) Get(ctx context.Context, discriminator int32) (Status, error) {
	st := Status{
		Number:        lock.NumberFor(s.namespace, discriminator),
		Discriminator: discriminator,
		Holders:       []lock.Holder{},
	}
	all, err := s.List(ctx)
	if err != nil {
		return Status{}, err
	}
	for _, h := range all {
		if h.Number != st.Number {
			continue
		}
		st.Holders = append(st.Holders, h)
		if h.Granted {
			st.Held = true
		}
	}
	return st, nil
}
