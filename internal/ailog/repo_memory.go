package ailog

import (
	"context"
	"sync"
)

// MemoryRepo keeps AI events in append order. Matches the lifetime of the
// in-memory conversation store; a durable port would write these rows to the
// same database.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) LatestDraftFor(ctx context.Context, externalMessageID string) (Event, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if e.Type == EventDraft && e.ExternalMessageID == externalMessageID {
			return e, true, nil
		}
	}
	return Event{}, false, nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events), nil
}
