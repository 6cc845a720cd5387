package ailog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for AI events.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
	// LatestDraftFor returns the newest draft event for a message id.
	LatestDraftFor(ctx context.Context, externalMessageID string) (Event, bool, error)
	Count(ctx context.Context) (int, error)
}

var ErrInvalidEvent = errors.New("ailog: invalid event")

// Service records worker results. Callers treat recording as best-effort:
// a lost log entry must never fail the callback that carried real state.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("ailog: repository not configured")
	}
	if e.ExternalMessageID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) RecordClassified(ctx context.Context, tenantKey, ch, externalMessageID, intent string, confidence float64) error {
	return s.append(ctx, Event{
		Type:              EventClassified,
		TenantKey:         tenantKey,
		Channel:           ch,
		ExternalMessageID: externalMessageID,
		Intent:            intent,
		Confidence:        confidence,
	})
}

func (s *Service) RecordDraft(ctx context.Context, tenantKey, ch, externalMessageID, draft, nextAction string) error {
	return s.append(ctx, Event{
		Type:              EventDraft,
		TenantKey:         tenantKey,
		Channel:           ch,
		ExternalMessageID: externalMessageID,
		Draft:             draft,
		NextAction:        nextAction,
	})
}

// LatestDraft returns the newest draft recorded for a message id, if any.
func (s *Service) LatestDraft(ctx context.Context, externalMessageID string) (Event, bool, error) {
	if s.repo == nil {
		return Event{}, false, errors.New("ailog: repository not configured")
	}
	return s.repo.LatestDraftFor(ctx, externalMessageID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.Count(ctx)
}
