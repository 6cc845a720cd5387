package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"leadinbox/internal/channel"
	"leadinbox/internal/config"
	"leadinbox/internal/followup"
	"leadinbox/internal/intent"
	"leadinbox/internal/tenant"
)

// JobScheduler is what the ingest path needs from the queue. The concrete
// implementation lives in internal/jobs; the store only knows the three
// operations.
type JobScheduler interface {
	EnqueueClassify(ctx context.Context, tenantKey string, ch channel.Channel, messageID, text string) error
	EnqueueDraft(ctx context.Context, tenantKey string, ch channel.Channel, messageID, text string) error
	ScheduleFollowup(ctx context.Context, conversationID, tenantKey string, ch channel.Channel, delay time.Duration) error
}

// Sender dispatches outbound messages to the provider. Implementations are
// thin API wrappers; the window policy is applied here, before the call.
type Sender interface {
	SendText(ctx context.Context, tenantKey, to, text string) error
	SendTemplate(ctx context.Context, tenantKey, to, template string) error
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidArgument      = errors.New("invalid argument")
)

// Service is the single writer into the conversation store. Ingestion,
// classification callbacks, sends and the overdue mark all funnel through it;
// workers never mutate state directly.
type Service struct {
	repo    Repository
	tenants *tenant.Registry
	jobs    JobScheduler
	sender  Sender

	followupCfg config.FollowupConfig

	// heuristic supplies the fast classification whose confidence gates the
	// classify job. Injected so the store does not hard-wire the pipeline.
	heuristic func(text string) (string, float64)

	clock func() time.Time
	log   *slog.Logger
}

func NewService(repo Repository, tenants *tenant.Registry, jobs JobScheduler, sender Sender, fcfg config.FollowupConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:        repo,
		tenants:     tenants,
		jobs:        jobs,
		sender:      sender,
		followupCfg: fcfg,
		heuristic: func(text string) (string, float64) {
			c := intent.Heuristic(text)
			return c.Intent, c.Confidence
		},
		clock: time.Now,
		log:   log,
	}
}

type IngestStatus string

const (
	IngestOK            IngestStatus = "ingested"
	IngestDuplicate     IngestStatus = "duplicate"
	IngestUnknownTenant IngestStatus = "unknown_tenant"
)

type IngestRequest struct {
	TenantKey         string
	Channel           channel.Channel
	ExternalContactID string
	ExternalMessageID string
	Direction         Direction
	Type              MessageType
	Body              string
	Meta              map[string]any
	Timestamp         time.Time
}

type IngestResult struct {
	Status         IngestStatus
	ConversationID string
}

// Ingest resolves tenant, contact and conversation, appends the message once,
// and triggers job scheduling for first-seen inbound messages.
//
// Idempotency: redelivery of an already-seen external message id returns the
// existing conversation id and does nothing else. No duplicate row, no
// timestamp overwrite, no second round of jobs.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if err := validateIngest(req); err != nil {
		return IngestResult{}, err
	}

	if _, ok := s.tenants.Resolve(req.TenantKey); !ok {
		// Soft outcome: unregistered or test traffic is acknowledged but never
		// persisted, and the provider is not invited to retry.
		return IngestResult{Status: IngestUnknownTenant}, nil
	}

	contact, err := s.repo.GetOrCreateContact(ctx, req.TenantKey, req.ExternalContactID)
	if err != nil {
		return IngestResult{}, err
	}
	conv, _, err := s.repo.GetOrCreateConversation(ctx, contact, req.Channel)
	if err != nil {
		return IngestResult{}, err
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = s.clock().UTC()
	}
	inserted, err := s.repo.AppendMessage(ctx, Message{
		ConversationID:    conv.ID,
		ExternalMessageID: req.ExternalMessageID,
		Direction:         req.Direction,
		Type:              req.Type,
		Body:              req.Body,
		Meta:              req.Meta,
		Timestamp:         ts,
	})
	if err != nil {
		return IngestResult{}, err
	}
	if !inserted {
		return IngestResult{Status: IngestDuplicate, ConversationID: conv.ID}, nil
	}

	if req.Direction == DirectionIn {
		if err := s.repo.SetLastCustomerMessageAt(ctx, conv.ID, ts); err != nil {
			return IngestResult{}, err
		}
		s.scheduleIngestJobs(ctx, conv, req)
	}

	return IngestResult{Status: IngestOK, ConversationID: conv.ID}, nil
}

// scheduleIngestJobs runs only for first-seen inbound messages. Enqueue
// failures are logged, not surfaced: the webhook response must stay a soft
// success, and the queue's own retry machinery covers the workers.
func (s *Service) scheduleIngestJobs(ctx context.Context, conv Conversation, req IngestRequest) {
	if s.jobs == nil {
		return
	}
	_, confidence := s.heuristic(req.Body)
	if confidence < intent.ConfidenceThreshold {
		if err := s.jobs.EnqueueClassify(ctx, conv.TenantKey, conv.Channel, req.ExternalMessageID, req.Body); err != nil {
			s.log.Error("enqueue classify failed", "conversation_id", conv.ID, "err", err)
		}
	}
	if err := s.jobs.EnqueueDraft(ctx, conv.TenantKey, conv.Channel, req.ExternalMessageID, req.Body); err != nil {
		s.log.Error("enqueue draft failed", "conversation_id", conv.ID, "err", err)
	}

	delay := s.followupCfg.DebugOverride
	if delay <= 0 {
		delay = s.followupCfg.DefaultSLA
	}
	if err := s.jobs.ScheduleFollowup(ctx, conv.ID, conv.TenantKey, conv.Channel, delay); err != nil {
		s.log.Error("schedule followup failed", "conversation_id", conv.ID, "err", err)
	}
}

// RecordIntent applies a classification-light update: intent and score only,
// no status transition, no timer change. A miss on the message index is a
// soft "not found" (out-of-order or lost delivery), not an error.
func (s *Service) RecordIntent(ctx context.Context, externalMessageID, intentName string, score float64) (bool, error) {
	conv, ok, err := s.repo.ConversationByMessageID(ctx, externalMessageID)
	if err != nil || !ok {
		return false, err
	}
	if err := s.repo.SetIntent(ctx, conv.ID, intentName, score); err != nil {
		return false, err
	}
	return true, nil
}

// RecordClassification applies a full classification: intent and score,
// status transition to qualified (or the model's suggested stage), and a
// follow-up reschedule under the intent-specific SLA. The reschedule
// overrides whatever timer is pending for the conversation.
func (s *Service) RecordClassification(ctx context.Context, externalMessageID, intentName string, confidence float64, suggestedStage string) (bool, error) {
	conv, ok, err := s.repo.ConversationByMessageID(ctx, externalMessageID)
	if err != nil || !ok {
		return false, err
	}
	if err := s.repo.SetIntent(ctx, conv.ID, intentName, confidence); err != nil {
		return false, err
	}
	status := StatusQualified
	if suggestedStage != "" {
		status = suggestedStage
	}
	if err := s.repo.SetStatus(ctx, conv.ID, status); err != nil {
		return false, err
	}

	if s.jobs != nil {
		delay := followup.SLAFor(intentName, s.followupCfg.DebugOverride)
		if err := s.jobs.ScheduleFollowup(ctx, conv.ID, conv.TenantKey, conv.Channel, delay); err != nil {
			s.log.Error("reschedule followup failed", "conversation_id", conv.ID, "err", err)
		}
	}
	return true, nil
}

// MarkOverdue sets the escalation flag. Idempotent; setting it twice is
// harmless.
func (s *Service) MarkOverdue(ctx context.Context, conversationID string) error {
	return s.repo.MarkOverdue(ctx, conversationID)
}

// Send dispatches an agent reply, letting the window policy pick text or
// template at call time. The send itself is best-effort; the local record and
// the agent timestamp are written regardless so the follow-up evaluation sees
// the reply.
func (s *Service) Send(ctx context.Context, conversationID, text string) (MessageType, error) {
	conv, ok, err := s.repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrConversationNotFound
	}

	now := s.clock().UTC()
	sendType := SendType(conv.LastCustomerMessageAt, now)

	if s.sender != nil && conv.Channel == channel.WhatsApp {
		switch sendType {
		case TypeText:
			err = s.sender.SendText(ctx, conv.TenantKey, conv.ContactExternalID, text)
		case TypeTemplate:
			tpl := "followup_1"
			if tn, ok := s.tenants.Resolve(conv.TenantKey); ok && tn.FollowupTemplate != "" {
				tpl = tn.FollowupTemplate
			}
			err = s.sender.SendTemplate(ctx, conv.TenantKey, conv.ContactExternalID, tpl)
		}
		if err != nil {
			s.log.Error("outbound send failed", "conversation_id", conv.ID, "type", string(sendType), "err", err)
		}
	}

	if _, err := s.repo.AppendMessage(ctx, Message{
		ConversationID:    conv.ID,
		ExternalMessageID: "out_" + uuid.NewString(),
		Direction:         DirectionOut,
		Type:              sendType,
		Body:              text,
		Meta:              map[string]any{},
		Timestamp:         now,
	}); err != nil {
		return "", err
	}
	if err := s.repo.SetLastAgentMessageAt(ctx, conv.ID, now, s.followupCfg.ClearOverdueOnReply); err != nil {
		return "", err
	}
	return sendType, nil
}

// SetStatus is the operator override for business stages beyond new/qualified.
func (s *Service) SetStatus(ctx context.Context, conversationID, status string) error {
	if status == "" {
		return ErrInvalidArgument
	}
	return s.repo.SetStatus(ctx, conversationID, status)
}

func (s *Service) Get(ctx context.Context, conversationID string) (Conversation, bool, error) {
	return s.repo.ConversationByID(ctx, conversationID)
}

func (s *Service) List(ctx context.Context) ([]Conversation, error) {
	return s.repo.ListConversations(ctx)
}

func (s *Service) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	return s.repo.ListMessages(ctx, conversationID)
}

func (s *Service) Counts(ctx context.Context) (StoreCounts, error) {
	return s.repo.Counts(ctx)
}

func validateIngest(req IngestRequest) error {
	if req.TenantKey == "" || req.ExternalContactID == "" || req.ExternalMessageID == "" {
		return ErrInvalidArgument
	}
	if !req.Channel.Valid() {
		return ErrInvalidArgument
	}
	if req.Direction != DirectionIn && req.Direction != DirectionOut {
		return ErrInvalidArgument
	}
	if req.Type != TypeText && req.Type != TypeTemplate {
		return ErrInvalidArgument
	}
	return nil
}
