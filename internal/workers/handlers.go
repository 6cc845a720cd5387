package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"leadinbox/internal/draft"
	"leadinbox/internal/followup"
	"leadinbox/internal/ingress"
	"leadinbox/internal/intent"
	"leadinbox/internal/jobs"
	"leadinbox/pkg/logger"
)

// Ingress is the slice of the internal API the workers call back into.
// Workers never touch the store directly; every mutation goes through the
// signed ingress so the api process stays the single writer.
type Ingress interface {
	PostClassified(ctx context.Context, req ingress.ClassifiedRequest) error
	PostDraft(ctx context.Context, req ingress.DraftRequest) error
	MarkOverdue(ctx context.Context, conversationID string) error
	GetConversation(ctx context.Context, id string) (ingress.ConversationView, bool, error)
}

type Handlers struct {
	classifier *intent.Classifier
	drafts     *draft.Generator
	ingress    Ingress
}

func NewHandlers(classifier *intent.Classifier, drafts *draft.Generator, ing Ingress) *Handlers {
	return &Handlers{classifier: classifier, drafts: drafts, ingress: ing}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(jobs.TypeClassify, h.HandleClassify)
	mux.HandleFunc(jobs.TypeDraft, h.HandleDraft)
	mux.HandleFunc(jobs.TypeFollowup, h.HandleFollowup)
}

// TaskLogging stores a task-scoped logger in the context so handlers share
// one enriched logger per task, and logs every failed run.
func TaskLogging(log *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			l := log.With("task", t.Type())
			if id, ok := asynq.GetTaskID(ctx); ok {
				l = l.With("task_id", id)
			}
			err := next.ProcessTask(logger.With(ctx, l), t)
			if err != nil {
				l.Error("task failed", "err", err)
			}
			return err
		})
	}
}

// HandleClassify runs the classification tier for one message and posts the
// result back. Classification itself cannot fail (the heuristic floor is
// total); only the callback can, and that error is returned for retry.
func (h *Handlers) HandleClassify(ctx context.Context, t *asynq.Task) error {
	var p jobs.ClassifyPayload
	if err := unmarshalPayload(t, &p); err != nil {
		return err
	}

	c := h.classifier.Classify(ctx, p.Text)
	logger.From(ctx).Info("message classified",
		"message_id", p.MessageID, "intent", c.Intent, "confidence", c.Confidence)

	return h.ingress.PostClassified(ctx, ingress.ClassifiedRequest{
		TenantKey:         p.TenantKey,
		Channel:           p.Channel,
		ExternalMessageID: p.MessageID,
		Intent:            c.Intent,
		Confidence:        c.Confidence,
		Entities:          c.Entities,
		Urgency:           c.Urgency,
		SuggestedStage:    c.SuggestedStage,
	})
}

func (h *Handlers) HandleDraft(ctx context.Context, t *asynq.Task) error {
	var p jobs.DraftPayload
	if err := unmarshalPayload(t, &p); err != nil {
		return err
	}

	d := h.drafts.Generate(ctx, p.Text)
	logger.From(ctx).Info("draft generated", "message_id", p.MessageID, "next_action", d.NextAction)

	return h.ingress.PostDraft(ctx, ingress.DraftRequest{
		TenantKey:         p.TenantKey,
		Channel:           p.Channel,
		ExternalMessageID: p.MessageID,
		Draft:             d.Text,
		NextAction:        d.NextAction,
	})
}

// HandleFollowup fires when a conversation's SLA timer expires. It re-reads
// the conversation at fire time so a reschedule race cannot resurrect a stale
// verdict: whatever the current timestamps say wins.
func (h *Handlers) HandleFollowup(ctx context.Context, t *asynq.Task) error {
	var p jobs.FollowupPayload
	if err := unmarshalPayload(t, &p); err != nil {
		return err
	}

	view, ok, err := h.ingress.GetConversation(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if !ok {
		// Conversation gone; nothing to escalate.
		logger.From(ctx).Warn("followup target not found", "conversation_id", p.ConversationID)
		return nil
	}

	outcome := followup.Evaluate(view.LastCustomerMessageAt, view.LastAgentMessageAt)
	logger.From(ctx).Info("followup evaluated", "conversation_id", p.ConversationID, "outcome", string(outcome))
	if outcome != followup.OutcomeOverdue {
		return nil
	}
	return h.ingress.MarkOverdue(ctx, p.ConversationID)
}

// Malformed payloads never become valid on retry.
func unmarshalPayload(t *asynq.Task, out interface{ Validate() error }) error {
	if err := json.Unmarshal(t.Payload(), out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}
