package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"leadinbox/internal/channel"
)

// Scheduler enqueues the three job classes on the shared queue backend.
//
// Disposal policy: successful tasks are dropped (no retention), failed tasks
// are retried with asynq's backoff and finally archived for operator
// inspection. The queue backend, not this process, enforces follow-up
// dedup keys, so multiple api instances stay consistent without
// application-level locking.
type Scheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	log       *slog.Logger
}

const maxRetry = 3

func NewScheduler(redisOpt asynq.RedisClientOpt, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		log:       log,
	}
}

func (s *Scheduler) Close() error {
	if err := s.client.Close(); err != nil {
		return err
	}
	return s.inspector.Close()
}

// EnqueueClassify is best-effort fire-and-forget: the caller already has a
// heuristic classification in hand, the model pass only refines it.
func (s *Scheduler) EnqueueClassify(ctx context.Context, tenantKey string, ch channel.Channel, messageID, text string) error {
	p := ClassifyPayload{TenantKey: tenantKey, Channel: string(ch), MessageID: messageID, Text: text}
	return s.enqueue(ctx, TypeClassify, p)
}

// EnqueueDraft fires for every first-seen inbound message, independent of
// classification confidence.
func (s *Scheduler) EnqueueDraft(ctx context.Context, tenantKey string, ch channel.Channel, messageID, text string) error {
	p := DraftPayload{TenantKey: tenantKey, Channel: string(ch), MessageID: messageID, Text: text}
	return s.enqueue(ctx, TypeDraft, p)
}

// ScheduleFollowup arms (or re-arms) the single follow-up timer for a
// conversation. Any pending timer under the same dedup key is dropped first:
// last write wins, so the live timer always reflects the latest intent
// knowledge. A superseded timer is cancelled by being overwritten, never by
// explicit signaling.
func (s *Scheduler) ScheduleFollowup(ctx context.Context, conversationID, tenantKey string, ch channel.Channel, delay time.Duration) error {
	p := FollowupPayload{ConversationID: conversationID, TenantKey: tenantKey, Channel: string(ch)}
	if err := p.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	taskID := FollowupTaskID(conversationID)
	task := asynq.NewTask(TypeFollowup, raw)
	opts := []asynq.Option{
		asynq.Queue(Queue),
		asynq.TaskID(taskID),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(maxRetry),
	}

	if err := s.deletePending(taskID); err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// Lost a race with a concurrent scheduler; drop and take the slot once
		// more so the newest delay wins.
		if err := s.deletePending(taskID); err != nil {
			return err
		}
		_, err = s.client.EnqueueContext(ctx, task, opts...)
	}
	if err != nil {
		return err
	}
	s.log.Debug("followup scheduled", "conversation_id", conversationID, "delay", delay.String())
	return nil
}

func (s *Scheduler) deletePending(taskID string) error {
	err := s.inspector.DeleteTask(Queue, taskID)
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}

func (s *Scheduler) enqueue(ctx context.Context, taskType string, p interface{ Validate() error }) error {
	if err := p.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, asynq.NewTask(taskType, raw),
		asynq.Queue(Queue), asynq.MaxRetry(maxRetry))
	return err
}
