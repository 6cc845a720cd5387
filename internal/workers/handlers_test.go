package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"leadinbox/internal/draft"
	"leadinbox/internal/ingress"
	"leadinbox/internal/intent"
	"leadinbox/internal/jobs"
)

type fakeIngress struct {
	classified []ingress.ClassifiedRequest
	drafts     []ingress.DraftRequest
	overdue    []string

	view     ingress.ConversationView
	viewOK   bool
	viewErr  error
	postErr  error
}

func (f *fakeIngress) PostClassified(ctx context.Context, req ingress.ClassifiedRequest) error {
	f.classified = append(f.classified, req)
	return f.postErr
}

func (f *fakeIngress) PostDraft(ctx context.Context, req ingress.DraftRequest) error {
	f.drafts = append(f.drafts, req)
	return f.postErr
}

func (f *fakeIngress) MarkOverdue(ctx context.Context, conversationID string) error {
	f.overdue = append(f.overdue, conversationID)
	return nil
}

func (f *fakeIngress) GetConversation(ctx context.Context, id string) (ingress.ConversationView, bool, error) {
	return f.view, f.viewOK, f.viewErr
}

func newHandlers(f *fakeIngress) *Handlers {
	log := slog.Default()
	return NewHandlers(intent.NewClassifier(nil, log), draft.NewGenerator(nil, log), f)
}

func task(t *testing.T, taskType string, p any) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(taskType, b)
}

func TestHandleClassify(t *testing.T) {
	f := &fakeIngress{}
	h := newHandlers(f)

	err := h.HandleClassify(context.Background(), task(t, jobs.TypeClassify, jobs.ClassifyPayload{
		TenantKey: "123456", Channel: "wa", MessageID: "wamid.1", Text: "fiyat nedir",
	}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(f.classified) != 1 {
		t.Fatalf("classified calls = %d", len(f.classified))
	}
	got := f.classified[0]
	if got.Intent != intent.IntentPriceInquiry || got.Confidence != 0.9 {
		t.Fatalf("classified = %+v", got)
	}
	if got.ExternalMessageID != "wamid.1" || got.TenantKey != "123456" {
		t.Fatalf("classified = %+v", got)
	}
}

func TestHandleClassify_CallbackFailurePropagates(t *testing.T) {
	f := &fakeIngress{postErr: errors.New("ingress down")}
	h := newHandlers(f)

	err := h.HandleClassify(context.Background(), task(t, jobs.TypeClassify, jobs.ClassifyPayload{
		TenantKey: "123456", Channel: "wa", MessageID: "wamid.1", Text: "x",
	}))
	if err == nil {
		t.Fatal("expected error for retry")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("callback failures must stay retryable")
	}
}

func TestHandleDraft(t *testing.T) {
	f := &fakeIngress{}
	h := newHandlers(f)

	err := h.HandleDraft(context.Background(), task(t, jobs.TypeDraft, jobs.DraftPayload{
		TenantKey: "123456", Channel: "wa", MessageID: "wamid.2", Text: "randevu almak istiyorum",
	}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(f.drafts) != 1 {
		t.Fatalf("draft calls = %d", len(f.drafts))
	}
	if f.drafts[0].NextAction != draft.ActionAskSchedule || f.drafts[0].Draft == "" {
		t.Fatalf("draft = %+v", f.drafts[0])
	}
}

func TestHandleFollowup(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	in := now.Add(-3 * time.Hour)
	out := now.Add(-2 * time.Hour)

	cases := []struct {
		name        string
		view        ingress.ConversationView
		viewOK      bool
		wantOverdue int
	}{
		{
			name:        "unanswered escalates",
			view:        ingress.ConversationView{ID: "c1", LastCustomerMessageAt: &in},
			viewOK:      true,
			wantOverdue: 1,
		},
		{
			name:        "answered does not",
			view:        ingress.ConversationView{ID: "c1", LastCustomerMessageAt: &in, LastAgentMessageAt: &out},
			viewOK:      true,
			wantOverdue: 0,
		},
		{
			name:        "missing conversation is a no-op",
			viewOK:      false,
			wantOverdue: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeIngress{view: tc.view, viewOK: tc.viewOK}
			h := newHandlers(f)

			err := h.HandleFollowup(context.Background(), task(t, jobs.TypeFollowup, jobs.FollowupPayload{
				ConversationID: "c1", TenantKey: "123456", Channel: "wa",
			}))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(f.overdue) != tc.wantOverdue {
				t.Fatalf("overdue calls = %d, want %d", len(f.overdue), tc.wantOverdue)
			}
		})
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler       { return h }

func TestTaskLoggingScopesHandlerLogs(t *testing.T) {
	rec := &recordingHandler{}
	h := newHandlers(&fakeIngress{})

	mw := TaskLogging(slog.New(rec))
	wrapped := mw(asynq.HandlerFunc(h.HandleClassify))

	err := wrapped.ProcessTask(context.Background(), task(t, jobs.TypeClassify, jobs.ClassifyPayload{
		TenantKey: "123456", Channel: "wa", MessageID: "wamid.log.1", Text: "fiyat nedir",
	}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) == 0 {
		t.Fatal("handler did not log through the task-scoped logger")
	}
	if rec.records[0].Message != "message classified" {
		t.Fatalf("first record = %q", rec.records[0].Message)
	}
}

func TestTaskLoggingReportsFailures(t *testing.T) {
	rec := &recordingHandler{}
	f := &fakeIngress{postErr: errors.New("ingress down")}
	h := newHandlers(f)

	mw := TaskLogging(slog.New(rec))
	wrapped := mw(asynq.HandlerFunc(h.HandleDraft))

	err := wrapped.ProcessTask(context.Background(), task(t, jobs.TypeDraft, jobs.DraftPayload{
		TenantKey: "123456", Channel: "wa", MessageID: "wamid.log.2", Text: "x",
	}))
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var sawFailure bool
	for _, r := range rec.records {
		if r.Message == "task failed" {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatal("middleware did not log the failed run")
	}
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	h := newHandlers(&fakeIngress{})

	err := h.HandleClassify(context.Background(), asynq.NewTask(jobs.TypeClassify, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	// Valid JSON, invalid payload.
	err = h.HandleFollowup(context.Background(), task(t, jobs.TypeFollowup, jobs.FollowupPayload{TenantKey: "123456"}))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
