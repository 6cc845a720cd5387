package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadinbox/internal/channel"
)

func TestMemoryRepoConversationUniqueness(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	contact, err := r.GetOrCreateContact(ctx, "123456", "905551112233")
	if err != nil {
		t.Fatal(err)
	}

	// Concurrent first contact must still yield exactly one conversation.
	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := r.GetOrCreateConversation(ctx, contact, channel.WhatsApp)
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("duplicate conversation created: %s vs %s", id, ids[0])
		}
	}

	// Same contact, different channel: separate conversation.
	other, _, err := r.GetOrCreateConversation(ctx, contact, channel.Instagram)
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == ids[0] {
		t.Fatalf("channels must not share a conversation")
	}
}

func TestMemoryRepoMessageDedup(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	contact, _ := r.GetOrCreateContact(ctx, "123456", "905551112233")
	conv, _, _ := r.GetOrCreateConversation(ctx, contact, channel.WhatsApp)

	m := Message{
		ConversationID:    conv.ID,
		ExternalMessageID: "wamid.1",
		Direction:         DirectionIn,
		Type:              TypeText,
		Body:              "merhaba",
		Timestamp:         time.Now().UTC(),
	}
	inserted, err := r.AppendMessage(ctx, m)
	if err != nil || !inserted {
		t.Fatalf("first append: inserted=%v err=%v", inserted, err)
	}
	inserted, err = r.AppendMessage(ctx, m)
	if err != nil || inserted {
		t.Fatalf("second append must be a no-op: inserted=%v err=%v", inserted, err)
	}

	msgs, _ := r.ListMessages(ctx, conv.ID)
	if len(msgs) != 1 {
		t.Fatalf("stored %d messages, want 1", len(msgs))
	}

	got, ok, err := r.ConversationByMessageID(ctx, "wamid.1")
	if err != nil || !ok || got.ID != conv.ID {
		t.Fatalf("message index lookup failed: %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := r.ConversationByMessageID(ctx, "wamid.unknown"); ok {
		t.Fatalf("unknown message id must miss")
	}
}

func TestMemoryRepoMutations(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	contact, _ := r.GetOrCreateContact(ctx, "123456", "905551112233")
	conv, _, _ := r.GetOrCreateConversation(ctx, contact, channel.WhatsApp)

	now := time.Now().UTC()
	if err := r.SetLastCustomerMessageAt(ctx, conv.ID, now); err != nil {
		t.Fatal(err)
	}
	if err := r.SetIntent(ctx, conv.ID, "appointment", 0.9); err != nil {
		t.Fatal(err)
	}
	if err := r.SetStatus(ctx, conv.ID, StatusQualified); err != nil {
		t.Fatal(err)
	}
	if err := r.MarkOverdue(ctx, conv.ID); err != nil {
		t.Fatal(err)
	}

	got, _, _ := r.ConversationByID(ctx, conv.ID)
	if got.Intent != "appointment" || got.LeadScore == nil || *got.LeadScore != 0.9 {
		t.Fatalf("intent not applied: %+v", got)
	}
	if got.Status != StatusQualified || !got.Overdue {
		t.Fatalf("status/overdue not applied: %+v", got)
	}

	// agent reply with clearOverdue resets the flag
	if err := r.SetLastAgentMessageAt(ctx, conv.ID, now.Add(time.Minute), true); err != nil {
		t.Fatal(err)
	}
	got, _, _ = r.ConversationByID(ctx, conv.ID)
	if got.Overdue {
		t.Fatalf("clearOverdue did not reset the flag")
	}

	if err := r.SetStatus(ctx, "missing", StatusNew); err != ErrConversationNotFound {
		t.Fatalf("mutating a missing conversation: %v", err)
	}

	sc, _ := r.Counts(ctx)
	if sc.Contacts != 1 || sc.Conversations != 1 {
		t.Fatalf("counts = %+v", sc)
	}
}
