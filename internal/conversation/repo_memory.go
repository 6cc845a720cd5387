package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadinbox/internal/channel"
)

// MemoryRepo is the default store for local development and tests.
// A single mutex serializes all writes, which trivially satisfies the per-key
// discipline of the Repository contract; reads copy values out so callers
// never hold references into the maps.
//
// State does not survive the process. Production deployments use PostgresRepo.
type MemoryRepo struct {
	mu sync.Mutex

	contacts      map[string]Contact        // tenantKey + "\x00" + externalContactID
	conversations map[string]*Conversation  // tenantKey + "\x00" + contactID + "\x00" + channel
	byID          map[string]*Conversation  // conversation id
	messages      map[string][]Message      // conversation id, append order
	messageIndex  map[string]string         // external message id -> conversation id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		contacts:      make(map[string]Contact),
		conversations: make(map[string]*Conversation),
		byID:          make(map[string]*Conversation),
		messages:      make(map[string][]Message),
		messageIndex:  make(map[string]string),
	}
}

const keySep = "\x00"

func contactKey(tenantKey, externalContactID string) string {
	return tenantKey + keySep + externalContactID
}

func conversationKey(tenantKey, contactID string, ch channel.Channel) string {
	return tenantKey + keySep + contactID + keySep + string(ch)
}

func (r *MemoryRepo) GetOrCreateContact(ctx context.Context, tenantKey, externalContactID string) (Contact, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	k := contactKey(tenantKey, externalContactID)
	if c, ok := r.contacts[k]; ok {
		return c, nil
	}
	c := Contact{
		ID:                uuid.NewString(),
		TenantKey:         tenantKey,
		ExternalContactID: externalContactID,
		CreatedAt:         time.Now().UTC(),
	}
	r.contacts[k] = c
	return c, nil
}

func (r *MemoryRepo) GetOrCreateConversation(ctx context.Context, contact Contact, ch channel.Channel) (Conversation, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	k := conversationKey(contact.TenantKey, contact.ID, ch)
	if c, ok := r.conversations[k]; ok {
		return *c, false, nil
	}
	c := &Conversation{
		ID:                uuid.NewString(),
		TenantKey:         contact.TenantKey,
		ContactID:         contact.ID,
		ContactExternalID: contact.ExternalContactID,
		Channel:           ch,
		Status:            StatusNew,
		CreatedAt:         time.Now().UTC(),
	}
	r.conversations[k] = c
	r.byID[c.ID] = c
	return *c, true, nil
}

func (r *MemoryRepo) AppendMessage(ctx context.Context, m Message) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.messageIndex[m.ExternalMessageID]; seen {
		return false, nil
	}
	r.messageIndex[m.ExternalMessageID] = m.ConversationID
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	return true, nil
}

func (r *MemoryRepo) ConversationByID(ctx context.Context, id string) (Conversation, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return Conversation{}, false, nil
	}
	return *c, true, nil
}

func (r *MemoryRepo) ConversationByMessageID(ctx context.Context, externalMessageID string) (Conversation, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.messageIndex[externalMessageID]
	if !ok {
		return Conversation{}, false, nil
	}
	c, ok := r.byID[id]
	if !ok {
		return Conversation{}, false, nil
	}
	return *c, true, nil
}

func (r *MemoryRepo) SetLastCustomerMessageAt(ctx context.Context, convID string, at time.Time) error {
	return r.update(ctx, convID, func(c *Conversation) {
		t := at
		c.LastCustomerMessageAt = &t
	})
}

func (r *MemoryRepo) SetLastAgentMessageAt(ctx context.Context, convID string, at time.Time, clearOverdue bool) error {
	return r.update(ctx, convID, func(c *Conversation) {
		t := at
		c.LastAgentMessageAt = &t
		if clearOverdue {
			c.Overdue = false
		}
	})
}

func (r *MemoryRepo) SetIntent(ctx context.Context, convID, intent string, score float64) error {
	return r.update(ctx, convID, func(c *Conversation) {
		c.Intent = intent
		s := score
		c.LeadScore = &s
	})
}

func (r *MemoryRepo) SetStatus(ctx context.Context, convID, status string) error {
	return r.update(ctx, convID, func(c *Conversation) {
		c.Status = status
	})
}

func (r *MemoryRepo) MarkOverdue(ctx context.Context, convID string) error {
	return r.update(ctx, convID, func(c *Conversation) {
		c.Overdue = true
	})
}

func (r *MemoryRepo) update(ctx context.Context, convID string, fn func(*Conversation)) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[convID]
	if !ok {
		return ErrConversationNotFound
	}
	fn(c)
	return nil
}

func (r *MemoryRepo) ListConversations(ctx context.Context) ([]Conversation, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Conversation, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (r *MemoryRepo) ListMessages(ctx context.Context, convID string) ([]Message, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[convID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *MemoryRepo) Counts(ctx context.Context) (StoreCounts, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	sc := StoreCounts{
		Contacts:      len(r.contacts),
		Conversations: len(r.byID),
	}
	for _, msgs := range r.messages {
		sc.Messages += len(msgs)
	}
	for _, c := range r.byID {
		if c.Overdue {
			sc.Overdue++
		}
	}
	return sc, nil
}
