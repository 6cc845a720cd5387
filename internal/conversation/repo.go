package conversation

import (
	"context"
	"time"

	"leadinbox/internal/channel"
)

// Repository is the persistence contract for the conversation store.
//
// Write discipline:
// - GetOrCreate* and AppendMessage must be atomic with respect to their
//   uniqueness keys: (tenant, external contact id), (tenant, contact, channel)
//   and external_message_id respectively. Concurrent first contact must still
//   yield exactly one row.
// - Set* methods mutate a single conversation and must serialize per
//   conversation at minimum (a store-wide mutex or per-row UPDATE both
//   qualify). Reads may lag in-flight writes.
type Repository interface {
	GetOrCreateContact(ctx context.Context, tenantKey, externalContactID string) (Contact, error)
	GetOrCreateConversation(ctx context.Context, contact Contact, ch channel.Channel) (Conversation, bool, error)

	// AppendMessage inserts m unless its external id was seen before.
	// Returns false without error on a duplicate.
	AppendMessage(ctx context.Context, m Message) (bool, error)

	ConversationByID(ctx context.Context, id string) (Conversation, bool, error)
	// ConversationByMessageID resolves the owning conversation through the
	// message dedup index.
	ConversationByMessageID(ctx context.Context, externalMessageID string) (Conversation, bool, error)

	SetLastCustomerMessageAt(ctx context.Context, convID string, at time.Time) error
	SetLastAgentMessageAt(ctx context.Context, convID string, at time.Time, clearOverdue bool) error
	SetIntent(ctx context.Context, convID, intent string, score float64) error
	SetStatus(ctx context.Context, convID, status string) error
	MarkOverdue(ctx context.Context, convID string) error

	ListConversations(ctx context.Context) ([]Conversation, error)
	ListMessages(ctx context.Context, convID string) ([]Message, error)
	Counts(ctx context.Context) (StoreCounts, error)
}

// StoreCounts backs the debug/state endpoint.
type StoreCounts struct {
	Contacts      int `json:"contacts"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
	Overdue       int `json:"overdue"`
}
