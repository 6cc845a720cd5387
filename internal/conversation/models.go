package conversation

import (
	"time"

	"leadinbox/internal/channel"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type MessageType string

const (
	// TypeText is a free-form reply, allowed only inside the messaging window.
	TypeText MessageType = "text"
	// TypeTemplate is a pre-approved template, the only reply allowed once the
	// window has closed.
	TypeTemplate MessageType = "template"
)

// Conversation statuses. Business stages beyond these two are set by the
// operator surface and treated as opaque strings.
const (
	StatusNew       = "new"
	StatusQualified = "qualified"
)

// Contact is a channel identity that has messaged a tenant at least once.
// Contacts are created on first message and never deleted here.
type Contact struct {
	ID                string
	TenantKey         string
	ExternalContactID string
	CreatedAt         time.Time
}

// Conversation threads all traffic for one (tenant, contact, channel) tuple.
// At most one conversation exists per tuple; creation is get-or-create.
type Conversation struct {
	ID        string
	TenantKey string
	ContactID string
	// ContactExternalID is denormalized from the contact so the send path can
	// address the provider without a second lookup.
	ContactExternalID string
	Channel           channel.Channel

	Status    string
	Intent    string
	LeadScore *float64

	LastCustomerMessageAt *time.Time
	LastAgentMessageAt    *time.Time

	Overdue   bool
	AISummary string

	CreatedAt time.Time
}

// Message is immutable once created. ExternalMessageID is the dedup key:
// the same external id is never persisted twice, whatever the provider
// redelivers.
type Message struct {
	ConversationID    string
	ExternalMessageID string
	Direction         Direction
	Type              MessageType
	Body              string
	Meta              map[string]any
	Timestamp         time.Time
}
