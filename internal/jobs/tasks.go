package jobs

import (
	"errors"
	"fmt"

	"leadinbox/internal/channel"
)

// Task types. Names are part of the queue wire contract; workers register
// handlers by these strings.
const (
	TypeClassify = "classify"
	TypeDraft    = "draft"
	TypeFollowup = "followup"
)

// Queue is the single logical queue both processes share.
const Queue = "default"

var ErrInvalidPayload = errors.New("jobs: invalid payload")

// ClassifyPayload asks a worker to classify one inbound message. Flat record
// of primitive fields only; workers reach state exclusively through the
// signed internal ingress.
type ClassifyPayload struct {
	TenantKey string `json:"tenant_key"`
	Channel   string `json:"channel"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func (p ClassifyPayload) Validate() error {
	if p.TenantKey == "" || p.MessageID == "" {
		return fmt.Errorf("%w: classify needs tenant_key and message_id", ErrInvalidPayload)
	}
	if !channel.Channel(p.Channel).Valid() {
		return fmt.Errorf("%w: classify channel %q", ErrInvalidPayload, p.Channel)
	}
	return nil
}

// DraftPayload asks a worker to draft a reply for one inbound message.
// Same shape as classify; kept as its own type so the wire contract of each
// job can evolve independently.
type DraftPayload struct {
	TenantKey string `json:"tenant_key"`
	Channel   string `json:"channel"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func (p DraftPayload) Validate() error {
	if p.TenantKey == "" || p.MessageID == "" {
		return fmt.Errorf("%w: draft needs tenant_key and message_id", ErrInvalidPayload)
	}
	if !channel.Channel(p.Channel).Valid() {
		return fmt.Errorf("%w: draft channel %q", ErrInvalidPayload, p.Channel)
	}
	return nil
}

// FollowupPayload is the delayed escalation check for one conversation.
type FollowupPayload struct {
	ConversationID string `json:"conversation_id"`
	TenantKey      string `json:"tenant_key"`
	Channel        string `json:"channel"`
}

func (p FollowupPayload) Validate() error {
	if p.ConversationID == "" {
		return fmt.Errorf("%w: followup needs conversation_id", ErrInvalidPayload)
	}
	return nil
}

// FollowupTaskID derives the queue dedup key for a conversation's follow-up
// timer. One conversation, one live timer: scheduling with the same id
// supersedes the pending one.
func FollowupTaskID(conversationID string) string {
	return "followup_" + conversationID
}
