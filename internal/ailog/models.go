package ailog

import "time"

type EventType string

const (
	EventClassified EventType = "classified"
	EventDraft      EventType = "draft"
)

// Event is one worker result written back through the internal ingress.
// Events are append-only: final classification and draft outputs stay
// inspectable even after the conversation moves on.
type Event struct {
	ID                string
	Type              EventType
	TenantKey         string
	Channel           string
	ExternalMessageID string

	// classification fields
	Intent     string
	Confidence float64

	// draft fields
	Draft      string
	NextAction string

	CreatedAt time.Time
}
