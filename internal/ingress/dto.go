package ingress

import "time"

// Wire shapes of the signed internal ingress. Both the api handlers and the
// worker-side client use these types, so the contract is defined once.

type IngestRequest struct {
	TenantKey         string         `json:"tenant_key" binding:"required"`
	Channel           string         `json:"channel" binding:"required"`
	ExternalContactID string         `json:"external_contact_id" binding:"required"`
	ExternalMessageID string         `json:"external_message_id" binding:"required"`
	Direction         string         `json:"direction" binding:"required"`
	Type              string         `json:"type" binding:"required"`
	Body              string         `json:"body"`
	Meta              map[string]any `json:"meta"`
	Timestamp         time.Time      `json:"timestamp"`
}

type IngestResponse struct {
	OK             bool   `json:"ok"`
	Status         string `json:"status,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// IntentRequest is the classification-light update: intent and score only.
type IntentRequest struct {
	ExternalMessageID string  `json:"external_message_id" binding:"required"`
	Intent            string  `json:"intent" binding:"required"`
	LeadScore         float64 `json:"lead_score"`
}

// ClassifiedRequest is the full classification callback.
type ClassifiedRequest struct {
	TenantKey         string            `json:"tenant_key"`
	Channel           string            `json:"channel"`
	ExternalMessageID string            `json:"external_message_id" binding:"required"`
	Intent            string            `json:"intent" binding:"required"`
	Confidence        float64           `json:"confidence"`
	Entities          map[string]string `json:"entities,omitempty"`
	Urgency           string            `json:"urgency,omitempty"`
	SuggestedStage    string            `json:"suggested_stage,omitempty"`
}

type DraftRequest struct {
	TenantKey         string `json:"tenant_key"`
	Channel           string `json:"channel"`
	ExternalMessageID string `json:"external_message_id" binding:"required"`
	Draft             string `json:"draft" binding:"required"`
	NextAction        string `json:"next_action"`
}

type OverdueRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

type StatusResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
}

// ConversationView is the read shape the followup worker evaluates.
type ConversationView struct {
	ID                    string     `json:"id"`
	TenantKey             string     `json:"tenant_key"`
	Channel               string     `json:"channel"`
	Status                string     `json:"status"`
	Intent                string     `json:"intent,omitempty"`
	LeadScore             *float64   `json:"lead_score,omitempty"`
	LastCustomerMessageAt *time.Time `json:"last_customer_message_at,omitempty"`
	LastAgentMessageAt    *time.Time `json:"last_agent_message_at,omitempty"`
	Overdue               bool       `json:"overdue"`
}

type ConversationResponse struct {
	OK           bool              `json:"ok"`
	Conversation *ConversationView `json:"conversation,omitempty"`
}
