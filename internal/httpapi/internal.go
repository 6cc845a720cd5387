package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadinbox/internal/channel"
	"leadinbox/internal/conversation"
	"leadinbox/internal/ingress"
	"leadinbox/pkg/logger"
)

// Internal ingress handlers. These sit behind the internal-signature
// middleware and are the only write path the worker process has; soft
// failures (unknown tenant, unknown message) answer 200 with ok=false so the
// queue does not retry conditions that will never heal.

func (h Handlers) InternalIngest(c *gin.Context) {
	var req ingress.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ingress.IngestResponse{OK: false, Status: "invalid_request"})
		return
	}

	res, err := h.Conversations.Ingest(c.Request.Context(), conversation.IngestRequest{
		TenantKey:         req.TenantKey,
		Channel:           channel.Channel(req.Channel),
		ExternalContactID: req.ExternalContactID,
		ExternalMessageID: req.ExternalMessageID,
		Direction:         conversation.Direction(req.Direction),
		Type:              conversation.MessageType(req.Type),
		Body:              req.Body,
		Meta:              req.Meta,
		Timestamp:         req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, ingress.IngestResponse{OK: false, Status: "invalid_request"})
			return
		}
		c.JSON(http.StatusInternalServerError, ingress.IngestResponse{OK: false, Status: "error"})
		return
	}

	c.JSON(http.StatusOK, ingress.IngestResponse{
		OK:             res.Status != conversation.IngestUnknownTenant,
		Status:         string(res.Status),
		ConversationID: res.ConversationID,
	})
}

func (h Handlers) InternalIntent(c *gin.Context) {
	var req ingress.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ingress.StatusResponse{OK: false, Status: "invalid_request"})
		return
	}

	ok, err := h.Conversations.RecordIntent(c.Request.Context(), req.ExternalMessageID, req.Intent, req.LeadScore)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ingress.StatusResponse{OK: false, Status: "error"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, ingress.StatusResponse{OK: false, Status: "message_not_found"})
		return
	}
	c.JSON(http.StatusOK, ingress.StatusResponse{OK: true})
}

func (h Handlers) InternalClassified(c *gin.Context) {
	var req ingress.ClassifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ingress.StatusResponse{OK: false, Status: "invalid_request"})
		return
	}

	ok, err := h.Conversations.RecordClassification(c.Request.Context(),
		req.ExternalMessageID, req.Intent, req.Confidence, req.SuggestedStage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ingress.StatusResponse{OK: false, Status: "error"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, ingress.StatusResponse{OK: false, Status: "message_not_found"})
		return
	}

	if h.AILog != nil {
		if err := h.AILog.RecordClassified(c.Request.Context(),
			req.TenantKey, req.Channel, req.ExternalMessageID, req.Intent, req.Confidence); err != nil {
			logger.FromGin(c).Warn("ai log append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, ingress.StatusResponse{OK: true})
}

func (h Handlers) InternalDraft(c *gin.Context) {
	var req ingress.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ingress.StatusResponse{OK: false, Status: "invalid_request"})
		return
	}

	if h.AILog != nil {
		if err := h.AILog.RecordDraft(c.Request.Context(),
			req.TenantKey, req.Channel, req.ExternalMessageID, req.Draft, req.NextAction); err != nil {
			c.JSON(http.StatusInternalServerError, ingress.StatusResponse{OK: false, Status: "error"})
			return
		}
	}
	c.JSON(http.StatusOK, ingress.StatusResponse{OK: true})
}

func (h Handlers) InternalOverdue(c *gin.Context) {
	var req ingress.OverdueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ingress.StatusResponse{OK: false, Status: "invalid_request"})
		return
	}

	if err := h.Conversations.MarkOverdue(c.Request.Context(), req.ConversationID); err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			c.JSON(http.StatusOK, ingress.StatusResponse{OK: false, Status: "conversation_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ingress.StatusResponse{OK: false, Status: "error"})
		return
	}
	c.JSON(http.StatusOK, ingress.StatusResponse{OK: true})
}

func (h Handlers) InternalListConversations(c *gin.Context) {
	convs, err := h.Conversations.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	out := make([]ingress.ConversationView, 0, len(convs))
	for _, cv := range convs {
		out = append(out, toView(cv))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "conversations": out})
}

func (h Handlers) InternalGetConversation(c *gin.Context) {
	conv, ok, err := h.Conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ingress.ConversationResponse{OK: false})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ingress.ConversationResponse{OK: false})
		return
	}
	view := toView(conv)
	c.JSON(http.StatusOK, ingress.ConversationResponse{OK: true, Conversation: &view})
}

func toView(cv conversation.Conversation) ingress.ConversationView {
	return ingress.ConversationView{
		ID:                    cv.ID,
		TenantKey:             cv.TenantKey,
		Channel:               string(cv.Channel),
		Status:                cv.Status,
		Intent:                cv.Intent,
		LeadScore:             cv.LeadScore,
		LastCustomerMessageAt: cv.LastCustomerMessageAt,
		LastAgentMessageAt:    cv.LastAgentMessageAt,
		Overdue:               cv.Overdue,
	}
}
