package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadinbox/internal/conversation"
	"leadinbox/internal/reporting"
)

// Operator surface. Read endpoints plus the two write operations an agent
// performs: sending a reply and overriding the business stage.

func (h Handlers) ListConversations(c *gin.Context) {
	convs, err := h.Conversations.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs, "count": len(convs)})
}

func (h Handlers) ListMessages(c *gin.Context) {
	id := c.Param("id")
	if _, ok, err := h.Conversations.Get(c.Request.Context(), id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	} else if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	msgs, err := h.Conversations.Messages(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

type sendRequest struct {
	Text string `json:"text"`
}

// Send dispatches an agent reply. The response reports which message type the
// window policy selected so the operator UI can surface template sends.
func (h Handlers) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}

	sendType, err := h.Conversations.Send(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "type": string(sendType)})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	if err := h.Conversations.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": req.Status})
}

// LatestDraft returns the newest AI draft for a conversation. The draft log
// is keyed by message id, so the conversation's most recent inbound message
// is resolved first; that is the message the drafter replied to.
func (h Handlers) LatestDraft(c *gin.Context) {
	id := c.Param("id")
	if _, ok, err := h.Conversations.Get(c.Request.Context(), id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	} else if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	msgs, err := h.Conversations.Messages(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	var lastInbound string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Direction == conversation.DirectionIn {
			lastInbound = msgs[i].ExternalMessageID
			break
		}
	}
	if lastInbound == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no inbound message"})
		return
	}

	e, ok, err := h.AILog.LatestDraft(c.Request.Context(), lastInbound)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no draft yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message_id":  lastInbound,
		"draft":       e.Draft,
		"next_action": e.NextAction,
		"created_at":  e.CreatedAt,
	})
}

// --- Reports ---

func (h Handlers) DailyReport(c *gin.Context) {
	sum, err := h.Reports.DailySummary(c.Request.Context(), h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) LatestNightlyReport(c *gin.Context) {
	snap, err := h.Reports.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, reporting.ErrNoSnapshot) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no snapshot yet"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h Handlers) AllNightlyReports(c *gin.Context) {
	snaps, err := h.Reports.All(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "count": len(snaps)})
}

// DebugState dumps store counters. Cheap liveness signal for demos and load
// tests, not a metrics substitute.
func (h Handlers) DebugState(c *gin.Context) {
	counts, err := h.Conversations.Counts(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	aiEvents := 0
	if h.AILog != nil {
		if n, err := h.AILog.Count(c.Request.Context()); err == nil {
			aiEvents = n
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"contacts":      counts.Contacts,
		"conversations": counts.Conversations,
		"messages":      counts.Messages,
		"overdue":       counts.Overdue,
		"ai_events":     aiEvents,
	})
}
