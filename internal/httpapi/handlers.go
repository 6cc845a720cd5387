package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leadinbox/internal/ailog"
	"leadinbox/internal/channel"
	"leadinbox/internal/conversation"
	"leadinbox/internal/reporting"
	"leadinbox/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Request-scoped logging comes from the gin context (logger.FromGin), so the
// trace id set by the logging middleware rides along automatically.

type Handlers struct {
	Conversations *conversation.Service
	AILog         *ailog.Service
	Reports       *reporting.Service

	// Clock backs the daily report; injectable for tests.
	Clock func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// --- Webhooks ---

// Webhook ingestion always answers 200 {ok:true} once the signature check has
// passed. Meta treats non-2xx as a delivery failure and retries with backoff;
// a payload we cannot use is dropped, not bounced.
func (h Handlers) WebhookWhatsApp(c *gin.Context) {
	h.handleWebhook(c, channel.NormalizeWhatsApp)
}

func (h Handlers) WebhookInstagram(c *gin.Context) {
	h.handleWebhook(c, channel.NormalizeInstagram)
}

func (h Handlers) handleWebhook(c *gin.Context, normalize func([]byte, time.Time) channel.Webhook) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	log := logger.FromGin(c)
	wh := normalize(body, h.now().UTC())
	for _, m := range wh.Messages {
		res, err := h.Conversations.Ingest(c.Request.Context(), conversation.IngestRequest{
			TenantKey:         wh.TenantKey,
			Channel:           m.Channel,
			ExternalContactID: m.SenderExternalID,
			ExternalMessageID: m.ExternalMessageID,
			Direction:         conversation.DirectionIn,
			Type:              conversation.TypeText,
			Body:              m.Text,
			Meta:              map[string]any{},
			Timestamp:         m.Timestamp,
		})
		if err != nil {
			log.Error("webhook ingest failed", "message_id", m.ExternalMessageID, "err", err)
			continue
		}
		if res.Status != conversation.IngestOK {
			log.Info("webhook message skipped",
				"message_id", m.ExternalMessageID, "status", string(res.Status))
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
