package main

import (
	"github.com/gin-gonic/gin"

	"leadinbox/internal/httpapi"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, webhookMW, internalMW, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Healthz)

	// Provider webhooks (public path, HMAC-verified body).
	webhooks := r.Group("/webhooks")
	webhooks.Use(webhookMW)
	{
		webhooks.POST("/whatsapp", h.WebhookWhatsApp)
		webhooks.POST("/instagram", h.WebhookInstagram)
	}

	// Signed service-to-service ingress. The worker process writes state
	// exclusively through these.
	internal := r.Group("/internal")
	internal.Use(internalMW)
	{
		internal.POST("/ingest", h.InternalIngest)
		internal.POST("/intent", h.InternalIntent)
		internal.POST("/ai/classified", h.InternalClassified)
		internal.POST("/ai/draft", h.InternalDraft)
		internal.POST("/followup/overdue", h.InternalOverdue)
		internal.GET("/conversations", h.InternalListConversations)
		internal.GET("/conversations/:id", h.InternalGetConversation)
	}

	// Operator surface (JWT bearer).
	ops := r.Group("/")
	ops.Use(authMW)
	{
		ops.GET("/conversations", h.ListConversations)
		ops.GET("/conversations/:id/messages", h.ListMessages)
		ops.POST("/conversations/:id/send", h.Send)
		ops.POST("/conversations/:id/status", h.SetStatus)
		ops.GET("/ai/drafts/latest/:id", h.LatestDraft)
		ops.GET("/reports/daily", h.DailyReport)
		ops.GET("/reports/nightly/latest", h.LatestNightlyReport)
		ops.GET("/reports/nightly/all", h.AllNightlyReports)
		ops.GET("/debug/state", h.DebugState)
	}
}
