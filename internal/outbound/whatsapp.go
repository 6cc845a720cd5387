package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"leadinbox/internal/config"
)

// GraphSender dispatches WhatsApp messages through the Graph API. It is a
// thin API wrapper: the window policy has already decided text vs template by
// the time a call lands here.
//
// Without a token it runs in dev mode: every send succeeds locally with a
// fake message id, so the full pipeline works against provider test consoles.
type GraphSender struct {
	token   string
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

const templateLanguage = "tr"

func NewGraphSender(cfg config.GraphConfig, log *slog.Logger) *GraphSender {
	if log == nil {
		log = slog.Default()
	}
	return &GraphSender{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (g *GraphSender) SendText(ctx context.Context, tenantKey, to, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return g.post(ctx, tenantKey, payload)
}

func (g *GraphSender) SendTemplate(ctx context.Context, tenantKey, to, template string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":     template,
			"language": map[string]string{"code": templateLanguage},
		},
	}
	return g.post(ctx, tenantKey, payload)
}

func (g *GraphSender) post(ctx context.Context, phoneNumberID string, payload map[string]any) error {
	if g.token == "" {
		g.log.Debug("graph send skipped (dev mode)", "fake_id", "wa_fake_"+uuid.NewString())
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", g.baseURL, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("graph send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
