package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"leadinbox/internal/signature"
)

// Client is how workers reach the conversation store: over the signed
// internal ingress, never by touching storage directly. Keeping every
// mutation on this path preserves the single-writer discipline even when the
// worker and api processes are colocated.
type Client struct {
	baseURL string
	signer  signature.Verifier
	http    *http.Client
	clock   func() time.Time
}

func NewClient(baseURL string, signer signature.Verifier) *Client {
	return &Client{
		baseURL: baseURL,
		signer:  signer,
		http:    &http.Client{Timeout: 10 * time.Second},
		clock:   time.Now,
	}
}

// Ingest pushes one normalized message into the store and returns the
// conversation id (empty for unknown-tenant outcomes).
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestResponse, error) {
	var out IngestResponse
	if err := c.post(ctx, "/internal/ingest", req, &out); err != nil {
		return IngestResponse{}, err
	}
	return out, nil
}

func (c *Client) PostIntent(ctx context.Context, req IntentRequest) error {
	return c.post(ctx, "/internal/intent", req, nil)
}

func (c *Client) PostClassified(ctx context.Context, req ClassifiedRequest) error {
	return c.post(ctx, "/internal/ai/classified", req, nil)
}

func (c *Client) PostDraft(ctx context.Context, req DraftRequest) error {
	return c.post(ctx, "/internal/ai/draft", req, nil)
}

func (c *Client) MarkOverdue(ctx context.Context, conversationID string) error {
	return c.post(ctx, "/internal/followup/overdue", OverdueRequest{ConversationID: conversationID}, nil)
}

// GetConversation reads current conversation state. ok=false means the id is
// unknown to the store.
func (c *Client) GetConversation(ctx context.Context, id string) (ConversationView, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/conversations/"+id, nil)
	if err != nil {
		return ConversationView{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ConversationView{}, false, fmt.Errorf("ingress get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ConversationView{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ConversationView{}, false, fmt.Errorf("ingress get: unexpected status %d", resp.StatusCode)
	}
	var out ConversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ConversationView{}, false, err
	}
	if out.Conversation == nil {
		return ConversationView{}, false, nil
	}
	return *out.Conversation, true, nil
}

// post signs the exact serialized body and decodes the response into out when
// non-nil. Internal endpoints answer 2xx with soft statuses in the body;
// anything else is a transport-level failure for the queue to retry.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sig := c.signer.Sign(raw); sig != "" {
		req.Header.Set(signature.HeaderInternal, sig)
		req.Header.Set(signature.HeaderInternalTimestamp, strconv.FormatInt(c.clock().UnixMilli(), 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ingress post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingress post %s: unexpected status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
