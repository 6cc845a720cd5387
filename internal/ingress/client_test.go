package ingress

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadinbox/internal/signature"
)

func TestPostSignsSerializedBody(t *testing.T) {
	v := signature.NewVerifier("internal-secret")

	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(signature.HeaderInternal)
		gotBody, _ = io.ReadAll(r.Body)
		if r.Header.Get(signature.HeaderInternalTimestamp) == "" {
			t.Error("timestamp header missing")
		}
		_ = json.NewEncoder(w).Encode(StatusResponse{OK: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, v)
	err := c.PostClassified(context.Background(), ClassifiedRequest{
		ExternalMessageID: "wamid.1", Intent: "price_inquiry", Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !v.Verify(gotBody, gotSig) {
		t.Fatalf("signature %q does not cover the body sent", gotSig)
	}
}

func TestPostOpenModeOmitsSignature(t *testing.T) {
	var sawSig bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSig = r.Header.Get(signature.HeaderInternal) != ""
		_ = json.NewEncoder(w).Encode(StatusResponse{OK: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, signature.NewVerifier(""))
	if err := c.MarkOverdue(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sawSig {
		t.Fatal("open mode must not send a signature header")
	}
}

func TestPostNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, signature.NewVerifier(""))
	if err := c.PostDraft(context.Background(), DraftRequest{ExternalMessageID: "m", Draft: "d"}); err == nil {
		t.Fatal("expected error on 502 so the queue retries")
	}
}

func TestGetConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/conversations/c1":
			view := ConversationView{ID: "c1", TenantKey: "123456", Status: "new"}
			_ = json.NewEncoder(w).Encode(ConversationResponse{OK: true, Conversation: &view})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, signature.NewVerifier(""))

	view, ok, err := c.GetConversation(context.Background(), "c1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if view.ID != "c1" || view.TenantKey != "123456" {
		t.Fatalf("view = %+v", view)
	}

	_, ok, err = c.GetConversation(context.Background(), "missing")
	if err != nil {
		t.Fatalf("404 must not be an error: %v", err)
	}
	if ok {
		t.Fatal("missing conversation reported ok")
	}
}

func TestIngestRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(IngestResponse{OK: true, Status: "ingested", ConversationID: "c9"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, signature.NewVerifier(""))
	res, err := c.Ingest(context.Background(), IngestRequest{
		TenantKey: "123456", Channel: "wa",
		ExternalContactID: "905551112233", ExternalMessageID: "wamid.9",
		Direction: "in", Type: "text",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.ConversationID != "c9" || res.Status != "ingested" {
		t.Fatalf("res = %+v", res)
	}
}
