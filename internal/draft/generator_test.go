package draft

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadinbox/internal/config"
	"leadinbox/internal/llm"
)

func TestCanned(t *testing.T) {
	cases := []struct {
		text   string
		action string
	}{
		{"fiyat nedir", ActionSharePrice},
		{"randevu alabilir miyim", ActionAskSchedule},
		{"kargo ne zaman gelir", ActionShareShipping},
		{"merhaba", ActionAskClarify},
		{"", ActionAskClarify},
	}
	for _, tc := range cases {
		got := Canned(tc.text)
		if got.NextAction != tc.action {
			t.Fatalf("Canned(%q).NextAction = %s, want %s", tc.text, got.NextAction, tc.action)
		}
		if got.Text == "" {
			t.Fatalf("Canned(%q) returned empty draft", tc.text)
		}
	}
}

func TestGenerateUsesModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"draft\":\"Yarın 14:00 uygun mu?\",\"next_action\":\"ask_schedule\"}"}}]}`))
	}))
	defer srv.Close()

	c := llm.NewClient(config.ModelConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	got := NewGenerator(c, nil).Generate(context.Background(), "randevu")
	if got.Text != "Yarın 14:00 uygun mu?" || got.NextAction != ActionAskSchedule {
		t.Fatalf("model draft not used: %+v", got)
	}
}

func TestGenerateFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := llm.NewClient(config.ModelConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	got := NewGenerator(c, nil).Generate(context.Background(), "fiyat?")
	if got.NextAction != ActionSharePrice {
		t.Fatalf("expected canned fallback, got %+v", got)
	}
}

func TestGeneratePatchesPartialAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"draft\":\"Hemen bakıyorum.\",\"next_action\":\"escalate\"}"}}]}`))
	}))
	defer srv.Close()

	c := llm.NewClient(config.ModelConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	got := NewGenerator(c, nil).Generate(context.Background(), "kargo durumu")
	if got.Text != "Hemen bakıyorum." {
		t.Fatalf("valid draft text dropped: %+v", got)
	}
	if got.NextAction != ActionShareShipping {
		t.Fatalf("invalid next_action not replaced: %+v", got)
	}
}
