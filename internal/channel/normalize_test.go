package channel

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeWhatsApp(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {
			"metadata": {"phone_number_id": "123456"},
			"messages": [
				{"id": "wamid.1", "from": "905551112233", "timestamp": "1767225600", "text": {"body": "randevu almak istiyorum"}},
				{"id": "wamid.2", "from": "905551112233", "text": {"body": "merhaba"}}
			]
		}}]}]
	}`)

	w := NormalizeWhatsApp(body, now)
	if w.TenantKey != "123456" {
		t.Fatalf("tenant key = %q, want 123456", w.TenantKey)
	}
	if len(w.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(w.Messages))
	}
	m := w.Messages[0]
	if m.Channel != WhatsApp || m.SenderExternalID != "905551112233" || m.ExternalMessageID != "wamid.1" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Text != "randevu almak istiyorum" {
		t.Fatalf("text = %q", m.Text)
	}
	if m.Timestamp != time.Unix(1767225600, 0).UTC() {
		t.Fatalf("timestamp = %v", m.Timestamp)
	}
	// missing timestamp falls back to ingestion time
	if w.Messages[1].Timestamp != now {
		t.Fatalf("fallback timestamp = %v, want %v", w.Messages[1].Timestamp, now)
	}
}

func TestNormalizeInstagram(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {
			"page_id": "789",
			"messages": [{"id": "igm.1", "from": "user42", "timestamp": 1767225600, "text": "fiyat nedir"}]
		}}]}]
	}`)

	w := NormalizeInstagram(body, now)
	if w.TenantKey != "789" {
		t.Fatalf("tenant key = %q, want 789", w.TenantKey)
	}
	if len(w.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(w.Messages))
	}
	if w.Messages[0].Channel != Instagram || w.Messages[0].Text != "fiyat nedir" {
		t.Fatalf("unexpected message: %+v", w.Messages[0])
	}
}

func TestNormalizeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{{{`,
		"empty object":    `{}`,
		"empty entry":     `{"entry": []}`,
		"wrong shapes":    `{"entry": [{"changes": [{"value": 7}]}]}`,
		"no messages":     `{"entry": [{"changes": [{"value": {"metadata": {"phone_number_id": "1"}}}]}]}`,
		"message no id":   `{"entry": [{"changes": [{"value": {"messages": [{"from": "x"}]}}]}]}`,
		"message no from": `{"entry": [{"changes": [{"value": {"messages": [{"id": "x"}]}}]}]}`,
	}
	for name, body := range cases {
		w := NormalizeWhatsApp([]byte(body), now)
		if len(w.Messages) != 0 {
			t.Fatalf("%s: expected no messages, got %d", name, len(w.Messages))
		}
		w = NormalizeInstagram([]byte(body), now)
		if len(w.Messages) != 0 {
			t.Fatalf("%s (ig): expected no messages, got %d", name, len(w.Messages))
		}
	}
}

func TestNormalizeKeepsTenantKeyWithoutMessages(t *testing.T) {
	// A status-only webhook still identifies the tenant; ingestion just has
	// nothing to persist.
	body := []byte(`{"entry": [{"changes": [{"value": {"metadata": {"phone_number_id": "123456"}, "statuses": [{}]}}]}]}`)
	w := NormalizeWhatsApp(body, now)
	if w.TenantKey != "123456" {
		t.Fatalf("tenant key = %q", w.TenantKey)
	}
	if len(w.Messages) != 0 {
		t.Fatalf("expected no messages")
	}
}
