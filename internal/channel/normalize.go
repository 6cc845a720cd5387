package channel

import (
	"encoding/json"
	"strconv"
	"time"
)

// Inbound is the canonical shape every provider payload normalizes to.
type Inbound struct {
	Channel           Channel
	SenderExternalID  string
	ExternalMessageID string
	Text              string
	Timestamp         time.Time
}

// Webhook is one parsed provider event: the tenant key plus zero or more
// inbound messages.
//
// Extraction is defensive end to end. Meta payloads nest deeply and providers
// occasionally ship partial or malformed events; any missing piece yields an
// empty message list for that payload instead of an error, so one bad event
// can never stall ingestion of the ones behind it.
type Webhook struct {
	TenantKey string
	Messages  []Inbound
}

// Meta webhook envelope, shared by WhatsApp and Instagram with different
// value shapes.
type metaEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value json.RawMessage `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type waValue struct {
	Metadata struct {
		PhoneNumberID string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		Timestamp string `json:"timestamp"`
		Text      struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
}

type igValue struct {
	PageID   string `json:"page_id"`
	Messages []struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		Timestamp int64  `json:"timestamp"`
		Text      string `json:"text"`
	} `json:"messages"`
}

// NormalizeWhatsApp extracts canonical messages from a WhatsApp Cloud API
// webhook body. now supplies the fallback timestamp for messages without one.
func NormalizeWhatsApp(body []byte, now time.Time) Webhook {
	out := Webhook{}
	var env metaEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return out
	}
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			var v waValue
			if err := json.Unmarshal(change.Value, &v); err != nil {
				continue
			}
			if out.TenantKey == "" {
				out.TenantKey = v.Metadata.PhoneNumberID
			}
			for _, m := range v.Messages {
				if m.ID == "" || m.From == "" {
					continue
				}
				out.Messages = append(out.Messages, Inbound{
					Channel:           WhatsApp,
					SenderExternalID:  m.From,
					ExternalMessageID: m.ID,
					Text:              m.Text.Body,
					Timestamp:         waTimestamp(m.Timestamp, now),
				})
			}
		}
	}
	return out
}

// NormalizeInstagram extracts canonical messages from an Instagram messaging
// webhook body.
func NormalizeInstagram(body []byte, now time.Time) Webhook {
	out := Webhook{}
	var env metaEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return out
	}
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			var v igValue
			if err := json.Unmarshal(change.Value, &v); err != nil {
				continue
			}
			if out.TenantKey == "" {
				out.TenantKey = v.PageID
			}
			for _, m := range v.Messages {
				if m.ID == "" || m.From == "" {
					continue
				}
				ts := now
				if m.Timestamp > 0 {
					ts = time.Unix(m.Timestamp, 0).UTC()
				}
				out.Messages = append(out.Messages, Inbound{
					Channel:           Instagram,
					SenderExternalID:  m.From,
					ExternalMessageID: m.ID,
					Text:              m.Text,
					Timestamp:         ts,
				})
			}
		}
	}
	return out
}

// waTimestamp parses the WhatsApp epoch-seconds string, falling back to now
// when absent or zero.
func waTimestamp(s string, now time.Time) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return now
	}
	return time.Unix(sec, 0).UTC()
}
