package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix is the scheme tag carried on signature headers.
const Prefix = "sha256="

// Verifier checks an HMAC-SHA256 signature over exact raw body bytes.
//
// Trust model:
// - A Verifier covers exactly one trust domain (provider webhooks or the
//   internal service-to-service channel). Domains never share a secret.
// - An empty secret means open mode: every payload verifies. This exists for
//   local development only and is surfaced to operators at startup.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) Verifier {
	return Verifier{secret: []byte(secret)}
}

// Open reports whether the verifier runs in open mode (no secret configured).
func (v Verifier) Open() bool { return len(v.secret) == 0 }

// Verify checks claimed (the full header value, "sha256=<hex>") against body.
// Comparison is constant-time. A missing header fails closed unless the
// verifier is in open mode.
func (v Verifier) Verify(body []byte, claimed string) bool {
	if v.Open() {
		return true
	}
	if !strings.HasPrefix(claimed, Prefix) {
		return false
	}
	want := v.Sign(body)
	return hmac.Equal([]byte(claimed), []byte(want))
}

// Sign computes the header value for body: "sha256=" + hex(hmac-sha256(body)).
// In open mode it returns "" and callers omit the header.
func (v Verifier) Sign(body []byte) string {
	if v.Open() {
		return ""
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}
