package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	v := NewVerifier("topsecret")
	body := []byte(`{"entry":[]}`)

	if !v.Verify(body, sign("topsecret", string(body))) {
		t.Fatalf("valid signature rejected")
	}
	if v.Verify(body, sign("wrongsecret", string(body))) {
		t.Fatalf("signature from wrong secret accepted")
	}
	if v.Verify(body, "") {
		t.Fatalf("missing signature accepted")
	}
	if v.Verify(body, "md5=abc") {
		t.Fatalf("wrong scheme accepted")
	}
	if v.Verify([]byte(`{"entry":[1]}`), sign("topsecret", string(body))) {
		t.Fatalf("signature over different body accepted")
	}
}

func TestVerifyOpenMode(t *testing.T) {
	v := NewVerifier("")
	if !v.Open() {
		t.Fatalf("empty secret should be open mode")
	}
	if !v.Verify([]byte("anything"), "") {
		t.Fatalf("open mode must accept unsigned payloads")
	}
	if got := v.Sign([]byte("anything")); got != "" {
		t.Fatalf("open mode must not produce signatures, got %q", got)
	}
}

func TestSignRoundTrip(t *testing.T) {
	v := NewVerifier("s2s")
	body := []byte(`{"conversation_id":"conv_1"}`)
	if !v.Verify(body, v.Sign(body)) {
		t.Fatalf("self-signed body did not verify")
	}
}

func TestRequireWebhookMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier("whsec")

	r := gin.New()
	var seenBody string
	r.POST("/hook", RequireWebhook(v), func(c *gin.Context) {
		b := make([]byte, 64)
		n, _ := c.Request.Body.Read(b)
		seenBody = string(b[:n])
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	body := `{"object":"whatsapp_business_account"}`

	// valid signature: processed, body readable downstream
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set(HeaderWebhook, sign("whsec", body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seenBody != body {
		t.Fatalf("handler saw body %q, want %q", seenBody, body)
	}

	// bad signature: rejected before the handler runs
	seenBody = ""
	req = httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set(HeaderWebhook, Prefix+"deadbeef")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if seenBody != "" {
		t.Fatalf("rejected payload must not be processed")
	}
}

func TestRequireInternalExemptsGET(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier("s2s")

	r := gin.New()
	grp := r.Group("/internal", RequireInternal(v))
	grp.GET("/conversations", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	grp.POST("/ingest", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/internal/conversations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET must be exempt, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/ingest", strings.NewReader("{}"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned POST must be rejected, got %d", w.Code)
	}
}
