package signature

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderWebhook carries the provider signature on inbound webhooks.
	HeaderWebhook = "X-Hub-Signature-256"
	// HeaderInternal carries the service-to-service signature.
	HeaderInternal = "X-Internal-Signature"
	// HeaderInternalTimestamp accompanies internal signatures for correlation.
	HeaderInternalTimestamp = "X-Internal-Timestamp"
)

// RequireWebhook verifies the provider signature over the raw request body.
// A rejected payload is never processed; the provider sees 401 and may retry
// with a correctly signed request.
func RequireWebhook(v Verifier) gin.HandlerFunc {
	return requireHeader(v, HeaderWebhook)
}

// RequireInternal verifies the internal signature over the raw request body.
// GET requests have no body and no side effects; they are exempt.
func RequireInternal(v Verifier) gin.HandlerFunc {
	inner := requireHeader(v, HeaderInternal)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		inner(c)
	}
}

func requireHeader(v Verifier, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
			return
		}
		// Hand the bytes back so handlers can bind as usual.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !v.Verify(body, c.GetHeader(header)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
			return
		}
		c.Next()
	}
}
