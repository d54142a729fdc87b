package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"caretaker.app/relay/internal/security"
)

// MaxWebhookBodyBytes caps how much of a webhook request is read into memory.
const MaxWebhookBodyBytes = 2 << 20

// ReadBody reads at most MaxWebhookBodyBytes of the request body. On failure it
// aborts with 413 or 400 and returns false.
func ReadBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return nil, false
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}
	return body, true
}

// RequireSignature authenticates the request against the exact body bytes the
// sender signed, then restores the body so handlers can bind it as usual. Every
// rejection gets the same response.
func RequireSignature(gate *security.Gate, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := ReadBody(c)
		if !ok {
			return
		}

		err := gate.Verify(c.Request.Context(), security.VerifyRequest{
			Payload:   body,
			Signature: c.GetHeader(header),
			ClientIP:  c.ClientIP(),
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
