// Package signature verifies HMAC-SHA256 webhook signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/smallbiznis/dreamforge/internal/payment/domain"
)

// Verify checks a hex HMAC-SHA256 of the raw body. An empty secret fails
// closed with ErrWebhookNotConfigured.
func Verify(payload []byte, header, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return domain.ErrWebhookNotConfigured
	}
	received := strings.ToLower(strings.TrimSpace(header))
	received = strings.TrimPrefix(received, "sha256=")
	if received == "" {
		return domain.ErrInvalidSignature
	}

	expected := Sign(payload, secret)
	if !hmac.Equal([]byte(received), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
