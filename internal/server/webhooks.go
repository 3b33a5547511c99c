package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dreamforge/internal/observability/logger"
	"go.uber.org/zap"
)

// maxWebhookBody caps how much of a delivery is read before verification.
const maxWebhookBody = 1 << 20

// HandleWebhook acknowledges every verified delivery with 200, including
// duplicates and ignored event types, so providers stop retrying.
func (s *Server) HandleWebhook(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("webhook_provider", provider)

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				AbortWithError(c, newValidationError("body", "payload_too_large", "payload too large"))
				return
			}
			AbortWithError(c, invalidRequestError())
			return
		}

		ctx := c.Request.Context()
		result, err := s.payments.IngestWebhook(ctx, provider, payload, c.Request.Header)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		logger.FromContext(ctx).Debug("webhook acknowledged",
			zap.String("provider", provider),
			zap.String("event_id", result.EventID),
			zap.String("outcome", string(result.Outcome)),
		)
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
