package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dreamforge/internal/payment/checkout"
)

type createCheckoutRequest struct {
	VariantID string `json:"variantId"`
}

// CreateCheckout opens a hosted Lemon Squeezy checkout carrying the caller's
// account id, which the webhook later uses to credit the right account.
func (s *Server) CreateCheckout(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	url, err := s.checkout.Create(c.Request.Context(), checkout.Request{
		AccountID: account.ID,
		Email:     account.Email,
		VariantID: req.VariantID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
