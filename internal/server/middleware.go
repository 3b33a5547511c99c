package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	obscontext "github.com/smallbiznis/dreamforge/internal/observability/context"
	"github.com/smallbiznis/dreamforge/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	headerAuthorization = "Authorization"
	contextAccountKey   = "account"
)

// BearerAuth verifies the bearer token with the identity provider and makes
// sure the caller has an accounts row. Existing rows are never overwritten.
func (s *Server) BearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(headerAuthorization))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		identity, err := s.identity.Verify(ctx, token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		account, err := s.accounts.EnsureAccount(ctx, accountdomain.EnsureRequest{
			ID:    identity.ID,
			Email: identity.Email,
		})
		if err != nil {
			logger.FromContext(ctx).Error("account provisioning failed", zap.Error(err))
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(obscontext.WithAccountID(ctx, account.ID))
		c.Set(contextAccountKey, account)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func accountFromContext(c *gin.Context) (*accountdomain.Account, bool) {
	value, ok := c.Get(contextAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := value.(*accountdomain.Account)
	return account, ok && account != nil
}
