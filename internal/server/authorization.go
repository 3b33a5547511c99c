package server

import (
	"github.com/gin-gonic/gin"
)

// authorizeAction gates admin routes on the caller's role. It must run after
// BearerAuth.
func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authz.Authorize(c.Request.Context(), account, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
