package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	"github.com/smallbiznis/dreamforge/pkg/db/pagination"
)

type meResponse struct {
	ID       string             `json:"id"`
	Credits  int64              `json:"credits"`
	Tier     accountdomain.Tier `json:"tier"`
	IsBanned bool               `json:"isBanned"`
}

func (s *Server) GetMe(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, meResponse{
		ID:       account.ID,
		Credits:  account.CreditBalance,
		Tier:     account.Tier,
		IsBanned: account.IsBanned,
	})
}

func (s *Server) ListMyTransactions(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, info, err := s.ledger.ListTransactions(c.Request.Context(), account.ID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      items,
		"page_info": info,
	})
}
