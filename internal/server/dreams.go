package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	generationdomain "github.com/smallbiznis/dreamforge/internal/generation/domain"
)

type createDreamRequest struct {
	DreamText string `json:"dreamText"`
	ArtistID  string `json:"artistId"`
	Language  string `json:"language"`
}

func (s *Server) CreateDream(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createDreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generation.Generate(c.Request.Context(), generationdomain.Request{
		AccountID: account.ID,
		DreamText: req.DreamText,
		ArtistID:  req.ArtistID,
		Language:  req.Language,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListMyDreams(c *gin.Context) {
	account, ok := accountFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	artifacts, err := s.generation.ListByAccount(c.Request.Context(), account.ID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": artifacts})
}

// parseLimit accepts an empty value as "service default".
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, newValidationError("limit", "invalid_limit", "limit must be a positive integer")
	}
	return limit, nil
}
