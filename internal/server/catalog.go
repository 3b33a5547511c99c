package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// packView exposes the bindings so the client can pick the checkout variant
// for its provider.
type packView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Credits  int64             `json:"credits"`
	Variants map[string]string `json:"providerVariantBindings"`
}

func (s *Server) ListArtists(c *gin.Context) {
	artists, err := s.artists.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": artists})
}

func (s *Server) ListCreditPacks(c *gin.Context) {
	packs, err := s.packs.List(c.Request.Context(), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]packView, 0, len(packs))
	for _, pack := range packs {
		views = append(views, packView{
			ID:       pack.ID,
			Name:     pack.Name,
			Credits:  pack.CreditAmount,
			Variants: pack.Bindings(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}
