package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sievehub/internal/service"
)

// ShareHandler resolves public share codes. No auth: share links are the
// public entry point to a sieve.
type ShareHandler struct {
	shares service.ShareLinks
}

func NewShareHandler(shares service.ShareLinks) *ShareHandler {
	return &ShareHandler{shares: shares}
}

func (h *ShareHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:code", h.Resolve)
}

func (h *ShareHandler) Resolve(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	payload, err := h.shares.GetSharePayload(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	if payload == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "share link not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"share": payload})
}
