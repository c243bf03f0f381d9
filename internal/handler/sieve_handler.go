package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sievehub/internal/filter"
	"sievehub/internal/service"
)

type SieveHandler struct {
	svc service.SieveService
}

func NewSieveHandler(svc service.SieveService) *SieveHandler {
	return &SieveHandler{svc: svc}
}

func (h *SieveHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/follow", h.Follow)
	rg.DELETE("/:id/follow", h.Unfollow)
	rg.GET("/mine", h.Mine)
	rg.GET("/followed", h.Followed)
}

type createSieveRequest struct {
	Name             string                         `json:"name" binding:"required"`
	Description      string                         `json:"description"`
	Visibility       string                         `json:"visibility"`
	TargetPath       string                         `json:"target_path"`
	FilterConditions *filter.StoredFilterConditions `json:"filter_conditions"`
}

type updateSieveRequest struct {
	Name             *string                        `json:"name"`
	Description      *string                        `json:"description"`
	Visibility       *string                        `json:"visibility"`
	TargetPath       *string                        `json:"target_path"`
	FilterConditions *filter.StoredFilterConditions `json:"filter_conditions"`
}

func (h *SieveHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createSieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieve, err := h.svc.CreateSieve(ctx, service.CreateSieveInput{
		Name:             req.Name,
		Description:      req.Description,
		Visibility:       req.Visibility,
		CreatorID:        userID,
		TargetPath:       req.TargetPath,
		FilterConditions: req.FilterConditions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sieve": sieve})
}

func (h *SieveHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateSieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieve, err := h.svc.UpdateSieve(ctx, service.UpdateSieveInput{
		SieveID:          c.Param("id"),
		UserID:           userID,
		Name:             req.Name,
		Description:      req.Description,
		Visibility:       req.Visibility,
		TargetPath:       req.TargetPath,
		FilterConditions: req.FilterConditions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sieve": sieve})
}

func (h *SieveHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	preserve := c.Query("preserve_share_link") == "true"
	if err := h.svc.DeleteSieve(ctx, c.Param("id"), userID, preserve); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SieveHandler) Follow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieve, err := h.svc.FollowSieve(ctx, c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sieve": sieve})
}

func (h *SieveHandler) Unfollow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieve, err := h.svc.UnfollowSieve(ctx, c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sieve": sieve})
}

func (h *SieveHandler) Mine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieves, err := h.svc.GetUserSieves(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sieves": sieves})
}

func (h *SieveHandler) Followed(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieves, err := h.svc.GetUserFollowedSieves(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sieves": sieves})
}

// ByCreator lists a creator's public sieves; registered outside the sieve
// group because it keys on the creator, not the caller.
func (h *SieveHandler) ByCreator(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sieves, err := h.svc.GetPublicSievesByCreator(ctx, c.Param("creator_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sieves": sieves})
}
