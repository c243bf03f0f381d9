package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sievehub/internal/models"
	"sievehub/internal/repository"
	"sievehub/internal/service"
)

// QueueAdminHandler exposes the maintenance surface of the notification
// queue. Mount it behind an admin-only middleware.
type QueueAdminHandler struct {
	svc service.QueueService
}

func NewQueueAdminHandler(svc service.QueueService) *QueueAdminHandler {
	return &QueueAdminHandler{svc: svc}
}

func (h *QueueAdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/enqueue", h.Enqueue)
	rg.GET("/stats", h.Stats)
	rg.GET("/failed", h.Failed)
	rg.POST("/retry", h.Retry)
	rg.POST("/cancel", h.Cancel)
	rg.POST("/cleanup", h.Cleanup)
}

type enqueueRequest struct {
	Type           string     `json:"type" binding:"required"`
	UserID         string     `json:"user_id"`
	ProjectID      string     `json:"project_id" binding:"required"`
	ProposalID     string     `json:"proposal_id"`
	ItemProposalID string     `json:"item_proposal_id"`
	VoterID        string     `json:"voter_id"`
	Reward         float64    `json:"reward"`
	Priority       int        `json:"priority"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	MaxAttempts    int        `json:"max_attempts"`
}

// Enqueue accepts a platform event and inserts it as a pending job. The
// service validates the field/type pairing; delivery happens in the worker.
func (h *QueueAdminHandler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	event := models.NotificationEvent{
		Type:           req.Type,
		UserID:         req.UserID,
		ProjectID:      req.ProjectID,
		ProposalID:     req.ProposalID,
		ItemProposalID: req.ItemProposalID,
		VoterID:        req.VoterID,
		Reward:         req.Reward,
	}
	opts := repository.EnqueueOptions{
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
	}
	if req.ScheduledAt != nil {
		opts.ScheduledAt = *req.ScheduledAt
	}

	job, err := h.svc.Enqueue(ctx, event, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

func (h *QueueAdminHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *QueueAdminHandler) Failed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	jobs, err := h.svc.FailedJobs(ctx, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

type jobIDsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *QueueAdminHandler) Retry(c *gin.Context) {
	var req jobIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	retried, err := h.svc.RetryFailed(ctx, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retried": retried})
}

func (h *QueueAdminHandler) Cancel(c *gin.Context) {
	var req jobIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	cancelled, err := h.svc.Cancel(ctx, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (h *QueueAdminHandler) Cleanup(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	deleted, err := h.svc.Cleanup(ctx, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
