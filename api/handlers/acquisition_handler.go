package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
	"go.uber.org/zap"
)

// AcquisitionService is the part of the acquisition manager the HTTP API drives
type AcquisitionService interface {
	IsRunning() bool
	InFlight() int
	Acquire(ctx context.Context, entries []*domain.AcquisitionEntry) (*app.Task, error)
	GetEntry(id string) (*domain.AcquisitionEntry, error)
	ListEntries(filter domain.EntryFilter) ([]*domain.AcquisitionEntry, error)
	GetStats() (*domain.EntryStats, error)
	ListBatches() []app.BatchInfo
	GetBatch(batchID string) (app.BatchInfo, error)
	Cancel(batchID string) error
}

// AcquisitionHandler handles acquisition-related HTTP requests
type AcquisitionHandler struct {
	manager AcquisitionService
	logger  *zap.Logger
}

// NewAcquisitionHandler creates a new acquisition handler
func NewAcquisitionHandler(manager AcquisitionService, logger *zap.Logger) *AcquisitionHandler {
	return &AcquisitionHandler{
		manager: manager,
		logger:  logger,
	}
}

// AcquireRequest lists the search results chosen for download
type AcquireRequest struct {
	Tracks []domain.ScoredTrack `json:"tracks"`
	Albums []domain.ScoredAlbum `json:"albums"`
}

// BatchSummary identifies one submitted batch
type BatchSummary struct {
	ID       string   `json:"id"`
	EntryIDs []string `json:"entry_ids"`
}

// AcquireResponse describes the session once every batch was submitted or gave up
type AcquireResponse struct {
	SessionID string                     `json:"session_id"`
	Batches   []BatchSummary             `json:"batches"`
	Errored   []*domain.AcquisitionEntry `json:"errored"`
}

// Acquire handles POST /api/v1/acquisitions
func (h *AcquisitionHandler) Acquire(c *gin.Context) {
	var req AcquireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := make([]*domain.AcquisitionEntry, 0, len(req.Tracks)+len(req.Albums))
	for _, t := range req.Tracks {
		entries = append(entries, domain.NewTrackEntry(t))
	}
	for _, a := range req.Albums {
		if len(a.Tracks) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "album " + a.Title + " has no tracks"})
			return
		}
		entries = append(entries, domain.NewAlbumEntry(a))
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to acquire"})
		return
	}

	task, err := h.manager.Acquire(c.Request.Context(), entries)
	if err != nil {
		h.logger.Error("Failed to start acquisition", zap.Error(err))
		respondError(c, err)
		return
	}

	// Batch entries belong to running pipelines now; only their IDs are read here
	resp := AcquireResponse{
		SessionID: task.SessionID,
		Batches:   make([]BatchSummary, 0, len(task.Batches)),
		Errored:   task.Errored,
	}
	for _, b := range task.Batches {
		resp.Batches = append(resp.Batches, BatchSummary{ID: b.ID, EntryIDs: b.EntryIDs()})
	}
	if resp.Errored == nil {
		resp.Errored = []*domain.AcquisitionEntry{}
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetEntry handles GET /api/v1/acquisitions/:id
func (h *AcquisitionHandler) GetEntry(c *gin.Context) {
	entry, err := h.manager.GetEntry(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListEntries handles GET /api/v1/acquisitions
func (h *AcquisitionHandler) ListEntries(c *gin.Context) {
	filter := domain.EntryFilter{
		State:     domain.EntryState(c.Query("state")),
		SessionID: c.Query("session_id"),
		BatchID:   c.Query("batch_id"),
	}
	if filter.State != "" && !domain.ValidateState(filter.State) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state " + string(filter.State)})
		return
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	entries, err := h.manager.ListEntries(filter)
	if err != nil {
		h.logger.Error("Failed to list entries", zap.Error(err))
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*domain.AcquisitionEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

// GetStats handles GET /api/v1/acquisitions/stats
func (h *AcquisitionHandler) GetStats(c *gin.Context) {
	stats, err := h.manager.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListBatches handles GET /api/v1/batches
func (h *AcquisitionHandler) ListBatches(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.ListBatches())
}

// GetBatch handles GET /api/v1/batches/:id
func (h *AcquisitionHandler) GetBatch(c *gin.Context) {
	info, err := h.manager.GetBatch(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// CancelBatch handles POST /api/v1/batches/:id/cancel
func (h *AcquisitionHandler) CancelBatch(c *gin.Context) {
	id := c.Param("id")

	if err := h.manager.Cancel(id); err != nil {
		h.logger.Warn("Failed to cancel batch", zap.String("batch_id", id), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "batch cancelled"})
}
