package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Version is reported by the health endpoint
const Version = "0.3.0"

const probeTimeout = 15 * time.Second

// RunState reports whether the acquisition manager is accepting work
type RunState interface {
	IsRunning() bool
	InFlight() int
}

// Pinger is a download service that can be asked whether it answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker is an importer that can be asked whether it can run
type Checker interface {
	Check(ctx context.Context) error
}

// BackendCatalog names the registered backends and the configured ones
type BackendCatalog struct {
	Download       []string
	Importers      []string
	ActiveDownload string
	ActiveImporter string
}

// HealthHandler reports on the server and the external tools it drives
type HealthHandler struct {
	manager    RunState
	downloader Pinger
	importer   Checker
	catalog    BackendCatalog
}

// NewHealthHandler creates a new health handler. downloader and importer may
// be nil; they are then reported as unavailable.
func NewHealthHandler(manager RunState, downloader Pinger, importer Checker, catalog BackendCatalog) *HealthHandler {
	return &HealthHandler{
		manager:    manager,
		downloader: downloader,
		importer:   importer,
		catalog:    catalog,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Acquisition struct {
		Running  bool `json:"running"`
		InFlight int  `json:"in_flight"`
	} `json:"acquisition"`
}

// SystemHealthResponse is the state of the download service and the importer
type SystemHealthResponse struct {
	Status           string `json:"status"`
	DownloaderOnline bool   `json:"downloader_online"`
	DownloaderError  string `json:"downloader_error,omitempty"`
	ImporterReady    bool   `json:"importer_ready"`
	ImporterError    string `json:"importer_error,omitempty"`
}

// BackendInfo is one registered backend
type BackendInfo struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// BackendsResponse lists the registered backends per kind
type BackendsResponse struct {
	Download []BackendInfo `json:"download"`
	Importer []BackendInfo `json:"importer"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Acquisition.Running = h.manager.IsRunning()
	response.Acquisition.InFlight = h.manager.InFlight()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.manager.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "acquisition manager not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// SystemHealth handles GET /api/v1/system/health. Both tools are probed
// concurrently; a failing probe degrades the status without failing the request.
func (h *HealthHandler) SystemHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	var downloaderErr, importerErr error
	var g errgroup.Group
	g.Go(func() error {
		if h.downloader == nil {
			downloaderErr = errors.New("download service not configured")
			return nil
		}
		downloaderErr = h.downloader.Ping(ctx)
		return nil
	})
	g.Go(func() error {
		if h.importer == nil {
			importerErr = errors.New("importer not configured")
			return nil
		}
		importerErr = h.importer.Check(ctx)
		return nil
	})
	_ = g.Wait()

	response := SystemHealthResponse{
		Status:           "ok",
		DownloaderOnline: downloaderErr == nil,
		ImporterReady:    importerErr == nil,
	}
	if downloaderErr != nil {
		response.DownloaderError = downloaderErr.Error()
		response.Status = "degraded"
	}
	if importerErr != nil {
		response.ImporterError = importerErr.Error()
		response.Status = "degraded"
	}

	c.JSON(http.StatusOK, response)
}

// Backends handles GET /api/v1/system/backends
func (h *HealthHandler) Backends(c *gin.Context) {
	c.JSON(http.StatusOK, BackendsResponse{
		Download: backendInfos(h.catalog.Download, h.catalog.ActiveDownload),
		Importer: backendInfos(h.catalog.Importers, h.catalog.ActiveImporter),
	})
}

func backendInfos(ids []string, active string) []BackendInfo {
	infos := make([]BackendInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, BackendInfo{ID: id, Active: id == active})
	}
	return infos
}
