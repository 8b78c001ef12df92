package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/api/handlers"
	"github.com/yourusername/cratedig-go/api/middleware"
	"github.com/yourusername/cratedig-go/internal/progress"
	"github.com/yourusername/cratedig-go/pkg/logger"
)

// Services are the application components the router exposes
type Services struct {
	Acquisition handlers.AcquisitionService
	Search      handlers.Searcher
	Downloader  handlers.Pinger
	Importer    handlers.Checker
	Backends    handlers.BackendCatalog
	Hub         *progress.Hub
	LogsDir     string
}

// SetupRouter sets up the HTTP router
func SetupRouter(services Services, log *zap.Logger, multiLogger *logger.MultiLogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log, multiLogger))
	router.Use(middleware.Recovery(log, multiLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(services.Acquisition, services.Downloader, services.Importer, services.Backends)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		system := v1.Group("/system")
		{
			system.GET("/health", healthHandler.SystemHealth)
			system.GET("/backends", healthHandler.Backends)
		}

		searchHandler := handlers.NewSearchHandler(services.Search, log)
		search := v1.Group("/search")
		{
			search.POST("/tracks", searchHandler.SearchTracks)
			search.POST("/albums", searchHandler.SearchAlbums)
		}

		acquisitionHandler := handlers.NewAcquisitionHandler(services.Acquisition, log)
		acquisitions := v1.Group("/acquisitions")
		{
			acquisitions.POST("", acquisitionHandler.Acquire)
			acquisitions.GET("", acquisitionHandler.ListEntries)
			acquisitions.GET("/stats", acquisitionHandler.GetStats)
			acquisitions.GET("/:id", acquisitionHandler.GetEntry)
		}

		batches := v1.Group("/batches")
		{
			batches.GET("", acquisitionHandler.ListBatches)
			batches.GET("/:id", acquisitionHandler.GetBatch)
			batches.POST("/:id/cancel", acquisitionHandler.CancelBatch)
		}

		progressHandler := handlers.NewProgressWebSocketHandler(services.Hub, log)
		v1.GET("/progress/ws", progressHandler.HandleWebSocket)

		logHandler := handlers.NewLogHandler(services.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}
