package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/api"
	"github.com/yourusername/cratedig-go/api/handlers"
	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/infrastructure"
	"github.com/yourusername/cratedig-go/internal/progress"
	"github.com/yourusername/cratedig-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.cratedig, /etc/cratedig)")

func main() {
	flag.Parse()

	if err := runServer(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cratedig-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(configPath string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Per-category JSON logs: acquisition, import, error
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	// One server per history database
	dataDir := filepath.Dir(config.Store.DatabasePath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(dataDir, "cratedig.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another cratedig server is already running")
	}
	defer lock.Unlock()

	log.Info("Starting cratedig server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("backend", string(config.Slskd.Backend)),
		zap.String("importer", string(config.Import.Importer)))

	repo, err := infrastructure.NewSQLiteEntryRepository(config.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	service, err := infrastructure.NewDownloadService(config, log)
	if err != nil {
		return err
	}
	importer, err := infrastructure.NewImporter(config, log)
	if err != nil {
		return err
	}

	hub := progress.NewHub(config.Progress.SubscriberBuffer)
	defer hub.Close()

	manager := app.NewAcquisitionManager(service, importer, repo, hub, config, multiLog, log.Named("acquisition"))
	search := app.NewSearchService(service, config.Matching, log.Named("search"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start acquisition manager: %w", err)
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, repo, log.Named("notify"))
	go notifier.Watch(ctx, hub.Subscribe())

	router := api.SetupRouter(api.Services{
		Acquisition: manager,
		Search:      search,
		Downloader:  service,
		Importer:    importer,
		Backends:    backendCatalog(config),
		Hub:         hub,
		LogsDir:     config.Logging.LogsDir,
	}, log, multiLog)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Monitoring batches settle as cancelled and running imports finish while
	// the hub still delivers their snapshots to subscribers
	log.Info("Stopping acquisition manager", zap.Int("in_flight", manager.InFlight()))
	if err := manager.Stop(); err != nil {
		log.Error("Error stopping acquisition manager", zap.Error(err))
	}

	// Websocket clients are ended by closing the hub, which Shutdown does not do
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func backendCatalog(config *domain.Config) handlers.BackendCatalog {
	catalog := handlers.BackendCatalog{
		ActiveDownload: string(config.Slskd.Backend),
		ActiveImporter: string(config.Import.Importer),
	}
	for _, id := range infrastructure.BackendIDs() {
		catalog.Download = append(catalog.Download, string(id))
	}
	for _, id := range infrastructure.ImporterIDs() {
		catalog.Importers = append(catalog.Importers, string(id))
	}
	return catalog
}
