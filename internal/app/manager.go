package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/progress"
	"github.com/yourusername/cratedig-go/pkg/logger"
)

var (
	errShutdown      = errors.New("acquisition interrupted by shutdown")
	errUserCancelled = errors.New("cancelled by user")
)

const reasonInterrupted = "interrupted by restart"

// AcquisitionManager runs acquisition sessions: it submits entries and then
// monitors and imports every resulting batch in the background, independently
// of the request that started the session.
type AcquisitionManager struct {
	repo        domain.EntryRepository
	hub         *progress.Hub
	submitter   *Submitter
	monitor     *Monitor
	coordinator *Coordinator
	registry    *batchRegistry
	config      *domain.Config
	multiLogger *logger.MultiLogger
	logger      *zap.Logger

	mu       sync.RWMutex
	running  bool
	lifetime context.Context
	stop     context.CancelCauseFunc
	wg       sync.WaitGroup
}

// NewAcquisitionManager creates a new acquisition manager. repo and
// multiLogger may be nil.
func NewAcquisitionManager(
	service domain.DownloadService,
	importer domain.Importer,
	repo domain.EntryRepository,
	hub *progress.Hub,
	config *domain.Config,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *AcquisitionManager {
	var publisher progress.Publisher
	if hub != nil {
		publisher = hub
	}
	track := newTracker(repo, publisher, logger)

	return &AcquisitionManager{
		repo:        repo,
		hub:         hub,
		submitter:   NewSubmitter(service, track, multiLogger, logger),
		monitor:     NewMonitor(service, config.Monitor, config.Slskd.DownloadDir, track, multiLogger, logger),
		coordinator: NewCoordinator(importer, config.Import, config.Slskd.DownloadDir, track, multiLogger, logger),
		registry:    newBatchRegistry(),
		config:      config,
		multiLogger: multiLogger,
		logger:      logger,
	}
}

// Start enables acquisitions. Background pipelines live until Stop or until ctx is done.
func (m *AcquisitionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("acquisition manager already running")
	}

	m.recoverOrphans()

	m.lifetime, m.stop = context.WithCancelCause(ctx)
	m.running = true
	if m.multiLogger != nil {
		m.multiLogger.LogAcquisitionEvent("manager_started")
	}
	return nil
}

// Stop cancels the monitoring of every in-flight batch and waits for their
// pipelines to finish. Imports already running are waited for, not interrupted.
func (m *AcquisitionManager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("acquisition manager not running")
	}
	m.running = false
	m.stop(errShutdown)
	m.mu.Unlock()

	m.wg.Wait()
	if m.multiLogger != nil {
		m.multiLogger.LogAcquisitionEvent("manager_stopped")
	}
	return nil
}

// IsRunning returns whether the manager accepts acquisitions
func (m *AcquisitionManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Acquire submits entries with the configured batching policy
func (m *AcquisitionManager) Acquire(ctx context.Context, entries []*domain.AcquisitionEntry) (*Task, error) {
	return m.AcquireWith(ctx, entries, m.config.Download)
}

// AcquireWith submits entries with an explicit batching policy. It returns once
// every group has been dispatched; ctx only bounds the submission itself.
// Only a session-level failure, such as an unreachable download service, is
// returned as an error. Everything after submission is reported through the
// progress hub and the returned Task.
func (m *AcquisitionManager) AcquireWith(ctx context.Context, entries []*domain.AcquisitionEntry, cfg domain.DownloadConfig) (*Task, error) {
	m.mu.RLock()
	if !m.running {
		m.mu.RUnlock()
		return nil, domain.ErrNotRunning
	}
	lifetime := m.lifetime
	m.wg.Add(1)
	m.mu.RUnlock()

	task := newTask(uuid.New().String())
	result, err := m.submitter.Submit(ctx, task.SessionID, entries, cfg, func(batch *domain.Batch) {
		m.dispatch(lifetime, task, batch)
	})
	go func() {
		defer m.wg.Done()
		task.seal()
	}()
	if err != nil {
		return nil, err
	}

	task.Batches = result.Batches
	task.Errored = result.Errored
	if m.multiLogger != nil {
		m.multiLogger.LogAcquisitionEvent("session_submitted",
			zap.String("session_id", task.SessionID),
			zap.Int("batches", len(result.Batches)),
			zap.Int("errored", len(result.Errored)))
	}
	return task, nil
}

// dispatch registers a submitted batch and starts its pipeline
func (m *AcquisitionManager) dispatch(lifetime context.Context, task *Task, batch *domain.Batch) {
	ctx, cancel := context.WithCancelCause(lifetime)
	m.registry.add(batch, cancel)

	task.group.Go(func() error {
		defer cancel(nil)
		defer m.registry.remove(batch.ID)

		outcome := m.monitor.Run(ctx, batch)
		m.registry.setPhase(batch.ID, PhaseImporting)
		// The downloads are on disk now. Neither Cancel nor Stop reaches the
		// importer, which is bounded by its own timeout.
		report := m.coordinator.Handle(context.WithoutCancel(ctx), outcome)

		task.addReport(BatchReport{
			BatchID: batch.ID,
			Exit:    outcome.Exit,
			Polls:   outcome.Polls,
			Import:  report,
		})
		return nil
	})
}

// Cancel stops polling an in-flight batch; its unfinished entries end Cancelled.
// A batch that is already importing cannot be cancelled.
func (m *AcquisitionManager) Cancel(batchID string) error {
	if err := m.registry.cancel(batchID, errUserCancelled); err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}
	m.logger.Info("Batch cancelled", zap.String("batch_id", batchID))
	return nil
}

// GetBatch returns an in-flight batch
func (m *AcquisitionManager) GetBatch(batchID string) (BatchInfo, error) {
	info, ok := m.registry.get(batchID)
	if !ok {
		return BatchInfo{}, fmt.Errorf("batch %s: %w", batchID, domain.ErrBatchNotFound)
	}
	return info, nil
}

// ListBatches returns every in-flight batch, oldest first
func (m *AcquisitionManager) ListBatches() []BatchInfo {
	return m.registry.list()
}

// InFlight returns the number of in-flight batches
func (m *AcquisitionManager) InFlight() int {
	return m.registry.size()
}

// GetEntry retrieves an entry by ID
func (m *AcquisitionManager) GetEntry(id string) (*domain.AcquisitionEntry, error) {
	if m.repo == nil {
		return nil, fmt.Errorf("entry history not available")
	}
	return m.repo.FindByID(id)
}

// ListEntries lists entries matching the filter
func (m *AcquisitionManager) ListEntries(filter domain.EntryFilter) ([]*domain.AcquisitionEntry, error) {
	if m.repo == nil {
		return nil, fmt.Errorf("entry history not available")
	}
	return m.repo.FindAll(filter)
}

// GetStats returns acquisition statistics
func (m *AcquisitionManager) GetStats() (*domain.EntryStats, error) {
	if m.repo == nil {
		return nil, fmt.Errorf("entry history not available")
	}
	return m.repo.GetStats()
}

// recoverOrphans settles entries a previous process left mid-flight. Their
// pipelines died with that process, so nothing would ever finish them.
// Succeeded entries are left alone; their files are still on disk.
func (m *AcquisitionManager) recoverOrphans() {
	if m.repo == nil {
		return
	}

	targets := map[domain.EntryState]domain.EntryState{
		domain.StateQueued:      domain.StateErrored,
		domain.StateSubmitted:   domain.StateFailed,
		domain.StateDownloading: domain.StateFailed,
		domain.StateImporting:   domain.StateFailed,
	}

	var recovered int
	for from, to := range targets {
		orphans, err := m.repo.FindAll(domain.EntryFilter{State: from})
		if err != nil {
			m.logger.Error("Failed to load orphaned entries", zap.String("state", string(from)), zap.Error(err))
			continue
		}
		for _, e := range orphans {
			if err := e.Transition(to, reasonInterrupted); err != nil {
				continue
			}
			if err := m.repo.Save(e); err != nil {
				m.logger.Error("Failed to settle orphaned entry", zap.String("entry_id", e.ID), zap.Error(err))
				continue
			}
			recovered++
		}
	}

	if recovered > 0 {
		m.logger.Info("Settled entries interrupted by a previous run", zap.Int("count", recovered))
	}
}
