package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/pkg/logger"
)

// SubmitResult describes what a submission session dispatched
type SubmitResult struct {
	SessionID string
	Batches   []*domain.Batch
	Errored   []*domain.AcquisitionEntry
}

// Submitter sends entries to the download service in spaced, retried groups
type Submitter struct {
	service     domain.DownloadService
	track       *tracker
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
}

// NewSubmitter creates a new submitter
func NewSubmitter(service domain.DownloadService, track *tracker, multiLogger *logger.MultiLogger, logger *zap.Logger) *Submitter {
	return &Submitter{
		service:     service,
		track:       track,
		multiLogger: multiLogger,
		logger:      logger,
	}
}

// Submit partitions entries into groups of cfg.BatchSize and submits them in order.
// Group starts are spaced by cfg.BatchDelay whether or not the previous group
// succeeded. A group that keeps failing after cfg.MaxRetries retries leaves its
// entries Errored without affecting later groups.
//
// dispatch, when not nil, is called synchronously with every batch as soon as
// the download service accepts it.
//
// An unreachable download service aborts the whole session with
// domain.ErrServiceUnavailable before anything is recorded.
func (s *Submitter) Submit(
	ctx context.Context,
	sessionID string,
	entries []*domain.AcquisitionEntry,
	cfg domain.DownloadConfig,
	dispatch func(*domain.Batch),
) (*SubmitResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.service.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	result := &SubmitResult{SessionID: sessionID}
	for _, e := range entries {
		e.SessionID = sessionID
		s.track.save(e)
	}

	// A zero delay yields rate.Inf.
	limiter := rate.NewLimiter(rate.Every(cfg.BatchDelay), 1)

	for start := 0; start < len(entries); start += cfg.BatchSize {
		group := entries[start:min(start+cfg.BatchSize, len(entries))]

		if err := limiter.Wait(ctx); err != nil {
			s.failGroup(group, fmt.Errorf("submission cancelled: %w", err))
			result.Errored = append(result.Errored, group...)
			continue
		}

		if err := s.submitWithRetry(ctx, group, cfg); err != nil {
			s.failGroup(group, err)
			result.Errored = append(result.Errored, group...)
			continue
		}

		batch := domain.NewBatch(sessionID, group)
		for _, e := range group {
			s.track.moveAndPublish(e, domain.StateSubmitted, "")
		}
		result.Batches = append(result.Batches, batch)

		s.logger.Info("Batch submitted",
			zap.String("batch_id", batch.ID),
			zap.String("session_id", sessionID),
			zap.Int("entries", len(group)))
		if s.multiLogger != nil {
			s.multiLogger.LogAcquisitionEvent("batch_submitted",
				zap.String("batch_id", batch.ID),
				zap.String("session_id", sessionID),
				zap.Strings("entry_ids", batch.EntryIDs()))
		}

		if dispatch != nil {
			dispatch(batch)
		}
	}

	return result, nil
}

// submitWithRetry makes one attempt plus up to cfg.MaxRetries retries, waiting
// RetryBaseDelay * 2^n before retry n+1.
func (s *Submitter) submitWithRetry(ctx context.Context, group []*domain.AcquisitionEntry, cfg domain.DownloadConfig) error {
	requests := domain.BuildRequests(group)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.RetryBaseDelay * time.Duration(1<<(attempt-1))
			s.logger.Info("Retrying batch submission",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Duration("backoff", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("submission cancelled after %d attempts: %w", attempt, lastErr)
			}
		}

		err := s.service.SubmitBatch(ctx, requests)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("Batch submission attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("entries", len(group)),
			zap.Error(err))
	}
	return lastErr
}

func (s *Submitter) failGroup(group []*domain.AcquisitionEntry, err error) {
	for _, e := range group {
		s.track.moveAndPublish(e, domain.StateErrored, err.Error())
	}

	s.logger.Error("Batch submission failed",
		zap.Int("entries", len(group)),
		zap.Error(err))
	if s.multiLogger != nil {
		s.multiLogger.LogAcquisitionEvent("batch_errored",
			zap.Int("entries", len(group)),
			zap.String("error", err.Error()))
		s.multiLogger.LogAppError("Batch submission failed", zap.Error(err))
	}
}
