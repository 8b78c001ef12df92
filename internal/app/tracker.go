package app

import (
	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/progress"
)

// tracker applies entry transitions and fans them out to storage and subscribers.
// repo and hub may be nil.
type tracker struct {
	repo   domain.EntryRepository
	hub    progress.Publisher
	logger *zap.Logger
}

func newTracker(repo domain.EntryRepository, hub progress.Publisher, logger *zap.Logger) *tracker {
	return &tracker{repo: repo, hub: hub, logger: logger}
}

// move transitions entry and persists it. It reports whether the move was legal.
func (t *tracker) move(entry *domain.AcquisitionEntry, to domain.EntryState, reason string) bool {
	if err := entry.Transition(to, reason); err != nil {
		t.logger.Warn("Rejected entry transition",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return false
	}
	t.save(entry)
	return true
}

// moveAndPublish transitions, persists and broadcasts entry
func (t *tracker) moveAndPublish(entry *domain.AcquisitionEntry, to domain.EntryState, reason string) bool {
	if !t.move(entry, to, reason) {
		return false
	}
	t.publish(entry)
	return true
}

func (t *tracker) save(entry *domain.AcquisitionEntry) {
	if t.repo == nil {
		return
	}
	if err := t.repo.Save(entry); err != nil {
		t.logger.Error("Failed to persist entry",
			zap.String("entry_id", entry.ID),
			zap.String("state", string(entry.State)),
			zap.Error(err))
	}
}

func (t *tracker) publish(entries ...*domain.AcquisitionEntry) {
	if t.hub == nil || len(entries) == 0 {
		return
	}
	snaps := make([]domain.ProgressSnapshot, 0, len(entries))
	for _, e := range entries {
		snaps = append(snaps, e.Snapshot())
	}
	t.hub.Publish(snaps...)
}
