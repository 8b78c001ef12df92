package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/cratedig-go/internal/domain"
)

// BatchPhase is where an in-flight batch's pipeline currently is
type BatchPhase string

const (
	PhaseMonitoring BatchPhase = "monitoring"
	PhaseImporting  BatchPhase = "importing"
)

// BatchInfo is a read-only view of an in-flight batch
type BatchInfo struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	EntryIDs    []string   `json:"entry_ids"`
	Phase       BatchPhase `json:"phase"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

type inflight struct {
	info   BatchInfo
	cancel context.CancelCauseFunc
}

// batchRegistry is the set of batches between submission and terminal import
type batchRegistry struct {
	mu      sync.RWMutex
	batches map[string]*inflight
}

func newBatchRegistry() *batchRegistry {
	return &batchRegistry{batches: make(map[string]*inflight)}
}

func (r *batchRegistry) add(batch *domain.Batch, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.ID] = &inflight{
		info: BatchInfo{
			ID:          batch.ID,
			SessionID:   batch.SessionID,
			EntryIDs:    batch.EntryIDs(),
			Phase:       PhaseMonitoring,
			SubmittedAt: batch.SubmittedAt,
		},
		cancel: cancel,
	}
}

func (r *batchRegistry) setPhase(id string, phase BatchPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[id]; ok {
		b.info.Phase = phase
	}
}

func (r *batchRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, id)
}

func (r *batchRegistry) cancel(id string, cause error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return domain.ErrBatchNotFound
	}
	if b.info.Phase == PhaseImporting {
		return domain.ErrBatchImporting
	}
	b.cancel(cause)
	return nil
}

func (r *batchRegistry) get(id string) (BatchInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return BatchInfo{}, false
	}
	return b.info, true
}

// list returns the in-flight batches, oldest first
func (r *batchRegistry) list() []BatchInfo {
	r.mu.RLock()
	infos := make([]BatchInfo, 0, len(r.batches))
	for _, b := range r.batches {
		infos = append(infos, b.info)
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].SubmittedAt.Equal(infos[j].SubmittedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].SubmittedAt.Before(infos[j].SubmittedAt)
	})
	return infos
}

func (r *batchRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.batches)
}
