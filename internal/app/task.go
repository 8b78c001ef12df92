package app

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/cratedig-go/internal/domain"
)

// BatchReport is the final word on one batch of a task
type BatchReport struct {
	BatchID string
	Exit    MonitorExit
	Polls   int
	Import  *ImportReport
}

// Task is the handle of one acquisition session. The background monitoring and
// import of its batches can be awaited with Wait or Done; dropping the handle
// does not stop them.
type Task struct {
	SessionID string
	Batches   []*domain.Batch
	Errored   []*domain.AcquisitionEntry

	group   errgroup.Group
	done    chan struct{}
	mu      sync.Mutex
	reports []BatchReport
}

func newTask(sessionID string) *Task {
	return &Task{SessionID: sessionID, done: make(chan struct{})}
}

// Done is closed once every batch of the task reached a terminal import state
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reports returns the reports of the batches finished so far
func (t *Task) Reports() []BatchReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]BatchReport(nil), t.reports...)
}

func (t *Task) addReport(r BatchReport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reports = append(t.reports, r)
}

// seal closes Done after every started pipeline returned. No pipeline may be
// started after seal is called.
func (t *Task) seal() {
	_ = t.group.Wait()
	close(t.done)
}
