package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/progress"
)

// fakeService implements domain.DownloadService for testing
type fakeService struct {
	mu        sync.Mutex
	pingErr   error
	submitErr func(call int, reqs []domain.TransferRequest) error
	statuses  func(call int, submitted []domain.TransferStatus) ([]domain.TransferStatus, error)
	listings  map[string][]domain.RawListing
	searchErr error

	submitCalls [][]domain.TransferRequest
	submitTimes []time.Time
	statusCalls int
	searches    []string
	submitted   []domain.TransferStatus
}

func (f *fakeService) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeService) Search(ctx context.Context, query string) ([]domain.RawListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.listings[query], nil
}

func (f *fakeService) SubmitBatch(ctx context.Context, reqs []domain.TransferRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.submitCalls)
	f.submitCalls = append(f.submitCalls, reqs)
	f.submitTimes = append(f.submitTimes, time.Now())
	if f.submitErr != nil {
		if err := f.submitErr(call, reqs); err != nil {
			return err
		}
	}
	for _, r := range reqs {
		for _, file := range r.Files {
			f.submitted = append(f.submitted, domain.TransferStatus{
				Username: r.Username,
				Filename: file.Filename,
				State:    domain.TransferQueued,
			})
		}
	}
	return nil
}

func (f *fakeService) ListStatuses(ctx context.Context) ([]domain.TransferStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	submitted := append([]domain.TransferStatus(nil), f.submitted...)
	if f.statuses == nil {
		return submitted, nil
	}
	return f.statuses(f.statusCalls, submitted)
}

func (f *fakeService) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitCalls)
}

// withState rewrites every status with state
func withState(statuses []domain.TransferStatus, state domain.TransferState) []domain.TransferStatus {
	for i := range statuses {
		statuses[i].State = state
	}
	return statuses
}

// fakeImporter implements domain.Importer for testing
type fakeImporter struct {
	mu       sync.Mutex
	outcome  domain.ImportOutcome
	err      error
	checkErr error
	gate     *importGate
	calls    []importCall
}

// importGate holds Import until released. A cancelled ctx ends the wait the
// way the beets importer does.
type importGate struct {
	started chan struct{}
	release chan struct{}
}

func newImportGate() *importGate {
	return &importGate{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *importGate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("importer was never called")
	}
}

type importCall struct {
	sources   []string
	targetDir string
	asAlbum   bool
}

func (f *fakeImporter) Import(ctx context.Context, sources []string, targetDir string, asAlbum bool) (domain.ImportOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, importCall{sources: sources, targetDir: targetDir, asAlbum: asAlbum})
	outcome, err, gate := f.outcome, f.err, f.gate
	f.mu.Unlock()

	if gate != nil {
		gate.started <- struct{}{}
		select {
		case <-gate.release:
		case <-ctx.Done():
			return domain.ImportOutcome{}, ctx.Err()
		}
	}
	return outcome, err
}

func (f *fakeImporter) Check(ctx context.Context) error {
	return f.checkErr
}

func (f *fakeImporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memRepo implements domain.EntryRepository for testing
type memRepo struct {
	mu      sync.Mutex
	entries map[string]domain.AcquisitionEntry
	history map[string][]domain.EntryState
}

func newMemRepo() *memRepo {
	return &memRepo{
		entries: make(map[string]domain.AcquisitionEntry),
		history: make(map[string][]domain.EntryState),
	}
}

func (m *memRepo) Save(entry *domain.AcquisitionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = *entry
	m.history[entry.ID] = append(m.history[entry.ID], entry.State)
	return nil
}

func (m *memRepo) FindByID(id string) (*domain.AcquisitionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &e, nil
}

func (m *memRepo) FindAll(filter domain.EntryFilter) ([]*domain.AcquisitionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AcquisitionEntry
	for _, e := range m.entries {
		if filter.State != "" && e.State != filter.State {
			continue
		}
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetStats() (*domain.EntryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.EntryStats{ByState: map[domain.EntryState]int64{}}
	for _, e := range m.entries {
		stats.Total++
		stats.ByState[e.State]++
	}
	return stats, nil
}

func (m *memRepo) states(id string) []domain.EntryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EntryState(nil), m.history[id]...)
}

// collect drains a subscription until it has been quiet for a short while
func collect(sub *progress.Subscription) []domain.ProgressSnapshot {
	var snaps []domain.ProgressSnapshot
	for {
		select {
		case s, ok := <-sub.C():
			if !ok {
				return snaps
			}
			snaps = append(snaps, s)
		case <-time.After(50 * time.Millisecond):
			return snaps
		}
	}
}

func statesFor(snaps []domain.ProgressSnapshot, entryID string) []domain.EntryState {
	var states []domain.EntryState
	for _, s := range snaps {
		if s.EntryID == entryID {
			states = append(states, s.State)
		}
	}
	return states
}

func trackEntry(user, filename string) *domain.AcquisitionEntry {
	return domain.NewEntry(domain.KindTrack, user, []domain.RequestedFile{{Filename: filename, Size: 1}})
}

func albumEntry(user string, filenames ...string) *domain.AcquisitionEntry {
	files := make([]domain.RequestedFile, 0, len(filenames))
	for _, f := range filenames {
		files = append(files, domain.RequestedFile{Filename: f, Size: 1})
	}
	return domain.NewEntry(domain.KindAlbum, user, files)
}

func newTestTracker(t *testing.T, repo domain.EntryRepository, hub *progress.Hub) *tracker {
	t.Helper()
	var pub progress.Publisher
	if hub != nil {
		pub = hub
	}
	return newTracker(repo, pub, zap.NewNop())
}
