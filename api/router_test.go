package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/api/handlers"
	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/progress"
)

type fakeAcquisition struct {
	mu         sync.Mutex
	running    bool
	acquireErr error
	acquired   [][]*domain.AcquisitionEntry
	entries    map[string]*domain.AcquisitionEntry
	lastFilter domain.EntryFilter
	batches    []app.BatchInfo
	cancelled  []string
}

func (f *fakeAcquisition) IsRunning() bool { return f.running }
func (f *fakeAcquisition) InFlight() int   { return len(f.batches) }

func (f *fakeAcquisition) Acquire(ctx context.Context, entries []*domain.AcquisitionEntry) (*app.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired = append(f.acquired, entries)

	task := &app.Task{SessionID: "session-1"}
	for _, e := range entries {
		if e.Username == "offline" {
			e.State = domain.StateErrored
			e.Error = "slskd returned 500"
			task.Errored = append(task.Errored, e)
			continue
		}
		task.Batches = append(task.Batches, domain.NewBatch(task.SessionID, []*domain.AcquisitionEntry{e}))
	}
	return task, nil
}

func (f *fakeAcquisition) GetEntry(id string) (*domain.AcquisitionEntry, error) {
	if e, ok := f.entries[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
}

func (f *fakeAcquisition) ListEntries(filter domain.EntryFilter) ([]*domain.AcquisitionEntry, error) {
	f.lastFilter = filter
	var out []*domain.AcquisitionEntry
	for _, e := range f.entries {
		if filter.State == "" || e.State == filter.State {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAcquisition) GetStats() (*domain.EntryStats, error) {
	return &domain.EntryStats{Total: int64(len(f.entries)), ByState: map[domain.EntryState]int64{}}, nil
}

func (f *fakeAcquisition) ListBatches() []app.BatchInfo { return f.batches }

func (f *fakeAcquisition) GetBatch(id string) (app.BatchInfo, error) {
	for _, b := range f.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return app.BatchInfo{}, fmt.Errorf("batch %s: %w", id, domain.ErrBatchNotFound)
}

func (f *fakeAcquisition) Cancel(id string) error {
	b, err := f.GetBatch(id)
	if err != nil {
		return err
	}
	if b.Phase == app.PhaseImporting {
		return fmt.Errorf("batch %s: %w", id, domain.ErrBatchImporting)
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeSearcher struct {
	err    error
	panics bool
	query  app.SearchQuery
}

func (f *fakeSearcher) SearchTracks(ctx context.Context, q app.SearchQuery) ([]domain.ScoredTrack, error) {
	if f.panics {
		panic("boom")
	}
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ScoredTrack{
		{RawListing: domain.RawListing{Username: "alice", Filename: "01 - One More Time.flac"}, Title: "One More Time", Score: 1},
	}, nil
}

func (f *fakeSearcher) SearchAlbums(ctx context.Context, q app.SearchQuery) ([]domain.ScoredAlbum, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

type fakeTool struct {
	err error
}

func (f *fakeTool) Ping(ctx context.Context) error  { return f.err }
func (f *fakeTool) Check(ctx context.Context) error { return f.err }

type testEnv struct {
	acq        *fakeAcquisition
	searcher   *fakeSearcher
	downloader *fakeTool
	importer   *fakeTool
	hub      *progress.Hub
	logsDir  string
	handler  http.Handler
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		acq:        &fakeAcquisition{running: true, entries: map[string]*domain.AcquisitionEntry{}},
		searcher:   &fakeSearcher{},
		downloader: &fakeTool{},
		importer:   &fakeTool{},
		hub:        progress.NewHub(8),
		logsDir:    t.TempDir(),
	}
	env.handler = SetupRouter(Services{
		Acquisition: env.acq,
		Search:      env.searcher,
		Downloader:  env.downloader,
		Importer:    env.importer,
		Backends: handlers.BackendCatalog{
			Download:       []string{"slskd"},
			Importers:      []string{"beets"},
			ActiveDownload: "slskd",
			ActiveImporter: "beets",
		},
		Hub:     env.hub,
		LogsDir: env.logsDir,
	}, zap.NewNop(), nil)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealthAndReady(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, "ok", health["status"])

	w = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env.acq.running = false
	w = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSystemHealth(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodGet, "/api/v1/system/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health handlers.SystemHealthResponse
	decode(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.DownloaderOnline)
	assert.True(t, health.ImporterReady)
	assert.Empty(t, health.DownloaderError)
}

func TestSystemHealth_ServiceDown(t *testing.T) {
	env := setupTestRouter(t)
	env.downloader.err = errors.New("slskd returned 401: unauthorized")

	w := env.do(t, http.MethodGet, "/api/v1/system/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health handlers.SystemHealthResponse
	decode(t, w, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.DownloaderOnline)
	assert.Contains(t, health.DownloaderError, "401")
	assert.True(t, health.ImporterReady)
}

func TestSystemHealth_ImporterMissing(t *testing.T) {
	env := setupTestRouter(t)
	env.importer.err = errors.New(`beets binary not found: exec: "beet": executable file not found in $PATH`)

	w := env.do(t, http.MethodGet, "/api/v1/system/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health handlers.SystemHealthResponse
	decode(t, w, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.True(t, health.DownloaderOnline)
	assert.False(t, health.ImporterReady)
	assert.Contains(t, health.ImporterError, "beets binary not found")
}

func TestSystemHealth_Unconfigured(t *testing.T) {
	handler := SetupRouter(Services{
		Acquisition: &fakeAcquisition{running: true},
		Search:      &fakeSearcher{},
		Hub:         progress.NewHub(8),
		LogsDir:     t.TempDir(),
	}, zap.NewNop(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var health handlers.SystemHealthResponse
	decode(t, w, &health)
	assert.False(t, health.DownloaderOnline)
	assert.False(t, health.ImporterReady)
	assert.Equal(t, "download service not configured", health.DownloaderError)
}

func TestSystemBackends(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodGet, "/api/v1/system/backends", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var backends handlers.BackendsResponse
	decode(t, w, &backends)
	assert.Equal(t, []handlers.BackendInfo{{ID: "slskd", Active: true}}, backends.Download)
	assert.Equal(t, []handlers.BackendInfo{{ID: "beets", Active: true}}, backends.Importer)
}

func TestAcquire_Accepted(t *testing.T) {
	env := setupTestRouter(t)

	body := map[string]interface{}{
		"tracks": []domain.ScoredTrack{
			{RawListing: domain.RawListing{Username: "alice", Filename: `Music\Daft Punk\01 - One More Time.flac`, Size: 10}, Title: "One More Time"},
			{RawListing: domain.RawListing{Username: "offline", Filename: "x.mp3", Size: 1}, Title: "x"},
		},
		"albums": []domain.ScoredAlbum{{
			Username: "bob",
			Title:    "Discovery",
			Tracks: []domain.ScoredTrack{
				{RawListing: domain.RawListing{Username: "bob", Filename: `Discovery\01.flac`, Size: 5}},
				{RawListing: domain.RawListing{Username: "bob", Filename: `Discovery\02.flac`, Size: 6}},
			},
		}},
	}

	w := env.do(t, http.MethodPost, "/api/v1/acquisitions", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
		Batches   []struct {
			ID       string   `json:"id"`
			EntryIDs []string `json:"entry_ids"`
		} `json:"batches"`
		Errored []domain.AcquisitionEntry `json:"errored"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "session-1", resp.SessionID)
	assert.Len(t, resp.Batches, 2)
	require.Len(t, resp.Errored, 1)
	assert.Equal(t, domain.StateErrored, resp.Errored[0].State)

	require.Len(t, env.acq.acquired, 1)
	entries := env.acq.acquired[0]
	require.Len(t, entries, 3)
	assert.Equal(t, domain.KindTrack, entries[0].Kind)
	assert.Equal(t, domain.KindAlbum, entries[2].Kind)
	assert.Len(t, entries[2].Files, 2)
}

func TestAcquire_Validation(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodPost, "/api/v1/acquisitions", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/acquisitions", map[string]interface{}{
		"albums": []domain.ScoredAlbum{{Username: "bob", Title: "Empty"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/acquisitions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcquire_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"service unavailable", fmt.Errorf("%w: connection refused", domain.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{"not running", domain.ErrNotRunning, http.StatusServiceUnavailable},
		{"invalid config", fmt.Errorf("%w: batch size must be positive", domain.ErrInvalidConfig), http.StatusBadRequest},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(t)
			env.acq.acquireErr = tt.err

			w := env.do(t, http.MethodPost, "/api/v1/acquisitions", map[string]interface{}{
				"tracks": []domain.ScoredTrack{{RawListing: domain.RawListing{Username: "alice", Filename: "a.flac"}}},
			})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestEntries(t *testing.T) {
	env := setupTestRouter(t)
	e := domain.NewEntry(domain.KindTrack, "alice", []domain.RequestedFile{{Filename: "a.flac"}})
	env.acq.entries[e.ID] = e

	w := env.do(t, http.MethodGet, "/api/v1/acquisitions/"+e.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/acquisitions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/acquisitions?state=queued&session_id=s1&limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list []domain.AcquisitionEntry
	decode(t, w, &list)
	assert.Len(t, list, 1)
	assert.Equal(t, domain.EntryFilter{State: domain.StateQueued, SessionID: "s1", Limit: 5}, env.acq.lastFilter)

	w = env.do(t, http.MethodGet, "/api/v1/acquisitions?state=exploded", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/acquisitions?state=imported", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/acquisitions/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var stats domain.EntryStats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Total)
}

func TestBatches(t *testing.T) {
	env := setupTestRouter(t)
	env.acq.batches = []app.BatchInfo{
		{ID: "b1", SessionID: "s1", EntryIDs: []string{"e1"}, Phase: app.PhaseMonitoring},
		{ID: "b2", SessionID: "s1", EntryIDs: []string{"e2"}, Phase: app.PhaseImporting},
	}

	w := env.do(t, http.MethodGet, "/api/v1/batches", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var batches []app.BatchInfo
	decode(t, w, &batches)
	require.Len(t, batches, 2)
	assert.Equal(t, app.PhaseMonitoring, batches[0].Phase)

	w = env.do(t, http.MethodGet, "/api/v1/batches/b1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/batches/b1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"b1"}, env.acq.cancelled)

	w = env.do(t, http.MethodPost, "/api/v1/batches/b2/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, []string{"b1"}, env.acq.cancelled)

	w = env.do(t, http.MethodPost, "/api/v1/batches/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodPost, "/api/v1/search/tracks", app.SearchQuery{Artist: "Daft Punk", Title: "One More Time"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count  int                  `json:"count"`
		Tracks []domain.ScoredTrack `json:"tracks"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Daft Punk", env.searcher.query.Artist)

	w = env.do(t, http.MethodPost, "/api/v1/search/albums", app.SearchQuery{Album: "Discovery", Tracks: []string{"Aerodynamic"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"albums":[]`)
	assert.Equal(t, []string{"Aerodynamic"}, env.searcher.query.Tracks)

	w = env.do(t, http.MethodPost, "/api/v1/search/tracks", app.SearchQuery{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.searcher.err = errors.New("slskd returned 502")
	w = env.do(t, http.MethodPost, "/api/v1/search/albums", app.SearchQuery{Query: "discovery"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	env := setupTestRouter(t)
	env.searcher.panics = true

	w := env.do(t, http.MethodPost, "/api/v1/search/tracks", app.SearchQuery{Query: "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodOptions, "/api/v1/acquisitions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoRoute(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, http.MethodGet, "/api/v1/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogs(t *testing.T) {
	env := setupTestRouter(t)

	today := time.Now().Format("20060102")
	content := `{"ts":"2026-01-01T10:00:00Z","level":"info","msg":"Batch submitted","batch_id":"b1"}
{"ts":"2026-01-01T10:00:05Z","level":"info","msg":"Batch finished","batch_id":"b1"}
`
	require.NoError(t, os.WriteFile(filepath.Join(env.logsDir, "acquisition-"+today+".log"), []byte(content), 0644))

	w := env.do(t, http.MethodGet, "/api/v1/logs/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acquisition")

	w = env.do(t, http.MethodGet, "/api/v1/logs/acquisition?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Count int `json:"count"`
	}
	decode(t, w, &logs)
	assert.Equal(t, 1, logs.Count)

	w = env.do(t, http.MethodGet, "/api/v1/logs/acquisition/search?q=submitted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &logs)
	assert.Equal(t, 1, logs.Count)

	w = env.do(t, http.MethodGet, "/api/v1/logs/acquisition/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/logs/import/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/logs/web", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/logs/acquisition?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressWebSocket(t *testing.T) {
	env := setupTestRouter(t)
	server := httptest.NewServer(env.handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/progress/ws?session_id=s1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	env.hub.Publish(
		domain.ProgressSnapshot{EntryID: "other", SessionID: "s2", State: domain.StateSubmitted},
		domain.ProgressSnapshot{EntryID: "e1", SessionID: "s1", State: domain.StateImported},
	)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap domain.ProgressSnapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "e1", snap.EntryID)
	assert.Equal(t, domain.StateImported, snap.State)

	env.hub.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
