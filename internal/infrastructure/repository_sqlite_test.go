package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/cratedig-go/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteEntryRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "repo-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "nested", "test.db")
	repo, err := NewSQLiteEntryRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func newRepoEntry(session string, state domain.EntryState) *domain.AcquisitionEntry {
	e := domain.NewEntry(domain.KindAlbum, "alice", []domain.RequestedFile{
		{Filename: `Music\Air\Moon Safari\01 - La Femme d'Argent.flac`, Size: 1024},
		{Filename: `Music\Air\Moon Safari\02 - Sexy Boy.flac`, Size: 2048},
	})
	e.SessionID = session
	e.Artist = "Air"
	e.Album = "Moon Safari"
	e.State = state
	return e
}

func TestSave_InsertsAndUpdates(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	e := newRepoEntry("s1", domain.StateQueued)
	require.NoError(t, repo.Save(e))

	found, err := repo.FindByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateQueued, found.State)
	assert.Equal(t, e.Files, found.Files)
	assert.Equal(t, "Moon Safari", found.Album)

	require.NoError(t, e.Transition(domain.StateSubmitted, ""))
	e.BatchID = "b1"
	require.NoError(t, repo.Save(e))

	found, err = repo.FindByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSubmitted, found.State)
	assert.Equal(t, "b1", found.BatchID)
}

func TestSave_KeepsErrorAndCompletion(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	e := newRepoEntry("s1", domain.StateSubmitted)
	require.NoError(t, e.Transition(domain.StateFailed, "Download timed out"))
	require.NoError(t, repo.Save(e))

	found, err := repo.FindByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Download timed out", found.Error)
	require.NotNil(t, found.CompletedAt)
	assert.True(t, found.IsTerminal())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	found, err := repo.FindByID("missing")
	assert.Nil(t, found)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestFindAll_Filters(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i, tc := range []struct {
		session string
		state   domain.EntryState
		batch   string
	}{
		{"s1", domain.StateQueued, ""},
		{"s1", domain.StateSubmitted, "b1"},
		{"s1", domain.StateSubmitted, "b1"},
		{"s2", domain.StateImported, "b2"},
	} {
		e := newRepoEntry(tc.session, tc.state)
		e.BatchID = tc.batch
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(e))
		ids = append(ids, e.ID)
	}

	all, err := repo.FindAll(domain.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[3].ID)

	submitted, err := repo.FindAll(domain.EntryFilter{State: domain.StateSubmitted})
	require.NoError(t, err)
	assert.Len(t, submitted, 2)

	session, err := repo.FindAll(domain.EntryFilter{SessionID: "s2"})
	require.NoError(t, err)
	require.Len(t, session, 1)
	assert.Equal(t, ids[3], session[0].ID)

	batch, err := repo.FindAll(domain.EntryFilter{BatchID: "b1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, ids[2], batch[0].ID)
}

func TestGetStats(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	for _, state := range []domain.EntryState{
		domain.StateQueued,
		domain.StateDownloading,
		domain.StateImporting,
		domain.StateImported,
		domain.StateImported,
		domain.StateImportSkipped,
		domain.StateFailed,
		domain.StateErrored,
		domain.StateCancelled,
	} {
		require.NoError(t, repo.Save(newRepoEntry("s1", state)))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(9), stats.Total)
	assert.Equal(t, int64(3), stats.Active)
	assert.Equal(t, int64(2), stats.Imported)
	assert.Equal(t, int64(3), stats.Failed)
	assert.Equal(t, int64(1), stats.ByState[domain.StateImportSkipped])
	assert.Equal(t, int64(2), stats.ByState[domain.StateImported])
}

func TestGetStats_Empty(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.ByState)
}
