package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/progress"
	"go.uber.org/zap"
)

func recordingNotifier(config *domain.NotificationConfig, repo domain.EntryRepository) (*NotificationService, chan []string) {
	n := NewNotificationService(config, repo, zap.NewNop())
	calls := make(chan []string, 16)
	n.run = func(name string, args ...string) error {
		calls <- append([]string{name}, args...)
		return nil
	}
	return n, calls
}

func nextCall(t *testing.T, calls chan []string) []string {
	t.Helper()
	select {
	case c := <-calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("no notification sent")
		return nil
	}
}

func TestNotificationService_WatchNotifiesImportVerdicts(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	entry := newRepoEntry("s1", domain.StateImported)
	entry.Title = "Moon Safari"
	require.NoError(t, repo.Save(entry))

	n, calls := recordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, repo)

	hub := progress.NewHub(8)
	sub := hub.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Watch(ctx, sub)
		close(done)
	}()

	hub.Publish(
		domain.ProgressSnapshot{EntryID: entry.ID, State: domain.StateSubmitted},
		domain.ProgressSnapshot{EntryID: entry.ID, State: domain.StateImported},
		domain.ProgressSnapshot{EntryID: "unknown-id", State: domain.StateFailed, Error: "Download timed out"},
		domain.ProgressSnapshot{EntryID: "other-id", State: domain.StateImportSkipped},
	)

	assert.Equal(t, []string{"notify-send", "Import Completed", "Imported: Air - Moon Safari"}, nextCall(t, calls))
	assert.Equal(t, []string{"notify-send", "Acquisition Failed", "unknown-id (Download timed out)"}, nextCall(t, calls))
	assert.Equal(t, []string{"notify-send", "Import Skipped", "Already in library: other-id"}, nextCall(t, calls))

	cancel()
	<-done
	assert.Empty(t, calls)
	assert.Equal(t, 0, hub.Subscribers())
}

func TestNotificationService_WatchStopsWhenHubCloses(t *testing.T) {
	n, _ := recordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	hub := progress.NewHub(1)
	sub := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		n.Watch(context.Background(), sub)
		close(done)
	}()

	hub.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return after hub close")
	}
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := recordingNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	require.NoError(t, n.Send("title", "message"))
	assert.Empty(t, calls)
}

func TestNotificationService_OSAScript(t *testing.T) {
	n, calls := recordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "osascript"}, nil)

	require.NoError(t, n.Send("Import Completed", `Imported: "Discovery"`))
	assert.Equal(t, []string{
		"osascript", "-e",
		`display notification "Imported: \"Discovery\"" with title "Import Completed"`,
	}, nextCall(t, calls))
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := recordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "carrier-pigeon"}, nil)

	assert.NoError(t, n.Send("title", "message"))
	assert.Empty(t, calls)
}

func TestNotificationService_SendError(t *testing.T) {
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil, zap.NewNop())
	n.run = func(string, ...string) error { return errors.New("no display") }

	assert.EqualError(t, n.Send("title", "message"), "no display")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcde...", truncateString("abcdefgh", 5))
}
