package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/progress"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications when imports finish
type NotificationService struct {
	config *domain.NotificationConfig
	repo   domain.EntryRepository
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service. repo is used to
// name entries in messages and may be nil.
func NewNotificationService(config *domain.NotificationConfig, repo domain.EntryRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		repo:   repo,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// Watch notifies on every import verdict published on sub until ctx is done
// or the subscription closes
func (n *NotificationService) Watch(ctx context.Context, sub *progress.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			n.notifySnapshot(snap)
		}
	}
}

func (n *NotificationService) notifySnapshot(snap domain.ProgressSnapshot) {
	switch snap.State {
	case domain.StateImported:
		n.Send("Import Completed", "Imported: "+n.describe(snap.EntryID))
	case domain.StateImportSkipped:
		n.Send("Import Skipped", "Already in library: "+n.describe(snap.EntryID))
	case domain.StateFailed:
		n.Send("Acquisition Failed", fmt.Sprintf("%s (%s)", n.describe(snap.EntryID), snap.Error))
	}
}

// describe names an entry by artist and title, falling back to its ID
func (n *NotificationService) describe(entryID string) string {
	if n.repo == nil {
		return entryID
	}
	entry, err := n.repo.FindByID(entryID)
	if err != nil {
		return entryID
	}

	var parts []string
	if entry.Artist != "" {
		parts = append(parts, entry.Artist)
	}
	if entry.Title != "" {
		parts = append(parts, entry.Title)
	}
	if len(parts) == 0 {
		return entryID
	}
	return truncateString(strings.Join(parts, " - "), 60)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
