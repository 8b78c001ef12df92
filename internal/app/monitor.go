package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/pkg/logger"
)

// MonitorExit is how a batch's polling ended
type MonitorExit string

const (
	ExitAllTerminal MonitorExit = "all_terminal"
	ExitLost        MonitorExit = "lost"
	ExitTimedOut    MonitorExit = "timed_out"
	ExitCancelled   MonitorExit = "cancelled"
)

const (
	reasonLost     = "transfers no longer reported by download service"
	reasonTimedOut = "Download timed out"
)

// BatchOutcome is the monitor's verdict on one batch
type BatchOutcome struct {
	Batch        *domain.Batch
	Exit         MonitorExit
	Succeeded    []*domain.AcquisitionEntry
	Unsuccessful []*domain.AcquisitionEntry
	Sources      []string // local paths of files that arrived
	Leftovers    []string // local paths of files that did not
	Polls        int
}

// Monitor polls the download service until a batch settles
type Monitor struct {
	service     domain.DownloadService
	config      domain.MonitorConfig
	downloadDir string
	track       *tracker
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
}

// NewMonitor creates a new completion monitor
func NewMonitor(
	service domain.DownloadService,
	config domain.MonitorConfig,
	downloadDir string,
	track *tracker,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		service:     service,
		config:      config,
		downloadDir: downloadDir,
		track:       track,
		multiLogger: multiLogger,
		logger:      logger,
	}
}

type fileKey struct{ username, filename string }

// Run polls once per PollInterval until every transfer of the batch is terminal,
// the transfers disappear, MaxPollAttempts polls have been made, or ctx is done.
// A failed status request still uses up its poll.
//
// Entries leave Run in a terminal download state. Nothing is broadcast here;
// the coordinator owns all import-phase announcements.
func (m *Monitor) Run(ctx context.Context, batch *domain.Batch) *BatchOutcome {
	wanted := make(map[fileKey]struct{})
	for _, e := range batch.Entries {
		for _, f := range e.Files {
			wanted[fileKey{e.Username, f.Filename}] = struct{}{}
		}
	}

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return m.settle(batch, ExitCancelled, nil, polls, cancelReason(ctx))
		case <-ticker.C:
			if ctx.Err() != nil {
				return m.settle(batch, ExitCancelled, nil, polls, cancelReason(ctx))
			}
		}
		polls++

		statuses, err := m.service.ListStatuses(ctx)
		if err != nil {
			m.logger.Warn("Status poll failed",
				zap.String("batch_id", batch.ID),
				zap.Int("poll", polls),
				zap.Error(err))
		} else {
			observed := filterStatuses(statuses, wanted)
			switch {
			case len(observed) == 0:
				return m.settle(batch, ExitLost, nil, polls, reasonLost)
			case allTerminal(observed):
				return m.settle(batch, ExitAllTerminal, observed, polls, "")
			}
			m.markDownloading(batch)
		}

		if polls >= m.config.MaxPollAttempts {
			return m.settle(batch, ExitTimedOut, nil, polls, reasonTimedOut)
		}
	}
}

func filterStatuses(statuses []domain.TransferStatus, wanted map[fileKey]struct{}) map[fileKey]domain.TransferState {
	observed := make(map[fileKey]domain.TransferState)
	for _, st := range statuses {
		k := fileKey{st.Username, st.Filename}
		if _, ok := wanted[k]; ok {
			observed[k] = st.State
		}
	}
	return observed
}

func allTerminal(observed map[fileKey]domain.TransferState) bool {
	for _, s := range observed {
		if !s.IsTerminal() {
			return false
		}
	}
	return true
}

func (m *Monitor) markDownloading(batch *domain.Batch) {
	for _, e := range batch.Entries {
		if e.State == domain.StateSubmitted {
			m.track.move(e, domain.StateDownloading, "")
		}
	}
}

// settle assigns every entry its terminal download state. With observed set,
// an entry succeeds when at least one of its files arrived; otherwise the first
// file that did not arrive decides its state. Without observed, every entry
// fails with reason.
func (m *Monitor) settle(batch *domain.Batch, exit MonitorExit, observed map[fileKey]domain.TransferState, polls int, reason string) *BatchOutcome {
	out := &BatchOutcome{Batch: batch, Exit: exit, Polls: polls}

	for _, e := range batch.Entries {
		var arrived, missing []string
		failState, failReason := domain.StateFailed, reason
		if exit == ExitCancelled {
			failState = domain.StateCancelled
		}

		for _, f := range e.Files {
			local := domain.LocalPath(m.downloadDir, f.Filename)
			state, seen := observed[fileKey{e.Username, f.Filename}]
			if seen && state.IsSuccess() {
				arrived = append(arrived, local)
				continue
			}
			if len(missing) == 0 && observed != nil {
				if seen {
					failState = state.EntryState()
					failReason = fmt.Sprintf("download %s", strings.ToLower(string(state)))
				} else {
					failReason = reasonLost
				}
			}
			missing = append(missing, local)
		}

		out.Leftovers = append(out.Leftovers, missing...)
		if len(arrived) > 0 {
			out.Sources = append(out.Sources, arrived...)
			m.track.move(e, domain.StateSucceeded, "")
			out.Succeeded = append(out.Succeeded, e)
			continue
		}
		m.track.move(e, failState, failReason)
		out.Unsuccessful = append(out.Unsuccessful, e)
	}

	m.logger.Info("Batch settled",
		zap.String("batch_id", batch.ID),
		zap.String("exit", string(exit)),
		zap.Int("polls", polls),
		zap.Int("succeeded", len(out.Succeeded)),
		zap.Int("unsuccessful", len(out.Unsuccessful)))
	if m.multiLogger != nil {
		m.multiLogger.LogAcquisitionEvent("batch_settled",
			zap.String("batch_id", batch.ID),
			zap.String("exit", string(exit)),
			zap.Int("polls", polls),
			zap.Int("succeeded", len(out.Succeeded)),
			zap.Int("unsuccessful", len(out.Unsuccessful)))
	}
	return out
}

func cancelReason(ctx context.Context) string {
	if cause := context.Cause(ctx); cause != nil {
		return cause.Error()
	}
	return "cancelled"
}
