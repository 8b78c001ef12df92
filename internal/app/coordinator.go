package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/pkg/logger"
)

// ImportReport records what the coordinator did with one batch
type ImportReport struct {
	BatchID        string
	ImporterCalled bool
	Outcome        domain.ImportOutcome
	Err            error    // importer call error, if any
	Removed        []string // paths deleted during cleanup
}

// Coordinator hands settled batches to the importer
type Coordinator struct {
	importer    domain.Importer
	config      domain.ImportConfig
	downloadDir string
	track       *tracker
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
}

// NewCoordinator creates a new import coordinator
func NewCoordinator(
	importer domain.Importer,
	config domain.ImportConfig,
	downloadDir string,
	track *tracker,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		importer:    importer,
		config:      config,
		downloadDir: downloadDir,
		track:       track,
		multiLogger: multiLogger,
		logger:      logger,
	}
}

// Handle drives a settled batch to its terminal import states. Successful
// entries are announced as Importing before the importer runs; every other
// outcome ends with the batch's files removed from disk.
func (c *Coordinator) Handle(ctx context.Context, out *BatchOutcome) *ImportReport {
	report := &ImportReport{BatchID: out.Batch.ID}

	// Failures from the download phase are final; announce them first.
	c.track.publish(out.Unsuccessful...)

	if len(out.Succeeded) == 0 {
		report.Removed = c.cleanup(out.Batch, out.Leftovers)
		c.logImport(out.Batch, "import_skipped_no_downloads", report)
		return report
	}

	importing := make([]*domain.AcquisitionEntry, 0, len(out.Succeeded))
	for _, e := range out.Succeeded {
		if c.track.move(e, domain.StateImporting, "") {
			importing = append(importing, e)
		}
	}
	c.track.publish(importing...)

	asAlbum := c.config.AlbumMode && hasAlbum(importing)
	c.logger.Info("Importing batch",
		zap.String("batch_id", out.Batch.ID),
		zap.Int("sources", len(out.Sources)),
		zap.Bool("as_album", asAlbum))

	report.ImporterCalled = true
	outcome, err := c.importer.Import(ctx, out.Sources, c.config.TargetDir, asAlbum)
	report.Outcome, report.Err = outcome, err

	state, reason := importVerdict(outcome, err)
	for _, e := range importing {
		c.track.moveAndPublish(e, state, reason)
	}

	if err == nil && outcome.Kind == domain.ImportSuccess {
		report.Removed = c.cleanup(out.Batch, out.Leftovers)
	} else {
		report.Removed = c.cleanup(out.Batch, append(append([]string{}, out.Sources...), out.Leftovers...))
	}

	c.logImport(out.Batch, "import_finished", report)
	return report
}

// importVerdict maps the importer's answer onto an entry state and error text
func importVerdict(outcome domain.ImportOutcome, err error) (domain.EntryState, string) {
	if err != nil {
		return domain.StateFailed, fmt.Sprintf("Import error: %v", err)
	}
	switch outcome.Kind {
	case domain.ImportSuccess:
		return domain.StateImported, ""
	case domain.ImportSkipped:
		return domain.StateImportSkipped, ""
	case domain.ImportTimedOut:
		return domain.StateFailed, "Import timed out"
	default:
		return domain.StateFailed, fmt.Sprintf("Import failed: %s", outcome.Reason)
	}
}

func (c *Coordinator) cleanup(batch *domain.Batch, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	return cleanupFiles(paths, c.downloadDir, c.logger.With(zap.String("batch_id", batch.ID)))
}

func (c *Coordinator) logImport(batch *domain.Batch, event string, report *ImportReport) {
	fields := []zap.Field{
		zap.String("batch_id", batch.ID),
		zap.Bool("importer_called", report.ImporterCalled),
		zap.String("outcome", string(report.Outcome.Kind)),
		zap.Int("removed", len(report.Removed)),
	}
	if report.Outcome.Reason != "" {
		fields = append(fields, zap.String("reason", report.Outcome.Reason))
	}
	if report.Err != nil {
		fields = append(fields, zap.Error(report.Err))
	}

	c.logger.Info("Batch import handled", fields...)
	if c.multiLogger != nil {
		c.multiLogger.LogImportEvent(event, fields...)
		if report.Err != nil {
			c.multiLogger.LogAppError("Importer call failed", fields...)
		}
	}
}

func hasAlbum(entries []*domain.AcquisitionEntry) bool {
	for _, e := range entries {
		if e.Kind == domain.KindAlbum {
			return true
		}
	}
	return false
}
