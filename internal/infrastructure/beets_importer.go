package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/cratedig-go/internal/domain"
	"go.uber.org/zap"
)

// skipMarker is what beets prints when quiet mode declines an item
const skipMarker = "Skipping"

const checkTimeout = 10 * time.Second

// BeetsImporter implements domain.Importer by running `beet import`
type BeetsImporter struct {
	config  domain.ImportConfig
	logsDir string
	logger  *zap.Logger
}

// NewBeetsImporter creates a new beets importer. Raw tool output is appended
// to import-output-YYYYMMDD.log under logsDir when logsDir is set.
func NewBeetsImporter(config domain.ImportConfig, logsDir string, logger *zap.Logger) *BeetsImporter {
	return &BeetsImporter{
		config:  config,
		logsDir: logsDir,
		logger:  logger,
	}
}

// Import runs beets over sources, bounded by the configured timeout
func (b *BeetsImporter) Import(ctx context.Context, sources []string, targetDir string, asAlbum bool) (domain.ImportOutcome, error) {
	if len(sources) == 0 {
		return domain.ImportOutcome{}, fmt.Errorf("no sources to import")
	}

	binary, err := exec.LookPath(b.config.Binary)
	if err != nil {
		return domain.ImportOutcome{}, fmt.Errorf("beets binary not found: %w", err)
	}

	if targetDir == "" {
		targetDir = b.config.TargetDir
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return domain.ImportOutcome{}, fmt.Errorf("failed to create target directory: %w", err)
	}

	args := b.buildArgs(sources, targetDir, asAlbum)

	runCtx := ctx
	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	outLog, err := b.openLogFile()
	if err != nil {
		b.logger.Warn("Failed to open import output log", zap.Error(err))
	}
	defer outLog.Close()

	b.writeLogHeader(outLog, len(sources), CommandLine(binary, args...))

	// Stdout and stderr share one writer so the pipe keeps their interleaving
	var output bytes.Buffer
	combined := io.MultiWriter(outLog, &output)

	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Stdout = combined
	cmd.Stderr = combined
	cmd.WaitDelay = time.Second

	b.logger.Info("Starting beets import",
		zap.Int("sources", len(sources)),
		zap.String("target", targetDir),
		zap.Bool("as_album", asAlbum))

	err = cmd.Run()

	switch {
	case ctx.Err() != nil:
		b.writeLogFooter(outLog, "CANCELLED", ctx.Err().Error())
		return domain.ImportOutcome{}, ctx.Err()

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		b.writeLogFooter(outLog, "TIMEOUT", fmt.Sprintf("gave up after %s", b.config.Timeout))
		return domain.ImportOutcome{Kind: domain.ImportTimedOut}, nil

	case err != nil:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			b.writeLogFooter(outLog, "FAILED", err.Error())
			return domain.ImportOutcome{}, fmt.Errorf("failed to run beets: %w", err)
		}
		reason := lastLine(output.String())
		if reason == "" {
			reason = exitErr.Error()
		}
		b.writeLogFooter(outLog, "FAILED", reason)
		return domain.ImportFailedWith(reason), nil

	case strings.Contains(output.String(), skipMarker):
		b.writeLogFooter(outLog, "SKIPPED", "beets declined the import")
		return domain.ImportOutcome{Kind: domain.ImportSkipped}, nil

	default:
		b.writeLogFooter(outLog, "SUCCESS", fmt.Sprintf("imported into %s", targetDir))
		return domain.ImportOutcome{Kind: domain.ImportSuccess}, nil
	}
}

// Check resolves the beets binary and runs `beet version` with the configured beets config
func (b *BeetsImporter) Check(ctx context.Context) error {
	binary, err := exec.LookPath(b.config.Binary)
	if err != nil {
		return fmt.Errorf("beets binary not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var args []string
	if b.config.ConfigPath != "" {
		args = append(args, "-c", b.config.ConfigPath)
	}
	cmd := exec.CommandContext(ctx, binary, append(args, "version")...)
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if err != nil {
		if reason := lastLine(string(output)); reason != "" {
			return fmt.Errorf("beet version failed: %s", reason)
		}
		return fmt.Errorf("beet version failed: %w", err)
	}
	return nil
}

// buildArgs assembles `-c <config> import -q -d <target> [-s] <sources...>`
func (b *BeetsImporter) buildArgs(sources []string, targetDir string, asAlbum bool) []string {
	var args []string
	if b.config.ConfigPath != "" {
		args = append(args, "-c", b.config.ConfigPath)
	}
	args = append(args, "import", "-q", "-d", targetDir)
	if !asAlbum {
		args = append(args, "-s")
	}
	return append(args, sources...)
}

// outputLog is the raw output file; a nil file discards everything
type outputLog struct {
	file *os.File
}

func (l *outputLog) Write(p []byte) (int, error) {
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

func (l *outputLog) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// openLogFile opens today's import output log
func (b *BeetsImporter) openLogFile() (*outputLog, error) {
	if b.logsDir == "" {
		return &outputLog{}, nil
	}
	if err := os.MkdirAll(b.logsDir, 0755); err != nil {
		return &outputLog{}, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	path := filepath.Join(b.logsDir, "import-output-"+dateStr+".log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &outputLog{}, err
	}
	return &outputLog{file: file}, nil
}

// writeLogHeader writes the import start marker
func (b *BeetsImporter) writeLogHeader(w io.Writer, sources int, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] Import: %d sources ===\n", timestamp, sources)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

// writeLogFooter writes the import end marker
func (b *BeetsImporter) writeLogFooter(w io.Writer, status, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}

// lastLine returns the last non-blank line of output
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
