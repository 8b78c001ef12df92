package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryAcquisition LogCategory = "acquisition" // submission and download lifecycle (JSON)
	CategoryImport      LogCategory = "import"      // importer verdicts and cleanup (JSON)
	CategoryError       LogCategory = "error"       // application errors (JSON)
)

// Categories lists every category with a structured log file
var Categories = []LogCategory{CategoryAcquisition, CategoryImport, CategoryError}

// MultiLogger writes each category to its own dated JSON file.
// Raw importer output is written by the importer itself, not through here.
type MultiLogger struct {
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	config      MultiLoggerConfig
	level       zapcore.Level
	mu          sync.RWMutex
	currentDate string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{config: config, level: level}
	if err := ml.open(today()); err != nil {
		return nil, err
	}
	return ml, nil
}

// open (re)creates every category logger for the given date. Caller holds mu or
// has exclusive access.
func (ml *MultiLogger) open(date string) error {
	loggers := make(map[LogCategory]*zap.Logger, len(Categories))
	files := make(map[LogCategory]*os.File, len(Categories))

	for _, category := range Categories {
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}
		logger, file, err := ml.createStructuredLogger(category, date, level)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		loggers[category] = logger
		files[category] = file
	}

	ml.closeFiles()
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date
	return nil
}

func (ml *MultiLogger) createStructuredLogger(category LogCategory, date string, level zapcore.Level) (*zap.Logger, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = ""

	path := filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core), file, nil
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the logger for a category, switching to new files after midnight
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	if date := today(); date != ml.date() {
		ml.mu.Lock()
		if date != ml.currentDate {
			if err := ml.open(date); err != nil {
				fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
			}
		}
		ml.mu.Unlock()
	}

	ml.mu.RLock()
	defer ml.mu.RUnlock()
	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// Acquisition returns the acquisition lifecycle logger
func (ml *MultiLogger) Acquisition() *zap.Logger {
	return ml.GetLogger(CategoryAcquisition)
}

// Import returns the import logger
func (ml *MultiLogger) Import() *zap.Logger {
	return ml.GetLogger(CategoryImport)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAcquisitionEvent records a submission or download lifecycle event
func (ml *MultiLogger) LogAcquisitionEvent(event string, fields ...zap.Field) {
	ml.Acquisition().Info(event, fields...)
}

// LogImportEvent records an importer verdict or cleanup event
func (ml *MultiLogger) LogImportEvent(event string, fields ...zap.Field) {
	ml.Import().Info(event, fields...)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and releases their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	ml.closeFiles()
	for _, category := range Categories {
		ml.loggers[category] = zap.NewNop()
	}
	return lastErr
}

func (ml *MultiLogger) closeFiles() {
	for _, f := range ml.files {
		f.Close()
	}
	ml.files = nil
}

func (ml *MultiLogger) date() string {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return ml.currentDate
}

func today() string {
	return time.Now().Format("20060102")
}
