package domain

import "errors"

var (
	// ErrServiceUnavailable means the download service could not be reached before
	// any batch was formed. It aborts the whole acquisition.
	ErrServiceUnavailable = errors.New("download service unavailable")

	ErrInvalidTransition = errors.New("invalid state transition")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrBatchImporting    = errors.New("batch is already importing")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrNotRunning        = errors.New("acquisition manager not running")
	ErrUnknownBackend    = errors.New("unknown backend")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
