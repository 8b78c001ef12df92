package domain

import (
	"context"
	"time"
)

// DownloadService performs peer searches and transfers on our behalf
type DownloadService interface {
	// Ping verifies the service is reachable and authenticated
	Ping(ctx context.Context) error

	// Search runs a peer search and returns every offered file
	Search(ctx context.Context, query string) ([]RawListing, error)

	// SubmitBatch enqueues the requests; it fails as a unit
	SubmitBatch(ctx context.Context, requests []TransferRequest) error

	// ListStatuses returns the status of every transfer the service knows about
	ListStatuses(ctx context.Context) ([]TransferStatus, error)
}

// BackendID names a registered download service implementation
type BackendID string

const (
	BackendSlskd BackendID = "slskd"
)

// ProgressSnapshot is published to subscribers on every broadcast state change
type ProgressSnapshot struct {
	EntryID   string     `json:"entry_id"`
	BatchID   string     `json:"batch_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	State     EntryState `json:"state"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
