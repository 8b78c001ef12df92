package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/cratedig-go/internal/domain"
	"go.uber.org/zap"
)

const slskdAPIPrefix = "/api/v0"

// SlskdClient implements domain.DownloadService against the slskd REST API
type SlskdClient struct {
	baseURL       string
	apiKey        string
	http          *http.Client
	searchTimeout time.Duration
	pollInterval  time.Duration
	logger        *zap.Logger
}

// NewSlskdClient creates a client for the configured slskd instance
func NewSlskdClient(config domain.SlskdConfig, logger *zap.Logger) *SlskdClient {
	pollInterval := config.SearchPollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &SlskdClient{
		baseURL:       strings.TrimRight(config.URL, "/"),
		apiKey:        config.APIKey,
		http:          &http.Client{Timeout: config.RequestTimeout},
		searchTimeout: config.SearchTimeout,
		pollInterval:  pollInterval,
		logger:        logger,
	}
}

type slskdSearchRequest struct {
	ID         string `json:"id"`
	SearchText string `json:"searchText"`
}

type slskdSearch struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	IsComplete    bool   `json:"isComplete"`
	ResponseCount int    `json:"responseCount"`
}

type slskdSearchFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	BitRate  *int   `json:"bitRate"`
	Length   *int   `json:"length"`
}

type slskdSearchResponse struct {
	Username          string            `json:"username"`
	Files             []slskdSearchFile `json:"files"`
	HasFreeUploadSlot bool              `json:"hasFreeUploadSlot"`
	UploadSpeed       int               `json:"uploadSpeed"`
	QueueLength       int               `json:"queueLength"`
}

type slskdTransfer struct {
	ID               string  `json:"id"`
	Username         string  `json:"username"`
	Filename         string  `json:"filename"`
	State            string  `json:"state"`
	Size             int64   `json:"size"`
	BytesTransferred int64   `json:"bytesTransferred"`
	PercentComplete  float64 `json:"percentComplete"`
}

type slskdUserTransfers struct {
	Username    string `json:"username"`
	Directories []struct {
		Directory string          `json:"directory"`
		Files     []slskdTransfer `json:"files"`
	} `json:"directories"`
}

// Ping verifies the service is reachable and the API key is accepted
func (c *SlskdClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/application", nil, nil)
}

// Search starts a search, waits for it to complete, then collects every offered file
func (c *SlskdClient) Search(ctx context.Context, query string) ([]domain.RawListing, error) {
	id := uuid.New().String()
	req := slskdSearchRequest{ID: id, SearchText: query}
	if err := c.do(ctx, http.MethodPost, "/searches", req, nil); err != nil {
		return nil, fmt.Errorf("failed to start search: %w", err)
	}

	c.logger.Debug("Search started", zap.String("search_id", id), zap.String("query", query))

	if err := c.awaitSearch(ctx, id); err != nil {
		return nil, err
	}

	var responses []slskdSearchResponse
	if err := c.do(ctx, http.MethodGet, "/searches/"+url.PathEscape(id)+"/responses", nil, &responses); err != nil {
		return nil, fmt.Errorf("failed to fetch search responses: %w", err)
	}

	var listings []domain.RawListing
	for _, r := range responses {
		for _, f := range r.Files {
			listings = append(listings, domain.RawListing{
				Username:          r.Username,
				Filename:          f.Filename,
				Size:              f.Size,
				BitRate:           f.BitRate,
				Duration:          f.Length,
				HasFreeUploadSlot: r.HasFreeUploadSlot,
				UploadSpeed:       r.UploadSpeed,
				QueueLength:       r.QueueLength,
			})
		}
	}

	c.logger.Debug("Search finished",
		zap.String("search_id", id),
		zap.Int("responses", len(responses)),
		zap.Int("files", len(listings)))

	return listings, nil
}

// awaitSearch polls the search until slskd reports it complete or the search timeout passes.
// Whatever responses arrived by then are still collected.
func (c *SlskdClient) awaitSearch(ctx context.Context, id string) error {
	var deadline <-chan time.Time
	if c.searchTimeout > 0 {
		timer := time.NewTimer(c.searchTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var search slskdSearch
		if err := c.do(ctx, http.MethodGet, "/searches/"+url.PathEscape(id), nil, &search); err != nil {
			return fmt.Errorf("failed to poll search: %w", err)
		}
		if search.IsComplete || strings.Contains(search.State, "Completed") {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			c.logger.Debug("Search timed out, collecting partial responses", zap.String("search_id", id))
			return nil
		case <-ticker.C:
		}
	}
}

// SubmitBatch enqueues each peer's files. The first rejected request fails the batch.
func (c *SlskdClient) SubmitBatch(ctx context.Context, requests []domain.TransferRequest) error {
	for _, r := range requests {
		if err := c.do(ctx, http.MethodPost, "/transfers/downloads/"+url.PathEscape(r.Username), r.Files, nil); err != nil {
			return fmt.Errorf("failed to enqueue downloads from %s: %w", r.Username, err)
		}
	}
	return nil
}

// ListStatuses flattens slskd's per-user, per-directory transfer listing
func (c *SlskdClient) ListStatuses(ctx context.Context) ([]domain.TransferStatus, error) {
	var users []slskdUserTransfers
	if err := c.do(ctx, http.MethodGet, "/transfers/downloads", nil, &users); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	var statuses []domain.TransferStatus
	for _, u := range users {
		for _, d := range u.Directories {
			for _, f := range d.Files {
				username := f.Username
				if username == "" {
					username = u.Username
				}
				statuses = append(statuses, domain.TransferStatus{
					Username:         username,
					Filename:         f.Filename,
					State:            ParseTransferState(f.State),
					Size:             f.Size,
					BytesTransferred: f.BytesTransferred,
					PercentComplete:  f.PercentComplete,
				})
			}
		}
	}
	return statuses, nil
}

// ParseTransferState maps slskd's flag-style state strings, such as
// "Completed, Succeeded" or "Queued, Remotely", onto TransferState.
func ParseTransferState(raw string) domain.TransferState {
	flags := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		flags[strings.TrimSpace(part)] = true
	}

	switch {
	case flags["Succeeded"]:
		return domain.TransferSucceeded
	case flags["Cancelled"]:
		return domain.TransferCancelled
	case flags["Aborted"]:
		return domain.TransferAborted
	case flags["Errored"], flags["Rejected"], flags["TimedOut"], flags["Failed"]:
		return domain.TransferErrored
	case flags["Completed"]:
		return domain.TransferCompleted
	case flags["InProgress"], flags["Initializing"]:
		return domain.TransferInProgress
	case flags["Queued"]:
		return domain.TransferQueued
	default:
		return domain.TransferRequested
	}
}

// do sends one JSON request and decodes the response into out when out is non-nil
func (c *SlskdClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+slskdAPIPrefix+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(detail)); msg != "" {
			return fmt.Errorf("slskd returned %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("slskd returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
