package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferState is the download service's view of one file transfer
type TransferState string

const (
	TransferRequested  TransferState = "Requested"
	TransferQueued     TransferState = "Queued"
	TransferInProgress TransferState = "InProgress"
	TransferSucceeded  TransferState = "Succeeded"
	TransferCompleted  TransferState = "Completed"
	TransferAborted    TransferState = "Aborted"
	TransferCancelled  TransferState = "Cancelled"
	TransferErrored    TransferState = "Errored"
)

// IsTerminal reports whether the transfer will not change any more
func (s TransferState) IsTerminal() bool {
	switch s {
	case TransferSucceeded, TransferCompleted, TransferAborted, TransferCancelled, TransferErrored:
		return true
	}
	return false
}

// IsSuccess reports whether the file arrived
func (s TransferState) IsSuccess() bool {
	return s == TransferSucceeded || s == TransferCompleted
}

// EntryState maps an unsuccessful terminal transfer onto the entry vocabulary
func (s TransferState) EntryState() EntryState {
	switch s {
	case TransferSucceeded, TransferCompleted:
		return StateSucceeded
	case TransferCancelled:
		return StateCancelled
	case TransferErrored:
		return StateErrored
	default:
		return StateFailed
	}
}

// TransferStatus is one row of the download service's status listing
type TransferStatus struct {
	Username         string        `json:"username"`
	Filename         string        `json:"filename"`
	State            TransferState `json:"state"`
	Size             int64         `json:"size"`
	BytesTransferred int64         `json:"bytes_transferred"`
	PercentComplete  float64       `json:"percent_complete"`
}

// TransferRequest asks the download service to fetch files from one peer
type TransferRequest struct {
	Username string          `json:"username"`
	Files    []RequestedFile `json:"files"`
}

// Batch is the ordered group of entries submitted together in one request
type Batch struct {
	ID          string              `json:"id"`
	SessionID   string              `json:"session_id"`
	Entries     []*AcquisitionEntry `json:"entries"`
	SubmittedAt time.Time           `json:"submitted_at"`
}

// NewBatch creates a batch and stamps its ID onto every entry
func NewBatch(sessionID string, entries []*AcquisitionEntry) *Batch {
	b := &Batch{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Entries:     entries,
		SubmittedAt: time.Now(),
	}
	for _, e := range entries {
		e.BatchID = b.ID
	}
	return b
}

// Requests folds the batch's files into one request per peer, keeping entry order
func (b *Batch) Requests() []TransferRequest {
	return BuildRequests(b.Entries)
}

// BuildRequests folds entries into one request per peer, keeping first-seen order
func BuildRequests(entries []*AcquisitionEntry) []TransferRequest {
	index := make(map[string]int)
	var reqs []TransferRequest
	for _, e := range entries {
		i, ok := index[e.Username]
		if !ok {
			i = len(reqs)
			index[e.Username] = i
			reqs = append(reqs, TransferRequest{Username: e.Username})
		}
		reqs[i].Files = append(reqs[i].Files, e.Files...)
	}
	return reqs
}

// EntryIDs lists the IDs of the batch's entries in order
func (b *Batch) EntryIDs() []string {
	ids := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}
