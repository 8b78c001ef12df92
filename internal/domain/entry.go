package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryState represents where an acquisition entry is in its lifecycle
type EntryState string

const (
	StateQueued        EntryState = "queued"
	StateSubmitted     EntryState = "submitted"
	StateDownloading   EntryState = "downloading"
	StateSucceeded     EntryState = "succeeded"
	StateFailed        EntryState = "failed"
	StateCancelled     EntryState = "cancelled"
	StateErrored       EntryState = "errored"
	StateImporting     EntryState = "importing"
	StateImported      EntryState = "imported"
	StateImportSkipped EntryState = "import_skipped"
)

// transitions lists the states reachable from each state. Nothing moves backwards.
var transitions = map[EntryState][]EntryState{
	StateQueued:      {StateSubmitted, StateErrored},
	StateSubmitted:   {StateDownloading, StateSucceeded, StateFailed, StateCancelled, StateErrored},
	StateDownloading: {StateSucceeded, StateFailed, StateCancelled, StateErrored},
	StateSucceeded:   {StateImporting},
	StateImporting:   {StateImported, StateImportSkipped, StateFailed},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to EntryState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can occur
func (s EntryState) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ValidateState checks if a state name is known
func ValidateState(s EntryState) bool {
	switch s {
	case StateQueued, StateSubmitted, StateDownloading, StateSucceeded, StateFailed,
		StateCancelled, StateErrored, StateImporting, StateImported, StateImportSkipped:
		return true
	}
	return false
}

// EntryKind distinguishes single tracks from whole albums
type EntryKind string

const (
	KindTrack EntryKind = "track"
	KindAlbum EntryKind = "album"
)

// RequestedFile is one remote file to fetch from the entry's peer
type RequestedFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// AcquisitionEntry is one track or album chosen for download
type AcquisitionEntry struct {
	ID          string          `json:"id" gorm:"primaryKey"`
	SessionID   string          `json:"session_id" gorm:"index"`
	BatchID     string          `json:"batch_id,omitempty" gorm:"index"`
	Kind        EntryKind       `json:"kind" gorm:"not null"`
	Username    string          `json:"username" gorm:"not null"`
	Title       string          `json:"title,omitempty"`
	Artist      string          `json:"artist,omitempty"`
	Album       string          `json:"album,omitempty"`
	Files       []RequestedFile `json:"files" gorm:"serializer:json;type:text"`
	State       EntryState      `json:"state" gorm:"not null;index"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewEntry creates a queued acquisition entry
func NewEntry(kind EntryKind, username string, files []RequestedFile) *AcquisitionEntry {
	now := time.Now()
	return &AcquisitionEntry{
		ID:        uuid.New().String(),
		Kind:      kind,
		Username:  username,
		Files:     files,
		State:     StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTrackEntry creates an entry for a single scored track
func NewTrackEntry(t ScoredTrack) *AcquisitionEntry {
	e := NewEntry(KindTrack, t.Username, []RequestedFile{{Filename: t.Filename, Size: t.Size}})
	e.Title = t.Title
	e.Artist = t.Artist
	e.Album = t.Album
	return e
}

// NewAlbumEntry creates an entry covering every track of a scored album
func NewAlbumEntry(a ScoredAlbum) *AcquisitionEntry {
	files := make([]RequestedFile, 0, len(a.Tracks))
	for _, t := range a.Tracks {
		files = append(files, RequestedFile{Filename: t.Filename, Size: t.Size})
	}
	e := NewEntry(KindAlbum, a.Username, files)
	e.Title = a.Title
	e.Artist = a.Artist
	e.Album = a.Title
	return e
}

// Transition moves the entry to a later state. reason becomes the entry's
// last error and is cleared when empty.
func (e *AcquisitionEntry) Transition(to EntryState, reason string) error {
	if !CanTransition(e.State, to) {
		return fmt.Errorf("%w: %s -> %s (entry %s)", ErrInvalidTransition, e.State, to, e.ID)
	}
	now := time.Now()
	e.State = to
	e.Error = reason
	e.UpdatedAt = now
	if to.IsTerminal() {
		e.CompletedAt = &now
	}
	return nil
}

// IsTerminal checks if the entry reached a final state
func (e *AcquisitionEntry) IsTerminal() bool {
	return e.State.IsTerminal()
}

// LocalPaths returns where the download service stores each of the entry's files
func (e *AcquisitionEntry) LocalPaths(downloadDir string) []string {
	paths := make([]string, 0, len(e.Files))
	for _, f := range e.Files {
		paths = append(paths, LocalPath(downloadDir, f.Filename))
	}
	return paths
}

// Snapshot captures the entry's current state for subscribers
func (e *AcquisitionEntry) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		EntryID:   e.ID,
		BatchID:   e.BatchID,
		SessionID: e.SessionID,
		State:     e.State,
		Error:     e.Error,
		Timestamp: time.Now(),
	}
}
