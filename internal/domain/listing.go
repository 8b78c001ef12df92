package domain

import (
	"path/filepath"
	"strings"
)

// RawListing is one file offered by one remote peer, as returned by a search
type RawListing struct {
	Username          string `json:"username"`
	Filename          string `json:"filename"`
	Size              int64  `json:"size"`
	BitRate           *int   `json:"bit_rate,omitempty"`
	Duration          *int   `json:"duration,omitempty"`
	HasFreeUploadSlot bool   `json:"has_free_upload_slot"`
	UploadSpeed       int    `json:"upload_speed"`
	QueueLength       int    `json:"queue_length"`
}

// ScoredTrack is a RawListing enriched with metadata inferred from its path
type ScoredTrack struct {
	RawListing
	Artist      string  `json:"artist,omitempty"`
	Title       string  `json:"title"`
	Album       string  `json:"album,omitempty"`
	TrackNumber *int    `json:"track_number,omitempty"`
	Quality     string  `json:"quality"`
	Score       float64 `json:"score"`
}

// ScoredAlbum is a set of tracks sharing one peer and one directory.
// TrackCount always equals len(Tracks) and TotalSize the sum of track sizes.
type ScoredAlbum struct {
	Username          string        `json:"username"`
	Path              string        `json:"path"`
	Title             string        `json:"title"`
	Artist            string        `json:"artist,omitempty"`
	Tracks            []ScoredTrack `json:"tracks"`
	TrackCount        int           `json:"track_count"`
	TotalSize         int64         `json:"total_size"`
	DominantQuality   string        `json:"dominant_quality"`
	HasFreeUploadSlot bool          `json:"has_free_upload_slot"`
	UploadSpeed       int           `json:"upload_speed"`
	QueueLength       int           `json:"queue_length"`
	Score             float64       `json:"score"`
}

// SizeMB returns the album size in whole mebibytes
func (a *ScoredAlbum) SizeMB() int64 {
	return a.TotalSize / (1024 * 1024)
}

// AverageTrackSizeMB returns the mean track size in mebibytes
func (a *ScoredAlbum) AverageTrackSizeMB() float64 {
	if a.TrackCount == 0 {
		return 0
	}
	return float64(a.SizeMB()) / float64(a.TrackCount)
}

// SplitRemotePath splits a peer-reported path on both separator styles.
// Peers running Windows report backslash paths.
func SplitRemotePath(remote string) []string {
	return strings.FieldsFunc(remote, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// RemoteDir returns the directory part of a peer-reported path using forward slashes
func RemoteDir(remote string) string {
	parts := SplitRemotePath(remote)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], "/")
}

// RemoteBase returns the file name of a peer-reported path
func RemoteBase(remote string) string {
	parts := SplitRemotePath(remote)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// LocalPath maps a remote file to where the download service stores it:
// <downloadDir>/<remote parent directory name>/<file name>.
func LocalPath(downloadDir, remote string) string {
	parts := SplitRemotePath(remote)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return filepath.Join(downloadDir, parts[0])
	default:
		return filepath.Join(downloadDir, parts[len(parts)-2], parts[len(parts)-1])
	}
}
