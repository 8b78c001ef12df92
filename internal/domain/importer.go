package domain

import "context"

// ImportKind classifies the importer's verdict
type ImportKind string

const (
	ImportSuccess  ImportKind = "success"
	ImportSkipped  ImportKind = "skipped"
	ImportFailed   ImportKind = "failed"
	ImportTimedOut ImportKind = "timed_out"
)

// ImportOutcome is what the importer reports for one group of source paths
type ImportOutcome struct {
	Kind   ImportKind `json:"kind"`
	Reason string     `json:"reason,omitempty"` // set for ImportFailed
}

// ImportFailedWith builds a failed outcome carrying the importer's reason
func ImportFailedWith(reason string) ImportOutcome {
	return ImportOutcome{Kind: ImportFailed, Reason: reason}
}

// Importer organizes downloaded files into the managed library.
// Calls may run for minutes; the importer bounds its own runtime and
// reports ImportTimedOut when it gives up.
type Importer interface {
	Import(ctx context.Context, sources []string, targetDir string, asAlbum bool) (ImportOutcome, error)
	// Check verifies the importer is installed and answers
	Check(ctx context.Context) error
}

// ImporterID names a registered importer implementation
type ImporterID string

const (
	ImporterBeets ImporterID = "beets"
)
