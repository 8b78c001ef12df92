package domain

// EntryRepository defines the interface for acquisition history persistence
type EntryRepository interface {
	// Save inserts or updates an entry
	Save(entry *AcquisitionEntry) error

	// FindByID finds an entry by ID
	FindByID(id string) (*AcquisitionEntry, error)

	// FindAll finds all entries matching the filter, newest first
	FindAll(filter EntryFilter) ([]*AcquisitionEntry, error)

	// GetStats returns entry counts by state
	GetStats() (*EntryStats, error)
}

// EntryFilter narrows FindAll results. Zero values match everything.
type EntryFilter struct {
	State     EntryState
	SessionID string
	BatchID   string
	Limit     int
}

// EntryStats represents acquisition statistics
type EntryStats struct {
	Total    int64                `json:"total"`
	ByState  map[EntryState]int64 `json:"by_state"`
	Active   int64                `json:"active"`
	Imported int64                `json:"imported"`
	Failed   int64                `json:"failed"`
}
