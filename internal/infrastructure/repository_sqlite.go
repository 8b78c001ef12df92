package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/cratedig-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteEntryRepository implements domain.EntryRepository using SQLite
type SQLiteEntryRepository struct {
	db *gorm.DB
}

// NewSQLiteEntryRepository opens (and migrates) the acquisition history database
func NewSQLiteEntryRepository(dbPath string) (*SQLiteEntryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pipelines save concurrently; one connection keeps SQLite from reporting a locked database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.AcquisitionEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteEntryRepository{db: db}, nil
}

// Save inserts the entry or overwrites the stored copy
func (r *SQLiteEntryRepository) Save(entry *domain.AcquisitionEntry) error {
	return r.db.Save(entry).Error
}

// FindByID finds an entry by ID
func (r *SQLiteEntryRepository) FindByID(id string) (*domain.AcquisitionEntry, error) {
	var entry domain.AcquisitionEntry
	err := r.db.First(&entry, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
		}
		return nil, err
	}
	return &entry, nil
}

// FindAll finds entries matching the filter, newest first
func (r *SQLiteEntryRepository) FindAll(filter domain.EntryFilter) ([]*domain.AcquisitionEntry, error) {
	var entries []*domain.AcquisitionEntry
	query := r.db.Model(&domain.AcquisitionEntry{})

	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.BatchID != "" {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	err := query.Order("created_at DESC").Find(&entries).Error
	return entries, err
}

// GetStats returns entry counts by state
func (r *SQLiteEntryRepository) GetStats() (*domain.EntryStats, error) {
	stats := &domain.EntryStats{ByState: make(map[domain.EntryState]int64)}

	if err := r.db.Model(&domain.AcquisitionEntry{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	stateCounts := []struct {
		State domain.EntryState
		Count int64
	}{}

	if err := r.db.Model(&domain.AcquisitionEntry{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		stats.ByState[sc.State] = sc.Count
		switch sc.State {
		case domain.StateQueued, domain.StateSubmitted, domain.StateDownloading,
			domain.StateSucceeded, domain.StateImporting:
			stats.Active += sc.Count
		case domain.StateImported:
			stats.Imported += sc.Count
		case domain.StateFailed, domain.StateErrored, domain.StateCancelled:
			stats.Failed += sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteEntryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
