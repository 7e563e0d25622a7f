// Package store persists explanation runs in a local sqlite database so
// the dashboard and TUI browser can revisit them.
package store

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/robottwo/lucid/pkg/explain"
)

// RunStore owns the runs database.
type RunStore struct {
	db *gorm.DB
}

// RunEntry is one explanation method's result within a run. A run that used
// several methods stores one row per method, sharing a RunID.
type RunEntry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	RunID         string `gorm:"index:idx_run_method,priority:1"`
	Method        string `gorm:"index:idx_run_method,priority:2"`
	Mode          string
	ModelName     string
	InstanceCount int
	DurationMs    int64
	Payload       string
}

// Explanation decodes the stored explanation payload.
func (e *RunEntry) Explanation() (*explain.LocalExplanation, error) {
	var explanation explain.LocalExplanation
	if err := sonic.Unmarshal([]byte(e.Payload), &explanation); err != nil {
		return nil, fmt.Errorf("decoding run %s payload: %w", e.RunID, err)
	}
	return &explanation, nil
}

// NewRunStore opens (and if needed migrates) the runs database at dbFilePath.
func NewRunStore(dbFilePath string) (*RunStore, error) {
	// NFS-optimized connection string with PRAGMA settings
	// - foreign_keys(1): Enable foreign key constraints (disabled by default)
	// - busy_timeout(5000): 5 second timeout for NFS network latency
	// - synchronous(1): NORMAL mode for durability/performance balance
	// - cache_size(-20000): 20MB cache to reduce NFS I/O operations
	// - temp_store(2): MEMORY - keeps temp files out of NFS
	connectionString := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(1)&_pragma=cache_size(-20000)&_pragma=temp_store(2)", dbFilePath)

	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database")
		return nil, err
	}

	if err := db.AutoMigrate(&RunEntry{}); err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite optimization
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite serializes writes anyway, so multiple connections add overhead
	sqlDB.SetMaxOpenConns(1)
	// Minimal pooling for file-based DB
	sqlDB.SetMaxIdleConns(1)
	// Reasonable connection lifetime
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Enable WAL mode for better NFS performance and concurrent readers
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	return &RunStore{db: db}, nil
}

// Close closes the database connection. Call it when the store is no longer
// needed, especially in tests so temporary files can be cleaned up.
func (s *RunStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun records one method's explanation for a run.
func (s *RunStore) SaveRun(runID, method string, mode explain.Mode, modelName string, duration time.Duration, explanation *explain.LocalExplanation) (*RunEntry, error) {
	payload, err := sonic.Marshal(explanation)
	if err != nil {
		return nil, fmt.Errorf("encoding explanation payload: %w", err)
	}

	entry := RunEntry{
		RunID:         runID,
		Method:        method,
		Mode:          string(mode),
		ModelName:     modelName,
		InstanceCount: len(explanation.Instances),
		DurationMs:    duration.Milliseconds(),
		Payload:       string(payload),
	}

	result := s.db.Create(&entry)
	if result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

// RecentRuns returns the newest entries first, up to limit. A limit of 0
// returns everything.
func (s *RunStore) RecentRuns(limit int) ([]RunEntry, error) {
	var entries []RunEntry
	db := s.db.Order("created_at desc, id desc")
	if limit > 0 {
		db = db.Limit(limit)
	}
	result := db.Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// GetRun returns all method entries that share runID.
func (s *RunStore) GetRun(runID string) ([]RunEntry, error) {
	var entries []RunEntry
	result := s.db.Where("run_id = ?", runID).Order("id asc").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no run found with id %s", runID)
	}
	return entries, nil
}

// GetEntry returns a single entry by its row id.
func (s *RunStore) GetEntry(id uint) (*RunEntry, error) {
	var entry RunEntry
	result := s.db.First(&entry, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

// DeleteRun removes every entry belonging to runID.
func (s *RunStore) DeleteRun(runID string) error {
	result := s.db.Where("run_id = ?", runID).Delete(&RunEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no run found with id %s", runID)
	}
	return nil
}

// Reset removes all stored runs.
func (s *RunStore) Reset() error {
	result := s.db.Exec("DELETE FROM run_entries")
	if result.Error != nil {
		return result.Error
	}
	return nil
}
