package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopee-shorts-pipeline/types"
)

// RunRecord is one pipeline run as persisted for reporting
type RunRecord struct {
	ID              uint      `gorm:"primaryKey"`
	RunID           string    `gorm:"size:36;uniqueIndex;not null"`
	StartedAt       time.Time `gorm:"index"`
	FinishedAt      time.Time
	ProductsScraped int
	VideoCreated    bool
	Uploaded        bool
	Failed          bool
	RenderBackend   string `gorm:"size:16"`
	VideoFile       string `gorm:"size:1024"`
	VideoURL        string `gorm:"size:1024"`
	Error           string `gorm:"type:text"`
}

// StatsStore keeps run history in sqlite
type StatsStore struct {
	db *gorm.DB
}

// OpenStats opens (and migrates) the database at path. ":memory:" works for tests.
func OpenStats(path string) (*StatsStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create stats dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate stats database: %w", err)
	}
	return &StatsStore{db: db}, nil
}

// Record inserts run, or replaces the row with the same RunID
func (s *StatsStore) Record(run RunRecord) error {
	// sqlite compares times as text, so keep everything in UTC
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	var existing RunRecord
	err := s.db.Where("run_id = ?", run.RunID).First(&existing).Error
	switch {
	case err == nil:
		run.ID = existing.ID
		return s.db.Save(&run).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.Create(&run).Error
	default:
		return fmt.Errorf("look up run %s: %w", run.RunID, err)
	}
}

// Daily aggregates the runs started on day's calendar date in day's location
func (s *StatsStore) Daily(day time.Time) (types.Stats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).UTC()
	start = start.UTC()

	var runs []RunRecord
	if err := s.db.Where("started_at >= ? AND started_at < ?", start, end).Find(&runs).Error; err != nil {
		return types.Stats{}, err
	}

	var stats types.Stats
	for _, r := range runs {
		stats.ProductsScraped += r.ProductsScraped
		if r.VideoCreated {
			stats.VideosCreated++
		}
		if r.Uploaded {
			stats.VideosUploaded++
		}
		if r.Failed {
			stats.Errors++
		}
	}
	return stats, nil
}

func (s *StatsStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
