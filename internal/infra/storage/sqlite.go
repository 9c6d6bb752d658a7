package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"lighter_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists execution reports in a local SQLite database.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.ExecutionReport{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "LighterGo", "data", "lighter.db"), nil
}

// SaveReport persists one execution report.
func (s *Storage) SaveReport(report *domain.ExecutionReport) error {
	return s.db.Create(report).Error
}

// RecentReports returns the newest reports first, up to limit.
func (s *Storage) RecentReports(limit int) ([]domain.ExecutionReport, error) {
	var reports []domain.ExecutionReport
	err := s.db.Order("created_at desc").Limit(limit).Find(&reports).Error
	return reports, err
}

// ReportsForSymbol returns the newest reports for one market symbol.
func (s *Storage) ReportsForSymbol(symbol string, limit int) ([]domain.ExecutionReport, error) {
	var reports []domain.ExecutionReport
	err := s.db.Where("symbol = ?", symbol).Order("created_at desc").Limit(limit).Find(&reports).Error
	return reports, err
}

// PruneOlderThan deletes reports past the retention window and returns
// the number removed.
func (s *Storage) PruneOlderThan(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&domain.ExecutionReport{})
	return res.RowsAffected, res.Error
}
