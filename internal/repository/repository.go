package repository

import (
	"fmt"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// RecordRepository defines the interface for dataset persistence operations
type RecordRepository interface {
	Append(rec entities.DatasetRecord) error
	Load() ([]entities.DatasetRecord, error)
	RemoveLocations(locations []string) (int, error)
	Close() error
}

// Open returns the repository for the configured backend. backfill may be nil;
// it completes CSV rows written without score, band or element columns.
func Open(backend, datasetPath, dbPath string, backfill func(*entities.DatasetRecord)) (RecordRepository, error) {
	switch backend {
	case "", "csv":
		repo, err := NewCSVRecordRepository(datasetPath)
		if err != nil {
			return nil, err
		}
		repo.Backfill = backfill
		return repo, nil
	case "sqlite":
		return NewSQLiteRecordRepository(dbPath)
	}
	return nil, fmt.Errorf("unknown dataset backend %q", backend)
}
