package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestSQLiteRepository tests saving and reloading records through SQLite
func TestSQLiteRepository(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "water-quality-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	repo, err := NewSQLiteRecordRepository(filepath.Join(tempDir, "test-waterquality.db"))
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	if _, err := repo.Load(); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("Expected ErrDatasetNotFound on empty database, got %v", err)
	}

	records := sampleRecords()
	for _, rec := range records {
		if err := repo.Append(rec); err != nil {
			t.Fatalf("Failed to append record: %v", err)
		}
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Failed to load records: %v", err)
	}
	if len(loaded) != len(records) {
		t.Fatalf("Expected %d records, got %d", len(records), len(loaded))
	}
	if loaded[1].Uranium == nil || *loaded[1].Uranium != 0.04 {
		t.Errorf("Expected uranium 0.04 for second record, got %v", loaded[1].Uranium)
	}
	if loaded[0].Uranium != nil {
		t.Errorf("Expected no uranium for first record")
	}
	if got := len(loaded[1].Elements); got != 2 {
		t.Errorf("Expected 2 elements for second record, got %d", got)
	}

	n, err := repo.RemoveLocations([]string{"Well B"})
	if err != nil {
		t.Fatalf("Failed to remove locations: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 removed record, got %d", n)
	}

	loaded, err = repo.Load()
	if err != nil {
		t.Fatalf("Failed to reload records: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("Expected 2 remaining records, got %d", len(loaded))
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("parquet", "", "", nil); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
