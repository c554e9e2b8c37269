package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// CSVRecordRepository keeps the dataset in one flat CSV file. Every write
// rewrites the whole file; concurrent writers are not coordinated.
type CSVRecordRepository struct {
	Path string
	// Backfill, when set, completes rows from older files that lack derived
	// columns. Rewrites then store the completed values.
	Backfill func(*entities.DatasetRecord)
}

// NewCSVRecordRepository creates a CSV-backed repository
func NewCSVRecordRepository(path string) (*CSVRecordRepository, error) {
	if path == "" {
		path = "water_data.csv"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}
	log.Printf("Using CSV dataset at %s", path)
	return &CSVRecordRepository{Path: path}, nil
}

// Close is a no-op for the CSV repository
func (r *CSVRecordRepository) Close() error {
	return nil
}

// Load reads every record from the dataset file
func (r *CSVRecordRepository) Load() ([]entities.DatasetRecord, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, err
	}
	if r.Backfill != nil {
		for i := range records {
			r.Backfill(&records[i])
		}
	}
	return records, nil
}

// ReadRecords parses a dataset table from CSV
func ReadRecords(rd io.Reader) ([]entities.DatasetRecord, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &SchemaError{Missing: RequiredColumns}
		}
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	if err := CheckColumns(header, RequiredColumns, DatasetColumns); err != nil {
		return nil, err
	}
	idx := ColumnIndex(header)

	var records []entities.DatasetRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset line %d: %w", line, err)
		}
		rec, err := parseRecordRow(idx, row)
		if err != nil {
			return nil, fmt.Errorf("dataset line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes a header and one row per record in the given column order
func WriteRecords(w io.Writer, columns []string, records []entities.DatasetRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(RecordRow(rec, columns)); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", rec.Location, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Append adds a record, creating the file with headers on first use
func (r *CSVRecordRepository) Append(rec entities.DatasetRecord) error {
	records, err := r.Load()
	if err != nil && !errors.Is(err, ErrDatasetNotFound) {
		return err
	}
	records = append(records, rec)

	if err := r.rewrite(records); err != nil {
		return err
	}
	log.Printf("Appended record for location %q (%d rows total)", rec.Location, len(records))
	return nil
}

// RemoveLocations drops every row whose location is in the given set
func (r *CSVRecordRepository) RemoveLocations(locations []string) (int, error) {
	records, err := r.Load()
	if err != nil {
		return 0, err
	}

	kept := filterLocations(records, locations)
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := r.rewrite(kept); err != nil {
		return 0, err
	}
	log.Printf("Removed %d rows for locations %v", removed, locations)
	return removed, nil
}

func (r *CSVRecordRepository) rewrite(records []entities.DatasetRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.Path), ".water_data-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp dataset: %w", err)
	}
	defer os.Remove(tmp.Name())

	mode := os.FileMode(0644)
	if info, err := os.Stat(r.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set dataset mode: %w", err)
	}

	if err := WriteRecords(tmp, DatasetColumns, records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.Path); err != nil {
		return fmt.Errorf("failed to replace dataset: %w", err)
	}
	return nil
}

func filterLocations(records []entities.DatasetRecord, locations []string) []entities.DatasetRecord {
	drop := make(map[string]bool, len(locations))
	for _, l := range locations {
		drop[l] = true
	}
	kept := make([]entities.DatasetRecord, 0, len(records))
	for _, rec := range records {
		if !drop[rec.Location] {
			kept = append(kept, rec)
		}
	}
	return kept
}
