package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRecordRepository implements RecordRepository using SQLite
type SQLiteRecordRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteRecordRepository creates and initializes a new SQLite repository
func NewSQLiteRecordRepository(dbPath string) (*SQLiteRecordRepository, error) {
	if dbPath == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "waterquality.db")
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS water_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location TEXT NOT NULL DEFAULT '',
		ph REAL NOT NULL,
		tds REAL NOT NULL,
		hardness REAL NOT NULL,
		nitrate REAL NOT NULL,
		uranium REAL,
		conductivity REAL,
		risk_score INTEGER NOT NULL,
		band TEXT NOT NULL,
		elements TEXT NOT NULL,
		prediction TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_location ON water_records(location);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteRecordRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteRecordRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Append stores one record
func (r *SQLiteRecordRepository) Append(rec entities.DatasetRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO water_records(location, ph, tds, hardness, nitrate, uranium, conductivity,
			risk_score, band, elements, prediction)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Location,
		rec.PH,
		rec.TDS,
		rec.Hardness,
		rec.Nitrate,
		nullFloat(rec.Uranium),
		nullFloat(rec.Conductivity),
		rec.RiskScore,
		string(rec.Band),
		entities.JoinElements(rec.Elements),
		rec.Prediction,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record for %q: %w", rec.Location, err)
	}
	log.Printf("Saved record for location %q", rec.Location)
	return nil
}

// Load returns all records in insertion order
func (r *SQLiteRecordRepository) Load() ([]entities.DatasetRecord, error) {
	rows, err := r.db.Query(`
		SELECT location, ph, tds, hardness, nitrate, uranium, conductivity,
			risk_score, band, elements, prediction
		FROM water_records
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []entities.DatasetRecord
	for rows.Next() {
		var (
			rec                   entities.DatasetRecord
			uranium, conductivity sql.NullFloat64
			band, elements        string
		)
		if err := rows.Scan(
			&rec.Location,
			&rec.PH,
			&rec.TDS,
			&rec.Hardness,
			&rec.Nitrate,
			&uranium,
			&conductivity,
			&rec.RiskScore,
			&band,
			&elements,
			&rec.Prediction,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if uranium.Valid {
			rec.Uranium = entities.Float(uranium.Float64)
		}
		if conductivity.Valid {
			rec.Conductivity = entities.Float(conductivity.Float64)
		}
		rec.Band = entities.Band(band)
		rec.Elements = entities.SplitElements(elements)
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrDatasetNotFound
	}
	return result, nil
}

// RemoveLocations deletes every record for the given locations
func (r *SQLiteRecordRepository) RemoveLocations(locations []string) (int, error) {
	if len(locations) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(locations)), ",")
	args := make([]any, len(locations))
	for i, l := range locations {
		args[i] = l
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	res, err := tx.Exec("DELETE FROM water_records WHERE location IN ("+placeholders+")", args...)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to count deleted records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Removed %d records for locations %v", n, locations)
	return int(n), nil
}
