// Package store keeps a SQLite ledger of completed ingests.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ikh/dicomdir/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const dateLayout = "2006-01-02"

// Store is the ingest ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. ":memory:" opens a private
// in-memory ledger.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a completed ingest.
func (s *Store) Record(ctx context.Context, in models.Ingest) error {
	var studyDate sql.NullString
	if !in.StudyDate.IsZero() {
		studyDate = sql.NullString{String: in.StudyDate.Format(dateLayout), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingests (id, source, study_date, series_count, image_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.Source, studyDate, in.SeriesCount, in.ImageCount, in.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record ingest %s: %w", in.ID, err)
	}
	return nil
}

// Seen reports whether source has been ingested before.
func (s *Store) Seen(ctx context.Context, source string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingests WHERE source = ?`, source).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query ingests: %w", err)
	}
	return n > 0, nil
}

// List returns the most recent ingests first. A limit of zero or less
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]models.Ingest, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, study_date, series_count, image_count, created_at
		 FROM ingests ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingests: %w", err)
	}
	defer rows.Close()

	var out []models.Ingest
	for rows.Next() {
		var (
			in        models.Ingest
			studyDate sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&in.ID, &in.Source, &studyDate, &in.SeriesCount, &in.ImageCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ingest: %w", err)
		}
		if studyDate.Valid {
			if in.StudyDate, err = time.Parse(dateLayout, studyDate.String); err != nil {
				return nil, fmt.Errorf("ingest %s: %w", in.ID, err)
			}
		}
		in.CreatedAt = createdAt
		out = append(out, in)
	}
	return out, rows.Err()
}
