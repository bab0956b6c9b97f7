package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sokkuri/sokkuri/internal/feature"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		image_ref TEXT,
		vector BLOB NOT NULL,
		layout_version INTEGER NOT NULL,
		source_mtime INTEGER NOT NULL DEFAULT 0,
		source_size INTEGER NOT NULL DEFAULT 0,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_indexed_at ON images(indexed_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Add inserts a record, replacing any existing record with the same id
// (explicit re-index replaces vector, layout version, and timestamp together).
// The upsert updates in place so a replaced record keeps its rowid and with
// it its position in GetAll's insertion order.
func (s *SQLiteStore) Add(ctx context.Context, rec *Record) error {
	rec.IndexedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, source_name, image_ref, vector, layout_version, source_mtime, source_size, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   source_name = excluded.source_name,
		   image_ref = excluded.image_ref,
		   vector = excluded.vector,
		   layout_version = excluded.layout_version,
		   source_mtime = excluded.source_mtime,
		   source_size = excluded.source_size,
		   indexed_at = excluded.indexed_at`,
		rec.ID, rec.SourceName, rec.ImageRef, encodeVector(rec.Vector.Values),
		int(rec.Vector.Version), rec.SourceMtime, rec.SourceSize, rec.IndexedAt,
	)
	return err
}

// Get returns a record by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_name, image_ref, vector, layout_version, source_mtime, source_size, indexed_at
		 FROM images WHERE id = ?`, id,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

// GetAll returns every record ordered by insertion (rowid).
func (s *SQLiteStore) GetAll(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_name, image_ref, vector, layout_version, source_mtime, source_size, indexed_at
		 FROM images ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var blob []byte
	var version int
	if err := row.Scan(&rec.ID, &rec.SourceName, &rec.ImageRef, &blob, &version,
		&rec.SourceMtime, &rec.SourceSize, &rec.IndexedAt); err != nil {
		return nil, err
	}
	values, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Vector = feature.Vector{Version: feature.LayoutVersion(version), Values: values}
	return &rec, nil
}

// Delete removes a record by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	return err
}

// Clear removes every record.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images`)
	return err
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
