package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"iptv-catalog/work/logger"
)

// schema holds everything the upload history needs. The catalog itself is
// never stored here; shards on disk remain the source of truth.
const schema = `
CREATE TABLE IF NOT EXISTS uploads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	total_channels INTEGER NOT NULL,
	total_categories INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at DESC);
`

// DB wraps the sql.DB with the upload-history queries.
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// UploadRecord is one processed playlist upload.
type UploadRecord struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	TotalChannels   int       `json:"totalChannels"`
	TotalCategories int       `json:"totalCategories"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Open creates the upload-history database with WAL mode and a small
// connection pool, running the schema on the way up.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	wrapper := &DB{DB: db, log: logger.WithComponent("database")}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	wrapper.log.Info().Str("path", path).Msg("upload history database opened")
	return wrapper, nil
}

// RecordUpload appends one upload event to the history.
func (db *DB) RecordUpload(filename string, totalChannels, totalCategories int) error {
	_, err := db.Exec(
		`INSERT INTO uploads (filename, total_channels, total_categories) VALUES (?, ?, ?)`,
		filename, totalChannels, totalCategories,
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// RecentUploads returns the newest upload events, newest first.
func (db *DB) RecentUploads(limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, filename, total_channels, total_categories, created_at
		 FROM uploads ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var records []UploadRecord
	for rows.Next() {
		var rec UploadRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.TotalChannels, &rec.TotalCategories, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
