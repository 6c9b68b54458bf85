// ABOUTME: SQLite implementation of LogoStore using modernc.org/sqlite
// ABOUTME: Creates the schema on open and keeps the current logo in a settings table

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentLogoKey = "current_logo_url"

// SQLiteStore implements LogoStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ LogoStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS logos (
			filename TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			added_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_logos_url ON logos(url);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) StoreLogo(ctx context.Context, rawURL, name string) (*Logo, error) {
	filename, err := LogoFilename(rawURL, name)
	if err != nil {
		return nil, err
	}

	logo := &Logo{
		Filename: filename,
		URL:      rawURL,
		AddedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	query := `
		INSERT INTO logos (filename, url, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET url = excluded.url, added_at = excluded.added_at
	`
	if _, err := s.db.ExecContext(ctx, query, logo.Filename, logo.URL, logo.AddedAt); err != nil {
		return nil, fmt.Errorf("storing logo: %w", err)
	}

	s.logger.Debug("logo stored", "filename", logo.Filename)
	return logo, nil
}

func (s *SQLiteStore) ListLogos(ctx context.Context) ([]*Logo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, url, added_at FROM logos
		ORDER BY added_at DESC, filename ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing logos: %w", err)
	}
	defer rows.Close()

	var logos []*Logo
	for rows.Next() {
		var logo Logo
		if err := rows.Scan(&logo.Filename, &logo.URL, &logo.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning logo: %w", err)
		}
		logos = append(logos, &logo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logos: %w", err)
	}
	return logos, nil
}

func (s *SQLiteStore) GetLogo(ctx context.Context, filename string) (*Logo, error) {
	var logo Logo
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, url, added_at FROM logos WHERE filename = ?`, filename,
	).Scan(&logo.Filename, &logo.URL, &logo.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting logo: %w", err)
	}
	return &logo, nil
}

func (s *SQLiteStore) DeleteLogo(ctx context.Context, filename string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var url string
	err = tx.QueryRowContext(ctx, `SELECT url FROM logos WHERE filename = ?`, filename).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("getting logo: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM logos WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("deleting logo: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ? AND value = ?`, currentLogoKey, url,
	); err != nil {
		return fmt.Errorf("clearing current logo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	s.logger.Debug("logo deleted", "filename", filename)
	return nil
}

func (s *SQLiteStore) SetCurrentLogo(ctx context.Context, rawURL string) error {
	if _, err := ValidateLogoURL(rawURL); err != nil {
		return err
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, currentLogoKey, rawURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("setting current logo: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CurrentLogo(ctx context.Context) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, currentLogoKey,
	).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting current logo: %w", err)
	}
	return url, nil
}
