package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteKV keeps values in a single-table SQLite database
type SQLiteKV struct {
	db  *sql.DB
	get *sql.Stmt
	set *sql.Stmt
	del *sql.Stmt
}

// NewSQLiteKV opens (and migrates) <dataDir>/ideaforge.db
func NewSQLiteKV(dataDir string) (*SQLiteKV, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ideaforge.db")
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute migration: %w", err)
	}

	kv := &SQLiteKV{db: db}

	if kv.get, err = db.Prepare(`SELECT value FROM kv WHERE key = ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}
	if kv.set, err = db.Prepare(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare set statement: %w", err)
	}
	if kv.del, err = db.Prepare(`DELETE FROM kv WHERE key = ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	slog.Info("SQLite store initialized", "path", dbPath)

	return kv, nil
}

// Get reads a value
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.get.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set upserts a value
func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.set.ExecContext(ctx, key, value, time.Now().UTC())
	return err
}

// Delete removes a key
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	_, err := s.del.ExecContext(ctx, key)
	return err
}

// Close closes the statements and the database
func (s *SQLiteKV) Close() error {
	s.get.Close()
	s.set.Close()
	s.del.Close()
	return s.db.Close()
}
