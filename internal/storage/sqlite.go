// Package storage implements the persistence layer on SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// pairLockCount sizes the striped mutex pool serializing match upserts.
const pairLockCount = 64

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db        *sql.DB
	dbPath    string
	pairLocks [pairLockCount]sync.Mutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pairLock returns the mutex serializing writes for one (intent, profile)
// pair. Striping bounds memory while keeping unrelated pairs concurrent.
func (s *SQLiteStorage) pairLock(intentID, profileID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(intentID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(profileID))
	return &s.pairLocks[h.Sum32()%pairLockCount]
}
