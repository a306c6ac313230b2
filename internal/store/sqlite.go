// Package store provides storage backends for TriagePipe.
//
// This file implements an SQLite-backed store for conversation state and
// turn receipts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/TriagePipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists conversation state in an SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore creates a new SQLite store with the given options. The DSN
// is a file path to the database file; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

// GetOrCreate returns the state for a user, creating the default on first access.
func (s *SQLiteStore) GetOrCreate(userID string) (*models.ConversationState, error) {
	var stateJSON string
	err := s.db.QueryRow(`SELECT state_json FROM conversation_state WHERE user_id = ?`, userID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		state := models.NewConversationState(userID)
		if err := s.Save(state); err != nil {
			return nil, err
		}
		slog.Debug("SQLiteStore.GetOrCreate: created default state", "userID", userID)
		return state, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetOrCreate query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation state for %s: %w", userID, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		slog.Error("SQLiteStore.GetOrCreate unmarshal failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to unmarshal conversation state for %s: %w", userID, err)
	}
	return &state, nil
}

// Save persists the given state, pruning entries idle longer than the TTL.
func (s *SQLiteStore) Save(state *models.ConversationState) error {
	state.UpdatedAt = time.Now()
	stateJSON, err := json.Marshal(state)
	if err != nil {
		slog.Error("SQLiteStore.Save marshal failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to marshal conversation state for %s: %w", state.UserID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO conversation_state (user_id, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		state.UserID, string(stateJSON), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.Save failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.UserID, err)
	}

	s.pruneExpired()
	slog.Debug("SQLiteStore.Save succeeded", "userID", state.UserID, "step", state.Step)
	return nil
}

// Reset removes the entry for a user.
func (s *SQLiteStore) Reset(userID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_state WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore.Reset failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to reset conversation state for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore.Reset succeeded", "userID", userID)
	return nil
}

// AddReceipt records the outcome of a processed turn.
func (s *SQLiteStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (user_id, status, time) VALUES (?, ?, ?)`, r.UserID, r.Status, r.Time)
	if err != nil {
		slog.Error("SQLiteStore.AddReceipt failed", "error", err, "userID", r.UserID)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.UserID, err)
	}
	return nil
}

// GetReceipts returns all recorded turn receipts.
func (s *SQLiteStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT user_id, status, time FROM receipts`)
	if err != nil {
		slog.Error("SQLiteStore.GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.UserID, &r.Status, &r.Time); err != nil {
			slog.Error("SQLiteStore.GetReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) pruneExpired() {
	cutoff := time.Now().Add(-s.ttl)
	if _, err := s.db.Exec(`DELETE FROM conversation_state WHERE updated_at < ?`, cutoff); err != nil {
		slog.Warn("SQLiteStore.pruneExpired failed", "error", err)
	}
}
