// Package store provides storage backends for TriagePipe.
//
// This file implements a PostgreSQL-backed store for conversation state and
// turn receipts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/TriagePipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists conversation state in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &PostgresStore{db: db, ttl: ttl}, nil
}

// GetOrCreate returns the state for a user, creating the default on first access.
func (s *PostgresStore) GetOrCreate(userID string) (*models.ConversationState, error) {
	var stateJSON string
	err := s.db.QueryRow(`SELECT state_json FROM conversation_state WHERE user_id = $1`, userID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		state := models.NewConversationState(userID)
		if err := s.Save(state); err != nil {
			return nil, err
		}
		slog.Debug("PostgresStore.GetOrCreate: created default state", "userID", userID)
		return state, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetOrCreate query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation state for %s: %w", userID, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		slog.Error("PostgresStore.GetOrCreate unmarshal failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to unmarshal conversation state for %s: %w", userID, err)
	}
	return &state, nil
}

// Save persists the given state, pruning entries idle longer than the TTL.
func (s *PostgresStore) Save(state *models.ConversationState) error {
	state.UpdatedAt = time.Now()
	stateJSON, err := json.Marshal(state)
	if err != nil {
		slog.Error("PostgresStore.Save marshal failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to marshal conversation state for %s: %w", state.UserID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO conversation_state (user_id, state_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET state_json = EXCLUDED.state_json, updated_at = EXCLUDED.updated_at`,
		state.UserID, string(stateJSON), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.Save failed", "error", err, "userID", state.UserID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.UserID, err)
	}

	s.pruneExpired()
	slog.Debug("PostgresStore.Save succeeded", "userID", state.UserID, "step", state.Step)
	return nil
}

// Reset removes the entry for a user.
func (s *PostgresStore) Reset(userID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_state WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore.Reset failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to reset conversation state for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore.Reset succeeded", "userID", userID)
	return nil
}

// AddReceipt records the outcome of a processed turn.
func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (user_id, status, time) VALUES ($1, $2, $3)`, r.UserID, r.Status, r.Time)
	if err != nil {
		slog.Error("PostgresStore.AddReceipt failed", "error", err, "userID", r.UserID)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.UserID, err)
	}
	return nil
}

// GetReceipts returns all recorded turn receipts.
func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT user_id, status, time FROM receipts`)
	if err != nil {
		slog.Error("PostgresStore.GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.UserID, &r.Status, &r.Time); err != nil {
			slog.Error("PostgresStore.GetReceipts scan failed", "error", err)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) pruneExpired() {
	cutoff := time.Now().Add(-s.ttl)
	if _, err := s.db.Exec(`DELETE FROM conversation_state WHERE updated_at < $1`, cutoff); err != nil {
		slog.Warn("PostgresStore.pruneExpired failed", "error", err)
	}
}
