// Package store provides storage backends for TriagePipe conversation state.
//
// It includes an in-memory store for single-process deployments and
// persistent SQLite/PostgreSQL backends. All backends evict conversation
// state idle longer than the configured TTL.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/TriagePipe/internal/models"
)

// DefaultStateTTL is how long idle conversation state is retained.
const DefaultStateTTL = 30 * time.Minute

// sweepInterval controls how often the in-memory store scans for idle state.
const sweepInterval = 5 * time.Minute

// Store defines the conversation state and receipt persistence contract.
type Store interface {
	// GetOrCreate returns the state for a user, creating the default
	// {step:0, symptoms:[]} entry on first access.
	GetOrCreate(userID string) (*models.ConversationState, error)

	// Save persists the given state, overwriting any previous entry.
	Save(state *models.ConversationState) error

	// Reset removes the entry for a user; the next access yields default state.
	Reset(userID string) error

	// AddReceipt records the outcome of a processed turn.
	AddReceipt(r models.Receipt) error

	// GetReceipts returns all recorded turn receipts.
	GetReceipts() ([]models.Receipt, error)

	// Close releases any resources held by the store.
	Close() error
}

// InMemoryStore is a process-wide keyed store for conversation state.
type InMemoryStore struct {
	mu       sync.RWMutex
	states   map[string]*models.ConversationState
	receipts []models.Receipt
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewInMemoryStore creates an in-memory store and starts its TTL sweeper.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	s := &InMemoryStore{
		states: make(map[string]*models.ConversationState),
		ttl:    ttl,
		stop:   make(chan struct{}),
	}
	go s.sweepExpired()
	return s
}

// GetOrCreate returns the state for a user, creating the default on first access.
func (s *InMemoryStore) GetOrCreate(userID string) (*models.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[userID]; ok {
		copied := *state
		copied.Symptoms = append([]string(nil), state.Symptoms...)
		return &copied, nil
	}
	state := models.NewConversationState(userID)
	s.states[userID] = state
	slog.Debug("InMemoryStore.GetOrCreate: created default state", "userID", userID)
	copied := *state
	copied.Symptoms = append([]string(nil), state.Symptoms...)
	return &copied, nil
}

// Save persists the given state.
func (s *InMemoryStore) Save(state *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	copied.Symptoms = append([]string(nil), state.Symptoms...)
	copied.UpdatedAt = time.Now()
	s.states[state.UserID] = &copied
	slog.Debug("InMemoryStore.Save succeeded", "userID", state.UserID, "step", state.Step)
	return nil
}

// Reset removes the entry for a user.
func (s *InMemoryStore) Reset(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	slog.Debug("InMemoryStore.Reset succeeded", "userID", userID)
	return nil
}

// AddReceipt records the outcome of a processed turn.
func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.receipts = append(s.receipts, r)
	return nil
}

// GetReceipts returns all recorded turn receipts.
func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts := make([]models.Receipt, len(s.receipts))
	copy(receipts, s.receipts)
	return receipts, nil
}

// Close stops the TTL sweeper.
func (s *InMemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// sweepExpired periodically removes conversation state idle longer than the TTL.
func (s *InMemoryStore) sweepExpired() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			s.mu.Lock()
			for userID, state := range s.states {
				if state.UpdatedAt.Before(cutoff) {
					delete(s.states, userID)
					slog.Debug("InMemoryStore.sweepExpired: evicted idle state", "userID", userID)
				}
			}
			s.mu.Unlock()
		}
	}
}
