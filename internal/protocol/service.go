// Package protocol provides the transport boundary for encrypted turns.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/TriagePipe/internal/crypto"
	"github.com/BTreeMap/TriagePipe/internal/flow"
	"github.com/BTreeMap/TriagePipe/internal/models"
	"github.com/BTreeMap/TriagePipe/internal/store"
)

// DefaultTurnTimeout bounds a single turn end to end.
const DefaultTurnTimeout = 10 * time.Second

// ErrTurnTimeout indicates a turn exceeded its deadline.
var ErrTurnTimeout = errors.New("turn deadline exceeded")

// ErrPlaintextTooLong indicates a decrypted utterance exceeded the limit.
var ErrPlaintextTooLong = errors.New("decrypted input exceeds maximum length")

// Notifier delivers an assembled envelope out of band (push, SMS, ...).
// Delivery is an external collaborator; failures never fail the turn.
type Notifier interface {
	Notify(ctx context.Context, userID string, env *models.OutboundEnvelope) error
}

// Service sequences one turn: validate the inbound envelope, decrypt,
// run the dialogue engine, and assemble the encrypted response. Turns for
// the same user are serialized; turns for different users run concurrently.
type Service struct {
	engine    *flow.Engine
	store     store.Store
	assembler *Assembler
	key       crypto.Key
	timeout   time.Duration
	notifier  Notifier

	userLocks sync.Map // userID -> *sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithTurnTimeout overrides the per-turn deadline.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPlaintextFallback makes the service return the response in clear with
// encrypted=false when response encryption fails, instead of failing the turn.
func WithPlaintextFallback(enabled bool) Option {
	return func(s *Service) {
		s.assembler.plaintextFallback = enabled
	}
}

// WithNotifier attaches an out-of-band delivery collaborator.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService creates the turn service.
func NewService(engine *flow.Engine, st store.Store, key crypto.Key, opts ...Option) *Service {
	s := &Service{
		engine:    engine,
		store:     st,
		assembler: NewAssembler(key),
		key:       key,
		timeout:   DefaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitTurn processes one inbound envelope and returns the outbound
// envelope for it. Envelopes lacking encryption fields are rejected before
// any decryption; decryption failures surface without touching state.
func (s *Service) SubmitTurn(ctx context.Context, env *models.InboundEnvelope) (*models.OutboundEnvelope, error) {
	if err := env.Validate(); err != nil {
		slog.Warn("Service.SubmitTurn rejected envelope", "error", err, "userID", env.UserID)
		s.recordReceipt(env.UserID, models.TurnStatusRejected)
		return nil, err
	}

	// Serialize turns per user so concurrent read-modify-write on the same
	// conversation state cannot lose transitions.
	lock := s.lockFor(env.UserID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	plaintext, err := crypto.DecryptFromBase64(env.EncryptedData, env.IV, s.key)
	if err != nil {
		var authErr *crypto.AuthenticationError
		if errors.As(err, &authErr) {
			slog.Warn("Service.SubmitTurn decryption failed", "error", err, "userID", env.UserID, "key", s.key)
		} else {
			slog.Warn("Service.SubmitTurn envelope decode failed", "error", err, "userID", env.UserID)
		}
		s.recordReceipt(env.UserID, models.TurnStatusFailed)
		return nil, err
	}
	if len(plaintext) > models.MaxPlaintextLength {
		s.recordReceipt(env.UserID, models.TurnStatusFailed)
		return nil, ErrPlaintextTooLong
	}

	desc, err := s.engine.HandleTurn(ctx, env.UserID, plaintext)
	if err != nil {
		s.recordReceipt(env.UserID, models.TurnStatusFailed)
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Error("Service.SubmitTurn deadline exceeded in engine", "userID", env.UserID)
			return nil, ErrTurnTimeout
		}
		return nil, fmt.Errorf("dialogue engine failed: %w", err)
	}

	outbound, err := s.assembler.Assemble(desc)
	if err != nil {
		s.recordReceipt(env.UserID, models.TurnStatusFailed)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		s.recordReceipt(env.UserID, models.TurnStatusFailed)
		return nil, ErrTurnTimeout
	}

	s.recordReceipt(env.UserID, models.TurnStatusCompleted)
	s.notify(ctx, env.UserID, outbound)
	slog.Info("Service.SubmitTurn completed", "userID", env.UserID, "messageType", outbound.MessageType, "id", outbound.ID)
	return outbound, nil
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *Service) recordReceipt(userID string, status models.TurnStatus) {
	if userID == "" {
		return
	}
	if err := s.store.AddReceipt(models.NewReceipt(userID, status)); err != nil {
		slog.Warn("Service.recordReceipt failed", "error", err, "userID", userID, "status", status)
	}
}

func (s *Service) notify(ctx context.Context, userID string, env *models.OutboundEnvelope) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, env); err != nil {
		slog.Warn("Service.notify delivery failed", "error", err, "userID", userID, "id", env.ID)
	}
}
