// Package protocol implements the encrypted turn protocol: envelope
// validation, decrypt → engine → encrypt sequencing, and response assembly.
package protocol

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/TriagePipe/internal/crypto"
	"github.com/BTreeMap/TriagePipe/internal/models"
	"github.com/google/uuid"
)

// ErrEncryptionFailure indicates the response body could not be encrypted.
var ErrEncryptionFailure = errors.New("response encryption failed")

// Assembler turns a response descriptor into an outbound envelope. Only the
// message text is encrypted; questionData, componentType, showMedicines and
// paymentRequest travel in clear so clients can render them without decrypting.
type Assembler struct {
	key               crypto.Key
	now               func() time.Time
	newID             func() string
	encrypt           func(plaintext string, key crypto.Key) (data, iv string, err error)
	plaintextFallback bool
}

// NewAssembler creates an assembler bound to the given key.
func NewAssembler(key crypto.Key) *Assembler {
	return &Assembler{
		key:     key,
		now:     time.Now,
		newID:   uuid.NewString,
		encrypt: crypto.EncryptToBase64,
	}
}

// Assemble builds the outbound envelope for a descriptor, stamping a fresh
// id, the current timestamp and the AI sender. Encryption uses a fresh IV.
//
// By default an encryption failure fails the turn with ErrEncryptionFailure.
// When the plaintext fallback is enabled the body is returned in clear with
// encrypted=false instead; the downgrade is logged loudly either way.
func (a *Assembler) Assemble(desc *models.ResponseDescriptor) (*models.OutboundEnvelope, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid response descriptor: %w", err)
	}

	env := &models.OutboundEnvelope{
		ID:             a.newID(),
		Sender:         models.SenderAI,
		Timestamp:      a.now().UTC().Format(time.RFC3339),
		MessageType:    desc.Type,
		QuestionData:   desc.Question,
		ShowMedicines:  desc.ShowMedicines,
		ComponentType:  desc.ComponentType,
		PaymentRequest: desc.Payment,
	}

	data, iv, err := a.encrypt(desc.Text, a.key)
	if err != nil {
		if !a.plaintextFallback {
			slog.Error("Assembler.Assemble encryption failed", "error", err, "key", a.key, "id", env.ID)
			return nil, fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
		}
		slog.Warn("Assembler.Assemble encryption failed, degrading to plaintext response", "error", err, "key", a.key, "id", env.ID)
		env.EncryptedData = desc.Text
		env.Encrypted = false
		return env, nil
	}

	env.EncryptedData = data
	env.IV = iv
	env.Encrypted = true
	return env, nil
}
