// Package models defines the core data structures for TriagePipe.
//
// It includes the wire envelope types exchanged with clients, the
// conversation state tracked per user, and the response descriptors
// produced by the dialogue engine. These types are shared across modules.
package models

import (
	"errors"
	"time"
)

// SenderAI is the sender identifier stamped on every outbound envelope.
const SenderAI = "ai"

// Validation constants for inbound input.
const (
	// MaxUserIDLength defines the maximum allowed length for a user identifier.
	MaxUserIDLength = 128
	// MaxPlaintextLength defines the maximum allowed length for a decrypted utterance.
	MaxPlaintextLength = 4096
)

// Error variables for better error handling and testability.
var (
	ErrMissingEncryption  = errors.New("envelope missing encryption fields")
	ErrMissingUserID      = errors.New("envelope user id cannot be empty")
	ErrUserIDTooLong      = errors.New("envelope user id exceeds maximum length")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMissingQuestion    = errors.New("question data is required for question responses")
	ErrMissingComponent   = errors.New("component type is required for component responses")
	ErrEmptyMessageText   = errors.New("message text cannot be empty")
)

// InboundEnvelope is the wire container a client submits for one turn.
// The body travels as base64 ciphertext alongside its base64 IV; only the
// user id and timestamp travel in clear.
type InboundEnvelope struct {
	EncryptedData string `json:"encryptedData"`
	IV            string `json:"iv"`
	UserID        string `json:"userId"`
	Timestamp     string `json:"timestamp"`
	Encrypted     bool   `json:"encrypted"`
}

// Validate checks the envelope before any decryption is attempted.
// Envelopes lacking ciphertext or IV are rejected with ErrMissingEncryption.
func (e *InboundEnvelope) Validate() error {
	if e.EncryptedData == "" || e.IV == "" || !e.Encrypted {
		return ErrMissingEncryption
	}
	if e.UserID == "" {
		return ErrMissingUserID
	}
	if len(e.UserID) > MaxUserIDLength {
		return ErrUserIDTooLong
	}
	return nil
}

// OutboundEnvelope is the wire container returned for one turn. Only the
// message body is confidentiality-protected; the structured fields beyond
// encryptedData/iv travel in clear so clients can render them directly.
type OutboundEnvelope struct {
	ID             string          `json:"id"`
	EncryptedData  string          `json:"encryptedData"`
	IV             string          `json:"iv"`
	Sender         string          `json:"sender"`
	Timestamp      string          `json:"timestamp"`
	MessageType    MessageType     `json:"messageType"`
	Encrypted      bool            `json:"encrypted"`
	QuestionData   *QuestionData   `json:"questionData,omitempty"`
	ShowMedicines  bool            `json:"showMedicines,omitempty"`
	ComponentType  string          `json:"componentType,omitempty"`
	PaymentRequest *PaymentRequest `json:"paymentRequest,omitempty"`
}

// TurnStatus represents the outcome of a processed turn.
type TurnStatus string

const (
	// TurnStatusCompleted indicates the turn was processed and answered.
	TurnStatusCompleted TurnStatus = "completed"
	// TurnStatusRejected indicates the envelope was rejected before decryption.
	TurnStatusRejected TurnStatus = "rejected"
	// TurnStatusFailed indicates the turn failed after decryption.
	TurnStatusFailed TurnStatus = "failed"
)

// Receipt records the outcome of a single turn for a user.
type Receipt struct {
	UserID string     `json:"userId"`
	Status TurnStatus `json:"status"`
	Time   int64      `json:"time"`
}

// NewReceipt creates a receipt stamped with the current time.
func NewReceipt(userID string, status TurnStatus) Receipt {
	return Receipt{UserID: userID, Status: status, Time: time.Now().Unix()}
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the JSON envelope returned by all HTTP endpoints.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
