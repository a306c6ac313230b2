package models

import (
	"errors"
	"strings"
	"testing"
)

func validEnvelope() *InboundEnvelope {
	return &InboundEnvelope{
		EncryptedData: "Y2lwaGVydGV4dA==",
		IV:            "aXZpdml2aXZpdg==",
		UserID:        "user-1",
		Timestamp:     "2025-01-01T00:00:00Z",
		Encrypted:     true,
	}
}

func TestInboundEnvelopeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*InboundEnvelope)
		wantErr error
	}{
		{"valid", func(e *InboundEnvelope) {}, nil},
		{"missing encrypted data", func(e *InboundEnvelope) { e.EncryptedData = "" }, ErrMissingEncryption},
		{"missing iv", func(e *InboundEnvelope) { e.IV = "" }, ErrMissingEncryption},
		{"plaintext flag", func(e *InboundEnvelope) { e.Encrypted = false }, ErrMissingEncryption},
		{"missing user id", func(e *InboundEnvelope) { e.UserID = "" }, ErrMissingUserID},
		{"user id too long", func(e *InboundEnvelope) { e.UserID = strings.Repeat("a", MaxUserIDLength+1) }, ErrUserIDTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope()
			tt.mutate(env)
			if err := env.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInboundEnvelopeValidate_MaxLengthUserID(t *testing.T) {
	env := validEnvelope()
	env.UserID = strings.Repeat("a", MaxUserIDLength)
	if err := env.Validate(); err != nil {
		t.Errorf("user id at the limit should pass, got %v", err)
	}
}

func TestResponseDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    *ResponseDescriptor
		wantErr error
	}{
		{"text", NewTextResponse("hello"), nil},
		{"question", NewQuestionResponse("pick one", &QuestionData{Question: "pick one"}), nil},
		{"component", NewComponentResponse("nearby hospitals", "location"), nil},
		{"unknown type", &ResponseDescriptor{Type: "carousel", Text: "hi"}, ErrInvalidMessageType},
		{"empty text", NewTextResponse(""), ErrEmptyMessageText},
		{"question without data", &ResponseDescriptor{Type: MessageTypeQuestion, Text: "pick one"}, ErrMissingQuestion},
		{"component without type", &ResponseDescriptor{Type: MessageTypeComponent, Text: "see map"}, ErrMissingComponent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.desc.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConversationStateReset(t *testing.T) {
	state := NewConversationState("user-1")
	state.Step = StepAwaitingMedicineStatus
	state.Symptoms = []string{"cold"}
	state.Duration = "6_18_hrs"
	state.ColdType = "dry_cold"
	state.Location = "Mumbai"
	state.Temperature = 31
	created := state.CreatedAt

	state.Reset()

	if state.Step != StepAwaitingSymptom {
		t.Errorf("expected step 0 after reset, got %d", state.Step)
	}
	if len(state.Symptoms) != 0 || state.Duration != "" || state.ColdType != "" || state.Location != "" || state.Temperature != 0 {
		t.Errorf("expected cleared flow fields, got %+v", state)
	}
	if state.UserID != "user-1" || !state.CreatedAt.Equal(created) {
		t.Error("reset must keep user identity and creation time")
	}
}

func TestPrimarySymptom(t *testing.T) {
	state := NewConversationState("user-1")
	if got := state.PrimarySymptom(); got != "" {
		t.Errorf("expected empty symptom before a flow starts, got %q", got)
	}
	state.Symptoms = []string{"fever", "cough"}
	if got := state.PrimarySymptom(); got != "fever" {
		t.Errorf("expected the flow-starting symptom, got %q", got)
	}
}

func TestNewReceipt(t *testing.T) {
	receipt := NewReceipt("user-1", TurnStatusCompleted)
	if receipt.UserID != "user-1" || receipt.Status != TurnStatusCompleted {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if receipt.Time == 0 {
		t.Error("receipt must be stamped with the current time")
	}
}
