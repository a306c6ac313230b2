// Package models defines response descriptors produced by the dialogue engine.
package models

// MessageType defines the structural kind of an outbound message.
type MessageType string

const (
	// MessageTypeText is a plain textual reply.
	MessageTypeText MessageType = "text"
	// MessageTypeQuestion is a follow-up question, optionally with selectable options.
	MessageTypeQuestion MessageType = "question"
	// MessageTypeComponent triggers a client-side UI component.
	MessageTypeComponent MessageType = "component"
)

// IsValidMessageType checks if the given message type is supported.
func IsValidMessageType(mt MessageType) bool {
	switch mt {
	case MessageTypeText, MessageTypeQuestion, MessageTypeComponent:
		return true
	default:
		return false
	}
}

// QuestionOption is one selectable answer for a question response. The
// Value is the canonical token the client echoes back on the next turn.
type QuestionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuestionContext carries situational data attached to a question, such as
// the looked-up location and temperature for weather-aware questions.
type QuestionContext struct {
	Location    string `json:"location,omitempty"`
	Temperature int    `json:"temperature,omitempty"`
}

// QuestionData describes a follow-up question. FreeText questions carry no
// options and accept any utterance as the answer.
type QuestionData struct {
	Question string           `json:"question"`
	Options  []QuestionOption `json:"options,omitempty"`
	FreeText bool             `json:"freeText,omitempty"`
	Context  *QuestionContext `json:"context,omitempty"`
}

// PaymentRequest asks the client to initiate a payment.
type PaymentRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// ResponseDescriptor is the engine's description of one outbound message.
// It is a tagged union over Type: question responses carry Question,
// component responses carry ComponentType, and text responses carry only
// the flat fields. Validate enforces the variant rules.
type ResponseDescriptor struct {
	Type          MessageType
	Text          string
	Question      *QuestionData
	ComponentType string
	ShowMedicines bool
	Payment       *PaymentRequest
}

// NewTextResponse creates a plain text descriptor.
func NewTextResponse(text string) *ResponseDescriptor {
	return &ResponseDescriptor{Type: MessageTypeText, Text: text}
}

// NewQuestionResponse creates a question descriptor.
func NewQuestionResponse(text string, q *QuestionData) *ResponseDescriptor {
	return &ResponseDescriptor{Type: MessageTypeQuestion, Text: text, Question: q}
}

// NewComponentResponse creates a component descriptor.
func NewComponentResponse(text, componentType string) *ResponseDescriptor {
	return &ResponseDescriptor{Type: MessageTypeComponent, Text: text, ComponentType: componentType}
}

// Validate performs variant validation on a ResponseDescriptor.
func (d *ResponseDescriptor) Validate() error {
	if !IsValidMessageType(d.Type) {
		return ErrInvalidMessageType
	}
	if d.Text == "" {
		return ErrEmptyMessageText
	}
	switch d.Type {
	case MessageTypeQuestion:
		if d.Question == nil {
			return ErrMissingQuestion
		}
	case MessageTypeComponent:
		if d.ComponentType == "" {
			return ErrMissingComponent
		}
	}
	return nil
}
