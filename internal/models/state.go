// Package models defines state management structures for triage conversations.
package models

import "time"

// Step marks progress through the symptom-triage flow.
type Step int

const (
	// StepAwaitingSymptom is the initial state, before any symptom is reported.
	StepAwaitingSymptom Step = 0
	// StepAwaitingDuration waits for a duration-bucket answer.
	StepAwaitingDuration Step = 1
	// StepAwaitingColdType waits for the dry/wet cold sub-type answer.
	StepAwaitingColdType Step = 2
	// StepAwaitingMedicineStatus waits for the taken/suggest answer.
	StepAwaitingMedicineStatus Step = 3
	// StepAwaitingMedicineDetail waits for a free-text medicine description.
	StepAwaitingMedicineDetail Step = 4
)

// ConversationState represents the current state of a user in the triage flow.
type ConversationState struct {
	UserID      string    `json:"user_id"`
	Step        Step      `json:"step"`
	Symptoms    []string  `json:"symptoms"`
	Duration    string    `json:"duration,omitempty"`
	ColdType    string    `json:"type,omitempty"`
	Location    string    `json:"location,omitempty"`
	Temperature int       `json:"temperature,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewConversationState returns the default state for a user: step 0 with no
// recorded symptoms. Created lazily on first access.
func NewConversationState(userID string) *ConversationState {
	now := time.Now()
	return &ConversationState{
		UserID:    userID,
		Step:      StepAwaitingSymptom,
		Symptoms:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PrimarySymptom returns the symptom that started the active flow, or the
// empty string when no flow is active.
func (s *ConversationState) PrimarySymptom() string {
	if len(s.Symptoms) == 0 {
		return ""
	}
	return s.Symptoms[0]
}

// Reset returns the state to the default while keeping the user identity
// and creation time.
func (s *ConversationState) Reset() {
	s.Step = StepAwaitingSymptom
	s.Symptoms = []string{}
	s.Duration = ""
	s.ColdType = ""
	s.Location = ""
	s.Temperature = 0
	s.UpdatedAt = time.Now()
}
