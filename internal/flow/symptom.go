// Package flow implements the multi-step symptom triage state machine.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/TriagePipe/internal/models"
)

// Canonical option values echoed back by the client.
const (
	DurationUnderOneHour  = "less_1_hr"
	DurationOneToFive     = "1_5_hrs"
	DurationSixToEighteen = "6_18_hrs"
	DurationOverOneDay    = "more_1_day"

	ColdTypeDry = "dry_cold"
	ColdTypeWet = "wet_cold"

	AnswerTakenMedicine   = "taken"
	AnswerSuggestMedicine = "suggest"
)

// SymptomCold is the only symptom with a sub-type branch.
const SymptomCold = "cold"

// durationOptions are the four duration buckets offered after any symptom.
var durationOptions = []models.QuestionOption{
	{Value: DurationUnderOneHour, Label: "Less than 1 hour"},
	{Value: DurationOneToFive, Label: "1 to 5 hours"},
	{Value: DurationSixToEighteen, Label: "6 to 18 hours"},
	{Value: DurationOverOneDay, Label: "More than a day"},
}

// coldTypeOptions distinguish the dry/wet cold sub-types.
var coldTypeOptions = []models.QuestionOption{
	{Value: ColdTypeDry, Label: "Dry cold (sneezing, blocked nose)"},
	{Value: ColdTypeWet, Label: "Wet cold (runny nose, phlegm)"},
}

// medicineStatusOptions ask whether the user already medicated.
var medicineStatusOptions = []models.QuestionOption{
	{Value: AnswerTakenMedicine, Label: "I already took medicine"},
	{Value: AnswerSuggestMedicine, Label: "Suggest a medicine"},
}

// closingAdvice ends the flow after a free-text medicine answer.
const closingAdvice = "Thanks for the details. Keep drinking plenty of fluids, rest well, and monitor your symptoms. If they persist beyond 3 days, please consult a doctor."

// symptomAdvice resolves a completed duration answer for symptoms without
// a sub-type branch.
var symptomAdvice = map[string]string{
	"fever":    "Noted. For fever, rest and stay hydrated, and track your temperature regularly. If it stays above 102°F or lasts more than 3 days, please see a doctor.",
	"cough":    "Noted. For a cough, warm fluids and rest usually help. If it worsens or lasts more than 3 days, please see a doctor.",
	"headache": "Noted. For a headache, rest in a quiet room and stay hydrated. If it becomes severe or lasts more than 3 days, please see a doctor.",
}

// startSymptomFlow records the matched symptom, moves to step 1, and asks
// the duration question. Any previously active flow is replaced.
func (e *Engine) startSymptomFlow(state *models.ConversationState, symptom string) (*models.ResponseDescriptor, error) {
	state.Reset()
	state.Symptoms = []string{symptom}
	state.Step = models.StepAwaitingDuration
	if err := e.store.Save(state); err != nil {
		return nil, fmt.Errorf("failed to save conversation state: %w", err)
	}

	question := fmt.Sprintf("I'm sorry to hear you have a %s. How long have you had it?", symptom)
	return models.NewQuestionResponse(question, &models.QuestionData{
		Question: question,
		Options:  durationOptions,
	}), nil
}

// advanceSymptomFlow applies the step-conditioned transitions. It reports
// handled=false when no transition is defined for (step, input), leaving
// the state untouched so the stateless detectors and fallback can run.
func (e *Engine) advanceSymptomFlow(ctx context.Context, state *models.ConversationState, input string) (*models.ResponseDescriptor, bool, error) {
	switch state.Step {
	case models.StepAwaitingDuration:
		if !isDurationCode(input) {
			return nil, false, nil
		}
		return e.handleDuration(state, input)

	case models.StepAwaitingColdType:
		if input != ColdTypeDry && input != ColdTypeWet {
			return nil, false, nil
		}
		return e.handleColdType(ctx, state, input)

	case models.StepAwaitingMedicineStatus:
		switch input {
		case AnswerTakenMedicine:
			return e.handleMedicineTaken(state)
		case AnswerSuggestMedicine:
			return e.handleMedicineSuggest(state)
		}
		return nil, false, nil

	case models.StepAwaitingMedicineDetail:
		// Any input closes the flow.
		return e.handleMedicineDetail(state)
	}
	return nil, false, nil
}

func (e *Engine) handleDuration(state *models.ConversationState, input string) (*models.ResponseDescriptor, bool, error) {
	state.Duration = input

	if state.PrimarySymptom() == SymptomCold {
		state.Step = models.StepAwaitingColdType
		if err := e.store.Save(state); err != nil {
			return nil, false, fmt.Errorf("failed to save conversation state: %w", err)
		}
		question := "Is it a dry cold or a wet cold?"
		return models.NewQuestionResponse(question, &models.QuestionData{
			Question: question,
			Options:  coldTypeOptions,
		}), true, nil
	}

	// Non-cold symptoms have no sub-type branch: the duration answer
	// completes the flow with a symptom advisory.
	advice, ok := symptomAdvice[state.PrimarySymptom()]
	if !ok {
		advice = closingAdvice
	}
	if err := e.resetState(state); err != nil {
		return nil, false, err
	}
	return models.NewTextResponse(advice), true, nil
}

func (e *Engine) handleColdType(ctx context.Context, state *models.ConversationState, input string) (*models.ResponseDescriptor, bool, error) {
	weather, err := e.weather.Lookup(ctx)
	if err != nil {
		slog.Error("Engine.handleColdType weather lookup failed", "error", err, "userID", state.UserID)
		return nil, false, fmt.Errorf("weather lookup failed: %w", err)
	}

	state.ColdType = input
	state.Location = weather.Location
	state.Temperature = weather.Temperature
	state.Step = models.StepAwaitingMedicineStatus
	if err := e.store.Save(state); err != nil {
		return nil, false, fmt.Errorf("failed to save conversation state: %w", err)
	}

	question := fmt.Sprintf("It's %d°C in %s right now. Have you already taken medicine, or should I suggest one?",
		weather.Temperature, weather.Location)
	return models.NewQuestionResponse(question, &models.QuestionData{
		Question: question,
		Options:  medicineStatusOptions,
		Context: &models.QuestionContext{
			Location:    weather.Location,
			Temperature: weather.Temperature,
		},
	}), true, nil
}

func (e *Engine) handleMedicineTaken(state *models.ConversationState) (*models.ResponseDescriptor, bool, error) {
	state.Step = models.StepAwaitingMedicineDetail
	if err := e.store.Save(state); err != nil {
		return nil, false, fmt.Errorf("failed to save conversation state: %w", err)
	}

	question := "Which medicine did you take, and when was your last dose?"
	return models.NewQuestionResponse(question, &models.QuestionData{
		Question: question,
		FreeText: true,
	}), true, nil
}

func (e *Engine) handleMedicineSuggest(state *models.ConversationState) (*models.ResponseDescriptor, bool, error) {
	summary := fmt.Sprintf("For a %s at %d°C in %s, here are some medicines that can help.",
		coldTypeLabel(state.ColdType), state.Temperature, state.Location)
	if err := e.resetState(state); err != nil {
		return nil, false, err
	}

	desc := models.NewTextResponse(summary)
	desc.ShowMedicines = true
	return desc, true, nil
}

func (e *Engine) handleMedicineDetail(state *models.ConversationState) (*models.ResponseDescriptor, bool, error) {
	if err := e.resetState(state); err != nil {
		return nil, false, err
	}
	return models.NewTextResponse(closingAdvice), true, nil
}

func (e *Engine) resetState(state *models.ConversationState) error {
	if err := e.store.Reset(state.UserID); err != nil {
		return fmt.Errorf("failed to reset conversation state: %w", err)
	}
	state.Reset()
	return nil
}

func isDurationCode(input string) bool {
	switch input {
	case DurationUnderOneHour, DurationOneToFive, DurationSixToEighteen, DurationOverOneDay:
		return true
	default:
		return false
	}
}

func coldTypeLabel(coldType string) string {
	if coldType == ColdTypeWet {
		return "wet cold"
	}
	return "dry cold"
}
