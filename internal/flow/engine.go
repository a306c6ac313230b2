// Package flow implements the triage dialogue engine: a per-user state
// machine for the symptom flow, a fixed-order set of stateless intent
// detectors, and a generic fallback.
//
// Turn resolution order, first match wins:
//  1. symptom keywords (re)start the stateful flow from any step
//  2. step-conditioned transitions of the active flow
//  3. stateless intent detectors: payment, doctor, medicine, hospital
//  4. keyword overrides, then a pseudo-random generic fallback
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/TriagePipe/internal/models"
	"github.com/BTreeMap/TriagePipe/internal/store"
)

// Engine maps (conversation state, decrypted input) to (next state,
// response descriptor). Randomness affects only fallback-text selection
// and the simulated weather, never transitions.
type Engine struct {
	store   store.Store
	weather WeatherLookup

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates a dialogue engine. A nil rng falls back to a
// time-seeded source; tests inject a fixed seed for determinism. A nil
// weather lookup gets its own source seeded from rng, never rng itself:
// the lookup and the fallback guard their draws with separate mutexes, so
// sharing one non-thread-safe source between them would race.
func NewEngine(st store.Store, weather WeatherLookup, rng *rand.Rand) *Engine {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed))
	}
	if weather == nil {
		weather = NewStaticWeatherLookup(rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	}
	return &Engine{store: st, weather: weather, rng: rng}
}

// HandleTurn resolves one decrypted utterance against the user's current
// conversation state and returns the response descriptor for it. State is
// read lazily and written back only on transitions.
func (e *Engine) HandleTurn(ctx context.Context, userID, input string) (*models.ResponseDescriptor, error) {
	state, err := e.store.GetOrCreate(userID)
	if err != nil {
		slog.Error("Engine.HandleTurn state load failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load conversation state: %w", err)
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	slog.Debug("Engine.HandleTurn invoked", "userID", userID, "step", state.Step)

	// Rule 1: symptom keywords restart the flow regardless of current step.
	if symptom, ok := detectSymptom(normalized); ok {
		desc, err := e.startSymptomFlow(state, symptom)
		if err != nil {
			return nil, err
		}
		slog.Info("Engine.HandleTurn started symptom flow", "userID", userID, "symptom", symptom)
		return desc, nil
	}

	// Rule 2: step-conditioned transitions of the active flow.
	if desc, handled, err := e.advanceSymptomFlow(ctx, state, normalized); err != nil {
		return nil, err
	} else if handled {
		slog.Info("Engine.HandleTurn advanced symptom flow", "userID", userID, "step", state.Step)
		return desc, nil
	}

	// Rule 3: stateless intent detectors in fixed order.
	if desc, ok := detectIntent(normalized); ok {
		slog.Info("Engine.HandleTurn matched intent", "userID", userID, "type", desc.Type)
		return desc, nil
	}

	// Rule 4: generic fallback. Unmatched input inside an active flow is
	// not an error; the flow is silently left as last set.
	desc := e.fallbackResponse(normalized)
	slog.Debug("Engine.HandleTurn fell back to generic response", "userID", userID)
	return desc, nil
}

// symptomKeywords are the triggers that (re)start the triage flow.
var symptomKeywords = []string{"cold", "fever", "cough", "headache"}

// detectSymptom reports the first triage keyword contained in the input.
func detectSymptom(input string) (string, bool) {
	for _, kw := range symptomKeywords {
		if strings.Contains(input, kw) {
			return kw, true
		}
	}
	return "", false
}
