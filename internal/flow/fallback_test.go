package flow

import (
	"context"
	"testing"

	"github.com/BTreeMap/TriagePipe/internal/models"
)

func TestFallback_PainOverride(t *testing.T) {
	engine, _ := newTestEngine(t, 1)

	desc := engine.fallbackResponse("my back hurts when i sit")
	if desc.Type != models.MessageTypeText {
		t.Fatalf("expected text response, got %s", desc.Type)
	}
	if desc.Text != fallbackOverrides[0].text {
		t.Errorf("expected pain override, got %q", desc.Text)
	}
}

func TestFallback_TemperatureOverride(t *testing.T) {
	engine, _ := newTestEngine(t, 1)

	// "temperature" reaches the fallback because it is not a symptom
	// keyword; "fever" never does, rule 1 consumes it.
	desc := engine.fallbackResponse("my temperature feels off")
	if desc.Text != fallbackOverrides[1].text {
		t.Errorf("expected temperature override, got %q", desc.Text)
	}
}

func TestFallback_MedicationOverride(t *testing.T) {
	engine, _ := newTestEngine(t, 1)

	desc := engine.fallbackResponse("is this medication safe")
	if desc.Text != fallbackOverrides[2].text {
		t.Errorf("expected medication override, got %q", desc.Text)
	}
}

func TestFallback_GenericPoolMembership(t *testing.T) {
	engine, _ := newTestEngine(t, 7)

	pool := make(map[string]struct{}, len(fallbackPool))
	for _, text := range fallbackPool {
		pool[text] = struct{}{}
	}

	for i := 0; i < 50; i++ {
		desc := engine.fallbackResponse("something unrelated")
		if _, ok := pool[desc.Text]; !ok {
			t.Fatalf("fallback text not from the fixed pool: %q", desc.Text)
		}
	}
}

func TestFallback_SeededSelectionIsReproducible(t *testing.T) {
	run := func() []string {
		engine, _ := newTestEngine(t, 42)
		var texts []string
		for i := 0; i < 10; i++ {
			texts = append(texts, engine.fallbackResponse("hmm").Text)
		}
		return texts
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("seeded fallback selection diverged at draw %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestHandleTurn_MedicineIntentBeatsFallbackOverride(t *testing.T) {
	engine, _ := newTestEngine(t, 1)

	// "medicine" is claimed by the stateless medicine intent before the
	// fallback override can see it; "medication" is not.
	desc, err := engine.HandleTurn(context.Background(), "user-1", "i need some medicine")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if !desc.ShowMedicines {
		t.Errorf("expected medicine intent to fire before fallback, got %+v", desc)
	}
}
