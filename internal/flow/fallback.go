// Package flow implements the generic fallback used when no flow rule or
// intent detector matches.
package flow

import (
	"github.com/BTreeMap/TriagePipe/internal/models"
)

// fallbackOverrides map keyword groups to a specific canned sentence.
// They are checked in order before the generic pool.
var fallbackOverrides = []struct {
	keywords []string
	text     string
}{
	{
		keywords: []string{"pain", "hurt"},
		text:     "I'm sorry you're in pain. Can you tell me where it hurts and how strong it is on a scale of 1 to 10?",
	},
	{
		keywords: []string{"fever", "temperature"},
		text:     "A raised temperature can mean many things. Have you measured it? Let me know the reading and how long you've felt this way.",
	},
	{
		keywords: []string{"medication", "medicine"},
		text:     "Before taking any medication, it's best to check the dosage and interactions. Tell me what you're considering and I can help.",
	},
}

// fallbackPool is the fixed set of generic replies; one is chosen
// pseudo-randomly when nothing else matches.
var fallbackPool = [8]string{
	"I see. Can you tell me a bit more about how you're feeling?",
	"Thanks for sharing that. How long has this been going on?",
	"I understand. Are there any other symptoms you've noticed?",
	"Got it. Is this affecting your sleep or appetite?",
	"Okay. Does anything make it better or worse?",
	"I hear you. Have you experienced this before?",
	"Noted. On a scale of 1 to 10, how much is this bothering you?",
	"Alright. Would you like me to suggest a doctor or some general advice?",
}

// fallbackResponse picks a keyword override if one applies, otherwise one
// of the generic pool sentences via the injected random source.
func (e *Engine) fallbackResponse(input string) *models.ResponseDescriptor {
	for _, override := range fallbackOverrides {
		if containsAny(input, override.keywords...) {
			return models.NewTextResponse(override.text)
		}
	}

	e.mu.Lock()
	text := fallbackPool[e.rng.IntN(len(fallbackPool))]
	e.mu.Unlock()
	return models.NewTextResponse(text)
}
