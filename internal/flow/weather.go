// Package flow provides the simulated location/weather lookup used by the
// cold triage branch.
package flow

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Weather is one city/temperature pair returned by a lookup.
type Weather struct {
	Location    string
	Temperature int
}

// WeatherLookup resolves the user's approximate location and current
// temperature. Implementations may call an external service; the engine
// only depends on this interface.
type WeatherLookup interface {
	Lookup(ctx context.Context) (Weather, error)
}

// staticWeatherTable is the fixed set of city/temperature pairs the
// simulated lookup chooses from.
var staticWeatherTable = []Weather{
	{Location: "Mumbai", Temperature: 31},
	{Location: "Delhi", Temperature: 27},
	{Location: "Bengaluru", Temperature: 23},
	{Location: "Chennai", Temperature: 33},
	{Location: "Pune", Temperature: 25},
}

// StaticWeatherLookup simulates a location/weather service by picking a
// random entry from a fixed table after a short simulated latency.
type StaticWeatherLookup struct {
	mu      sync.Mutex
	rng     *rand.Rand
	latency time.Duration
}

// NewStaticWeatherLookup creates a simulated lookup driven by the given
// random source. A nil source falls back to a time-seeded one.
func NewStaticWeatherLookup(rng *rand.Rand) *StaticWeatherLookup {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed))
	}
	return &StaticWeatherLookup{rng: rng, latency: 50 * time.Millisecond}
}

// Lookup returns one fixed city/temperature pair chosen at random. It
// honors context cancellation during the simulated latency.
func (l *StaticWeatherLookup) Lookup(ctx context.Context) (Weather, error) {
	select {
	case <-ctx.Done():
		return Weather{}, ctx.Err()
	case <-time.After(l.latency):
	}

	l.mu.Lock()
	w := staticWeatherTable[l.rng.IntN(len(staticWeatherTable))]
	l.mu.Unlock()

	slog.Debug("StaticWeatherLookup.Lookup resolved", "location", w.Location, "temperature", w.Temperature)
	return w, nil
}
