// Package testutil provides common test utilities and helpers for TriagePipe tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/TriagePipe/internal/crypto"
	"github.com/BTreeMap/TriagePipe/internal/flow"
	"github.com/BTreeMap/TriagePipe/internal/models"
	"github.com/BTreeMap/TriagePipe/internal/protocol"
	"github.com/BTreeMap/TriagePipe/internal/store"
)

// TestKeyID is the key identifier used across tests.
const TestKeyID = "test-key-1"

// NewTestKey returns a deterministic 32-byte key for tests.
func NewTestKey(t *testing.T) crypto.Key {
	t.Helper()
	material := make([]byte, crypto.KeySize)
	for i := range material {
		material[i] = byte(i)
	}
	key, err := crypto.NewKey(TestKeyID, material)
	if err != nil {
		t.Fatalf("failed to create test key: %v", err)
	}
	return key
}

// NewTestRand returns a fixed-seed random source so fallback and weather
// selection are reproducible.
func NewTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// NewTestEngine creates a dialogue engine over an in-memory store.
func NewTestEngine(t *testing.T) (*flow.Engine, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	t.Cleanup(func() { st.Close() })
	// nil weather exercises the production wiring: the engine seeds an
	// independent source for the lookup, deterministically from the rng.
	engine := flow.NewEngine(st, nil, NewTestRand())
	return engine, st
}

// NewTestService creates a protocol service with in-memory dependencies.
// This centralizes the test service creation logic used across test files.
func NewTestService(t *testing.T, opts ...protocol.Option) (*protocol.Service, *store.InMemoryStore, crypto.Key) {
	t.Helper()
	key := NewTestKey(t)
	engine, st := NewTestEngine(t)
	return protocol.NewService(engine, st, key, opts...), st, key
}

// EncryptEnvelope builds a valid inbound envelope carrying the plaintext.
func EncryptEnvelope(t *testing.T, key crypto.Key, userID, plaintext string) *models.InboundEnvelope {
	t.Helper()
	data, iv, err := crypto.EncryptToBase64(plaintext, key)
	if err != nil {
		t.Fatalf("failed to encrypt test envelope: %v", err)
	}
	return &models.InboundEnvelope{
		EncryptedData: data,
		IV:            iv,
		UserID:        userID,
		Timestamp:     "2025-01-01T00:00:00Z",
		Encrypted:     true,
	}
}

// DecryptBody decrypts the outbound envelope's message text.
func DecryptBody(t *testing.T, key crypto.Key, env *models.OutboundEnvelope) string {
	t.Helper()
	if !env.Encrypted {
		return env.EncryptedData
	}
	plaintext, err := crypto.DecryptFromBase64(env.EncryptedData, env.IV, key)
	if err != nil {
		t.Fatalf("failed to decrypt outbound envelope: %v", err)
	}
	return plaintext
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}
	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}
