package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/TriagePipe/internal/crypto"
	"github.com/BTreeMap/TriagePipe/internal/models"
	"github.com/BTreeMap/TriagePipe/internal/protocol"
	"github.com/BTreeMap/TriagePipe/internal/testutil"
)

func newTestServer(t *testing.T, opts ...protocol.Option) (http.Handler, func(userID, plaintext string) *models.InboundEnvelope, func(env *models.OutboundEnvelope) string) {
	t.Helper()
	svc, st, key := testutil.NewTestService(t, opts...)
	server := NewServer(svc, st, "")
	encrypt := func(userID, plaintext string) *models.InboundEnvelope {
		return testutil.EncryptEnvelope(t, key, userID, plaintext)
	}
	decrypt := func(env *models.OutboundEnvelope) string {
		return testutil.DecryptBody(t, key, env)
	}
	return server.Handler(), encrypt, decrypt
}

func decodeOutbound(t *testing.T, rr *httptest.ResponseRecorder) *models.OutboundEnvelope {
	t.Helper()
	var resp struct {
		Status string                    `json:"status"`
		Result *models.OutboundEnvelope `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode turn response: %v", err)
	}
	if resp.Result == nil {
		t.Fatal("turn response missing result envelope")
	}
	return resp.Result
}

func TestTurnEndpoint_HappyPath(t *testing.T) {
	handler, encrypt, decrypt := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/turn", encrypt("user-1", "I have a fever"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "POST /turn")
	outbound := decodeOutbound(t, rr)
	if outbound.Sender != models.SenderAI {
		t.Errorf("expected sender 'ai', got %q", outbound.Sender)
	}
	if outbound.MessageType != models.MessageTypeQuestion {
		t.Errorf("expected question response, got %s", outbound.MessageType)
	}
	if body := decrypt(outbound); body == "" {
		t.Error("expected non-empty decrypted body")
	}
}

func TestTurnEndpoint_MissingIV(t *testing.T) {
	handler, encrypt, _ := newTestServer(t)

	env := encrypt("user-1", "hello")
	env.IV = ""
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/turn", env)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "POST /turn without IV")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestTurnEndpoint_TamperedCiphertext(t *testing.T) {
	handler, encrypt, _ := newTestServer(t)

	env := encrypt("user-1", "hello")
	raw, err := crypto.FromBase64(env.EncryptedData)
	if err != nil {
		t.Fatalf("failed to decode ciphertext: %v", err)
	}
	raw[0] ^= 0x01
	env.EncryptedData = crypto.ToBase64(raw)
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/turn", env)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "POST /turn with tampered data")
	resp := testutil.AssertJSONResponse(t, rr, "error")
	if msg, _ := resp["message"].(string); msg != genericSecurityNotice {
		t.Errorf("crypto failures must return the generic notice, got %q", msg)
	}
}

func TestTurnEndpoint_TimeoutReturns504(t *testing.T) {
	handler, encrypt, _ := newTestServer(t, protocol.WithTurnTimeout(time.Nanosecond))

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/turn", encrypt("user-1", "hello"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusGatewayTimeout, rr.Code, "POST /turn past deadline")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestTurnEndpoint_InvalidJSON(t *testing.T) {
	handler, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/turn", nil)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "POST /turn with empty body")
}

func TestTurnEndpoint_MethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/turn", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET /turn")
	if allow := rr.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", allow)
	}
}

func TestReceiptsEndpoint(t *testing.T) {
	handler, encrypt, _ := newTestServer(t)

	// One completed turn, one rejected turn.
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/turn", encrypt("user-1", "hello"))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	bad := encrypt("user-2", "hello")
	bad.IV = ""
	handler.ServeHTTP(httptest.NewRecorder(), testutil.CreateHTTPRequest(t, http.MethodPost, "/turn", bad))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/receipts", nil))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "GET /receipts")
	var resp struct {
		Status string           `json:"status"`
		Result []models.Receipt `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode receipts response: %v", err)
	}
	if len(resp.Result) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(resp.Result))
	}
	statuses := map[models.TurnStatus]bool{}
	for _, r := range resp.Result {
		statuses[r.Status] = true
	}
	if !statuses[models.TurnStatusCompleted] || !statuses[models.TurnStatusRejected] {
		t.Errorf("expected one completed and one rejected receipt, got %+v", resp.Result)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "GET /health")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, _ := resp["result"].(map[string]interface{})
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result)
	}
}
