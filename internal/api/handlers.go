// Package api provides HTTP handlers for TriagePipe endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/TriagePipe/internal/crypto"
	"github.com/BTreeMap/TriagePipe/internal/models"
	"github.com/BTreeMap/TriagePipe/internal/protocol"
)

// genericSecurityNotice is the only detail exposed for cryptographic
// failures; key material and ciphertext internals never reach the client.
const genericSecurityNotice = "Your message could not be processed securely. Please send it again."

func (s *Server) turnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.turnHandler: processing turn request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.turnHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var env models.InboundEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		slog.Warn("Server.turnHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	outbound, err := s.svc.SubmitTurn(r.Context(), &env)
	if err != nil {
		s.writeTurnError(w, &env, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(outbound))
}

// writeTurnError maps protocol errors to HTTP statuses without leaking
// cryptographic detail.
func (s *Server) writeTurnError(w http.ResponseWriter, env *models.InboundEnvelope, err error) {
	var authErr *crypto.AuthenticationError
	switch {
	case errors.Is(err, models.ErrMissingEncryption),
		errors.Is(err, models.ErrMissingUserID),
		errors.Is(err, models.ErrUserIDTooLong):
		slog.Warn("Server.turnHandler: envelope rejected", "error", err, "userID", env.UserID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.As(err, &authErr):
		slog.Warn("Server.turnHandler: authentication failed", "userID", env.UserID, "keyID", authErr.KeyID)
		writeJSONResponse(w, http.StatusUnauthorized, models.Error(genericSecurityNotice))
	case errors.Is(err, protocol.ErrTurnTimeout):
		slog.Error("Server.turnHandler: turn timed out", "userID", env.UserID)
		writeJSONResponse(w, http.StatusGatewayTimeout, models.Error("The assistant took too long to respond. Please try again."))
	case errors.Is(err, protocol.ErrEncryptionFailure):
		slog.Error("Server.turnHandler: response encryption failed", "userID", env.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(genericSecurityNotice))
	default:
		slog.Error("Server.turnHandler: turn failed", "error", err, "userID", env.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
	}
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.receiptsHandler: processing receipts request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	receipts, err := s.store.GetReceipts()
	if err != nil {
		slog.Error("Server.receiptsHandler: failed to load receipts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load receipts"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
