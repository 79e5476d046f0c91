// Package api provides HTTP handlers for Photon endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avocadolabs/photon/internal/models"
)

const (
	// SessionHeader carries the session ID on requests and responses.
	SessionHeader = "X-Session-ID"
	// SessionCookie is the fallback session carrier for browser clients.
	SessionCookie = "photon_session"
)

// resolveSession returns the request's session ID, minting a fresh one when
// the client sent none. The resolved ID is echoed on the response header and
// cookie so the client can carry it forward.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) string {
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sessionID == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			sessionID = strings.TrimSpace(c.Value)
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
		slog.Debug("Server.resolveSession: minted new session", "session_id", sessionID)
	}

	w.Header().Set(SessionHeader, sessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

// chatHandler handles one conversation turn (POST /chat).
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method, "path", r.URL.Path)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		slog.Warn("Server.chatHandler: empty message")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: message"))
		return
	}

	sessionID := s.resolveSession(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	resp, err := s.engine.HandleChat(ctx, s.sessions, sessionID, req.Message)
	if err != nil {
		slog.Error("Server.chatHandler: turn failed", "error", err, "session_id", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError,
			models.Error("Unable to process your request right now. Please try again."))
		return
	}

	slog.Info("Server.chatHandler: turn handled", "session_id", sessionID)
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

// resetHandler clears the conversation state for the request's session
// (POST /reset).
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.resetHandler: processing reset request", "method", r.Method, "path", r.URL.Path)

	sessionID := s.resolveSession(w, r)
	s.sessions.Reset(sessionID)

	slog.Info("Server.resetHandler: session reset", "session_id", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation reset successfully.", nil))
}

// healthHandler provides a health check endpoint for monitoring and load balancing.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}
