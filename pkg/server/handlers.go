package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/ai-rea/assistant/pkg/assistant"
	"github.com/ai-rea/assistant/pkg/pagectx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The sidecar sits behind the app's own origin; cross-origin policy is
	// enforced upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type contextRequest struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.getOrCreateSession(strings.TrimSpace(req.SessionID))
	if err != nil {
		s.log.Error().Err(err).Msg("session setup failed")
		http.Error(w, "session setup failed", http.StatusInternalServerError)
		return
	}

	err = sess.controller.Submit(r.Context(), req.Message)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	case errors.Is(err, assistant.ErrTurnInFlight):
		http.Error(w, "turn already in flight", http.StatusConflict)
		return
	case err != nil:
		// Transport failures were already folded into the conversation as a
		// localized assistant message; the widget just re-renders the log.
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("turn failed")
	}

	sess.record(r.Context())
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.getOrCreateSession(strings.TrimSpace(req.SessionID))
	if err != nil {
		http.Error(w, "session setup failed", http.StatusInternalServerError)
		return
	}

	sess.nav.setPath(req.Path)
	sess.controller.SetContext(pagectx.Resolve(req.Path), req.Language)
	sess.record(r.Context())
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, ok := s.getSession(strings.TrimSpace(req.SessionID))
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	sess.controller.Reset()
	sess.record(r.Context())
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if id == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	sess, ok := s.getSession(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Transcripts == nil {
		http.Error(w, "transcripts not enabled", http.StatusNotFound)
		return
	}
	threads, err := s.cfg.Transcripts.Threads(r.Context(), 100)
	if err != nil {
		s.log.Error().Err(err).Msg("transcript listing failed")
		http.Error(w, "transcript listing failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	sess, err := s.getOrCreateSession(id)
	if err != nil {
		http.Error(w, "session setup failed", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess.pool.Add(conn)
	wsLog := s.log.With().Str("session_id", sess.ID).Str("remote", conn.RemoteAddr().String()).Logger()
	wsLog.Debug().Msg("ws attached")

	go func() {
		defer sess.pool.Remove(conn)
		defer wsLog.Debug().Msg("ws detached")
		for {
			// The page never sends signals upstream; the read loop only
			// notices disconnects and drops pings.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
