// Package server bridges the browser assistant widget to the conversation
// core. The page talks JSON over HTTP for turns and context changes, and
// holds a websocket on which UI-action signals (navigate, fill-query,
// fill-sell-form) are pushed back to it.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ai-rea/assistant/pkg/assistant"
	"github.com/ai-rea/assistant/pkg/bus"
	"github.com/ai-rea/assistant/pkg/i18n"
	"github.com/ai-rea/assistant/pkg/pagectx"
	"github.com/ai-rea/assistant/pkg/transcript"
)

type Config struct {
	Transport assistant.Transport
	Bus       *bus.Bus

	// Transcripts is optional; nil disables recording.
	Transcripts transcript.Store

	// DefaultLanguage seeds new sessions before the page reports a language.
	DefaultLanguage string

	// IdleTimeout evicts a session after its last socket detaches. Zero keeps
	// sessions for the lifetime of the process.
	IdleTimeout time.Duration

	// I18nOverridesPath optionally merges extra translations.
	I18nOverridesPath string
}

// Server owns the widget sessions and the HTTP surface.
type Server struct {
	baseCtx context.Context
	cfg     Config
	mux     *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*Session

	log zerolog.Logger
}

func New(baseCtx context.Context, cfg Config) (*Server, error) {
	if cfg.Transport == nil {
		return nil, errors.New("server: transport is nil")
	}
	if cfg.Bus == nil {
		return nil, errors.New("server: bus is nil")
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = i18n.DefaultLanguage
	}
	s := &Server{
		baseCtx:  baseCtx,
		cfg:      cfg,
		mux:      http.NewServeMux(),
		sessions: map[string]*Session{},
		log:      log.With().Str("component", "server").Logger(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/assistant/chat", s.handleChat)
	s.mux.HandleFunc("/api/assistant/context", s.handleContext)
	s.mux.HandleFunc("/api/assistant/reset", s.handleReset)
	s.mux.HandleFunc("/api/assistant/history", s.handleHistory)
	s.mux.HandleFunc("/api/assistant/threads", s.handleThreads)
	s.mux.HandleFunc("/ws", s.handleWS)
}

// getOrCreateSession resolves a session, creating its controller, scoped bus
// view, forwarder and connection pool on first sight.
func (s *Server) getOrCreateSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	scope := s.cfg.Bus.Scope("session:" + id)
	nav := &pageNavigator{path: pagectx.Route(pagectx.PageHome), signals: scope}

	loc := i18n.NewLocalizer(s.cfg.DefaultLanguage)
	if s.cfg.I18nOverridesPath != "" {
		if err := loc.LoadOverrides(s.cfg.I18nOverridesPath); err != nil {
			s.log.Warn().Err(err).Msg("i18n overrides not loaded")
		}
	}

	ctrl, err := assistant.NewController(assistant.ControllerConfig{
		Transport:  s.cfg.Transport,
		Dispatcher: assistant.NewDispatcher(nav, scope),
		Navigator:  nav,
		Localizer:  loc,
		Page:       pagectx.PageHome,
		Language:   s.cfg.DefaultLanguage,
	})
	if err != nil {
		return nil, err
	}

	fwdCtx, cancel := context.WithCancel(s.baseCtx)
	sess := &Session{
		ID:          id,
		controller:  ctrl,
		nav:         nav,
		stop:        cancel,
		transcripts: s.cfg.Transcripts,
		log:         s.log.With().Str("session_id", id).Logger(),
	}
	sess.pool = NewConnectionPool(id, s.cfg.IdleTimeout, func() { s.evictSession(id) })
	if err := sess.startForwarder(fwdCtx, scope); err != nil {
		cancel()
		return nil, err
	}
	sess.record(s.baseCtx)

	s.sessions[id] = sess
	s.log.Info().Str("session_id", id).Msg("session created")
	return sess, nil
}

func (s *Server) getSession(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) evictSession(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.close()
	s.log.Info().Str("session_id", id).Msg("idle session evicted")
}

// Close tears down every session.
func (s *Server) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}
