package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ai-rea/assistant/pkg/assistant"
	"github.com/ai-rea/assistant/pkg/bus"
	"github.com/ai-rea/assistant/pkg/pagectx"
	"github.com/ai-rea/assistant/pkg/transcript"
)

// SignalEnvelope is the websocket frame carrying one bus signal to the page.
type SignalEnvelope struct {
	Signal  string          `json:"signal"`
	Payload json.RawMessage `json:"payload"`
}

// forwardedTopics are the bus topics fanned out to a session's sockets.
var forwardedTopics = []string{bus.TopicFillQuery, bus.TopicFillSellForm, bus.TopicNavigate}

// Session binds one widget instance to its conversation controller, its
// scoped slice of the signal bus, and the websocket connections of the page
// it lives on.
type Session struct {
	ID         string
	controller *assistant.Controller
	nav        *pageNavigator
	pool       *ConnectionPool
	stop       context.CancelFunc

	mu       sync.Mutex
	recorded int

	transcripts transcript.Store
	log         zerolog.Logger
}

// pageNavigator implements assistant.Navigator for a remote page: navigation
// requests go out as bus signals, and the page reports its location back
// through the context endpoint. Navigate updates the tracked path eagerly so
// repeated guides in one dispatch batch stay idempotent.
type pageNavigator struct {
	mu      sync.Mutex
	path    string
	signals assistant.SignalBus
}

func (n *pageNavigator) Navigate(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
	if err := n.signals.Publish(bus.TopicNavigate, bus.NavigateSignal{Path: path}); err != nil {
		log.Warn().Err(err).Str("component", "server").Msg("navigate signal publish failed")
	}
}

func (n *pageNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *pageNavigator) setPath(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
}

// startForwarder subscribes to the session's scoped topics and fans every
// signal out to the attached sockets. Per-socket delivery order follows
// emission order because each topic subscription is a single FIFO channel.
func (s *Session) startForwarder(ctx context.Context, scope *bus.Scope) error {
	for _, topic := range forwardedTopics {
		ch, err := scope.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		topic := topic
		go func() {
			for msg := range ch {
				frame, err := json.Marshal(SignalEnvelope{Signal: topic, Payload: json.RawMessage(msg.Payload)})
				if err == nil {
					s.pool.Broadcast(frame)
				}
				msg.Ack()
			}
		}()
	}
	return nil
}

// record appends messages added since the last call to the transcript store.
func (s *Session) record(ctx context.Context) {
	if s.transcripts == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.controller.Store()
	msgs := store.Messages()
	if len(msgs) < s.recorded {
		// The log shrank: a reset replaced it. Start over on the new thread.
		s.recorded = 0
	}
	page, _ := s.controller.Context()
	threadID := store.ThreadID()
	for _, m := range msgs[s.recorded:] {
		err := s.transcripts.Append(ctx, transcript.Entry{
			ThreadID: threadID,
			Role:     string(m.Role),
			Text:     m.Text,
			Badge:    m.Badge,
			Page:     string(page),
		})
		if err != nil {
			s.log.Warn().Err(err).Msg("transcript append failed")
		}
	}
	s.recorded = len(msgs)
}

func (s *Session) close() {
	if s.stop != nil {
		s.stop()
	}
	s.pool.CloseAll()
}

// snapshot is the wire form of the session's conversation state.
type snapshot struct {
	SessionID string              `json:"session_id"`
	ThreadID  string              `json:"thread_id"`
	Page      pagectx.Page        `json:"page"`
	Language  string              `json:"language"`
	State     string              `json:"state"`
	Messages  []assistant.Message `json:"messages"`
}

func (s *Session) snapshot() snapshot {
	page, language := s.controller.Context()
	return snapshot{
		SessionID: s.ID,
		ThreadID:  s.controller.Store().ThreadID(),
		Page:      page,
		Language:  language,
		State:     s.controller.State().String(),
		Messages:  s.controller.Store().Messages(),
	}
}
