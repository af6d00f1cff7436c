package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ai-rea/assistant/pkg/agent"
	"github.com/ai-rea/assistant/pkg/i18n"
	"github.com/ai-rea/assistant/pkg/pagectx"
)

// State is the controller's turn-taking state. There are exactly two states;
// no failure path may leave the controller outside of them.
type State int

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

var (
	// ErrEmptyInput rejects a submit before any state change. The widget
	// disables its send button on empty input, so no message is surfaced.
	ErrEmptyInput = errors.New("assistant: empty input")

	// ErrTurnInFlight reports a submit while a turn is already sending. The
	// duplicate is dropped, not queued: one in-flight turn per conversation.
	ErrTurnInFlight = errors.New("assistant: turn already in flight")
)

// Transport performs one agent round trip per user turn.
type Transport interface {
	Send(ctx context.Context, turn agent.TurnRequest) (*agent.TurnResponse, error)
}

// Localizer resolves user-visible text; the controller owns keys, not strings.
type Localizer interface {
	Translate(key string) string
	SetLanguage(lang string)
}

// Controller orchestrates one conversation session: it accepts user input,
// drives the Idle/Sending state machine, calls the transport, updates the
// store, and hands the response's actions to the dispatcher.
type Controller struct {
	mu         sync.Mutex
	state      State
	page       pagectx.Page
	language   string
	store      *Store
	transport  Transport
	dispatcher *Dispatcher
	nav        Navigator
	loc        Localizer
	log        zerolog.Logger
}

type ControllerConfig struct {
	Transport  Transport
	Dispatcher *Dispatcher
	Navigator  Navigator
	Localizer  Localizer

	// Initial page context. Zero values mean home/en.
	Page     pagectx.Page
	Language string
}

func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Transport == nil {
		return nil, errors.New("controller: transport is nil")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("controller: dispatcher is nil")
	}
	if cfg.Localizer == nil {
		cfg.Localizer = i18n.NewLocalizer(cfg.Language)
	}
	if cfg.Page == "" {
		cfg.Page = pagectx.PageHome
	}
	if cfg.Language == "" {
		cfg.Language = i18n.DefaultLanguage
	}

	c := &Controller{
		state:      StateIdle,
		page:       cfg.Page,
		language:   cfg.Language,
		store:      NewStore(),
		transport:  cfg.Transport,
		dispatcher: cfg.Dispatcher,
		nav:        cfg.Navigator,
		loc:        cfg.Localizer,
		log:        log.With().Str("component", "controller").Logger(),
	}
	c.loc.SetLanguage(cfg.Language)
	c.store.Reset(c.loc.Translate(pagectx.GreetingKey(cfg.Page)))
	return c, nil
}

func (c *Controller) Store() *Store { return c.store }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Context returns the watched (page, language) pair.
func (c *Controller) Context() (pagectx.Page, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page, c.language
}

// SetContext is the watched-value transition on the (page, language) pair.
// Any change runs the reset procedure exactly once: force Idle, new thread,
// cleared log, fresh localized greeting. An unchanged pair is a no-op.
// In-flight requests from the previous context are not cancelled; their
// responses are discarded by the epoch check in Submit.
func (c *Controller) SetContext(page pagectx.Page, language string) {
	if !pagectx.Known(page) {
		page = pagectx.PageHome
	}
	if language == "" {
		language = i18n.DefaultLanguage
	}

	c.mu.Lock()
	if c.page == page && c.language == language {
		c.mu.Unlock()
		return
	}
	c.page = page
	c.language = language
	c.state = StateIdle
	c.loc.SetLanguage(language)
	threadID, epoch := c.store.Reset(c.loc.Translate(pagectx.GreetingKey(page)))
	c.mu.Unlock()

	c.log.Debug().
		Str("page", string(page)).
		Str("language", language).
		Str("thread_id", threadID).
		Uint64("epoch", epoch).
		Msg("context changed, conversation reset")
}

// Reset discards the current thread without changing the page context, e.g.
// when the user presses the widget's reset affordance.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = StateIdle
	threadID, epoch := c.store.Reset(c.loc.Translate(pagectx.GreetingKey(c.page)))
	c.mu.Unlock()
	c.log.Debug().Str("thread_id", threadID).Uint64("epoch", epoch).Msg("conversation reset")
}

// Submit runs one user turn to completion. It blocks for the network round
// trip; the single-flight guard drops concurrent submits with
// ErrTurnInFlight. Validation failures and dropped duplicates leave all state
// untouched.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		c.log.Debug().Msg("dropping submit while turn in flight")
		return ErrTurnInFlight
	}
	c.state = StateSending
	page := c.page
	language := c.language
	epoch := c.store.Epoch()
	threadID := c.store.ThreadID()
	c.store.AppendUser(text)
	c.store.SetInput("")
	c.store.SetLoading(true)
	c.mu.Unlock()

	resp, err := c.transport.Send(ctx, agent.TurnRequest{
		Message:     text,
		ThreadID:    threadID,
		CurrentPage: page,
		PageContext: agent.PageContext{Language: language},
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.store.Epoch() {
		// The conversation was reset while this turn was in flight. The
		// response belongs to a discarded thread: no message, no dispatch,
		// and the state machine of the new thread is left alone.
		c.log.Debug().Str("thread_id", threadID).Msg("discarding stale agent response")
		return nil
	}

	c.state = StateIdle
	c.store.SetLoading(false)

	if err != nil {
		c.log.Warn().Err(err).Str("thread_id", threadID).Msg("agent turn failed")
		c.store.AppendAssistant(c.loc.Translate(i18n.KeyErrorNetwork), "")
		return err
	}

	c.store.AdoptThreadID(resp.ThreadID)
	if c.dispatcher != nil {
		c.dispatcher.Dispatch(resp.UIActions, c.currentPathLocked())
	}
	c.store.AppendAssistant(resp.Reply, resp.Badge())
	return nil
}

func (c *Controller) currentPathLocked() string {
	if c.nav != nil {
		return c.nav.CurrentPath()
	}
	return pagectx.Route(c.page)
}
