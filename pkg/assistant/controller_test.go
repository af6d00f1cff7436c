package assistant

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ai-rea/assistant/pkg/agent"
	"github.com/ai-rea/assistant/pkg/bus"
	"github.com/ai-rea/assistant/pkg/i18n"
	"github.com/ai-rea/assistant/pkg/pagectx"
)

// scriptedTransport returns canned responses and optionally blocks until
// released, to simulate an in-flight request.
type scriptedTransport struct {
	mu       sync.Mutex
	calls    int32
	requests []agent.TurnRequest
	resp     *agent.TurnResponse
	err      error
	block    chan struct{}
}

func (f *scriptedTransport) Send(ctx context.Context, turn agent.TurnRequest) (*agent.TurnResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.requests = append(f.requests, turn)
	resp, err, block := f.resp, f.err, f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return resp, err
}

func (f *scriptedTransport) callCount() int32 { return atomic.LoadInt32(&f.calls) }

func newTestController(t *testing.T, tr Transport, page pagectx.Page) (*Controller, *fakeNavigator, *bus.Bus) {
	t.Helper()
	b := bus.NewInMemory()
	t.Cleanup(func() { _ = b.Close() })
	nav := &fakeNavigator{current: pagectx.Route(page)}
	c, err := NewController(ControllerConfig{
		Transport:  tr,
		Dispatcher: NewDispatcher(nav, b),
		Navigator:  nav,
		Localizer:  i18n.NewLocalizer("en"),
		Page:       page,
		Language:   "en",
	})
	require.NoError(t, err)
	return c, nav, b
}

func TestControllerStartsIdleWithGreeting(t *testing.T) {
	c, _, _ := newTestController(t, &scriptedTransport{}, pagectx.PageDashboard)
	require.Equal(t, StateIdle, c.State())

	msgs := c.Store().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, RoleAssistant, msgs[0].Role)
	require.Equal(t, i18n.NewLocalizer("en").Translate("assistant.greeting.dashboard"), msgs[0].Text)
}

func TestControllerRejectsEmptyInput(t *testing.T) {
	tr := &scriptedTransport{}
	c, _, _ := newTestController(t, tr, pagectx.PageHome)

	require.ErrorIs(t, c.Submit(context.Background(), "   "), ErrEmptyInput)
	require.Zero(t, tr.callCount())
	require.Len(t, c.Store().Messages(), 1)
	require.Equal(t, StateIdle, c.State())
}

func TestControllerEndToEndSuccess(t *testing.T) {
	tr := &scriptedTransport{resp: &agent.TurnResponse{
		Reply:       "Done",
		ThreadID:    "t2",
		ToolsCalled: []string{"fill_query_input"},
		UIActions: agent.Actions{
			agent.FillQueryAction{Query: "3 BHK apartment in Pune"},
		},
	}}
	c, _, b := newTestController(t, tr, pagectx.PageDashboard)
	signals := collectSignals(t, b, bus.TopicFillQuery)

	require.NoError(t, c.Submit(context.Background(), "3 BHK apartment in Pune"))

	require.Equal(t, StateIdle, c.State())
	require.Equal(t, "t2", c.Store().ThreadID())

	msgs := c.Store().Messages()
	require.Len(t, msgs, 3) // greeting, user, assistant
	require.Equal(t, RoleUser, msgs[1].Role)
	require.Equal(t, "3 BHK apartment in Pune", msgs[1].Text)
	require.Equal(t, RoleAssistant, msgs[2].Role)
	require.Equal(t, "Done", msgs[2].Text)
	require.Equal(t, "fill_query_input", msgs[2].Badge)

	got := signals()
	require.Len(t, got, 1)
	var sig bus.FillQuerySignal
	require.NoError(t, json.Unmarshal(got[0], &sig))
	require.Equal(t, "3 BHK apartment in Pune", sig.Query)

	// The request carried the page context.
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Equal(t, pagectx.PageDashboard, tr.requests[0].CurrentPage)
	require.Equal(t, "en", tr.requests[0].PageContext.Language)
}

func TestControllerEndToEndFailure(t *testing.T) {
	tr := &scriptedTransport{err: &agent.NetworkError{Status: 500}}
	c, _, _ := newTestController(t, tr, pagectx.PageDashboard)
	thread := c.Store().ThreadID()

	err := c.Submit(context.Background(), "hello")
	var ne *agent.NetworkError
	require.ErrorAs(t, err, &ne)

	require.Equal(t, StateIdle, c.State())
	require.Equal(t, thread, c.Store().ThreadID())

	msgs := c.Store().Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "hello", msgs[1].Text)
	require.Equal(t, i18n.NewLocalizer("en").Translate(i18n.KeyErrorNetwork), msgs[2].Text)
	require.Empty(t, msgs[2].Badge)
}

func TestControllerSingleFlight(t *testing.T) {
	tr := &scriptedTransport{
		resp:  &agent.TurnResponse{Reply: "ok", ThreadID: "t2"},
		block: make(chan struct{}),
	}
	c, _, _ := newTestController(t, tr, pagectx.PageHome)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "first") }()

	require.Eventually(t, func() bool { return c.State() == StateSending }, time.Second, time.Millisecond)

	require.ErrorIs(t, c.Submit(context.Background(), "second"), ErrTurnInFlight)

	close(tr.block)
	require.NoError(t, <-done)
	require.Equal(t, int32(1), tr.callCount())

	// Only the first user message made it into the log.
	var userTexts []string
	for _, m := range c.Store().Messages() {
		if m.Role == RoleUser {
			userTexts = append(userTexts, m.Text)
		}
	}
	require.Equal(t, []string{"first"}, userTexts)
}

func TestControllerStaleResponseDiscarded(t *testing.T) {
	tr := &scriptedTransport{
		resp: &agent.TurnResponse{
			Reply:       "late",
			ThreadID:    "t1",
			ToolsCalled: []string{"fill_query_input"},
			UIActions:   agent.Actions{agent.FillQueryAction{Query: "stale"}},
		},
		block: make(chan struct{}),
	}
	c, nav, b := newTestController(t, tr, pagectx.PageDashboard)
	signals := collectSignals(t, b, bus.TopicFillQuery)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "query") }()
	require.Eventually(t, func() bool { return c.State() == StateSending }, time.Second, time.Millisecond)

	// Context changes while the request is in flight.
	c.SetContext(pagectx.PageMarketplaceSell, "en")
	newThread := c.Store().ThreadID()

	close(tr.block)
	require.NoError(t, <-done)

	// The late response is discarded wholesale: no message, no dispatch, no
	// thread adoption, state untouched.
	require.Equal(t, StateIdle, c.State())
	require.Equal(t, newThread, c.Store().ThreadID())
	msgs := c.Store().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, RoleAssistant, msgs[0].Role)
	require.Empty(t, signals())
	require.Empty(t, nav.calls())
}

func TestControllerSetContextUnchangedPairIsNoop(t *testing.T) {
	c, _, _ := newTestController(t, &scriptedTransport{}, pagectx.PageDashboard)
	thread := c.Store().ThreadID()

	c.SetContext(pagectx.PageDashboard, "en")
	require.Equal(t, thread, c.Store().ThreadID())
	require.Equal(t, uint64(1), c.Store().Epoch())
}

func TestControllerSetContextLanguageChangeResets(t *testing.T) {
	c, _, _ := newTestController(t, &scriptedTransport{}, pagectx.PageDashboard)
	thread := c.Store().ThreadID()

	c.SetContext(pagectx.PageDashboard, "hi")
	require.NotEqual(t, thread, c.Store().ThreadID())

	msgs := c.Store().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, i18n.NewLocalizer("hi").Translate("assistant.greeting.dashboard"), msgs[0].Text)
}

func TestControllerResetRotatesThread(t *testing.T) {
	c, _, _ := newTestController(t, &scriptedTransport{}, pagectx.PageHome)
	thread := c.Store().ThreadID()
	c.Reset()
	require.NotEqual(t, thread, c.Store().ThreadID())
	require.Len(t, c.Store().Messages(), 1)
}

func TestControllerGuideActionNavigates(t *testing.T) {
	tr := &scriptedTransport{resp: &agent.TurnResponse{
		Reply:       "Taking you there",
		ThreadID:    "t2",
		ToolsCalled: []string{"guide_to_page"},
		UIActions:   agent.Actions{agent.GuideAction{Page: pagectx.PageMarketplace}},
	}}
	c, nav, _ := newTestController(t, tr, pagectx.PageHome)

	require.NoError(t, c.Submit(context.Background(), "where can I sell?"))
	require.Equal(t, []string{"/marketplace"}, nav.calls())
}
