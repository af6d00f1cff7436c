package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ai-rea/assistant/pkg/pagectx"
)

func TestClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/assistant/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req TurnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello", req.Message)
		require.Equal(t, pagectx.PageDashboard, req.CurrentPage)
		require.Equal(t, "en", req.PageContext.Language)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"reply":        "Done",
			"thread_id":    "t2",
			"tools_called": []string{"fill_query_input"},
			"ui_actions":   []map[string]any{{"ui_action": "fill_query", "query": "q"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Send(context.Background(), TurnRequest{
		Message:     "hello",
		ThreadID:    "t1",
		CurrentPage: pagectx.PageDashboard,
		PageContext: PageContext{Language: "en"},
	})
	require.NoError(t, err)
	require.Equal(t, "Done", resp.Reply)
	require.Equal(t, "t2", resp.ThreadID)
	require.Equal(t, "fill_query_input", resp.Badge())
	require.Len(t, resp.UIActions, 1)
	require.Equal(t, FillQueryAction{Query: "q"}, resp.UIActions[0])
}

func TestClientSendNon200IsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Send(context.Background(), TurnRequest{Message: "x"})
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	require.Equal(t, http.StatusInternalServerError, ne.Status)
}

func TestClientSendConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL).Send(context.Background(), TurnRequest{Message: "x"})
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	require.Zero(t, ne.Status)
	require.Error(t, errors.Cause(ne.Err))
}

func TestClientSendBadBodyIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Send(context.Background(), TurnRequest{Message: "x"})
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
}
