package agent

import (
	"github.com/ai-rea/assistant/pkg/pagectx"
)

// TurnRequest is the body of one user turn sent to the agent backend.
type TurnRequest struct {
	Message     string       `json:"message"`
	ThreadID    string       `json:"thread_id"`
	CurrentPage pagectx.Page `json:"current_page"`
	PageContext PageContext  `json:"page_context"`
}

// PageContext carries auxiliary page state for the agent's system prompt.
type PageContext struct {
	Language string `json:"language"`
}

// TurnResponse is the agent backend's reply to one turn. The returned
// ThreadID is authoritative for the next turn; the server may rotate it.
type TurnResponse struct {
	Reply       string   `json:"reply"`
	ThreadID    string   `json:"thread_id"`
	ToolsCalled []string `json:"tools_called"`
	UIActions   Actions  `json:"ui_actions"`
}

// Badge returns the display tag for the assistant message produced by this
// turn: the last tool called, or "" when no tools ran.
func (r *TurnResponse) Badge() string {
	if r == nil || len(r.ToolsCalled) == 0 {
		return ""
	}
	return r.ToolsCalled[len(r.ToolsCalled)-1]
}
