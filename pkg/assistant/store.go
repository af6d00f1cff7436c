package assistant

import (
	"sync"

	"github.com/google/uuid"
)

// Role tags one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log. Immutable once appended; the
// Badge names the backend tool that most recently ran for this reply, if any.
type Message struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Badge string `json:"badge,omitempty"`
}

// Store holds the state of one conversation session: the append-only message
// log, the current thread id, and the widget's input/loading flags. All
// operations are synchronous state transitions; none of them fail for
// well-formed arguments.
//
// The epoch counter increments on every Reset. A turn captures the epoch when
// it starts and compares it on completion; a mismatch marks the response as
// stale (the conversation was reset while the request was in flight).
type Store struct {
	mu       sync.Mutex
	threadID string
	epoch    uint64
	messages []Message
	input    string
	loading  bool
}

func NewStore() *Store {
	return &Store{threadID: uuid.NewString()}
}

// Reset discards the previous thread entirely: new thread id, bumped epoch,
// and a log containing only the assistant greeting. There is no history
// carry-over between threads.
func (s *Store) Reset(greeting string) (threadID string, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = uuid.NewString()
	s.epoch++
	s.messages = []Message{{Role: RoleAssistant, Text: greeting}}
	s.input = ""
	s.loading = false
	return s.threadID, s.epoch
}

func (s *Store) AppendUser(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: RoleUser, Text: text})
}

func (s *Store) AppendAssistant(text, badge string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: RoleAssistant, Text: text, Badge: badge})
}

// Messages returns a copy of the log in conversation order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ThreadID returns the current correlation id for the backend agent.
func (s *Store) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// AdoptThreadID records the thread id returned by the agent backend, which is
// authoritative for the next turn.
func (s *Store) AdoptThreadID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = id
}

// Epoch returns the current reset generation.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Store) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

func (s *Store) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
