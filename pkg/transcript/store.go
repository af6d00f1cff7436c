// Package transcript records conversation messages per thread for operational
// inspection. It is write-behind capture only: the conversation core keeps
// its own log of record and never reads from here.
package transcript

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is one recorded message.
type Entry struct {
	ThreadID  string    `json:"thread_id"`
	Ordinal   int       `json:"ordinal"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Badge     string    `json:"badge,omitempty"`
	Page      string    `json:"page,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists transcript entries keyed by thread id.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Thread(ctx context.Context, threadID string) ([]Entry, error)
	Threads(ctx context.Context, limit int) ([]string, error)
	Close() error
}

// MemoryStore is the in-process implementation, used in tests and when no
// DSN is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]Entry
	order   []string
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]Entry{}}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ThreadID]; !ok {
		s.order = append(s.order, e.ThreadID)
	}
	e.Ordinal = len(s.entries[e.ThreadID])
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries[e.ThreadID] = append(s.entries[e.ThreadID], e)
	return nil
}

func (s *MemoryStore) Thread(_ context.Context, threadID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries[threadID]))
	copy(out, s.entries[threadID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (s *MemoryStore) Threads(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.order...)
	// Most recent thread first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
