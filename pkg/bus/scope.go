package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Scope is a view of the bus with every topic prefixed by a session key, so
// several widget sessions can share one bus (notably the Redis backend)
// without hearing each other's signals.
type Scope struct {
	b      *Bus
	prefix string
}

func (b *Bus) Scope(key string) *Scope {
	return &Scope{b: b, prefix: key + ":"}
}

func (s *Scope) Publish(topic string, signal any) error {
	return s.b.Publish(s.prefix+topic, signal)
}

func (s *Scope) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.b.Subscribe(ctx, s.prefix+topic)
}
