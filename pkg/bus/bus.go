// Package bus is the process-wide signal channel between the assistant and
// the host page's components. Signals are broadcast and fire-and-forget: zero
// subscribers is a valid, silent outcome (the matching form may simply not be
// on screen). Delivery order matches emission order for any single subscriber;
// no ordering is guaranteed across independent subscribers.
package bus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Topic names are part of the widget contract; the page-side listeners
// subscribe by these names.
const (
	TopicFillQuery    = "fill-query"
	TopicFillSellForm = "fill-sell-form"
	TopicNavigate     = "navigate"
)

// FillQuerySignal populates the dashboard query input.
type FillQuerySignal struct {
	Query string `json:"query"`
}

// FillSellFormSignal populates fields of the sell-property form.
type FillSellFormSignal struct {
	Fields map[string]string `json:"fields"`
}

// NavigateSignal asks the host page to change location.
type NavigateSignal struct {
	Path string `json:"path"`
}

// Bus wraps a watermill publisher/subscriber pair.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	closer func() error
}

// NewInMemory builds a bus on watermill's gochannel Pub/Sub: in-process
// broadcast, one FIFO output channel per subscriber.
func NewInMemory() *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, NewWatermillLogger(log.Logger))
	return &Bus{pub: ch, sub: ch, closer: ch.Close}
}

// NewFromPubSub wraps an existing publisher/subscriber pair, e.g. the Redis
// Streams backend.
func NewFromPubSub(pub message.Publisher, sub message.Subscriber, closer func() error) *Bus {
	return &Bus{pub: pub, sub: sub, closer: closer}
}

// Publish broadcasts a JSON-encoded signal. Errors are returned for logging
// only; callers treat publishing as fire-and-forget.
func (b *Bus) Publish(topic string, signal any) error {
	if b == nil || b.pub == nil {
		return errors.New("bus is not initialized")
	}
	payload, err := json.Marshal(signal)
	if err != nil {
		return errors.Wrapf(err, "encode signal for %s", topic)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return errors.Wrapf(b.pub.Publish(topic, msg), "publish %s", topic)
}

// Subscribe returns the subscriber's channel for one topic. Each call
// registers an independent listener receiving its own copy of every signal.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if b == nil || b.sub == nil {
		return nil, errors.New("bus is not initialized")
	}
	return b.sub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer()
}
