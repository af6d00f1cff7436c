package bus

import (
	"strings"

	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisSettings selects the Redis Streams backend. When Addr is empty the
// caller should use NewInMemory instead.
type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

func (s RedisSettings) Enabled() bool { return strings.TrimSpace(s.Addr) != "" }

// NewRedis builds a bus backed by Redis Streams so signals cross process
// boundaries (several sidecar replicas behind one widget session affinity).
func NewRedis(s RedisSettings) (*Bus, error) {
	if !s.Enabled() {
		return nil, errors.New("redis bus: empty addr")
	}

	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}
	logger := NewWatermillLogger(log.Logger)

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "redis bus: publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, errors.Wrap(err, "redis bus: subscriber")
	}

	return NewFromPubSub(pub, sub, func() error {
		errPub := pub.Close()
		errSub := sub.Close()
		if errPub != nil {
			return errPub
		}
		return errSub
	}), nil
}
