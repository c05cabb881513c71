package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/vizframe/pkg/store"
)

// DefaultChannel is the redis pub/sub channel used when none is configured.
const DefaultChannel = "vizframe:transforms"

// Message is the JSON payload of the live feed. Port is set when the sample
// comes from a declared producer.
type Message struct {
	Port string `json:"port,omitempty"`
	store.Sample
}

// Handler consumes decoded feed messages.
type Handler func(ctx context.Context, msg Message) error

// RedisFeed publishes and consumes samples over redis pub/sub.
type RedisFeed struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

// NewRedisFeed creates a feed on channel. An empty channel selects
// DefaultChannel and a nil logger selects log.Default().
func NewRedisFeed(client *redis.Client, channel string, logger *log.Logger) *RedisFeed {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisFeed{client: client, channel: channel, logger: logger}
}

// Channel returns the pub/sub channel name.
func (f *RedisFeed) Channel() string { return f.channel }

// Publish sends msg to the channel.
func (f *RedisFeed) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", f.channel, err)
	}
	return nil
}

// Run subscribes to the channel and calls handle for every message until ctx
// is canceled. Undecodable payloads and handler errors are logged and do not
// stop the feed.
func (f *RedisFeed) Run(ctx context.Context, handle Handler) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so that errors such as an
	// unreachable server surface here.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", f.channel, err)
	}
	f.logger.Info("listening for transformations", "channel", f.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			f.dispatch(ctx, m.Payload, handle)
		}
	}
}

func (f *RedisFeed) dispatch(ctx context.Context, payload string, handle Handler) {
	msg, err := DecodeMessage([]byte(payload))
	if err != nil {
		f.logger.Warn("dropping feed message", "channel", f.channel, "err", err)
		return
	}
	if err := handle(ctx, msg); err != nil {
		f.logger.Warn("feed message rejected", "source", msg.Source, "target", msg.Target, "port", msg.Port, "err", err)
	}
}

// DecodeMessage parses a feed payload and validates its sample.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}
