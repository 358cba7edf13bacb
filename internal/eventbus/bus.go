package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"

	"github.com/fenrir-exchange/matchcore/internal/common"
)

// topic is the single ordered watermill topic backing a symbol's event
// stream. It is intentionally one topic per symbol (not one per
// EventKind) so that a single watermill subscription preserves strict
// per-symbol ordering without having to reorder three
// independently-scheduled subscriptions by sequence number;
// EventKind.WireTopic is still used for the externally-facing channel
// names of the Redis cross-process leg.
func topic(symbol common.Symbol) string {
	return fmt.Sprintf("matchcore.events.%s", symbol)
}

// Bus is the in-process event bus, backed by watermill's gochannel
// pub/sub wrapped behind a typed publish/subscribe pair.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// New creates a Bus. Persistent=true keeps a replay buffer per topic so
// a subscriber that attaches after some events have already been
// published for a symbol can still see history.
func New() *Bus {
	logger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1024,
			Persistent:          true,
		},
		logger,
	)
	return &Bus{pubsub: pubsub}
}

// Publish delivers ev to every subscriber of ev.Symbol's topic. Delivery
// is at-least-once; subscribers dedupe by (Symbol, Sequence).
func (b *Bus) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic(ev.Symbol), msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe registers a new subscriber for symbol and returns a channel
// of decoded events. The returned channel is closed when ctx is
// cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, symbol common.Symbol) (<-chan Event, error) {
	raw, err := b.pubsub.Subscribe(ctx, topic(symbol))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	out := make(chan Event, cap(raw))
	go func() {
		defer close(out)
		for msg := range raw {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Error().Err(err).Str("symbol", string(symbol)).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down the bus and all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
