package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const metaKeyUserID = "user_id"

// Bus implements Publisher and Subscriber on top of watermill's GoChannel,
// an in-memory pub/sub suitable for single-process deployments.
type Bus struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewBus initializes the in-process pub/sub bus.
func NewBus() *Bus {
	logger := watermill.NewStdLogger(false, false)
	goChannel := gochannel.NewGoChannel(gochannel.Config{}, logger)

	return &Bus{
		pub: goChannel,
		sub: goChannel,
	}
}

// Publish implements the Publisher interface.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	return b.pub.Publish(msg.Topic, wmMsg)
}

// Subscribe implements the Subscriber interface. The handler runs in a
// background goroutine per subscription.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			msg := Message{
				Topic:    topic,
				UserID:   wmMsg.Metadata.Get(metaKeyUserID),
				Payload:  wmMsg.Payload,
				Metadata: wmMsg.Metadata,
			}
			if err := handler(ctx, msg); err != nil {
				slog.Error("Failed to handle bus message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
				wmMsg.Nack()
			} else {
				wmMsg.Ack()
			}
		}
		slog.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close shuts down the bus and terminates all subscriptions.
func (b *Bus) Close() error {
	return b.sub.Close()
}
