// Package eventbus forwards committed domain events to external consumers.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/codec"
)

const (
	// Metadata keys used to transfer Record fields through watermill's message.
	metaKeyKind        = "kind"
	metaKeyAggregate   = "aggregate"
	metaKeyAggregateID = "aggregate_id"
	metaKeyVersion     = "version"
	metaKeyContentType = "content_type"
)

// Topic returns the topic carrying the events of one aggregate kind.
func Topic(aggregateKind string) string {
	return aggregateKind + ".events"
}

// Record is a committed event as seen by consumers.
type Record struct {
	Aggregate   string
	AggregateID aggregate.ID
	Kind        string
	Version     uint64
	Body        any
}

// Delivery is a record received from the bus; Payload still has to be decoded.
type Delivery struct {
	ID          string
	Aggregate   string
	AggregateID aggregate.ID
	Kind        string
	Version     uint64
	ContentType string
	Payload     []byte
}

// Decode unmarshals the payload into out with the bus codec.
func (d Delivery) Decode(out any) error {
	return codec.JSON.Unmarshal(d.Payload, out)
}

type Handler func(ctx context.Context, d Delivery) error

// Bus implements publishing and subscribing on top of watermill.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	shared bool
	codec  codec.Codec
}

// New wraps any watermill publisher/subscriber pair.
func New(pub message.Publisher, sub message.Subscriber) *Bus {
	return &Bus{pub: pub, sub: sub, codec: codec.JSON}
}

// NewInMemory returns a bus on watermill's GoChannel. Publish returns only after
// every subscriber acknowledged the message, so consumers observe a command's
// events before the command returns.
func NewInMemory(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		logger,
	)
	b := New(goChannel, goChannel)
	b.shared = true
	return b
}

func (b *Bus) toMessage(rec Record) (*message.Message, error) {
	payload, err := b.codec.Marshal(rec.Body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Kind, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaKeyKind, rec.Kind)
	msg.Metadata.Set(metaKeyAggregate, rec.Aggregate)
	msg.Metadata.Set(metaKeyAggregateID, rec.AggregateID.String())
	msg.Metadata.Set(metaKeyVersion, strconv.FormatUint(rec.Version, 10))
	msg.Metadata.Set(metaKeyContentType, b.codec.ContentType())
	return msg, nil
}

func fromMessage(msg *message.Message) (Delivery, error) {
	id, err := aggregate.ParseID(msg.Metadata.Get(metaKeyAggregateID))
	if err != nil {
		return Delivery{}, err
	}
	version, err := strconv.ParseUint(msg.Metadata.Get(metaKeyVersion), 10, 64)
	if err != nil {
		return Delivery{}, fmt.Errorf("version: %w", err)
	}
	return Delivery{
		ID:          msg.UUID,
		Aggregate:   msg.Metadata.Get(metaKeyAggregate),
		AggregateID: id,
		Kind:        msg.Metadata.Get(metaKeyKind),
		Version:     version,
		ContentType: msg.Metadata.Get(metaKeyContentType),
		Payload:     msg.Payload,
	}, nil
}

// Publish sends records in order, each to the topic of its aggregate kind.
func (b *Bus) Publish(ctx context.Context, recs ...Record) error {
	for _, rec := range recs {
		msg, err := b.toMessage(rec)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		msg.SetContext(ctx)
		if err := b.pub.Publish(Topic(rec.Aggregate), msg); err != nil {
			return fmt.Errorf("publish %s: %w", rec.Kind, err)
		}
	}
	return nil
}

// Subscribe runs handler for every message on topic until ctx is done.
// It returns immediately; processing happens on a separate goroutine.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			d, err := fromMessage(msg)
			if err != nil {
				slog.Error("malformed event message", "topic", topic, "msg_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			if err := handler(msg.Context(), d); err != nil {
				slog.Error("failed to handle event", "topic", topic, "kind", d.Kind, "msg_id", msg.UUID, "error", err)
				// Redelivering from GoChannel would loop forever on a poison message.
				msg.Ack()
				continue
			}
			msg.Ack()
		}
		slog.Debug("subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close shuts down the publisher and subscriber.
func (b *Bus) Close() error {
	if err := b.pub.Close(); err != nil {
		return err
	}
	if b.shared {
		return nil
	}
	return b.sub.Close()
}
