package natsstore

import (
	"context"
	"fmt"
	"reflect"

	"github.com/alekseev-bro/warcore/internal/driver/snapshot/snapnats"
	"github.com/alekseev-bro/warcore/internal/driver/stream/esnats"
	"github.com/alekseev-bro/warcore/internal/typereg"
	"github.com/alekseev-bro/warcore/pkg/aggregate"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream holding the events of aggregate type T.
func StreamName[T any]() string {
	return fmt.Sprintf("aggregate-%s", typereg.TypeNameFor[T](typereg.WithDelimiter("-")))
}

// NewStore creates an aggregate store for T backed by a JetStream stream and KV bucket.
func NewStore[T any](ctx context.Context, js jetstream.JetStream, opts ...Option[T]) (aggregate.Store[T], error) {
	if reflect.TypeFor[T]().Kind() != reflect.Struct {
		panic("type T is not a struct")
	}
	cfg := &options[T]{}
	for _, opt := range opts {
		opt(cfg)
	}
	es, err := esnats.NewEventStream(ctx, js, StreamName[T](), cfg.esCfg)
	if err != nil {
		return nil, fmt.Errorf("nats store: %w", err)
	}
	ss, err := snapnats.NewSnapshotStore(ctx, js, typereg.TypeNameFor[T](typereg.WithDelimiter("-")), cfg.ssCfg)
	if err != nil {
		return nil, fmt.Errorf("nats store: %w", err)
	}
	return aggregate.NewStore(ctx, es, ss, cfg.agOpts...), nil
}
