package aggregate

import (
	"fmt"
	"reflect"
	"time"

	"github.com/alekseev-bro/warcore/internal/serde"
	"github.com/alekseev-bro/warcore/pkg/codec"
)

type storeConfig struct {
	SnapshotMsgThreshold uint64
	SnapshotMaxInterval  time.Duration
}

type StoreOption[T any] func(a *store[T])

// WithEvent registers event type E under name. An empty name means the Go type name.
func WithEvent[E any, T any, PE interface {
	*E
	Evolver[T]
}](name string) StoreOption[T] {

	if reflect.TypeFor[E]().Kind() != reflect.Struct {
		panic(fmt.Sprintf("event '%s' must be a struct and not a pointer", reflect.TypeFor[E]().Name()))
	}
	return func(a *store[T]) {

		if name == "" {
			name = reflect.TypeFor[E]().Name()
		}

		a.eventRegistry.Register(name, func() any { return PE(new(E)) })
	}
}

// WithSnapshot sets how many events must accumulate since the last snapshot,
// and the minimum interval between two snapshots of one aggregate.
func WithSnapshot[T any](maxMsgs uint64, maxInterval time.Duration) StoreOption[T] {
	return func(a *store[T]) {
		a.storeConfig = storeConfig{
			SnapshotMsgThreshold: maxMsgs,
			SnapshotMaxInterval:  maxInterval,
		}
	}
}

func WithEventCodec[T any](codec codec.Codec) StoreOption[T] {
	return func(a *store[T]) {
		a.eventSerder = serde.NewSerder[Evolver[T]](a.eventRegistry, codec)
	}
}

func WithSnapshotCodec[T any](codec codec.Codec) StoreOption[T] {
	return func(a *store[T]) {
		a.snapshotCodec = codec
	}
}
