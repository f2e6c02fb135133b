package aggregate

import (
	"context"
	"time"
)

// Evolver is implemented by every domain event. Evolve applies the event to the state.
type Evolver[T any] interface {
	Evolve(*T)
}

func NewEvents[T any](events ...Evolver[T]) Events[T] {
	return events
}

type Events[T any] []Evolver[T]

func (e Events[T]) Evolve(aggr *T) {
	for _, ev := range e {
		ev.Evolve(aggr)
	}
}

var idempKeyCtx idempotanceKey = "idempKey"

type idempotanceKey string

func idempotanceKeyFromCtxOrRandom(ctx context.Context) string {
	if val, ok := ctx.Value(idempKeyCtx).(string); ok {
		return val
	}
	return NewID().String()
}

// ContextWithIdempotancyKey attaches an idempotency key to ctx.
// Events appended by Mutate under the same key get the same message IDs,
// so a repeated command is dropped by the stream instead of stored twice.
func ContextWithIdempotancyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempKeyCtx, key)
}

// Event is a committed domain event.
type Event[T any] struct {
	ID          ID
	AggregateID ID
	Kind        string
	// Version of the aggregate after this event was applied.
	Version   uint64
	Sequence  uint64
	Timestamp time.Time
	Body      Evolver[T]
}

func (e *Event[T]) Evolve(aggr *T) {
	e.Body.Evolve(aggr)
}
