package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"fmt"

	"github.com/alekseev-bro/warcore/internal/serde"
	"github.com/alekseev-bro/warcore/internal/typereg"
	"github.com/alekseev-bro/warcore/pkg/codec"

	"github.com/google/uuid"
)

const (
	snapshotSize     uint64        = 100
	snapshotInterval time.Duration = time.Second * 1
)

type EventSerder[T any] interface {
	Serialize(Evolver[T]) ([]byte, error)
	Deserialize(string, []byte) (Evolver[T], error)
}

// NewStore creates a new aggregate store using the provided event stream and snapshot store.
func NewStore[T any](ctx context.Context, es eventStream, ss snapshotStore, opts ...StoreOption[T]) *store[T] {
	if reflect.TypeFor[T]().Kind() != reflect.Struct {
		panic("type T is not a struct")
	}

	eventReg := typereg.New()
	eventCodec := codec.JSON
	eventSerder := serde.NewSerder[Evolver[T]](eventReg, eventCodec)

	aggr := &store[T]{
		storeConfig: storeConfig{
			SnapshotMsgThreshold: snapshotSize,
			SnapshotMaxInterval:  snapshotInterval,
		},
		es:            es,
		ss:            ss,
		eventSerder:   eventSerder,
		eventRegistry: eventReg,
		snapshotCodec: codec.JSON,
	}

	for _, o := range opts {
		o(aggr)
	}

	return aggr
}

// Mutator executes decisions on an aggregate.
// Each decision runs against a freshly rebuilt state and its events are appended
// only if no other writer appended to the same aggregate in the meantime.
type Mutator[T any] interface {
	Mutate(ctx context.Context, id ID, decide Decision[T]) ([]*Event[T], error)
}

// Loader rebuilds an aggregate without changing it.
type Loader[T any] interface {
	Load(ctx context.Context, id ID) (*Aggregate[T], error)
}

type EventHandler[T any, E Evolver[T]] interface {
	HandleEvent(ctx context.Context, event E) error
}

type EventsHandler[T any] interface {
	HandleEvents(ctx context.Context, event *Event[T]) error
}

// Subscriber delivers committed events of an aggregate type to handlers.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, h EventsHandler[T], opts ...ProjOption) (Drainer, error)
}

// All aggregate stores implement the Store interface.
type Store[T any] interface {
	Subscriber[T]
	Mutator[T]
	Loader[T]
}

// Use to drain all open connections
type Drainer interface {
	Drain() error
}

type subscriber interface {
	Subscribe(ctx context.Context, handler func(msg *StoredMsg) error, params *SubscribeParams) (Drainer, error)
}

type ProjOption func(p *SubscribeParams)

type eventStream interface {
	// Save appends msgs if the last stored sequence of the aggregate equals expectedSequence.
	// It returns ErrConcurrency (possibly wrapped) otherwise.
	Save(ctx context.Context, aggrID ID, expectedSequence uint64, msgs []Msg) ([]*StoredMsg, error)
	Load(ctx context.Context, aggrID ID, fromSeq uint64) ([]*StoredMsg, error)
	subscriber
}

type snapshotStore interface {
	Save(ctx context.Context, key []byte, value []byte) error
	Load(ctx context.Context, key []byte) ([]byte, error)
}

type typeRegistry interface {
	Register(tname string, c func() any)
	Create(name string) (any, error)
	NameFor(in any) (string, error)
	Known(kind string) bool
}

type store[T any] struct {
	storeConfig
	es            eventStream
	ss            snapshotStore
	snapshotCodec codec.Codec
	eventSerder   EventSerder[T]
	eventRegistry typeRegistry
}

// build returns nil if the aggregate has neither a snapshot nor events.
func (a *store[T]) build(ctx context.Context, id ID) (*Aggregate[T], error) {
	aggr := &Aggregate[T]{ID: id}
	hasSnapshot := false

	b, err := a.ss.Load(ctx, []byte(id.String()))
	switch {
	case err == nil:
		if err := a.snapshotCodec.Unmarshal(b, aggr); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		aggr.snapVersion = aggr.Version
		hasSnapshot = true
	case errors.Is(err, ErrNoSnapshot):
	default:
		return nil, fmt.Errorf("build: %w", err)
	}

	msgs, err := a.es.Load(ctx, id, aggr.Sequence)
	if err != nil {
		if !errors.Is(err, ErrNoAggregate) {
			return nil, fmt.Errorf("build: %w", err)
		}
		if !hasSnapshot {
			return nil, nil
		}
	}

	for _, m := range msgs {
		ev, err := a.eventSerder.Deserialize(m.Kind, m.Body)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		ev.Evolve(&aggr.State)
		aggr.Version++
		aggr.Sequence = m.Sequence
	}

	return aggr, nil
}

// Load rebuilds the aggregate from its snapshot and event log.
func (a *store[T]) Load(ctx context.Context, id ID) (*Aggregate[T], error) {
	aggr, err := a.build(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if aggr == nil {
		return nil, ErrAggregateNotExists
	}
	return aggr, nil
}

// Mutate rebuilds the aggregate, runs decide against its state and appends the
// resulting events. Rejections from decide are returned as *InvariantViolationError.
func (a *store[T]) Mutate(ctx context.Context, id ID, decide Decision[T]) ([]*Event[T], error) {
	idempKey := idempotanceKeyFromCtxOrRandom(ctx)

	aggr, err := a.build(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mutate: %w", err)
	}
	if aggr == nil {
		aggr = &Aggregate[T]{ID: id}
	}

	evts, err := decide(&aggr.State)
	if err != nil {
		return nil, &InvariantViolationError{Err: err}
	}
	if len(evts) == 0 {
		return nil, nil
	}

	msgs := make([]Msg, len(evts))
	for i, ev := range evts {
		kind, err := a.eventRegistry.NameFor(ev)
		if err != nil {
			return nil, fmt.Errorf("mutate: %w", err)
		}

		b, err := a.eventSerder.Serialize(ev)
		if err != nil {
			return nil, fmt.Errorf("mutate: %w", err)
		}
		msgs[i] = Msg{
			ID:   ID(uuid.NewSHA1(id.UUID(), fmt.Appendf([]byte(idempKey), "%d", i))),
			Kind: kind,
			Body: b,
		}
	}

	storedMsgs, err := a.es.Save(ctx, id, aggr.Sequence, msgs)
	if err != nil {
		return nil, fmt.Errorf("mutate save: %w", err)
	}
	if len(storedMsgs) == 0 {
		slog.Warn("duplicate command ignored", "aggregateID", id.String(), "aggregate", reflect.TypeFor[T]().Name())
		return nil, nil
	}

	events := make([]*Event[T], len(storedMsgs))
	for i, msg := range storedMsgs {
		evts[i].Evolve(&aggr.State)
		aggr.Version++
		aggr.Sequence = msg.Sequence
		events[i] = &Event[T]{
			ID:          msg.ID,
			AggregateID: id,
			Kind:        msg.Kind,
			Version:     aggr.Version,
			Sequence:    msg.Sequence,
			Timestamp:   msg.Timestamp,
			Body:        evts[i],
		}
	}

	if a.needSnapshot(aggr) {
		snap := *aggr
		snap.SnapshotAt = time.Now()
		go a.saveSnapshot(context.WithoutCancel(ctx), &snap)
	}

	return events, nil
}

func (a *store[T]) needSnapshot(aggr *Aggregate[T]) bool {
	if a.SnapshotMsgThreshold == 0 {
		return false
	}
	return aggr.Version-aggr.snapVersion >= a.SnapshotMsgThreshold &&
		time.Since(aggr.SnapshotAt) > a.SnapshotMaxInterval
}

func (a *store[T]) saveSnapshot(ctx context.Context, aggr *Aggregate[T]) {
	b, err := a.snapshotCodec.Marshal(aggr)
	if err != nil {
		slog.Warn("snapshot save serialization", "error", err.Error())
		return
	}
	if err := a.ss.Save(ctx, []byte(aggr.ID.String()), b); err != nil {
		slog.Error("snapshot save", "error", err.Error())
		return
	}
	slog.Info("snapshot saved", "version", aggr.Version, "aggregateID", aggr.ID.String(), "aggregate", reflect.TypeFor[T]().Name())
}
