package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/alekseev-bro/warcore/internal/typereg"

	"github.com/alekseev-bro/warcore/pkg/qos"
)

type SubscribeParams struct {
	DurableName string
	Kind        []string
	AggrID      string
	QoS         qos.QoS
}

func WithFilterByAggregateID(id ID) ProjOption {
	return func(p *SubscribeParams) {
		p.AggrID = id.String()
	}
}

// WithFilterByEvent restricts a subscription to events registered under the Go type name of E.
func WithFilterByEvent[E any]() ProjOption {
	t := reflect.TypeFor[E]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("event type must be a struct")
	}
	return func(p *SubscribeParams) {
		p.Kind = append(p.Kind, t.Name())
	}
}

func WithName(name string) ProjOption {
	return func(p *SubscribeParams) {
		p.DurableName = name
	}
}

func WithQoS(qos qos.QoS) ProjOption {
	return func(p *SubscribeParams) {
		p.QoS = qos
	}
}

// Project subscribes h to events of type E only.
func Project[E Evolver[T], T any](ctx context.Context, sub Subscriber[T], h EventHandler[T, E]) (Drainer, error) {

	n := fmt.Sprintf("handler-%s", typereg.TypeNameFrom(h, typereg.WithDelimiter("-")))

	return sub.Subscribe(ctx, &handleEventAdapter[E, T]{h: h}, WithFilterByEvent[E](), WithName(n))

}

type handleEventAdapter[E Evolver[T], T any] struct {
	h EventHandler[T, E]
}

func (h *handleEventAdapter[E, T]) HandleEvents(ctx context.Context, event *Event[T]) error {
	ev, ok := event.Body.(E)
	if !ok {
		return nil
	}
	return h.h.HandleEvent(ctx, ev)
}

// Subscribe creates a new subscription on aggregate events with the given handler.
func (a *store[T]) Subscribe(ctx context.Context, h EventsHandler[T], opts ...ProjOption) (Drainer, error) {
	dn := typereg.TypeNameFrom(h, typereg.WithDelimiter("-"))

	params := &SubscribeParams{
		DurableName: dn,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(params)
		}
	}
	for _, kind := range params.Kind {
		if !a.eventRegistry.Known(kind) {
			return nil, fmt.Errorf("subscribe %s: %w %q", params.DurableName, ErrUnknownEventKind, kind)
		}
	}
	d, err := a.es.Subscribe(ctx, func(msg *StoredMsg) error {
		ev, err := a.eventSerder.Deserialize(msg.Kind, msg.Body)
		if err != nil {
			return fmt.Errorf("subscription: %w", err)
		}
		return h.HandleEvents(ContextWithIdempotancyKey(ctx, msg.ID.String()), &Event[T]{
			ID:          msg.ID,
			AggregateID: msg.AggregateID,
			Kind:        msg.Kind,
			Sequence:    msg.Sequence,
			Timestamp:   msg.Timestamp,
			Body:        ev,
		})
	}, params)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	slog.Info("subscription created", "subscription", params.DurableName, "qos", params.QoS.String())
	return d, nil
}
