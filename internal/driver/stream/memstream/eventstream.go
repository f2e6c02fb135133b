// Package memstream is an in-process event stream with per-aggregate optimistic appends.
package memstream

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/qos"
)

const subBuffer = 64

type eventStream struct {
	name string

	mue  sync.RWMutex
	logs map[aggregate.ID][]*aggregate.StoredMsg
	all  []*aggregate.StoredMsg
	keys map[aggregate.ID]struct{}

	// mud is taken before mue is released, so appends reach subscribers in stored order.
	mud sync.Mutex

	mus  sync.RWMutex
	subs map[string]*sub
}

func NewEventStream(name string) *eventStream {
	return &eventStream{
		name: name,
		logs: make(map[aggregate.ID][]*aggregate.StoredMsg),
		keys: make(map[aggregate.ID]struct{}),
		subs: make(map[string]*sub),
	}
}

// Save appends msgs when the aggregate's log length equals expectedSequence.
// Sequences are 1-based positions within the aggregate's own log.
func (m *eventStream) Save(ctx context.Context, aggrID aggregate.ID, expectedSequence uint64, msgs []aggregate.Msg) ([]*aggregate.StoredMsg, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	m.mue.Lock()
	if _, ok := m.keys[msgs[0].ID]; ok {
		m.mue.Unlock()
		slog.Warn("duplicate event not stored", "kind", msgs[0].Kind, "aggregateID", aggrID.String(), "stream", m.name)
		return nil, nil
	}
	log := m.logs[aggrID]
	if uint64(len(log)) != expectedSequence {
		m.mue.Unlock()
		slog.Warn("occ", "version", expectedSequence, "stored", len(log), "aggregateID", aggrID.String(), "stream", m.name)
		return nil, fmt.Errorf("save: %w", aggregate.ErrConcurrency)
	}

	now := time.Now()
	stored := make([]*aggregate.StoredMsg, len(msgs))
	for i, msg := range msgs {
		stored[i] = &aggregate.StoredMsg{
			Msg:         msg,
			Version:     aggregate.Version{Sequence: expectedSequence + uint64(i) + 1, Timestamp: now},
			AggregateID: aggrID,
		}
		m.keys[msg.ID] = struct{}{}
	}
	m.logs[aggrID] = append(log, stored...)
	m.all = append(m.all, stored...)
	m.mud.Lock()
	m.mue.Unlock()
	defer m.mud.Unlock()

	for _, msg := range stored {
		slog.Debug("event stored", "kind", msg.Kind, "aggregateID", aggrID.String(), "stream", m.name)
	}

	m.mus.RLock()
	subs := make([]*sub, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mus.RUnlock()

	for _, s := range subs {
		for _, msg := range stored {
			if err := s.deliver(ctx, msg); err != nil {
				return stored, nil
			}
		}
	}
	return stored, nil
}

func (m *eventStream) Load(ctx context.Context, aggrID aggregate.ID, fromSeq uint64) ([]*aggregate.StoredMsg, error) {
	m.mue.RLock()
	defer m.mue.RUnlock()

	log := m.logs[aggrID]
	if fromSeq >= uint64(len(log)) {
		return nil, aggregate.ErrNoAggregate
	}
	return slices.Clone(log[fromSeq:]), nil
}

type sub struct {
	ch     chan *aggregate.StoredMsg
	done   chan struct{}
	once   sync.Once
	params *aggregate.SubscribeParams
}

func (s *sub) matches(msg *aggregate.StoredMsg) bool {
	if s.params.AggrID != "" && s.params.AggrID != msg.AggregateID.String() {
		return false
	}
	return len(s.params.Kind) == 0 || slices.Contains(s.params.Kind, msg.Kind)
}

func (s *sub) deliver(ctx context.Context, msg *aggregate.StoredMsg) error {
	if !s.matches(msg) {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	case s.ch <- msg:
		return nil
	}
}

type drainer struct {
	key string
	m   *eventStream
}

func (d *drainer) Drain() error {
	d.m.mus.Lock()
	s, ok := d.m.subs[d.key]
	delete(d.m.subs, d.key)
	d.m.mus.Unlock()
	if ok {
		s.once.Do(func() { close(s.done) })
	}
	return nil
}

// Subscribe starts delivering matching messages to handler on a dedicated goroutine.
// At-least-once subscriptions first receive the messages already stored.
func (m *eventStream) Subscribe(ctx context.Context, handler func(msg *aggregate.StoredMsg) error, params *aggregate.SubscribeParams) (aggregate.Drainer, error) {
	s := &sub{
		ch:     make(chan *aggregate.StoredMsg, subBuffer),
		done:   make(chan struct{}),
		params: params,
	}

	var backlog []*aggregate.StoredMsg
	m.mue.RLock()
	m.mus.Lock()
	if _, ok := m.subs[params.DurableName]; ok {
		m.mus.Unlock()
		m.mue.RUnlock()
		return nil, fmt.Errorf("subscription %q already exists", params.DurableName)
	}
	if params.QoS.Delivery == qos.AtLeastOnce {
		for _, msg := range m.all {
			if s.matches(msg) {
				backlog = append(backlog, msg)
			}
		}
	}
	m.subs[params.DurableName] = s
	m.mus.Unlock()
	m.mue.RUnlock()

	go func() {
		for _, msg := range backlog {
			m.call(handler, msg, params.DurableName)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case msg := <-s.ch:
				m.call(handler, msg, params.DurableName)
			}
		}
	}()

	return &drainer{key: params.DurableName, m: m}, nil
}

func (m *eventStream) call(handler func(msg *aggregate.StoredMsg) error, msg *aggregate.StoredMsg, name string) {
	if err := handler(msg); err != nil {
		slog.Warn("subscription handler", "error", err, "subscription", name, "kind", msg.Kind)
	}
}
