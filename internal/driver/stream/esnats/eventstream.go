package esnats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/qos"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/synadia-io/orbit.go/jetstreamext"
)

const (
	maxAckPending int = 1000
)

type eventStream struct {
	name string
	EventStreamConfig
	js jetstream.JetStream
}

const (
	defaultDeduplication time.Duration = time.Minute * 2
)

// NewEventStream creates or updates the JetStream stream backing one aggregate type.
// Subjects are "<name>.<aggregate id>.<event kind>".
func NewEventStream(ctx context.Context, js jetstream.JetStream, name string, cfg EventStreamConfig) (*eventStream, error) {
	if cfg.Deduplication == 0 {
		cfg.Deduplication = defaultDeduplication
	}
	stream := &eventStream{name: name, js: js, EventStreamConfig: cfg}

	_, err := stream.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Subjects:           []string{stream.allSubjects()},
		Name:               name,
		Storage:            jetstream.StorageType(cfg.StoreType),
		Duplicates:         cfg.Deduplication,
		AllowDirect:        true,
		AllowAtomicPublish: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", name, err)
	}

	return stream, nil
}

func (s *eventStream) subjectNameForID(agrid string) string {
	return fmt.Sprintf("%s.%s", s.name, agrid)
}

func (s *eventStream) allSubjectsForID(agrid string) string {
	return fmt.Sprintf("%s.%s.>", s.name, agrid)
}

func (s *eventStream) allSubjects() string {
	return fmt.Sprintf("%s.>", s.name)
}

func (s *eventStream) filterSubjects(params *aggregate.SubscribeParams) []string {
	aggrID := "*"
	if params.AggrID != "" {
		aggrID = params.AggrID
	}
	if len(params.Kind) == 0 {
		return []string{fmt.Sprintf("%s.%s.%s", s.name, aggrID, "*")}
	}
	filter := make([]string, 0, len(params.Kind))
	for _, kind := range params.Kind {
		filter = append(filter, fmt.Sprintf("%s.%s.%s", s.name, aggrID, kind))
	}
	return filter
}

func wrapPublishErr(err error) error {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return fmt.Errorf("%w: %w", aggregate.ErrConcurrency, err)
	}
	return err
}

// natsMsgs builds the messages of one append. Only the first message carries the
// expected last sequence; JetStream checks it against every subject of the aggregate.
func (s *eventStream) natsMsgs(aggrID aggregate.ID, expectedSequence uint64, msgs []aggregate.Msg) []*nats.Msg {
	prefix := s.subjectNameForID(aggrID.String())
	out := make([]*nats.Msg, len(msgs))
	for i, msg := range msgs {
		m := nats.NewMsg(prefix + "." + msg.Kind)
		m.Data = msg.Body
		m.Header.Set(jetstream.MsgIDHeader, msg.ID.String())
		if i == 0 {
			m.Header.Set(jetstream.ExpectedLastSubjSeqSubjHeader, s.allSubjectsForID(aggrID.String()))
			m.Header.Set(jetstream.ExpectedLastSubjSeqHeader, strconv.FormatUint(expectedSequence, 10))
		}
		out[i] = m
	}
	return out
}

// Save appends msgs atomically. A single message goes through PublishMsg, several
// through an atomic batch. It returns nil, nil when JetStream reports a duplicate.
func (s *eventStream) Save(ctx context.Context, aggrID aggregate.ID, expectedSequence uint64, msgs []aggregate.Msg) ([]*aggregate.StoredMsg, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	nmsgs := s.natsMsgs(aggrID, expectedSequence, msgs)
	subject := s.subjectNameForID(aggrID.String())
	now := time.Now()

	var last uint64
	if len(nmsgs) == 1 {
		ack, err := s.js.PublishMsg(ctx, nmsgs[0])
		if err != nil {
			return nil, s.saveErr(err, subject, expectedSequence)
		}
		if ack.Duplicate {
			slog.Warn("duplicate event not stored", "kind", msgs[0].Kind, "subject", subject, "stream", s.name)
			return nil, nil
		}
		last = ack.Sequence
	} else {
		ack, err := jetstreamext.PublishMsgBatch(ctx, s.js, nmsgs, jetstreamext.BatchFlowControl{AckEvery: 1, AckTimeout: time.Second})
		if err != nil {
			return nil, s.saveErr(err, subject, expectedSequence)
		}
		last = ack.Sequence
	}

	// A batch is stored contiguously and acked with the sequence of its last message.
	first := last - uint64(len(msgs)-1)
	stored := make([]*aggregate.StoredMsg, len(msgs))
	for i, msg := range msgs {
		stored[i] = &aggregate.StoredMsg{
			Msg:         msg,
			Version:     aggregate.Version{Sequence: first + uint64(i), Timestamp: now},
			AggregateID: aggrID,
		}
		slog.Info("event stored", "kind", msg.Kind, "subject", subject, "seq", first+uint64(i), "stream", s.name)
	}
	return stored, nil
}

func (s *eventStream) saveErr(err error, subject string, expectedSequence uint64) error {
	err = wrapPublishErr(err)
	if errors.Is(err, aggregate.ErrConcurrency) {
		slog.Warn("occ", "expected_seq", expectedSequence, "subject", subject)
	}
	return fmt.Errorf("save: %w", err)
}

func (s *eventStream) Load(ctx context.Context, aggrID aggregate.ID, fromSeq uint64) ([]*aggregate.StoredMsg, error) {

	subj := s.allSubjectsForID(aggrID.String())
	msgs, err := jetstreamext.GetBatch(ctx,
		s.js, s.name, math.MaxInt, jetstreamext.GetBatchSubject(subj),
		jetstreamext.GetBatchSeq(fromSeq+1))
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}

	var evts []*aggregate.StoredMsg
	for msg, err := range msgs {
		if err != nil {
			if errors.Is(err, jetstreamext.ErrNoMessages) {
				return nil, aggregate.ErrNoAggregate
			}
			return nil, fmt.Errorf("load: %w", err)
		}

		event, err := storedFromMsg(rawMsg{msg})
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		evts = append(evts, event)
	}
	if len(evts) == 0 {
		return nil, aggregate.ErrNoAggregate
	}

	return evts, nil
}

type drainAdapter struct {
	jetstream.ConsumeContext
}

func (d *drainAdapter) Drain() error {
	d.ConsumeContext.Drain()
	return nil
}

func (e *eventStream) handle(handler func(msg *aggregate.StoredMsg) error, msg jetstream.Msg, ack bool) {
	stored, err := storedFromMsg(consumedMsg{msg})
	if err != nil {
		slog.Error("subscription decode", "error", err, "subject", msg.Subject())
		if ack {
			msg.Term()
		}
		return
	}

	var target *aggregate.InvariantViolationError
	if err := handler(stored); err != nil {
		if !errors.As(err, &target) {
			slog.Warn("redelivering", "error", err)
			if ack {
				msg.Nak()
			}
			return
		}
		slog.Warn("invariant violation", "reason", err.Error())
	}
	if ack {
		msg.Ack()
	}
}

func (e *eventStream) Subscribe(ctx context.Context, handler func(msg *aggregate.StoredMsg) error, params *aggregate.SubscribeParams) (aggregate.Drainer, error) {
	filter := e.filterSubjects(params)

	if params.QoS.Delivery == qos.AtMostOnce {
		cons, err := e.js.OrderedConsumer(ctx, e.name, jetstream.OrderedConsumerConfig{
			FilterSubjects: filter,
			DeliverPolicy:  jetstream.DeliverNewPolicy,
		})
		if err != nil {
			return nil, fmt.Errorf("at most once subscribe: %w", err)
		}
		ct, err := cons.Consume(func(msg jetstream.Msg) {
			e.handle(handler, msg, false)
		})
		if err != nil {
			return nil, fmt.Errorf("at most once consume: %w", err)
		}
		return &drainAdapter{ConsumeContext: ct}, nil
	}

	maxpend := maxAckPending
	if params.QoS.Ordering == qos.Ordered {
		maxpend = 1
	}
	cons, err := e.js.CreateOrUpdateConsumer(ctx, e.name, jetstream.ConsumerConfig{
		Durable:        params.DurableName,
		FilterSubjects: filter,
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		AckPolicy:      jetstream.AckExplicitPolicy,
		MaxAckPending:  maxpend,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription create consumer: %w", err)
	}

	ct, err := cons.Consume(func(msg jetstream.Msg) {
		e.handle(handler, msg, true)
	}, jetstream.ConsumeErrHandler(func(consumeCtx jetstream.ConsumeContext, err error) {
		slog.Error("subscription consume", "error", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("subscription consume: %w", err)
	}
	return &drainAdapter{ConsumeContext: ct}, nil
}
