package esnats

import (
	"fmt"
	"strings"
	"time"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// streamMsg is the common view of a message read directly from the stream
// and one delivered to a consumer.
type streamMsg interface {
	Headers() nats.Header
	Data() []byte
	Subject() string
	// Position reports the stream sequence and the time the message was stored.
	Position() (uint64, time.Time, error)
}

type rawMsg struct {
	*jetstream.RawStreamMsg
}

func (m rawMsg) Headers() nats.Header { return m.Header }
func (m rawMsg) Data() []byte         { return m.RawStreamMsg.Data }
func (m rawMsg) Subject() string      { return m.RawStreamMsg.Subject }

func (m rawMsg) Position() (uint64, time.Time, error) {
	return m.Sequence, m.Time, nil
}

type consumedMsg struct {
	jetstream.Msg
}

func (m consumedMsg) Position() (uint64, time.Time, error) {
	meta, err := m.Metadata()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("metadata: %w", err)
	}
	return meta.Sequence.Stream, meta.Timestamp, nil
}

// parseSubject splits "<stream>.<aggregate id>.<kind>".
func parseSubject(subject string) (aggregate.ID, string, error) {
	stream, rest, ok := strings.Cut(subject, ".")
	if !ok || stream == "" {
		return aggregate.ID{}, "", fmt.Errorf("unexpected subject %q", subject)
	}
	rawID, kind, ok := strings.Cut(rest, ".")
	if !ok || kind == "" || strings.Contains(kind, ".") {
		return aggregate.ID{}, "", fmt.Errorf("unexpected subject %q", subject)
	}
	id, err := aggregate.ParseID(rawID)
	if err != nil {
		return aggregate.ID{}, "", fmt.Errorf("subject %q: %w", subject, err)
	}
	return id, kind, nil
}

func storedFromMsg(msg streamMsg) (*aggregate.StoredMsg, error) {
	mid, err := uuid.Parse(msg.Headers().Get(jetstream.MsgIDHeader))
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	aggrID, kind, err := parseSubject(msg.Subject())
	if err != nil {
		return nil, err
	}
	seq, ts, err := msg.Position()
	if err != nil {
		return nil, err
	}
	return &aggregate.StoredMsg{
		Msg:         aggregate.Msg{ID: aggregate.ID(mid), Kind: kind, Body: msg.Data()},
		Version:     aggregate.Version{Sequence: seq, Timestamp: ts},
		AggregateID: aggrID,
	}, nil
}
