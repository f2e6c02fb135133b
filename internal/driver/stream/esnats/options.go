package esnats

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

type StoreType jetstream.StorageType

const (
	Disk StoreType = iota
	Memory
)

type EventStreamConfig struct {
	StoreType StoreType
	// Deduplication is the JetStream duplicate window for message IDs; zero means two minutes.
	Deduplication time.Duration
}
