package natsstore

import (
	"time"

	"github.com/alekseev-bro/warcore/internal/driver/snapshot/snapnats"
	"github.com/alekseev-bro/warcore/internal/driver/stream/esnats"
	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/codec"
)

type options[T any] struct {
	esCfg  esnats.EventStreamConfig
	ssCfg  snapnats.SnapshotStoreConfig
	agOpts []aggregate.StoreOption[T]
}

type Option[T any] func(c *options[T])

// WithInMemory keeps the stream and the snapshot bucket in server memory.
func WithInMemory[T any]() Option[T] {
	return func(opts *options[T]) {
		opts.esCfg.StoreType = esnats.Memory
		opts.ssCfg.StoreType = snapnats.Memory
	}
}

func WithDeduplication[T any](duration time.Duration) Option[T] {
	return func(opts *options[T]) {
		opts.esCfg.Deduplication = duration
	}
}

// WithStoreOptions passes options through to the aggregate store.
func WithStoreOptions[T any](opts ...aggregate.StoreOption[T]) Option[T] {
	return func(o *options[T]) {
		o.agOpts = append(o.agOpts, opts...)
	}
}

// WithSnapshot sets the threshold for snapshotting.
// maxMsgs is the number of events to accumulate before snapshotting,
// and maxInterval is the minimum time interval between snapshots.
func WithSnapshot[T any](maxMsgs uint64, maxInterval time.Duration) Option[T] {
	return func(a *options[T]) {
		a.agOpts = append(a.agOpts, aggregate.WithSnapshot[T](maxMsgs, maxInterval))
	}
}

func WithEventCodec[T any](codec codec.Codec) Option[T] {
	return func(a *options[T]) {
		a.agOpts = append(a.agOpts, aggregate.WithEventCodec[T](codec))
	}
}

func WithSnapshotCodec[T any](codec codec.Codec) Option[T] {
	return func(a *options[T]) {
		a.agOpts = append(a.agOpts, aggregate.WithSnapshotCodec[T](codec))
	}
}
