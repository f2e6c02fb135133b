// Package memstore wires aggregate stores onto in-process drivers.
package memstore

import (
	"context"

	"github.com/alekseev-bro/warcore/internal/driver/snapshot/memsnap"
	"github.com/alekseev-bro/warcore/internal/driver/stream/memstream"
	"github.com/alekseev-bro/warcore/internal/typereg"
	"github.com/alekseev-bro/warcore/pkg/aggregate"
)

// NewStore creates an aggregate store for T whose events live in process memory.
func NewStore[T any](ctx context.Context, opts ...aggregate.StoreOption[T]) aggregate.Store[T] {
	name := typereg.TypeNameFor[T](typereg.WithDelimiter("-"))
	return aggregate.NewStore(ctx, memstream.NewEventStream(name), memsnap.NewSnapshotStore(), opts...)
}
