package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/alekseev-bro/warcore/internal/config"
	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/dispatch"
	"github.com/alekseev-bro/warcore/pkg/eventbus"
	"github.com/alekseev-bro/warcore/pkg/game"
	"github.com/alekseev-bro/warcore/pkg/memstore"
	"github.com/alekseev-bro/warcore/pkg/natsstore"
	"github.com/alekseev-bro/warcore/pkg/occupancy"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

// runtime is the wired set of components behind a command.
type runtime struct {
	Games      aggregate.Store[game.Game]
	Units      aggregate.Store[unit.Unit]
	Bus        *eventbus.Bus
	Occupancy  *occupancy.Projection
	Dispatcher *dispatch.Dispatcher

	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}

	switch cfg.Backend {
	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("warcore"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		rt.closers = append(rt.closers, func() {
			if err := nc.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		})
		js, err := jetstream.New(nc)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		rt.Games, err = natsstore.NewStore(ctx, js, natsOptions(cfg, game.StoreOptions())...)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Units, err = natsstore.NewStore(ctx, js, natsOptions(cfg, unit.StoreOptions())...)
		if err != nil {
			rt.Close()
			return nil, err
		}
	default:
		rt.Games = memstore.NewStore(ctx, append(game.StoreOptions(),
			aggregate.WithSnapshot[game.Game](cfg.SnapshotEvery, cfg.SnapshotInterval))...)
		rt.Units = memstore.NewStore(ctx, append(unit.StoreOptions(),
			aggregate.WithSnapshot[unit.Unit](cfg.SnapshotEvery, cfg.SnapshotInterval))...)
	}

	debug := cfg.LogLevel == "debug"
	rt.Bus = eventbus.NewInMemory(watermill.NewStdLogger(debug, false))
	rt.closers = append(rt.closers, func() {
		if err := rt.Bus.Close(); err != nil {
			slog.Warn("event bus close", "error", err)
		}
	})

	rt.Occupancy = occupancy.New()
	if err := rt.Occupancy.Subscribe(ctx, rt.Bus); err != nil {
		rt.Close()
		return nil, err
	}

	casualties, err := aggregate.Project[*unit.UnitDestroyed, unit.Unit](ctx, rt.Units, casualtyLog{})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, func() {
		if err := casualties.Drain(); err != nil {
			slog.Warn("casualty log drain", "error", err)
		}
	})

	rt.Dispatcher = dispatch.New(rt.Games, rt.Units,
		dispatch.WithPublisher(rt.Bus),
		dispatch.WithOccupancy(rt.Occupancy),
		dispatch.WithMaxRetries(cfg.MaxRetries),
	)
	return rt, nil
}

func natsOptions[T any](cfg config.Config, storeOpts []aggregate.StoreOption[T]) []natsstore.Option[T] {
	opts := []natsstore.Option[T]{
		natsstore.WithStoreOptions(storeOpts...),
		natsstore.WithSnapshot[T](cfg.SnapshotEvery, cfg.SnapshotInterval),
	}
	if cfg.NATSMemoryStorage {
		opts = append(opts, natsstore.WithInMemory[T]())
	}
	return opts
}

// casualtyLog reports destroyed units as they are committed.
type casualtyLog struct{}

func (casualtyLog) HandleEvent(ctx context.Context, e *unit.UnitDestroyed) error {
	slog.Info("unit destroyed", "unit_id", e.UnitID.String(), "at", e.DestroyedAt)
	return nil
}
