package eventbus_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/eventbus"
)

type moved struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.NewInMemory(nil)
	defer bus.Close()

	var (
		mu  sync.Mutex
		got []eventbus.Delivery
	)
	require.NoError(t, bus.Subscribe(ctx, eventbus.Topic("unit"), func(ctx context.Context, d eventbus.Delivery) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, d)
		return nil
	}))

	id := aggregate.NewID()
	err := bus.Publish(ctx,
		eventbus.Record{Aggregate: "unit", AggregateID: id, Kind: "UnitMoved", Version: 2, Body: moved{X: 1, Y: 2}},
		eventbus.Record{Aggregate: "unit", AggregateID: id, Kind: "UnitMoved", Version: 3, Body: moved{X: 2, Y: 2}},
	)
	require.NoError(t, err)

	// Publish blocks until the subscriber acknowledged.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "unit", got[0].Aggregate)
	assert.Equal(t, id, got[0].AggregateID)
	assert.Equal(t, "UnitMoved", got[0].Kind)
	assert.Equal(t, uint64(2), got[0].Version)
	assert.Equal(t, uint64(3), got[1].Version)
	assert.Equal(t, "application/json", got[0].ContentType)

	var body moved
	require.NoError(t, got[1].Decode(&body))
	assert.Equal(t, moved{X: 2, Y: 2}, body)
}

func TestHandlerErrorDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.NewInMemory(nil)
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.Subscribe(ctx, eventbus.Topic("game"), func(ctx context.Context, d eventbus.Delivery) error {
		calls++
		return errors.New("boom")
	}))

	for v := uint64(1); v <= 3; v++ {
		require.NoError(t, bus.Publish(ctx, eventbus.Record{Aggregate: "game", AggregateID: aggregate.NewID(), Kind: "GameStarted", Version: v, Body: struct{}{}}))
	}
	assert.Equal(t, 3, calls)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "game.events", eventbus.Topic("game"))
}
