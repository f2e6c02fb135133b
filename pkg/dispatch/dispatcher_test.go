package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/dispatch"
	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/eventbus"
	"github.com/alekseev-bro/warcore/pkg/game"
	"github.com/alekseev-bro/warcore/pkg/memstore"
	"github.com/alekseev-bro/warcore/pkg/occupancy"
	"github.com/alekseev-bro/warcore/pkg/policy"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fixture struct {
	bus   *eventbus.Bus
	games aggregate.Store[game.Game]
	units aggregate.Store[unit.Unit]
	occ   *occupancy.Projection
	d     *dispatch.Dispatcher
}

func newFixture(t *testing.T, opts ...dispatch.Option) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := eventbus.NewInMemory(nil)
	t.Cleanup(func() { bus.Close() })
	occ := occupancy.New()
	require.NoError(t, occ.Subscribe(ctx, bus))

	f := &fixture{
		bus:   bus,
		games: memstore.NewStore(ctx, game.StoreOptions()...),
		units: memstore.NewStore(ctx, unit.StoreOptions()...),
		occ:   occ,
	}
	opts = append([]dispatch.Option{
		dispatch.WithPublisher(bus),
		dispatch.WithOccupancy(occ),
		dispatch.WithRetryInterval(time.Millisecond, time.Millisecond),
	}, opts...)
	f.d = dispatch.New(f.games, f.units, opts...)
	return f
}

func kinds(recs []eventbus.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Kind
	}
	return out
}

func TestGameScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gameID, p1, p2 := domain.NewGameID(), domain.NewPlayerID(), domain.NewPlayerID()

	var all []eventbus.Record
	for _, cmd := range []dispatch.Command{
		dispatch.CreateGame{GameID: gameID, PlayerID: p1, Name: "duel", CreatedAt: t0},
		dispatch.JoinGame{GameID: gameID, PlayerID: p2, At: t0},
		dispatch.StartGame{GameID: gameID, At: t0},
		dispatch.EndTurn{GameID: gameID, PlayerID: p1, At: t0},
	} {
		recs, err := f.d.Dispatch(ctx, cmd)
		require.NoError(t, err)
		all = append(all, recs...)
	}

	assert.Equal(t, []string{game.KindGameCreated, game.KindPlayerJoined, game.KindGameStarted, game.KindPlayerEndedTurn}, kinds(all))
	for i, r := range all {
		assert.Equal(t, dispatch.GameAggregate, r.Aggregate)
		assert.Equal(t, aggregate.ID(gameID), r.AggregateID)
		assert.Equal(t, uint64(i+1), r.Version)
	}

	g, err := f.games.Load(ctx, aggregate.ID(gameID))
	require.NoError(t, err)
	assert.Equal(t, p2, g.State.ActivePlayer)
	assert.Equal(t, 1, g.State.CurrentTurn)
	assert.Equal(t, uint64(4), g.Version)
}

func TestGameRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gameID, p1 := domain.NewGameID(), domain.NewPlayerID()

	_, err := f.d.Dispatch(ctx, dispatch.CreateGame{GameID: gameID, PlayerID: p1, Name: "solo", CreatedAt: t0})
	require.NoError(t, err)

	recs, err := f.d.Dispatch(ctx, dispatch.StartGame{GameID: gameID, At: t0})
	assert.Empty(t, recs)
	var violation *aggregate.InvariantViolationError
	require.ErrorAs(t, err, &violation)
	var insufficient *game.InsufficientPlayersError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Actual)

	_, err = f.d.Dispatch(ctx, dispatch.JoinGame{GameID: gameID, PlayerID: p1, At: t0})
	assert.ErrorIs(t, err, game.ErrPlayerAlreadyJoined)

	_, err = f.d.Dispatch(ctx, dispatch.EndTurn{GameID: gameID, PlayerID: p1, At: t0})
	assert.ErrorIs(t, err, game.ErrGameNotStarted)

	_, err = f.d.Dispatch(ctx, dispatch.JoinGame{GameID: domain.NewGameID(), PlayerID: p1, At: t0})
	assert.ErrorIs(t, err, aggregate.ErrAggregateNotExists)

	_, err = f.d.Dispatch(ctx, nil)
	assert.ErrorIs(t, err, dispatch.ErrUnknownCommand)
}

func TestUnitScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gameID, p1, unitID := domain.NewGameID(), domain.NewPlayerID(), domain.NewUnitID()

	recs, err := f.d.Dispatch(ctx, dispatch.CreateUnit{
		UnitID: unitID, OwnerID: p1, GameID: gameID, Type: domain.Warrior,
		Position: domain.Pos(5, 5), Terrain: domain.Plains, CreatedAt: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{unit.KindUnitCreated}, kinds(recs))

	recs, err = f.d.Dispatch(ctx, dispatch.MoveUnit{UnitID: unitID, To: domain.Pos(6, 5), At: t0})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	moved, ok := recs[0].Body.(*unit.UnitMoved)
	require.True(t, ok)
	assert.Equal(t, domain.Pos(5, 5), moved.From())
	assert.Equal(t, domain.Pos(6, 5), moved.To())
	assert.Equal(t, []domain.Position{domain.Pos(6, 5)}, f.occ.Occupied(gameID))

	_, err = f.d.Dispatch(ctx, dispatch.MoveUnit{UnitID: unitID, To: domain.Pos(9, 5), At: t0})
	var moveErr *policy.InvalidMovementError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, policy.TooFar, moveErr.Reason)
	assert.Equal(t, 2, moveErr.MaxRange)

	_, err = f.d.Dispatch(ctx, dispatch.MoveUnit{UnitID: domain.NewUnitID(), To: domain.Pos(1, 1), At: t0})
	assert.ErrorIs(t, err, aggregate.ErrAggregateNotExists)
}

func TestOccupancyMerged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gameID, p1, p2 := domain.NewGameID(), domain.NewPlayerID(), domain.NewPlayerID()
	a, b := domain.NewUnitID(), domain.NewUnitID()

	_, err := f.d.Dispatch(ctx, dispatch.CreateUnit{UnitID: a, OwnerID: p1, GameID: gameID, Type: domain.Warrior, Position: domain.Pos(0, 0), CreatedAt: t0})
	require.NoError(t, err)

	// The caller's snapshot is stale, the occupancy index is not.
	_, err = f.d.Dispatch(ctx, dispatch.CreateUnit{UnitID: b, OwnerID: p2, GameID: gameID, Type: domain.Scout, Position: domain.Pos(0, 0), CreatedAt: t0})
	var moveErr *policy.InvalidMovementError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, policy.PositionOccupied, moveErr.Reason)

	_, err = f.d.Dispatch(ctx, dispatch.CreateUnit{UnitID: b, OwnerID: p2, GameID: gameID, Type: domain.Scout, Position: domain.Pos(2, 0), CreatedAt: t0})
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, dispatch.MoveUnit{UnitID: b, To: domain.Pos(0, 0), At: t0})
	assert.ErrorIs(t, err, policy.ErrInvalidMovement)

	// The moving unit's own cell does not block it.
	_, err = f.d.Dispatch(ctx, dispatch.MoveUnit{UnitID: b, To: domain.Pos(1, 0), At: t0})
	require.NoError(t, err)

	// Other games are unaffected.
	_, err = f.d.Dispatch(ctx, dispatch.CreateUnit{UnitID: domain.NewUnitID(), OwnerID: p1, GameID: domain.NewGameID(), Type: domain.Warrior, Position: domain.Pos(0, 0), CreatedAt: t0})
	assert.NoError(t, err)
}

func TestConcurrentPlacementSameCell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gameID := domain.NewGameID()

	const n = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ok  int
		occ int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.d.Dispatch(ctx, dispatch.CreateUnit{
				UnitID: domain.NewUnitID(), OwnerID: domain.NewPlayerID(), GameID: gameID,
				Type: domain.Warrior, Position: domain.Pos(4, 4), CreatedAt: t0,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, policy.ErrInvalidMovement):
				occ++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, occ)
	assert.Empty(t, f.occ.Conflicts())
}

// skirmish places a siege engine of p1 next to a 60 hp scout of p2.
func skirmish(t *testing.T, f *fixture) (gameID domain.GameID, siege, scout domain.UnitID) {
	t.Helper()
	ctx := context.Background()
	gameID, siege, scout = domain.NewGameID(), domain.NewUnitID(), domain.NewUnitID()
	p1, p2 := domain.NewPlayerID(), domain.NewPlayerID()

	_, err := f.d.Dispatch(ctx, dispatch.CreateUnit{UnitID: siege, OwnerID: p1, GameID: gameID, Type: domain.SiegeEngine, Position: domain.Pos(0, 0), CreatedAt: t0})
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, dispatch.CreateUnit{UnitID: scout, OwnerID: p2, GameID: gameID, Type: domain.Scout, Position: domain.Pos(1, 0), CreatedAt: t0})
	require.NoError(t, err)
	return gameID, siege, scout
}

func loadTarget(t *testing.T, units aggregate.Loader[unit.Unit], id domain.UnitID) unit.Target {
	t.Helper()
	u, err := units.Load(context.Background(), aggregate.ID(id))
	require.NoError(t, err)
	return unit.TargetOf(&u.State)
}

func TestAttackRelaysToDefender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gameID, siege, scout := skirmish(t, f)

	attack := func() []eventbus.Record {
		t.Helper()
		recs, err := f.d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: loadTarget(t, f.units, scout), At: t0})
		require.NoError(t, err)
		return recs
	}

	// Scout has 60 hp and takes 19 per hit.
	recs := attack()
	assert.Equal(t, []string{unit.KindUnitAttacked}, kinds(recs))
	assert.Equal(t, aggregate.ID(siege), recs[0].AggregateID)

	defender, err := f.units.Load(ctx, aggregate.ID(scout))
	require.NoError(t, err)
	assert.Equal(t, 41, defender.State.Health.Current)
	assert.Equal(t, uint64(2), defender.Version, "created, then damaged once")

	attack()
	attack()
	recs = attack()
	assert.Equal(t, []string{unit.KindUnitAttacked, unit.KindUnitDestroyed}, kinds(recs))
	for _, r := range recs {
		assert.Equal(t, aggregate.ID(siege), r.AggregateID)
	}

	defender, err = f.units.Load(ctx, aggregate.ID(scout))
	require.NoError(t, err)
	assert.True(t, defender.State.IsDead)
	assert.Equal(t, uint64(5), defender.Version)
	assert.Equal(t, []domain.Position{domain.Pos(0, 0)}, f.occ.Occupied(gameID))

	_, err = f.d.Dispatch(ctx, dispatch.MoveUnit{UnitID: scout, To: domain.Pos(2, 0), At: t0})
	assert.ErrorIs(t, err, unit.ErrUnitAlreadyDead)
}

func TestKillReachesConsumersOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)

	var (
		mu      sync.Mutex
		onBus   []string
		deaths  atomic.Int32
		damages atomic.Int32
	)
	require.NoError(t, f.bus.Subscribe(ctx, eventbus.Topic(dispatch.UnitAggregate), func(ctx context.Context, d eventbus.Delivery) error {
		mu.Lock()
		defer mu.Unlock()
		onBus = append(onBus, d.Kind)
		return nil
	}))
	d1, err := aggregate.Project[*unit.UnitDestroyed, unit.Unit](ctx, f.units, deathCounter{&deaths})
	require.NoError(t, err)
	defer d1.Drain()
	d2, err := aggregate.Project[*unit.UnitDamaged, unit.Unit](ctx, f.units, damageCounter{&damages})
	require.NoError(t, err)
	defer d2.Drain()

	_, siege, scout := skirmish(t, f)
	for range 4 {
		_, err := f.d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: loadTarget(t, f.units, scout), At: t0})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return damages.Load() == 4 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return deaths.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return deaths.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		unit.KindUnitCreated, unit.KindUnitCreated,
		unit.KindUnitAttacked, unit.KindUnitAttacked, unit.KindUnitAttacked,
		unit.KindUnitAttacked, unit.KindUnitDestroyed,
	}, onBus)
}

type deathCounter struct{ n *atomic.Int32 }

func (c deathCounter) HandleEvent(ctx context.Context, e *unit.UnitDestroyed) error {
	c.n.Add(1)
	return nil
}

type damageCounter struct{ n *atomic.Int32 }

func (c damageCounter) HandleEvent(ctx context.Context, e *unit.UnitDamaged) error {
	c.n.Add(1)
	return nil
}

func TestAttackOnDeadDefenderRejectedBeforeCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, siege, scout := skirmish(t, f)
	fresh := loadTarget(t, f.units, scout)

	for range 4 {
		_, err := f.d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: loadTarget(t, f.units, scout), At: t0})
		require.NoError(t, err)
	}
	attacker, err := f.units.Load(ctx, aggregate.ID(siege))
	require.NoError(t, err)

	// fresh still shows the scout at full health.
	recs, err := f.d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: fresh, At: t0})
	var attackErr *policy.InvalidAttackError
	require.ErrorAs(t, err, &attackErr)
	assert.Equal(t, policy.TargetAlreadyDead, attackErr.Reason)
	assert.Empty(t, recs)

	after, err := f.units.Load(ctx, aggregate.ID(siege))
	require.NoError(t, err)
	assert.Equal(t, attacker.Version, after.Version, "nothing committed on the attacker's log")
}

func TestStaleTargetHealthUsesStoredState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, siege, scout := skirmish(t, f)
	full := loadTarget(t, f.units, scout)

	_, err := f.d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: full, At: t0})
	require.NoError(t, err)
	recs, err := f.d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: full, At: t0})
	require.NoError(t, err)

	hit := recs[0].Body.(*unit.UnitAttacked)
	assert.Equal(t, 22, hit.RemainingHealth)
	assert.Equal(t, 22, loadTarget(t, f.units, scout).Health.Current)
}

// failingDefender fails every mutation of one unit.
type failingDefender struct {
	aggregate.Store[unit.Unit]
	id domain.UnitID
}

func (r *failingDefender) Mutate(ctx context.Context, id aggregate.ID, decide aggregate.Decision[unit.Unit]) ([]*aggregate.Event[unit.Unit], error) {
	if id == aggregate.ID(r.id) {
		return nil, errors.New("defender store unavailable")
	}
	return r.Store.Mutate(ctx, id, decide)
}

func TestRelayFailureKeepsAttackVisible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, siege, scout := skirmish(t, f)

	published := &countingPublisher{}
	units := &failingDefender{Store: f.units, id: scout}
	d := dispatch.New(f.games, units, dispatch.WithPublisher(published))

	recs, err := d.Dispatch(ctx, dispatch.AttackUnit{UnitID: siege, Target: loadTarget(t, f.units, scout), At: t0})
	assert.ErrorIs(t, err, dispatch.ErrRelay)
	assert.NotErrorIs(t, err, dispatch.ErrPublish)
	assert.Equal(t, []string{unit.KindUnitAttacked}, kinds(recs))
	assert.Equal(t, []string{unit.KindUnitAttacked}, published.kinds())

	attacker, err := f.units.Load(ctx, aggregate.ID(siege))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), attacker.Version)
}

type countingPublisher struct {
	mu   sync.Mutex
	recs []eventbus.Record
}

func (p *countingPublisher) Publish(ctx context.Context, recs ...eventbus.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, recs...)
	return nil
}

func (p *countingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return kinds(p.recs)
}

// flakyRepo fails the first conflicts mutations with a version conflict.
type flakyRepo[T any] struct {
	aggregate.Store[T]
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (r *flakyRepo[T]) Mutate(ctx context.Context, id aggregate.ID, decide aggregate.Decision[T]) ([]*aggregate.Event[T], error) {
	r.mu.Lock()
	r.calls++
	conflict := r.conflicts > 0
	if conflict {
		r.conflicts--
	}
	r.mu.Unlock()
	if conflict {
		return nil, fmt.Errorf("mutate save: %w", aggregate.ErrConcurrency)
	}
	return r.Store.Mutate(ctx, id, decide)
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()
	games := &flakyRepo[game.Game]{Store: memstore.NewStore(ctx, game.StoreOptions()...), conflicts: 2}
	units := memstore.NewStore(ctx, unit.StoreOptions()...)
	d := dispatch.New(games, units, dispatch.WithRetryInterval(time.Millisecond, time.Millisecond), dispatch.WithMaxRetries(3))

	recs, err := d.Dispatch(ctx, dispatch.CreateGame{GameID: domain.NewGameID(), PlayerID: domain.NewPlayerID(), Name: "x", CreatedAt: t0})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 3, games.calls)

	games.conflicts = 10
	games.calls = 0
	_, err = d.Dispatch(ctx, dispatch.CreateGame{GameID: domain.NewGameID(), PlayerID: domain.NewPlayerID(), Name: "y", CreatedAt: t0})
	assert.ErrorIs(t, err, aggregate.ErrConcurrency)
	assert.Equal(t, 4, games.calls)
}

func TestDomainErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	games := &flakyRepo[game.Game]{Store: memstore.NewStore(ctx, game.StoreOptions()...)}
	d := dispatch.New(games, memstore.NewStore(ctx, unit.StoreOptions()...))

	_, err := d.Dispatch(ctx, dispatch.StartGame{GameID: domain.NewGameID(), At: t0})
	assert.ErrorIs(t, err, aggregate.ErrAggregateNotExists)
	assert.Equal(t, 1, games.calls)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, recs ...eventbus.Record) error {
	return errors.New("broker down")
}

func TestPublishFailureKeepsCommit(t *testing.T) {
	ctx := context.Background()
	games := memstore.NewStore(ctx, game.StoreOptions()...)
	d := dispatch.New(games, memstore.NewStore(ctx, unit.StoreOptions()...), dispatch.WithPublisher(failingPublisher{}))
	gameID := domain.NewGameID()

	recs, err := d.Dispatch(ctx, dispatch.CreateGame{GameID: gameID, PlayerID: domain.NewPlayerID(), Name: "x", CreatedAt: t0})
	assert.ErrorIs(t, err, dispatch.ErrPublish)
	assert.Len(t, recs, 1)

	g, err := games.Load(ctx, aggregate.ID(gameID))
	require.NoError(t, err)
	assert.True(t, g.Exists())
}
