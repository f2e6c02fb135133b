// Package dispatch routes commands to the game and unit aggregates.
//
// Every command is decided against a freshly rebuilt aggregate and appended
// with an expected version. A version conflict reloads the aggregate and runs
// the decision again, up to a bounded number of attempts.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/eventbus"
	"github.com/alekseev-bro/warcore/pkg/game"
	"github.com/alekseev-bro/warcore/pkg/policy"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

// Aggregate names used on published records.
const (
	GameAggregate = "game"
	UnitAggregate = "unit"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	// ErrPublish means the events were committed but could not be forwarded.
	ErrPublish = errors.New("publish committed events")
	// ErrRelay means an attack was committed but the defender's
	// log could not record the hit.
	ErrRelay = errors.New("relay attack to defender")
)

// Repository is the part of an aggregate store the dispatcher needs.
type Repository[T any] interface {
	aggregate.Mutator[T]
	aggregate.Loader[T]
}

// Publisher receives the records of every successful command.
type Publisher interface {
	Publish(ctx context.Context, recs ...eventbus.Record) error
}

type Dispatcher struct {
	games Repository[game.Game]
	units Repository[unit.Unit]

	creation policy.Creation
	movement policy.Movement
	combat   policy.Combat

	pub       Publisher
	occupancy Occupancy

	maxRetries      uint
	initialInterval time.Duration
	maxInterval     time.Duration

	// Unit placement in one game and attacks on one defender are serialized
	// within this process. Keys are domain.GameID or domain.UnitID.
	locks sync.Map
}

func New(games Repository[game.Game], units Repository[unit.Unit], opts ...Option) *Dispatcher {
	d := &Dispatcher{
		games:           games,
		units:           units,
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes cmd and returns the records of the committed events.
// Domain rejections come back as *aggregate.InvariantViolationError wrapping
// the rule's error. Once a command is committed its records are always
// returned; a failure after the commit comes with them, wrapping ErrPublish
// or ErrRelay.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) ([]eventbus.Record, error) {
	var (
		recs []eventbus.Record
		err  error
	)
	switch c := cmd.(type) {
	case CreateGame:
		recs, err = d.createGame(ctx, c)
	case JoinGame:
		recs, err = d.joinGame(ctx, c)
	case StartGame:
		recs, err = d.startGame(ctx, c)
	case EndTurn:
		recs, err = d.endTurn(ctx, c)
	case CreateUnit:
		recs, err = d.createUnit(ctx, c)
	case MoveUnit:
		recs, err = d.moveUnit(ctx, c)
	case AttackUnit:
		recs, err = d.attackUnit(ctx, c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	if err != nil {
		slog.Debug("command failed", "command", cmd.commandName(), "error", err)
		return recs, fmt.Errorf("%s: %w", cmd.commandName(), err)
	}
	slog.Info("command executed", "command", cmd.commandName(), "events", len(recs))
	return recs, nil
}

func (d *Dispatcher) createGame(ctx context.Context, c CreateGame) ([]eventbus.Record, error) {
	return dispatchGame(ctx, d, c.GameID, func(g *game.Game) (aggregate.Events[game.Game], error) {
		return g.Create(c.GameID, c.Name, c.PlayerID, c.CreatedAt)
	})
}

func (d *Dispatcher) joinGame(ctx context.Context, c JoinGame) ([]eventbus.Record, error) {
	return dispatchGame(ctx, d, c.GameID, func(g *game.Game) (aggregate.Events[game.Game], error) {
		return g.Join(c.PlayerID, c.At)
	})
}

func (d *Dispatcher) startGame(ctx context.Context, c StartGame) ([]eventbus.Record, error) {
	return dispatchGame(ctx, d, c.GameID, func(g *game.Game) (aggregate.Events[game.Game], error) {
		return g.Start(c.At)
	})
}

func (d *Dispatcher) endTurn(ctx context.Context, c EndTurn) ([]eventbus.Record, error) {
	return dispatchGame(ctx, d, c.GameID, func(g *game.Game) (aggregate.Events[game.Game], error) {
		return g.EndTurn(c.PlayerID, c.At)
	})
}

func dispatchGame(ctx context.Context, d *Dispatcher, id domain.GameID, decide aggregate.Decision[game.Game]) ([]eventbus.Record, error) {
	events, err := mutate(ctx, d, d.games, aggregate.ID(id), decide)
	if err != nil {
		return nil, err
	}
	return d.publish(ctx, records(GameAggregate, events))
}

func (d *Dispatcher) createUnit(ctx context.Context, c CreateUnit) ([]eventbus.Record, error) {
	unlock := d.lock(c.GameID)
	defer unlock()

	existing := d.occupied(c.GameID, c.ExistingUnits, nil)
	events, err := mutate(ctx, d, d.units, aggregate.ID(c.UnitID), func(u *unit.Unit) (aggregate.Events[unit.Unit], error) {
		return u.Create(c.UnitID, c.OwnerID, c.GameID, c.Type, c.Position, c.CreatedAt, d.creation, c.Terrain, existing)
	})
	if err != nil {
		return nil, err
	}
	return d.publish(ctx, records(UnitAggregate, events))
}

func (d *Dispatcher) moveUnit(ctx context.Context, c MoveUnit) ([]eventbus.Record, error) {
	current, err := d.units.Load(ctx, aggregate.ID(c.UnitID))
	switch {
	case err == nil:
		unlock := d.lock(current.State.GameID)
		defer unlock()
	case errors.Is(err, aggregate.ErrAggregateNotExists):
		// The decision rejects it below.
	default:
		return nil, err
	}

	events, err := mutate(ctx, d, d.units, aggregate.ID(c.UnitID), func(u *unit.Unit) (aggregate.Events[unit.Unit], error) {
		self := u.Position
		return u.Move(c.To, d.occupied(u.GameID, c.ExistingUnits, &self), c.At, d.movement)
	})
	if err != nil {
		return nil, err
	}
	return d.publish(ctx, records(UnitAggregate, events))
}

// attackUnit decides against the defender's stored state when it has one, so a
// stale snapshot cannot hit a dead unit or compute damage from old health.
// The caller's snapshot is used only for a defender this store does not know.
func (d *Dispatcher) attackUnit(ctx context.Context, c AttackUnit) ([]eventbus.Record, error) {
	unlock := d.lock(c.Target.UnitID)
	defer unlock()

	target := c.Target
	defender, err := d.units.Load(ctx, aggregate.ID(c.Target.UnitID))
	switch {
	case err == nil:
		target = unit.TargetOf(&defender.State)
	case errors.Is(err, aggregate.ErrAggregateNotExists):
	default:
		return nil, err
	}

	events, err := mutate(ctx, d, d.units, aggregate.ID(c.UnitID), func(u *unit.Unit) (aggregate.Events[unit.Unit], error) {
		return u.Attack(target, c.At, d.combat)
	})
	if err != nil {
		return nil, err
	}

	var relayErr error
	for _, ev := range events {
		if hit, ok := ev.Body.(*unit.UnitAttacked); ok {
			relayErr = errors.Join(relayErr, d.relayAttack(ctx, ev.ID, *hit))
		}
	}
	recs, err := d.publish(ctx, records(UnitAggregate, events))
	return recs, errors.Join(err, relayErr)
}

// relayAttack records the hit on the defender's own log as UnitDamaged. The
// key derived from the attacker's event makes a repeated relay a no-op.
func (d *Dispatcher) relayAttack(ctx context.Context, attackID aggregate.ID, hit unit.UnitAttacked) error {
	ctx = aggregate.ContextWithIdempotancyKey(ctx, "relay-"+attackID.String())
	_, err := mutate(ctx, d, d.units, aggregate.ID(hit.DefenderUnitID), func(u *unit.Unit) (aggregate.Events[unit.Unit], error) {
		return u.AbsorbAttack(attackID, hit)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unit.ErrUnitAlreadyDead), errors.Is(err, aggregate.ErrAggregateNotExists):
		slog.Warn("attack not relayed to defender", "defender", hit.DefenderUnitID.String(), "attacker", hit.AttackerUnitID.String(), "reason", err)
		return nil
	default:
		slog.Error("attack committed but not relayed", "attack_id", attackID.String(), "defender", hit.DefenderUnitID.String(), "error", err)
		return fmt.Errorf("%w %s: %w", ErrRelay, attackID, err)
	}
}

func mutate[T any](ctx context.Context, d *Dispatcher, repo aggregate.Mutator[T], id aggregate.ID, decide aggregate.Decision[T]) ([]*aggregate.Event[T], error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.initialInterval
	bo.MaxInterval = d.maxInterval

	return backoff.Retry(ctx, func() ([]*aggregate.Event[T], error) {
		events, err := repo.Mutate(ctx, id, decide)
		if err != nil && !errors.Is(err, aggregate.ErrConcurrency) {
			return nil, backoff.Permanent(err)
		}
		return events, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(d.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("version conflict, retrying", "aggregateID", id.String(), "next", next)
		}),
	)
}

func (d *Dispatcher) publish(ctx context.Context, recs []eventbus.Record) ([]eventbus.Record, error) {
	if d.pub == nil || len(recs) == 0 {
		return recs, nil
	}
	if err := d.pub.Publish(ctx, recs...); err != nil {
		slog.Error("events committed but not published", "error", err, "events", len(recs))
		return recs, fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return recs, nil
}

func records[T any](name string, events []*aggregate.Event[T]) []eventbus.Record {
	recs := make([]eventbus.Record, 0, len(events))
	for _, ev := range events {
		recs = append(recs, eventbus.Record{
			Aggregate:   name,
			AggregateID: ev.AggregateID,
			Kind:        ev.Kind,
			Version:     ev.Version,
			Body:        ev.Body,
		})
	}
	return recs
}

func (d *Dispatcher) lock(key any) func() {
	m, _ := d.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// occupied merges the caller's snapshot with the cells the occupancy index
// knows for the game. self, when set, is left out of the index cells.
func (d *Dispatcher) occupied(gameID domain.GameID, given []domain.Position, self *domain.Position) []domain.Position {
	if d.occupancy == nil {
		return given
	}
	out := slices.Clone(given)
	for _, pos := range d.occupancy.Occupied(gameID) {
		if self != nil && pos == *self {
			continue
		}
		if !slices.Contains(out, pos) {
			out = append(out, pos)
		}
	}
	return out
}
