package unit

import (
	"fmt"
	"time"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/policy"
)

type CreationPolicy interface {
	Validate(pos domain.Position, terrain domain.Terrain, existing []domain.Position) error
}

type MovementPolicy interface {
	Validate(unitType domain.UnitType, from, to domain.Position, existing []domain.Position) error
}

type CombatPolicy interface {
	Validate(attacker, target policy.Combatant) error
	Damage(attacker, defender domain.UnitType) int
}

// Create places a new unit with full health.
func (u *Unit) Create(
	id domain.UnitID,
	owner domain.PlayerID,
	gameID domain.GameID,
	unitType domain.UnitType,
	pos domain.Position,
	ts time.Time,
	creation CreationPolicy,
	terrain domain.Terrain,
	existing []domain.Position,
) (aggregate.Events[Unit], error) {
	if u.IsDead {
		return nil, ErrUnitAlreadyDead
	}
	if u.Exists() {
		return nil, aggregate.ErrAggregateAlreadyExists
	}
	stats, ok := unitType.Stats()
	if !ok {
		return nil, &UnknownTypeError{Type: unitType}
	}
	if err := creation.Validate(pos, terrain, existing); err != nil {
		return nil, err
	}
	health := domain.FullHealth(stats.MaxHealth)
	return aggregate.NewEvents[Unit](&UnitCreated{
		UnitID:        id,
		OwnerID:       owner,
		GameID:        gameID,
		Type:          unitType,
		X:             pos.X,
		Y:             pos.Y,
		CurrentHealth: health.Current,
		MaxHealth:     health.Maximum,
		CreatedAt:     ts,
	}), nil
}

// Move relocates the unit within its movement range.
func (u *Unit) Move(to domain.Position, existing []domain.Position, ts time.Time, movement MovementPolicy) (aggregate.Events[Unit], error) {
	if u.IsDead {
		return nil, ErrUnitAlreadyDead
	}
	if !u.Exists() {
		return nil, aggregate.ErrAggregateNotExists
	}
	if err := movement.Validate(u.Type, u.Position, to, existing); err != nil {
		return nil, err
	}
	return aggregate.NewEvents[Unit](&UnitMoved{
		UnitID:  u.ID,
		FromX:   u.Position.X,
		FromY:   u.Position.Y,
		ToX:     to.X,
		ToY:     to.Y,
		MovedAt: ts,
	}), nil
}

// Attack strikes target once. The defender's destruction is reported both in
// UnitAttacked and by a following UnitDestroyed.
func (u *Unit) Attack(target Target, ts time.Time, combat CombatPolicy) (aggregate.Events[Unit], error) {
	if u.IsDead {
		return nil, ErrUnitAlreadyDead
	}
	if !u.Exists() {
		return nil, aggregate.ErrAggregateNotExists
	}
	if err := combat.Validate(u.Combatant(), target.combatant()); err != nil {
		return nil, err
	}

	damage := combat.Damage(u.Type, target.Type)
	remaining := target.Health.TakeDamage(damage)
	destroyed := remaining.IsDead()

	events := aggregate.NewEvents[Unit](&UnitAttacked{
		AttackerUnitID:  u.ID,
		DefenderUnitID:  target.UnitID,
		Damage:          damage,
		RemainingHealth: remaining.Current,
		WasDestroyed:    destroyed,
		AttackedAt:      ts,
	})
	if destroyed {
		events = append(events, &UnitDestroyed{UnitID: target.UnitID, DestroyedAt: ts})
	}
	return events, nil
}

// AbsorbAttack records on the defender's own log a hit committed on the
// attacker's log as attackID. It yields a single UnitDamaged, so the hit and
// a kill are reported to consumers only by the attacker's events.
func (u *Unit) AbsorbAttack(attackID aggregate.ID, hit UnitAttacked) (aggregate.Events[Unit], error) {
	if u.IsDead {
		return nil, ErrUnitAlreadyDead
	}
	if !u.Exists() {
		return nil, aggregate.ErrAggregateNotExists
	}
	if hit.DefenderUnitID != u.ID {
		return nil, fmt.Errorf("attack on %s delivered to %s", hit.DefenderUnitID, u.ID)
	}
	return aggregate.NewEvents[Unit](&UnitDamaged{
		AttackID:        attackID,
		AttackerUnitID:  hit.AttackerUnitID,
		DefenderUnitID:  hit.DefenderUnitID,
		Damage:          hit.Damage,
		RemainingHealth: hit.RemainingHealth,
		Destroyed:       hit.WasDestroyed,
		DamagedAt:       hit.AttackedAt,
	}), nil
}
