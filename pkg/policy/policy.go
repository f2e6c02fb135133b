// Package policy holds the stateless rules shared by unit commands.
// Policies never see aggregate internals, only the values a command carries.
package policy

import (
	"slices"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

// AttackRange is the Manhattan distance at which a unit can attack.
const AttackRange = 1

func occupied(pos domain.Position, existing []domain.Position) bool {
	return slices.Contains(existing, pos)
}

// Creation decides where new units may be placed.
type Creation struct{}

func (Creation) Validate(pos domain.Position, terrain domain.Terrain, existing []domain.Position) error {
	if !terrain.Passable() {
		return invalidTerrain(pos)
	}
	if occupied(pos, existing) {
		return positionOccupied(pos)
	}
	return nil
}

// Movement decides whether a unit may move between two cells.
type Movement struct{}

func (Movement) Validate(unitType domain.UnitType, from, to domain.Position, existing []domain.Position) error {
	maxRange := unitType.MovementRange()
	if from.Distance(to) > maxRange {
		return tooFar(from, to, maxRange)
	}
	if occupied(to, existing) {
		return positionOccupied(to)
	}
	return nil
}

// Combatant is what the combat rules need to know about one side of an attack.
type Combatant struct {
	UnitID   domain.UnitID
	OwnerID  domain.PlayerID
	Type     domain.UnitType
	Position domain.Position
	Health   domain.Health
}

// Combat validates attacks and computes damage.
type Combat struct{}

// Validate checks, in order: self attack, friendly fire, dead target, range.
func (Combat) Validate(attacker, target Combatant) error {
	switch {
	case attacker.UnitID == target.UnitID:
		return &InvalidAttackError{Reason: CannotAttackSelf}
	case attacker.OwnerID == target.OwnerID:
		return &InvalidAttackError{Reason: CannotAttackFriendly}
	case target.Health.IsDead():
		return &InvalidAttackError{Reason: TargetAlreadyDead}
	case attacker.Position.Distance(target.Position) > AttackRange:
		return &InvalidAttackError{Reason: TargetTooFar, AttackerPos: attacker.Position, TargetPos: target.Position}
	}
	return nil
}

// Damage is the attacker's power minus the defender's defense, never below one.
func (Combat) Damage(attacker, defender domain.UnitType) int {
	return max(1, attacker.AttackPower()-defender.DefensePower())
}
