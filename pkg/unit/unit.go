// Package unit implements the military unit aggregate: placement, movement and combat.
package unit

import (
	"time"

	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/policy"
)

// Unit is the state of one unit rebuilt from its events.
// A destroyed unit keeps its record with IsDead set.
type Unit struct {
	ID        domain.UnitID   `json:"id"`
	OwnerID   domain.PlayerID `json:"owner_id"`
	GameID    domain.GameID   `json:"game_id"`
	Type      domain.UnitType `json:"type"`
	Position  domain.Position `json:"position"`
	Health    domain.Health   `json:"health"`
	IsDead    bool            `json:"is_dead"`
	CreatedAt time.Time       `json:"created_at"`
}

func (u *Unit) Exists() bool {
	return !u.ID.IsZero()
}

// Combatant describes u for the combat rules.
func (u *Unit) Combatant() policy.Combatant {
	return policy.Combatant{
		UnitID:   u.ID,
		OwnerID:  u.OwnerID,
		Type:     u.Type,
		Position: u.Position,
		Health:   u.Health,
	}
}

// Target is the caller's snapshot of the unit being attacked.
type Target struct {
	UnitID   domain.UnitID   `json:"unit_id"`
	OwnerID  domain.PlayerID `json:"owner_id"`
	Position domain.Position `json:"position"`
	Type     domain.UnitType `json:"type"`
	Health   domain.Health   `json:"health"`
}

// TargetOf builds an attack target from a rebuilt unit.
func TargetOf(u *Unit) Target {
	return Target{
		UnitID:   u.ID,
		OwnerID:  u.OwnerID,
		Position: u.Position,
		Type:     u.Type,
		Health:   u.Health,
	}
}

func (t Target) combatant() policy.Combatant {
	return policy.Combatant{
		UnitID:   t.UnitID,
		OwnerID:  t.OwnerID,
		Type:     t.Type,
		Position: t.Position,
		Health:   t.Health,
	}
}
