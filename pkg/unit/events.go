package unit

import (
	"time"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/domain"
)

type UnitCreated struct {
	UnitID        domain.UnitID   `json:"unit_id"`
	OwnerID       domain.PlayerID `json:"owner_id"`
	GameID        domain.GameID   `json:"game_id"`
	Type          domain.UnitType `json:"type"`
	X             int             `json:"x"`
	Y             int             `json:"y"`
	CurrentHealth int             `json:"current_health"`
	MaxHealth     int             `json:"max_health"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (e *UnitCreated) Evolve(u *Unit) {
	*u = Unit{
		ID:        e.UnitID,
		OwnerID:   e.OwnerID,
		GameID:    e.GameID,
		Type:      e.Type,
		Position:  domain.Pos(e.X, e.Y),
		Health:    domain.Health{Current: e.CurrentHealth, Maximum: e.MaxHealth},
		IsDead:    e.CurrentHealth == 0,
		CreatedAt: e.CreatedAt,
	}
}

type UnitMoved struct {
	UnitID  domain.UnitID `json:"unit_id"`
	FromX   int           `json:"from_x"`
	FromY   int           `json:"from_y"`
	ToX     int           `json:"to_x"`
	ToY     int           `json:"to_y"`
	MovedAt time.Time     `json:"moved_at"`
}

func (e *UnitMoved) From() domain.Position { return domain.Pos(e.FromX, e.FromY) }
func (e *UnitMoved) To() domain.Position   { return domain.Pos(e.ToX, e.ToY) }

func (e *UnitMoved) Evolve(u *Unit) {
	u.Position = e.To()
}

type UnitAttacked struct {
	AttackerUnitID  domain.UnitID `json:"attacker_unit_id"`
	DefenderUnitID  domain.UnitID `json:"defender_unit_id"`
	Damage          int           `json:"damage"`
	RemainingHealth int           `json:"remaining_health"`
	WasDestroyed    bool          `json:"was_destroyed"`
	AttackedAt      time.Time     `json:"attacked_at"`
}

// Evolve only touches the defender; the attacker's log carries the same event.
func (e *UnitAttacked) Evolve(u *Unit) {
	if e.DefenderUnitID != u.ID {
		return
	}
	u.Health.Current = min(max(e.RemainingHealth, 0), u.Health.Maximum)
}

type UnitDestroyed struct {
	UnitID      domain.UnitID `json:"unit_id"`
	DestroyedAt time.Time     `json:"destroyed_at"`
}

func (e *UnitDestroyed) Evolve(u *Unit) {
	if e.UnitID != u.ID {
		return
	}
	u.IsDead = true
	u.Health.Current = 0
}

// UnitDamaged is the defender's record of a hit committed on the attacker's log.
// AttackID is the ID of that UnitAttacked event; consumers counting hits or
// kills read UnitAttacked and UnitDestroyed, never this one.
type UnitDamaged struct {
	AttackID        aggregate.ID  `json:"attack_id"`
	AttackerUnitID  domain.UnitID `json:"attacker_unit_id"`
	DefenderUnitID  domain.UnitID `json:"defender_unit_id"`
	Damage          int           `json:"damage"`
	RemainingHealth int           `json:"remaining_health"`
	Destroyed       bool          `json:"destroyed"`
	DamagedAt       time.Time     `json:"damaged_at"`
}

func (e *UnitDamaged) Evolve(u *Unit) {
	if e.DefenderUnitID != u.ID {
		return
	}
	u.Health.Current = min(max(e.RemainingHealth, 0), u.Health.Maximum)
	if e.Destroyed {
		u.IsDead = true
		u.Health.Current = 0
	}
}
