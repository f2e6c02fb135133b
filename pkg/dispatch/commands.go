package dispatch

import (
	"time"

	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

// Command is one of the command types declared in this package.
type Command interface {
	commandName() string
}

type CreateGame struct {
	GameID    domain.GameID
	PlayerID  domain.PlayerID
	Name      string
	CreatedAt time.Time
}

type JoinGame struct {
	GameID   domain.GameID
	PlayerID domain.PlayerID
	At       time.Time
}

type StartGame struct {
	GameID domain.GameID
	At     time.Time
}

type EndTurn struct {
	GameID   domain.GameID
	PlayerID domain.PlayerID
	At       time.Time
}

type CreateUnit struct {
	UnitID   domain.UnitID
	OwnerID  domain.PlayerID
	GameID   domain.GameID
	Type     domain.UnitType
	Position domain.Position
	// Terrain of the cell at Position.
	Terrain       domain.Terrain
	ExistingUnits []domain.Position
	CreatedAt     time.Time
}

type MoveUnit struct {
	UnitID        domain.UnitID
	To            domain.Position
	ExistingUnits []domain.Position
	At            time.Time
}

type AttackUnit struct {
	UnitID domain.UnitID
	Target unit.Target
	At     time.Time
}

func (CreateGame) commandName() string { return "CreateGame" }
func (JoinGame) commandName() string   { return "JoinGame" }
func (StartGame) commandName() string  { return "StartGame" }
func (EndTurn) commandName() string    { return "EndTurn" }
func (CreateUnit) commandName() string { return "CreateUnit" }
func (MoveUnit) commandName() string   { return "MoveUnit" }
func (AttackUnit) commandName() string { return "AttackUnit" }
