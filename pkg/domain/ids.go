package domain

import "github.com/alekseev-bro/warcore/pkg/aggregate"

// GameID identifies a match.
type GameID aggregate.ID

// PlayerID identifies a player across matches.
type PlayerID aggregate.ID

// UnitID identifies a military unit.
type UnitID aggregate.ID

func NewGameID() GameID     { return GameID(aggregate.NewID()) }
func NewPlayerID() PlayerID { return PlayerID(aggregate.NewID()) }
func NewUnitID() UnitID     { return UnitID(aggregate.NewID()) }

func (id GameID) String() string   { return aggregate.ID(id).String() }
func (id PlayerID) String() string { return aggregate.ID(id).String() }
func (id UnitID) String() string   { return aggregate.ID(id).String() }

func (id GameID) IsZero() bool   { return aggregate.ID(id).IsZero() }
func (id PlayerID) IsZero() bool { return aggregate.ID(id).IsZero() }
func (id UnitID) IsZero() bool   { return aggregate.ID(id).IsZero() }

func (id GameID) MarshalText() ([]byte, error)   { return aggregate.ID(id).MarshalText() }
func (id PlayerID) MarshalText() ([]byte, error) { return aggregate.ID(id).MarshalText() }
func (id UnitID) MarshalText() ([]byte, error)   { return aggregate.ID(id).MarshalText() }

func (id *GameID) UnmarshalText(b []byte) error   { return (*aggregate.ID)(id).UnmarshalText(b) }
func (id *PlayerID) UnmarshalText(b []byte) error { return (*aggregate.ID)(id).UnmarshalText(b) }
func (id *UnitID) UnmarshalText(b []byte) error   { return (*aggregate.ID)(id).UnmarshalText(b) }

// ParseGameID parses the canonical UUID form.
func ParseGameID(s string) (GameID, error) {
	id, err := aggregate.ParseID(s)
	return GameID(id), err
}

func ParsePlayerID(s string) (PlayerID, error) {
	id, err := aggregate.ParseID(s)
	return PlayerID(id), err
}

func ParseUnitID(s string) (UnitID, error) {
	id, err := aggregate.ParseID(s)
	return UnitID(id), err
}
