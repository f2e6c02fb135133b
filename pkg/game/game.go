// Package game implements the match aggregate: lobby, start and turn rotation.
package game

import (
	"slices"
	"time"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

type Status uint8

const (
	WaitingForPlayers Status = iota
	InProgress
)

func (s Status) String() string {
	switch s {
	case WaitingForPlayers:
		return "WaitingForPlayers"
	case InProgress:
		return "InProgress"
	}
	return "Unknown"
}

// Game is the state of a match rebuilt from its events.
// Players are kept in join order, which is also the turn order.
type Game struct {
	ID            domain.GameID     `json:"id"`
	Name          string            `json:"name"`
	Status        Status            `json:"status"`
	Players       []domain.PlayerID `json:"players"`
	CurrentTurn   int               `json:"current_turn"`
	ActivePlayer  domain.PlayerID   `json:"active_player"`
	CreatedAt     time.Time         `json:"created_at"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	CurrentTurnAt *time.Time        `json:"current_turn_at,omitempty"`
}

func (g *Game) Exists() bool {
	return !g.ID.IsZero()
}

func (g *Game) Started() bool {
	return g.Status == InProgress
}

func (g *Game) HasPlayer(id domain.PlayerID) bool {
	return slices.Contains(g.Players, id)
}

// IsPlayerTurn reports whether id may act now.
func (g *Game) IsPlayerTurn(id domain.PlayerID) bool {
	return g.Started() && g.ActivePlayer == id
}
