package game

import (
	"slices"
	"time"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

// GameCreated opens a match with its creator as the first player.
type GameCreated struct {
	GameID    domain.GameID   `json:"game_id"`
	PlayerID  domain.PlayerID `json:"player_id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
}

func (e *GameCreated) Evolve(g *Game) {
	*g = Game{
		ID:           e.GameID,
		Name:         e.Name,
		Status:       WaitingForPlayers,
		Players:      []domain.PlayerID{e.PlayerID},
		ActivePlayer: e.PlayerID,
		CreatedAt:    e.CreatedAt,
	}
}

type PlayerJoined struct {
	GameID   domain.GameID   `json:"game_id"`
	PlayerID domain.PlayerID `json:"player_id"`
}

func (e *PlayerJoined) Evolve(g *Game) {
	g.Players = append(slices.Clip(g.Players), e.PlayerID)
}

type GameStarted struct {
	GameID    domain.GameID `json:"game_id"`
	StartedAt time.Time     `json:"started_at"`
}

func (e *GameStarted) Evolve(g *Game) {
	at := e.StartedAt
	g.Status = InProgress
	g.CurrentTurn = 1
	if len(g.Players) > 0 {
		g.ActivePlayer = g.Players[0]
	}
	g.StartedAt = &at
	g.CurrentTurnAt = &at
}

type PlayerEndedTurn struct {
	GameID   domain.GameID   `json:"game_id"`
	PlayerID domain.PlayerID `json:"player_id"`
	EndedAt  time.Time       `json:"ended_at"`
}

func (e *PlayerEndedTurn) Evolve(g *Game) {
	next, wraps := g.nextPlayer()
	if wraps {
		g.CurrentTurn++
	}
	at := e.EndedAt
	g.ActivePlayer = next
	g.CurrentTurnAt = &at
}

// nextPlayer returns the player after the active one and whether the rotation wraps
// to the first player. It panics if the active player is not seated.
func (g *Game) nextPlayer() (domain.PlayerID, bool) {
	i := slices.Index(g.Players, g.ActivePlayer)
	if i < 0 {
		panic(&CorruptedStateError{GameID: g.ID, Reason: "active player " + g.ActivePlayer.String() + " is not in the player list"})
	}
	n := len(g.Players)
	return g.Players[(i+1)%n], i == n-1
}
