package game

import (
	"time"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/domain"
)

// Create opens a new match owned by creator.
func (g *Game) Create(id domain.GameID, name string, creator domain.PlayerID, ts time.Time) (aggregate.Events[Game], error) {
	if g.Exists() {
		return nil, aggregate.ErrAggregateAlreadyExists
	}
	return aggregate.NewEvents[Game](&GameCreated{
		GameID:    id,
		PlayerID:  creator,
		Name:      name,
		CreatedAt: ts,
	}), nil
}

// Join seats player at the end of the turn order.
func (g *Game) Join(player domain.PlayerID, ts time.Time) (aggregate.Events[Game], error) {
	if !g.Exists() {
		return nil, aggregate.ErrAggregateNotExists
	}
	if g.Started() {
		return nil, ErrGameAlreadyStarted
	}
	if g.HasPlayer(player) {
		return nil, ErrPlayerAlreadyJoined
	}
	if len(g.Players) >= MaxPlayers {
		return nil, &GameFullError{Max: MaxPlayers}
	}
	return aggregate.NewEvents[Game](&PlayerJoined{GameID: g.ID, PlayerID: player}), nil
}

// Start moves the match to InProgress. It can happen only once.
func (g *Game) Start(ts time.Time) (aggregate.Events[Game], error) {
	if !g.Exists() {
		return nil, aggregate.ErrAggregateNotExists
	}
	if g.Started() {
		return nil, ErrGameAlreadyStarted
	}
	if len(g.Players) < MinPlayers {
		return nil, &InsufficientPlayersError{Required: MinPlayers, Actual: len(g.Players)}
	}
	return aggregate.NewEvents[Game](&GameStarted{GameID: g.ID, StartedAt: ts}), nil
}

// EndTurn passes the turn to the next player in join order.
func (g *Game) EndTurn(player domain.PlayerID, ts time.Time) (aggregate.Events[Game], error) {
	if !g.Exists() {
		return nil, aggregate.ErrAggregateNotExists
	}
	if !g.Started() {
		return nil, ErrGameNotStarted
	}
	if g.ActivePlayer != player {
		return nil, &NotPlayerTurnError{Expected: g.ActivePlayer, Actual: player}
	}
	// Validate the rotation before emitting; a broken player list panics here.
	g.nextPlayer()
	return aggregate.NewEvents[Game](&PlayerEndedTurn{GameID: g.ID, PlayerID: player, EndedAt: ts}), nil
}
