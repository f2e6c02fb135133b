package game

import "github.com/alekseev-bro/warcore/pkg/aggregate"

// Event kind names as written to the event log.
const (
	KindGameCreated     = "GameCreated"
	KindPlayerJoined    = "PlayerJoined"
	KindGameStarted     = "GameStarted"
	KindPlayerEndedTurn = "PlayerEndedTurn"
)

// StoreOptions registers the game events with an aggregate store.
func StoreOptions() []aggregate.StoreOption[Game] {
	return []aggregate.StoreOption[Game]{
		aggregate.WithEvent[GameCreated, Game](KindGameCreated),
		aggregate.WithEvent[PlayerJoined, Game](KindPlayerJoined),
		aggregate.WithEvent[GameStarted, Game](KindGameStarted),
		aggregate.WithEvent[PlayerEndedTurn, Game](KindPlayerEndedTurn),
	}
}
