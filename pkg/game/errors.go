package game

import (
	"errors"
	"fmt"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

var (
	ErrGameAlreadyStarted  = errors.New("game already started")
	ErrGameNotStarted      = errors.New("game not started")
	ErrPlayerAlreadyJoined = errors.New("player already joined")
	// ErrInsufficientPlayers matches every *InsufficientPlayersError.
	ErrInsufficientPlayers = errors.New("insufficient players")
	// ErrGameFull matches every *GameFullError.
	ErrGameFull = errors.New("game full")
	// ErrNotPlayerTurn matches every *NotPlayerTurnError.
	ErrNotPlayerTurn = errors.New("not player turn")
)

type InsufficientPlayersError struct {
	Required int
	Actual   int
}

func (e *InsufficientPlayersError) Error() string {
	return fmt.Sprintf("insufficient players: need %d, have %d", e.Required, e.Actual)
}

func (e *InsufficientPlayersError) Is(target error) bool { return target == ErrInsufficientPlayers }

type GameFullError struct {
	Max int
}

func (e *GameFullError) Error() string {
	return fmt.Sprintf("game full: at most %d players", e.Max)
}

func (e *GameFullError) Is(target error) bool { return target == ErrGameFull }

type NotPlayerTurnError struct {
	Expected domain.PlayerID
	Actual   domain.PlayerID
}

func (e *NotPlayerTurnError) Error() string {
	return fmt.Sprintf("not player turn: expected %s, got %s", e.Expected, e.Actual)
}

func (e *NotPlayerTurnError) Is(target error) bool { return target == ErrNotPlayerTurn }

// CorruptedStateError is raised as a panic value when the replayed state breaks an
// invariant that no command can break. It always means a bug in event application.
type CorruptedStateError struct {
	GameID domain.GameID
	Reason string
}

func (e *CorruptedStateError) Error() string {
	return fmt.Sprintf("game %s: corrupted state: %s", e.GameID, e.Reason)
}
