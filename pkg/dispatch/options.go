package dispatch

import (
	"time"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

const (
	defaultMaxRetries      uint          = 5
	defaultInitialInterval time.Duration = 10 * time.Millisecond
	defaultMaxInterval     time.Duration = 500 * time.Millisecond
)

// Occupancy reports the cells currently held by live units of a game.
type Occupancy interface {
	Occupied(gameID domain.GameID) []domain.Position
}

type Option func(*Dispatcher)

// WithPublisher forwards committed events to pub after every command.
func WithPublisher(pub Publisher) Option {
	return func(d *Dispatcher) {
		d.pub = pub
	}
}

// WithOccupancy merges the cells known to occ into the occupancy snapshot of
// CreateUnit and MoveUnit commands.
func WithOccupancy(occ Occupancy) Option {
	return func(d *Dispatcher) {
		d.occupancy = occ
	}
}

// WithMaxRetries bounds how many times a command is reloaded and retried after
// a version conflict.
func WithMaxRetries(n uint) Option {
	return func(d *Dispatcher) {
		d.maxRetries = n
	}
}

// WithRetryInterval sets the exponential backoff bounds between retries.
func WithRetryInterval(initial, maxInterval time.Duration) Option {
	return func(d *Dispatcher) {
		d.initialInterval = initial
		d.maxInterval = maxInterval
	}
}
