package aggregate

import "errors"

var (
	ErrNoSnapshot             = errors.New("no snapshot")
	ErrNoAggregate            = errors.New("no aggregate messages")
	ErrAggregateNotExists     = errors.New("aggregate is not created yet")
	ErrAggregateAlreadyExists = errors.New("aggregate already exists")
	ErrUnknownEventKind       = errors.New("unknown event kind")
	// ErrConcurrency is returned by Save when the stored sequence differs from the expected one.
	ErrConcurrency = errors.New("optimistic concurrency conflict")
)

// InvariantViolationError wraps a domain rejection returned by a decision.
type InvariantViolationError struct {
	Err error
}

func (e *InvariantViolationError) Error() string {
	return e.Err.Error()
}

func (e *InvariantViolationError) Unwrap() error {
	return e.Err
}
