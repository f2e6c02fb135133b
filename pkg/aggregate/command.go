package aggregate

// Decision validates a command against the current state and returns the events
// the command produces. It must not mutate state and must not perform I/O.
// A non-nil error means no events are appended.
type Decision[T any] func(state *T) (Events[T], error)
