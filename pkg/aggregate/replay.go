package aggregate

// Replay folds events over the zero state of T.
func Replay[T any](events ...Evolver[T]) T {
	var state T
	for _, ev := range events {
		ev.Evolve(&state)
	}
	return state
}
