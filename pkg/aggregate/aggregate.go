package aggregate

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Aggregate is the rebuilt state of one aggregate instance.
type Aggregate[T any] struct {
	ID ID
	// Version is the number of events applied to State.
	Version uint64
	// Sequence is the stream position of the last applied event, used for optimistic appends.
	Sequence   uint64
	SnapshotAt time.Time
	State      T

	snapVersion uint64
}

// Exists reports whether at least one event was applied.
func (a *Aggregate[T]) Exists() bool {
	return a != nil && a.Version > 0
}

func (a *Aggregate[T]) String() string {
	return fmt.Sprintf("%s(%s)@%d", reflect.TypeFor[T]().Name(), a.ID, a.Version)
}

// NameFromType returns the aggregate name and bounded context name from the type T.
func NameFromType[T any]() (aname string, bctx string) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		panic("T must be a struct")
	}

	aname = t.Name()
	sep := strings.Split(t.PkgPath(), "/")
	bctx = sep[len(sep)-1]
	return
}
