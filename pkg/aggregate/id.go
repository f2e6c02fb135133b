package aggregate

import (
	"fmt"

	"github.com/google/uuid"
)

func NewID() ID {
	a, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return ID(a)
}

// ParseID parses the canonical string form of an aggregate ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ID(u), nil
}

// ID identifies an aggregate or a stored message. New IDs are time-ordered UUIDv7.
type ID uuid.UUID

func (i ID) IsZero() bool {
	return uuid.UUID(i) == uuid.Nil
}

func (i ID) String() string {
	return uuid.UUID(i).String()
}

func (i ID) UUID() uuid.UUID {
	return uuid.UUID(i)
}

func (id ID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *ID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}
