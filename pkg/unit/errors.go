package unit

import (
	"errors"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

// ErrUnitAlreadyDead is returned for any command addressed to a destroyed unit.
var ErrUnitAlreadyDead = errors.New("unit already dead")

type UnknownTypeError struct {
	Type domain.UnitType
}

func (e *UnknownTypeError) Error() string {
	return "unknown unit type " + e.Type.String()
}
