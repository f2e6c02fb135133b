package policy

import (
	"errors"
	"fmt"

	"github.com/alekseev-bro/warcore/pkg/domain"
)

var (
	// ErrInvalidMovement matches every *InvalidMovementError.
	ErrInvalidMovement = errors.New("invalid movement")
	// ErrInvalidAttack matches every *InvalidAttackError.
	ErrInvalidAttack = errors.New("invalid attack")
)

type MovementReason uint8

const (
	TooFar MovementReason = iota + 1
	PositionOccupied
	InvalidTerrain
)

func (r MovementReason) String() string {
	switch r {
	case TooFar:
		return "too far"
	case PositionOccupied:
		return "position occupied"
	case InvalidTerrain:
		return "invalid terrain"
	}
	return "unknown"
}

type InvalidMovementError struct {
	Reason MovementReason
	// From and MaxRange are set for TooFar only.
	From     domain.Position
	To       domain.Position
	MaxRange int
}

func (e *InvalidMovementError) Error() string {
	switch e.Reason {
	case TooFar:
		return fmt.Sprintf("invalid movement: %s to %s exceeds range %d", e.From, e.To, e.MaxRange)
	default:
		return fmt.Sprintf("invalid movement: %s at %s", e.Reason, e.To)
	}
}

func (e *InvalidMovementError) Is(target error) bool {
	return target == ErrInvalidMovement
}

func tooFar(from, to domain.Position, maxRange int) error {
	return &InvalidMovementError{Reason: TooFar, From: from, To: to, MaxRange: maxRange}
}

func positionOccupied(pos domain.Position) error {
	return &InvalidMovementError{Reason: PositionOccupied, To: pos}
}

func invalidTerrain(pos domain.Position) error {
	return &InvalidMovementError{Reason: InvalidTerrain, To: pos}
}

type AttackReason uint8

const (
	CannotAttackSelf AttackReason = iota + 1
	CannotAttackFriendly
	TargetAlreadyDead
	TargetTooFar
)

func (r AttackReason) String() string {
	switch r {
	case CannotAttackSelf:
		return "cannot attack self"
	case CannotAttackFriendly:
		return "cannot attack friendly unit"
	case TargetAlreadyDead:
		return "target already dead"
	case TargetTooFar:
		return "target too far"
	}
	return "unknown"
}

type InvalidAttackError struct {
	Reason AttackReason
	// Positions are set for TargetTooFar only.
	AttackerPos domain.Position
	TargetPos   domain.Position
}

func (e *InvalidAttackError) Error() string {
	if e.Reason == TargetTooFar {
		return fmt.Sprintf("invalid attack: target at %s is out of range from %s", e.TargetPos, e.AttackerPos)
	}
	return "invalid attack: " + e.Reason.String()
}

func (e *InvalidAttackError) Is(target error) bool {
	return target == ErrInvalidAttack
}
