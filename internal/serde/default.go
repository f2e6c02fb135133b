// Package serde turns registered values of an interface type into bytes and back.
package serde

import (
	"fmt"
	"reflect"

	"github.com/alekseev-bro/warcore/pkg/codec"
)

// Creator builds an empty value for a kind name.
type Creator interface {
	Create(kind string) (any, error)
}

type serder[T any] struct {
	codec codec.Codec
	reg   Creator
}

// NewSerder returns a serializer for values of interface type T.
// Deserialize asks reg for the concrete type registered under the kind.
// It panics if T is not an interface type.
func NewSerder[T any](reg Creator, c codec.Codec) *serder[T] {
	if t := reflect.TypeFor[T](); t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("serde: %v is not an interface", t))
	}
	return &serder[T]{codec: c, reg: reg}
}

func (s *serder[T]) Serialize(v T) ([]byte, error) {
	b, err := s.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize %T: %w", v, err)
	}
	return b, nil
}

func (s *serder[T]) Deserialize(kind string, b []byte) (T, error) {
	var zero T
	out, err := s.reg.Create(kind)
	if err != nil {
		return zero, fmt.Errorf("deserialize: %w", err)
	}
	if err := s.codec.Unmarshal(b, out); err != nil {
		return zero, fmt.Errorf("deserialize %s: %w", kind, err)
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("deserialize %s: %T does not implement %v", kind, out, reflect.TypeFor[T]())
	}
	return v, nil
}
