// Package typereg maps event kind names to Go types and back.
package typereg

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

var ErrUnknownKind = errors.New("unknown kind")

type ctor = func() any

type registry struct {
	mu     sync.RWMutex
	byName map[string]ctor
	byType map[reflect.Type]string
}

func New() *registry {
	return &registry{
		byName: make(map[string]ctor),
		byType: make(map[reflect.Type]string),
	}
}

// Register binds kind to the type produced by c.
// A kind or a type can be registered only once; repeats panic.
func (r *registry) Register(kind string, c ctor) {
	t := reflect.TypeOf(c())

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byType[t]; ok {
		panic(fmt.Sprintf("typereg: %v already registered as %q", t, prev))
	}
	if _, ok := r.byName[kind]; ok {
		panic(fmt.Sprintf("typereg: kind %q already registered", kind))
	}
	r.byType[t] = kind
	r.byName[kind] = c
	slog.Debug("kind registered", "kind", kind, "type", t.String())
}

// Create returns a fresh value of the type registered under kind.
func (r *registry) Create(kind string) (any, error) {
	r.mu.RLock()
	c, ok := r.byName[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("typereg: %w %q", ErrUnknownKind, kind)
	}
	return c(), nil
}

// NameFor returns the kind of v. Pointer and value types are distinct.
func (r *registry) NameFor(v any) (string, error) {
	if v == nil {
		return "", errors.New("typereg: nil value has no kind")
	}
	t := reflect.TypeOf(v)

	r.mu.RLock()
	kind, ok := r.byType[t]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("typereg: %v is not registered", t)
	}
	return kind, nil
}

func (r *registry) Known(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[kind]
	return ok
}

// Kinds lists the registered kinds in lexical order.
func (r *registry) Kinds() []string {
	r.mu.RLock()
	kinds := make([]string, 0, len(r.byName))
	for k := range r.byName {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()
	slices.Sort(kinds)
	return kinds
}

type typeNameFromOption string

func WithDelimiter(delimiter string) typeNameFromOption {
	return typeNameFromOption(delimiter)
}

func TypeNameFor[T any](opts ...typeNameFromOption) string {
	var zero T
	return TypeNameFrom(zero, opts...)
}

// TypeNameFrom names a struct type as "<Name><delim><hash>", where hash is a short
// digest of the package path, so equal names from different packages do not collide.
// Values implementing fmt.Stringer name themselves.
func TypeNameFrom(v any, opts ...typeNameFromOption) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	delim := "::"
	for _, opt := range opts {
		delim = string(opt)
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("typereg: cannot name %v, not a struct", t))
	}
	return t.Name() + delim + pkgHash(t.PkgPath())
}

func pkgHash(path string) string {
	sum := sha1.Sum([]byte(path))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:8]
}
