package credentials

import (
	"context"
)

// serializerOwner is the context key marking work already running inside a
// Serializer.
type serializerOwner struct{}

// Serializer ensures only one operation proceeds at a time across every
// Manager sharing it. It recognizes re-entrant calls from within its own
// critical section and executes those inline rather than deadlocking:
// ownership travels in the context handed to the serialized function.
type Serializer struct {
	sem chan struct{}
}

// NewSerializer creates a Serializer. Share one instance among every Manager
// (and any other component) touching the same credential record.
func NewSerializer() *Serializer {
	return &Serializer{sem: make(chan struct{}, 1)}
}

// Do runs fn while holding the serializer. Callers already inside the
// serializer run fn inline. Waiting is abandoned when ctx is cancelled.
func (s *Serializer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(serializerOwner{}).(*Serializer); ok && owner == s {
		return fn(ctx)
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()
	return fn(context.WithValue(ctx, serializerOwner{}, s))
}
