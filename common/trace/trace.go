// Package trace tags each conversational turn with a correlation ID so
// log lines emitted across packages during one turn can be tied together.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// turnKey is the unexported context key used to store the turn ID.
type turnKey struct{}

// NewTurnID returns a fresh correlation ID for one message turn.
func NewTurnID() string {
	return "turn_" + uuid.NewString()
}

// WithTurnID returns a child context carrying the given turn ID.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnKey{}, id)
}

// TurnID extracts the turn ID from ctx, returning "" if absent.
func TurnID(ctx context.Context) string {
	if v, ok := ctx.Value(turnKey{}).(string); ok {
		return v
	}
	return ""
}
