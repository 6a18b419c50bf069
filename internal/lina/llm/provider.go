// Package llm is the gateway to the remote text-generation service.
//
// The gateway wraps exactly one chat-completion call per turn. Every
// failure mode — network error, non-2xx status, malformed body, empty
// output — surfaces as an error from Generate and never as a panic. What
// to tell the user when generation fails is the pipeline's policy (a fixed
// persona apology), not the gateway's.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimit is returned when the upstream API reports a rate-limiting
// condition (HTTP 429). Callers treat it like any other generation failure
// but may log it distinctly.
var ErrRateLimit = errors.New("llm: upstream rate limit exceeded")

// ErrEmptyReply is returned when the API call succeeds structurally but
// produces no usable text.
var ErrEmptyReply = errors.New("llm: empty reply from model")

// Message is a single entry in the instruction sequence sent to the model.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string
	// Content is the message text.
	Content string
}

// Provider generates a reply from an ordered instruction sequence.
//
// Implementations must be safe for concurrent use from multiple
// goroutines and must honor ctx cancellation.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
