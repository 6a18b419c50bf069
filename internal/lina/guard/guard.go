// Package guard protects the pipeline from floods and feedback loops.
// Two independent mechanisms: a per-user cooldown that silently drops
// messages arriving too soon after the last admitted one (the anti-loop
// measure against other bots echoing us), and a global sliding-window
// budget on generation calls that shields the upstream API.
package guard

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between two admitted messages from
// the same user.
const DefaultCooldown = 6 * time.Second

// Cooldown enforces the per-user admission gap. A dropped message has no
// user-visible effect and mutates no state beyond this guard.
//
// Cooldown is safe for concurrent use.
type Cooldown struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time // userID → last admitted timestamp
}

// NewCooldown returns a Cooldown with the given gap. If gap ≤ 0 it
// defaults to DefaultCooldown.
func NewCooldown(gap time.Duration) *Cooldown {
	if gap <= 0 {
		gap = DefaultCooldown
	}
	return &Cooldown{
		cooldown: gap,
		last:     make(map[string]time.Time),
	}
}

// Admit reports whether a message from userID at now may enter the
// pipeline, and records now as the last admitted timestamp when it does.
// A user with no prior record is always admitted.
func (c *Cooldown) Admit(userID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[userID]; ok && now.Sub(last) < c.cooldown {
		return false
	}
	c.last[userID] = now
	return true
}

// DefaultBudgetLimit is the maximum number of generation calls allowed
// across all users per window when no explicit limit is configured.
const DefaultBudgetLimit = 20

// defaultBudgetWindow is the sliding window duration.
const defaultBudgetWindow = time.Minute

// Budget enforces a global sliding-window limit on generation calls.
// Unlike the cooldown, an over-budget turn is not silent: the pipeline
// replies with the persona apology instead of calling the backend.
//
// Budget is safe for concurrent use.
type Budget struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time
}

// NewBudget returns a Budget allowing at most limit calls per window.
// If limit ≤ 0 it defaults to DefaultBudgetLimit; if window ≤ 0 it
// defaults to one minute.
func NewBudget(limit int, window time.Duration) *Budget {
	if limit <= 0 {
		limit = DefaultBudgetLimit
	}
	if window <= 0 {
		window = defaultBudgetWindow
	}
	return &Budget{limit: limit, window: window}
}

// Allow reports whether another generation call fits in the current
// window and records it when it does. Stale entries are pruned on every
// call, keeping memory bounded to O(limit).
func (b *Budget) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.window)
	valid := b.calls[:0] // reuse backing array
	for _, t := range b.calls {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	b.calls = valid

	if len(b.calls) >= b.limit {
		return false
	}
	b.calls = append(b.calls, now)
	return true
}
