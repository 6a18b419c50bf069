package memory

import (
	"context"
	"sync"
	"time"
)

// Profile is the durable per-user record. One profile exists per user ID;
// it survives restarts (subject to the backing store) and is replaced
// wholesale on every upsert.
type Profile struct {
	// NameHint is the user's display name as last seen.
	NameHint string

	// Topics are short topic tags, deduplicated, in first-insertion order.
	Topics []string

	// Notes is free-text memory about the user.
	Notes string

	// Interactions counts handled messages. Never decreases.
	Interactions int

	// LastSeen is the RFC3339 timestamp of the last interaction.
	LastSeen string
}

// IsEmpty reports whether the profile carries no remembered content.
// The interaction counter alone does not make a profile non-empty: the
// assembler skips the profile summary unless there is something to say.
func (p *Profile) IsEmpty() bool {
	return p.NameHint == "" && len(p.Topics) == 0 && p.Notes == ""
}

// AddTopic appends a topic tag unless it is already present. Insertion
// order of first occurrences is preserved.
func (p *Profile) AddTopic(topic string) {
	for _, t := range p.Topics {
		if t == topic {
			return
		}
	}
	p.Topics = append(p.Topics, topic)
}

// RecentTopics returns the last n topics in insertion order. When fewer
// than n exist, all are returned.
func (p *Profile) RecentTopics(n int) []string {
	if n <= 0 || len(p.Topics) == 0 {
		return nil
	}
	if n > len(p.Topics) {
		n = len(p.Topics)
	}
	out := make([]string, n)
	copy(out, p.Topics[len(p.Topics)-n:])
	return out
}

// Touch records an interaction at now: bumps the counter, refreshes the
// last-seen timestamp, and fills the name hint if absent.
func (p *Profile) Touch(displayName string, now time.Time) {
	p.Interactions++
	p.LastSeen = now.UTC().Format(time.RFC3339)
	if p.NameHint == "" {
		p.NameHint = displayName
	}
}

// clone returns a deep copy so store snapshots never share topic slices
// with callers.
func (p *Profile) clone() *Profile {
	cp := *p
	if p.Topics != nil {
		cp.Topics = make([]string, len(p.Topics))
		copy(cp.Topics, p.Topics)
	}
	return &cp
}

// ProfileStore is the durable key-value contract over user profiles.
//
// Get returns a freshly initialized zero profile for unseen users without
// persisting it. Upsert atomically replaces-or-inserts the full profile
// for a user ID. Implementations must be safe for concurrent use across
// different user IDs and must not interleave writes to the same ID.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, userID string, p *Profile) error
}

// MemoryProfileStore is an in-memory ProfileStore. It backs tests and the
// degraded mode the pipeline falls into when the durable store fails.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMemoryProfileStore creates an empty in-memory store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*Profile)}
}

// Get returns a copy of the stored profile, or a zero profile for unseen
// users. The unseen default is not persisted.
func (s *MemoryProfileStore) Get(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[userID]; ok {
		return p.clone(), nil
	}
	return &Profile{}, nil
}

// Upsert replaces the stored profile for userID with a copy of p.
func (s *MemoryProfileStore) Upsert(_ context.Context, userID string, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[userID] = p.clone()
	return nil
}

// Count returns the number of stored profiles.
func (s *MemoryProfileStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

// Compile-time interface satisfaction check.
var _ ProfileStore = (*MemoryProfileStore)(nil)
