// Package memory implements Lina's session state: a volatile per-room
// rolling transcript and a durable per-user profile. The transcript keeps
// the recent back-and-forth in full fidelity for prompt replay; the profile
// stores what little survives a restart (name hint, topics, notes, counters).
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies the speaker of a transcript turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single entry in a rolling transcript.
type Turn struct {
	Role      string    // RoleUser or RoleAssistant
	Text      string    // message text, verbatim
	Timestamp time.Time // when this turn was recorded
}

// DefaultTranscriptCap is the number of turns kept per room when no
// explicit cap is configured.
const DefaultTranscriptCap = 12

// TranscriptTracker keeps one bounded FIFO transcript per room. Turns are
// stored in insertion order and replayed verbatim into the assembled
// context; once a transcript exceeds the cap, the oldest turns are
// dropped. Transcripts live for the process lifetime only — they are
// deliberately never persisted.
//
// TranscriptTracker is safe for concurrent use.
type TranscriptTracker struct {
	mu    sync.Mutex
	cap   int
	rooms map[string]*transcript
}

type transcript struct {
	id    string // unique transcript ID (UUID), for log correlation
	turns []Turn
}

// NewTranscriptTracker creates a tracker keeping at most cap turns per
// room. If cap ≤ 0 the default of 12 is used.
func NewTranscriptTracker(cap int) *TranscriptTracker {
	if cap <= 0 {
		cap = DefaultTranscriptCap
	}
	return &TranscriptTracker{
		cap:   cap,
		rooms: make(map[string]*transcript),
	}
}

// Append records a turn in the room's transcript, creating the transcript
// on first use. When the transcript exceeds the cap, the oldest turns are
// evicted so exactly the cap most recent turns remain, in original order.
func (t *TranscriptTracker) Append(roomID, role, text string) {
	t.appendAt(roomID, role, text, time.Now())
}

func (t *TranscriptTracker) appendAt(roomID, role, text string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr := t.rooms[roomID]
	if tr == nil {
		tr = &transcript{id: uuid.New().String()}
		t.rooms[roomID] = tr
	}

	tr.turns = append(tr.turns, Turn{Role: role, Text: text, Timestamp: now})
	if excess := len(tr.turns) - t.cap; excess > 0 {
		tr.turns = tr.turns[excess:]
	}
}

// Read returns a snapshot of the room's transcript in insertion order.
// An unseen room yields an empty slice. The returned slice is a copy —
// mutations do not affect the tracker.
func (t *TranscriptTracker) Read(roomID string) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr := t.rooms[roomID]
	if tr == nil {
		return nil
	}
	out := make([]Turn, len(tr.turns))
	copy(out, tr.turns)
	return out
}

// ID returns the transcript's correlation ID, or "" for unseen rooms.
func (t *TranscriptTracker) ID(roomID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tr := t.rooms[roomID]; tr != nil {
		return tr.id
	}
	return ""
}
