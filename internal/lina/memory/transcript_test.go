package memory_test

import (
	"fmt"
	"testing"

	"github.com/mkarren/lina/internal/lina/memory"
)

func TestTranscript_UnseenRoomIsEmpty(t *testing.T) {
	tr := memory.NewTranscriptTracker(12)
	if turns := tr.Read("!nowhere:test"); len(turns) != 0 {
		t.Errorf("Read on unseen room returned %d turns, want 0", len(turns))
	}
}

func TestTranscript_PreservesOrder(t *testing.T) {
	tr := memory.NewTranscriptTracker(12)
	tr.Append("!room:test", memory.RoleUser, "hi")
	tr.Append("!room:test", memory.RoleAssistant, "hey you")
	tr.Append("!room:test", memory.RoleUser, "how are you?")

	turns := tr.Read("!room:test")
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	want := []string{"hi", "hey you", "how are you?"}
	for i, w := range want {
		if turns[i].Text != w {
			t.Errorf("turn %d = %q, want %q", i, turns[i].Text, w)
		}
	}
	if turns[0].Role != memory.RoleUser || turns[1].Role != memory.RoleAssistant {
		t.Error("roles not preserved in order")
	}
}

func TestTranscript_EvictsOldestBeyondCap(t *testing.T) {
	const cap = 12
	tr := memory.NewTranscriptTracker(cap)

	// 13 consecutive appends with cap 12: the first must be gone, the
	// remaining 12 in original order.
	for i := 0; i < cap+1; i++ {
		tr.Append("!room:test", memory.RoleUser, fmt.Sprintf("msg-%d", i))
	}

	turns := tr.Read("!room:test")
	if len(turns) != cap {
		t.Fatalf("got %d turns, want %d", len(turns), cap)
	}
	if turns[0].Text != "msg-1" {
		t.Errorf("oldest surviving turn = %q, want msg-1 (msg-0 evicted)", turns[0].Text)
	}
	if turns[cap-1].Text != fmt.Sprintf("msg-%d", cap) {
		t.Errorf("newest turn = %q, want msg-%d", turns[cap-1].Text, cap)
	}
}

func TestTranscript_ManyAppendsKeepMostRecent(t *testing.T) {
	const cap = 5
	const total = cap + 7
	tr := memory.NewTranscriptTracker(cap)
	for i := 0; i < total; i++ {
		tr.Append("!room:test", memory.RoleUser, fmt.Sprintf("msg-%d", i))
	}

	turns := tr.Read("!room:test")
	if len(turns) != cap {
		t.Fatalf("got %d turns, want %d", len(turns), cap)
	}
	for i, turn := range turns {
		want := fmt.Sprintf("msg-%d", total-cap+i)
		if turn.Text != want {
			t.Errorf("turn %d = %q, want %q", i, turn.Text, want)
		}
	}
}

func TestTranscript_RoomsAreIndependent(t *testing.T) {
	tr := memory.NewTranscriptTracker(12)
	tr.Append("!a:test", memory.RoleUser, "in room a")
	tr.Append("!b:test", memory.RoleUser, "in room b")

	if turns := tr.Read("!a:test"); len(turns) != 1 || turns[0].Text != "in room a" {
		t.Errorf("room a transcript contaminated: %v", turns)
	}
	if turns := tr.Read("!b:test"); len(turns) != 1 || turns[0].Text != "in room b" {
		t.Errorf("room b transcript contaminated: %v", turns)
	}
}

func TestTranscript_ReadReturnsCopy(t *testing.T) {
	tr := memory.NewTranscriptTracker(12)
	tr.Append("!room:test", memory.RoleUser, "original")

	turns := tr.Read("!room:test")
	turns[0].Text = "mutated"

	if got := tr.Read("!room:test")[0].Text; got != "original" {
		t.Errorf("tracker state mutated through snapshot: %q", got)
	}
}

func TestTranscript_DefaultCap(t *testing.T) {
	tr := memory.NewTranscriptTracker(0)
	for i := 0; i < memory.DefaultTranscriptCap+3; i++ {
		tr.Append("!room:test", memory.RoleUser, "x")
	}
	if got := len(tr.Read("!room:test")); got != memory.DefaultTranscriptCap {
		t.Errorf("got %d turns, want default cap %d", got, memory.DefaultTranscriptCap)
	}
}
