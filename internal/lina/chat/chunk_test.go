package chat_test

import (
	"strings"
	"testing"

	"github.com/mkarren/lina/internal/lina/chat"
)

func TestChunkMessage_ShortTextIsSingleChunk(t *testing.T) {
	chunks := chat.ChunkMessage("hallo du 🤍")
	if len(chunks) != 1 || chunks[0] != "hallo du 🤍" {
		t.Fatalf("got %q, want the input unchanged", chunks)
	}
}

func TestChunkMessage_ExactLimitIsNotSplit(t *testing.T) {
	text := strings.Repeat("ä", chat.MaxMessageRunes)
	chunks := chat.ChunkMessage(text)
	if len(chunks) != 1 {
		t.Fatalf("text at the limit was split into %d chunks", len(chunks))
	}
}

func TestChunkMessage_PreservesOrderAndContent(t *testing.T) {
	word := "wort "
	text := strings.TrimSpace(strings.Repeat(word, 900)) // 4499 runes

	chunks := chat.ChunkMessage(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > chat.MaxMessageRunes {
			t.Errorf("chunk %d has %d runes, max is %d", i, n, chat.MaxMessageRunes)
		}
	}

	// Rejoining on spaces must reproduce the original words in order.
	joined := strings.Join(chunks, " ")
	if strings.Join(strings.Fields(joined), " ") != strings.Join(strings.Fields(text), " ") {
		t.Error("chunking lost or reordered words")
	}
}

func TestChunkMessage_SplitsAtWhitespace(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("zehnzeichn ", 400))
	for i, c := range chat.ChunkMessage(text) {
		for _, w := range strings.Fields(c) {
			if w != "zehnzeichn" {
				t.Fatalf("chunk %d split a word: %q", i, w)
			}
		}
	}
}

func TestChunkMessage_HardCutsOversizedWord(t *testing.T) {
	text := strings.Repeat("x", chat.MaxMessageRunes*2+5)
	chunks := chat.ChunkMessage(text)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if got := strings.Join(chunks, ""); got != text {
		t.Error("hard cut lost characters")
	}
}

func TestAddressed(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		mentioned bool
		want      bool
	}{
		{"explicit mention", "was meinst du dazu?", true, true},
		{"name prefix", "Lina, wie geht's?", false, true},
		{"case insensitive", "lina was machst du", false, true},
		{"name alone", "Lina", false, true},
		{"leading spaces", "  lina hey", false, true},
		{"name mid-sentence", "ich hab Lina gestern gesehen", false, false},
		{"name as prefix of word", "Linas Buch liegt hier", false, false},
		{"unrelated", "wie spät ist es?", false, false},
		{"empty", "", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := chat.Addressed(tc.text, "Lina", tc.mentioned); got != tc.want {
				t.Errorf("Addressed(%q, mentioned=%v) = %v, want %v", tc.text, tc.mentioned, got, tc.want)
			}
		})
	}
}
