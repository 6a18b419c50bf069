package chat

import (
	"strings"
	"unicode"
)

// MaxMessageRunes is the longest message sent as a single event. Anything
// longer is split into ordered chunks so homeservers with strict event
// size limits still accept it.
const MaxMessageRunes = 1800

// ChunkMessage splits text into pieces of at most MaxMessageRunes runes,
// preserving order. Splits prefer the last whitespace inside the window
// so words survive intact; a single oversized word is cut hard.
func ChunkMessage(text string) []string {
	runes := []rune(text)
	if len(runes) <= MaxMessageRunes {
		return []string{text}
	}

	var chunks []string
	for len(runes) > MaxMessageRunes {
		cut := MaxMessageRunes
		for i := MaxMessageRunes; i > 0; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), " \t\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// Addressed reports whether text is directed at the bot: either the bot
// was mentioned explicitly, or the message starts with the bot's name as
// its own token (case-insensitive, trailing punctuation allowed).
func Addressed(text, botName string, mentioned bool) bool {
	if mentioned {
		return true
	}
	if botName == "" {
		return false
	}
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if len(trimmed) < len(botName) {
		return false
	}
	head := trimmed[:len(botName)]
	if !strings.EqualFold(head, botName) {
		return false
	}
	rest := trimmed[len(botName):]
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}
