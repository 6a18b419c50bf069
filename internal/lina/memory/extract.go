package memory

import "strings"

// Soft profile extraction: heuristics that decide which parts of an
// incoming message are worth remembering in the durable profile. This is
// deliberately lexical — no model call, no parsing — because a wrong
// guess only costs a slightly noisy note.

// noteTriggers are lowercase prefixes/phrases that mark a message as
// self-descriptive enough to remember (German and English).
var noteTriggers = []string{
	"ich bin ", "i am ", "i'm ",
	"ich habe ", "i have ",
	"ich mag ", "i like ",
	"mein ", "my ",
	"morgen ", "tomorrow ",
	"heute ", "today ",
}

// maxNoteLen caps remembered notes: long messages are conversation, not
// facts about the user.
const maxNoteLen = 140

// topicMaxWords is the word-count ceiling under which a whole message is
// treated as a topic tag ("uni stress", "new cat").
const topicMaxWords = 5

// ExtractNote reports whether text looks like a memorable personal
// statement and returns it trimmed if so.
func ExtractNote(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" || len(t) >= maxNoteLen {
		return "", false
	}
	low := strings.ToLower(t)
	for _, trigger := range noteTriggers {
		if strings.Contains(low, trigger) {
			return t, true
		}
	}
	return "", false
}

// TopicCandidate reports whether text is short enough to serve as a topic
// tag and returns it trimmed if so.
func TopicCandidate(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", false
	}
	if len(strings.Fields(t)) > topicMaxWords {
		return "", false
	}
	return t, true
}
