// Package mood derives lightweight emotional signals from incoming chat
// messages. It provides two pure classifiers: a lexicon-based emotion
// detector over the message text and a time-of-day mood derived from the
// wall-clock hour. Both are deterministic and perform no I/O, so the
// pipeline can call them on every turn without budget concerns.
package mood

import "strings"

// Label is the detected emotional tone of a message.
type Label string

const (
	Neutral  Label = "neutral"
	Sad      Label = "sad"
	Stressed Label = "stress"
	Angry    Label = "angry"
	Loving   Label = "love"
	Happy    Label = "happy"
)

// precedence is the fixed evaluation order for emotion lexicons. The
// lexicons overlap ("down" can appear in otherwise upbeat text, heart
// emoji show up in sad messages), so the first matching label wins and
// the order below decides ties: distress outranks affection outranks joy.
var precedence = []Label{Sad, Stressed, Angry, Loving, Happy}

// lexicons maps each label to its cue words. Cues are matched as
// case-insensitive substrings, which deliberately catches inflected forms
// ("gestresst", "stressig") without stemming. German and English cues are
// mixed in one list per label.
var lexicons = map[Label][]string{
	Sad: {
		"traurig", "down", "depress", "einsam", "verletzt", "kaputt",
		"heule", "vermisse", "leer", "lonely", "miserable", "heartbroken",
		"crying",
	},
	Stressed: {
		"stress", "gestresst", "überfordert", "druck", "keine kraft",
		"müde", "zu viel", "burnout", "overwhelmed", "exhausted",
		"deadline", "too much",
	},
	Angry: {
		"wütend", "sauer", "nervt", "kotzt", "hasse", "fuck", "scheiße",
		"aggressiv", "angry", "furious", "annoyed", "pissed",
	},
	Loving: {
		"mag dich", "vermiss dich", "lieb", "süß", "cute", "knuffig",
		"miss you", "adore", "❤️", "🤍", "🥺",
	},
	Happy: {
		"happy", "glücklich", "gut drauf", "freu", "mega", "nice", "lol",
		"haha", "geil", "top", "great news", "awesome", "stoked",
	},
}

// directives maps each non-neutral label to the instruction injected into
// the assembled context. Neutral intentionally has no entry: a neutral
// message adds no mood directive at all.
var directives = map[Label]string{
	Sad:      "USER EMOTION: sad. The user seems sad or hurt. Be very warm, soft, reassuring and gentle.",
	Stressed: "USER EMOTION: stressed. The user seems overwhelmed. Be calm, soothing, patient, supportive.",
	Angry:    "USER EMOTION: angry/frustrated. De-escalate gently, stay kind, don't mirror anger.",
	Loving:   "USER EMOTION: affectionate. Be a bit shy-but-sweet, warm and tender.",
	Happy:    "USER EMOTION: happy. Be playful, bright and cozy.",
}

// Classify returns the emotional label for text. Matching is
// case-insensitive substring search; labels are tried in the fixed
// precedence order sad > stress > angry > love > happy, and the first
// label with any matching cue wins. Text with no cues is Neutral.
func Classify(text string) Label {
	t := strings.ToLower(text)
	for _, label := range precedence {
		for _, cue := range lexicons[label] {
			if strings.Contains(t, cue) {
				return label
			}
		}
	}
	return Neutral
}

// Directive returns the context instruction for a label, or "" for
// Neutral and unknown labels.
func Directive(label Label) string {
	return directives[label]
}

// Time-of-day bands. Each band is half-open [start, end) and the four
// bands together cover every hour 0–23 exactly once.
const (
	morningStart   = 6
	afternoonStart = 11
	eveningStart   = 17
	nightStart     = 22
)

// TimeMood returns the ambient mood directive for the given wall-clock
// hour. Hours outside [0, 24) are treated as night, matching the
// night band wrapping around midnight.
func TimeMood(hour int) string {
	switch {
	case hour >= morningStart && hour < afternoonStart:
		return "TIME MOOD: morning. Lina is sleepy-cozy, soft, tea/coffee vibe, gentle energy."
	case hour >= afternoonStart && hour < eveningStart:
		return "TIME MOOD: afternoon. Lina is warm, present, lightly playful, student-day vibe."
	case hour >= eveningStart && hour < nightStart:
		return "TIME MOOD: evening. Lina is calm, affectionate, cozy, slower pace."
	default:
		return "TIME MOOD: night. Lina is very soft-spoken, dreamy, intimate-but-innocent."
	}
}
