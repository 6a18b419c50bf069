// Package humanize post-processes generated replies so they read like a
// person typing, not a service responding. Two independent, bounded edits
// may be applied per reply — a single adjacent-character transposition and
// a single appended informal aside — plus a randomized "thinking" delay
// before the reply is sent.
//
// Both edits are coin flips against a shared randomness source, which is
// injectable so tests can pin the outcome and assert the bounds instead of
// the stochastic output.
package humanize

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	// typoChance is the probability of one adjacent-character
	// transposition per reply.
	typoChance = 0.18

	// asideChance is the probability of appending one informal aside.
	asideChance = 0.10

	// minTypoTextLen guards very short replies from perturbation.
	minTypoTextLen = 12

	// minTypoWordLen is the minimum word length eligible for a
	// transposition; shorter words become unreadable.
	minTypoWordLen = 5

	// asideLenCap is the maximum total reply length after an aside.
	asideLenCap = 180
)

// asides are the fixed informal tails occasionally appended to a reply.
var asides = []string{
	"— oh wait 😅",
	"…also, you know what I mean 😄",
	"— haha sorry",
}

// Typing-delay policy: a base range plus a length-proportional term,
// capped so even essays never stall the reply unreasonably.
const (
	delayBaseMin  = 400 * time.Millisecond
	delayBaseMax  = 1200 * time.Millisecond
	delayPerLen   = 400         // characters that earn the full extra term
	delayExtraMax = time.Second // cap on the length-proportional term
)

// Humanizer applies the perturbation and delay policies. Safe for
// concurrent use.
type Humanizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Humanizer. Pass nil to use a time-seeded source; tests
// pass a fixed-seed *rand.Rand for determinism.
func New(rng *rand.Rand) *Humanizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanizer{rng: rng}
}

// Perturb returns text with at most one transposition and at most one
// appended aside. The transposition swaps two adjacent inner characters
// of one randomly chosen alphabetic word of length ≥5; the aside is only
// appended when the result stays under the length cap. Everything else is
// returned byte-for-byte.
func (h *Humanizer) Perturb(text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := text
	if h.rng.Float64() < typoChance && len(out) > minTypoTextLen {
		out = h.transposeOneWord(out)
	}
	if h.rng.Float64() < asideChance {
		aside := asides[h.rng.Intn(len(asides))]
		if len(out)+1+len(aside) < asideLenCap {
			out = out + " " + aside
		}
	}
	return out
}

// TypingDelay returns how long to hold the reply while the composing
// indicator is shown: a random base of 400–1200 ms plus a term
// proportional to textLen, capped at one second.
func (h *Humanizer) TypingDelay(textLen int) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	base := delayBaseMin + time.Duration(h.rng.Int63n(int64(delayBaseMax-delayBaseMin)))

	frac := float64(textLen) / delayPerLen
	if frac > 1 {
		frac = 1
	}
	extra := time.Duration(frac * (0.5 + 0.5*h.rng.Float64()) * float64(delayExtraMax))

	return base + extra
}

// transposeOneWord swaps one adjacent inner rune pair in one randomly
// chosen eligible word. Words with punctuation, digits, or emoji are left
// alone. When no word qualifies, text is returned unchanged. Must be
// called with mu held.
func (h *Humanizer) transposeOneWord(text string) string {
	words := strings.Split(text, " ")

	var eligible []int
	for i, w := range words {
		if isTypoEligible(w) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return text
	}

	wi := eligible[h.rng.Intn(len(eligible))]
	r := []rune(words[wi])
	// Inner position: the first rune never moves, so the word stays
	// recognizable.
	i := 1 + h.rng.Intn(len(r)-2)
	r[i], r[i+1] = r[i+1], r[i]
	words[wi] = string(r)

	return strings.Join(words, " ")
}

// isTypoEligible reports whether a word may receive a transposition:
// purely alphabetic and long enough to survive it.
func isTypoEligible(w string) bool {
	r := []rune(w)
	if len(r) < minTypoWordLen {
		return false
	}
	for _, c := range r {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}
