// Package prompt assembles the ordered instruction sequence sent to the
// generation backend. Assembly is the heart of the relay: it layers the
// persona, what is durably known about the user, the detected and ambient
// mood, a reply-length policy, and the rolling transcript into one bounded
// context, fresh on every turn and discarded right after the call.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mkarren/lina/internal/lina/llm"
	"github.com/mkarren/lina/internal/lina/memory"
	"github.com/mkarren/lina/internal/lina/mood"
	"github.com/mkarren/lina/internal/lina/persona"
)

// DefaultSceneChance is the probability of injecting one scene-flavor
// entry into a turn's context.
const DefaultSceneChance = 0.12

// DefaultTopicWindow is how many of the most recent topic tags appear in
// the profile summary.
const DefaultTopicWindow = 6

// scenes are the atmospheric snippets occasionally woven into the context.
// Purely stylistic; the directive wrapper tells the model to use them
// lightly.
var scenes = []string{
	"light rain tapping at the window in Copenhagen, coffee in hand",
	"just got back from uni, hoodie on, a bit tired but comfy",
	"wrapped in a blanket on the sofa, warm lamp light",
	"walking home in chilly air, cheeks a little cold but happy",
}

// Reply-length buckets derived from the word count of the incoming
// message. Short questions get short answers; walls of text earn detail.
const (
	shortWordMax  = 6
	mediumWordMax = 18
)

var lengthDirectives = map[string]string{
	"short":  "REPLY LENGTH: short. 1-3 short sentences, chatty, not formal.",
	"medium": "REPLY LENGTH: medium. 3-6 sentences, warm and personal.",
	"long":   "REPLY LENGTH: long. Be more detailed but still chatty and soft.",
}

// PersonaSource yields the active persona document. *persona.Loader
// satisfies it; tests substitute a fixed document.
type PersonaSource interface {
	Current() *persona.Document
}

// Config tunes an Assembler. The zero value gives production behavior;
// tests inject Now and Rand for determinism.
type Config struct {
	// SceneChance is the probability of a scene-flavor entry per turn.
	// Negative disables scenes entirely; zero means DefaultSceneChance.
	SceneChance float64

	// TopicWindow is the number of recent topics in the profile summary.
	// Zero means DefaultTopicWindow.
	TopicWindow int

	// Now supplies the wall clock for the time-mood directive.
	// Defaults to time.Now.
	Now func() time.Time

	// Rand is the randomness source for scene flavor. Defaults to a
	// time-seeded source.
	Rand *rand.Rand
}

// Assembler builds per-turn instruction sequences. Safe for concurrent
// use; the shared rand source is guarded internally.
type Assembler struct {
	personaSrc  PersonaSource
	profiles    memory.ProfileStore
	transcripts *memory.TranscriptTracker
	logger      *slog.Logger

	sceneChance float64
	topicWindow int
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssembler wires an Assembler. If logger is nil, the default slog
// logger is used.
func NewAssembler(src PersonaSource, profiles memory.ProfileStore, transcripts *memory.TranscriptTracker, cfg Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	sceneChance := cfg.SceneChance
	if sceneChance == 0 {
		sceneChance = DefaultSceneChance
	}
	if sceneChance < 0 {
		sceneChance = 0
	}
	topicWindow := cfg.TopicWindow
	if topicWindow <= 0 {
		topicWindow = DefaultTopicWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Assembler{
		personaSrc:  src,
		profiles:    profiles,
		transcripts: transcripts,
		logger:      logger,
		sceneChance: sceneChance,
		topicWindow: topicWindow,
		now:         now,
		rng:         rng,
	}
}

// Build assembles the instruction sequence for one turn and returns it
// together with the mood detected in text. Entry order is fixed:
//
//  1. persona system prompt (always)
//  2. profile summary (omitted when the profile is entirely empty)
//  3. mood directive (omitted when the detected mood is neutral)
//  4. time-mood directive (always)
//  5. reply-length directive (always)
//  6. scene flavor (probabilistic)
//  7. the rolling transcript, replayed verbatim in stored order
//
// lastMood is the mood detected on the user's previous turn; when
// non-neutral it is mentioned in the profile summary for continuity.
// A failing profile store degrades to an empty profile and is logged,
// never surfaced.
//
// The caller must reject empty or whitespace-only text before calling
// Build; assembly assumes a real message.
func (a *Assembler) Build(ctx context.Context, roomID, userID, text string, lastMood mood.Label) ([]llm.Message, mood.Label) {
	doc := a.personaSrc.Current()

	msgs := []llm.Message{{Role: "system", Content: doc.System}}

	// 2. Durable profile summary.
	profile, err := a.profiles.Get(ctx, userID)
	if err != nil {
		a.logger.Warn("prompt: profile read failed, assembling without memory",
			"user_id", userID, "err", err)
		profile = &memory.Profile{}
	}
	if summary := a.profileSummary(profile, lastMood); summary != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: summary})
	}

	// 3. Detected mood.
	detected := mood.Classify(text)
	if directive := mood.Directive(detected); directive != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: directive})
	}

	// 4. Ambient time mood.
	msgs = append(msgs, llm.Message{Role: "system", Content: mood.TimeMood(a.now().Hour())})

	// 5. Reply-length policy.
	msgs = append(msgs, llm.Message{Role: "system", Content: lengthDirective(text)})

	// 6. Scene flavor.
	if scene := a.maybeScene(); scene != "" {
		msgs = append(msgs, llm.Message{
			Role:    "system",
			Content: fmt.Sprintf("SCENE FLAVOR (use lightly, not every time): %s.", scene),
		})
	}

	// 7. Transcript replay, stored order, verbatim.
	for _, turn := range a.transcripts.Read(roomID) {
		msgs = append(msgs, llm.Message{Role: turn.Role, Content: turn.Text})
	}

	return msgs, detected
}

// profileSummary renders the durable profile as one system entry, or ""
// when there is nothing to say.
func (a *Assembler) profileSummary(p *memory.Profile, lastMood mood.Label) string {
	if p.IsEmpty() {
		return ""
	}

	var lines []string
	if p.NameHint != "" {
		lines = append(lines, "- User name: "+p.NameHint)
	}
	if topics := p.RecentTopics(a.topicWindow); len(topics) > 0 {
		lines = append(lines, "- Recent topics: "+strings.Join(topics, ", "))
	}
	if p.Notes != "" {
		lines = append(lines, "- Remembered notes: "+p.Notes)
	}
	if lastMood != "" && lastMood != mood.Neutral {
		lines = append(lines, "- Last emotion noticed: "+string(lastMood))
	}

	return "SOFT USER MEMORY (use naturally, don't recite):\n" + strings.Join(lines, "\n")
}

// maybeScene rolls for a scene-flavor snippet; "" means none this turn.
func (a *Assembler) maybeScene() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sceneChance <= 0 || a.rng.Float64() >= a.sceneChance {
		return ""
	}
	return scenes[a.rng.Intn(len(scenes))]
}

// lengthDirective picks the reply-length policy from the incoming word
// count.
func lengthDirective(text string) string {
	n := len(strings.Fields(text))
	switch {
	case n <= shortWordMax:
		return lengthDirectives["short"]
	case n <= mediumWordMax:
		return lengthDirectives["medium"]
	default:
		return lengthDirectives["long"]
	}
}
