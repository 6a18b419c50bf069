// Package pipeline orchestrates one conversational turn: admission,
// memory, context assembly, generation, humanization and delivery. All
// failure handling lives here so no per-message error can take the
// process down.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mkarren/lina/common/trace"
	"github.com/mkarren/lina/internal/lina/chat"
	"github.com/mkarren/lina/internal/lina/guard"
	"github.com/mkarren/lina/internal/lina/llm"
	"github.com/mkarren/lina/internal/lina/memory"
	"github.com/mkarren/lina/internal/lina/mood"
	"github.com/mkarren/lina/internal/lina/persona"
)

// reloadCommand triggers a persona re-read from allowlisted senders.
const reloadCommand = "!lina reload persona"

// composingGrace is added to the typing-indicator timeout so the
// indicator does not flicker off before the delay elapses.
const composingGrace = 2 * time.Second

// Channel is the outbound side of the chat shell plus the admission
// helpers the pipeline consults. *chat.Client satisfies it.
type Channel interface {
	Send(ctx context.Context, roomID, text string) error
	SignalComposing(ctx context.Context, roomID string, typing bool, timeout time.Duration) error
	IsDirectMessage(roomID string) bool
	IsAddressed(msg chat.Incoming) bool
	DisplayName(ctx context.Context, userID string) (string, error)
}

// ContextBuilder assembles the instruction sequence for one turn.
// *prompt.Assembler satisfies it.
type ContextBuilder interface {
	Build(ctx context.Context, roomID, userID, text string, lastMood mood.Label) ([]llm.Message, mood.Label)
}

// Humanizer perturbs outgoing text and paces delivery.
type Humanizer interface {
	Perturb(text string) string
	TypingDelay(textLen int) time.Duration
}

// PersonaSource exposes the current persona snapshot and the reload
// operation behind the admin command. *persona.Loader satisfies it.
type PersonaSource interface {
	Current() *persona.Document
	Reload() error
}

// Config wires the pipeline's collaborators.
type Config struct {
	AdminSenders []string

	Channel     Channel
	Builder     ContextBuilder
	Provider    llm.Provider
	Persona     PersonaSource
	Transcripts *memory.TranscriptTracker
	Profiles    memory.ProfileStore
	Cooldown    *guard.Cooldown
	Budget      *guard.Budget
	Humanizer   Humanizer

	Logger *slog.Logger
	// Now and Sleep are injectable for tests; nil means wall clock and
	// real sleeping.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

// Pipeline handles inbound messages one goroutine per event. The only
// state it owns is the per-user last-detected-mood map used for
// continuity across consecutive turns.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration)

	moodMu    sync.Mutex
	lastMoods map[string]mood.Label // userID → mood of previous turn
}

// New builds a Pipeline from cfg. Collaborators are assumed non-nil;
// Logger, Now and Sleep get defaults.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}
	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		now:       now,
		sleep:     sleep,
		lastMoods: make(map[string]mood.Label),
	}
}

// HandleMessage runs one full turn. Every failure mode degrades inside
// this method; it never returns an error because there is nobody above
// it to handle one.
func (p *Pipeline) HandleMessage(ctx context.Context, msg chat.Incoming) {
	text := strings.TrimSpace(msg.Body)
	if text == "" {
		// Whitespace-only messages build no context and mutate no state.
		return
	}

	if text == reloadCommand {
		p.handleReload(ctx, msg)
		return
	}

	// Reply only in direct chats or when spoken to.
	if !p.cfg.Channel.IsDirectMessage(msg.RoomID) && !p.cfg.Channel.IsAddressed(msg) {
		return
	}

	now := p.now()
	if !p.cfg.Cooldown.Admit(msg.Sender, now) {
		// Deliberate anti-feedback-loop drop: no reply, no state change.
		p.logger.Debug("pipeline: cooldown drop", "user_id", msg.Sender, "room_id", msg.RoomID)
		return
	}

	ctx = trace.WithTurnID(ctx, trace.NewTurnID())
	logger := p.logger.With("turn_id", trace.TurnID(ctx), "room_id", msg.RoomID, "user_id", msg.Sender)

	profile := p.refreshProfile(ctx, logger, msg, text, now)

	p.moodMu.Lock()
	lastMood := p.lastMoods[msg.Sender]
	p.moodMu.Unlock()

	p.cfg.Transcripts.Append(msg.RoomID, memory.RoleUser, text)

	msgs, detected := p.cfg.Builder.Build(ctx, msg.RoomID, msg.Sender, text, lastMood)

	p.moodMu.Lock()
	p.lastMoods[msg.Sender] = detected
	p.moodMu.Unlock()

	reply, failed := p.generate(ctx, logger, now, msgs)
	if !failed {
		reply = p.cfg.Humanizer.Perturb(reply)
	}

	// The apology is recorded too, so conversational continuity survives
	// backend failures.
	p.cfg.Transcripts.Append(msg.RoomID, memory.RoleAssistant, reply)

	if err := p.cfg.Profiles.Upsert(ctx, msg.Sender, profile); err != nil {
		logger.Warn("pipeline: profile write failed, continuing without persistence", "err", err)
	}

	p.deliver(ctx, logger, msg.RoomID, reply)
}

// refreshProfile reads the durable profile, folds the current turn into
// it and returns it for the post-generation upsert. Store failures
// degrade to a fresh in-memory profile for this turn only.
func (p *Pipeline) refreshProfile(ctx context.Context, logger *slog.Logger, msg chat.Incoming, text string, now time.Time) *memory.Profile {
	profile, err := p.cfg.Profiles.Get(ctx, msg.Sender)
	if err != nil {
		logger.Warn("pipeline: profile read failed, degrading to empty profile", "err", err)
		profile = &memory.Profile{}
	}

	name, err := p.cfg.Channel.DisplayName(ctx, msg.Sender)
	if err != nil || name == "" {
		name = localpart(msg.Sender)
	}
	profile.Touch(name, now)

	if note, ok := memory.ExtractNote(text); ok {
		profile.Notes = note
	}
	if topic, ok := memory.TopicCandidate(text); ok {
		profile.AddTopic(topic)
	}
	return profile
}

// generate calls the backend once, budget permitting. The second return
// reports failure, in which case the reply is the persona apology.
func (p *Pipeline) generate(ctx context.Context, logger *slog.Logger, now time.Time, msgs []llm.Message) (string, bool) {
	apology := p.cfg.Persona.Current().Apology

	if !p.cfg.Budget.Allow(now) {
		logger.Warn("pipeline: generation budget exhausted, sending apology")
		return apology, true
	}

	reply, err := p.cfg.Provider.Generate(ctx, msgs)
	if err != nil {
		logger.Warn("pipeline: generation failed, sending apology", "err", err)
		return apology, true
	}
	return reply, false
}

// deliver paces the reply behind a typing indicator and sends it. A
// failed send gets exactly one retry (the chunker re-splits); after that
// the reply is abandoned.
func (p *Pipeline) deliver(ctx context.Context, logger *slog.Logger, roomID, reply string) {
	delay := p.cfg.Humanizer.TypingDelay(len(reply))
	if err := p.cfg.Channel.SignalComposing(ctx, roomID, true, delay+composingGrace); err != nil {
		logger.Debug("pipeline: typing indicator failed", "err", err)
	}
	p.sleep(ctx, delay)

	if err := p.cfg.Channel.Send(ctx, roomID, reply); err != nil {
		logger.Warn("pipeline: send failed, retrying once", "err", err)
		if err := p.cfg.Channel.Send(ctx, roomID, reply); err != nil {
			logger.Error("pipeline: send failed permanently, abandoning reply", "err", err)
		}
	}
}

// handleReload processes the persona reload command. Senders outside the
// allowlist are ignored without a reply so the command does not leak the
// bot's admin surface.
func (p *Pipeline) handleReload(ctx context.Context, msg chat.Incoming) {
	if !p.isAdmin(msg.Sender) {
		p.logger.Warn("pipeline: reload command from non-admin ignored", "user_id", msg.Sender)
		return
	}

	if err := p.cfg.Persona.Reload(); err != nil {
		p.logger.Error("pipeline: persona reload failed", "err", err)
		p.sendNotice(ctx, msg.RoomID, "persona reload failed: "+err.Error())
		return
	}
	p.logger.Info("pipeline: persona reloaded", "by", msg.Sender)
	p.sendNotice(ctx, msg.RoomID, "persona reloaded ✓")
}

func (p *Pipeline) sendNotice(ctx context.Context, roomID, text string) {
	if err := p.cfg.Channel.Send(ctx, roomID, text); err != nil {
		p.logger.Warn("pipeline: admin reply failed", "room_id", roomID, "err", err)
	}
}

func (p *Pipeline) isAdmin(sender string) bool {
	for _, s := range p.cfg.AdminSenders {
		if s == sender {
			return true
		}
	}
	return false
}

// localpart extracts "anna" from "@anna:example.org" as a display-name
// fallback when the profile lookup fails.
func localpart(userID string) string {
	s := strings.TrimPrefix(userID, "@")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}
