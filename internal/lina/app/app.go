// Package app wires the Lina companion bot together and owns its
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarren/lina/internal/lina/chat"
	"github.com/mkarren/lina/internal/lina/guard"
	"github.com/mkarren/lina/internal/lina/humanize"
	"github.com/mkarren/lina/internal/lina/llm"
	"github.com/mkarren/lina/internal/lina/memory"
	"github.com/mkarren/lina/internal/lina/persona"
	"github.com/mkarren/lina/internal/lina/pipeline"
	"github.com/mkarren/lina/internal/lina/prompt"
	"github.com/mkarren/lina/internal/lina/store"
)

// Config holds application configuration.
type Config struct {
	DatabasePath string
	// PersonaPath is the YAML persona manifest. Reloadable at runtime via
	// the admin command.
	PersonaPath string
	Matrix      chat.Config
	LLM         llm.Config
	// AdminSenders is the allowlist of Matrix user IDs permitted to run
	// admin commands such as the persona reload. When empty, admin
	// commands are disabled.
	AdminSenders []string
	// Cooldown is the per-user admission gap. Zero means the default.
	Cooldown time.Duration
	// BudgetLimit is the global generation-call budget per minute. Zero
	// means the default.
	BudgetLimit int
	// TranscriptCap bounds the rolling transcript per room. Zero means
	// the default.
	TranscriptCap int
	// HTTPAddr is the TCP address for the optional health/status HTTP
	// server (e.g. ":8080"). When empty the server is disabled.
	HTTPAddr string
}

// App is the assembled bot.
type App struct {
	config       *Config
	store        *store.Store
	personas     *persona.Loader
	chat         *chat.Client
	pipeline     *pipeline.Pipeline
	healthServer *HealthServer
}

// New builds the application: database, persona, Matrix client and the
// message pipeline. Nothing starts running until Run.
func New(config *Config) (*App, error) {
	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.Open(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}

	personas, err := persona.Load(config.PersonaPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: load persona: %w", err)
	}
	slog.Info("persona loaded", "name", personas.Current().Name, "path", config.PersonaPath)

	// Inject the DB so the client persists the sync token across restarts.
	matrixCfg := config.Matrix
	matrixCfg.DB = st.DB()
	if matrixCfg.BotName == "" {
		matrixCfg.BotName = personas.Current().Name
	}
	slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver)
	chatClient, err := chat.New(&matrixCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: init Matrix client: %w", err)
	}

	profiles := memory.NewSQLiteProfileStore(st.DB(), slog.Default())
	transcripts := memory.NewTranscriptTracker(config.TranscriptCap)

	assembler := prompt.NewAssembler(personas, profiles, transcripts, prompt.Config{}, slog.Default())

	p := pipeline.New(pipeline.Config{
		AdminSenders: config.AdminSenders,
		Channel:      chatClient,
		Builder:      assembler,
		Provider:     llm.New(config.LLM),
		Persona:      personas,
		Transcripts:  transcripts,
		Profiles:     profiles,
		Cooldown:     guard.NewCooldown(config.Cooldown),
		Budget:       guard.NewBudget(config.BudgetLimit, time.Minute),
		Humanizer:    humanize.New(nil),
	})

	var healthServer *HealthServer
	if config.HTTPAddr != "" {
		healthServer = NewHealthServer(config.HTTPAddr, profiles)
		slog.Info("health server configured", "addr", config.HTTPAddr)
	}

	return &App{
		config:       config,
		store:        st,
		personas:     personas,
		chat:         chatClient,
		pipeline:     p,
		healthServer: healthServer,
	}, nil
}

// Run starts syncing and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	slog.Info("starting Matrix sync")
	if err := a.chat.Start(ctx, func(ctx context.Context, msg chat.Incoming) {
		// One goroutine per inbound event; the pipeline is fully
		// self-contained failure-wise.
		go a.pipeline.HandleMessage(ctx, msg)
	}); err != nil {
		return fmt.Errorf("app: start Matrix client: %w", err)
	}

	slog.Info("Lina is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop stops the application.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.chat.Stop()

	if a.healthServer != nil {
		slog.Info("stopping health server")
		a.healthServer.Stop()
	}

	slog.Info("closing database")
	a.store.Close()
}
