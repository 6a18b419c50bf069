package main

import (
	"fmt"
	"os"

	"github.com/mkarren/lina/common/environment"
	"github.com/mkarren/lina/common/version"
	"github.com/mkarren/lina/internal/lina/app"
	"github.com/mkarren/lina/internal/lina/chat"
	"github.com/mkarren/lina/internal/lina/llm"
)

func main() {
	fmt.Printf("Lina Companion Bot\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Println()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lina, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Lina: %v\n", err)
		os.Exit(1)
	}
	defer lina.Stop()

	if err := lina.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Lina: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the application config from environment variables.
// Matrix credentials and the LLM API key are required; everything else
// has a sensible default.
func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}
	apiKey, err := environment.RequiredString("LLM_API_KEY")
	if err != nil {
		return nil, err
	}

	return &app.Config{
		DatabasePath: environment.StringOr("DATABASE_PATH", "./lina.db"),
		PersonaPath:  environment.StringOr("PERSONA_PATH", "./persona.yaml"),
		Matrix: chat.Config{
			Homeserver:  homeserver,
			UserID:      userID,
			AccessToken: accessToken,
			BotName:     environment.StringOr("BOT_NAME", ""),
		},
		LLM: llm.Config{
			APIKey:  apiKey,
			BaseURL: environment.StringOr("LLM_BASE_URL", ""),
			Model:   environment.StringOr("LLM_MODEL", ""),
			Timeout: environment.DurationOr("LLM_TIMEOUT", 0),
		},
		AdminSenders:  environment.StringSliceOr("ADMIN_SENDERS", nil),
		Cooldown:      environment.DurationOr("USER_COOLDOWN", 0),
		BudgetLimit:   environment.IntOr("GENERATION_BUDGET_PER_MINUTE", 0),
		TranscriptCap: environment.IntOr("TRANSCRIPT_CAP", 0),
		HTTPAddr:      environment.StringOr("HTTP_ADDR", ""),
	}, nil
}
