package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/owenmorgan/calbot/internal/agent"
	"github.com/owenmorgan/calbot/internal/auth"
	"github.com/owenmorgan/calbot/internal/calendar"
	"github.com/owenmorgan/calbot/internal/config"
	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/server"
	"github.com/owenmorgan/calbot/internal/store"
	"github.com/owenmorgan/calbot/internal/tools"
)

// devToken is the bearer token honored by the in-memory auth store.
const devToken = "dev"

func newServeCmd() *cobra.Command {
	var (
		port         int
		fakeCalendar bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the calbot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("preparing data directories: %w", err)
			}
			log = logging.New(nil, cfg.Logging.Level, cfg.Logging.ConsoleStyle)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			authStore, tokenProvider, cleanup, err := buildAuthStore(cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			var gateway calendar.Gateway
			if fakeCalendar {
				fake := calendar.NewFake()
				fake.Seed(sampleEvents()...)
				gateway = fake
				log.Warn().Msg("using seeded fake calendar, no Google calls will be made")
			} else {
				gateway = calendar.NewGoogleGateway(tokenProvider, log)
			}

			registry, err := tools.NewRegistry(log, append(
				tools.CalendarDefinitions(gateway),
				tools.ClockDefinition(time.Now),
			)...)
			if err != nil {
				return fmt.Errorf("building tool registry: %w", err)
			}

			var client llm.Client
			switch cfg.LLM.Provider {
			case "mock":
				client = &llm.MockClient{}
				log.Warn().Msg("using mock model client")
			default:
				client = llm.NewGroqClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
			}
			log.Info().Str("provider", client.Name()).Str("model", cfg.LLM.Model).Msg("model client ready")

			srv := server.New(
				cfg.Server,
				agent.LoopConfig{
					Model:       cfg.LLM.Model,
					MaxTokens:   cfg.LLM.MaxTokens,
					Temperature: cfg.LLM.Temperature,
				},
				authStore,
				gateway,
				client,
				registry,
				log,
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&fakeCalendar, "fake-calendar", false, "serve a seeded in-memory calendar instead of Google")

	return cmd
}

// buildAuthStore picks the configured session store. The returned
// cleanup closes the database when one was opened.
func buildAuthStore(cfg config.Config, log *logging.Logger) (auth.Store, calendar.TokenProvider, func(), error) {
	if cfg.Store.Driver == "memory" {
		mem := auth.NewMemory()
		mem.Grant(devToken, domain.Session{UserID: "dev", Email: "dev@example.com"})
		log.Warn().Str("token", devToken).Msg("using in-memory auth store with a development session")
		return mem, mem, func() {}, nil
	}

	db, err := store.Open(paths.DBPath(cfg.Store), log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	sqlStore := auth.NewSQLiteStore(db, oauthConfig(cfg.Google), log)
	return sqlStore, sqlStore, func() { db.Close() }, nil
}

// oauthConfig builds the Google OAuth client, or nil when not
// configured (tokens then go unrefreshed).
func oauthConfig(cfg config.GoogleConfig) *oauth2.Config {
	if cfg.ClientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarScope},
	}
}

// sampleEvents seeds the fake calendar for local development.
func sampleEvents() []domain.Event {
	today := time.Now().Truncate(24 * time.Hour)
	return []domain.Event{
		{
			ID:    "sample-standup",
			Title: "Team standup",
			Start: today.Add(9 * time.Hour),
			End:   today.Add(9*time.Hour + 30*time.Minute),
		},
		{
			ID:        "sample-review",
			Title:     "Quarterly review",
			Start:     today.Add(15 * time.Hour),
			End:       today.Add(16 * time.Hour),
			Attendees: []string{"dev@example.com", "boss@example.com"},
		},
	}
}
