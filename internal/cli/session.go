package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/owenmorgan/calbot/internal/auth"
	"github.com/owenmorgan/calbot/internal/config"
	"github.com/owenmorgan/calbot/internal/store"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage user sessions",
	}

	cmd.AddCommand(newSessionCreateCmd())
	return cmd
}

// newSessionCreateCmd mints a bearer token for a user, creating the
// user if needed, and optionally stores their Google credentials.
func newSessionCreateCmd() *cobra.Command {
	var (
		email        string
		ttl          time.Duration
		accessToken  string
		refreshToken string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			db, err := store.Open(paths.DBPath(cfg.Store), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			authStore := auth.NewSQLiteStore(db, nil, log)
			ctx := cmd.Context()

			userID, err := authStore.CreateUser(ctx, email)
			if err != nil {
				return err
			}

			if accessToken != "" {
				tok := &oauth2.Token{
					AccessToken:  accessToken,
					RefreshToken: refreshToken,
					TokenType:    "Bearer",
				}
				if err := authStore.SaveGoogleToken(ctx, userID, tok); err != nil {
					return err
				}
				log.Info().Str("userId", userID).Msg("google credentials stored")
			}

			token, err := authStore.CreateSession(ctx, userID, ttl)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "user email (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "session lifetime")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Google OAuth access token to store")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Google OAuth refresh token to store")

	return cmd
}
