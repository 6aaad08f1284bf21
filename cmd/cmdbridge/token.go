package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seelebot/cmdbridge/internal/auth"
)

// newTokenCommand mints a JWT accepted by the /bridge admin routes, signed
// with the configured server secret.
func newTokenCommand() *cobra.Command {
	var userID string
	var lifetime time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for the bridge admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := provideConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Server.JWTSecret) == "" {
				return fmt.Errorf("server.jwt_secret is not configured")
			}
			signed, expiresAt, err := auth.GenerateToken(userID, cfg.Server.JWTSecret, lifetime)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id embedded in the token claims")
	cmd.Flags().DurationVar(&lifetime, "expires-in", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
