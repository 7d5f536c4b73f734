package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-bot/internal/auth"
)

var (
	tokenChannel string
	tokenTTL     int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the chat channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTLMinutes
		}
		tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenIssuer, ttl)
		token, expiresAt, err := tm.GenerateToken(tokenChannel)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintln(cmd.ErrOrStderr(), "expires", expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenChannel, "channel", "slack", "channel id embedded in the token")
	tokenCmd.Flags().IntVar(&tokenTTL, "ttl", 0, "lifetime in minutes (default AUTH_TOKEN_TTL_MINUTES)")
}
