package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-bot/internal/auth"
)

var hashAdminKeyCmd = &cobra.Command{
	Use:   "hash-admin-key [key]",
	Short: "Hash an operator key for AUTH_ADMIN_KEY_HASH",
	Long:  "Hash an operator key for AUTH_ADMIN_KEY_HASH. Without an argument the key is read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading key: %w", err)
			}
			key = strings.TrimSpace(line)
		}
		if key == "" {
			return errors.New("key must not be empty")
		}
		hash, err := auth.HashAdminKey(key, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
