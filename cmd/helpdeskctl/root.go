package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/config"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:               "helpdeskctl",
	Short:             "Operator tooling for the help-desk bot",
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("store", "", "store driver: postgres or sqlite")
	flags.String("sqlite-path", "", "sqlite database file")
	flags.String("postgres-dsn", "", "postgres connection string")
	flags.String("log-level", "", "log level")

	for key, flag := range map[string]string{
		"store.driver": "store",
		"sqlite.path":  "sqlite-path",
		"postgres.dsn": "postgres-dsn",
		"logger.level": "log-level",
	} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}

	rootCmd.AddCommand(migrateCmd, tokenCmd, hashAdminKeyCmd, rosterCmd, ticketCmd)
}

// initConfig reads the optional config file and HELPDESK_* environment overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "reading config:", err)
			os.Exit(1)
		}
	}
	viper.SetEnvPrefix("helpdesk")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func preRun(cmd *cobra.Command, args []string) error {
	loaded, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(loaded)
	cfg = loaded
	logger = observability.MustLogger(cfg.Logger)
	return nil
}

// applyOverrides lets flags, the config file and HELPDESK_* variables win
// over the service's own environment.
func applyOverrides(c *config.Config) {
	if v := viper.GetString("store.driver"); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := viper.GetString("sqlite.path"); v != "" {
		c.SQLite.Path = v
	}
	if v := viper.GetString("postgres.dsn"); v != "" {
		c.Postgres.DSN = v
	}
	if v := viper.GetString("postgres.migrations_dir"); v != "" {
		c.Postgres.MigrationsDir = v
	}
	if v := viper.GetString("logger.level"); v != "" {
		c.Logger.Level = v
	}
	if v := viper.GetString("auth.jwt_secret"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := viper.GetString("auth.token_issuer"); v != "" {
		c.Auth.TokenIssuer = v
	}
	if viper.IsSet("auth.bcrypt_cost") {
		c.Auth.BcryptCost = viper.GetInt("auth.bcrypt_cost")
	}
}

func openStore(ctx context.Context) (*repository.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return repository.Open(ctx, cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
