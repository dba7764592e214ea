package main

import (
	"os"

	sharedLogger "adventure-server/shared/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "questctl",
		Short:         "Adventure server maintenance tool",
		Long:          `questctl applies database migrations, resolves pre-built character sheets and validates adventure templates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			// The migrator reports through zerolog's global logger.
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).With().Timestamp().Logger()

			logger, err := sharedLogger.New(sharedLogger.Config{Level: opts.logLevel, Encoding: "console", OutputPath: "stderr"})
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newBuildsCmd(opts))
	cmd.AddCommand(newScenariosCmd(opts))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
