// Package main is the catalog loader: it reads a catalog export, embeds every synopsis
// and bulk-loads the books into the configured store.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/config"
	logpkg "github.com/kailas-cloud/shelfwise/internal/logger"
	"github.com/kailas-cloud/shelfwise/internal/version"
)

var (
	cfg    config.Config
	env    string
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "catalog-loader",
	Short:   "Load the library catalog into the shelfwise store",
	Version: version.String(),
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		if e, _ := cmd.Flags().GetString("env"); e != "" {
			env = e
		} else {
			env = config.GetEnv()
		}

		var err error
		cfg, err = config.Load(env)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "config environment (default: $ENV or local)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
