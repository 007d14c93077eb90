package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/app"
	"github.com/abhisek/cognify/internal/config"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "cognify",
	Short:        "Adaptive math practice service",
	Long:         "Cognify serves skill-matched practice questions, grades answers and remediates weak prerequisites.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path (overrides COGNIFY_DB)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres (overrides COGNIFY_DB_DRIVER)")
	rootCmd.PersistentFlags().String("log", "", "Log mode: dev or prod (overrides COGNIFY_LOG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(refillCmd)
	rootCmd.AddCommand(conceptsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env and COGNIFY_* variables, then applies flag
// overrides. The --db flag takes priority over everything.
func loadConfig(cmd *cobra.Command) (config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DB = v
		if cfg.DBDriver == store.DriverSQLite {
			if err := store.EnsureDir(v); err != nil {
				return cfg, nil, err
			}
		}
	}
	if v, _ := cmd.Flags().GetString("log"); v != "" {
		cfg.LogMode = v
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// openApp assembles the full service for commands that grade or source
// questions.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.New(commandContext(cmd), cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// openStore opens only the database, for commands that need no LLM.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	defer log.Sync()
	return app.OpenStore(commandContext(cmd), cfg)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
