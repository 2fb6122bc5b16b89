package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mikeboe/search-helper/pkg/app"
	"github.com/mikeboe/search-helper/pkg/config"
)

var (
	envFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "search-helper",
		Short: "A guided search assistant",
		Long: `search-helper asks a short series of questions, runs one web search with
your answers and streams a recommendation written by a language model.

Assistants ("variants") exist for used cars, scholarships, research and
business questions. Run "search-helper variants" to list them.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newChatCmd(),
		newVariantsCmd(),
		newMCPCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies --verbose.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg, nil
}

// setup loads and validates the configuration and builds the application.
// Logs go to stderr so stdout stays free for output and MCP framing.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app.New(ctx, cfg, logger)
}
