package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/pipeline"
	"github.com/mohamedkhairy/stock-isolator/internal/universe"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "isolator",
		Short:         "Filter stocks on thresholds and rank daily best and worst performers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file (default $ISOLATOR_CONFIG_FILE or config.yaml)")

	load := func() (*config.Config, error) {
		return setup(configFile)
	}

	rootCmd.AddCommand(
		newDownloadCmd(load),
		newCleanCmd(load),
		newRunCmd(load),
		newServeCmd(load),
	)
	return rootCmd
}

// exitCode is 2 for configuration errors and 1 otherwise
func exitCode(err error) int {
	var cfgErr *models.ConfigurationError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

// setup loads configuration and initializes the logger
func setup(configFile string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func loadUniverse(cfg *config.Config) ([]string, error) {
	symbols, err := universe.Load(cfg.Data.StockListPath, cfg.Universe.Countries)
	if err != nil {
		return nil, models.NewConfigurationError(err, "universe")
	}
	return symbols, nil
}

func pushMetrics(cfg *config.Config) {
	if err := pipeline.PushMetrics(cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName); err != nil {
		logger.Warn("Failed to push metrics", logger.ErrorField(err))
	}
}
