package main

import (
	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/data"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/spf13/cobra"
)

func newCleanCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Derive market cap and daily change from raw downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer pushMetrics(cfg)

			symbols, err := loadUniverse(cfg)
			if err != nil {
				return err
			}

			backends, err := storage.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backends.Close()

			logger.Info("Starting clean",
				logger.Int("symbols", len(symbols)),
				logger.Int("workers", cfg.Clean.WorkerCount),
			)
			normalizer := data.NewNormalizer(data.LayoutFromConfig(cfg.Data), backends.Backend, cfg.Clean.WorkerCount)
			_, err = normalizer.Run(cmd.Context(), symbols)
			return err
		},
	}
}
