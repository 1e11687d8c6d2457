package main

import (
	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/data"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/spf13/cobra"
)

func newDownloadCmd(load func() (*config.Config, error)) *cobra.Command {
	var providerType string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download prices, splits and share counts for the universe",
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

			provider, err := data.NewProviderFactory().CreateProvider(providerType, data.ProviderConfigFromConfig(cfg.Download))
			if err != nil {
				return err
			}

			logger.Info("Starting download",
				logger.String("provider", provider.GetName()),
				logger.Int("symbols", len(symbols)),
				logger.Int("workers", cfg.Download.WorkerCount),
			)
			downloader := data.NewDownloader(provider, data.LayoutFromConfig(cfg.Data), cfg.Download.WorkerCount)
			_, err = downloader.Run(cmd.Context(), symbols)
			return err
		},
	}
	cmd.Flags().StringVar(&providerType, "provider", "yahoo", "data provider")
	return cmd
}
