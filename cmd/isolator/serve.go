package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/api"
	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/pipeline"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/spf13/cobra"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	var rateLimit int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest report over HTTP, refreshing it on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			backends, err := storage.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer backends.Close()

			deps, err := reportDependencies(ctx, cfg, backends.Reader)
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, deps)
			if err != nil {
				return err
			}

			refresher := pipeline.NewRefresher(p, cfg.API.RefreshSchedule)
			if err := refresher.Start(ctx); err != nil {
				return err
			}
			defer refresher.Stop()

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.API.Port),
				Handler:      api.NewRouter(refresher, rateLimit),
				ReadTimeout:  cfg.API.ReadTimeout,
				WriteTimeout: cfg.API.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("HTTP server failed: %w", err)
			case <-ctx.Done():
			}

			logger.Info("Shutting down report API")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down HTTP server", logger.ErrorField(err))
			}
			logger.Info("Report API stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 20, "requests per second per client, 0 disables")
	return cmd
}
