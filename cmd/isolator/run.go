package main

import (
	"context"
	"os"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/pipeline"
	"github.com/mohamedkhairy/stock-isolator/internal/report"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/spf13/cobra"
)

func newRunCmd(load func() (*config.Config, error)) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Filter candidates and rank the best and worst stocks of every day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer pushMetrics(cfg)

			backends, err := storage.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backends.Close()

			deps, err := reportDependencies(cmd.Context(), cfg, backends.Reader)
			if err != nil {
				return err
			}
			if cfg.Report.Console && !quiet {
				deps.Console = report.NewConsole(os.Stdout)
			}

			p, err := pipeline.New(cfg, deps)
			if err != nil {
				return err
			}
			_, err = p.Run(cmd.Context())
			return err
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the report")
	return cmd
}

// reportDependencies builds the pipeline collaborators shared by run and serve
func reportDependencies(ctx context.Context, cfg *config.Config, store storage.SeriesStore) (pipeline.Dependencies, error) {
	var uploader report.Uploader
	if cfg.Report.S3Bucket != "" {
		sink, err := report.NewS3Sink(ctx, cfg.Report.S3Bucket, cfg.Report.S3Prefix, cfg.Report.S3Region)
		if err != nil {
			return pipeline.Dependencies{}, err
		}
		uploader = sink
	}

	publisher, err := report.NewPublisher(cfg.Report.Dir, cfg.Report.Formats, uploader)
	if err != nil {
		return pipeline.Dependencies{}, err
	}
	return pipeline.Dependencies{Store: store, Publisher: publisher}, nil
}
