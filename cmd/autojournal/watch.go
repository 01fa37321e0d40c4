package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal"
	"github.com/Tzeak/obsidian-autojournal/journal/metrics"
)

func watchCmd(a *app) *cobra.Command {
	var (
		debounce    time.Duration
		dumpJSON    bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build journals as export directories appear or change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.WatchDebounce.Duration
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.cfg.MetricsAddr
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			metricsDone := make(chan error, 1)
			if metricsAddr != "" {
				a.metrics = metrics.New()
				go func() {
					err := metrics.Serve(ctx, metricsAddr, a.metrics)
					if err != nil {
						a.logger.Error("metrics server stopped", "addr", metricsAddr, "err", err)
						cancel()
					}
					metricsDone <- err
				}()
				a.logger.Info("serving metrics", "addr", metricsAddr)
			} else {
				metricsDone <- nil
			}

			p, err := a.newPipeline(false)
			if err != nil {
				return err
			}
			defer p.close()

			err = journal.WatchExports(ctx, journal.WatchOptions{
				Root:     a.cfg.ExportRoot,
				Debounce: debounce,
				Logger:   a.logger,
			}, func(ctx context.Context, dateDir string) {
				day, err := journal.DateFromDirectory(dateDir, time.Now())
				if err != nil {
					a.logger.Warn("skipping export directory", "date_dir", dateDir, "err", err)
					return
				}
				if err := a.processDay(ctx, p, day, dumpJSON); err != nil {
					a.logger.Error("journal build failed", "date_dir", dateDir, "err", err)
				}
			})
			cancel()
			if merr := <-metricsDone; merr != nil && err == nil {
				err = fmt.Errorf("metrics server: %w", merr)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", journal.DefaultWatchDebounce, "Quiet period before a changed export directory is processed")
	cmd.Flags().BoolVar(&dumpJSON, "dump-json", false, "Also write <journal>.json")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address, e.g. 127.0.0.1:9464 (default: metrics_addr setting)")
	return cmd
}
