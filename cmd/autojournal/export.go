package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

func exportCmd(a *app) *cobra.Command {
	var (
		date, from, to string
		process        bool
		dumpJSON       bool
		timeout        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run imessage-exporter for each selected day",
		Long: "Exports messages for each day into <export-root>/<MM_DD>, from the day itself (inclusive) " +
			"to the next day (exclusive). With --process the journal is built right after each export.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := selectDays(date, from, to, time.Now())
			if err != nil {
				return configError{err}
			}
			ex := &journal.Exporter{
				Path:    a.cfg.ExporterPath,
				Timeout: timeout,
				Stdout:  a.stderr,
				Stderr:  a.stderr,
				Logger:  a.logger,
			}

			var p *pipeline
			if process {
				if p, err = a.newPipeline(false); err != nil {
					return err
				}
				defer p.close()
			}

			for _, day := range days {
				outDir, err := ex.ExportDay(cmd.Context(), a.cfg.ExportRoot, day)
				if err != nil {
					return err
				}
				start, end := journal.ExportRange(day)
				fmt.Fprintf(a.stdout, "exported start=%s end=%s out_dir=%s\n", start, end, outDir)
				if p != nil {
					if err := a.processDay(cmd.Context(), p, day, dumpJSON); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to export, YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVar(&from, "from", "", "First day of a range, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day of a range, YYYY-MM-DD (inclusive)")
	cmd.Flags().BoolVar(&process, "process", false, "Build the journal after each export")
	cmd.Flags().BoolVar(&dumpJSON, "dump-json", false, "With --process, also write <journal>.json")
	cmd.Flags().DurationVar(&timeout, "timeout", journal.DefaultExportTimeout, "Timeout for one exporter run")
	return cmd
}
