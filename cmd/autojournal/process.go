package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

func processCmd(a *app) *cobra.Command {
	var (
		date, from, to string
		file           string
		dumpJSON       bool
		noCache        bool
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Summarize exported transcripts into a daily journal",
		Long: "Combines every .txt file in <export-root>/<MM_DD> for each selected day, resolves contacts, " +
			"summarizes each conversation and writes the journal to the output directory. With --file, a " +
			"single already-combined transcript is processed instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := selectDays(date, from, to, time.Now())
			if err != nil {
				return configError{err}
			}
			if file != "" && len(days) != 1 {
				return configError{errors.New("--file processes a single day; use --date")}
			}

			p, err := a.newPipeline(noCache)
			if err != nil {
				return err
			}
			defer p.close()

			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				path, res, err := a.processText(cmd.Context(), p, string(b), days[0], dumpJSON)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "date=%s conversations=%d summaries=%d journal=%s\n",
					journal.DateString(days[0]), len(res.Conversations), len(res.Summaries), path)
				return nil
			}

			for _, day := range days {
				if err := a.processDay(cmd.Context(), p, day, dumpJSON); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Journal day, YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVar(&from, "from", "", "First day of a range, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day of a range, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&file, "file", "", "Process this combined transcript instead of an export directory")
	cmd.Flags().BoolVar(&dumpJSON, "dump-json", false, "Also write conversations and summaries as <journal>.json")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write the summary cache")
	return cmd
}
