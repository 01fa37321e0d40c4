package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal/cache"
)

func cacheCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune-cache",
		Short: "Delete cached summaries older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.CachePath == "" {
				return configError{errors.New("cache_path is empty")}
			}
			if olderThan <= 0 {
				return configError{errors.New("--older-than must be > 0")}
			}
			c, err := cache.Open(a.cfg.CachePath)
			if err != nil {
				return err
			}
			defer c.Close()

			removed, err := c.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			left, err := c.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "pruned=%d remaining=%d cache=%s\n", removed, left, a.cfg.CachePath)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Age above which cached summaries are deleted")
	return cmd
}
