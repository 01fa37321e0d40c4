package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal/metrics"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&app{stdout: os.Stdout, stderr: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		var ce configError
		if errors.As(err, &ce) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app carries the resolved settings and writers shared by every subcommand.
type app struct {
	configPath string
	flagged    Config

	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	a.flagged = defaultConfig()
	root := &cobra.Command{
		Use:           "autojournal",
		Short:         "Turn exported iMessage transcripts into a daily Markdown journal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("config")
			cfg, err := loadConfig(a.configPath, explicit, cmd.Flags(), a.flagged)
			if err != nil {
				return configError{err}
			}
			if err := cfg.Validate(); err != nil {
				return configError{err}
			}
			logger, err := newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return configError{err}
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Settings file (default "+defaultConfigPath+")")
	bindFlags(pf, &a.flagged)

	root.AddCommand(processCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(contactsCmd(a))
	root.AddCommand(watchCmd(a))
	root.AddCommand(doctorCmd(a))
	root.AddCommand(cacheCmd(a))
	return root
}
