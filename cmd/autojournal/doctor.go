package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tzeak/obsidian-autojournal/journal"
	"github.com/Tzeak/obsidian-autojournal/journal/cache"
	"github.com/Tzeak/obsidian-autojournal/journal/fileutils"
	"github.com/Tzeak/obsidian-autojournal/journal/provider"
)

func doctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify directories, contacts, exporter, model backend and cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := a.stdout
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			fmt.Fprintln(w, "=== Directories ===")
			checkDir(w, "Output", a.cfg.OutputPath)
			checkDir(w, "Exports", a.cfg.ExportRoot)

			fmt.Fprintln(w, "\n=== Contacts ===")
			dir, err := a.loadDirectory()
			switch {
			case err != nil:
				fmt.Fprintf(w, "  Status: ERROR (%v)\n", err)
			default:
				phones, emails := dir.Len()
				fmt.Fprintf(w, "  Phone keys: %d\n", phones)
				fmt.Fprintf(w, "  Emails:     %d\n", emails)
			}

			fmt.Fprintln(w, "\n=== Exporter ===")
			path := journal.FindExporter(a.cfg.ExporterPath)
			if path == "" {
				fmt.Fprintf(w, "  %s (NOT FOUND; install with 'brew install imessage-exporter')\n", a.cfg.ExporterPath)
			} else {
				st, err := (&journal.Exporter{Path: path}).Check(ctx)
				if err != nil {
					fmt.Fprintf(w, "  %s (ERROR: %v)\n", path, err)
				} else {
					fmt.Fprintf(w, "  %s (OK, version %s)\n", path, st.Version)
				}
				if path != a.cfg.ExporterPath {
					fmt.Fprintf(w, "  note: configured exporter_path %s does not exist\n", a.cfg.ExporterPath)
				}
			}

			fmt.Fprintln(w, "\n=== Model backend ===")
			checkBackend(ctx, w, a)

			fmt.Fprintln(w, "\n=== Summary cache ===")
			checkCache(ctx, w, a.cfg.CachePath)
			return nil
		},
	}
}

func checkDir(w io.Writer, name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Fprintf(w, "  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Fprintf(w, "  %s: %s (OK)\n", name, path)
	}
}

func checkBackend(ctx context.Context, w io.Writer, a *app) {
	if a.cfg.UseOpenAI {
		fmt.Fprintf(w, "  OpenAI model: %s\n", a.cfg.OpenAIModel)
		if a.cfg.OpenAIAPIKey == "" {
			fmt.Fprintln(w, "  API key: MISSING (set openai_api_key or OPENAI_API_KEY)")
		} else {
			fmt.Fprintf(w, "  API key: set (%s)\n", fileutils.Truncate(a.cfg.OpenAIAPIKey, 6))
		}
		return
	}
	fmt.Fprintf(w, "  Ollama: %s model=%s\n", a.cfg.OllamaURL, a.cfg.OllamaModel)
	o, err := provider.NewOllama(provider.Options{BaseURL: a.cfg.OllamaURL, Model: a.cfg.OllamaModel})
	if err != nil {
		fmt.Fprintf(w, "  Status: ERROR (%v)\n", err)
		return
	}
	if err := o.Health(ctx); err != nil {
		fmt.Fprintf(w, "  Status: UNREACHABLE (%v)\n", err)
		return
	}
	fmt.Fprintln(w, "  Status: OK")
}

func checkCache(ctx context.Context, w io.Writer, path string) {
	if path == "" {
		fmt.Fprintln(w, "  Disabled")
		return
	}
	fmt.Fprintf(w, "  Path: %s\n", path)
	if !fileutils.FileExists(path) {
		fmt.Fprintln(w, "  Status: NOT CREATED YET")
		return
	}
	c, err := cache.Open(path)
	if err != nil {
		fmt.Fprintf(w, "  Status: ERROR (%v)\n", err)
		return
	}
	defer c.Close()
	n, err := c.Len(ctx)
	if err != nil {
		fmt.Fprintf(w, "  Status: ERROR (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "  Entries: %d\n", n)
}
