package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/Tzeak/obsidian-autojournal/journal"
	"github.com/Tzeak/obsidian-autojournal/journal/fileutils"
	"github.com/Tzeak/obsidian-autojournal/journal/provider"
)

const defaultConfigPath = "~/.config/autojournal/config.toml"

type Config struct {
	ContactsPath     string   `toml:"contacts_path"`
	OutputPath       string   `toml:"output_path"`
	ExportRoot       string   `toml:"export_root"`
	FilenameTemplate string   `toml:"filename_template"`
	HeadingTemplate  string   `toml:"heading_template"`
	UseOpenAI        bool     `toml:"use_openai"`
	OpenAIAPIKey     string   `toml:"openai_api_key"`
	OpenAIModel      string   `toml:"openai_model"`
	OllamaModel      string   `toml:"ollama_model"`
	OllamaURL        string   `toml:"ollama_url"`
	ExporterPath     string   `toml:"exporter_path"`
	CachePath        string   `toml:"cache_path"`
	LogLevel         string   `toml:"log_level"`
	LogFormat        string   `toml:"log_format"`
	WatchDebounce    duration `toml:"watch_debounce"`
	MetricsAddr      string   `toml:"metrics_addr"`
}

// duration reads TOML strings such as "5s".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// configError marks problems with settings or flags; main exits 2 for them.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func (c Config) Validate() error {
	if c.OutputPath == "" {
		return errors.New("missing output_path")
	}
	if !strings.Contains(c.FilenameTemplate, "{date}") {
		return errors.New("filename_template must contain {date}")
	}
	if c.UseOpenAI && c.OpenAIModel == "" {
		return errors.New("missing openai_model")
	}
	if !c.UseOpenAI && c.OllamaModel == "" {
		return errors.New("missing ollama_model")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error (got %q)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	if c.WatchDebounce.Duration < 0 {
		return errors.New("watch_debounce must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutputPath:       "Autojournal",
		FilenameTemplate: "Daily Journal {date}",
		HeadingTemplate:  journal.DefaultHeadingTemplate,
		OpenAIModel:      "gpt-4o-mini",
		OllamaModel:      "llama3.2",
		OllamaURL:        provider.DefaultOllamaURL,
		ExporterPath:     journal.CommonExporterPaths[0],
		CachePath:        "~/.config/autojournal/summaries.db",
		LogLevel:         "info",
		LogFormat:        "text",
		WatchDebounce:    duration{journal.DefaultWatchDebounce},
	}
}

// bindFlags registers the settings that can be overridden on the command line.
func bindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ContactsPath, "contacts", cfg.ContactsPath, "Contacts file (.vcf or .csv); default: <output>/contacts.vcf or contacts.csv")
	fs.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Directory journal files are written to")
	fs.StringVar(&cfg.ExportRoot, "export-root", cfg.ExportRoot, "Directory holding MM_DD export folders (default: <output>)")
	fs.BoolVar(&cfg.UseOpenAI, "openai", cfg.UseOpenAI, "Summarize with OpenAI instead of Ollama")
	fs.StringVar(&cfg.OpenAIAPIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "OpenAI model to use")
	fs.StringVar(&cfg.OllamaModel, "ollama-model", cfg.OllamaModel, "Ollama model to use")
	fs.StringVar(&cfg.OllamaURL, "ollama-url", cfg.OllamaURL, "Ollama server URL")
	fs.StringVar(&cfg.ExporterPath, "exporter", cfg.ExporterPath, "Path to the imessage-exporter binary")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "Summary cache database (empty disables caching)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
}

// overlayFlags copies every flag the user set explicitly from flagged into dst.
func overlayFlags(fs *pflag.FlagSet, dst *Config, flagged Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "contacts":
			dst.ContactsPath = flagged.ContactsPath
		case "output":
			dst.OutputPath = flagged.OutputPath
		case "export-root":
			dst.ExportRoot = flagged.ExportRoot
		case "openai":
			dst.UseOpenAI = flagged.UseOpenAI
		case "api-key":
			dst.OpenAIAPIKey = flagged.OpenAIAPIKey
		case "openai-model":
			dst.OpenAIModel = flagged.OpenAIModel
		case "ollama-model":
			dst.OllamaModel = flagged.OllamaModel
		case "ollama-url":
			dst.OllamaURL = flagged.OllamaURL
		case "exporter":
			dst.ExporterPath = flagged.ExporterPath
		case "cache":
			dst.CachePath = flagged.CachePath
		case "log-level":
			dst.LogLevel = flagged.LogLevel
		case "log-format":
			dst.LogFormat = flagged.LogFormat
		}
	})
}

// loadConfig builds the effective settings: defaults, then the TOML file, then explicit flags, then the
// OPENAI_API_KEY fallback. A missing file is only an error when path was given explicitly.
func loadConfig(path string, explicit bool, fs *pflag.FlagSet, flagged Config) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = defaultConfigPath
	}
	path = fileutils.ExpandHome(path)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	if fs != nil {
		overlayFlags(fs, &cfg, flagged)
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.ContactsPath = fileutils.ExpandHome(cfg.ContactsPath)
	cfg.OutputPath = fileutils.ExpandHome(cfg.OutputPath)
	cfg.ExportRoot = fileutils.ExpandHome(cfg.ExportRoot)
	cfg.ExporterPath = fileutils.ExpandHome(cfg.ExporterPath)
	cfg.CachePath = fileutils.ExpandHome(cfg.CachePath)
	if cfg.ExportRoot == "" {
		cfg.ExportRoot = cfg.OutputPath
	}
	return cfg, nil
}
