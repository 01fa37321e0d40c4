package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tzeak/obsidian-autojournal/journal"
	"github.com/Tzeak/obsidian-autojournal/journal/cache"
	"github.com/Tzeak/obsidian-autojournal/journal/fileutils"
	"github.com/Tzeak/obsidian-autojournal/journal/metrics"
	"github.com/Tzeak/obsidian-autojournal/journal/provider"
)

type pipeline struct {
	dir        *journal.Directory
	segmenter  *journal.Segmenter
	summarizer journal.Summarizer
	close      func()
}

// journalDump is the optional JSON sidecar written next to a journal.
type journalDump struct {
	Date          string                  `json:"date"`
	Backend       string                  `json:"backend"`
	Conversations []journal.Conversation  `json:"conversations"`
	Summaries     []journal.SummaryRecord `json:"summaries"`
}

// loadDirectory loads the configured contacts file, or one discovered in the output directory. Without a
// usable file the directory stays empty and identifiers are left as they are.
func (a *app) loadDirectory() (*journal.Directory, error) {
	dir := journal.NewDirectory(a.logger)
	path := a.cfg.ContactsPath
	if path == "" {
		path = journal.DiscoverContacts(a.cfg.OutputPath)
	}
	if path == "" {
		a.logger.Info("no contacts file found; proceeding without contact replacement")
		return dir, nil
	}
	if err := dir.LoadFile(path); err != nil {
		return dir, err
	}
	phones, emails := dir.Len()
	a.logger.Info("contacts loaded", "path", path, "phone_keys", phones, "emails", emails)
	return dir, nil
}

func (a *app) newSummarizer() (journal.Summarizer, error) {
	opts := provider.Options{
		APIKey: a.cfg.OpenAIAPIKey,
		Retry:  provider.DefaultRetryPolicy(),
		Logger: a.logger,
	}
	if a.cfg.UseOpenAI {
		if opts.APIKey == "" {
			return nil, configError{errors.New("missing OPENAI_API_KEY (or pass --api-key)")}
		}
		opts.Model = a.cfg.OpenAIModel
		return provider.NewOpenAI(opts)
	}
	opts.Model = a.cfg.OllamaModel
	opts.BaseURL = a.cfg.OllamaURL
	opts.APIKey = ""
	return provider.NewOllama(opts)
}

func (a *app) newPipeline(noCache bool) (*pipeline, error) {
	dir, err := a.loadDirectory()
	if err != nil {
		a.logger.Warn("failed to load contacts; proceeding without contact replacement", "err", err)
	}
	sum, err := a.newSummarizer()
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		dir:        dir,
		segmenter:  journal.NewSegmenter(journal.NewNamer(dir, a.logger), journal.NewRewriter(dir, a.logger), a.logger),
		summarizer: sum,
		close:      func() {},
	}
	if !noCache && a.cfg.CachePath != "" {
		if c, err := cache.Open(a.cfg.CachePath); err != nil {
			a.logger.Warn("summary cache unavailable", "path", a.cfg.CachePath, "err", err)
		} else {
			cached := cache.Wrap(sum, c, a.logger)
			p.summarizer = cached
			p.close = func() { _ = c.Close() }
			a.logger.Debug("summary cache enabled", "path", a.cfg.CachePath, "run_id", cached.RunID())
		}
	}
	if a.metrics != nil {
		p.summarizer = metrics.Wrap(p.summarizer, a.metrics)
	}
	return p, nil
}

// processText builds the journal for day from a combined transcript and writes it to the output directory.
func (a *app) processText(ctx context.Context, p *pipeline, text string, day time.Time, dumpJSON bool) (string, journal.Result, error) {
	heading := a.cfg.HeadingTemplate
	res, err := journal.BuildJournal(ctx, text, journal.BuildOptions{
		Segmenter:  p.segmenter,
		Summarizer: p.summarizer,
		Progress: func(current, total int) {
			a.logger.Info("generating summaries", "current", current, "total", total)
		},
		Assemble: journal.AssembleOptions{TargetDate: day, HeadingTemplate: &heading},
		Logger:   a.logger,
	})
	if err != nil {
		return "", res, err
	}

	path := filepath.Join(a.cfg.OutputPath, journal.GenerateFilename(a.cfg.FilenameTemplate, day))
	if err := fileutils.WriteFileAtomic(path, []byte(res.Document), 0o644); err != nil {
		return "", res, err
	}
	if dumpJSON {
		dump := journalDump{
			Date:          journal.DateString(day),
			Backend:       p.summarizer.Info(),
			Conversations: res.Conversations,
			Summaries:     res.Summaries,
		}
		if err := fileutils.WriteJSONFileAtomic(strings.TrimSuffix(path, ".md")+".json", dump, true); err != nil {
			return path, res, err
		}
	}
	return path, res, nil
}

// processDay combines the export directory for day and builds its journal.
func (a *app) processDay(ctx context.Context, p *pipeline, day time.Time, dumpJSON bool) error {
	dateDir := journal.DirectoryDate(day)
	text, err := journal.CombineTranscripts(a.cfg.ExportRoot, dateDir)
	if err != nil {
		return err
	}
	path, res, err := a.processText(ctx, p, text, day, dumpJSON)
	a.observeJournal(res, err)
	if errors.Is(err, journal.ErrNoConversations) {
		fmt.Fprintf(a.stdout, "date=%s date_dir=%s conversations=0 journal=\n", journal.DateString(day), dateDir)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "date=%s date_dir=%s conversations=%d summaries=%d journal=%s\n",
		journal.DateString(day), dateDir, len(res.Conversations), len(res.Summaries), path)
	return nil
}

func (a *app) observeJournal(res journal.Result, err error) {
	if a.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, journal.ErrNoConversations):
		a.metrics.ObserveJournal("empty", 0)
	case err != nil:
		a.metrics.ObserveJournal("failed", len(res.Conversations))
	default:
		a.metrics.ObserveJournal("written", len(res.Conversations))
	}
}

// selectDays resolves --date or --from/--to into the days to work on. With neither, it is yesterday.
func selectDays(date, from, to string, now time.Time) ([]time.Time, error) {
	if from != "" || to != "" {
		if date != "" {
			return nil, errors.New("use either --date or --from/--to")
		}
		if from == "" || to == "" {
			return nil, errors.New("--from and --to must be used together")
		}
		start, err := journal.ParseDate(from, now.Location())
		if err != nil {
			return nil, err
		}
		end, err := journal.ParseDate(to, now.Location())
		if err != nil {
			return nil, err
		}
		days := journal.DaysBetween(start, end)
		if len(days) == 0 {
			return nil, fmt.Errorf("--to %s is before --from %s", to, from)
		}
		return days, nil
	}
	if date == "" {
		return []time.Time{journal.Yesterday(now)}, nil
	}
	day, err := journal.ParseDate(date, now.Location())
	if err != nil {
		return nil, err
	}
	return []time.Time{day}, nil
}
