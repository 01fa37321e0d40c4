package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// BuildOptions wires one journal build.
type BuildOptions struct {
	Segmenter  *Segmenter
	Summarizer Summarizer
	Progress   ProgressFunc
	Assemble   AssembleOptions
	Logger     *slog.Logger
}

// Result is everything one journal build produced.
type Result struct {
	Conversations []Conversation
	Summaries     []SummaryRecord
	Document      string
}

// BuildJournal segments a combined transcript, summarizes each conversation and assembles the journal.
//
// When no conversation survives segmentation it returns ErrNoConversations and an empty Result. A
// cancelled ctx returns the partial summaries, with the document assembled from them, together with the
// context error.
func BuildJournal(ctx context.Context, text string, opts BuildOptions) (Result, error) {
	if opts.Segmenter == nil {
		return Result{}, errors.New("BuildJournal: Segmenter is nil")
	}
	if opts.Summarizer == nil {
		return Result{}, errors.New("BuildJournal: Summarizer is nil")
	}
	logger := orDiscard(opts.Logger)

	convs := opts.Segmenter.Segment(text)
	if len(convs) == 0 {
		return Result{}, fmt.Errorf("BuildJournal: %w", ErrNoConversations)
	}
	logger.Info("found conversations", "count", len(convs))

	summaries, err := SummarizeAll(ctx, opts.Summarizer, convs, opts.Progress, logger)

	assemble := opts.Assemble
	if assemble.LLMInfo == "" {
		assemble.LLMInfo = opts.Summarizer.Info()
	}
	res := Result{
		Conversations: convs,
		Summaries:     summaries,
		Document:      Assemble(summaries, assemble),
	}
	if err != nil {
		return res, fmt.Errorf("BuildJournal: %w", err)
	}
	return res, nil
}

// DiscoverContacts returns dir/contacts.vcf or dir/contacts.csv, whichever exists first, or "".
func DiscoverContacts(dir string) string {
	for _, name := range []string{"contacts.vcf", "contacts.csv"} {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}
