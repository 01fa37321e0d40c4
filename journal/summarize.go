package journal

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// SystemPrompt is sent ahead of every conversation body.
const SystemPrompt = `you're helping me summarize a chunk of an iMessage conversation

below is part of the transcript. each message includes:
	•	a timestamp
	•	the sender's name ("Me" means a message from me. others are labeled with their names)
	•	the message text
	•	sometimes: tapback reactions (e.g. "Loved by …", "Laughed by …")

it might be a group convo with 3 or more people

read it and give me a one to two sentence summary, in second-person, saying who you were talking to and what it was about. Use natural language like you're casually recounting what the convo was about. Don't introduce the summary. Don't refer to anyone as "they said" or "you said" — just use natural language.

here's the conversation:`

// Summarizer turns one conversation body into a short summary.
//
// Implementations wrap failures with ErrServiceUnreachable when the backend could not be reached and with
// ErrRequestRejected when it answered with an error.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)

	// Info names the backend and model, e.g. "OpenAI gpt-4o-mini".
	Info() string
}

// ProgressFunc is called before each conversation is summarized. current counts attempted conversations
// from 1; total is the number of conversations passed in.
type ProgressFunc func(current, total int)

// SummarizeAll summarizes conversations one at a time, in order. Conversations shorter than
// MinConversationChars are skipped, and a conversation whose summary fails is logged and left out.
//
// A cancelled ctx stops the batch between conversations; the summaries produced so far are returned with
// the context error.
func SummarizeAll(ctx context.Context, s Summarizer, convs []Conversation, progress ProgressFunc, logger *slog.Logger) ([]SummaryRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("SummarizeAll: summarizer is nil")
	}
	logger = orDiscard(logger)

	out := make([]SummaryRecord, 0, len(convs))
	attempted := 0
	for i, conv := range convs {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("SummarizeAll: %w", err)
		}
		if utf8.RuneCountInString(conv.Content) < MinConversationChars {
			continue
		}
		attempted++
		if progress != nil {
			progress(attempted, len(convs))
		}

		id := fmt.Sprintf("conversation_%d", i+1)
		summary, err := s.Summarize(ctx, conv.Content)
		if err != nil {
			logger.Warn("summary failed; skipping conversation", "conversation_id", id, "filename", conv.Filename, "err", err)
			continue
		}
		out = append(out, SummaryRecord{Summary: summary, ConversationID: id, Filename: conv.Filename})
	}
	logger.Info("summarized conversations", "attempted", attempted, "succeeded", len(out), "total", len(convs))
	return out, nil
}
