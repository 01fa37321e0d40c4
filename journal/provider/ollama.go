package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama summarizes conversations through Ollama's OpenAI-compatible chat endpoint.
type Ollama struct {
	client  openai.Client
	baseURL string
	model   string
	retry   RetryPolicy
	logger  *slog.Logger

	healthy atomic.Bool
}

// NewOllama returns an Ollama summarizer. BaseURL defaults to DefaultOllamaURL; Model is required.
func NewOllama(opts Options) (*Ollama, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("NewOllama: model is empty")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultOllamaURL
	}
	key := opts.APIKey
	if key == "" {
		key = "ollama"
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(base + "/v1/"),
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return &Ollama{
		client:  openai.NewClient(reqOpts...),
		baseURL: base,
		model:   opts.Model,
		retry:   opts.Retry,
		logger:  loggerOrDiscard(opts.Logger),
	}, nil
}

// Info implements journal.Summarizer.
func (o *Ollama) Info() string { return "Ollama " + o.model }

// Health checks that the server answers by listing its models.
func (o *Ollama) Health(ctx context.Context) error {
	if _, err := o.client.Models.List(ctx); err != nil {
		return fmt.Errorf("Ollama.Health: %s is not accessible, start Ollama first: %w", o.baseURL, classifyError("list models", err))
	}
	return nil
}

// Summarize implements journal.Summarizer. The server's health is checked before the first request.
func (o *Ollama) Summarize(ctx context.Context, content string) (string, error) {
	if !o.healthy.Load() {
		if err := o.Health(ctx); err != nil {
			return "", err
		}
		o.healthy.Store(true)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(journal.SystemPrompt),
			openai.UserMessage(content),
		},
		Temperature: openai.Float(summaryTemperature),
		MaxTokens:   openai.Int(summaryMaxTokens),
	}
	resp, err := CallWithRetry(ctx, o.retry, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return o.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", classifyError("Ollama.Summarize", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Ollama.Summarize: %w: response has no choices", journal.ErrRequestRejected)
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.logger.Debug("summary generated", "model", o.model, "chars", len(summary))
	return summary, nil
}
