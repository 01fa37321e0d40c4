package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/Tzeak/obsidian-autojournal/journal"
	"github.com/Tzeak/obsidian-autojournal/journal/fileutils"
)

const (
	summaryTemperature = 0.7
	summaryMaxTokens   = 500
)

// Options configures a model client.
type Options struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint. For Ollama it is the server root, e.g. http://localhost:11434.
	BaseURL string

	HTTPClient *http.Client
	Retry      RetryPolicy
	Logger     *slog.Logger
}

type summaryResponse struct {
	Summary string `json:"summary" jsonschema:"required,description=One or two sentence second-person summary of the conversation"`
}

var summarySchema = GenerateSchema[summaryResponse]()

// OpenAI summarizes conversations with the Responses API and a strict JSON schema.
type OpenAI struct {
	client openai.Client
	model  string
	retry  RetryPolicy
	logger *slog.Logger
}

// NewOpenAI returns an OpenAI summarizer. APIKey and Model are required.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("NewOpenAI: OpenAI API key not configured")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("NewOpenAI: model is empty")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
		retry:  opts.Retry,
		logger: loggerOrDiscard(opts.Logger),
	}, nil
}

// Info implements journal.Summarizer.
func (s *OpenAI) Info() string { return "OpenAI " + s.model }

// Summarize implements journal.Summarizer.
func (s *OpenAI) Summarize(ctx context.Context, content string) (string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "ConversationSummary",
			Schema:      summarySchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Conversation summary JSON"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(summaryMaxTokens),
		Temperature:     openai.Float(summaryTemperature),
		Instructions:    openai.String(journal.SystemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{Format: format},
	}

	resp, err := CallWithRetry(ctx, s.retry, func(ctx context.Context) (*responses.Response, error) {
		return s.client.Responses.New(ctx, params)
	})
	if err != nil {
		return "", classifyError("OpenAI.Summarize", err)
	}

	var out summaryResponse
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("OpenAI.Summarize: %w: %w", journal.ErrRequestRejected, err)
	}
	summary := strings.TrimSpace(out.Summary)
	s.logger.Debug("summary generated", "model", s.model, "summary", fileutils.Truncate(summary, 80))
	return summary, nil
}

// classifyError wraps err with ErrRequestRejected when the backend answered with an HTTP error and with
// ErrServiceUnreachable otherwise. Context errors are returned unchanged.
func classifyError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if code := statusCode(err); code != 0 {
		return fmt.Errorf("%s: %w (status %d): %w", op, journal.ErrRequestRejected, code, err)
	}
	return fmt.Errorf("%s: %w: %w", op, journal.ErrServiceUnreachable, err)
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
