package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

const modelsJSON = `{"object":"list","data":[{"id":"llama3.2","object":"model","created":0,"owned_by":"library"}]}`

func chatJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "llama3.2",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func responsesJSON(text string) string {
	b, _ := json.Marshal(map[string]any{
		"id":         "resp_1",
		"object":     "response",
		"created_at": 0,
		"model":      "gpt-4o-mini",
		"status":     "completed",
		"output": []map[string]any{{
			"type":   "message",
			"id":     "msg_1",
			"role":   "assistant",
			"status": "completed",
			"content": []map[string]any{{
				"type":        "output_text",
				"text":        text,
				"annotations": []any{},
			}},
		}},
	})
	return string(b)
}

type ollamaServer struct {
	*httptest.Server
	modelCalls atomic.Int32
	chatCalls  atomic.Int32
	lastBody   atomic.Value
}

func newOllamaServer(t *testing.T, chat http.HandlerFunc) *ollamaServer {
	t.Helper()
	s := &ollamaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		s.modelCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, modelsJSON)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		s.chatCalls.Add(1)
		b, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(b))
		chat(w, r)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestOllama_Summarize(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, chatJSON("  You caught up with Alice about dinner.\n"))
	})
	o, err := NewOllama(Options{BaseURL: srv.URL + "/", Model: "llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "Ollama llama3.2", o.Info())

	for i := 0; i < 2; i++ {
		got, err := o.Summarize(context.Background(), "Alice: dinner at 7?")
		require.NoError(t, err)
		assert.Equal(t, "You caught up with Alice about dinner.", got)
	}
	assert.Equal(t, int32(1), srv.modelCalls.Load(), "health is checked once")
	assert.Equal(t, int32(2), srv.chatCalls.Load())

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
	}
	require.NoError(t, json.Unmarshal([]byte(srv.lastBody.Load().(string)), &req))
	assert.Equal(t, "llama3.2", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, journal.SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "Alice: dinner at 7?", req.Messages[1].Content)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
}

func TestOllama_Rejected(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	})
	o, err := NewOllama(Options{BaseURL: srv.URL, Model: "missing"})
	require.NoError(t, err)

	_, err = o.Summarize(context.Background(), "hello")
	require.ErrorIs(t, err, journal.ErrRequestRejected)
	assert.False(t, errors.Is(err, journal.ErrServiceUnreachable))
}

func TestOllama_NoChoices(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"x","object":"chat.completion","created":0,"model":"llama3.2","choices":[]}`)
	})
	o, err := NewOllama(Options{BaseURL: srv.URL, Model: "llama3.2"})
	require.NoError(t, err)

	_, err = o.Summarize(context.Background(), "hello")
	assert.ErrorIs(t, err, journal.ErrRequestRejected)
}

func TestOllama_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o, err := NewOllama(Options{BaseURL: url, Model: "llama3.2"})
	require.NoError(t, err)

	_, err = o.Summarize(context.Background(), "hello")
	require.ErrorIs(t, err, journal.ErrServiceUnreachable)
	assert.Contains(t, err.Error(), "start Ollama first")
}

func TestOllama_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"error":{"message":"loading model"}}`)
			return
		}
		writeJSON(w, http.StatusOK, chatJSON("You talked."))
	})
	o, err := NewOllama(Options{
		BaseURL: srv.URL,
		Model:   "llama3.2",
		Retry:   RetryPolicy{ServerErrorWaits: []time.Duration{time.Millisecond}},
	})
	require.NoError(t, err)

	got, err := o.Summarize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "You talked.", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewOllama_RequiresModel(t *testing.T) {
	t.Parallel()

	_, err := NewOllama(Options{})
	assert.Error(t, err)
}

func TestOpenAI_Summarize(t *testing.T) {
	t.Parallel()

	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		body.Store(string(b))
		writeJSON(w, http.StatusOK, responsesJSON(`{"summary":" You planned a hike with Bob. "}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewOpenAI(Options{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "OpenAI gpt-4o-mini", s.Info())

	got, err := s.Summarize(context.Background(), "Bob: hike saturday?")
	require.NoError(t, err)
	assert.Equal(t, "You planned a hike with Bob.", got)

	sent := body.Load().(string)
	assert.Contains(t, sent, `"json_schema"`)
	assert.Contains(t, sent, `"ConversationSummary"`)
	assert.True(t, strings.Contains(sent, "Bob: hike saturday?"))
}

func TestOpenAI_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer sk-bad":
			writeJSON(w, http.StatusUnauthorized, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
		default:
			writeJSON(w, http.StatusOK, responsesJSON("not json at all"))
		}
	}))
	t.Cleanup(srv.Close)

	bad, err := NewOpenAI(Options{APIKey: "sk-bad", Model: "gpt-4o-mini", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = bad.Summarize(context.Background(), "hi")
	assert.ErrorIs(t, err, journal.ErrRequestRejected)

	garbled, err := NewOpenAI(Options{APIKey: "sk-ok", Model: "gpt-4o-mini", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = garbled.Summarize(context.Background(), "hi")
	assert.ErrorIs(t, err, journal.ErrRequestRejected)

	_, err = NewOpenAI(Options{Model: "gpt-4o-mini"})
	assert.Error(t, err, "missing key")
}

func TestCallWithRetry_StopsOnContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
	}))
	t.Cleanup(srv.Close)

	o, err := NewOllama(Options{BaseURL: srv.URL, Model: "llama3.2", Retry: DefaultRetryPolicy()})
	require.NoError(t, err)
	o.healthy.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	began := time.Now()
	_, err = o.Summarize(ctx, "hello")
	require.ErrorIs(t, err, journal.ErrRequestRejected)
	assert.Less(t, time.Since(began), 10*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateSchema(t *testing.T) {
	t.Parallel()

	type inner struct {
		Label string `json:"label"`
	}
	type outer struct {
		Summary string  `json:"summary"`
		Tags    []inner `json:"tags"`
	}

	m := GenerateSchema[outer]()
	assert.NotContains(t, m, "$schema")
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, false, m["additionalProperties"])
	assert.Equal(t, []string{"summary", "tags"}, m["required"])

	props := m["properties"].(map[string]any)
	items := props["tags"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.Equal(t, []string{"label"}, items["required"])

	s := GenerateSchema[summaryResponse]()
	assert.Equal(t, []string{"summary"}, s["required"])
}
