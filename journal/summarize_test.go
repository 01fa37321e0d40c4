package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSummarizer echoes the first word of each conversation and fails on content containing "FAIL".
type fakeSummarizer struct {
	mu    sync.Mutex
	calls []string

	onCall func(n int)
}

func (f *fakeSummarizer) Summarize(_ context.Context, content string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, content)
	n := len(f.calls)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}
	if strings.Contains(content, "FAIL") {
		return "", fmt.Errorf("fake: %w", ErrRequestRejected)
	}
	return "You talked about " + strings.Fields(content)[0] + ".", nil
}

func (f *fakeSummarizer) Info() string { return "Fake model" }

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func longText(word string) string {
	return word + strings.Repeat(" and more", 10)
}

func TestSummarizeAll_SkipsFailuresAndShortContent(t *testing.T) {
	t.Parallel()

	convs := []Conversation{
		{Content: longText("dinner"), Filename: "Alice"},
		{Content: "too short", Filename: "Bob"},
		{Content: longText("FAIL"), Filename: "Carol"},
		{Content: longText("snacks"), Filename: "Dana"},
	}
	f := &fakeSummarizer{}
	var progress [][2]int
	got, err := SummarizeAll(context.Background(), f, convs, func(cur, total int) {
		progress = append(progress, [2]int{cur, total})
	}, nil)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, SummaryRecord{Summary: "You talked about dinner.", ConversationID: "conversation_1", Filename: "Alice"}, got[0])
	assert.Equal(t, SummaryRecord{Summary: "You talked about snacks.", ConversationID: "conversation_4", Filename: "Dana"}, got[1])
	assert.Equal(t, 3, f.callCount(), "short content never reaches the backend")
	assert.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}}, progress)
}

func TestSummarizeAll_CancelStopsBetweenConversations(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &fakeSummarizer{onCall: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	convs := []Conversation{
		{Content: longText("one"), Filename: "A"},
		{Content: longText("two"), Filename: "B"},
		{Content: longText("three"), Filename: "C"},
	}

	got, err := SummarizeAll(ctx, f, convs, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Filename)
	assert.Equal(t, 1, f.callCount())
}

func TestSummarizeAll_NilSummarizer(t *testing.T) {
	t.Parallel()

	_, err := SummarizeAll(context.Background(), nil, nil, nil, nil)
	assert.Error(t, err)
}
