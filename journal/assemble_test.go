package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	assembleDay = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	assembleNow = time.Date(2024, 3, 15, 14, 5, 9, 0, time.UTC)
)

func TestAssemble_Sections(t *testing.T) {
	t.Parallel()

	doc := Assemble([]SummaryRecord{
		{Summary: "You planned dinner with Alice.", ConversationID: "conversation_1", Filename: "Alice"},
		{Summary: "You argued about snacks.", ConversationID: "conversation_2", Filename: "Alice, Bob"},
	}, AssembleOptions{LLMInfo: "Ollama llama3.2", TargetDate: assembleDay, Now: assembleNow})

	want := "# Daily Journal - 2024-03-14\n\n" +
		"Generated on 3/15/2024, 2:05:09 PM\n" +
		"Generated with: Ollama llama3.2\n\n" +
		"### Alice\n\nYou planned dinner with Alice.\n\n---\n\n" +
		"### Alice, Bob\n\nYou argued about snacks.\n\n---\n\n"
	assert.Equal(t, want, doc)
}

func TestAssemble_NoConversations(t *testing.T) {
	t.Parallel()

	doc := Assemble(nil, AssembleOptions{TargetDate: assembleDay, Now: assembleNow})
	assert.Contains(t, doc, NoConversationsLine)
	assert.NotContains(t, doc, "###")
	assert.NotContains(t, doc, "Generated with:")
}

func TestAssemble_Heading(t *testing.T) {
	t.Parallel()

	ptr := func(s string) *string { return &s }
	cases := []struct {
		name     string
		template *string
		want     string
	}{
		{name: "default", template: nil, want: "# Daily Journal - 2024-03-14\n\n"},
		{name: "explicit_empty", template: ptr(""), want: ""},
		{name: "blank", template: ptr("   "), want: "# Daily Journal - 2024-03-14\n\n"},
		{name: "custom", template: ptr("## {date} / {date}"), want: "## 2024-03-14 / 2024-03-14\n\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := Assemble(nil, AssembleOptions{HeadingTemplate: tc.template, TargetDate: assembleDay, Now: assembleNow})
			assert.True(t, strings.HasPrefix(doc, tc.want+"Generated on "), "doc=%q", doc)
		})
	}
}

func TestAssemble_TargetDateDefaultsToNow(t *testing.T) {
	t.Parallel()

	doc := Assemble(nil, AssembleOptions{Now: assembleNow})
	assert.True(t, strings.HasPrefix(doc, "# Daily Journal - 2024-03-15\n"))
}

func TestGenerateFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Daily Journal 2024-03-14.md", GenerateFilename("Daily Journal {date}", assembleDay))
	assert.Equal(t, "journal.md", GenerateFilename("journal", assembleDay))
}
