package journal

import (
	"strings"
	"time"
)

const (
	// DefaultHeadingTemplate is used when no heading template is configured at all.
	DefaultHeadingTemplate = "# Daily Journal - {date}"

	// NoConversationsLine replaces the section list when there is nothing to report.
	NoConversationsLine = "No conversations found for this day."

	journalExt          = ".md"
	datePlaceholder     = "{date}"
	generatedTimeLayout = "1/2/2006, 3:04:05 PM"
)

// AssembleOptions controls journal document rendering.
type AssembleOptions struct {
	// LLMInfo is written as "Generated with: ..." when non-empty.
	LLMInfo string

	// TargetDate is the journal day. Zero means Now.
	TargetDate time.Time

	// HeadingTemplate selects the heading: nil uses DefaultHeadingTemplate, a pointer to "" omits the
	// heading, and a blank template also falls back to the default.
	HeadingTemplate *string

	// Now stamps the "Generated on" line. Zero means time.Now().
	Now time.Time
}

// Assemble renders summaries, in order, into one Markdown journal document.
func Assemble(summaries []SummaryRecord, opts AssembleOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	day := opts.TargetDate
	if day.IsZero() {
		day = now
	}

	var b strings.Builder
	if heading := headingFor(opts.HeadingTemplate, day); heading != "" {
		b.WriteString(heading)
		b.WriteString("\n\n")
	}
	b.WriteString("Generated on ")
	b.WriteString(now.Format(generatedTimeLayout))
	b.WriteString("\n")
	if opts.LLMInfo != "" {
		b.WriteString("Generated with: ")
		b.WriteString(opts.LLMInfo)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(summaries) == 0 {
		b.WriteString(NoConversationsLine)
		b.WriteString("\n")
		return b.String()
	}
	for _, s := range summaries {
		b.WriteString("### ")
		b.WriteString(s.Filename)
		b.WriteString("\n\n")
		b.WriteString(s.Summary)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

func headingFor(template *string, day time.Time) string {
	switch {
	case template == nil:
		return GenerateHeading(DefaultHeadingTemplate, day)
	case *template == "":
		return ""
	case strings.TrimSpace(*template) == "":
		return GenerateHeading(DefaultHeadingTemplate, day)
	default:
		return GenerateHeading(*template, day)
	}
}

// GenerateHeading substitutes every {date} in template with the YYYY-MM-DD form of day.
func GenerateHeading(template string, day time.Time) string {
	return strings.ReplaceAll(template, datePlaceholder, DateString(day))
}

// GenerateFilename substitutes {date} in template and appends the journal file extension.
func GenerateFilename(template string, day time.Time) string {
	return GenerateHeading(template, day) + journalExt
}
