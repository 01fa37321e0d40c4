package journal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// UnknownDateDir is the DateDir of a block whose delimiter does not carry an MM_DD directory.
const UnknownDateDir = "unknown"

var (
	delimiterRe       = regexp.MustCompile(`===\s+Content\s+from\s+.*?===`)
	delimiterFieldsRe = regexp.MustCompile(`===\s+Content\s+from\s+(\d{2}_\d{2})/(.+?)\.txt\s+===`)
)

// Segmenter splits a combined transcript into named, contact-resolved conversations.
type Segmenter struct {
	namer    *Namer
	rewriter *Rewriter
	logger   *slog.Logger
}

// NewSegmenter wires a Segmenter to the Namer and Rewriter it resolves blocks with.
func NewSegmenter(namer *Namer, rewriter *Rewriter, logger *slog.Logger) *Segmenter {
	return &Segmenter{namer: namer, rewriter: rewriter, logger: orDiscard(logger)}
}

// Segment returns one Conversation per delimiter block whose trimmed body has at least
// MinConversationChars characters, in transcript order. Text before the first delimiter is ignored.
func (s *Segmenter) Segment(text string) []Conversation {
	locs := delimiterRe.FindAllStringIndex(text, -1)
	out := make([]Conversation, 0, len(locs))
	dropped := 0
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		header := text[loc[0]:loc[1]]
		body := strings.TrimSpace(text[loc[1]:end])
		if utf8.RuneCountInString(body) < MinConversationChars {
			dropped++
			continue
		}

		dateDir, name := UnknownDateDir, fmt.Sprintf("conversation_%d", i+1)
		if m := delimiterFieldsRe.FindStringSubmatch(header); m != nil {
			dateDir, name = m[1], m[2]
		}

		display := name
		if s.namer != nil {
			display = s.namer.Resolve(name)
		}
		content := body
		if s.rewriter != nil {
			content = s.rewriter.Rewrite(body)
		}
		out = append(out, Conversation{Header: header, Content: content, Filename: display, DateDir: dateDir})
	}
	s.logger.Debug("segmented transcript", "blocks", len(locs), "kept", len(out), "dropped", dropped)
	return out
}

// Delimiter returns the header line that introduces an exported file inside a combined transcript.
func Delimiter(dateDir, filename string) string {
	return fmt.Sprintf("=== Content from %s/%s ===", dateDir, filename)
}

// CombineTranscripts concatenates every .txt file of an export date directory into one transcript,
// each file introduced by its delimiter line. Files are taken in name order.
func CombineTranscripts(root, dateDir string) (string, error) {
	dir := filepath.Join(root, dateDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("CombineTranscripts: read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("CombineTranscripts: read %s: %w", name, err)
		}
		b.WriteString(Delimiter(dateDir, name))
		b.WriteString("\n")
		b.Write(content)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}
