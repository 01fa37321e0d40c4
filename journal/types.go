package journal

import "errors"

// MinConversationChars is the shortest trimmed conversation body kept by the segmenter and the summarizer.
// Shorter blocks are almost always empty threads or attachment-only exports.
const MinConversationChars = 50

// Conversation is one delimiter-bounded block of a combined transcript, ready for summarization.
type Conversation struct {
	// Header is the raw delimiter line, e.g. "=== Content from 03_14/+15551234567.txt ===".
	Header string `json:"header"`

	// Content is the trimmed block body with phone numbers and emails replaced by contact names.
	Content string `json:"content"`

	// Filename is the display name of the conversation (contact name, group label, or the raw file stem).
	Filename string `json:"filename"`

	// DateDir is the MM_DD export directory the block came from, or "unknown".
	DateDir string `json:"date_dir"`
}

// SummaryRecord is the model-produced summary for one conversation.
type SummaryRecord struct {
	Summary        string `json:"summary"`
	ConversationID string `json:"conversation_id"`
	Filename       string `json:"filename"`
}

var (
	// ErrInvalidCSV is returned when a contact CSV has no usable header row.
	ErrInvalidCSV = errors.New("invalid CSV format")

	// ErrInvalidVCF is returned when a contact file contains no vCard markers at all.
	ErrInvalidVCF = errors.New("invalid VCF format")

	// ErrUnsupportedFormat is returned for contact files that are neither .csv nor .vcf.
	ErrUnsupportedFormat = errors.New("unsupported contact file format (use .vcf or .csv)")

	// ErrNoConversations is returned when no transcript block survives the minimum-length filter.
	ErrNoConversations = errors.New("no conversations found")

	// ErrServiceUnreachable marks summarizer failures where the backend could not be reached at all.
	ErrServiceUnreachable = errors.New("summarization service unreachable")

	// ErrRequestRejected marks summarizer failures where the backend answered with an error.
	ErrRequestRejected = errors.New("summarization request rejected")
)
