package journal

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// NameKind tags how a raw conversation name was classified.
type NameKind int

const (
	NameUnknown NameKind = iota
	NameMeaningful
	NameGroupChat
	NameSingleContact
)

func (k NameKind) String() string {
	switch k {
	case NameMeaningful:
		return "meaningful"
	case NameGroupChat:
		return "group_chat"
	case NameSingleContact:
		return "single_contact"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying a raw conversation name.
// Participants is set for NameGroupChat, ID for NameSingleContact.
type Classification struct {
	Kind         NameKind
	Participants []string
	ID           string
}

type nameRule struct {
	kind  NameKind
	match func(raw string) (Classification, bool)
}

// nameRules are evaluated in order; the first match wins.
var nameRules = []nameRule{
	{kind: NameMeaningful, match: matchMeaningful},
	{kind: NameGroupChat, match: matchGroupChat},
	{kind: NameSingleContact, match: matchSingleContact},
}

var groupKeywords = []string{"team", "group", "family", "friends", "work", "class", "project", "club", "crew", "squad"}

var (
	participantSplitRe = regexp.MustCompile(`[,;\s_-]+`)
	emailTokenRe       = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phoneShapeRe       = regexp.MustCompile(`^[\d\s+\-()]+$`)
)

// minGroupPhoneDigits is the fewest digits a token needs to count as a phone participant. Fragments of a
// single formatted number ("+1", "555") stay below it.
const minGroupPhoneDigits = 7

// Namer derives display names for conversations from their raw export file names.
type Namer struct {
	dir    *Directory
	logger *slog.Logger
}

// NewNamer returns a Namer resolving contacts through dir. A nil logger discards log output.
func NewNamer(dir *Directory, logger *slog.Logger) *Namer {
	return &Namer{dir: dir, logger: orDiscard(logger)}
}

// Classify runs the naming rules in precedence order and returns the first match, or NameUnknown.
func (n *Namer) Classify(raw string) Classification {
	for _, rule := range nameRules {
		if c, ok := rule.match(raw); ok {
			c.Kind = rule.kind
			return c
		}
	}
	return Classification{Kind: NameUnknown}
}

// Resolve returns the display name for raw. It never fails; unresolvable names come back unchanged.
func (n *Namer) Resolve(raw string) string {
	c := n.Classify(raw)
	switch c.Kind {
	case NameGroupChat:
		name := n.groupName(c.Participants)
		n.logger.Debug("named group chat", "raw", raw, "name", name, "participants", len(c.Participants))
		return name
	case NameSingleContact:
		if name, ok := n.lookup(c.ID); ok {
			n.logger.Debug("named conversation from contacts", "raw", raw, "name", name)
			return name
		}
	}
	return raw
}

func (n *Namer) lookup(id string) (string, bool) {
	if n.dir == nil {
		return "", false
	}
	return n.dir.Lookup(id)
}

func (n *Namer) groupName(participants []string) string {
	labels := make([]string, 0, len(participants))
	for _, p := range participants {
		if name, ok := n.lookup(p); ok {
			labels = append(labels, name)
			continue
		}
		if label := participantFallback(p); label != "" {
			labels = append(labels, label)
		}
	}

	switch {
	case len(labels) == 0:
		return fmt.Sprintf("Group Chat (%d participants)", len(participants))
	case len(labels) == 1:
		return labels[0] + " & Others"
	case len(labels) <= 3:
		return strings.Join(labels, ", ")
	default:
		return fmt.Sprintf("%s & %d others", strings.Join(labels[:2], ", "), len(labels)-2)
	}
}

// participantFallback is the email local part, or the last four characters of a phone token.
func participantFallback(p string) string {
	if at := strings.IndexByte(p, '@'); at >= 0 {
		return p[:at]
	}
	r := []rune(p)
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	return string(r)
}

func matchMeaningful(raw string) (Classification, bool) {
	hasLetter, hasSpace, allLetters := false, false, raw != ""
	for _, c := range raw {
		switch {
		case isASCIILetter(c):
			hasLetter = true
		case unicode.IsSpace(c):
			hasSpace = true
			allLetters = false
		default:
			allLetters = false
		}
	}
	if (hasLetter && hasSpace) || allLetters {
		return Classification{}, true
	}
	lower := strings.ToLower(raw)
	for _, kw := range groupKeywords {
		if strings.Contains(lower, kw) {
			return Classification{}, true
		}
	}
	return Classification{}, false
}

// matchGroupChat requires at least two participant tokens, each of which is a whole email address or a
// phone number with enough digits to stand on its own. A single number written with separators such as
// "+1 555-123-4567" is therefore not a group.
func matchGroupChat(raw string) (Classification, bool) {
	var tokens []string
	for _, t := range participantSplitRe.Split(raw, -1) {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) < 2 {
		return Classification{}, false
	}
	for _, t := range tokens {
		if !isEmailToken(t) && !isPhoneToken(t) {
			return Classification{}, false
		}
	}
	return Classification{Participants: tokens}, true
}

func matchSingleContact(raw string) (Classification, bool) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return Classification{}, false
	}
	if strings.Contains(id, "@") || phoneShapeRe.MatchString(id) {
		return Classification{ID: id}, true
	}
	return Classification{}, false
}

func isEmailToken(t string) bool { return emailTokenRe.MatchString(t) }

func isPhoneToken(t string) bool {
	return phoneShapeRe.MatchString(t) && len(digitsOnly(t)) >= minGroupPhoneDigits
}
