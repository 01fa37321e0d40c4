package journal

import (
	"log/slog"
	"strings"
	"unicode"
)

// Rewriter replaces phone numbers and email addresses in free text with contact display names.
//
// The text is scanned once, left to right. In the plain state runes are copied through until a rune that can
// start a candidate token is seen; the candidate state then matches the longest token shape at that point,
// substitutes it when the directory resolves it, and returns to plain. Every input rune is consumed exactly
// once, so a substituted name is never scanned again.
type Rewriter struct {
	dir    *Directory
	logger *slog.Logger
}

// NewRewriter returns a Rewriter that resolves identifiers through dir. A nil logger discards log output.
func NewRewriter(dir *Directory, logger *slog.Logger) *Rewriter {
	return &Rewriter{dir: dir, logger: orDiscard(logger)}
}

type scanState int

const (
	statePlain scanState = iota
	stateCandidate
)

type tokenKind int

const (
	tokenNone tokenKind = iota
	tokenEmail
	tokenPhone
)

// Rewrite returns text with every resolvable identifier replaced. Unresolved identifiers are left as they are.
func (r *Rewriter) Rewrite(text string) string {
	if text == "" {
		return text
	}
	snap := emptySnapshot()
	if r.dir != nil {
		snap = r.dir.snapshot()
	}

	src := []rune(text)
	var out strings.Builder
	out.Grow(len(text))

	state := statePlain
	replaced, candidates := 0, 0
	for i := 0; i < len(src); {
		switch state {
		case statePlain:
			if canStartToken(src, i) {
				state = stateCandidate
				continue
			}
			out.WriteRune(src[i])
			i++

		case stateCandidate:
			state = statePlain
			kind, end := matchToken(src, i)
			if kind == tokenNone {
				out.WriteRune(src[i])
				i++
				continue
			}
			candidates++
			raw := string(src[i:end])
			i = end
			if name, ok := resolveToken(snap, kind, raw); ok {
				out.WriteString(name)
				replaced++
				continue
			}
			out.WriteString(raw)
		}
	}

	if candidates > 0 {
		r.logger.Debug("rewrote contacts in text", "candidates", candidates, "replaced", replaced)
	}
	return out.String()
}

func resolveToken(snap *directorySnapshot, kind tokenKind, raw string) (string, bool) {
	switch kind {
	case tokenEmail:
		return snap.lookupEmail(strings.ToLower(raw))
	case tokenPhone:
		return snap.lookupPhone(raw)
	}
	return "", false
}

func canStartToken(src []rune, i int) bool {
	c := src[i]
	if c == '(' || c == '+' {
		return true
	}
	if isDigit(c) && (i == 0 || !isWordRune(src[i-1])) {
		return true
	}
	return isEmailLocalRune(c) && (i == 0 || !isEmailLocalRune(src[i-1]))
}

// matchToken tries the token shapes in precedence order and returns the first that matches at i.
func matchToken(src []rune, i int) (tokenKind, int) {
	if end := matchEmail(src, i); end > i {
		return tokenEmail, end
	}
	if end := matchParenPhone(src, i); end > i {
		return tokenPhone, end
	}
	if end := matchPlusPhone(src, i); end > i {
		return tokenPhone, end
	}
	if end := matchBarePhone(src, i); end > i {
		return tokenPhone, end
	}
	return tokenNone, i
}

// matchEmail matches local@domain.tld where the final label has at least two letters.
func matchEmail(src []rune, i int) int {
	if i > 0 && isEmailLocalRune(src[i-1]) {
		return i
	}
	j := i
	for j < len(src) && isEmailLocalRune(src[j]) {
		j++
	}
	if j == i || j >= len(src) || src[j] != '@' {
		return i
	}
	j++
	domainStart := j
	for j < len(src) && isDomainRune(src[j]) {
		j++
	}
	// Back off to the last ".tld" that ends the domain; trailing dots or digits are not part of it.
	for end := j; end > domainStart; end-- {
		if tldEndsAt(src, domainStart, end) {
			return end
		}
	}
	return i
}

func tldEndsAt(src []rune, start, end int) bool {
	letters := 0
	k := end - 1
	for k >= start && isASCIILetter(src[k]) {
		letters++
		k--
	}
	return letters >= 2 && k > start && src[k] == '.'
}

// matchParenPhone matches "(ddd) ddd-dddd" with optional whitespace after the parenthesis and an optional
// '-' or whitespace separator.
func matchParenPhone(src []rune, i int) int {
	if src[i] != '(' {
		return i
	}
	j, ok := digitsExactly(src, i+1, 3)
	if !ok || j >= len(src) || src[j] != ')' {
		return i
	}
	j++
	for j < len(src) && unicode.IsSpace(src[j]) {
		j++
	}
	if j, ok = digitsExactly(src, j, 3); !ok {
		return i
	}
	if j < len(src) && (src[j] == '-' || unicode.IsSpace(src[j])) {
		if _, ok := digitsExactly(src, j+1, 4); ok {
			j++
		}
	}
	if j, ok = digitsExactly(src, j, 4); !ok {
		return i
	}
	return j
}

// matchPlusPhone matches '+' followed by ten or more digits.
func matchPlusPhone(src []rune, i int) int {
	if src[i] != '+' {
		return i
	}
	j := i + 1
	for j < len(src) && isDigit(src[j]) {
		j++
	}
	if j-(i+1) < 10 {
		return i
	}
	return j
}

// matchBarePhone matches a run of exactly ten digits that is not part of a longer word.
func matchBarePhone(src []rune, i int) int {
	if i > 0 && isWordRune(src[i-1]) {
		return i
	}
	j, ok := digitsExactly(src, i, 10)
	if !ok || (j < len(src) && isWordRune(src[j])) {
		return i
	}
	return j
}

func digitsExactly(src []rune, i, n int) (int, bool) {
	if i+n > len(src) {
		return i, false
	}
	for k := i; k < i+n; k++ {
		if !isDigit(src[k]) {
			return i, false
		}
	}
	return i + n, true
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isASCIILetter(c rune) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isWordRune(c rune) bool { return isDigit(c) || isASCIILetter(c) || c == '_' }

func isEmailLocalRune(c rune) bool {
	return isDigit(c) || isASCIILetter(c) || strings.ContainsRune("._%+-", c)
}

func isDomainRune(c rune) bool {
	return isDigit(c) || isASCIILetter(c) || c == '.' || c == '-'
}
