package journal

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizePhone returns every plausible lookup key for one raw phone string, in priority order and
// without duplicates. It never fails: when nothing can be parsed the cleaned input is the only key.
func NormalizePhone(raw string) []string {
	clean := cleanPhone(raw)

	keys := make([]string, 0, 8)
	keys = append(keys, parsedPhoneKeys(clean)...)
	keys = append(keys, manualPhoneKeys(clean)...)
	keys = append(keys, clean)
	return dedupeKeys(keys)
}

// cleanPhone keeps only digits and '+'.
func cleanPhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '+' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func parsedPhoneKeys(clean string) (keys []string) {
	if clean == "" {
		return nil
	}
	// Normalization never fails, even if the parser panics.
	defer func() {
		if r := recover(); r != nil {
			keys = nil
		}
	}()

	num, err := phonenumbers.Parse(clean, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return nil
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	return []string{
		e164,
		strings.TrimPrefix(e164, "+"),
		phonenumbers.GetNationalSignificantNumber(num),
		digitsOnly(phonenumbers.Format(num, phonenumbers.NATIONAL)),
	}
}

func manualPhoneKeys(clean string) []string {
	switch {
	case strings.HasPrefix(clean, "+1") && len(clean) == 12:
		// +15551234567 is also exported as +5551234567 by some clients.
		return []string{clean, clean[1:], clean[2:], "+" + clean[2:]}
	case strings.HasPrefix(clean, "+") && len(clean) == 11:
		withCountry := "+1" + clean[1:]
		return []string{clean, clean[1:], withCountry, withCountry[1:]}
	case strings.HasPrefix(clean, "1") && len(clean) == 11:
		plus := "+" + clean
		return []string{plus, plus[1:]}
	case !strings.HasPrefix(clean, "+"):
		var plus string
		if len(clean) == 10 {
			plus = "+1" + clean
		} else {
			plus = "+" + strings.TrimLeft(clean, "0")
		}
		return []string{plus, plus[1:]}
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func dedupeKeys(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// hasDigit reports whether a lookup key carries any number at all. Keys like "" or "+" would otherwise
// match every unparseable query.
func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
