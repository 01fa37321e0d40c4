package journal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Directory maps phone numbers and email addresses to contact display names.
//
// Every load builds a fresh immutable snapshot and swaps it in atomically. Each read works against exactly
// one snapshot, so a reload concurrent with rewriting or naming never exposes a half-built map.
type Directory struct {
	snap   atomic.Pointer[directorySnapshot]
	logger *slog.Logger
}

type directorySnapshot struct {
	phones map[string]string
	emails map[string]string
}

type contactEntry struct {
	contact string
	name    string
}

// NewDirectory returns an empty Directory. A nil logger discards log output.
func NewDirectory(logger *slog.Logger) *Directory {
	d := &Directory{logger: orDiscard(logger)}
	d.snap.Store(emptySnapshot())
	return d
}

func emptySnapshot() *directorySnapshot {
	return &directorySnapshot{phones: map[string]string{}, emails: map[string]string{}}
}

func (d *Directory) snapshot() *directorySnapshot {
	if s := d.snap.Load(); s != nil {
		return s
	}
	return emptySnapshot()
}

// LoadFile reads a .csv or .vcf contact file and replaces the directory contents.
func (d *Directory) LoadFile(path string) error {
	if path == "" {
		return fmt.Errorf("LoadFile: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("LoadFile: read contacts: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vcf":
		return d.LoadVCF(string(b))
	case ".csv":
		return d.LoadCSV(string(b))
	default:
		return fmt.Errorf("LoadFile: %s: %w", path, ErrUnsupportedFormat)
	}
}

// LoadCSV replaces the directory with the contents of a two-column "identifier,name" CSV.
// The first line is a header and must have at least two columns.
func (d *Directory) LoadCSV(text string) error {
	lines := strings.Split(text, "\n")
	if len(splitCSVLine(lines[0])) < 2 {
		d.snap.Store(emptySnapshot())
		return fmt.Errorf("LoadCSV: %w", ErrInvalidCSV)
	}

	entries := make([]contactEntry, 0, len(lines))
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		values := splitCSVLine(line)
		if len(values) < 2 {
			continue
		}
		entries = append(entries, contactEntry{contact: values[0], name: values[1]})
	}
	d.load(entries)
	return nil
}

// splitCSVLine splits on every comma and strips double quotes. Quoted commas are not supported; contact
// exports put the identifier first and names rarely contain commas.
func splitCSVLine(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(strings.ReplaceAll(f, `"`, ""))
	}
	return fields
}

// LoadVCF replaces the directory with the phone numbers and emails found in a vCard file.
func (d *Directory) LoadVCF(text string) error {
	var (
		entries []contactEntry
		name    string
		sawCard bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "FN:"):
			name = strings.TrimSpace(line[len("FN:"):])
			sawCard = true
		case strings.Contains(line, "TEL"):
			phone := digitsOnly(lastColonField(line))
			if name != "" && phone != "" {
				entries = append(entries, contactEntry{contact: "+" + phone, name: name})
			}
		case strings.Contains(line, "EMAIL"):
			email := strings.TrimSpace(lastColonField(line))
			if name != "" && email != "" {
				entries = append(entries, contactEntry{contact: email, name: name})
			}
		case line == "END:VCARD":
			name = ""
			sawCard = true
		case line == "BEGIN:VCARD":
			sawCard = true
		}
	}
	if !sawCard {
		d.snap.Store(emptySnapshot())
		return fmt.Errorf("LoadVCF: %w", ErrInvalidVCF)
	}
	d.load(entries)
	return nil
}

func lastColonField(line string) string {
	if i := strings.LastIndexByte(line, ':'); i >= 0 {
		return line[i+1:]
	}
	return line
}

func (d *Directory) load(entries []contactEntry) {
	next := emptySnapshot()
	for _, e := range entries {
		contact := strings.TrimSpace(e.contact)
		name := strings.TrimSpace(e.name)
		if contact == "" || name == "" {
			continue
		}
		if strings.Contains(contact, "@") {
			next.emails[strings.ToLower(contact)] = name
			continue
		}
		for _, key := range NormalizePhone(contact) {
			if hasDigit(key) {
				next.phones[key] = name
			}
		}
	}
	d.snap.Store(next)
	d.logger.Debug("contacts loaded", "phone_keys", len(next.phones), "emails", len(next.emails), "entries", len(entries))
}

// Lookup resolves a phone number or email address to a display name.
func (d *Directory) Lookup(identifier string) (string, bool) {
	return d.snapshot().lookup(identifier)
}

// LookupEmail resolves an email address case-insensitively.
func (d *Directory) LookupEmail(email string) (string, bool) {
	return d.snapshot().lookupEmail(email)
}

// LookupPhone tries every normalized variant of phone, then its cleaned form.
func (d *Directory) LookupPhone(phone string) (string, bool) {
	return d.snapshot().lookupPhone(phone)
}

func (s *directorySnapshot) lookup(identifier string) (string, bool) {
	if strings.Contains(identifier, "@") {
		return s.lookupEmail(identifier)
	}
	return s.lookupPhone(identifier)
}

func (s *directorySnapshot) lookupEmail(email string) (string, bool) {
	name, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	return name, ok
}

func (s *directorySnapshot) lookupPhone(phone string) (string, bool) {
	for _, key := range NormalizePhone(phone) {
		if !hasDigit(key) {
			continue
		}
		if name, ok := s.phones[key]; ok {
			return name, true
		}
	}
	clean := cleanPhone(phone)
	if !hasDigit(clean) {
		return "", false
	}
	name, ok := s.phones[clean]
	return name, ok
}

// Len returns the number of phone keys and email keys currently loaded.
func (d *Directory) Len() (phones int, emails int) {
	snap := d.snapshot()
	return len(snap.phones), len(snap.emails)
}
