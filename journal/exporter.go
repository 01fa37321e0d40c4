package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultExportTimeout bounds a single exporter run.
const DefaultExportTimeout = 5 * time.Minute

// CommonExporterPaths are probed by FindExporter when the configured path does not exist.
var CommonExporterPaths = []string{
	"/opt/homebrew/bin/imessage-exporter",
	"/usr/local/bin/imessage-exporter",
	"/usr/bin/imessage-exporter",
}

var versionRe = regexp.MustCompile(`\d+\.\d+\.\d+`)

// ErrExporterNotFound is returned when the exporter binary does not exist.
var ErrExporterNotFound = errors.New("message exporter not found")

// Exporter runs the external message-export tool for one day at a time.
type Exporter struct {
	Path    string
	Timeout time.Duration

	// Stdout and Stderr receive the tool's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	Logger *slog.Logger
}

// ExportStatus reports whether the exporter could be run.
type ExportStatus struct {
	Installed bool
	Path      string
	Version   string
}

// Args returns the exporter arguments for a text export of [start, end) into outDir.
func (e *Exporter) Args(outDir, start, end string) []string {
	return []string{"-f", "txt", "-o", outDir, "-s", start, "-e", end, "-a", "macOS"}
}

// ExportDay exports day into root/<MM_DD> and returns that directory.
func (e *Exporter) ExportDay(ctx context.Context, root string, day time.Time) (string, error) {
	outDir := filepath.Join(root, DirectoryDate(day))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ExportDay: mkdir: %w", err)
	}
	start, end := ExportRange(day)
	if err := e.Run(ctx, outDir, start, end); err != nil {
		return "", err
	}
	return outDir, nil
}

// Run invokes the exporter once.
func (e *Exporter) Run(ctx context.Context, outDir, start, end string) error {
	if _, err := os.Stat(e.Path); err != nil {
		return fmt.Errorf("Run: %s: %w", e.Path, ErrExporterNotFound)
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := e.Args(outDir, start, end)
	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdout = orDiscardWriter(e.Stdout)
	cmd.Stderr = orDiscardWriter(e.Stderr)
	cmd.Env = os.Environ()

	logger := orDiscard(e.Logger)
	began := time.Now()
	if err := cmd.Run(); err != nil {
		logger.Error("export failed", "cmd", e.Path+" "+strings.Join(args, " "), "err", err)
		return fmt.Errorf("Run: %s: %w", e.Path, err)
	}
	logger.Info("export finished", "out", outDir, "start", start, "end", end, "elapsed", time.Since(began).Round(time.Millisecond))
	return nil
}

// Check runs the exporter with --version. A missing binary reports Installed=false without an error.
func (e *Exporter) Check(ctx context.Context) (ExportStatus, error) {
	status := ExportStatus{Path: e.Path}
	if _, err := os.Stat(e.Path); err != nil {
		return status, nil
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return status, fmt.Errorf("Check: %s --version: %w", e.Path, err)
	}
	status.Installed = true
	status.Version = versionRe.FindString(out.String())
	if status.Version == "" {
		status.Version = "unknown"
	}
	return status, nil
}

// FindExporter returns configured when it exists, else the first existing path in CommonExporterPaths,
// else "".
func FindExporter(configured string) string {
	candidates := append([]string{configured}, CommonExporterPaths...)
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func orDiscardWriter(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
