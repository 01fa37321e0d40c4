package journal

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript is used by serial tests only; exec of a file written by a parallel test can fail with ETXTBSY.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "imessage-exporter")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExporter_Args(t *testing.T) {
	t.Parallel()

	e := &Exporter{Path: "/bin/true"}
	assert.Equal(t,
		[]string{"-f", "txt", "-o", "/tmp/out/03_14", "-s", "2024-03-14", "-e", "2024-03-15", "-a", "macOS"},
		e.Args("/tmp/out/03_14", "2024-03-14", "2024-03-15"))
}

func TestExporter_ExportDay(t *testing.T) {
	// $4 is the output directory and $6 the start date.
	script := writeScript(t, `printf 'hello from %s\n' "$6" > "$4/+15551234567.txt"`+"\n")
	root := t.TempDir()
	e := &Exporter{Path: script, Timeout: 10 * time.Second}

	dir, err := e.ExportDay(context.Background(), root, time.Date(2024, 3, 14, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "03_14"), dir)

	b, err := os.ReadFile(filepath.Join(dir, "+15551234567.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello from 2024-03-14\n", string(b))
}

func TestExporter_RunFailure(t *testing.T) {
	e := &Exporter{Path: writeScript(t, "exit 3\n")}
	err := e.Run(context.Background(), t.TempDir(), "2024-03-14", "2024-03-15")
	assert.Error(t, err)

	missing := &Exporter{Path: filepath.Join(t.TempDir(), "nope")}
	err = missing.Run(context.Background(), t.TempDir(), "2024-03-14", "2024-03-15")
	assert.ErrorIs(t, err, ErrExporterNotFound)
}

func TestExporter_Check(t *testing.T) {
	e := &Exporter{Path: writeScript(t, "echo 'imessage-exporter 2.4.1'\n")}
	st, err := e.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.Equal(t, "2.4.1", st.Version)

	e = &Exporter{Path: writeScript(t, "echo 'dev build'\n")}
	st, err = e.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unknown", st.Version)

	e = &Exporter{Path: filepath.Join(t.TempDir(), "missing")}
	st, err = e.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Installed)
}

func TestFindExporter(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	assert.Equal(t, script, FindExporter(script))
	assert.NotEqual(t, filepath.Dir(script), FindExporter(filepath.Dir(script)), "directories are not executables")
}
