package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is how long a date directory must be quiet before it is handed to the callback.
const DefaultWatchDebounce = 5 * time.Second

var dateDirRe = regexp.MustCompile(`^\d{2}_\d{2}$`)

// WatchOptions configures WatchExports.
type WatchOptions struct {
	// Root is the export root holding one MM_DD directory per exported day.
	Root     string
	Debounce time.Duration
	Logger   *slog.Logger
}

// ReadyFunc is called with the MM_DD name of a date directory whose transcripts stopped changing.
type ReadyFunc func(ctx context.Context, dateDir string)

// WatchExports watches Root and its date directories until ctx is done. Writes to .txt files are debounced
// per date directory; once a directory has been quiet for Debounce, onReady runs for it. Calls to onReady
// never overlap.
func WatchExports(ctx context.Context, opts WatchOptions, onReady ReadyFunc) error {
	if opts.Root == "" {
		return errors.New("WatchExports: Root is empty")
	}
	if onReady == nil {
		return errors.New("WatchExports: onReady is nil")
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	logger := orDiscard(opts.Logger)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("WatchExports: %w", err)
	}
	defer w.Close()

	if err := w.Add(opts.Root); err != nil {
		return fmt.Errorf("WatchExports: watch %s: %w", opts.Root, err)
	}
	if entries, err := os.ReadDir(opts.Root); err == nil {
		for _, e := range entries {
			if e.IsDir() && dateDirRe.MatchString(e.Name()) {
				addWatch(w, filepath.Join(opts.Root, e.Name()), logger)
			}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	var (
		mu     sync.Mutex
		timers = map[string]*time.Timer{}
		ready  = make(chan string, 16)
		wg     sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case dateDir := <-ready:
				logger.Info("export directory ready", "date_dir", dateDir)
				onReady(ctx, dateDir)
			}
		}
	}()
	defer func() {
		cancel()
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func(dateDir string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[dateDir]; ok {
			t.Stop()
		}
		timers[dateDir] = time.AfterFunc(debounce, func() {
			mu.Lock()
			delete(timers, dateDir)
			mu.Unlock()
			select {
			case ready <- dateDir:
			case <-ctx.Done():
			}
		})
	}

	logger.Info("watching exports", "root", opts.Root, "debounce", debounce)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == filepath.Clean(opts.Root) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() && dateDirRe.MatchString(filepath.Base(ev.Name)) {
					addWatch(w, ev.Name, logger)
					schedule(filepath.Base(ev.Name))
				}
				continue
			}
			if dateDir, ok := transcriptDateDir(opts.Root, ev.Name); ok && ev.Has(fsnotify.Create|fsnotify.Write) {
				schedule(dateDir)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}

func addWatch(w *fsnotify.Watcher, dir string, logger *slog.Logger) {
	if err := w.Add(dir); err != nil {
		logger.Warn("failed to watch directory", "dir", dir, "err", err)
		return
	}
	logger.Debug("watching directory", "dir", dir)
}

// transcriptDateDir reports the MM_DD directory of a .txt file directly inside root/<MM_DD>.
func transcriptDateDir(root, path string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".txt") {
		return "", false
	}
	dir := filepath.Dir(path)
	if filepath.Dir(dir) != filepath.Clean(root) {
		return "", false
	}
	name := filepath.Base(dir)
	return name, dateDirRe.MatchString(name)
}
