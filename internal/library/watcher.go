package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"posekit/internal/logging"
)

// DefaultDebounce is used when NewWatcher is given a non-positive delay.
const DefaultDebounce = 500 * time.Millisecond

// Watcher keeps the catalog index in step with pose files written by other
// processes. Bursts of events are collapsed and flushed after a quiet
// period. Events, flushes and shutdown all run on the Run goroutine, so no
// flush is in flight once Run has returned.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	pending map[string]struct{}
	timer   *time.Timer
	flushed chan FlushResult
}

// FlushResult reports what one debounced flush did.
type FlushResult struct {
	Indexed []string
	Removed []string
	Failed  []string
}

// NewWatcher watches the library root and every folder below it. The
// catalog must have an index.
func NewWatcher(catalog *Catalog, debounce time.Duration) (*Watcher, error) {
	if catalog.index == nil {
		return nil, ErrNoIndex
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		catalog:  catalog,
		watcher:  fw,
		debounce: debounce,
		logger:   logging.NewComponentLogger(catalog.logger, "library_watcher"),
		pending:  make(map[string]struct{}),
		flushed:  make(chan FlushResult, 16),
	}
	if err := w.addTree(catalog.root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Flushed delivers a result after every flush. Results are dropped when
// nobody reads them.
func (w *Watcher) Flushed() <-chan FlushResult { return w.flushed }

// Run processes events until ctx is cancelled or the watcher fails. Pending
// changes are flushed before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	w.logger.Info("watching library", logging.String("root", w.catalog.root))

	for {
		var due <-chan time.Time
		if w.timer != nil {
			due = w.timer.C
		}
		select {
		case <-ctx.Done():
			return nil
		case <-due:
			w.timer = nil
			w.flush()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "library watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some changes may be missed until the next reindex"),
			)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.WarnWithContext(w.logger, "new folder could not be watched", "watch_add_failed",
					logging.String("folder", event.Name),
					logging.Error(err),
				)
			}
			return
		}
	}
	if !IsPoseFile(event.Name) {
		return
	}
	w.logger.Debug("pose file changed",
		logging.String(logging.FieldPose, event.Name),
		logging.String("op", event.Op.String()),
	)
	w.schedule(event.Name)
}

func (w *Watcher) schedule(path string) {
	w.pending[path] = struct{}{}
	if w.timer == nil {
		w.timer = time.NewTimer(w.debounce)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) flush() {
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	clear(w.pending)

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	ctx := context.Background()
	var result FlushResult
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := w.catalog.index.Remove(ctx, path); err != nil {
				result.Failed = append(result.Failed, path)
				w.catalog.warnIndex(path, err)
				continue
			}
			result.Removed = append(result.Removed, path)
			continue
		}
		if err := w.catalog.indexFile(ctx, path, -1); err != nil {
			result.Failed = append(result.Failed, path)
			w.catalog.warnIndex(path, err)
			continue
		}
		result.Indexed = append(result.Indexed, path)
	}

	w.logger.Info("library index updated",
		logging.Int("indexed", len(result.Indexed)),
		logging.Int("removed", len(result.Removed)),
		logging.Int("failed", len(result.Failed)),
	)
	select {
	case w.flushed <- result:
	default:
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) stop() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.flush()
	_ = w.watcher.Close()
}
