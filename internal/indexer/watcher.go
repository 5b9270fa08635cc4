package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/sdkdocs-mcp/internal/logger"
)

// Watcher re-runs the indexing pipeline when documents under the watch
// root change. Events are coalesced: a burst of writes (editors save in
// several steps, syncs touch many files) triggers one run after the
// debounce window closes.
type Watcher struct {
	root     string
	indexer  *Indexer
	debounce time.Duration
	log      *slog.Logger
}

// NewWatcher builds a watcher over root. A non-positive debounce gets
// the 2s default.
func NewWatcher(root string, idx *Indexer, debounce time.Duration, log *slog.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		root:     root,
		indexer:  idx,
		debounce: debounce,
		log:      log,
	}
}

// Run watches until the context is cancelled. Every debounced change
// triggers a full pipeline run over the watch root; the unchanged-
// document short circuit keeps those runs cheap. An in-progress run
// does not lose events, the trigger re-arms and fires again after it.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	w.log.Info("watching for document changes", "root", w.root, "debounce", w.debounce)

	var timer *time.Timer
	var fire <-chan time.Time
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// New directories must be watched before files land in them.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(fw, event.Name)
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("document change", "path", event.Name, "op", event.Op.String())
			arm()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-fire:
			timer = nil
			fire = nil
			if err := w.runOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if errors.Is(err, ErrIndexInProgress) {
					// Retry after the current run finishes.
					arm()
					continue
				}
				w.log.Error("triggered run failed", "error", err)
			}
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) error {
	docs, err := LoadDirectory(w.root)
	if err != nil {
		return err
	}
	summary, err := w.indexer.Run(ctx, docs)
	if err != nil {
		return err
	}
	w.log.Info("triggered run complete",
		"parsed", summary.DocumentsParsed,
		"skipped", summary.Skipped,
		"new", summary.Indexed,
		"updated", summary.Updated)
	return nil
}

// relevant keeps events that can change index content for a document
// format the pipeline understands.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	return IndexableFile(event.Name)
}

// addRecursive watches root and every non-hidden directory below it.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
