package data

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reparses the ability table whenever its file changes and hands the
// result to the game loop through Updates. It never touches world state.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	updates chan *AbilityTable
	log     *zap.Logger
}

// NewWatcher watches the directory holding path, so editors that save by
// rename are still seen.
func NewWatcher(path string, log *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:    abs,
		watcher: w,
		updates: make(chan *AbilityTable, 1),
		log:     log,
	}, nil
}

// Updates yields freshly parsed tables. Only the latest unread one is kept.
func (w *Watcher) Updates() <-chan *AbilityTable {
	return w.updates
}

// Run blocks until ctx is done or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			debounce.Reset(reloadDebounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("ability table watcher error", zap.Error(err))
		case <-debounce.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	t, err := LoadAbilityTable(w.path)
	if err != nil {
		// keep serving the previous table
		w.log.Error("reload ability table", zap.String("path", w.path), zap.Error(err))
		return
	}
	select {
	case w.updates <- t:
	default:
		select {
		case <-w.updates:
		default:
		}
		w.updates <- t
	}
}
