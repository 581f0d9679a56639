package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change is delivered when another process rewrites or removes the session
// file. Session is nil after a logout elsewhere or when the file is corrupt.
type Change struct {
	Session *Session
	Err     error
}

// Watcher observes a FileStore for changes made outside this process.
type Watcher struct {
	store   *FileStore
	fsw     *fsnotify.Watcher
	changes chan Change
	logger  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Watch starts observing store. The parent directory is watched, since
// atomic saves replace the file rather than writing to it.
func Watch(store *FileStore, logger *slog.Logger) (*Watcher, error) {
	if store == nil {
		return nil, errors.New("session: nil store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session: watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("session: watch %s: %w", filepath.Dir(store.Path()), err)
	}
	w := &Watcher{
		store:   store,
		fsw:     fsw,
		changes: make(chan Change, 8),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers one Change per observed write, rename, or removal. The
// channel is closed after Close.
func (w *Watcher) Changes() <-chan Change { return w.changes }

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.changes)
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s, err := w.store.Load(context.Background())
			select {
			case w.changes <- Change{Session: s, Err: err}:
			case <-w.done:
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session: watcher error", "error", err)
		}
	}
}
