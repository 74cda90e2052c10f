// Package watcher watches the configured music folders and forwards
// filesystem changes as cache file events.
package watcher

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/minitune/minitune/internal/metacache"
)

// Handler receives translated file events. The engine implements it.
type Handler interface {
	HandleFileSystemEvent(path string, kind metacache.EventKind)
}

// Watcher recursively watches a set of roots. fsnotify does not descend into
// subdirectories on its own, so every directory is registered individually
// and newly created ones are added as they appear.
type Watcher struct {
	log     zerolog.Logger
	handler Handler
	fs      *fsnotify.Watcher
	done    chan struct{}
}

func New(log zerolog.Logger, handler Handler) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		log:     log,
		handler: handler,
		fs:      fs,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Watch registers a root and all directories below it.
func (w *Watcher) Watch(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable subtree, keep watching the rest
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("watch failed")
		}
		return nil
	})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// A new directory needs its own watch before its files appear.
			_ = w.Watch(event.Name)
			return
		}
		w.handler.HandleFileSystemEvent(event.Name, metacache.EventCreate)
	case event.Has(fsnotify.Write):
		w.handler.HandleFileSystemEvent(event.Name, metacache.EventModify)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.handler.HandleFileSystemEvent(event.Name, metacache.EventDelete)
	}
}
