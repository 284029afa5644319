package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
)

// Watcher observes the registry snapshot file. Deleting the file is the
// operator's way of resetting registry state at runtime; the watcher
// translates the removal into a Store.Reset.
type Watcher struct {
	path    string
	store   Store
	watcher *fsnotify.Watcher
	logger  config.Logger
	done    chan struct{}
}

// NewWatcher creates a watcher for the snapshot at path.
func NewWatcher(path string, store Store, logger config.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	// Watch the directory, not the file: the snapshot is replaced by
	// rename on every save and may not exist yet.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching snapshot directory: %w", err)
	}

	return &Watcher{
		path:    absPath,
		store:   store,
		watcher: fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the watch loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Name != w.path {
					continue
				}
				if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
					w.logger.Warn("registry snapshot removed by operator, resetting registry",
						zap.String("path", w.path))
					w.store.Reset(ctx)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("registry snapshot watcher error", zap.Error(err))
			}
		}
	}()
}

// Close stops watching and waits for the loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
