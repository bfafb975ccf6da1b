package server

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/sistemadual/docgen/pkg/docgen"
)

// CacheWatcher clears a template cache when a template file under a
// directory is created, written, removed or renamed.
type CacheWatcher struct {
	watcher *fsnotify.Watcher
	cache   *docgen.TemplateCache
	dir     string
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCacheWatcher returns a watcher for dir. Call Start to begin watching.
func NewCacheWatcher(dir string, cache *docgen.TemplateCache, logger *log.Logger) (*CacheWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CacheWatcher{
		watcher: w,
		cache:   cache,
		dir:     dir,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start adds the directory and runs the event loop until ctx ends or Stop
// is called. It does not block.
func (cw *CacheWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.running {
		return nil
	}
	if err := cw.watcher.Add(cw.dir); err != nil {
		return err
	}
	cw.running = true
	go cw.run(ctx)
	cw.logger.Debug("watching templates", "dir", cw.dir)
	return nil
}

// Stop ends the event loop and releases the watcher.
func (cw *CacheWatcher) Stop() {
	cw.mu.Lock()
	running := cw.running
	cw.running = false
	cw.mu.Unlock()

	if running {
		close(cw.stopCh)
		<-cw.doneCh
	}
	if err := cw.watcher.Close(); err != nil {
		cw.logger.Warn("could not close template watcher", "err", err)
	}
}

func (cw *CacheWatcher) run(ctx context.Context) {
	defer close(cw.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handle(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("template watcher error", "err", err)
		}
	}
}

func (cw *CacheWatcher) handle(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".docx") {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	// Cache keys may be relative or absolute paths of the same file.
	cw.cache.Clear()
	cw.logger.Info("template changed, cache cleared", "file", event.Name, "op", event.Op.String())
}
