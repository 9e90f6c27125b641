package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Loader produces a dissolve result for a boundary file path.
type Loader func(path string) (*Result, error)

type cacheEntry struct {
	result  *Result
	modTime time.Time
	size    int64
}

// Cache memoizes dissolve results by boundary file path. An entry is
// dropped when the file's modification time or size changes, when
// Invalidate is called, or when a watched file is written, replaced or
// removed. Failed loads are not cached, and neither is a load that was
// invalidated while it ran.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	gens    map[string]uint64 // invalidations per key
	load    Loader
	logger  *zap.Logger

	watcher  *fsnotify.Watcher
	watched  map[string]bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewCache(load Loader, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
		load:    load,
		logger:  logger,
		watched: make(map[string]bool),
	}
}

// NewDissolverCache is a Cache backed by d.Dissolve.
func NewDissolverCache(d *Dissolver, logger *zap.Logger) *Cache {
	return NewCache(d.Dissolve, logger)
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}

// Get returns the cached result for path, loading it on a miss.
func (c *Cache) Get(path string) (*Result, error) {
	key := cacheKey(path)
	info, err := os.Stat(key)
	if err != nil {
		c.Invalidate(path)
		return nil, fmt.Errorf("stat boundary file %s: %w", path, err)
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	gen := c.gens[key]
	c.mu.Unlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		c.logger.Debug("boundary cache hit", zap.String("path", key))
		return entry.result, nil
	}
	if ok {
		c.logger.Info("boundary file changed, reloading", zap.String("path", key))
	} else {
		c.logger.Debug("boundary cache miss", zap.String("path", key))
	}

	res, err := c.load(key)
	if err != nil {
		c.Invalidate(path)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		c.logger.Debug("boundary file invalidated during load, not caching", zap.String("path", key))
		return res, nil
	}
	c.entries[key] = cacheEntry{result: res, modTime: info.ModTime(), size: info.Size()}
	return res, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	key := cacheKey(path)
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	if ok {
		c.logger.Info("boundary cache invalidated", zap.String("path", key))
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Watch invalidates path as soon as the file system reports a change to it.
// The parent directory is watched so that editors replacing the file by
// rename are seen too.
func (c *Cache) Watch(path string) error {
	key := cacheKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		c.watcher = watcher
		c.stopChan = make(chan struct{})
		c.done = make(chan struct{})
		go c.watchLoop(watcher, c.stopChan, c.done)
	}
	if c.watched[key] {
		return nil
	}
	if err := c.watcher.Add(filepath.Dir(key)); err != nil {
		return fmt.Errorf("watching directory %s: %w", filepath.Dir(key), err)
	}
	c.watched[key] = true
	return nil
}

func (c *Cache) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			key := cacheKey(event.Name)
			c.mu.Lock()
			watched := c.watched[key]
			c.mu.Unlock()
			if watched {
				c.Invalidate(key)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("boundary watcher error", zap.Error(err))
		}
	}
}

// Close stops watching. Cached entries stay usable.
func (c *Cache) Close() error {
	c.mu.Lock()
	watcher, stop, done := c.watcher, c.stopChan, c.done
	c.watcher, c.stopChan, c.done = nil, nil, nil
	c.watched = make(map[string]bool)
	c.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(stop)
	err := watcher.Close()
	<-done
	return err
}
