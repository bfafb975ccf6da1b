package docgen

import (
	"container/list"
	"sync"
	"time"
)

// CacheConfig controls a TemplateCache.
type CacheConfig struct {
	// MaxSize is the maximum number of templates kept. 0 disables caching.
	MaxSize int
	// TTL expires entries after the given duration. 0 means never.
	TTL time.Duration
}

// TemplateCache keeps prepared templates by path with LRU eviction.
type TemplateCache struct {
	mu     sync.Mutex
	items  map[string]*cacheEntry
	lru    *list.List
	config CacheConfig
	now    func() time.Time
}

type cacheEntry struct {
	key      string
	template *Template
	expiry   time.Time
	element  *list.Element
}

// NewTemplateCache creates a cache with the given configuration.
func NewTemplateCache(config CacheConfig) *TemplateCache {
	return &TemplateCache{
		items:  make(map[string]*cacheEntry),
		lru:    list.New(),
		config: config,
		now:    time.Now,
	}
}

// Load returns the cached template for filename, preparing it on a miss.
func (tc *TemplateCache) Load(filename string) (*Template, error) {
	if tmpl, ok := tc.Get(filename); ok {
		return tmpl, nil
	}
	tmpl, err := PrepareFile(filename)
	if err != nil {
		return nil, err
	}
	tc.Set(filename, tmpl)
	return tmpl, nil
}

// Get returns a cached template that has not expired.
func (tc *TemplateCache) Get(key string) (*Template, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, ok := tc.items[key]
	if !ok {
		return nil, false
	}
	if tc.config.TTL > 0 && tc.now().After(entry.expiry) {
		tc.removeLocked(entry)
		return nil, false
	}
	tc.lru.MoveToFront(entry.element)
	return entry.template, true
}

// Set stores a template, evicting the least recently used entry when full.
func (tc *TemplateCache) Set(key string, tmpl *Template) {
	if tc.config.MaxSize <= 0 {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()

	var expiry time.Time
	if tc.config.TTL > 0 {
		expiry = tc.now().Add(tc.config.TTL)
	}
	if existing, ok := tc.items[key]; ok {
		existing.template = tmpl
		existing.expiry = expiry
		tc.lru.MoveToFront(existing.element)
		return
	}
	if tc.lru.Len() >= tc.config.MaxSize {
		if oldest := tc.lru.Back(); oldest != nil {
			evicted := oldest.Value.(*cacheEntry)
			tc.removeLocked(evicted)
			Logger().Debug("evicted template", "key", evicted.key)
		}
	}
	entry := &cacheEntry{key: key, template: tmpl, expiry: expiry}
	entry.element = tc.lru.PushFront(entry)
	tc.items[key] = entry
}

// Remove drops one entry.
func (tc *TemplateCache) Remove(key string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if entry, ok := tc.items[key]; ok {
		tc.removeLocked(entry)
	}
}

func (tc *TemplateCache) removeLocked(entry *cacheEntry) {
	delete(tc.items, entry.key)
	tc.lru.Remove(entry.element)
}

// Clear drops every entry.
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.items = make(map[string]*cacheEntry)
	tc.lru = list.New()
}

// Len returns the number of cached templates.
func (tc *TemplateCache) Len() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.items)
}
