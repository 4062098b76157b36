// cache.go holds compiled templates in memory so repeated renders skip
// parsing. Entries are keyed by template name.
package engine

import (
	"html/template"
	"log/slog"
	"sync"
)

type templateCache struct {
	mu      sync.RWMutex
	entries map[string]*template.Template
}

func newTemplateCache() *templateCache {
	return &templateCache{entries: make(map[string]*template.Template)}
}

// get returns nil on miss.
func (c *templateCache) get(name string) *template.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[name]
}

func (c *templateCache) put(name string, tmpl *template.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = tmpl
	slog.Debug("template cached", "name", name, "size", len(c.entries))
}

func (c *templateCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *templateCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*template.Template)
	slog.Debug("template cache cleared")
}
