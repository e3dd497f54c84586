// Package router maps request paths to registered handlers.
//
// Matching is exact-string only: no wildcards, no prefix matching. That is a
// deliberate scope boundary of the routing contract, not an accident of the
// implementation.
package router

import (
	"sync"

	"github.com/lightningtools/lightning/core/http"
)

// Router is the routing table. Registration normally happens before serving
// traffic, but the table takes a read-friendly lock so handlers can be
// re-registered while the server is running: lookups proceed concurrently,
// registration is exclusive.
type Router struct {
	mu      sync.RWMutex
	entries map[string]http.Handler
}

// New creates an empty routing table
func New() *Router {
	return &Router{
		entries: make(map[string]http.Handler),
	}
}

// Register binds a handler to the exact path. Registering a path that is
// already bound replaces the previous handler: last registration wins.
func (r *Router) Register(path string, handler http.Handler) {
	if path == "" || path[0] != '/' {
		panic("router: path must begin with '/'")
	}
	if handler == nil {
		panic("router: nil handler")
	}

	r.mu.Lock()
	r.entries[path] = handler
	r.mu.Unlock()
}

// Lookup returns the handler bound to path, or false when nothing matches
func (r *Router) Lookup(path string) (http.Handler, bool) {
	r.mu.RLock()
	handler, ok := r.entries[path]
	r.mu.RUnlock()
	return handler, ok
}

// Len returns the number of registered routes
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Routes returns a snapshot of the registered paths
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.entries))
	for path := range r.entries {
		paths = append(paths, path)
	}
	return paths
}
