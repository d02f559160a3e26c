// Package suggest filters the known medicine directory for autocomplete.
package suggest

import (
	"context"
	"strings"
	"sync"

	"medichat-client/pkg/logger"
)

// Directory lists the known medicine names. Satisfied by the backend client.
type Directory interface {
	ListMedicines(ctx context.Context) ([]string, error)
}

// Engine serves bounded, case-insensitive substring suggestions over the
// medicine directory. The directory is fetched lazily once; a fetch failure
// leaves it empty so suggestions are silently unavailable rather than an
// error surface.
type Engine struct {
	mu        sync.RWMutex
	directory Directory
	names     []string
	loaded    bool
	limit     int
	log       *logger.Logger
}

// NewEngine creates a suggestion engine over the given directory source
func NewEngine(directory Directory, limit int, log *logger.Logger) *Engine {
	if limit <= 0 {
		limit = 5
	}
	return &Engine{
		directory: directory,
		limit:     limit,
		log:       log,
	}
}

// Suggest returns up to the configured number of medicine names containing
// the query, case-insensitively. An empty query yields an empty list.
func (e *Engine) Suggest(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}

	e.ensureLoaded(ctx)

	needle := strings.ToLower(query)

	e.mu.RLock()
	defer e.mu.RUnlock()

	matches := make([]string, 0, e.limit)
	for _, name := range e.names {
		if strings.Contains(strings.ToLower(name), needle) {
			matches = append(matches, name)
			if len(matches) >= e.limit {
				break
			}
		}
	}
	return matches
}

// Refresh re-fetches the directory explicitly
func (e *Engine) Refresh(ctx context.Context) {
	names, err := e.directory.ListMedicines(ctx)
	if err != nil {
		e.log.Warn("medicine directory fetch failed, suggestions unavailable", "error", err.Error())
		names = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = names
	e.loaded = true
}

// ensureLoaded performs the one lazy fetch. A failed fetch still counts as
// loaded: the directory stays empty until an explicit Refresh.
func (e *Engine) ensureLoaded(ctx context.Context) {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	if loaded {
		return
	}
	e.Refresh(ctx)
}
