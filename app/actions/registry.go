package actions

import (
	"context"
	"fmt"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// Handler executes one analysis action against a content item. The config
// map carries the action-specific configuration from the category's chain
// entry. Handlers return a payload to merge into the item's metadata.
type Handler interface {
	Name() string
	Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error)
}

// Registry maps symbolic handler names to implementations. It is populated
// once at startup; unknown names are rejected at taxonomy load, not at
// execution time.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler under its symbolic name
func (r *Registry) Register(h Handler) error {
	if h.Name() == "" {
		return fmt.Errorf("handler name is required")
	}
	if _, exists := r.handlers[h.Name()]; exists {
		return fmt.Errorf("handler '%s' already registered", h.Name())
	}
	r.handlers[h.Name()] = h
	return nil
}

// Resolve looks up a handler by symbolic name
func (r *Registry) Resolve(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the set of registered handler names, used by the taxonomy
// loader to validate action configuration
func (r *Registry) Names() map[string]bool {
	names := make(map[string]bool, len(r.handlers))
	for name := range r.handlers {
		names[name] = true
	}
	return names
}
