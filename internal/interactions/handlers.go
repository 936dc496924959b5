package interactions

import (
	"errors"
	"sort"
)

// HandlerRegistry maps component custom ids to handlers.
//
// Like CommandRegistry it is read-only once serving starts.
type HandlerRegistry struct {
	handlers map[string]HandlerFunc
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]HandlerFunc)}
}

// Register binds id to h, replacing any previous handler.
func (r *HandlerRegistry) Register(id string, h HandlerFunc) error {
	if id == "" {
		return errors.New("custom id is required")
	}
	if h == nil {
		return errors.New("handler is nil")
	}
	r.handlers[id] = h
	return nil
}

// Resolve finds the handler for a custom id. An exact match on the whole id
// wins; otherwise the primary segment is looked up and the remaining
// segments are returned as arguments.
func (r *HandlerRegistry) Resolve(customID string) (HandlerFunc, []string, error) {
	if h, ok := r.handlers[customID]; ok {
		return h, nil, nil
	}
	primary, args := DecodeCustomID(customID)
	if h, ok := r.handlers[primary]; ok {
		return h, args, nil
	}
	return nil, nil, ErrUnknownCustomID
}

// Len returns the number of registered ids.
func (r *HandlerRegistry) Len() int {
	return len(r.handlers)
}

// IDs returns the registered ids, sorted.
func (r *HandlerRegistry) IDs() []string {
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge copies every handler of other into r, overwriting on collision.
// The colliding ids are returned sorted.
func (r *HandlerRegistry) Merge(other *HandlerRegistry) []string {
	collisions := r.Collisions(other)
	for id, h := range other.handlers {
		r.handlers[id] = h
	}
	return collisions
}

// Collisions returns the ids of other that r already holds, sorted.
func (r *HandlerRegistry) Collisions(other *HandlerRegistry) []string {
	var out []string
	for id := range other.handlers {
		if _, ok := r.handlers[id]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
