package polyrender

import (
	"sort"
	"strings"
	"sync"
)

// RegisteredElement is a named partial: its template source and default context.
type RegisteredElement struct {
	Name     string
	Source   string
	Defaults TemplateData
}

// ElementRegistry stores partials by tag name. Registering a name again replaces the
// earlier record for templates compiled afterwards.
type ElementRegistry struct {
	mu         sync.RWMutex
	elements   map[string]RegisteredElement
	generation uint64
}

// NewElementRegistry creates an empty element registry
func NewElementRegistry() *ElementRegistry {
	return &ElementRegistry{
		elements: make(map[string]RegisteredElement),
	}
}

// Register stores a partial. Tag names are matched case-insensitively. The defaults
// map is copied, so later changes by the caller have no effect.
func (r *ElementRegistry) Register(name, source string, defaults TemplateData) {
	name = strings.ToLower(strings.TrimSpace(name))

	copied := make(TemplateData, len(defaults))
	for k, v := range defaults {
		copied[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.elements[name]; exists {
		Debug("Replacing registered element %s", name)
	}
	r.elements[name] = RegisteredElement{
		Name:     name,
		Source:   source,
		Defaults: copied,
	}
	r.generation++
}

// Lookup returns the partial registered under name.
func (r *ElementRegistry) Lookup(name string) (RegisteredElement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	el, ok := r.elements[strings.ToLower(name)]
	return el, ok
}

// Names returns the registered tag names in sorted order.
func (r *ElementRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.elements))
	for name := range r.elements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generation is incremented by every registration.
func (r *ElementRegistry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}
