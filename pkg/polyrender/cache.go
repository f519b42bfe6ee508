package polyrender

import "sync"

// TemplateCache memoizes compiled programs by exact source text. Entries are never
// evicted; Clear is the only way to drop them.
type TemplateCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
}

type cacheKey struct {
	source   string
	fragment bool
	// generation is the element registry generation when Config.VersionedCache is set
	generation uint64
}

type cacheEntry struct {
	program *Program

	mu        sync.Mutex
	templates map[Output]*Template
}

// NewTemplateCache creates an empty template cache
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// getOrCompile returns the entry for key, calling compile on a miss. Failed compiles
// are not stored. When two callers compile the same key concurrently, the first one
// stored wins and both get it.
func (tc *TemplateCache) getOrCompile(key cacheKey, compile func() (*Program, error)) (*cacheEntry, bool, error) {
	tc.mu.RLock()
	entry, ok := tc.entries[key]
	tc.mu.RUnlock()
	if ok {
		return entry, true, nil
	}

	program, err := compile()
	if err != nil {
		return nil, false, err
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if existing, ok := tc.entries[key]; ok {
		return existing, true, nil
	}
	entry = &cacheEntry{
		program:   program,
		templates: make(map[Output]*Template),
	}
	tc.entries[key] = entry
	return entry, false, nil
}

// template returns the entry's routine for the output mode, creating it once.
func (ce *cacheEntry) template(engine *Engine, out Output) *Template {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if t, ok := ce.templates[out]; ok {
		return t
	}
	t := &Template{
		engine:  engine,
		program: ce.program,
		output:  out,
	}
	ce.templates[out] = t
	return t
}

// Contains reports whether source has been compiled as a full template.
func (tc *TemplateCache) Contains(source string) bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	for key := range tc.entries {
		if key.source == source && !key.fragment {
			return true
		}
	}
	return false
}

// Clear removes all compiled templates from the cache
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries = make(map[cacheKey]*cacheEntry)
}

// Size returns the current number of cached programs, fragments included
func (tc *TemplateCache) Size() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.entries)
}
