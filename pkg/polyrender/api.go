package polyrender

// TemplateData is the render context: variable names mapped to values. Nested
// mappings, slices, structs and func values are all allowed.
type TemplateData map[string]interface{}

// Engine compiles and renders templates. It owns a template cache and an element
// registry; both are safe for concurrent use.
// Use New() to create a new engine instance.
type Engine struct {
	config   *Config
	cache    *TemplateCache
	elements *ElementRegistry
	logger   *Logger
}

// New creates a new engine with the global configuration. It logs through the global
// logger.
func New() *Engine {
	return newEngine(GetGlobalConfig())
}

// NewWithConfig creates a new engine with custom configuration. Unset fields take
// their default values. The engine logs through the global logger's writer at the
// configuration's log level.
func NewWithConfig(config *Config) *Engine {
	e := newEngine(config)
	e.logger = GetLogger().WithLevel(ParseLogLevel(e.config.LogLevel))
	return e
}

func newEngine(config *Config) *Engine {
	return &Engine{
		config:   NewConfigWithDefaults(config),
		cache:    NewTemplateCache(),
		elements: NewElementRegistry(),
	}
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
		if e.logger == nil {
			e.logger = GetLogger().WithLevel(ParseLogLevel(e.config.LogLevel))
		}
	}
}

// WithStrictMode returns an option that makes malformed markup and bindings errors.
func WithStrictMode(strict bool) Option {
	return func(e *Engine) {
		e.config.StrictMode = strict
	}
}

// WithMaxRenderDepth returns an option that limits partial and repeat nesting.
func WithMaxRenderDepth(depth int) Option {
	return func(e *Engine) {
		e.config.MaxRenderDepth = depth
	}
}

// WithRootTags returns an option that sets the component-root wrapper tags.
func WithRootTags(tags ...string) Option {
	return func(e *Engine) {
		e.config.RootTags = append([]string(nil), tags...)
	}
}

// WithVersionedCache returns an option that makes element re-registration
// invalidate templates compiled against the earlier registration.
func WithVersionedCache(enabled bool) Option {
	return func(e *Engine) {
		e.config.VersionedCache = enabled
	}
}

// WithElement returns an option that registers a partial.
func WithElement(name, source string, defaults TemplateData) Option {
	return func(e *Engine) {
		e.elements.Register(name, source, defaults)
	}
}

// WithLogger returns an option that sets the engine logger. Engines without one use
// the global logger.
func WithLogger(logger *Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewWithOptions creates a new engine with the specified options.
func NewWithOptions(opts ...Option) *Engine {
	engine := New()
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Compile compiles source into a template whose Render returns out. Compiling the
// same source with the same output mode again returns the same *Template.
func (e *Engine) Compile(source string, out Output) (*Template, error) {
	entry, err := e.entry(source, false)
	if err != nil {
		return nil, err
	}
	return entry.template(e, out), nil
}

// entry returns the cache entry for source, compiling it on a miss.
func (e *Engine) entry(source string, fragment bool) (*cacheEntry, error) {
	key := cacheKey{source: source, fragment: fragment}
	if e.config.VersionedCache {
		key.generation = e.elements.Generation()
	}

	logger := e.log()
	entry, hit, err := e.cache.getOrCompile(key, func() (*Program, error) {
		program, err := newCompiler(e.config, e.elements, logger).compile(source, fragment)
		if err != nil {
			return nil, err
		}
		logger.DebugProgram(source, program)
		return program, nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(Fields{
		"source_length": len(source),
		"fragment":      fragment,
		"cache":         cacheResult(hit),
	}).Debug("Compiled template")
	return entry, nil
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// RegisterElement registers a partial. Templates compiled afterwards inline the new
// source wherever the tag appears; templates already compiled keep the one they saw.
func (e *Engine) RegisterElement(name, source string, defaults TemplateData) {
	e.elements.Register(name, source, defaults)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Elements returns the engine's element registry.
func (e *Engine) Elements() *ElementRegistry {
	return e.elements
}

// Cache returns the engine's template cache.
func (e *Engine) Cache() *TemplateCache {
	return e.cache
}

// ClearCache removes all compiled templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

func (e *Engine) log() *Logger {
	if e.logger != nil {
		return e.logger
	}
	return GetLogger()
}

// DefaultEngine is used by the package-level functions.
var DefaultEngine = New()

// Compile compiles source with the default engine.
func Compile(source string, out Output) (*Template, error) {
	return DefaultEngine.Compile(source, out)
}

// RegisterElement registers a partial with the default engine.
func RegisterElement(name, source string, defaults TemplateData) {
	DefaultEngine.RegisterElement(name, source, defaults)
}

// RenderString compiles source with the default engine and renders it to markup.
func RenderString(source string, data TemplateData) (string, error) {
	tmpl, err := Compile(source, OutputString)
	if err != nil {
		return "", err
	}
	return tmpl.RenderString(data)
}

// ClearCache clears the default engine's template cache.
func ClearCache() {
	DefaultEngine.ClearCache()
}
