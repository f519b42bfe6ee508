package polyrender

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the polyrender engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// MaxRenderDepth limits how deeply partials and repeat bodies may nest at render time
	MaxRenderDepth int `yaml:"max_render_depth"`
	// StrictMode turns lenient markup and binding recovery into parse errors
	StrictMode bool `yaml:"strict_mode"`
	// RootTags are the component-root wrapper tags searched for a template element
	RootTags []string `yaml:"root_tags"`
	// VersionedCache keys compiled templates by source and element registry generation,
	// so re-registering a partial invalidates templates compiled against the old one
	VersionedCache bool `yaml:"versioned_cache"`
}

var (
	globalConfig      = ConfigFromEnvironment()
	globalConfigMutex sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		MaxRenderDepth: 100,
		StrictMode:     false,
		RootTags:       []string{"dom-module", "root"},
		VersionedCache: false,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// POLYRENDER_LOG_LEVEL
	if val := os.Getenv("POLYRENDER_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// POLYRENDER_MAX_RENDER_DEPTH
	if val := os.Getenv("POLYRENDER_MAX_RENDER_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRenderDepth = depth
		}
	}

	// POLYRENDER_STRICT_MODE
	if val := os.Getenv("POLYRENDER_STRICT_MODE"); val != "" {
		config.StrictMode = parseBool(val)
	}

	// POLYRENDER_ROOT_TAGS (comma separated)
	if val := os.Getenv("POLYRENDER_ROOT_TAGS"); val != "" {
		config.RootTags = splitList(val)
	}

	// POLYRENDER_VERSIONED_CACHE
	if val := os.Getenv("POLYRENDER_VERSIONED_CACHE"); val != "" {
		config.VersionedCache = parseBool(val)
	}

	return config
}

// LoadConfigFile reads a YAML configuration file. Fields missing from the file keep
// their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.MaxRenderDepth == 0 {
		config.MaxRenderDepth = defaults.MaxRenderDepth
	}

	if len(config.RootTags) == 0 {
		config.RootTags = defaults.RootTags
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxRenderDepth <= 0 {
		return errors.New("max render depth must be positive")
	}

	if len(c.RootTags) == 0 {
		return errors.New("at least one root tag is required")
	}
	for _, tag := range c.RootTags {
		if strings.TrimSpace(tag) == "" {
			return errors.New("root tags cannot be empty")
		}
	}

	return nil
}

// isRootTag reports whether name is one of the configured component-root tags.
func (c *Config) isRootTag(name string) bool {
	for _, tag := range c.RootTags {
		if strings.EqualFold(tag, name) {
			return true
		}
	}
	return false
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	configCopy.RootTags = append([]string(nil), globalConfig.RootTags...)
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// outside the lock: the logger reads the config back
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
