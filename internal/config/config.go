package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "TECHNOBLOG_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (TECHNOBLOG_*). Nested keys are separated
// by a double underscore: TECHNOBLOG_SERVER__PORT -> server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps TECHNOBLOG_THEME__DARK_STYLE to theme.dark_style.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validStorage is the set of recognized theme storage backends.
var validStorage = map[StorageKind]bool{
	StorageCookie: true,
	StorageSQLite: true,
}

// validLogLevels is the set of recognized zap levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.ContentDir == "" {
		return fmt.Errorf("content_dir is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	if c.Server.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("server.fetch_timeout_seconds must be non-negative")
	}

	if !validStorage[c.Theme.Storage] {
		return fmt.Errorf("invalid theme.storage %q: must be one of cookie, sqlite", c.Theme.Storage)
	}

	if strings.TrimSpace(c.Theme.Key) == "" {
		return fmt.Errorf("theme.key is required")
	}

	if c.Theme.Storage == StorageSQLite && c.Theme.DBPath == "" {
		return fmt.Errorf("theme.db_path is required when theme.storage is sqlite")
	}

	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}

	for i, p := range c.Posts {
		if p.Route == "" || p.ContentRef == "" {
			return fmt.Errorf("posts[%d]: route and content_ref are required", i)
		}
	}

	return nil
}
