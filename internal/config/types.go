package config

// StorageKind selects where the reader's theme preference is persisted.
type StorageKind string

const (
	StorageCookie StorageKind = "cookie"
	StorageSQLite StorageKind = "sqlite"
)

// Config is the top-level technoblog configuration, corresponding to .technoblog.yml.
type Config struct {
	SiteTitle  string       `yaml:"site_title" koanf:"site_title"`
	ContentDir string       `yaml:"content_dir" koanf:"content_dir"`
	Posts      []PostConfig `yaml:"posts" koanf:"posts"`
	Server     ServerConfig `yaml:"server" koanf:"server"`
	Theme      ThemeConfig  `yaml:"theme" koanf:"theme"`
	Watch      WatchConfig  `yaml:"watch" koanf:"watch"`
	Log        LogConfig    `yaml:"log" koanf:"log"`
}

// PostConfig is one entry of the post registry.
type PostConfig struct {
	Route      string `yaml:"route" koanf:"route"`
	Title      string `yaml:"title" koanf:"title"`
	ContentRef string `yaml:"content_ref" koanf:"content_ref"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                int  `yaml:"port" koanf:"port"`
	AllowAllOrigins     bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	FetchTimeoutSeconds int  `yaml:"fetch_timeout_seconds" koanf:"fetch_timeout_seconds"`
}

// ThemeConfig controls preference persistence and the code highlighting palettes.
type ThemeConfig struct {
	Storage    StorageKind `yaml:"storage" koanf:"storage"`
	Key        string      `yaml:"key" koanf:"key"`
	DBPath     string      `yaml:"db_path" koanf:"db_path"`
	DarkStyle  string      `yaml:"dark_style" koanf:"dark_style"`
	LightStyle string      `yaml:"light_style" koanf:"light_style"`
}

// WatchConfig controls live reload of file-backed posts.
type WatchConfig struct {
	Enabled bool     `yaml:"enabled" koanf:"enabled"`
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude,omitempty" koanf:"exclude"` // e.g. drafts/**
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}
