package config

// DefaultWatchInclude are the glob patterns watched for content changes by default.
var DefaultWatchInclude = []string{
	"**/*.md",
	"**/*.markdown",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SiteTitle:  "Aaron Parisi's Techno-Blog",
		ContentDir: "posts",
		Server: ServerConfig{
			Port:                8080,
			FetchTimeoutSeconds: 10,
		},
		Theme: ThemeConfig{
			Storage:    StorageCookie,
			Key:        "darkMode",
			DBPath:     ".technoblog/preferences.db",
			DarkStyle:  "monokai",
			LightStyle: "github",
		},
		Watch: WatchConfig{
			Enabled: true,
			Include: DefaultWatchInclude,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
