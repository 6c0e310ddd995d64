package cmd

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/config"
	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/logging"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/theme"
	"github.com/aaronparisi/technoblog/internal/walker"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `technoblog init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Development)
}

// buildRegistry uses the configured posts, or the built-in pair when the
// config lists none.
func buildRegistry(cfg *config.Config) (*posts.Registry, error) {
	if len(cfg.Posts) == 0 {
		return posts.Default(), nil
	}
	entries := make([]posts.PostInfo, len(cfg.Posts))
	for i, p := range cfg.Posts {
		entries[i] = posts.PostInfo{Route: p.Route, Title: p.Title, ContentRef: p.ContentRef}
	}
	return posts.NewRegistry(entries...)
}

func fetchTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Server.FetchTimeoutSeconds) * time.Second
}

// buildFetcher serves http(s) refs over the network and everything else
// from the content directory.
func buildFetcher(cfg *config.Config) content.Fetcher {
	return &content.Mux{
		Remote: content.NewHTTPFetcher(fetchTimeout(cfg)),
		Local:  content.NewFileFetcher(os.DirFS(cfg.ContentDir)),
	}
}

func buildRenderer(cfg *config.Config, logger *zap.Logger) *content.Renderer {
	return content.NewRenderer(content.Palette{
		Dark:  cfg.Theme.DarkStyle,
		Light: cfg.Theme.LightStyle,
	}, logger)
}

// preferenceStorage is where terminal commands keep the theme choice.
func preferenceStorage() (theme.Storage, error) {
	path, err := theme.DefaultFilePath()
	if err != nil {
		return nil, fmt.Errorf("locating preference file: %w", err)
	}
	return theme.NewFileStorage(path), nil
}

// contentStatus reports, per post, whether its local file exists, and
// lists content files no post refers to.
type contentStatus struct {
	Missing  []posts.PostInfo
	Unlisted []walker.FileInfo
}

func checkContent(cfg *config.Config, reg *posts.Registry) (contentStatus, error) {
	var st contentStatus
	files, err := walker.Walk(walker.WalkerConfig{
		RootDir: cfg.ContentDir,
		Include: cfg.Watch.Include,
		Exclude: cfg.Watch.Exclude,
	})
	if err != nil {
		return st, err
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.RelPath] = true
	}
	referenced := make(map[string]bool)
	for _, p := range reg.All() {
		if content.IsRemote(p.ContentRef) {
			continue
		}
		name := content.LocalName(p.ContentRef)
		referenced[name] = true
		if !present[name] {
			st.Missing = append(st.Missing, p)
		}
	}
	for _, f := range files {
		if !referenced[f.RelPath] {
			st.Unlisted = append(st.Unlisted, f)
		}
	}
	return st, nil
}
