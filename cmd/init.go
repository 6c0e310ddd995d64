package cmd

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aaronparisi/technoblog/internal/config"
	"github.com/aaronparisi/technoblog/internal/posts"
)

//go:embed starter/*.md
var starterPosts embed.FS

var (
	initForce    bool
	initDefaults bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and starter posts",
	Long: `Asks for the site title, content directory, port, preference storage and
live reload settings, writes .technoblog.yml listing the starter posts and
copies them into the content directory. --defaults (or a non-interactive
stdin) skips the questions. Existing files are kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}

		cfg := starterConfig()
		if !initDefaults && term.IsTerminal(int(os.Stdin.Fd())) {
			var err error
			if cfg, err = config.RunWizard(cfg); err != nil {
				return err
			}
			fmt.Println()
		}
		return initBlog(cfgFile, cfg, initForce)
	},
}

// starterConfig is the default config listing the starter posts.
func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	for _, p := range posts.Default().All() {
		cfg.Posts = append(cfg.Posts, config.PostConfig{
			Route:      p.Route,
			Title:      p.Title,
			ContentRef: p.ContentRef,
		})
	}
	return cfg
}

func initBlog(path string, cfg *config.Config, force bool) error {
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)

	written, err := writeStarterPosts(cfg.ContentDir, force)
	if err != nil {
		return err
	}
	for _, name := range written {
		fmt.Printf("Wrote %s\n", name)
	}
	fmt.Println("Run `technoblog serve` to start the blog.")
	return nil
}

func writeStarterPosts(dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}
	entries, err := fs.ReadDir(starterPosts, "starter")
	if err != nil {
		return nil, err
	}

	var written []string
	for _, e := range entries {
		dest := filepath.Join(dir, e.Name())
		if _, err := os.Stat(dest); err == nil && !force {
			continue
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("checking %s: %w", dest, err)
		}
		data, err := starterPosts.ReadFile("starter/" + e.Name())
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", dest, err)
		}
		written = append(written, dest)
	}
	return written, nil
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "skip the questions and use default settings")
	rootCmd.AddCommand(initCmd)
}
