package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/terminal"
	"github.com/aaronparisi/technoblog/internal/theme"
)

var (
	readTheme string
	readWidth int
)

var readCmd = &cobra.Command{
	Use:   "read <route>",
	Short: "Read a post in the terminal",
	Long: `Renders a post in the terminal using your saved theme preference, or the
terminal background when none is saved. --theme overrides both for one read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Sync()

		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		info, ok := reg.Lookup(args[0])
		if !ok {
			return fmt.Errorf("no post at %s", posts.NormalizeRoute(args[0]))
		}

		ctx := context.Background()
		var st theme.State
		if readTheme != "" {
			var ok bool
			if st, ok = theme.ParseName(readTheme); !ok {
				return fmt.Errorf("unknown theme %q (want dark or light)", readTheme)
			}
		} else {
			storage, err := preferenceStorage()
			if err != nil {
				return err
			}
			st = theme.NewResolver(storage, terminal.Ambient(),
				theme.WithKey(cfg.Theme.Key),
				theme.WithLogger(logger)).ResolveInitial(ctx)
		}

		if t := fetchTimeout(cfg); t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}
		doc, err := content.Load(ctx, buildFetcher(cfg), content.NewParser(), info.ContentRef)
		if err != nil {
			return fmt.Errorf("loading %s: %w", info.Route, err)
		}

		out, err := terminal.Render(doc, st, readWidth)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	readCmd.Flags().StringVar(&readTheme, "theme", "", "dark or light (default: saved preference)")
	readCmd.Flags().IntVar(&readWidth, "width", terminal.DefaultWidth, "word-wrap width")
	rootCmd.AddCommand(readCmd)
}
