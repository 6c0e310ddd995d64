package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/terminal"
	"github.com/aaronparisi/technoblog/internal/theme"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the saved theme preference",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTheme(false)
	},
}

var themeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the theme in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTheme(false)
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between light and dark and save the choice",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTheme(true)
	},
}

func runTheme(toggle bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	storage, err := preferenceStorage()
	if err != nil {
		return err
	}
	ctx := context.Background()
	r := theme.NewResolver(storage, terminal.Ambient(),
		theme.WithKey(cfg.Theme.Key),
		theme.WithLogger(logger))

	st := r.ResolveInitial(ctx)
	if toggle {
		st = r.Toggle(ctx)
	}

	source := "terminal background"
	if v, ok, _ := storage.Get(ctx, r.Key()); ok {
		if _, valid := theme.ParseState(v); valid {
			source = "saved preference"
		}
	}
	fmt.Printf("%s (%s)\n", st, source)
	return nil
}

func init() {
	themeCmd.AddCommand(themeShowCmd, themeToggleCmd)
	rootCmd.AddCommand(themeCmd)
}
