package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "technoblog",
	Short: "A personal blog with light and dark themes",
	Long: `technoblog serves a small set of markdown posts as a website. Each
page follows the reader's light or dark preference, highlights code blocks
to match, and stays live: editing a post refreshes every open page.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".technoblog.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
