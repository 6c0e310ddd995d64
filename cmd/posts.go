package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aaronparisi/technoblog/internal/terminal"
	"github.com/aaronparisi/technoblog/internal/theme"
)

var postsJSON bool

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List the registered posts",
	Long:  `Lists every post in navigation order and reports posts whose content file is missing and content files no post refers to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}

		if postsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reg.All())
		}

		dark, _ := terminal.Ambient().Current()
		fmt.Print(terminal.TOC(cfg.SiteTitle, reg.All(), "", theme.State(dark)))

		status, err := checkContent(cfg, reg)
		if err != nil {
			fmt.Printf("\nContent directory %s is not readable: %v\n", cfg.ContentDir, err)
			return nil
		}
		if len(status.Missing) > 0 {
			fmt.Println("\nMissing content:")
			for _, p := range status.Missing {
				fmt.Printf("  %s -> %s\n", p.Route, p.ContentRef)
			}
		}
		if len(status.Unlisted) > 0 {
			fmt.Println("\nUnlisted files:")
			for _, f := range status.Unlisted {
				fmt.Printf("  %s (%d bytes)\n", f.RelPath, f.Size)
			}
		}
		return nil
	},
}

func init() {
	postsCmd.Flags().BoolVar(&postsJSON, "json", false, "print the registry as JSON")
	rootCmd.AddCommand(postsCmd)
}
