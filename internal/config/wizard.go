package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// WizardAnswers holds what the init wizard asked for.
type WizardAnswers struct {
	SiteTitle  string
	ContentDir string
	Port       int
	Storage    StorageKind
	DBPath     string
	Watch      bool
	Include    []string
}

// AnswersFrom returns the answers cfg already implies, used as prompt defaults.
func AnswersFrom(cfg *Config) WizardAnswers {
	return WizardAnswers{
		SiteTitle:  cfg.SiteTitle,
		ContentDir: cfg.ContentDir,
		Port:       cfg.Server.Port,
		Storage:    cfg.Theme.Storage,
		DBPath:     cfg.Theme.DBPath,
		Watch:      cfg.Watch.Enabled,
		Include:    cfg.Watch.Include,
	}
}

// Apply copies the answers onto cfg.
func (a WizardAnswers) Apply(cfg *Config) {
	cfg.SiteTitle = a.SiteTitle
	cfg.ContentDir = a.ContentDir
	cfg.Server.Port = a.Port
	cfg.Theme.Storage = a.Storage
	if a.Storage == StorageSQLite && a.DBPath != "" {
		cfg.Theme.DBPath = a.DBPath
	}
	cfg.Watch.Enabled = a.Watch
	if len(a.Include) > 0 {
		cfg.Watch.Include = a.Include
	}
}

// RunWizard asks for the settings a new blog usually changes, starting from
// base, and returns the resulting Config. It does not save anything.
func RunWizard(base *Config) (*Config, error) {
	fmt.Println("Welcome to technoblog! Let's set up your blog.")
	fmt.Println()

	a := AnswersFrom(base)
	var err error

	// 1. Site title.
	a.SiteTitle, err = (&promptui.Prompt{
		Label:    "Site title",
		Default:  a.SiteTitle,
		Validate: validateNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("site title: %w", err)
	}

	// 2. Content directory.
	a.ContentDir, err = (&promptui.Prompt{
		Label:    "Directory holding the posts",
		Default:  a.ContentDir,
		Validate: validateNonEmpty,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}

	// 3. Port.
	portStr, err := (&promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(a.Port),
		Validate: validatePort,
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	a.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	// 4. Where theme preferences live.
	storageKinds := []StorageKind{StorageCookie, StorageSQLite}
	storagePrompt := promptui.Select{
		Label: "Remember each reader's theme in",
		Items: []string{
			"cookie (the reader's browser)",
			"sqlite (a database on this server)",
		},
		CursorPos: indexOf(storageKinds, a.Storage),
	}
	idx, _, err := storagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("storage selection: %w", err)
	}
	a.Storage = storageKinds[idx]

	if a.Storage == StorageSQLite {
		a.DBPath, err = (&promptui.Prompt{
			Label:    "Preference database path",
			Default:  a.DBPath,
			Validate: validateNonEmpty,
		}).Run()
		if err != nil {
			return nil, fmt.Errorf("database path: %w", err)
		}
	}

	// 5. Live reload.
	watchPrompt := promptui.Select{
		Label: "Refresh open pages when a post changes",
		Items: []string{"yes", "no"},
	}
	if !a.Watch {
		watchPrompt.CursorPos = 1
	}
	idx, _, err = watchPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("watch selection: %w", err)
	}
	a.Watch = idx == 0

	if a.Watch {
		includeStr, err := (&promptui.Prompt{
			Label:   "Files to watch (comma-separated globs)",
			Default: strings.Join(a.Include, ","),
		}).Run()
		if err != nil {
			return nil, fmt.Errorf("include patterns: %w", err)
		}
		a.Include = splitAndTrim(includeStr)
	}

	cfg := *base
	a.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func validatePort(s string) error {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and drops empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func indexOf(kinds []StorageKind, k StorageKind) int {
	for i, kind := range kinds {
		if kind == k {
			return i
		}
	}
	return 0
}
