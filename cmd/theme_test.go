package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunThemeValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, ".technoblog.yml")
	if err := os.WriteFile(path, []byte("theme:\n  key: \"  \"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })

	err := runTheme(true)
	if err == nil || !strings.Contains(err.Error(), "theme.key") {
		t.Fatalf("runTheme() error = %v, want an invalid theme.key error", err)
	}
}
