package theme

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Loader resolves theme names to palettes.
type Loader struct {
	logger    *slog.Logger
	themesDir string
}

// NewLoader creates a loader reading user themes from themesDir. An empty
// themesDir uses ThemesDir().
func NewLoader(themesDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if themesDir == "" {
		dir, err := ThemesDir()
		if err != nil {
			logger.Warn("failed to get themes directory", "error", err)
		}
		themesDir = dir
	}
	return &Loader{logger: logger, themesDir: themesDir}
}

// ThemesDir returns the path to the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "toastui", "themes"), nil
}

// Load resolves a theme by name. Resolution order:
//  1. User themes directory (~/.config/toastui/themes/<name>.toml)
//  2. Bundled themes
//  3. The default theme
//
// A user file with a bundled name overrides the bundled palette. Load never
// fails; problems are logged and the next source is tried.
func (l *Loader) Load(name string) *Theme {
	if name == "" {
		name = DefaultThemeName
	}

	if l.themesDir != "" && !strings.ContainsAny(name, `/\`) {
		path := filepath.Join(l.themesDir, name+".toml")
		if data, err := os.ReadFile(path); err == nil {
			t, err := Parse(name, data, Default())
			if err != nil {
				l.logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
			} else {
				t.Path = path
				l.logger.Debug("loaded user theme", "name", name, "path", path)
				return t
			}
		}
	}

	if data, found := GetEmbeddedTheme(name); found {
		t, err := Parse(name, data, Default())
		if err == nil {
			t.IsDefault = name == DefaultThemeName
			l.logger.Debug("loaded bundled theme", "name", name)
			return t
		}
		l.logger.Warn("bundled theme is invalid", "theme", name, "error", err)
	}

	l.logger.Warn("theme not found, using default", "theme", name)
	return Default()
}

// ListThemes returns bundled and user theme names, without duplicates.
func (l *Loader) ListThemes() []string {
	seen := make(map[string]bool)
	var themes []string

	for _, name := range ListEmbeddedThemes() {
		if !seen[name] {
			seen[name] = true
			themes = append(themes, name)
		}
	}

	if l.themesDir == "" {
		return themes
	}
	entries, err := os.ReadDir(l.themesDir)
	if err != nil {
		l.logger.Debug("failed to read themes directory", "error", err)
		return themes
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".toml" {
			continue
		}
		themeName := strings.TrimSuffix(name, ".toml")
		if !seen[themeName] {
			seen[themeName] = true
			themes = append(themes, themeName)
		}
	}
	return themes
}
