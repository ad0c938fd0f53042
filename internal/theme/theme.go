package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrNotFound is returned when no user or bundled palette has the name.
var ErrNotFound = errors.New("theme not found")

// maxDepth bounds inherits chains.
const maxDepth = 8

// Palette holds the colours a theme sets. Empty fields are left to the
// palette it inherits from, or to the configuration defaults.
type Palette struct {
	Inherits           string `toml:"inherits,omitempty"`
	ActiveColor        string `toml:"active_color,omitempty"`
	InactiveColor      string `toml:"inactive_color,omitempty"`
	MenuBackground     string `toml:"menu_background,omitempty"`
	MenuForeground     string `toml:"menu_foreground,omitempty"`
	MenuHighlight      string `toml:"menu_highlight,omitempty"`
	TitlebarBackground string `toml:"titlebar_background,omitempty"`
	TitlebarForeground string `toml:"titlebar_foreground,omitempty"`
}

// overlay fills p's empty colours from base.
func (p *Palette) overlay(base Palette) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&p.ActiveColor, base.ActiveColor)
	fill(&p.InactiveColor, base.InactiveColor)
	fill(&p.MenuBackground, base.MenuBackground)
	fill(&p.MenuForeground, base.MenuForeground)
	fill(&p.MenuHighlight, base.MenuHighlight)
	fill(&p.TitlebarBackground, base.TitlebarBackground)
	fill(&p.TitlebarForeground, base.TitlebarForeground)
}

// Theme is a resolved palette and where it came from.
type Theme struct {
	Name    string
	Path    string // empty for bundled palettes
	Palette Palette
}

// Bundled reports whether the palette was read from the embedded set.
func (t *Theme) Bundled() bool {
	return t.Path == ""
}

// ThemesDir returns the user palette directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ThemesDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "shrub9", "themes")
}

// Parse decodes a palette file.
func Parse(data []byte) (Palette, error) {
	var p Palette
	if err := toml.Unmarshal(data, &p); err != nil {
		return Palette{}, err
	}
	p.Inherits = strings.TrimSpace(p.Inherits)
	return p, nil
}

// Load resolves a palette by name. A file in dir shadows the bundled
// palette of the same name. Inherited palettes are resolved the same way
// and their colours fill whatever the named palette leaves empty.
func Load(dir, name string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}
	t, err := read(dir, name)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{name: true}
	next := t.Palette.Inherits
	for depth := 0; next != ""; depth++ {
		if seen[next] {
			return nil, fmt.Errorf("theme %q: inherits cycle through %q", name, next)
		}
		if depth >= maxDepth {
			return nil, fmt.Errorf("theme %q: inherits chain deeper than %d", name, maxDepth)
		}
		seen[next] = true
		base, err := read(dir, next)
		if err != nil {
			return nil, fmt.Errorf("theme %q: %w", name, err)
		}
		t.Palette.overlay(base.Palette)
		next = base.Palette.Inherits
	}
	t.Palette.Inherits = ""
	return t, nil
}

func read(dir, name string) (*Theme, error) {
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid theme name %q", name)
	}
	if dir != "" {
		path := filepath.Join(dir, name+".toml")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			p, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("parse theme %s: %w", path, err)
			}
			return &Theme{Name: name, Path: path, Palette: p}, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read theme %s: %w", path, err)
		}
	}
	data, ok := GetEmbeddedTheme(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse bundled theme %s: %w", name, err)
	}
	return &Theme{Name: name, Palette: p}, nil
}

// List returns the names of every palette available from dir and the
// bundled set, sorted and without duplicates.
func List(dir string) []string {
	names := map[string]bool{}
	for _, n := range ListEmbeddedThemes() {
		names[n] = true
	}
	if dir != "" {
		if entries, err := os.ReadDir(dir); err == nil {
			for _, e := range entries {
				if !e.IsDir() && filepath.Ext(e.Name()) == ".toml" {
					names[strings.TrimSuffix(e.Name(), ".toml")] = true
				}
			}
		}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
