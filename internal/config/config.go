// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/shrub9/internal/theme"
)

// Limits shared with the window manager core.
const (
	MaxWorkspaces     = 10
	MaxMenuItems      = 32
	MaxSubmenuItems   = 16
	DefaultWorkspaces = 4
)

// Default configuration values.
const (
	DefaultTerminal       = "xterm"
	DefaultBorder         = 4
	DefaultFrameWidth     = 1
	DefaultFont           = "fixed"
	DefaultTitlebarHeight = 18
	DefaultSubmenuDelay   = 250 * time.Millisecond
	DefaultSweepHeartbeat = 50 * time.Millisecond
	DefaultStaleSwitch    = 2 * time.Second
)

// DefaultTerminalClasses lists the WM_CLASS values treated as terminals.
var DefaultTerminalClasses = []string{
	"st", "st-256color", "alacritty", "xterm", "urxvt", "kitty",
	"gnome-terminal", "xfce4-terminal", "konsole",
}

// Built-in menu commands. Anything else is run through the spawner.
const (
	CommandTerminal = "terminal"
	CommandReshape  = "reshape"
	CommandMove     = "move"
	CommandDelete   = "delete"
	CommandHide     = "hide"
	CommandTile     = "tile"
	CommandSpaces   = "spaces"
)

// Config is the configuration for shrub9.
// Loaded from ~/.config/shrub9/config.toml
type Config struct {
	Workspaces WorkspacesConfig `toml:"workspaces"`
	Menu       MenuConfig       `toml:"menu"`
	Terminal   TerminalConfig   `toml:"terminal"`
	Appearance AppearanceConfig `toml:"appearance"`
	Behavior   BehaviorConfig   `toml:"behavior"`
}

// WorkspacesConfig holds the workspace count and switch keys.
type WorkspacesConfig struct {
	Count int         `toml:"count"`
	Keys  []KeyConfig `toml:"keys"`
}

// KeyConfig binds a key chord such as "Mod4+1" to a workspace index.
type KeyConfig struct {
	Key       string `toml:"key"`
	Workspace int    `toml:"workspace"`
}

// MenuConfig holds the button 3 menu.
type MenuConfig struct {
	Items []MenuItem `toml:"items"`
}

// MenuItem is a menu entry. Items with children are folders and open a submenu.
type MenuItem struct {
	Label   string     `toml:"label"`
	Command string     `toml:"command,omitempty"`
	Items   []MenuItem `toml:"items,omitempty"`
}

// IsFolder reports whether the item opens a submenu.
func (m MenuItem) IsFolder() bool {
	return len(m.Items) > 0
}

// TerminalConfig holds terminal spawning and terminal-reuse settings.
type TerminalConfig struct {
	Command      string   `toml:"command"`
	LauncherMode bool     `toml:"launcher_mode"` // GUI windows launched from a terminal take its place
	Classes      []string `toml:"classes"`
}

// AppearanceConfig contains frame and menu rendering settings.
type AppearanceConfig struct {
	Border             int    `toml:"border"`          // Frame decoration thickness in pixels
	FrameWidth         int    `toml:"frame_width"`     // X border width of the frame window
	Theme              string `toml:"theme,omitempty"` // Named palette; explicit colours below win
	ActiveColor        string `toml:"active_color"`
	InactiveColor      string `toml:"inactive_color"`
	MenuBackground     string `toml:"menu_background"`
	MenuForeground     string `toml:"menu_foreground"`
	MenuHighlight      string `toml:"menu_highlight"`
	Font               string `toml:"font"`
	LowercaseMenu      bool   `toml:"lowercase_menu"`
	ShowTitlebars      bool   `toml:"show_titlebars"`  // Read at startup only
	TitlebarHeight     int    `toml:"titlebar_height"` // Read at startup only
	TitlebarBackground string `toml:"titlebar_background"`
	TitlebarForeground string `toml:"titlebar_foreground"`
}

// TitleHeight is the titlebar height, zero when titlebars are off.
func (a AppearanceConfig) TitleHeight() int {
	if !a.ShowTitlebars {
		return 0
	}
	return a.TitlebarHeight
}

func (a *AppearanceConfig) clearColors() {
	a.ActiveColor, a.InactiveColor = "", ""
	a.MenuBackground, a.MenuForeground, a.MenuHighlight = "", "", ""
	a.TitlebarBackground, a.TitlebarForeground = "", ""
}

// applyTheme fills the colours the file left unset, from the named palette
// first and then from defaults.
func (a *AppearanceConfig) applyTheme(dir string, defaults AppearanceConfig) error {
	var p theme.Palette
	if a.Theme != "" {
		t, err := theme.Load(dir, a.Theme)
		if err != nil {
			return fmt.Errorf("appearance theme: %w", err)
		}
		p = t.Palette
	}
	fill := func(dst *string, values ...string) {
		for _, v := range values {
			if *dst != "" {
				return
			}
			*dst = v
		}
	}
	fill(&a.ActiveColor, p.ActiveColor, defaults.ActiveColor)
	fill(&a.InactiveColor, p.InactiveColor, defaults.InactiveColor)
	fill(&a.MenuBackground, p.MenuBackground, defaults.MenuBackground)
	fill(&a.MenuForeground, p.MenuForeground, defaults.MenuForeground)
	fill(&a.MenuHighlight, p.MenuHighlight, defaults.MenuHighlight)
	fill(&a.TitlebarBackground, p.TitlebarBackground, defaults.TitlebarBackground)
	fill(&a.TitlebarForeground, p.TitlebarForeground, defaults.TitlebarForeground)
	return nil
}

// BehaviorConfig contains interaction timings.
type BehaviorConfig struct {
	SubmenuDelay        Duration `toml:"submenu_delay"`   // Debounce before a submenu closes
	SweepHeartbeat      Duration `toml:"sweep_heartbeat"` // Idle re-validation during sweep/drag
	StaleSwitch         Duration `toml:"stale_switch"`    // Reset a workspace switch that never settles
	AutoReshapeTerminal bool     `toml:"auto_reshape_terminal"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	keys := make([]KeyConfig, 0, DefaultWorkspaces)
	for i := 0; i < DefaultWorkspaces; i++ {
		keys = append(keys, KeyConfig{Key: fmt.Sprintf("Mod4+%d", i+1), Workspace: i})
	}

	return &Config{
		Workspaces: WorkspacesConfig{
			Count: DefaultWorkspaces,
			Keys:  keys,
		},
		Menu: MenuConfig{
			Items: []MenuItem{
				{Label: "New", Command: CommandTerminal},
				{Label: "Reshape", Command: CommandReshape},
				{Label: "Move", Command: CommandMove},
				{Label: "Delete", Command: CommandDelete},
				{Label: "Hide", Command: CommandHide},
				{Label: "Tile", Command: CommandTile},
			},
		},
		Terminal: TerminalConfig{
			Command:      DefaultTerminal,
			LauncherMode: true,
			Classes:      append([]string(nil), DefaultTerminalClasses...),
		},
		Appearance: AppearanceConfig{
			Border:             DefaultBorder,
			FrameWidth:         DefaultFrameWidth,
			ActiveColor:        "black",
			InactiveColor:      "white",
			MenuBackground:     "white",
			MenuForeground:     "black",
			MenuHighlight:      "#3465a4",
			Font:               DefaultFont,
			TitlebarHeight:     DefaultTitlebarHeight,
			TitlebarBackground: "#cccccc",
			TitlebarForeground: "#000000",
		},
		Behavior: BehaviorConfig{
			SubmenuDelay:        Duration(DefaultSubmenuDelay),
			SweepHeartbeat:      Duration(DefaultSweepHeartbeat),
			StaleSwitch:         Duration(DefaultStaleSwitch),
			AutoReshapeTerminal: true,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "shrub9", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Tables in the file replace the defaults wholesale, so a user menu
	// does not get the built-in items appended to it.
	cfg.Menu.Items = nil
	cfg.Workspaces.Keys = nil
	cfg.Appearance.clearColors()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	defaults := DefaultConfig()
	if err := cfg.Appearance.applyTheme(theme.ThemesDir(), defaults.Appearance); err != nil {
		return nil, err
	}
	if cfg.Menu.Items == nil {
		cfg.Menu.Items = defaults.Menu.Items
	}
	if cfg.Workspaces.Keys == nil {
		cfg.Workspaces.Keys = defaults.Workspaces.Keys
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workspaces.Count < 1 || c.Workspaces.Count > MaxWorkspaces {
		return fmt.Errorf("workspace count must be between 1 and %d, got %d", MaxWorkspaces, c.Workspaces.Count)
	}
	for _, k := range c.Workspaces.Keys {
		if _, err := ParseChord(k.Key); err != nil {
			return err
		}
		if k.Workspace < 0 || k.Workspace >= c.Workspaces.Count {
			return fmt.Errorf("key %q targets workspace %d, must be between 0 and %d", k.Key, k.Workspace, c.Workspaces.Count-1)
		}
	}

	if len(c.Menu.Items) == 0 {
		return errors.New("menu must have at least one item")
	}
	if len(c.Menu.Items) > MaxMenuItems {
		return fmt.Errorf("menu has %d items, maximum is %d", len(c.Menu.Items), MaxMenuItems)
	}
	for i, item := range c.Menu.Items {
		if strings.TrimSpace(item.Label) == "" {
			return fmt.Errorf("menu item %d has no label", i)
		}
		if !item.IsFolder() && item.Command == "" {
			return fmt.Errorf("menu item %q has no command", item.Label)
		}
		if len(item.Items) > MaxSubmenuItems {
			return fmt.Errorf("submenu %q has %d items, maximum is %d", item.Label, len(item.Items), MaxSubmenuItems)
		}
		for _, sub := range item.Items {
			if strings.TrimSpace(sub.Label) == "" || sub.Command == "" {
				return fmt.Errorf("submenu %q has an item without label or command", item.Label)
			}
			if sub.IsFolder() {
				return fmt.Errorf("submenu %q nests another folder %q", item.Label, sub.Label)
			}
		}
	}

	if c.Appearance.Border < 1 || c.Appearance.Border > 32 {
		return fmt.Errorf("border must be between 1 and 32, got %d", c.Appearance.Border)
	}
	if c.Appearance.FrameWidth < 0 || c.Appearance.FrameWidth > c.Appearance.Border {
		return fmt.Errorf("frame_width must be between 0 and border, got %d", c.Appearance.FrameWidth)
	}
	if c.Appearance.ShowTitlebars && (c.Appearance.TitlebarHeight < 8 || c.Appearance.TitlebarHeight > 64) {
		return fmt.Errorf("titlebar_height must be between 8 and 64, got %d", c.Appearance.TitlebarHeight)
	}
	for _, color := range []string{
		c.Appearance.ActiveColor, c.Appearance.InactiveColor,
		c.Appearance.MenuBackground, c.Appearance.MenuForeground, c.Appearance.MenuHighlight,
		c.Appearance.TitlebarBackground, c.Appearance.TitlebarForeground,
	} {
		if _, err := ParseColor(color); err != nil {
			return err
		}
	}

	if c.Behavior.SubmenuDelay <= 0 {
		return errors.New("submenu_delay must be positive")
	}
	if c.Behavior.SweepHeartbeat <= 0 {
		return errors.New("sweep_heartbeat must be positive")
	}
	if c.Behavior.StaleSwitch < 0 {
		return errors.New("stale_switch must not be negative")
	}

	return nil
}

// IsTerminalClass reports whether a WM_CLASS class names a terminal emulator.
func (c *Config) IsTerminalClass(class string) bool {
	if class == "" {
		return false
	}
	for _, t := range c.Terminal.Classes {
		if strings.EqualFold(strings.TrimSpace(t), class) {
			return true
		}
	}
	return false
}

// MenuLabels returns the labels of the top-level menu items.
func (c *Config) MenuLabels() []string {
	labels := make([]string, len(c.Menu.Items))
	for i, item := range c.Menu.Items {
		labels[i] = item.Label
	}
	return labels
}

// SubmenuCommand returns the command of a submenu entry, or "" when out of range.
func (c *Config) SubmenuCommand(parent, child int) string {
	if parent < 0 || parent >= len(c.Menu.Items) {
		return ""
	}
	items := c.Menu.Items[parent].Items
	if child < 0 || child >= len(items) {
		return ""
	}
	return items[child].Command
}
