package config

import (
	"fmt"
	"strings"
)

// Modifier masks as defined by the X11 core protocol.
const (
	ModShift   uint16 = 1 << 0
	ModLock    uint16 = 1 << 1
	ModControl uint16 = 1 << 2
	Mod1       uint16 = 1 << 3
	Mod2       uint16 = 1 << 4
	Mod3       uint16 = 1 << 5
	Mod4       uint16 = 1 << 6
	Mod5       uint16 = 1 << 7
)

var modifierNames = map[string]uint16{
	"shift":   ModShift,
	"lock":    ModLock,
	"control": ModControl,
	"ctrl":    ModControl,
	"mod1":    Mod1,
	"alt":     Mod1,
	"mod2":    Mod2,
	"mod3":    Mod3,
	"mod4":    Mod4,
	"super":   Mod4,
	"mod5":    Mod5,
}

// Chord is a parsed key binding: a modifier mask and a keysym name.
type Chord struct {
	Mods uint16
	Key  string
}

// String renders the chord in the "Mod4-1" form understood by xgbutil's keybind.
func (c Chord) String() string {
	var parts []string
	for _, m := range []struct {
		mask uint16
		name string
	}{
		{ModShift, "shift"}, {ModLock, "lock"}, {ModControl, "control"},
		{Mod1, "mod1"}, {Mod2, "mod2"}, {Mod3, "mod3"}, {Mod4, "mod4"}, {Mod5, "mod5"},
	} {
		if c.Mods&m.mask != 0 {
			parts = append(parts, m.name)
		}
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "-")
}

// ParseChord parses "Mod4+1", "super+shift+F2" or "Control-a".
func ParseChord(s string) (Chord, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == '-' })
	if len(fields) == 0 {
		return Chord{}, fmt.Errorf("empty key binding")
	}

	var chord Chord
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if i == len(fields)-1 {
			if _, isMod := modifierNames[strings.ToLower(f)]; isMod {
				return Chord{}, fmt.Errorf("key binding %q has no key", s)
			}
			chord.Key = f
			break
		}
		mask, ok := modifierNames[strings.ToLower(f)]
		if !ok {
			return Chord{}, fmt.Errorf("unknown modifier %q in key binding %q", f, s)
		}
		chord.Mods |= mask
	}
	return chord, nil
}

// Binding maps a parsed chord to a workspace.
type Binding struct {
	Chord
	Workspace int
}

// Bindings parses the workspace key table. Invalid entries are skipped;
// Validate reports them when the file is loaded.
func (c *Config) Bindings() []Binding {
	out := make([]Binding, 0, len(c.Workspaces.Keys))
	for _, k := range c.Workspaces.Keys {
		chord, err := ParseChord(k.Key)
		if err != nil {
			continue
		}
		out = append(out, Binding{Chord: chord, Workspace: k.Workspace})
	}
	return out
}

// WorkspaceForKey returns the workspace bound to the chord, or -1.
// Lock and NumLock (Mod2) are ignored when matching.
func (c *Config) WorkspaceForKey(mods uint16, key string) int {
	mods &^= ModLock | Mod2
	for _, b := range c.Bindings() {
		if b.Mods&^(ModLock|Mod2) == mods && strings.EqualFold(b.Key, key) {
			return b.Workspace
		}
	}
	return -1
}
