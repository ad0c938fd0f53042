package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/shrub9/internal/display"
)

var namedColors = map[string]uint32{
	"black": 0x000000,
	"white": 0xffffff,
	"gray":  0xbebebe,
	"grey":  0xbebebe,
	"red":   0xff0000,
	"green": 0x00ff00,
	"blue":  0x0000ff,
}

// ParseColor converts "#rrggbb", "#rgb" or a basic colour name into a
// 24-bit TrueColor pixel value.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if v, ok := namedColors[s]; ok {
		return v, nil
	}
	if !strings.HasPrefix(s, "#") {
		return 0, fmt.Errorf("invalid color %q: use #rrggbb or a basic color name", s)
	}

	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, fmt.Errorf("invalid color %q: use #rrggbb or a basic color name", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint32(v), nil
}

// AppearanceColors parses the appearance colours.
func AppearanceColors(a AppearanceConfig) (display.Colors, error) {
	var c display.Colors
	for _, f := range []struct {
		dst  *uint32
		name string
	}{
		{&c.Active, a.ActiveColor},
		{&c.Inactive, a.InactiveColor},
		{&c.MenuBackground, a.MenuBackground},
		{&c.MenuForeground, a.MenuForeground},
		{&c.MenuHighlight, a.MenuHighlight},
		{&c.TitleBackground, a.TitlebarBackground},
		{&c.TitleForeground, a.TitlebarForeground},
	} {
		px, err := ParseColor(f.name)
		if err != nil {
			return display.Colors{}, err
		}
		*f.dst = px
	}
	return c, nil
}
