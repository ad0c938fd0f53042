// Package theme resolves named colour palettes for frames and menus.
// Palettes are read from ~/.config/shrub9/themes/ first, falling back to
// the bundled set, and may inherit from another palette.
package theme
