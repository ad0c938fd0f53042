// Package client tracks managed top-level windows. Clients live in an arena
// owned by Registry and refer to each other through generation-checked
// handles, so a reference to a destroyed client fails its liveness check
// instead of dangling.
package client

import (
	"strings"

	"github.com/jmylchreest/shrub9/internal/display"
)

// Handle addresses a client slot. The zero Handle refers to no client.
type Handle struct {
	index uint32
	gen   uint32
}

// Nil is the handle that refers to no client.
var Nil Handle

// IsNil reports whether the handle refers to no client.
func (h Handle) IsNil() bool {
	return h.gen == 0
}

// Client is a managed top-level window plus its tracked metadata.
type Client struct {
	Handle Handle
	Window display.Window
	Frame  display.Window

	// Inner geometry in root coordinates and the border width the client asked for.
	X      int
	Y      int
	Width  int
	Height int
	Border int

	Hints     display.SizeHints
	MinWidth  int
	MinHeight int

	State       display.State
	Init        bool
	Reparenting bool
	// Mapped tracks whether the window manager has the frame mapped.
	Mapped bool

	Delete    bool
	TakeFocus bool
	Hold      bool

	Transient display.Window
	Revert    Handle
	Workspace int

	Colormap        uint32
	ColormapWindows []display.Window

	Name     string
	IconName string
	Instance string
	Class    string
	Label    string
	Terminal bool

	LauncherParent Handle
	LauncherChild  Handle
	Saved          display.Rect

	Fullscreen bool
	Restore    display.Rect
}

// Rect returns the inner geometry.
func (c *Client) Rect() display.Rect {
	return display.Rect{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

// SetRect replaces the inner geometry.
func (c *Client) SetRect(r display.Rect) {
	c.X, c.Y, c.Width, c.Height = r.X, r.Y, r.Width, r.Height
}

// Outer returns the area covered by the frame including its decoration.
func (c *Client) Outer(border int) display.Rect {
	return display.Rect{
		X:      c.X - border,
		Y:      c.Y - border,
		Width:  c.Width + 2*border,
		Height: c.Height + 2*border,
	}
}

// FrameRect returns the frame window geometry excluding its own X border of
// frameWidth pixels. The client window sits at Inset inside it.
func (c *Client) FrameRect(border, frameWidth int) display.Rect {
	return display.Rect{
		X:      c.X - border,
		Y:      c.Y - border,
		Width:  c.Width + 2*(border-frameWidth),
		Height: c.Height + 2*(border-frameWidth),
	}
}

// Inset is the offset of the client window inside its frame.
func Inset(border, frameWidth int) int {
	return border - frameWidth
}

// Decoration is the frame drawn around every client: the border, the X
// border of the frame window and an optional titlebar above the client.
type Decoration struct {
	Border     int
	FrameWidth int
	// Title is the titlebar height, zero when titlebars are off.
	Title int
}

// Frame returns the frame window geometry around c. The titlebar extends
// the frame upwards so the client keeps its inner geometry.
func (d Decoration) Frame(c *Client) display.Rect {
	r := c.FrameRect(d.Border, d.FrameWidth)
	r.Y -= d.Title
	r.Height += d.Title
	return r
}

// Offset is the position of the client window inside its frame.
func (d Decoration) Offset() (x, y int) {
	inset := Inset(d.Border, d.FrameWidth)
	return inset, inset + d.Title
}

// TitleRect is the titlebar geometry inside the frame of a client width
// pixels wide.
func (d Decoration) TitleRect(width int) display.Rect {
	inset := Inset(d.Border, d.FrameWidth)
	return display.Rect{X: inset, Y: inset, Width: width, Height: d.Title}
}

// Client returns the geometry of the client window inside its frame.
func (d Decoration) Client(c *Client) display.Rect {
	x, y := d.Offset()
	return display.Rect{X: x, Y: y, Width: c.Width, Height: c.Height}
}

// IsNormal reports whether the client is in the Normal state.
func (c *Client) IsNormal() bool {
	return c.State == display.StateNormal
}

// IsHidden reports whether the client is iconified.
func (c *Client) IsHidden() bool {
	return c.State == display.StateIconic
}

// ApplyProperties copies the fetched properties onto the client.
// Hints with no flags are treated as a program-specified size.
func (c *Client) ApplyProperties(p display.Properties) {
	c.Name = p.Name
	c.IconName = p.IconName
	c.Instance = p.Instance
	c.Class = p.Class
	c.Delete = p.DeleteWindow
	c.TakeFocus = p.TakeFocus
	c.Transient = p.TransientFor
	c.ColormapWindows = append(c.ColormapWindows[:0], p.ColormapWindows...)
	c.Hold = p.Hold
	c.ApplyHints(p.Hints)
	c.UpdateLabel()
}

// ApplyHints stores WM_NORMAL_HINTS and derives the minimum size.
func (c *Client) ApplyHints(h display.SizeHints) {
	if h.Flags == 0 {
		h.Flags = display.HintPSize
	}
	c.Hints = h
	switch {
	case h.Any(display.HintPBaseSize):
		c.MinWidth, c.MinHeight = h.BaseWidth, h.BaseHeight
	case h.Any(display.HintPMinSize):
		c.MinWidth, c.MinHeight = h.MinWidth, h.MinHeight
	default:
		c.MinWidth, c.MinHeight = 0, 0
	}
}

// FixedSize reports whether the client asked for its size explicitly or
// cannot be resized at all.
func (c *Client) FixedSize() bool {
	h := c.Hints
	if h.Any(display.HintUSSize | display.HintPSize) {
		return true
	}
	return h.Has(display.HintPMinSize|display.HintPMaxSize) &&
		h.MinWidth == h.MaxWidth && h.MinHeight == h.MaxHeight
}

// Gravitate shifts the inner position between the client's requested
// position and the position inside a frame of the given border, according to
// the window gravity. Invert undoes the shift.
func (c *Client) Gravitate(border int, invert bool) bool {
	gravity := display.GravityNorthWest
	if c.Hints.Any(display.HintPGravity) {
		gravity = c.Hints.Gravity
	}

	delta := c.Border - border
	var dx, dy int
	switch gravity {
	case display.GravityNorthWest:
	case display.GravityNorth:
		dx = delta
	case display.GravityNorthEast:
		dx = 2 * delta
	case display.GravityWest:
		dy = delta
	case display.GravityCenter, display.GravityStatic:
		dx, dy = delta, delta
	case display.GravityEast:
		dx, dy = 2*delta, delta
	case display.GravitySouthWest:
		dy = 2 * delta
	case display.GravitySouth:
		dx, dy = delta, 2*delta
	case display.GravitySouthEast:
		dx, dy = 2*delta, 2*delta
	default:
		return false
	}
	dx += border
	dy += border
	if invert {
		dx, dy = -dx, -dy
	}
	c.X += dx
	c.Y += dy
	return true
}

// Title is the text drawn in the titlebar.
func (c *Client) Title() string {
	for _, s := range []string{c.Name, c.Label, c.Class, c.Instance} {
		if s != "" {
			return s
		}
	}
	return "Untitled"
}

// UpdateLabel recomputes the menu label from the naming properties.
func (c *Client) UpdateLabel() {
	c.Label = MakeLabel(c.IconName, c.Name, c.Instance, c.Class)
}

// MakeLabel picks the first non-empty name and shortens it: everything up to
// the last " - " is dropped, the text is cut at the first ':' and leading
// spaces are trimmed.
func MakeLabel(iconName, name, instance, class string) string {
	label := "no label"
	for _, s := range []string{iconName, name, instance, class} {
		if s != "" {
			label = s
			break
		}
	}
	for {
		i := strings.Index(label, " - ")
		if i < 0 {
			break
		}
		label = label[i+3:]
	}
	if i := strings.IndexByte(label, ':'); i >= 0 {
		label = label[:i]
	}
	return strings.TrimLeft(label, " ")
}
