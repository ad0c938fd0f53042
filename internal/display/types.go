package display

import "fmt"

// Window is a protocol window id. None is the zero window.
type Window uint32

// None is the absent window.
const None Window = 0

// String formats the window id as hex, the way xprop and xwininfo print it.
func (w Window) String() string {
	return fmt.Sprintf("0x%x", uint32(w))
}

// Rect is a window geometry in root coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// State is the ICCCM WM_STATE value.
type State int

const (
	StateWithdrawn State = 0
	StateNormal    State = 1
	StateIconic    State = 3
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateWithdrawn:
		return "withdrawn"
	case StateNormal:
		return "normal"
	case StateIconic:
		return "iconic"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// WM_NORMAL_HINTS flags.
const (
	HintUSPosition = 1 << 0
	HintUSSize     = 1 << 1
	HintPPosition  = 1 << 2
	HintPSize      = 1 << 3
	HintPMinSize   = 1 << 4
	HintPMaxSize   = 1 << 5
	HintPResizeInc = 1 << 6
	HintPAspect    = 1 << 7
	HintPBaseSize  = 1 << 8
	HintPGravity   = 1 << 9
)

// Window gravity values.
const (
	GravityNorthWest = 1
	GravityNorth     = 2
	GravityNorthEast = 3
	GravityWest      = 4
	GravityCenter    = 5
	GravityEast      = 6
	GravitySouthWest = 7
	GravitySouth     = 8
	GravitySouthEast = 9
	GravityStatic    = 10
)

// SizeHints mirrors WM_NORMAL_HINTS.
type SizeHints struct {
	Flags      uint32
	MinWidth   int
	MinHeight  int
	MaxWidth   int
	MaxHeight  int
	WidthInc   int
	HeightInc  int
	BaseWidth  int
	BaseHeight int
	Gravity    int
}

// Has reports whether all the given flags are set.
func (h SizeHints) Has(flags uint32) bool {
	return h.Flags&flags == flags
}

// Any reports whether any of the given flags is set.
func (h SizeHints) Any(flags uint32) bool {
	return h.Flags&flags != 0
}

// WindowInfo is the subset of GetWindowAttributes and GetGeometry the core uses.
type WindowInfo struct {
	Rect
	BorderWidth      int
	OverrideRedirect bool
	Viewable         bool
	Colormap         uint32
}

// Properties bundles the client properties read when a window is managed
// or one of its properties changes.
type Properties struct {
	Name            string
	IconName        string
	Instance        string
	Class           string
	Hints           SizeHints
	InitialState    State // from WM_HINTS; zero when absent
	DeleteWindow    bool  // WM_PROTOCOLS contains WM_DELETE_WINDOW
	TakeFocus       bool  // WM_PROTOCOLS contains WM_TAKE_FOCUS
	TransientFor    Window
	ColormapWindows []Window
	Hold            bool
}

// Pointer is the result of a pointer query in root coordinates.
type Pointer struct {
	X       int
	Y       int
	Buttons uint16 // button state mask
	Child   Window // top-level child of the root under the pointer
}

// Cursor selects the glyph shown during a pointer grab.
type Cursor int

const (
	CursorArrow Cursor = iota
	CursorTarget
	CursorSweep
	CursorBox
)

// MenuLayer identifies one of the two menu windows.
type MenuLayer int

const (
	LayerMain MenuLayer = iota
	LayerSub
)

// OverviewCell is one workspace drawn in the spaces overview.
type OverviewCell struct {
	Rect  Rect
	Label string
	// Current marks the active workspace, Target the one under the pointer
	// or the drop target of a drag.
	Current bool
	Target  bool
	Thumbs  []Rect
}
