// Package displaytest provides an in-memory Display and Renderer that records
// every request. It backs the core package tests and the replay command.
package displaytest

import (
	"fmt"
	"sync"

	"github.com/jmylchreest/shrub9/internal/display"
)

// Default fake screen and menu metrics.
const (
	DefaultRoot   display.Window = 0x1
	ScreenWidth                  = 1280
	ScreenHeight                 = 1024
	CharWidth                    = 10
	ItemHeight                   = 20
	firstFrame    display.Window = 0x800000
)

// Call is one recorded request.
type Call struct {
	Op     string
	Window display.Window
	Rect   display.Rect
	Arg    int
	Text   string
}

// String formats the call for test failure output.
func (c Call) String() string {
	return fmt.Sprintf("%s %s %+v %d %q", c.Op, c.Window, c.Rect, c.Arg, c.Text)
}

// Window is the fake server-side state of one window.
type Window struct {
	Info     display.WindowInfo
	Props    display.Properties
	State    display.State
	HasState bool
	Parent   display.Window
	Mapped   bool
	InSave   bool
}

// Recorder implements display.Display, display.Renderer and
// display.Recolorer in memory.
type Recorder struct {
	mu sync.Mutex

	RootWindow display.Window
	ScreenRect display.Rect

	// Pointer is returned by QueryPointer and updated by WarpPointer.
	Pointer display.Pointer
	// GrabError, when set, is returned by GrabPointer.
	GrabError error
	// Focus is the last window given input focus.
	Focus display.Window
	// Grabbed reports whether the pointer is currently grabbed.
	Grabbed bool
	// KeyboardGrabbed reports whether the keyboard is currently grabbed.
	KeyboardGrabbed bool
	// Keys holds the chords passed to the last GrabKeys call.
	Keys []string
	// Colors holds the palette passed to the last SetColors call.
	Colors display.Colors

	Calls    []Call
	windows  map[display.Window]*Window
	gone     map[display.Window]bool
	order    []display.Window
	next     display.Window
	sink     display.Window
	outline  map[display.Rect]int
	menu     menus
	titles   map[display.Window]Title
	overview Overview
}

// New returns a recorder with an empty 1280x1024 screen.
func New() *Recorder {
	return &Recorder{
		RootWindow: DefaultRoot,
		ScreenRect: display.Rect{Width: ScreenWidth, Height: ScreenHeight},
		windows:    make(map[display.Window]*Window),
		gone:       make(map[display.Window]bool),
		outline:    make(map[display.Rect]int),
		titles:     make(map[display.Window]Title),
		next:       firstFrame,
	}
}

// AddWindow registers a client window as a top-level child of the root.
func (r *Recorder) AddWindow(w display.Window, geom display.Rect, props display.Properties) *Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw := &Window{
		Info:   display.WindowInfo{Rect: geom},
		Props:  props,
		Parent: r.RootWindow,
	}
	r.windows[w] = fw
	r.order = append(r.order, w)
	delete(r.gone, w)
	return fw
}

// Vanish makes every later request naming w fail with ErrWindowGone.
func (r *Recorder) Vanish(w display.Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gone[w] = true
}

// Win returns the fake state of w, or nil.
func (r *Recorder) Win(w display.Window) *Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windows[w]
}

// IsMapped reports whether w is currently mapped.
func (r *Recorder) IsMapped(w display.Window) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fw, ok := r.windows[w]; ok {
		return fw.Mapped
	}
	return false
}

// Count returns how many times op was issued for w. A zero window matches any.
func (r *Recorder) Count(op string, w display.Window) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Op == op && (w == display.None || c.Window == w) {
			n++
		}
	}
	return n
}

// Last returns the most recent call with the given op.
func (r *Recorder) Last(op string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Calls) - 1; i >= 0; i-- {
		if r.Calls[i].Op == op {
			return r.Calls[i], true
		}
	}
	return Call{}, false
}

// Ops returns the recorded op names in order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Reset drops the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = nil
}

// OutlineVisible reports whether any rubber-band outline is currently drawn.
func (r *Recorder) OutlineVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.outline {
		if n%2 == 1 {
			return true
		}
	}
	return false
}

func (r *Recorder) record(c Call) {
	r.Calls = append(r.Calls, c)
}

// lookup returns the fake window or ErrWindowGone. Caller holds mu.
func (r *Recorder) lookup(w display.Window) (*Window, error) {
	if r.gone[w] {
		return nil, fmt.Errorf("window %s: %w", w, display.ErrWindowGone)
	}
	fw, ok := r.windows[w]
	if !ok {
		return nil, fmt.Errorf("window %s: %w", w, display.ErrWindowGone)
	}
	return fw, nil
}

func (r *Recorder) touch(op string, w display.Window) (*Window, error) {
	r.record(Call{Op: op, Window: w})
	return r.lookup(w)
}

var (
	_ display.Display  = (*Recorder)(nil)
	_ display.Renderer = (*Recorder)(nil)
)
