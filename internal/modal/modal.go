// Package modal runs the interactive pointer operations: the button 3 menu,
// window selection, sweeping a new size, dragging, sweeping a free area and
// the workspace overview.
//
// Each operation is a mode of Machine. The window manager loop feeds pointer,
// key, expose and tick events to the machine while a mode is active and holds
// every other event back until the machine is idle again. Whatever way a mode
// ends, the pointer grab is released, the outline erased and the menus hidden.
package modal

import (
	"log/slog"

	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

// Mode is the state of the machine.
type Mode int

const (
	Idle Mode = iota
	MenuOpen
	Selecting
	Sweeping
	Dragging
	Area
	// Releasing waits for every button to come up before the grab is
	// dropped and the finished operation is reported.
	Releasing
	Spaces
)

var modeNames = [...]string{"idle", "menu", "selecting", "sweeping", "dragging", "area", "releasing", "spaces"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// OutcomeKind says how a mode ended.
type OutcomeKind int

const (
	Cancelled OutcomeKind = iota
	Chosen
	Selected
	Swept
	Dragged
	AreaSwept
	// SpaceChosen picks the workspace in Index from the overview.
	SpaceChosen
)

// Outcome is the result of a finished mode.
type Outcome struct {
	Kind OutcomeKind
	// Index is the menu result: a root item index, or 1000+parent*100+child
	// for a submenu item. It is -1 when nothing was picked.
	Index int
	// Window is the selected window, or the window that was swept or dragged.
	Window display.Window
	Shift  bool
	// Held is set on a press selection: the pointer is still grabbed and
	// the caller must start a drag or call Drain.
	Held bool
	// Rect is the committed inner geometry, or the swept area.
	Rect display.Rect
}

// SubmenuBase and SubmenuStride encode submenu picks in Outcome.Index.
const (
	SubmenuBase   = 1000
	SubmenuStride = 100
)

// SubmenuIndex splits a menu result into parent and child. ok is false for
// root items and misses.
func SubmenuIndex(index int) (parent, child int, ok bool) {
	if index < SubmenuBase {
		return -1, -1, false
	}
	index -= SubmenuBase
	return index / SubmenuStride, index % SubmenuStride, true
}

// Options are the geometry and timing settings of the machine.
type Options struct {
	// Border is the frame decoration thickness the outline includes.
	Border int
	// SubmenuDelay is how long, in event milliseconds, a submenu stays open
	// after the pointer leaves its folder item.
	SubmenuDelay uint32
	// Heartbeat is the idle re-query interval during sweep and drag.
	Heartbeat uint32
}

// Target is the window a sweep or drag operates on.
type Target struct {
	Window    display.Window
	Rect      display.Rect
	Hints     display.SizeHints
	MinWidth  int
	MinHeight int
}

// Machine is the modal interaction state machine. It is driven by the window
// manager loop and is not safe for concurrent use.
type Machine struct {
	dpy    display.Display
	rnd    display.Renderer
	logger *slog.Logger
	opts   Options

	mode    Mode
	pending Outcome

	menu  menuState
	sel   selectState
	sw    sweepState
	area  areaState
	sp    spacesState
	shown outline

	heartbeat Deadline
}

// New creates an idle machine.
func New(dpy display.Display, rnd display.Renderer, opts Options, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		dpy:    dpy,
		rnd:    rnd,
		logger: logger,
		opts:   opts,
		shown:  outline{rnd: rnd},
	}
}

// SetOptions replaces the options. It takes effect for the next mode.
func (m *Machine) SetOptions(opts Options) {
	m.opts = opts
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Active reports whether a mode is running.
func (m *Machine) Active() bool {
	return m.mode != Idle
}

// Wants reports whether an event of kind k is handled by the active mode.
// Other events are deferred by the caller until the machine is idle.
func Wants(k event.Kind) bool {
	switch k {
	case event.KindButtonPress, event.KindButtonRelease, event.KindMotion,
		event.KindKeyPress, event.KindExpose, event.KindTick:
		return true
	}
	return false
}

// Feed handles one event. done is true when the mode finished, with the
// outcome describing how.
func (m *Machine) Feed(ev event.Event) (Outcome, bool) {
	switch m.mode {
	case MenuOpen:
		return m.feedMenu(ev)
	case Selecting:
		return m.feedSelect(ev)
	case Sweeping, Dragging:
		return m.feedSweep(ev)
	case Area:
		return m.feedArea(ev)
	case Spaces:
		return m.feedSpaces(ev)
	case Releasing:
		return m.feedRelease(ev)
	}
	return Outcome{}, false
}

// Cancel abandons the active mode, releasing the grab and erasing anything drawn.
func (m *Machine) Cancel(t uint32) {
	if m.mode == Idle {
		return
	}
	m.logger.Debug("modal cancelled", "mode", m.mode)
	m.cleanup()
	m.ungrab(t)
	m.mode = Idle
}

// Drain waits for the held buttons to be released, then drops the grab. It
// follows a press selection the caller decided not to act on.
func (m *Machine) Drain() {
	m.pending = Outcome{Kind: Cancelled, Index: -1}
	m.mode = Releasing
}

// finish ends the mode with out. The grab is only released once no button is
// down; until then the machine stays in Releasing.
func (m *Machine) finish(out Outcome, ev event.Event) (Outcome, bool) {
	m.cleanup()
	if ev.Kind == event.KindButtonRelease && !ev.ButtonsHeld() {
		m.ungrab(ev.Time)
		m.mode = Idle
		return out, true
	}
	m.pending = out
	m.mode = Releasing
	return Outcome{}, false
}

func (m *Machine) feedRelease(ev event.Event) (Outcome, bool) {
	switch ev.Kind {
	case event.KindButtonRelease:
		if ev.ButtonsHeld() {
			return Outcome{}, false
		}
		m.ungrab(ev.Time)
		m.mode = Idle
		out := m.pending
		m.pending = Outcome{}
		return out, true
	case event.KindKeyPress:
		if ev.Key == "Escape" {
			m.Cancel(ev.Time)
			return Outcome{Kind: Cancelled, Index: -1}, true
		}
	}
	return Outcome{}, false
}

// cleanup erases the outline and hides the menus and the overview.
func (m *Machine) cleanup() {
	m.shown.hide()
	m.heartbeat.Clear()
	m.closeMenus()
	m.closeSpaces()
}

func (m *Machine) ungrab(t uint32) {
	if err := m.dpy.UngrabPointer(t); err != nil {
		m.logger.Warn("ungrab pointer failed", "error", err)
	}
	if m.sp.keyboard {
		if err := m.dpy.UngrabKeyboard(t); err != nil {
			m.logger.Warn("ungrab keyboard failed", "error", err)
		}
		m.sp.keyboard = false
	}
}

func (m *Machine) grab(c display.Cursor, t uint32, op string) bool {
	if err := m.dpy.GrabPointer(c, t); err != nil {
		m.logger.Warn("pointer grab failed", "op", op, "error", err)
		return false
	}
	return true
}

// Deadline is a point in event time. Event timestamps are milliseconds that
// wrap around, so comparisons use the signed difference.
type Deadline struct {
	at    uint32
	armed bool
}

// Arm sets the deadline to now+after.
func (d *Deadline) Arm(now, after uint32) {
	d.at = now + after
	d.armed = true
}

// Clear disarms the deadline.
func (d *Deadline) Clear() {
	d.armed = false
}

// Armed reports whether the deadline is set.
func (d Deadline) Armed() bool {
	return d.armed
}

// Expired reports whether an armed deadline has passed at now. A zero
// timestamp carries no time and never expires a deadline.
func (d Deadline) Expired(now uint32) bool {
	return d.armed && now != 0 && int32(now-d.at) >= 0
}

// outline is the rubber-band rectangle currently drawn on the root.
type outline struct {
	rnd     display.Renderer
	rect    display.Rect
	visible bool
}

// show erases any previous outline and draws r. Rectangles too thin to see
// are not drawn.
func (o *outline) show(r display.Rect) {
	o.hide()
	if r.Width <= 2 || r.Height <= 2 {
		return
	}
	_ = o.rnd.XorOutline(r)
	o.rect = r
	o.visible = true
}

func (o *outline) hide() {
	if !o.visible {
		return
	}
	_ = o.rnd.XorOutline(o.rect)
	o.visible = false
}
