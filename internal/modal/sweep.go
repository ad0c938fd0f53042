package modal

import (
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

// Committed geometry below these sizes is rejected.
const (
	minSweep = 4
	minArea  = 50
)

type selectState struct {
	release bool
	pressed display.Window
}

// BeginSelect grabs the pointer with the target cursor so the user can pick
// a window with button 3. With release set the pick happens when the button
// comes up over the same window it went down on; otherwise the press picks
// and the grab is kept for a following drag.
func (m *Machine) BeginSelect(t uint32, release bool) bool {
	if m.mode != Idle || !m.grab(display.CursorTarget, t, "select") {
		return false
	}
	m.sel = selectState{release: release}
	m.mode = Selecting
	return true
}

func (m *Machine) feedSelect(ev event.Event) (Outcome, bool) {
	miss := Outcome{Kind: Cancelled, Index: -1}
	shift := ev.State&event.ShiftMask != 0
	switch ev.Kind {
	case event.KindButtonPress:
		if ev.Button != event.Button3 {
			return m.finish(miss, ev)
		}
		m.sel.pressed = ev.Child
		if !m.sel.release {
			if ev.Child == display.None {
				return m.finish(miss, ev)
			}
			m.mode = Idle
			return Outcome{Kind: Selected, Index: -1, Window: ev.Child, Shift: shift, Held: true}, true
		}
	case event.KindButtonRelease:
		if ev.Button != event.Button3 || ev.Child != m.sel.pressed || ev.Child == display.None {
			return m.finish(miss, ev)
		}
		return m.finish(Outcome{Kind: Selected, Index: -1, Window: ev.Child, Shift: shift}, ev)
	case event.KindKeyPress:
		if ev.Key == "Escape" {
			m.Cancel(ev.Time)
			return miss, true
		}
	}
	return Outcome{}, false
}

// sweepState is the rubber band of a sweep or drag in outer coordinates.
// dx and dy are signed while sweeping: a negative value extends the
// rectangle left of or above the anchor.
type sweepState struct {
	target  Target
	started bool
	// x, y is the anchor corner, dx, dy the signed extent.
	x, y   int
	dx, dy int
	// offX, offY is the pointer offset from the frame corner during a drag.
	offX, offY int
	// cx, cy is the last pointer position applied.
	cx, cy int
}

// BeginSweep starts resizing target. The first button 3 press anchors the
// new rectangle and the next button event commits it. Any other button
// cancels.
func (m *Machine) BeginSweep(target Target, t uint32) bool {
	if m.mode != Idle || !m.grab(display.CursorSweep, t, "sweep") {
		return false
	}
	m.sw = sweepState{target: target}
	m.mode = Sweeping
	return true
}

// BeginDrag starts moving target. The offset between the pointer and the
// frame corner is kept, so the window does not jump under the pointer.
func (m *Machine) BeginDrag(target Target, t uint32) bool {
	if m.mode != Idle {
		return false
	}
	p, err := m.dpy.QueryPointer()
	if err != nil {
		m.logger.Warn("query pointer failed", "error", err)
		return false
	}
	b := m.opts.Border
	r := target.Rect
	if !m.grab(display.CursorBox, t, "drag") {
		return false
	}
	m.sw = sweepState{
		target:  target,
		started: true,
		x:       r.X - b,
		y:       r.Y - b,
		dx:      r.Width + 2*b,
		dy:      r.Height + 2*b,
		offX:    p.X - (r.X - b),
		offY:    p.Y - (r.Y - b),
		cx:      p.X,
		cy:      p.Y,
	}
	m.mode = Dragging
	m.shown.show(m.sw.bound())
	m.heartbeat.Arm(t, m.opts.Heartbeat)
	return true
}

func (m *Machine) feedSweep(ev event.Event) (Outcome, bool) {
	s := &m.sw
	switch ev.Kind {
	case event.KindButtonPress, event.KindButtonRelease:
		if !s.started {
			return m.anchorSweep(ev)
		}
		return m.commitSweep(ev)
	case event.KindMotion:
		if s.started {
			m.track(ev.X, ev.Y)
		}
	case event.KindKeyPress:
		if ev.Key == "Escape" {
			m.Cancel(ev.Time)
			return Outcome{Kind: Cancelled, Index: -1, Window: s.target.Window}, true
		}
	}
	if s.started && m.heartbeat.Expired(ev.Time) {
		m.heartbeat.Arm(ev.Time, m.opts.Heartbeat)
		if p, err := m.dpy.QueryPointer(); err == nil {
			m.track(p.X, p.Y)
		}
	}
	return Outcome{}, false
}

// anchorSweep handles the button event that starts a sweep. The pointer is
// moved to the minimum size corner when the client declares one.
func (m *Machine) anchorSweep(ev event.Event) (Outcome, bool) {
	s := &m.sw
	if ev.Button != event.Button3 {
		return m.finish(Outcome{Kind: Cancelled, Index: -1, Window: s.target.Window}, ev)
	}
	if s.target.Hints.Any(display.HintPMinSize | display.HintPBaseSize) {
		if err := m.dpy.WarpPointer(ev.X+s.target.MinWidth, ev.Y+s.target.MinHeight); err != nil {
			m.logger.Debug("warp pointer failed", "error", err)
		}
	}
	if err := m.dpy.GrabPointer(display.CursorBox, ev.Time); err != nil {
		m.logger.Debug("change grab cursor failed", "error", err)
	}
	s.started = true
	s.x, s.y = ev.X, ev.Y
	s.cx, s.cy = ev.X, ev.Y
	s.recalc(ev.X, ev.Y, m.mode, m.opts.Border)
	m.shown.show(s.bound())
	m.heartbeat.Arm(ev.Time, m.opts.Heartbeat)
	return Outcome{}, false
}

func (m *Machine) track(x, y int) {
	s := &m.sw
	if x == s.cx && y == s.cy {
		return
	}
	s.cx, s.cy = x, y
	s.recalc(x, y, m.mode, m.opts.Border)
	m.shown.show(s.bound())
}

// commitSweep applies the final pointer position and reports the inner
// geometry, or Cancelled when the result is too small.
func (m *Machine) commitSweep(ev event.Event) (Outcome, bool) {
	s := &m.sw
	b := m.opts.Border
	s.recalc(ev.X, ev.Y, m.mode, b)
	r := s.bound()
	r.X += b
	r.Y += b
	r.Width -= 2 * b
	r.Height -= 2 * b

	kind := Swept
	if m.mode == Dragging {
		kind = Dragged
	}
	t := s.target
	if r.Width < minSweep || r.Height < minSweep || r.Width < t.MinWidth || r.Height < t.MinHeight {
		m.logger.Debug("sweep rejected", "window", t.Window, "width", r.Width, "height", r.Height)
		return m.finish(Outcome{Kind: Cancelled, Index: -1, Window: t.Window}, ev)
	}
	return m.finish(Outcome{Kind: kind, Index: -1, Window: t.Window, Rect: r}, ev)
}

func (s *sweepState) recalc(x, y int, mode Mode, border int) {
	if mode == Dragging {
		s.x = x - s.offX
		s.y = y - s.offY
		return
	}
	s.dx = sweepAxis(x-s.x, border, s.target.Hints.Any(display.HintPResizeInc), s.target.MinWidth,
		s.target.Hints.WidthInc, s.target.Hints.Any(display.HintPMaxSize), s.target.Hints.MaxWidth)
	s.dy = sweepAxis(y-s.y, border, s.target.Hints.Any(display.HintPResizeInc), s.target.MinHeight,
		s.target.Hints.HeightInc, s.target.Hints.Any(display.HintPMaxSize), s.target.Hints.MaxHeight)
}

// sweepAxis turns a signed pointer displacement into a signed outer extent:
// the border is taken off, the inner size snapped down to the resize
// increment above the minimum and clamped to the maximum.
func sweepAxis(d, border int, hasInc bool, minSize, inc int, hasMax bool, maxSize int) int {
	sign := 1
	if d < 0 {
		d = -d
		sign = -1
	}
	d -= 2 * border
	if hasInc {
		if inc <= 0 {
			inc = 1
		}
		d = minSize + (d-minSize)/inc*inc
	}
	if hasMax && d > maxSize {
		d = maxSize
	}
	return sign * (d + 2*border)
}

// bound returns the rubber band with a positive extent.
func (s *sweepState) bound() display.Rect {
	return normalize(s.x, s.y, s.dx, s.dy)
}

func normalize(x, y, dx, dy int) display.Rect {
	if dx < 0 {
		x += dx
		dx = -dx
	}
	if dy < 0 {
		y += dy
		dy = -dy
	}
	return display.Rect{X: x, Y: y, Width: dx, Height: dy}
}

type areaState struct {
	pressed bool
	x, y    int
}

// BeginArea lets the user sweep out a free rectangle with button 3, used to
// size a new terminal before it exists.
func (m *Machine) BeginArea(t uint32) bool {
	if m.mode != Idle || !m.grab(display.CursorSweep, t, "area") {
		return false
	}
	m.area = areaState{}
	m.mode = Area
	return true
}

func (m *Machine) feedArea(ev event.Event) (Outcome, bool) {
	a := &m.area
	miss := Outcome{Kind: Cancelled, Index: -1}
	switch ev.Kind {
	case event.KindButtonPress:
		if ev.Button != event.Button3 {
			return m.finish(miss, ev)
		}
		a.pressed = true
		a.x, a.y = ev.X, ev.Y
		if err := m.dpy.GrabPointer(display.CursorBox, ev.Time); err != nil {
			m.logger.Debug("change grab cursor failed", "error", err)
		}
	case event.KindMotion:
		if a.pressed {
			m.shown.show(normalize(a.x, a.y, ev.X-a.x, ev.Y-a.y))
		}
	case event.KindButtonRelease:
		if !a.pressed || ev.Button != event.Button3 {
			return m.finish(miss, ev)
		}
		r := normalize(a.x, a.y, ev.X-a.x, ev.Y-a.y)
		if r.Width < minArea || r.Height < minArea {
			return m.finish(miss, ev)
		}
		return m.finish(Outcome{Kind: AreaSwept, Index: -1, Rect: r}, ev)
	case event.KindKeyPress:
		if ev.Key == "Escape" {
			m.Cancel(ev.Time)
			return miss, true
		}
	}
	return Outcome{}, false
}
