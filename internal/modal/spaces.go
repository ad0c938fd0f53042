package modal

import (
	"strconv"

	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

// The overview is a 3x3 grid inset by a tenth of the screen width.
const (
	spacesCols = 3
	spacesRows = 3
	spacesGap  = 10
	// labelGap is added below the font height to make room for the label.
	labelGap = 10
)

// SpaceWindow is a client shown in the overview with its inner geometry.
type SpaceWindow struct {
	Window display.Window
	Rect   display.Rect
}

// Overview is what the spaces overview shows: the Normal clients of every
// workspace, topmost first, and the current workspace.
type Overview struct {
	Spaces  [][]SpaceWindow
	Current int
}

// MoveFunc moves w to workspace ws and returns the overview as it now
// stands. ok is false when the move failed.
type MoveFunc func(w display.Window, ws int) (ov Overview, ok bool)

// spacesGrid lays out the overview cells over the screen.
type spacesGrid struct {
	screen display.Rect
	labelH int
}

func (g spacesGrid) cell(ws int) display.Rect {
	margin := g.screen.Width / 10
	gw := (g.screen.Width - 2*margin) / spacesCols
	gh := (g.screen.Height - 2*margin) / spacesRows
	row, col := ws/spacesCols, ws%spacesCols
	return display.Rect{
		X:      g.screen.X + margin + col*gw + spacesGap,
		Y:      g.screen.Y + margin + row*gh + spacesGap,
		Width:  gw - 2*spacesGap,
		Height: gh - 2*spacesGap,
	}
}

// at returns the cell under the point, or -1.
func (g spacesGrid) at(x, y int) int {
	for ws := 0; ws < spacesCols*spacesRows; ws++ {
		if g.cell(ws).Contains(x, y) {
			return ws
		}
	}
	return -1
}

// content is the part of a cell below its label.
func (g spacesGrid) content(ws int) display.Rect {
	r := g.cell(ws)
	return display.Rect{X: r.X + 2, Y: r.Y + g.labelH, Width: r.Width - 4, Height: r.Height - g.labelH - 2}
}

// thumb scales a client geometry into the content area of ws. Thumbnails
// are at least two pixels each way.
func (g spacesGrid) thumb(ws int, r display.Rect) display.Rect {
	c := g.content(ws)
	sw, sh := max(g.screen.Width, 1), max(g.screen.Height, 1)
	return display.Rect{
		X:      c.X + r.X*c.Width/sw,
		Y:      c.Y + r.Y*c.Height/sh,
		Width:  max(r.Width*c.Width/sw, 2),
		Height: max(r.Height*c.Height/sh, 2),
	}
}

type spacesState struct {
	ov       Overview
	grid     spacesGrid
	move     MoveFunc
	selected int
	drag     display.Window
	dragFrom int
	shown    bool
	keyboard bool
}

// valid reports whether ws is a workspace the overview shows.
func (s *spacesState) valid(ws int) bool {
	return ws >= 0 && ws < len(s.ov.Spaces) && ws < spacesCols*spacesRows
}

func (s *spacesState) cells() []display.OverviewCell {
	n := min(len(s.ov.Spaces), spacesCols*spacesRows)
	cells := make([]display.OverviewCell, n)
	for ws := 0; ws < n; ws++ {
		cell := display.OverviewCell{
			Rect:    s.grid.cell(ws),
			Label:   strconv.Itoa(ws + 1),
			Current: ws == s.ov.Current,
			Target:  ws == s.selected,
		}
		if !s.grid.content(ws).Empty() {
			wins := s.ov.Spaces[ws]
			// Bottom first, so the topmost window is drawn last.
			for i := len(wins) - 1; i >= 0; i-- {
				if wins[i].Window == s.drag && ws == s.dragFrom {
					continue
				}
				cell.Thumbs = append(cell.Thumbs, s.grid.thumb(ws, wins[i].Rect))
			}
		}
		cells[ws] = cell
	}
	return cells
}

// windowAt returns the topmost window whose thumbnail in ws holds the point.
func (s *spacesState) windowAt(ws, x, y int) (display.Window, bool) {
	if !s.valid(ws) || s.grid.content(ws).Empty() {
		return display.None, false
	}
	for _, w := range s.ov.Spaces[ws] {
		if s.grid.thumb(ws, w.Rect).Contains(x, y) {
			return w.Window, true
		}
	}
	return display.None, false
}

// BeginSpaces shows the workspace overview and grabs the pointer and the
// keyboard. Button 1 on a cell, or Return, picks that workspace. A button 3
// drag carries a window thumbnail to another cell and calls move; the
// overview stays up afterwards. Escape drops a drag in progress, or closes
// the overview.
func (m *Machine) BeginSpaces(ov Overview, move MoveFunc, t uint32) bool {
	if m.mode != Idle || len(ov.Spaces) == 0 {
		return false
	}
	_, high := m.rnd.MenuMetrics([]string{"0"})
	m.sp = spacesState{
		ov:       ov,
		grid:     spacesGrid{screen: m.dpy.Screen(), labelH: high + labelGap},
		move:     move,
		selected: ov.Current,
		dragFrom: -1,
	}
	if !m.grab(display.CursorArrow, t, "spaces") {
		return false
	}
	if err := m.dpy.GrabKeyboard(t); err != nil {
		m.logger.Warn("keyboard grab failed", "op", "spaces", "error", err)
	} else {
		m.sp.keyboard = true
	}
	if err := m.rnd.ShowOverview(m.sp.cells()); err != nil {
		m.logger.Warn("show overview failed", "error", err)
		m.ungrab(t)
		return false
	}
	m.sp.shown = true
	m.mode = Spaces
	return true
}

func (m *Machine) feedSpaces(ev event.Event) (Outcome, bool) {
	s := &m.sp
	switch ev.Kind {
	case event.KindMotion:
		if ws := s.grid.at(ev.X, ev.Y); s.valid(ws) && ws != s.selected {
			s.selected = ws
			m.drawSpaces()
		}
	case event.KindExpose:
		m.drawSpaces()
	case event.KindButtonPress:
		ws := s.grid.at(ev.X, ev.Y)
		switch ev.Button {
		case event.Button1:
			if s.valid(ws) {
				return m.finish(Outcome{Kind: SpaceChosen, Index: ws}, ev)
			}
		case event.Button3:
			if w, ok := s.windowAt(ws, ev.X, ev.Y); ok {
				s.drag, s.dragFrom = w, ws
				m.drawSpaces()
			}
		}
	case event.KindButtonRelease:
		if ev.Button == event.Button3 && s.drag != display.None {
			m.drop(ev.X, ev.Y)
		}
	case event.KindKeyPress:
		switch ev.Key {
		case "Escape":
			if s.drag != display.None {
				s.drag, s.dragFrom = display.None, -1
				m.drawSpaces()
				return Outcome{}, false
			}
			m.Cancel(ev.Time)
			return Outcome{Kind: Cancelled, Index: -1}, true
		case "Return":
			if s.valid(s.selected) && !ev.ButtonsHeld() {
				out := Outcome{Kind: SpaceChosen, Index: s.selected}
				m.cleanup()
				m.ungrab(ev.Time)
				m.mode = Idle
				return out, true
			}
		}
	}
	return Outcome{}, false
}

// drop ends a drag. Releasing over another workspace moves the window there.
func (m *Machine) drop(x, y int) {
	s := &m.sp
	w, from := s.drag, s.dragFrom
	s.drag, s.dragFrom = display.None, -1
	if ws := s.grid.at(x, y); s.valid(ws) && ws != from && s.move != nil {
		if ov, ok := s.move(w, ws); ok {
			s.ov = ov
		} else {
			m.logger.Debug("move to workspace refused", "window", w, "workspace", ws)
		}
	}
	m.drawSpaces()
}

func (m *Machine) drawSpaces() {
	if err := m.rnd.DrawOverview(m.sp.cells()); err != nil {
		m.logger.Warn("draw overview failed", "error", err)
	}
}

func (m *Machine) closeSpaces() {
	if !m.sp.shown {
		return
	}
	if err := m.rnd.HideOverview(); err != nil {
		m.logger.Debug("hide overview failed", "error", err)
	}
	m.sp.shown = false
}
