package wm

import (
	"fmt"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/modal"
)

// Tile layout proportions, in tenths of the screen width.
const (
	tilePairMaster  = 6
	tileStackMaster = 5
)

// menuHit runs the menu entry at index n: a submenu command, a configured
// item, or one of the hidden clients listed after the items.
func (m *Manager) menuHit(n int, t uint32) {
	if parent, child, ok := modal.SubmenuIndex(n); ok {
		cmd := m.cfg.SubmenuCommand(parent, child)
		if cmd == "" {
			m.logger.Debug("submenu entry has no command", "parent", parent, "child", child)
			return
		}
		m.spawn(cmd)
		return
	}
	items := m.cfg.Menu.Items
	if n < len(items) {
		if items[n].IsFolder() {
			m.logger.Debug("folder picked without a submenu entry", "label", items[n].Label)
			return
		}
		m.runCommand(items[n].Command, t)
		return
	}
	m.unhideAt(n-len(items), true, t)
}

// runCommand runs a built-in command or spawns anything else.
func (m *Manager) runCommand(cmd string, t uint32) {
	switch cmd {
	case config.CommandTerminal:
		m.newTerminal(t)
	case config.CommandReshape, config.CommandDelete, config.CommandHide:
		m.beginSelect(cmd, true, t)
	case config.CommandMove:
		m.beginSelect(cmd, false, t)
	case config.CommandTile:
		m.tile(t)
	case config.CommandSpaces:
		m.beginSpaces(t)
	case "":
		m.logger.Debug("menu item has no command")
	default:
		m.spawn(cmd)
	}
}

func (m *Manager) beginSelect(cmd string, release bool, t uint32) {
	if m.modal.BeginSelect(t, release) {
		m.op = pendingOp{kind: opSelect, command: cmd}
	}
}

// selected applies the command a selection was started for to the picked window.
func (m *Manager) selected(cmd string, out modal.Outcome, t uint32) {
	if out.Kind != modal.Selected {
		return
	}
	c := m.reg.Lookup(out.Window)
	if c == nil {
		m.logger.Debug("selected window is not managed", "window", out.Window)
		if out.Held {
			m.modal.Drain()
		}
		return
	}
	switch cmd {
	case config.CommandReshape:
		m.beginReshape(c, t)
	case config.CommandMove:
		if !m.beginMove(c, t) && out.Held {
			m.modal.Drain()
		}
	case config.CommandDelete:
		m.deleteClient(c, out.Shift, t)
	case config.CommandHide:
		m.hide(c, t)
	}
}

func (m *Manager) target(c *client.Client) modal.Target {
	return modal.Target{
		Window:    c.Window,
		Rect:      c.Rect(),
		Hints:     c.Hints,
		MinWidth:  c.MinWidth,
		MinHeight: c.MinHeight,
	}
}

func (m *Manager) beginReshape(c *client.Client, t uint32) bool {
	if !c.IsNormal() {
		return false
	}
	if !m.modal.BeginSweep(m.target(c), t) {
		return false
	}
	m.op = pendingOp{kind: opSweep, target: c.Handle}
	return true
}

func (m *Manager) beginMove(c *client.Client, t uint32) bool {
	if !c.IsNormal() {
		return false
	}
	if !m.modal.BeginDrag(m.target(c), t) {
		return false
	}
	m.op = pendingOp{kind: opDrag, target: c.Handle}
	return true
}

// reshaped applies a swept geometry. The client window is only resized when
// its size changed; otherwise it just learns its new position.
func (m *Manager) reshaped(c *client.Client, r display.Rect, activate bool, t uint32) {
	d := m.decoration()
	resized := r.Width != c.Width || r.Height != c.Height
	c.SetRect(r)
	if activate {
		m.activate(c, t)
		m.top(c)
		m.warn(m.dpy.Raise(c.Frame), "raise frame", c)
	}
	m.warn(m.dpy.Configure(c.Frame, d.Frame(c), d.FrameWidth), "configure frame", c)
	if resized {
		m.warn(m.dpy.Configure(c.Window, d.Client(c), 0), "configure window", c)
		m.drawTitle(c)
	} else {
		m.sendConfig(c)
	}
	m.logger.Debug("reshaped window", "window", c.Window, "rect", r)
}

func (m *Manager) moved(c *client.Client, r display.Rect, t uint32) {
	d := m.decoration()
	c.X, c.Y = r.X, r.Y
	m.activate(c, t)
	m.top(c)
	m.warn(m.dpy.Raise(c.Frame), "raise frame", c)
	m.warn(m.dpy.Configure(c.Frame, d.Frame(c), d.FrameWidth), "move frame", c)
	m.sendConfig(c)
}

// deleteClient asks the client to close, or kills its connection when it
// does not speak WM_DELETE_WINDOW or shift was held.
func (m *Manager) deleteClient(c *client.Client, shift bool, t uint32) {
	if c.Delete && !shift {
		m.warn(m.dpy.SendProtocol(c.Window, display.ProtocolDeleteWindow, t), "send WM_DELETE_WINDOW", c)
		return
	}
	m.warn(m.dpy.KillClient(c.Window), "kill client", c)
}

// hide iconifies c and lists it in the menu.
func (m *Manager) hide(c *client.Client, t uint32) {
	if c.IsHidden() {
		m.logger.Debug("already hidden", "window", c.Window, "label", c.Label)
		return
	}
	if err := m.hidden.Push(c.Handle); err != nil {
		m.logger.Warn("cannot hide window", "window", c.Window, "error", err)
		return
	}
	m.warn(m.dpy.Unmap(c.Frame), "unmap frame", c)
	m.warn(m.dpy.Unmap(c.Window), "unmap window", c)
	c.Mapped = false
	m.setState(c, display.StateIconic)
	if m.focus.IsCurrent(c) {
		m.focus.DeactivateToFallback(t)
	}
	m.rebuildMenu()
}

// unhideClient takes c off the hidden list, mapping it when show is set.
func (m *Manager) unhideClient(c *client.Client, show bool, t uint32) {
	i := m.hidden.Index(c.Handle)
	if i < 0 {
		m.logger.Debug("not hidden", "window", c.Window, "label", c.Label)
		return
	}
	m.unhideAt(i, show, t)
}

// unhideAt restores the hidden client at position n. A client hidden on
// another workspace comes back on the current one.
func (m *Manager) unhideAt(n int, show bool, t uint32) {
	c, ok := m.hidden.At(n)
	if !ok {
		m.logger.Debug("no hidden client at index", "index", n, "hidden", m.hidden.Len())
		return
	}
	if !c.IsHidden() {
		m.logger.Warn("hidden list entry is not iconic", "window", c.Window, "state", c.State)
	} else if show {
		if c.Workspace != m.mux.Current() {
			if err := m.mux.Add(c, m.mux.Current()); err != nil {
				m.logger.Warn("add to workspace failed", "window", c.Window, "error", err)
			}
		}
		m.warn(m.dpy.Map(c.Window), "map window", c)
		m.warn(m.dpy.MapRaised(c.Frame), "map frame", c)
		c.Mapped = true
		m.setState(c, display.StateNormal)
		m.activate(c, t)
		m.top(c)
	}
	m.hidden.Remove(c.Handle)
	m.rebuildMenu()
}

// tile arranges the Normal clients of the current workspace: one fills the
// screen, two split 60/40 with the current client on the left, more get a
// half-width master column and an evenly split stack.
func (m *Manager) tile(t uint32) {
	ws := m.mux.Current()
	var visible []*client.Client
	for _, c := range m.mux.Members(ws) {
		if c.IsNormal() {
			visible = append(visible, c)
		}
	}
	n := len(visible)
	if n == 0 {
		return
	}
	scr := m.dpy.Screen()
	sw, sh := scr.Width, scr.Height

	var master *client.Client
	if cur, ok := m.focus.Current(); ok && cur.Workspace == ws && cur.IsNormal() {
		master = cur
	}
	others := make([]*client.Client, 0, n)
	for _, c := range visible {
		if c != master {
			others = append(others, c)
		}
	}

	switch {
	case n == 1:
		m.place(visible[0], display.Rect{Width: sw, Height: sh})
	case n == 2 && master != nil:
		mw := sw * tilePairMaster / 10
		m.place(master, display.Rect{Width: mw, Height: sh})
		m.place(others[0], display.Rect{X: mw, Width: sw - mw, Height: sh})
	case n == 2:
		mw := sw / 2
		m.place(visible[0], display.Rect{Width: mw, Height: sh})
		m.place(visible[1], display.Rect{X: mw, Width: sw - mw, Height: sh})
	default:
		mw := sw * tileStackMaster / 10
		stackH := sh / (n - 1)
		if master == nil {
			master, others = visible[0], visible[1:]
		}
		m.place(master, display.Rect{Width: mw, Height: sh})
		for i, c := range others {
			m.place(c, display.Rect{X: mw, Y: i * stackH, Width: sw - mw, Height: stackH})
		}
	}
	m.logger.Debug("tiled workspace", "workspace", ws, "windows", n)
}

// beginSpaces opens the workspace overview.
func (m *Manager) beginSpaces(t uint32) {
	if m.modal.BeginSpaces(m.overview(), m.moveToSpace, t) {
		m.op = pendingOp{kind: opSpaces}
	}
}

// overview lists the Normal clients of every workspace, topmost first.
func (m *Manager) overview() modal.Overview {
	ov := modal.Overview{
		Spaces:  make([][]modal.SpaceWindow, m.mux.Count()),
		Current: m.mux.Current(),
	}
	for ws := range ov.Spaces {
		for _, c := range m.mux.Members(ws) {
			if c.IsNormal() {
				ov.Spaces[ws] = append(ov.Spaces[ws], modal.SpaceWindow{Window: c.Window, Rect: c.Rect()})
			}
		}
	}
	return ov
}

// moveToSpace moves a window dragged in the overview onto workspace ws.
// A client that leaves the current workspace gives up focus.
func (m *Manager) moveToSpace(w display.Window, ws int) (modal.Overview, bool) {
	c := m.reg.Lookup(w)
	if c == nil {
		return m.overview(), false
	}
	if err := m.mux.Move(c, ws); err != nil {
		m.logger.Warn("move to workspace failed", "window", w, "workspace", ws, "error", err)
		return m.overview(), false
	}
	if ws != m.mux.Current() && m.focus.IsCurrent(c) {
		m.focus.DeactivateToFallback(m.lastTime)
	}
	m.rebuildMenu()
	m.logger.Info("moved window to workspace", "window", w, "workspace", ws)
	return m.overview(), true
}

func (m *Manager) place(c *client.Client, r display.Rect) {
	c.SetRect(r)
	c.Fullscreen = false
	m.placeFrame(c)
}

// setFullscreen grows c to cover the screen, or restores the geometry it had
// before.
func (m *Manager) setFullscreen(c *client.Client, on bool) {
	if c.Fullscreen == on {
		return
	}
	if on {
		c.Restore = c.Rect()
		scr := m.dpy.Screen()
		c.SetRect(display.Rect{Width: scr.Width, Height: scr.Height})
		m.top(c)
		m.warn(m.dpy.Raise(c.Frame), "raise frame", c)
	} else {
		c.SetRect(c.Restore)
	}
	c.Fullscreen = on
	m.warn(m.dpy.SetFullscreen(c.Window, on), "set fullscreen state", c)
	if c.Frame != display.None {
		m.placeFrame(c)
	}
}

// newTerminal starts a terminal. With auto reshape the next window to appear
// is swept into place; otherwise the user sweeps the area first.
func (m *Manager) newTerminal(t uint32) {
	if m.cfg.Behavior.AutoReshapeTerminal {
		m.autoReshape = m.spawn(m.cfg.Terminal.Command)
		return
	}
	if m.modal.BeginArea(t) {
		m.op = pendingOp{kind: opArea}
	}
}

// spawnSized starts a terminal covering r, converted to character cells.
func (m *Manager) spawnSized(r display.Rect) {
	m.spawn(fmt.Sprintf("%s -geometry %dx%d+%d+%d", m.cfg.Terminal.Command, r.Width/8, r.Height/16, r.X, r.Y))
}

func (m *Manager) spawn(cmd string) bool {
	if m.spawner == nil {
		m.logger.Warn("no spawner configured", "command", cmd)
		return false
	}
	if err := m.spawner.Spawn(cmd); err != nil {
		m.logger.Warn("spawn failed", "command", cmd, "error", err)
		return false
	}
	m.logger.Debug("spawned", "command", cmd)
	return true
}

func (m *Manager) beginAutoReshape(c *client.Client, t uint32) {
	if m.modal.BeginSweep(m.target(c), t) {
		m.op = pendingOp{kind: opAutoReshape, target: c.Handle}
		return
	}
	m.finishAutoReshape(c, modal.Outcome{Kind: modal.Cancelled, Index: -1}, t)
}

// finishAutoReshape shows a window that was held back for its initial sweep.
func (m *Manager) finishAutoReshape(c *client.Client, out modal.Outcome, t uint32) {
	if out.Kind == modal.Swept {
		m.reshaped(c, out.Rect, false, t)
		m.warn(m.dpy.Map(c.Window), "map window", c)
		m.warn(m.dpy.MapRaised(c.Frame), "map frame", c)
		c.Mapped = true
		m.activate(c, t)
		m.top(c)
		return
	}
	m.warn(m.dpy.Map(c.Window), "map window", c)
	m.warn(m.dpy.Map(c.Frame), "map frame", c)
	c.Mapped = true
	m.focus.SetInactive(c, t)
}

// findTerminal picks the terminal a new window replaces: a Normal terminal on
// the same workspace that has not launched anything yet, preferring the
// current client.
func (m *Manager) findTerminal(child *client.Client) *client.Client {
	suitable := func(c *client.Client) bool {
		if c == child || !c.Terminal || !c.IsNormal() || c.Workspace != child.Workspace {
			return false
		}
		_, busy := m.reg.Get(c.LauncherChild)
		return !busy
	}
	if cur, ok := m.focus.Current(); ok && suitable(cur) {
		return cur
	}
	for _, c := range m.mux.Members(child.Workspace) {
		if suitable(c) {
			return c
		}
	}
	return nil
}

// checkTerminalLaunch lets a new window take over the place of the terminal
// it was presumably launched from. The terminal is hidden without being
// listed in the menu and comes back when the window is destroyed.
func (m *Manager) checkTerminalLaunch(c *client.Client, t uint32) {
	if c.Terminal || c.Transient != display.None {
		return
	}
	term := m.findTerminal(c)
	if term == nil {
		return
	}
	wasCurrent := m.focus.IsCurrent(term)

	c.LauncherParent = term.Handle
	term.LauncherChild = c.Handle
	term.Saved = term.Rect()
	r := term.Rect()
	c.X, c.Y, c.Width, c.Height = r.X, r.Y, r.Width, r.Height

	m.warn(m.dpy.Unmap(term.Frame), "unmap terminal frame", term)
	m.warn(m.dpy.Unmap(term.Window), "unmap terminal", term)
	term.Mapped = false
	m.setState(term, display.StateIconic)

	m.placeFrame(c)
	if wasCurrent && c.IsNormal() {
		m.activate(c, t)
	}
	m.logger.Info("window replaced its terminal", "window", c.Window, "terminal", term.Window)
}

// restoreTerminal brings back the terminal child replaced, at child's
// final geometry.
func (m *Manager) restoreTerminal(child *client.Client, t uint32) {
	term, ok := m.reg.Get(child.LauncherParent)
	if !ok {
		return
	}
	term.SetRect(child.Rect())
	term.LauncherChild = client.Nil
	child.LauncherParent = client.Nil

	m.setState(term, display.StateNormal)
	m.placeFrame(term)
	if term.Workspace == m.mux.Current() {
		m.warn(m.dpy.Map(term.Window), "map terminal", term)
		m.warn(m.dpy.MapRaised(term.Frame), "map terminal frame", term)
		term.Mapped = true
		m.activate(term, t)
		m.top(term)
	}
	m.logger.Info("terminal restored", "terminal", term.Window)
}
