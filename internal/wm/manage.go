package wm

import (
	"fmt"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/display"
)

// manage reparents c into a new frame and makes it visible according to its
// hints. mapped is set for windows that were already on screen when the
// window manager started.
func (m *Manager) manage(c *client.Client, mapped bool) {
	t := m.lastTime
	d := m.decoration()

	m.warn(m.dpy.SelectClientInput(c.Window), "select input", c)
	props, err := m.dpy.Properties(c.Window)
	if err != nil {
		m.warn(err, "read properties", c)
	}
	c.ApplyProperties(props)
	c.Terminal = m.cfg.IsTerminalClass(c.Class)

	state, ok, err := m.dpy.State(c.Window)
	if err != nil || !ok {
		state = props.InitialState
		if state == display.StateWithdrawn {
			state = display.StateNormal
		}
	}
	dohide := state == display.StateIconic

	fixsize := c.FixedSize()
	doreshape := !mapped
	if fixsize {
		if c.Hints.Any(display.HintUSPosition) {
			doreshape = false
		}
		if dohide && c.Hints.Any(display.HintPPosition) {
			doreshape = false
		}
		if c.Transient != display.None {
			doreshape = false
		}
	}

	if doreshape {
		m.centreOnPointer(c)
	}
	m.gravitate(c, false)

	frame, err := m.dpy.CreateFrame(d.Frame(c), d.FrameWidth)
	if err != nil {
		m.logger.Error("create frame failed", "window", c.Window, "error", err)
		return
	}
	m.reg.SetFrame(c, frame)
	if mapped {
		c.Reparenting = true
	}
	x, y := d.Offset()
	// The frame decoration replaces the client's own border.
	m.warn(m.dpy.Configure(c.Window, c.Rect(), 0), "configure window", c)
	m.warn(m.dpy.Reparent(c.Window, frame, x, y), "reparent", c)
	m.warn(m.dpy.CopyShape(frame, c.Window, x, y), "copy shape", c)
	m.warn(m.dpy.SetSaveSet(c.Window, true), "add to save set", c)
	m.drawTitle(c)

	if err := m.mux.Add(c, m.mux.Current()); err != nil {
		m.logger.Warn("add to workspace failed", "window", c.Window, "error", err)
	}

	sweep := m.autoReshape && !dohide
	switch {
	case dohide:
		m.hide(c, t)
	case sweep:
		m.setState(c, display.StateNormal)
	default:
		m.warn(m.dpy.Map(c.Window), "map window", c)
		m.warn(m.dpy.Map(frame), "map frame", c)
		c.Mapped = true
		if doreshape || m.isTransientOfCurrent(c) {
			m.activate(c, t)
		} else {
			m.focus.SetInactive(c, t)
		}
		m.setState(c, display.StateNormal)
	}
	if cur, ok := m.focus.Current(); ok && cur != c {
		m.focus.InstallColormaps(cur)
	}
	c.Init = true
	m.logger.Info("managed window", "window", c.Window, "label", c.Label, "workspace", c.Workspace)

	if m.cfg.Terminal.LauncherMode && !c.Terminal {
		m.checkTerminalLaunch(c, t)
	}
	if sweep {
		m.autoReshape = false
		m.beginAutoReshape(c, t)
	}
}

// centreOnPointer places c under the pointer, kept on screen.
func (m *Manager) centreOnPointer(c *client.Client) {
	p, err := m.dpy.QueryPointer()
	if err != nil {
		m.logger.Debug("query pointer failed", "error", err)
		return
	}
	scr := m.dpy.Screen()
	c.X = p.X - c.Width/2
	c.Y = p.Y - c.Height/2
	if c.X+c.Width > scr.Width {
		c.X = scr.Width - c.Width
	}
	if c.X < 0 {
		c.X = 0
	}
	if c.Y+c.Height > scr.Height {
		c.Y = scr.Height - c.Height
	}
	if c.Y < 0 {
		c.Y = 0
	}
}

func (m *Manager) isTransientOfCurrent(c *client.Client) bool {
	cur, ok := m.focus.Current()
	return ok && c.Transient != display.None && cur.Window == c.Transient
}

// withdraw returns c to the root after it unmapped itself. An unmap caused by
// hiding a workspace is consumed instead.
func (m *Manager) withdraw(c *client.Client) {
	if m.mux.ConsumeUnmap() {
		m.logger.Debug("unmap consumed by workspace switch", "window", c.Window, "pending", m.mux.Pending())
		return
	}
	m.mux.Remove(c)
	m.warn(m.dpy.Unmap(c.Frame), "unmap frame", c)
	c.Mapped = false
	m.gravitate(c, true)
	m.warn(m.dpy.Reparent(c.Window, m.dpy.Root(), c.X, c.Y), "reparent to root", c)
	m.gravitate(c, false)
	m.warn(m.dpy.SetSaveSet(c.Window, false), "remove from save set", c)
	m.setState(c, display.StateWithdrawn)
	m.logger.Debug("withdrew window", "window", c.Window)
}

// removeClient drops every reference to c and releases it.
func (m *Manager) removeClient(c *client.Client, t uint32) {
	if m.hidden.Remove(c.Handle) {
		m.rebuildMenu()
	}
	m.mux.Remove(c)
	m.mux.Forget(c.Handle)
	m.focus.Forget(c.Handle, t)
	if c.Frame != display.None && c.Frame != m.dpy.Root() {
		if m.title > 0 {
			m.warn(m.rnd.RemoveTitle(c.Frame), "remove titlebar", c)
		}
		m.warn(m.dpy.DestroyWindow(c.Frame), "destroy frame", c)
	}
	m.reg.Remove(c.Handle)
}

// Scan adopts the top-level windows that exist when the window manager starts.
// They join the current workspace; their WM_STATE decides whether they come
// up Normal or Iconic.
func (m *Manager) Scan() error {
	wins, err := m.dpy.Children()
	if err != nil {
		return fmt.Errorf("query root children: %w", err)
	}
	for _, w := range wins {
		info, err := m.dpy.WindowInfo(w)
		if err != nil {
			m.logger.Debug("window vanished during scan", "window", w, "error", err)
			continue
		}
		if info.OverrideRedirect {
			continue
		}
		c, _ := m.reg.LookupOrCreate(w)
		if c.Window != w || c.Init {
			continue
		}
		c.SetRect(info.Rect)
		c.Border = info.BorderWidth
		c.Colormap = info.Colormap
		if info.Viewable {
			m.manage(c, true)
		}
	}
	return nil
}

// Close gives every client back to the root window. Normal clients are
// reparented last so they end up on top.
func (m *Manager) Close() {
	t := m.lastTime
	m.modal.Cancel(t)

	var normal, other []*client.Client
	for _, c := range m.reg.All() {
		if c.IsNormal() {
			normal = append(normal, c)
		} else {
			other = append(other, c)
		}
	}
	for _, c := range append(other, normal...) {
		if !c.Init {
			continue
		}
		if c.State != display.StateWithdrawn {
			m.gravitate(c, true)
			m.warn(m.dpy.Reparent(c.Window, m.dpy.Root(), c.X, c.Y), "reparent to root", c)
		}
		m.warn(m.dpy.Configure(c.Window, c.Rect(), c.Border), "restore border", c)
	}
	if err := m.dpy.FocusPointerRoot(t); err != nil {
		m.logger.Warn("focus pointer root failed", "error", err)
	}
	if err := m.dpy.InstallColormap(0); err != nil {
		m.logger.Debug("install default colormap failed", "error", err)
	}
	m.mux.Reset()
	m.logger.Info("released all windows", "count", m.reg.Len())
}

// placeFrame moves and resizes the frame around the inner geometry of c and
// the window inside it, then tells the client where it ended up.
func (m *Manager) placeFrame(c *client.Client) {
	d := m.decoration()
	m.warn(m.dpy.Configure(c.Frame, d.Frame(c), d.FrameWidth), "configure frame", c)
	m.warn(m.dpy.Configure(c.Window, d.Client(c), 0), "configure window", c)
	m.sendConfig(c)
	m.drawTitle(c)
}

// sendConfig sends the synthetic ConfigureNotify that tells a reparented
// client its position in root coordinates.
func (m *Manager) sendConfig(c *client.Client) {
	m.warn(m.dpy.SendConfigureNotify(c.Window, c.Rect(), c.Border), "send configure notify", c)
}
