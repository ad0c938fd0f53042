package wm

import (
	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

func (m *Manager) onCreate(ev event.Event) {
	if ev.OverrideRedirect {
		return
	}
	c, _ := m.reg.LookupOrCreate(ev.Window)
	if c.Window != ev.Window || c.Init {
		return
	}
	c.SetRect(ev.Rect())
	c.Border = ev.BorderWidth
}

func (m *Manager) onMapRequest(ev event.Event) {
	c := m.reg.Lookup(ev.Window)
	if c == nil || c.Window != ev.Window {
		m.logger.Debug("map request for unknown window, rescanning", "window", ev.Window)
		if err := m.Scan(); err != nil {
			m.logger.Warn("rescan failed", "error", err)
		}
		c = m.reg.Lookup(ev.Window)
		if c == nil || c.Window != ev.Window {
			m.logger.Warn("window not found after rescan", "window", ev.Window)
			return
		}
	}
	t := m.lastTime

	switch c.State {
	case display.StateWithdrawn:
		if c.Frame == display.None {
			m.manage(c, false)
			return
		}
		x, y := m.decoration().Offset()
		m.warn(m.dpy.Reparent(c.Window, c.Frame, x, y), "reparent", c)
		m.warn(m.dpy.SetSaveSet(c.Window, true), "add to save set", c)
		if err := m.mux.Add(c, m.mux.Current()); err != nil {
			m.logger.Warn("add to workspace failed", "window", c.Window, "error", err)
		}
		fallthrough
	case display.StateNormal:
		m.warn(m.dpy.Map(c.Window), "map window", c)
		m.warn(m.dpy.MapRaised(c.Frame), "map frame", c)
		c.Mapped = true
		m.top(c)
		m.setState(c, display.StateNormal)
		if m.isTransientOfCurrent(c) {
			m.activate(c, t)
		}
	case display.StateIconic:
		m.unhideClient(c, true, t)
	}
}

func (m *Manager) onUnmap(ev event.Event) {
	c := m.reg.Lookup(ev.Window)
	if c == nil {
		return
	}
	switch c.State {
	case display.StateIconic:
		if ev.Synthetic {
			m.unhideClient(c, false, ev.Time)
			m.withdraw(c)
		}
	case display.StateNormal:
		if m.focus.IsCurrent(c) {
			m.focus.DeactivateToFallback(m.lastTime)
		}
		if !c.Reparenting {
			m.withdraw(c)
		}
	}
	c.Reparenting = false
}

func (m *Manager) onDestroy(ev event.Event) {
	c := m.reg.Lookup(ev.Window)
	if c == nil {
		return
	}
	if m.cfg.Terminal.LauncherMode {
		if _, ok := m.reg.Get(c.LauncherParent); ok {
			m.restoreTerminal(c, m.lastTime)
		}
	}
	m.removeClient(c, m.lastTime)
	m.logger.Debug("window destroyed", "window", ev.Window)
}

func (m *Manager) onConfigureRequest(ev event.Event) {
	d := m.decoration()
	mask := ev.ValueMask &^ event.ConfigSibling
	c := m.reg.Lookup(ev.Window)

	if c != nil {
		m.gravitate(c, true)
		if mask&event.ConfigX != 0 {
			c.X = ev.X
		}
		if mask&event.ConfigY != 0 {
			c.Y = ev.Y
		}
		if mask&event.ConfigWidth != 0 {
			c.Width = ev.Width
		}
		if mask&event.ConfigHeight != 0 {
			c.Height = ev.Height
		}
		if mask&event.ConfigBorderWidth != 0 {
			c.Border = ev.BorderWidth
		}
		m.gravitate(c, false)
		if mask&event.ConfigStackMode != 0 && ev.StackMode == event.StackAbove {
			m.top(c)
			m.warn(m.dpy.Raise(c.Frame), "raise frame", c)
		}
		if c.Frame != display.None && c.Window == ev.Window {
			m.warn(m.dpy.Configure(c.Frame, d.Frame(c), d.FrameWidth), "configure frame", c)
			m.sendConfig(c)
			if mask&event.ConfigWidth != 0 {
				m.drawTitle(c)
			}
		}
	}

	var r display.Rect
	switch {
	case c != nil && c.Window == ev.Window:
		r = c.Rect()
		if c.Init {
			r.X, r.Y = d.Offset()
		}
	default:
		info, err := m.dpy.WindowInfo(ev.Window)
		if err != nil {
			m.logger.Debug("configure request for vanished window", "window", ev.Window, "error", err)
			return
		}
		r = info.Rect
		if mask&event.ConfigX != 0 {
			r.X = ev.X
		}
		if mask&event.ConfigY != 0 {
			r.Y = ev.Y
		}
		if mask&event.ConfigWidth != 0 {
			r.Width = ev.Width
		}
		if mask&event.ConfigHeight != 0 {
			r.Height = ev.Height
		}
	}
	if err := display.IgnoreGone(m.dpy.Configure(ev.Window, r, 0)); err != nil {
		m.logger.Warn("configure window failed", "window", ev.Window, "error", err)
	}
}

// onReparent tracks windows that become children of the root and forgets
// clients that were taken away from it while not managed.
func (m *Manager) onReparent(ev event.Event) {
	if ev.OverrideRedirect {
		return
	}
	if ev.Parent == m.dpy.Root() {
		c, _ := m.reg.LookupOrCreate(ev.Window)
		if c.Width == 0 || c.Height == 0 {
			info, err := m.dpy.WindowInfo(c.Window)
			if err != nil {
				m.logger.Debug("reparented window vanished", "window", ev.Window, "error", err)
				return
			}
			c.SetRect(info.Rect)
			c.Border = info.BorderWidth
		}
		return
	}
	c := m.reg.Lookup(ev.Window)
	if c == nil || c.Window != ev.Window {
		return
	}
	if c.Frame == display.None || c.State == display.StateWithdrawn {
		if ev.Parent == c.Frame {
			return
		}
		m.removeClient(c, m.lastTime)
	}
}

func (m *Manager) onProperty(ev event.Event) {
	c := m.reg.Lookup(ev.Window)
	if c == nil || c.Window != ev.Window {
		return
	}
	var props display.Properties
	if !ev.Deleted {
		p, err := m.dpy.Properties(c.Window)
		if err != nil {
			m.warn(err, "read properties", c)
			return
		}
		props = p
	}

	switch ev.Atom {
	case event.AtomIconName:
		c.IconName = props.IconName
		m.relabel(c)
	case event.AtomName:
		c.Name = props.Name
		m.relabel(c)
	case event.AtomClass:
		c.Instance, c.Class = props.Instance, props.Class
		c.Terminal = m.cfg.IsTerminalClass(c.Class)
		m.relabel(c)
	case event.AtomTransientFor:
		c.Transient = props.TransientFor
	case event.AtomNormalHints:
		c.ApplyHints(props.Hints)
	case event.AtomHold:
		c.Hold = props.Hold
		if m.focus.IsCurrent(c) {
			m.warn(m.rnd.SetFrameColor(c.Frame, true), "redraw frame", c)
		}
	case event.AtomColormapWindows:
		c.ColormapWindows = append(c.ColormapWindows[:0], props.ColormapWindows...)
		if m.focus.IsCurrent(c) {
			m.focus.InstallColormaps(c)
		}
	case event.AtomProtocols:
		c.Delete = props.DeleteWindow
		c.TakeFocus = props.TakeFocus
	}
}

func (m *Manager) relabel(c *client.Client) {
	c.UpdateLabel()
	m.drawTitle(c)
	if m.hidden.Index(c.Handle) >= 0 {
		m.rebuildMenu()
	}
}

func (m *Manager) onColormap(ev event.Event) {
	if ev.Data[1] == 0 {
		return
	}
	if c := m.reg.Lookup(ev.Window); c != nil {
		c.Colormap = ev.Data[0]
		if m.focus.IsCurrent(c) {
			m.focus.InstallColormaps(c)
		}
		return
	}
	for _, c := range m.reg.All() {
		for _, w := range c.ColormapWindows {
			if w == ev.Window {
				if m.focus.IsCurrent(c) {
					m.focus.InstallColormaps(c)
				}
				return
			}
		}
	}
}

func (m *Manager) onClientMessage(ev event.Event) Action {
	t := m.lastTime
	switch ev.Atom {
	case event.AtomExit:
		m.logger.Info("exit requested")
		m.Close()
		return Exit
	case event.AtomRestart:
		m.logger.Info("restart requested")
		m.Close()
		return Restart
	case event.AtomChangeState:
		c := m.reg.Lookup(ev.Window)
		if c != nil && display.State(ev.Data[0]) == display.StateIconic {
			if c.IsNormal() {
				m.hide(c, t)
			}
			return Continue
		}
		m.logger.Debug("ignored WM_CHANGE_STATE", "window", ev.Window, "state", ev.Data[0])
	case event.AtomMoveResize:
		if ev.Data[2] != event.MoveResizeMove {
			m.logger.Debug("ignored move-resize direction", "window", ev.Window, "direction", ev.Data[2])
			return Continue
		}
		if c := m.reg.Lookup(ev.Window); c != nil {
			m.beginMove(c, t)
		}
	case event.AtomWMState:
		m.onWMState(ev)
	case event.AtomActiveWindow:
		if c := m.reg.Lookup(ev.Window); c != nil && c.IsNormal() {
			m.raiseAndActivate(c, t)
		}
	default:
		m.logger.Debug("unhandled client message", "atom", ev.Atom, "window", ev.Window)
	}
	return Continue
}

// onWMState handles _NET_WM_STATE fullscreen requests. The adapter resolves
// the changed property atoms and reports the fullscreen one in Key.
func (m *Manager) onWMState(ev event.Event) {
	if ev.Key != event.AtomFullscreen {
		m.logger.Debug("ignored _NET_WM_STATE change", "window", ev.Window, "property", ev.Key)
		return
	}
	c := m.reg.Lookup(ev.Window)
	if c == nil {
		return
	}
	switch ev.Data[0] {
	case event.StateAdd:
		m.setFullscreen(c, true)
	case event.StateRemove:
		m.setFullscreen(c, false)
	case event.StateToggle:
		m.setFullscreen(c, !c.Fullscreen)
	}
}

func (m *Manager) onEnter(ev event.Event) {
	if ev.Mode != event.NotifyGrab || ev.Detail != event.NotifyNonlinearVirtual {
		return
	}
	if c := m.reg.Lookup(ev.Window); c != nil && !m.focus.IsCurrent(c) {
		m.raiseAndActivate(c, ev.Time)
	}
}

func (m *Manager) onFocusIn(ev event.Event) {
	if ev.Detail != event.NotifyNonlinearVirtual {
		return
	}
	c := m.reg.Lookup(ev.Window)
	if c != nil && c.Window == ev.Window && !m.focus.IsCurrent(c) {
		m.warn(m.dpy.MapRaised(c.Frame), "map frame", c)
		c.Mapped = true
		m.top(c)
		m.focus.Resync(c, m.lastTime)
		m.mux.Remember(c)
	}
}

func (m *Manager) onKeyPress(ev event.Event) {
	ws := m.cfg.WorkspaceForKey(ev.State, ev.Key)
	if ws < 0 {
		return
	}
	m.switchTo(ws, ev.Time)
}

func (m *Manager) onButtonPress(ev event.Event) {
	c := m.reg.Lookup(ev.Window)
	switch ev.Button {
	case event.Button1:
		if c != nil {
			m.raiseAndActivate(c, ev.Time)
		}
	case event.Button2:
		m.logger.Debug("button 2 press", "window", ev.Window)
	case event.Button3:
		if _, ok := m.focus.Current(); ok {
			if err := m.dpy.InstallColormap(0); err != nil {
				m.logger.Debug("install default colormap failed", "error", err)
			}
		}
		m.rebuildMenu()
		if m.modal.OpenMenu(ev, &m.menu) {
			m.op = pendingOp{kind: opMenu}
		}
	}
}

func (m *Manager) onShape(ev event.Event) {
	c := m.reg.Lookup(ev.Window)
	if c == nil || c.Frame == display.None {
		return
	}
	x, y := m.decoration().Offset()
	m.warn(m.dpy.CopyShape(c.Frame, c.Window, x, y), "copy shape", c)
}

// onExpose redraws an exposed titlebar. It reports whether ev named a
// client frame.
func (m *Manager) onExpose(ev event.Event) bool {
	c := m.reg.Lookup(ev.Window)
	if c == nil || c.Frame != ev.Window {
		return false
	}
	if ev.Count == 0 {
		m.drawTitle(c)
	}
	return true
}
