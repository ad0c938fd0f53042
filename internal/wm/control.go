package wm

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/model"
	"github.com/jmylchreest/shrub9/internal/workspace"
)

var (
	// ErrUnknownWindow is returned for a window that is not managed.
	ErrUnknownWindow = errors.New("window is not managed")

	// ErrBusy is returned while a modal operation holds the pointer.
	ErrBusy = errors.New("interactive operation in progress")

	// ErrWithdrawn is returned when activating a window that is not on screen.
	ErrWithdrawn = errors.New("window is withdrawn")
)

// switchTo makes ws the visible workspace.
func (m *Manager) switchTo(ws int, t uint32) {
	if ws == m.mux.Current() {
		return
	}
	m.mux.Switch(ws, t)
	m.logger.Info("switched workspace", "workspace", ws, "pending_unmaps", m.mux.Pending())
}

// SwitchWorkspace switches to ws on behalf of a control request.
func (m *Manager) SwitchWorkspace(ws int) error {
	if m.modal.Active() {
		return ErrBusy
	}
	if ws < 0 || ws >= m.mux.Count() {
		return fmt.Errorf("%w: %d", workspace.ErrOutOfRange, ws)
	}
	m.switchTo(ws, m.lastTime)
	return nil
}

// ActivateWindow raises and focuses w, switching to its workspace or
// unhiding it first when needed.
func (m *Manager) ActivateWindow(w display.Window) error {
	if m.modal.Active() {
		return ErrBusy
	}
	c := m.reg.Lookup(w)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownWindow, w)
	}
	t := m.lastTime
	switch {
	case m.hidden.Index(c.Handle) >= 0:
		m.unhideClient(c, true, t)
	case c.IsNormal():
		if c.Workspace >= 0 && c.Workspace != m.mux.Current() {
			m.switchTo(c.Workspace, t)
		}
		m.raiseAndActivate(c, t)
	default:
		return fmt.Errorf("%w: %s is %s", ErrWithdrawn, w, c.State)
	}
	return nil
}

// Restore moves adopted clients back to the workspaces they were on before
// a restart, then shows current. order lists each workspace's windows most
// recently used first; unknown windows and workspaces are skipped. It
// returns how many clients were placed.
func (m *Manager) Restore(current int, order map[int][]display.Window) int {
	t := m.lastTime
	placed := 0
	for ws, wins := range order {
		if ws < 0 || ws >= m.mux.Count() {
			m.logger.Debug("restore skips unknown workspace", "workspace", ws)
			continue
		}
		// Oldest first, so the most recent ends up at the front.
		for i := len(wins) - 1; i >= 0; i-- {
			c := m.reg.Lookup(wins[i])
			if c == nil || !c.Init || c.State == display.StateWithdrawn {
				continue
			}
			if c.Workspace == ws {
				m.mux.Raise(c)
			} else if err := m.mux.Move(c, ws); err != nil {
				m.logger.Warn("restore workspace failed", "window", c.Window, "workspace", ws, "error", err)
				continue
			}
			placed++
		}
	}
	if cur, ok := m.focus.Current(); ok && cur.Workspace != m.mux.Current() {
		m.focus.Clear(t)
	}
	if current >= 0 && current < m.mux.Count() {
		m.switchTo(current, t)
	}
	m.logger.Info("restored workspaces", "clients", placed, "current", m.mux.Current())
	return placed
}

// UpdateConfig applies a reloaded configuration. The workspace count only
// changes on restart.
func (m *Manager) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	if cfg.Workspaces.Count != m.mux.Count() {
		m.logger.Warn("workspace count change needs a restart", "running", m.mux.Count(), "configured", cfg.Workspaces.Count)
	}
	if h := cfg.Appearance.TitleHeight(); h != m.title {
		m.logger.Warn("titlebar change needs a restart", "running", m.title, "configured", h)
	}
	recolor := colorsChanged(m.cfg.Appearance, cfg.Appearance)
	m.cfg = cfg
	for _, c := range m.reg.All() {
		c.Terminal = cfg.IsTerminalClass(c.Class)
	}
	if recolor {
		m.recolor()
	}
	m.modal.SetOptions(modalOptions(cfg))
	m.mux.SetStaleAfter(cfg.Behavior.StaleSwitch.Milliseconds())
	m.rebuildMenu()
	if err := m.grabKeys(); err != nil {
		return fmt.Errorf("grab keys: %w", err)
	}
	m.logger.Info("configuration applied", "workspaces", m.mux.Count(), "menu_items", len(cfg.Menu.Items))
	return nil
}

func colorsChanged(a, b config.AppearanceConfig) bool {
	return a.ActiveColor != b.ActiveColor || a.InactiveColor != b.InactiveColor ||
		a.MenuBackground != b.MenuBackground || a.MenuForeground != b.MenuForeground ||
		a.MenuHighlight != b.MenuHighlight ||
		a.TitlebarBackground != b.TitlebarBackground || a.TitlebarForeground != b.TitlebarForeground
}

// recolor hands the new palette to the renderer and repaints every frame.
func (m *Manager) recolor() {
	rc, ok := m.rnd.(display.Recolorer)
	if !ok {
		m.logger.Info("renderer cannot change colours, restart to apply")
		return
	}
	colors, err := config.AppearanceColors(m.cfg.Appearance)
	if err == nil {
		err = rc.SetColors(colors)
	}
	if err != nil {
		m.logger.Warn("failed to apply colours", "error", err)
		return
	}
	for _, c := range m.reg.All() {
		if c.Frame == display.None {
			continue
		}
		m.warn(m.rnd.SetFrameColor(c.Frame, m.focus.IsCurrent(c)), "repaint frame", c)
		m.drawTitle(c)
	}
}

// Snapshot exports the current state. The caller fills in the session and
// the time it was taken.
func (m *Manager) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Current:   m.mux.Current(),
		Mode:      m.modal.Mode().String(),
		Pending:   m.mux.Pending(),
		Switching: m.mux.Switching(),
	}
	cur, hasCur := m.focus.Current()
	if hasCur {
		snap.Active = uint32(cur.Window)
	}
	for i := 0; i < m.mux.Count(); i++ {
		ws, err := m.mux.Workspace(i)
		if err != nil {
			continue
		}
		out := model.Workspace{ID: ws.ID, Visible: ws.Visible, Clients: []uint32{}}
		if last, ok := m.reg.Get(ws.LastActive); ok {
			out.LastActive = uint32(last.Window)
		}
		for _, c := range m.mux.Members(i) {
			out.Clients = append(out.Clients, uint32(c.Window))
		}
		snap.Workspaces = append(snap.Workspaces, out)
	}
	for _, c := range m.reg.All() {
		snap.Clients = append(snap.Clients, m.exportClient(c, hasCur && c == cur))
	}
	for i := 0; i < m.hidden.Len(); i++ {
		if c, ok := m.hidden.At(i); ok {
			snap.Hidden = append(snap.Hidden, uint32(c.Window))
		}
	}
	return snap
}

func (m *Manager) exportClient(c *client.Client, active bool) model.Client {
	out := model.Client{
		Window:     uint32(c.Window),
		Frame:      uint32(c.Frame),
		Label:      c.Label,
		Name:       c.Name,
		Instance:   c.Instance,
		Class:      c.Class,
		State:      c.State.String(),
		Workspace:  c.Workspace,
		X:          c.X,
		Y:          c.Y,
		Width:      c.Width,
		Height:     c.Height,
		Active:     active,
		Transient:  uint32(c.Transient),
		Terminal:   c.Terminal,
		Fullscreen: c.Fullscreen,
	}
	if term, ok := m.reg.Get(c.LauncherParent); ok {
		out.Launcher = uint32(term.Window)
	}
	return out
}
