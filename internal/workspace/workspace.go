// Package workspace partitions clients into workspaces and hides the clients
// of every workspace but the current one. Hiding is done by unmapping, and
// the unmap notifications it causes are counted so the dispatcher can tell
// them apart from clients withdrawing themselves.
package workspace

import (
	"container/list"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/display"
)

// MaxWorkspaces bounds the workspace count.
const MaxWorkspaces = 10

// unmapsPerClient is the number of unmap notifications hiding a client
// causes: one for the frame and one for the client window.
const unmapsPerClient = 2

var (
	// ErrOutOfRange is returned for a workspace index outside [0, Count).
	ErrOutOfRange = errors.New("workspace index out of range")

	// ErrMoveFailed is returned when a move could not complete and was rolled back.
	ErrMoveFailed = errors.New("workspace move failed")
)

// Focuser is the part of the focus engine the multiplexer drives on a switch.
type Focuser interface {
	Activate(c *client.Client, t uint32)
	Clear(t uint32)
}

// Workspace is one partition of the client set.
type Workspace struct {
	ID         int
	Visible    bool
	LastActive client.Handle
	clients    *list.List // of client.Handle, front is most recent
}

// Len returns the number of member clients.
func (w *Workspace) Len() int {
	return w.clients.Len()
}

// Multiplexer owns the workspaces and the pending-unmap accounting.
type Multiplexer struct {
	reg    *client.Registry
	dpy    display.Display
	focus  Focuser
	logger *slog.Logger

	spaces  []*Workspace
	current int
	index   map[client.Handle]*list.Element

	pending   int
	switching bool

	// Stale-switch detection in event time.
	staleAfter   uint32
	pendingSince uint32
	pendingArmed bool

	// OnChange runs after a switch, once the new workspace is visible.
	OnChange func()
}

// New creates n workspaces, clamped to [1, MaxWorkspaces], with workspace 0 visible.
func New(n int, reg *client.Registry, dpy display.Display, focus Focuser, logger *slog.Logger) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	if n < 1 {
		n = 1
	}
	if n > MaxWorkspaces {
		n = MaxWorkspaces
	}
	m := &Multiplexer{
		reg:    reg,
		dpy:    dpy,
		focus:  focus,
		logger: logger,
		index:  make(map[client.Handle]*list.Element),
	}
	for i := 0; i < n; i++ {
		m.spaces = append(m.spaces, &Workspace{ID: i, clients: list.New()})
	}
	m.spaces[0].Visible = true
	return m
}

// SetStaleAfter sets how long, in event milliseconds, unmaps may stay
// pending before the switch state is reset. Zero disables the reset.
func (m *Multiplexer) SetStaleAfter(ms uint32) {
	m.staleAfter = ms
}

// Count returns the number of workspaces.
func (m *Multiplexer) Count() int {
	return len(m.spaces)
}

// Current returns the visible workspace index.
func (m *Multiplexer) Current() int {
	return m.current
}

// Pending returns the number of unmap notifications still expected.
func (m *Multiplexer) Pending() int {
	return m.pending
}

// Switching reports whether hide-induced unmaps are being consumed.
func (m *Multiplexer) Switching() bool {
	return m.switching
}

// Workspace returns workspace ws.
func (m *Multiplexer) Workspace(ws int) (*Workspace, error) {
	if ws < 0 || ws >= len(m.spaces) {
		return nil, fmt.Errorf("workspace %d: %w", ws, ErrOutOfRange)
	}
	return m.spaces[ws], nil
}

// Members returns the live clients of ws, most recent first.
func (m *Multiplexer) Members(ws int) []*client.Client {
	if ws < 0 || ws >= len(m.spaces) {
		return nil
	}
	var out []*client.Client
	for e := m.spaces[ws].clients.Front(); e != nil; e = e.Next() {
		if c, ok := m.reg.Get(e.Value.(client.Handle)); ok {
			out = append(out, c)
		}
	}
	return out
}

// Add assigns c to ws at the front of its list, removing it from any prior
// workspace. Adding to the workspace c is already on does nothing. A mapped
// Normal client added to a hidden workspace is unmapped, and the unmaps are
// counted as pending so they are not taken for a withdrawal.
func (m *Multiplexer) Add(c *client.Client, ws int) error {
	if ws < 0 || ws >= len(m.spaces) {
		return fmt.Errorf("add %s to workspace %d: %w", c.Window, ws, ErrOutOfRange)
	}
	if c.Workspace == ws {
		if _, ok := m.index[c.Handle]; ok {
			return nil
		}
	}
	m.Remove(c)

	m.index[c.Handle] = m.spaces[ws].clients.PushFront(c.Handle)
	c.Workspace = ws

	if ws != m.current && c.IsNormal() && c.Mapped {
		m.hide(c)
	}
	return nil
}

// Remove drops c from its workspace. It is a no-op for unassigned clients.
func (m *Multiplexer) Remove(c *client.Client) {
	if e, ok := m.index[c.Handle]; ok {
		if c.Workspace >= 0 && c.Workspace < len(m.spaces) {
			ws := m.spaces[c.Workspace]
			ws.clients.Remove(e)
			if ws.LastActive == c.Handle {
				ws.LastActive = client.Nil
			}
		} else {
			m.logger.Warn("client indexed without a workspace", "window", c.Window, "workspace", c.Workspace)
		}
		delete(m.index, c.Handle)
	}
	c.Workspace = -1
}

// Move reassigns c to ws. Moving onto the current workspace maps and raises
// it; moving away hides it. On failure c is restored to its prior workspace.
func (m *Multiplexer) Move(c *client.Client, ws int) error {
	if c.Workspace == ws {
		return nil
	}
	prev := c.Workspace
	if err := m.Add(c, ws); err != nil {
		if prev >= 0 {
			if rerr := m.Add(c, prev); rerr != nil {
				m.logger.Warn("rollback failed", "window", c.Window, "workspace", prev, "error", rerr)
			}
		}
		return fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}
	if err := m.checkPlacement(c); err != nil {
		return fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}
	if ws == m.current && c.IsNormal() && !c.Mapped {
		m.show(c)
	}
	return nil
}

// checkPlacement verifies that c is listed on exactly the workspace it
// names. Stray entries on other workspaces are dropped.
func (m *Multiplexer) checkPlacement(c *client.Client) error {
	own, ok := m.index[c.Handle]
	if !ok {
		return fmt.Errorf("%s is not indexed after moving to workspace %d", c.Window, c.Workspace)
	}
	found := false
	for i, ws := range m.spaces {
		for e := ws.clients.Front(); e != nil; {
			next := e.Next()
			if e.Value.(client.Handle) == c.Handle {
				if e == own && i == c.Workspace {
					found = true
				} else {
					m.logger.Warn("dropping stray workspace entry", "window", c.Window, "workspace", i)
					ws.clients.Remove(e)
				}
			}
			e = next
		}
	}
	if !found {
		return fmt.Errorf("%s is not listed on workspace %d", c.Window, c.Workspace)
	}
	return nil
}

// Raise moves c to the front of its workspace list.
func (m *Multiplexer) Raise(c *client.Client) {
	if e, ok := m.index[c.Handle]; ok && c.Workspace >= 0 {
		m.spaces[c.Workspace].clients.MoveToFront(e)
	}
}

// Remember records c as the client to refocus when its workspace is shown again.
func (m *Multiplexer) Remember(c *client.Client) {
	if c.Workspace >= 0 && c.Workspace < len(m.spaces) {
		m.spaces[c.Workspace].LastActive = c.Handle
	}
}

// Forget clears any remembered references to h.
func (m *Multiplexer) Forget(h client.Handle) {
	for _, ws := range m.spaces {
		if ws.LastActive == h {
			ws.LastActive = client.Nil
		}
	}
}

// Switch hides the current workspace and shows ws. Out-of-range and current
// indices are ignored.
func (m *Multiplexer) Switch(ws int, t uint32) {
	if ws < 0 || ws >= len(m.spaces) || ws == m.current {
		return
	}
	old := m.spaces[m.current]
	m.logger.Debug("workspace switch", "from", m.current, "to", ws)

	m.switching = true
	for e := old.clients.Front(); e != nil; {
		next := e.Next()
		if c, ok := m.reg.Get(e.Value.(client.Handle)); ok && c.IsNormal() && c.Mapped {
			m.hide(c)
		}
		e = next
	}
	old.Visible = false

	m.current = ws
	incoming := m.spaces[ws]
	for e := incoming.clients.Back(); e != nil; {
		prev := e.Prev()
		if c, ok := m.reg.Get(e.Value.(client.Handle)); ok && c.IsNormal() {
			m.show(c)
		}
		e = prev
	}
	incoming.Visible = true

	if m.OnChange != nil {
		m.OnChange()
	}

	if c, ok := m.reg.Get(incoming.LastActive); ok && c.IsNormal() && c.Workspace == ws {
		m.focus.Activate(c, t)
	} else {
		m.focus.Clear(t)
	}
}

// ConsumeUnmap accounts for one unmap notification. It reports true when the
// notification was caused by hiding a workspace and must not withdraw the client.
func (m *Multiplexer) ConsumeUnmap() bool {
	if !m.switching || m.pending <= 0 {
		return false
	}
	m.pending--
	if m.pending == 0 {
		m.switching = false
		m.pendingArmed = false
	}
	return true
}

// Watchdog runs once per dispatched event. It clears a switching flag left
// set with nothing pending, and resets a switch whose unmaps never arrived
// within the stale interval of event time.
func (m *Multiplexer) Watchdog(now uint32) {
	if m.pending == 0 {
		if m.switching {
			m.logger.Debug("clearing idle switch flag")
			m.switching = false
		}
		m.pendingArmed = false
		return
	}
	if m.staleAfter == 0 || now == 0 {
		return
	}
	if !m.pendingArmed {
		m.pendingSince = now
		m.pendingArmed = true
		return
	}
	if now-m.pendingSince > m.staleAfter {
		m.logger.Warn("resetting stale workspace switch", "pending", m.pending, "elapsed_ms", now-m.pendingSince)
		m.pending = 0
		m.switching = false
		m.pendingArmed = false
	}
}

// Reset drops every membership, used on teardown.
func (m *Multiplexer) Reset() {
	for _, ws := range m.spaces {
		ws.clients.Init()
		ws.LastActive = client.Nil
		ws.Visible = false
	}
	m.index = make(map[client.Handle]*list.Element)
	m.spaces[0].Visible = true
	m.current = 0
	m.pending = 0
	m.switching = false
	m.pendingArmed = false
}

// hide unmaps c and expects its two unmap notifications.
func (m *Multiplexer) hide(c *client.Client) {
	m.pending += unmapsPerClient
	m.switching = true
	c.Mapped = false
	if err := display.IgnoreGone(m.dpy.Unmap(c.Frame)); err != nil {
		m.logger.Warn("unmap frame failed", "window", c.Window, "error", err)
	}
	if err := display.IgnoreGone(m.dpy.Unmap(c.Window)); err != nil {
		m.logger.Warn("unmap window failed", "window", c.Window, "error", err)
	}
}

func (m *Multiplexer) show(c *client.Client) {
	if err := display.IgnoreGone(m.dpy.Map(c.Window)); err != nil {
		m.logger.Warn("map window failed", "window", c.Window, "error", err)
	}
	if err := display.IgnoreGone(m.dpy.MapRaised(c.Frame)); err != nil {
		m.logger.Warn("map frame failed", "window", c.Window, "error", err)
	}
	c.Mapped = true
	m.reg.Top(c.Handle)
}
