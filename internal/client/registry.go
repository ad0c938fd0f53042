package client

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/shrub9/internal/display"
)

type slot struct {
	client *Client
	gen    uint32
}

// Registry owns every client record. It is not safe for concurrent use; the
// window manager loop is its only user.
type Registry struct {
	dpy    display.Display
	logger *slog.Logger

	slots    []slot
	free     []uint32
	byWindow map[display.Window]Handle
	// stack is the global stacking order, most recently raised first.
	stack []Handle
}

// NewRegistry creates an empty registry that persists state changes through dpy.
func NewRegistry(dpy display.Display, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dpy:      dpy,
		logger:   logger,
		byWindow: make(map[display.Window]Handle),
	}
}

// LookupOrCreate returns the client for w, creating a Withdrawn record with
// no workspace when w is unknown. The bool reports whether it was created.
func (r *Registry) LookupOrCreate(w display.Window) (*Client, bool) {
	if c := r.Lookup(w); c != nil {
		return c, false
	}

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		idx = uint32(len(r.slots) - 1)
	}
	s := &r.slots[idx]
	s.gen++
	h := Handle{index: idx, gen: s.gen}
	c := &Client{
		Handle:    h,
		Window:    w,
		State:     display.StateWithdrawn,
		Workspace: -1,
	}
	s.client = c
	r.byWindow[w] = h
	r.stack = append([]Handle{h}, r.stack...)
	r.logger.Debug("client created", "window", w)
	return c, true
}

// Lookup returns the client whose window or frame is w, or nil.
func (r *Registry) Lookup(w display.Window) *Client {
	if w == display.None {
		return nil
	}
	h, ok := r.byWindow[w]
	if !ok {
		return nil
	}
	c, _ := r.Get(h)
	return c
}

// Get dereferences a handle, failing when the client was removed.
func (r *Registry) Get(h Handle) (*Client, bool) {
	if h.IsNil() || int(h.index) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[h.index]
	if s.gen != h.gen || s.client == nil {
		return nil, false
	}
	return s.client, true
}

// SetFrame records the frame window so Lookup finds the client by it.
func (r *Registry) SetFrame(c *Client, frame display.Window) {
	if c.Frame != display.None && c.Frame != c.Window {
		delete(r.byWindow, c.Frame)
	}
	c.Frame = frame
	if frame != display.None {
		r.byWindow[frame] = c.Handle
	}
}

// SetState is the single entry point for lifecycle transitions. The state is
// written to WM_STATE so it survives a restart of the window manager.
func (r *Registry) SetState(c *Client, s display.State) error {
	prev := c.State
	c.State = s
	if prev != s {
		r.logger.Debug("client state", "window", c.Window, "from", prev, "to", s)
	}
	if err := r.dpy.SetState(c.Window, s); err != nil {
		return fmt.Errorf("set WM_STATE on %s: %w", c.Window, err)
	}
	return nil
}

// Remove releases the client's slot. Clients reverting to it revert to its
// own revert target instead, and launcher links pointing at it are cleared.
// Workspace, hidden list and focus bookkeeping must be dropped first.
func (r *Registry) Remove(h Handle) {
	c, ok := r.Get(h)
	if !ok {
		return
	}
	for _, s := range r.slots {
		other := s.client
		if other == nil || other == c {
			continue
		}
		if other.Revert == h {
			other.Revert = c.Revert
		}
		if other.LauncherParent == h {
			other.LauncherParent = Nil
		}
		if other.LauncherChild == h {
			other.LauncherChild = Nil
		}
	}

	if r.byWindow[c.Window] == h {
		delete(r.byWindow, c.Window)
	}
	if c.Frame != display.None && r.byWindow[c.Frame] == h {
		delete(r.byWindow, c.Frame)
	}
	for i, sh := range r.stack {
		if sh == h {
			r.stack = append(r.stack[:i], r.stack[i+1:]...)
			break
		}
	}

	r.slots[h.index].client = nil
	r.free = append(r.free, h.index)
	r.logger.Debug("client removed", "window", c.Window)
}

// Top moves the client to the front of the stacking order.
func (r *Registry) Top(h Handle) {
	for i, sh := range r.stack {
		if sh == h {
			copy(r.stack[1:i+1], r.stack[:i])
			r.stack[0] = h
			return
		}
	}
}

// All returns the live clients in stacking order, most recently raised first.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, len(r.stack))
	for _, h := range r.stack {
		if c, ok := r.Get(h); ok {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	return len(r.stack)
}

// Each calls fn for every live client in slot order.
func (r *Registry) Each(fn func(c *Client)) {
	for _, s := range r.slots {
		if s.client != nil {
			fn(s.client)
		}
	}
}
