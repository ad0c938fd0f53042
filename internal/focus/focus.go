// Package focus keeps the active client and the revert chain used to pick a
// replacement when the active client goes away.
package focus

import (
	"log/slog"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/display"
)

// Engine owns the current client and the focus sink window.
type Engine struct {
	reg    *client.Registry
	dpy    display.Display
	rnd    display.Renderer
	logger *slog.Logger

	current client.Handle
	sink    display.Window

	// Eligible filters fallback candidates beyond the Normal state check.
	// The manager uses it to skip clients on hidden workspaces.
	Eligible func(c *client.Client) bool
}

// New creates a focus engine with no current client.
func New(reg *client.Registry, dpy display.Display, rnd display.Renderer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		reg:    reg,
		dpy:    dpy,
		rnd:    rnd,
		logger: logger,
	}
}

// Current returns the active client.
func (e *Engine) Current() (*client.Client, bool) {
	return e.reg.Get(e.current)
}

// IsCurrent reports whether c is the active client.
func (e *Engine) IsCurrent(c *client.Client) bool {
	return c != nil && !e.current.IsNil() && c.Handle == e.current
}

// Activate makes c the active client. The previous client goes to the head
// of c's revert chain, and clients that reverted to c revert to c's old
// target instead, so the chain never loops back to c.
func (e *Engine) Activate(c *client.Client, t uint32) {
	if c == nil || e.IsCurrent(c) {
		return
	}
	old, hasOld := e.Current()
	if hasOld {
		e.setActive(old, false, t)
	}
	e.activate(c, old, hasOld, t)
}

func (e *Engine) activate(c, old *client.Client, hasOld bool, t uint32) {
	e.setActive(c, true, t)

	e.reg.Each(func(other *client.Client) {
		if other.Revert == c.Handle {
			other.Revert = c.Revert
		}
	})
	c.Revert = client.Nil
	if hasOld {
		c.Revert = old.Handle
	}
	for {
		next, ok := e.reg.Get(c.Revert)
		if !ok {
			c.Revert = client.Nil
			break
		}
		if next.IsNormal() {
			break
		}
		c.Revert = next.Revert
	}
	e.current = c.Handle
	e.logger.Debug("focus", "window", c.Window, "label", c.Label)
}

// Resync records a focus change made by another client. The change already
// happened on the server, so it is adopted rather than fought.
func (e *Engine) Resync(c *client.Client, t uint32) {
	e.Activate(c, t)
}

// DeactivateToFallback drops focus from the current client and activates the
// first eligible client on its revert chain. With no candidate, focus goes
// to the sink window.
func (e *Engine) DeactivateToFallback(t uint32) {
	cur, ok := e.Current()
	if ok {
		e.setActive(cur, false, t)
		for h := cur.Revert; ; {
			next, ok := e.reg.Get(h)
			if !ok {
				break
			}
			if e.eligible(next) {
				e.activate(next, cur, true, t)
				return
			}
			h = next.Revert
		}
		e.installDefaultColormap()
	}
	e.current = client.Nil
	e.focusSink(t)
}

// Clear drops the current client without choosing a replacement. Input
// focus is left to revert when the window is unmapped.
func (e *Engine) Clear(t uint32) {
	if cur, ok := e.Current(); ok {
		e.setActive(cur, false, t)
	}
	e.current = client.Nil
}

// Forget handles the destruction of h. When h is current its revert target
// becomes current, or the sink when there is none. Call before the registry
// releases the client.
func (e *Engine) Forget(h client.Handle, t uint32) {
	if h.IsNil() || h != e.current {
		return
	}
	c, ok := e.reg.Get(h)
	e.current = client.Nil
	if ok {
		if next, ok := e.reg.Get(c.Revert); ok && e.eligible(next) {
			e.current = next.Handle
			e.setActive(next, true, t)
			return
		}
	}
	e.focusSink(t)
}

// InstallColormaps installs the colormaps a client asked for in
// WM_COLORMAP_WINDOWS, in reverse order, followed by its own colormap when the
// client window is not listed. A transient without a list uses its owner's.
func (e *Engine) InstallColormaps(c *client.Client) {
	if c == nil {
		return
	}
	if len(c.ColormapWindows) == 0 {
		if owner := e.reg.Lookup(c.Transient); owner != nil && owner != c && len(owner.ColormapWindows) > 0 {
			e.InstallColormaps(owner)
			return
		}
		e.install(c.Colormap)
		return
	}
	found := false
	for i := len(c.ColormapWindows) - 1; i >= 0; i-- {
		w := c.ColormapWindows[i]
		if w == c.Window {
			found = true
			e.install(c.Colormap)
			continue
		}
		info, err := e.dpy.WindowInfo(w)
		if err != nil {
			e.logger.Debug("colormap window gone", "window", w, "error", err)
			continue
		}
		e.install(info.Colormap)
	}
	if !found {
		e.install(c.Colormap)
	}
}

func (e *Engine) install(cmap uint32) {
	if err := e.dpy.InstallColormap(cmap); err != nil {
		e.logger.Debug("install colormap failed", "colormap", cmap, "error", err)
	}
}

func (e *Engine) installDefaultColormap() {
	e.install(0)
}

func (e *Engine) eligible(c *client.Client) bool {
	if !c.IsNormal() {
		return false
	}
	if e.Eligible != nil {
		return e.Eligible(c)
	}
	return true
}

// setActive updates decoration and input state for one client. Inactive
// frames grab the buttons so a click can raise them.
func (e *Engine) setActive(c *client.Client, on bool, t uint32) {
	if c.Frame == display.None || c.Frame == e.dpy.Root() {
		return
	}
	if on {
		if err := display.IgnoreGone(e.dpy.UngrabButtons(c.Frame)); err != nil {
			e.logger.Warn("ungrab buttons failed", "window", c.Window, "error", err)
		}
		if err := display.IgnoreGone(e.dpy.SetInputFocus(c.Window, t)); err != nil {
			e.logger.Warn("set input focus failed", "window", c.Window, "error", err)
		}
		if c.TakeFocus {
			if err := display.IgnoreGone(e.dpy.SendProtocol(c.Window, display.ProtocolTakeFocus, t)); err != nil {
				e.logger.Warn("send WM_TAKE_FOCUS failed", "window", c.Window, "error", err)
			}
		}
		e.InstallColormaps(c)
	} else {
		if err := display.IgnoreGone(e.dpy.GrabButtons(c.Frame)); err != nil {
			e.logger.Warn("grab buttons failed", "window", c.Window, "error", err)
		}
	}
	if err := display.IgnoreGone(e.rnd.SetFrameColor(c.Frame, on)); err != nil {
		e.logger.Warn("draw border failed", "window", c.Window, "error", err)
	}
}

// SetInactive redraws a client that is not current as inactive.
func (e *Engine) SetInactive(c *client.Client, t uint32) {
	if e.IsCurrent(c) {
		return
	}
	e.setActive(c, false, t)
}

func (e *Engine) focusSink(t uint32) {
	if e.sink == display.None {
		w, err := e.dpy.CreateSink()
		if err != nil {
			e.logger.Warn("create focus sink failed", "error", err)
			return
		}
		e.sink = w
	}
	if err := e.dpy.SetInputFocus(e.sink, t); err != nil {
		e.logger.Warn("focus sink failed", "error", err)
	}
}
