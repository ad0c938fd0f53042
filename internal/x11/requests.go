package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/jmylchreest/shrub9/internal/display"
)

// Root returns the root window of the managed screen.
func (c *Conn) Root() display.Window { return display.Window(c.root) }

// Screen returns the root geometry.
func (c *Conn) Screen() display.Rect { return c.screen }

// WindowInfo reads the attributes and geometry of w.
func (c *Conn) WindowInfo(w display.Window) (display.WindowInfo, error) {
	attrs, err := xproto.GetWindowAttributes(c.conn, xproto.Window(w)).Reply()
	if err != nil {
		return display.WindowInfo{}, mapErr(err)
	}
	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(w)).Reply()
	if err != nil {
		return display.WindowInfo{}, mapErr(err)
	}
	return display.WindowInfo{
		Rect: display.Rect{
			X:      int(geom.X),
			Y:      int(geom.Y),
			Width:  int(geom.Width),
			Height: int(geom.Height),
		},
		BorderWidth:      int(geom.BorderWidth),
		OverrideRedirect: attrs.OverrideRedirect,
		Viewable:         attrs.MapState == xproto.MapStateViewable,
		Colormap:         uint32(attrs.Colormap),
	}, nil
}

// Children lists the top-level windows in stacking order, bottom first.
func (c *Conn) Children() ([]display.Window, error) {
	tree, err := xproto.QueryTree(c.conn, c.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree: %w", mapErr(err))
	}
	out := make([]display.Window, 0, len(tree.Children))
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range tree.Children {
		if c.frames[w] || w == c.sink || w == c.menus[0] || w == c.menus[1] || w == c.spaces {
			continue
		}
		out = append(out, display.Window(w))
	}
	return out, nil
}

// SelectClientInput asks for the client events the dispatcher handles.
func (c *Conn) SelectClientInput(w display.Window) error {
	err := xproto.ChangeWindowAttributesChecked(c.conn, xproto.Window(w), xproto.CwEventMask,
		[]uint32{clientEventMask}).Check()
	if err != nil {
		return mapErr(err)
	}
	if c.shaped {
		if err := shape.SelectInputChecked(c.conn, xproto.Window(w), true).Check(); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// CreateFrame creates an unmapped frame window painted in the inactive colour.
func (c *Conn) CreateFrame(r display.Rect, borderWidth int) (display.Window, error) {
	wid, err := c.createWindow(r, borderWidth, xproto.WindowClassInputOutput,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask,
		c.colors.inactive, c.colors.inactive, frameEventMask)
	if err != nil {
		return display.None, fmt.Errorf("create frame: %w", err)
	}
	c.mu.Lock()
	c.frames[wid] = true
	c.mu.Unlock()
	return display.Window(wid), nil
}

// DestroyWindow destroys w and its subwindows.
func (c *Conn) DestroyWindow(w display.Window) error {
	c.mu.Lock()
	delete(c.frames, xproto.Window(w))
	if title, ok := c.titles[xproto.Window(w)]; ok {
		delete(c.titles, xproto.Window(w))
		delete(c.owners, title)
	}
	c.mu.Unlock()
	return mapErr(xproto.DestroyWindowChecked(c.conn, xproto.Window(w)).Check())
}

// Reparent moves w into parent at the given position.
func (c *Conn) Reparent(w, parent display.Window, x, y int) error {
	return mapErr(xproto.ReparentWindowChecked(c.conn, xproto.Window(w), xproto.Window(parent),
		int16(x), int16(y)).Check())
}

// SetSaveSet adds w to or removes it from the save set.
func (c *Conn) SetSaveSet(w display.Window, add bool) error {
	mode := byte(xproto.SetModeDelete)
	if add {
		mode = xproto.SetModeInsert
	}
	return mapErr(xproto.ChangeSaveSetChecked(c.conn, mode, xproto.Window(w)).Check())
}

// Map maps w.
func (c *Conn) Map(w display.Window) error {
	return mapErr(xproto.MapWindowChecked(c.conn, xproto.Window(w)).Check())
}

// MapRaised raises w to the top of the stack and maps it.
func (c *Conn) MapRaised(w display.Window) error {
	if err := c.Raise(w); err != nil {
		return err
	}
	return c.Map(w)
}

// Unmap unmaps w.
func (c *Conn) Unmap(w display.Window) error {
	return mapErr(xproto.UnmapWindowChecked(c.conn, xproto.Window(w)).Check())
}

// Raise puts w above its siblings.
func (c *Conn) Raise(w display.Window) error {
	return mapErr(xproto.ConfigureWindowChecked(c.conn, xproto.Window(w), xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove}).Check())
}

// Configure sets the geometry and border width of w.
func (c *Conn) Configure(w display.Window, r display.Rect, borderWidth int) error {
	return mapErr(xproto.ConfigureWindowChecked(c.conn, xproto.Window(w), configureMask,
		configureValues(r, borderWidth)).Check())
}

const configureMask = xproto.ConfigWindowX | xproto.ConfigWindowY |
	xproto.ConfigWindowWidth | xproto.ConfigWindowHeight | xproto.ConfigWindowBorderWidth

// configureValues encodes a geometry in ConfigureWindow value order. The
// position is sign-extended and the size clamped to one pixel.
func configureValues(r display.Rect, borderWidth int) []uint32 {
	return []uint32{
		uint32(int32(r.X)),
		uint32(int32(r.Y)),
		uint32(max(r.Width, 1)),
		uint32(max(r.Height, 1)),
		uint32(max(borderWidth, 0)),
	}
}

// SendConfigureNotify tells w its root position and size.
func (c *Conn) SendConfigureNotify(w display.Window, r display.Rect, borderWidth int) error {
	ev := xproto.ConfigureNotifyEvent{
		Event:            xproto.Window(w),
		Window:           xproto.Window(w),
		AboveSibling:     xproto.WindowNone,
		X:                int16(r.X),
		Y:                int16(r.Y),
		Width:            uint16(max(r.Width, 1)),
		Height:           uint16(max(r.Height, 1)),
		BorderWidth:      uint16(max(borderWidth, 0)),
		OverrideRedirect: false,
	}
	return mapErr(xproto.SendEventChecked(c.conn, false, xproto.Window(w),
		xproto.EventMaskStructureNotify, string(ev.Bytes())).Check())
}

// CopyShape gives frame the bounding shape of w at the given offset.
// Unshaped windows leave the frame rectangular.
func (c *Conn) CopyShape(frame, w display.Window, x, y int) error {
	if !c.shaped {
		return nil
	}
	ext, err := shape.QueryExtents(c.conn, xproto.Window(w)).Reply()
	if err != nil {
		return mapErr(err)
	}
	if !ext.BoundingShaped {
		return nil
	}
	return mapErr(shape.CombineChecked(c.conn, shape.SoSet, shape.SkBounding, shape.SkBounding,
		xproto.Window(frame), int16(x), int16(y), xproto.Window(w)).Check())
}

// SetInputFocus focuses w; focus reverts to the pointer root.
func (c *Conn) SetInputFocus(w display.Window, t uint32) error {
	return mapErr(xproto.SetInputFocusChecked(c.conn, xproto.InputFocusPointerRoot, xproto.Window(w),
		xproto.Timestamp(t)).Check())
}

// FocusPointerRoot gives focus to whatever window is under the pointer.
func (c *Conn) FocusPointerRoot(t uint32) error {
	return xproto.SetInputFocusChecked(c.conn, xproto.InputFocusPointerRoot, xproto.InputFocusPointerRoot,
		xproto.Timestamp(t)).Check()
}

// CreateSink creates the mapped off-screen input window that holds focus
// while no client is active. It doubles as the EWMH supporting window.
func (c *Conn) CreateSink() (display.Window, error) {
	wid, err := c.createWindow(display.Rect{X: -100, Y: -100, Width: 1, Height: 1}, 0,
		xproto.WindowClassInputOnly,
		xproto.CwOverrideRedirect|xproto.CwEventMask,
		1, xproto.EventMaskKeyPress)
	if err != nil {
		return display.None, fmt.Errorf("create focus sink: %w", err)
	}
	if err := xproto.MapWindowChecked(c.conn, wid).Check(); err != nil {
		return display.None, fmt.Errorf("map focus sink: %w", err)
	}
	c.mu.Lock()
	c.sink = wid
	c.mu.Unlock()
	c.advertise(wid)
	return display.Window(wid), nil
}

// SendProtocol sends a WM_PROTOCOLS client message to w.
func (c *Conn) SendProtocol(w display.Window, protocol string, t uint32) error {
	protocols, err := atomID(c.xu, "WM_PROTOCOLS")
	if err != nil {
		return err
	}
	name, err := atomID(c.xu, protocol)
	if err != nil {
		return err
	}
	msg := xproto.ClientMessageEvent{
		Format: 32,
		Window: xproto.Window(w),
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(name), t, 0, 0, 0}),
	}
	return mapErr(xproto.SendEventChecked(c.conn, false, xproto.Window(w), xproto.EventMaskNoEvent,
		string(msg.Bytes())).Check())
}

// KillClient closes the connection of the client owning w.
func (c *Conn) KillClient(w display.Window) error {
	return mapErr(xproto.KillClientChecked(c.conn, uint32(w)).Check())
}

// InstallColormap installs cmap, or the default colormap for zero.
func (c *Conn) InstallColormap(cmap uint32) error {
	id := xproto.Colormap(cmap)
	if id == 0 {
		id = c.xu.Screen().DefaultColormap
	}
	return xproto.InstallColormapChecked(c.conn, id).Check()
}

// GrabButtons grabs every button on an inactive client so the first click
// activates it.
func (c *Conn) GrabButtons(w display.Window) error {
	return mapErr(xproto.GrabButtonChecked(c.conn, false, xproto.Window(w), xproto.EventMaskButtonPress,
		xproto.GrabModeAsync, xproto.GrabModeAsync, xproto.WindowNone, xproto.CursorNone,
		xproto.ButtonIndexAny, xproto.ModMaskAny).Check())
}

// UngrabButtons releases the grabs made by GrabButtons.
func (c *Conn) UngrabButtons(w display.Window) error {
	return mapErr(xproto.UngrabButtonChecked(c.conn, xproto.ButtonIndexAny, xproto.Window(w),
		xproto.ModMaskAny).Check())
}

// GrabKeys replaces the root key grabs with the given chords, written in
// the "mod4-1" form keybind parses. Lock and NumLock variants are grabbed
// as well.
func (c *Conn) GrabKeys(chords []string) error {
	if err := xproto.UngrabKeyChecked(c.conn, xproto.GrabAny, c.root, xproto.ModMaskAny).Check(); err != nil {
		return fmt.Errorf("ungrab keys: %w", err)
	}
	var failed []string
	for _, chord := range chords {
		mods, codes, err := keybind.ParseString(c.xu, chord)
		if err != nil {
			failed = append(failed, chord)
			c.logger.Warn("unknown key binding", "chord", chord, "error", err)
			continue
		}
		for _, code := range codes {
			if err := keybind.GrabChecked(c.xu, c.root, mods, code); err != nil {
				failed = append(failed, chord)
				c.logger.Warn("key grab failed", "chord", chord, "error", err)
				break
			}
		}
	}
	c.mu.Lock()
	c.chords = append(c.chords[:0], chords...)
	c.mu.Unlock()
	if len(failed) > 0 {
		return fmt.Errorf("failed to grab %d of %d key bindings: %v", len(failed), len(chords), failed)
	}
	return nil
}

// GrabPointer grabs the pointer on the root with the given cursor.
func (c *Conn) GrabPointer(cursor display.Cursor, t uint32) error {
	reply, err := xproto.GrabPointer(c.conn, false, c.root, grabEventMask,
		xproto.GrabModeAsync, xproto.GrabModeAsync, xproto.WindowNone, c.cursors[cursor],
		xproto.Timestamp(t)).Reply()
	if err != nil {
		return fmt.Errorf("%w: %v", display.ErrGrabFailed, err)
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("%w: status %d", display.ErrGrabFailed, reply.Status)
	}
	return nil
}

// UngrabPointer releases a pointer grab.
func (c *Conn) UngrabPointer(t uint32) error {
	return xproto.UngrabPointerChecked(c.conn, xproto.Timestamp(t)).Check()
}

// GrabKeyboard grabs the keyboard on the root so Escape and Return reach
// the window manager.
func (c *Conn) GrabKeyboard(t uint32) error {
	reply, err := xproto.GrabKeyboard(c.conn, false, c.root, xproto.Timestamp(t),
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil {
		return fmt.Errorf("%w: %v", display.ErrGrabFailed, err)
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("%w: keyboard status %d", display.ErrGrabFailed, reply.Status)
	}
	return nil
}

// UngrabKeyboard releases a keyboard grab.
func (c *Conn) UngrabKeyboard(t uint32) error {
	return xproto.UngrabKeyboardChecked(c.conn, xproto.Timestamp(t)).Check()
}

// QueryPointer reports the pointer position relative to the root.
func (c *Conn) QueryPointer() (display.Pointer, error) {
	reply, err := xproto.QueryPointer(c.conn, c.root).Reply()
	if err != nil {
		return display.Pointer{}, fmt.Errorf("query pointer: %w", err)
	}
	return display.Pointer{
		X:       int(reply.RootX),
		Y:       int(reply.RootY),
		Buttons: reply.Mask,
		Child:   display.Window(reply.Child),
	}, nil
}

// WarpPointer moves the pointer to a root position.
func (c *Conn) WarpPointer(x, y int) error {
	return xproto.WarpPointerChecked(c.conn, xproto.WindowNone, c.root, 0, 0, 0, 0,
		int16(x), int16(y)).Check()
}
