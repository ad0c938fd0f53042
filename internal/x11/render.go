package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/jmylchreest/shrub9/internal/display"
)

// menuPad is the horizontal padding added to the widest menu item.
const menuPad = 4

// SetFrameColor paints the frame in the active or inactive colour.
func (c *Conn) SetFrameColor(frame display.Window, active bool) error {
	px := c.colors.inactive
	if active {
		px = c.colors.active
	}
	err := xproto.ChangeWindowAttributesChecked(c.conn, xproto.Window(frame),
		xproto.CwBackPixel|xproto.CwBorderPixel, []uint32{px, px}).Check()
	if err != nil {
		return mapErr(err)
	}
	return mapErr(xproto.ClearAreaChecked(c.conn, false, xproto.Window(frame), 0, 0, 0, 0).Check())
}

// SetColors switches the palette used for frames, menus and the outline.
func (c *Conn) SetColors(colors display.Colors) error {
	p := paletteOf(colors)
	gcs := []struct {
		gc   xproto.Gcontext
		mask uint32
		vals []uint32
	}{
		{c.gcMenu, xproto.GcForeground | xproto.GcBackground, []uint32{p.menuFG, p.menuBG}},
		{c.gcHigh, xproto.GcForeground | xproto.GcBackground, []uint32{p.menuBG, p.menuHighlight}},
		{c.gcFill, xproto.GcForeground, []uint32{p.menuHighlight}},
		{c.gcXor, xproto.GcForeground, []uint32{p.xorPixel()}},
		{c.gcTitle, xproto.GcForeground | xproto.GcBackground, []uint32{p.titleFG, p.titleBG}},
	}
	for _, g := range gcs {
		if err := xproto.ChangeGCChecked(c.conn, g.gc, g.mask, g.vals).Check(); err != nil {
			return fmt.Errorf("change graphics context: %w", err)
		}
	}
	for _, win := range c.menus {
		err := xproto.ChangeWindowAttributesChecked(c.conn, win,
			xproto.CwBackPixel|xproto.CwBorderPixel, []uint32{p.menuBG, p.menuFG}).Check()
		if err != nil {
			return fmt.Errorf("recolor menu: %w", err)
		}
	}
	if err := xproto.ChangeWindowAttributesChecked(c.conn, c.spaces,
		xproto.CwBackPixel, []uint32{p.menuBG}).Check(); err != nil {
		return fmt.Errorf("recolor overview: %w", err)
	}
	c.mu.Lock()
	titles := make([]xproto.Window, 0, len(c.titles))
	for _, t := range c.titles {
		titles = append(titles, t)
	}
	c.mu.Unlock()
	for _, t := range titles {
		err := xproto.ChangeWindowAttributesChecked(c.conn, t, xproto.CwBackPixel, []uint32{p.titleBG}).Check()
		if err = mapErr(err); err != nil && !errors.Is(err, display.ErrWindowGone) {
			return fmt.Errorf("recolor titlebar: %w", err)
		}
	}
	c.colors = p
	return nil
}

// textWidth measures s in the menu font.
func (c *Conn) textWidth(s string) int {
	w := 0
	for i := 0; i < len(s); i++ {
		if cw, ok := c.widths[s[i]]; ok && cw > 0 {
			w += cw
		} else {
			w += c.defW
		}
	}
	return w
}

// MenuMetrics returns the padded width of the widest item and the item height.
func (c *Conn) MenuMetrics(items []string) (int, int) {
	wide := 0
	for _, s := range items {
		wide = max(wide, c.textWidth(s))
	}
	return wide + menuPad, c.charH
}

func (c *Conn) menuWindow(layer display.MenuLayer) xproto.Window {
	if layer == display.LayerSub {
		return c.menus[1]
	}
	return c.menus[0]
}

// ShowMenu places the menu window of layer at r, raises it and draws items.
func (c *Conn) ShowMenu(layer display.MenuLayer, r display.Rect, items []string, highlight int) error {
	win := c.menuWindow(layer)
	err := xproto.ConfigureWindowChecked(c.conn, win,
		configureMask|xproto.ConfigWindowStackMode,
		append(configureValues(r, 1), xproto.StackModeAbove)).Check()
	if err != nil {
		return err
	}
	if err := xproto.MapWindowChecked(c.conn, win).Check(); err != nil {
		return err
	}
	return c.DrawMenu(layer, items, highlight)
}

// DrawMenu redraws the items of a visible menu, highlighting one of them.
func (c *Conn) DrawMenu(layer display.MenuLayer, items []string, highlight int) error {
	win := c.menuWindow(layer)
	if err := xproto.ClearAreaChecked(c.conn, false, win, 0, 0, 0, 0).Check(); err != nil {
		return err
	}
	wide, high := c.MenuMetrics(items)
	for i, s := range items {
		gc := c.gcMenu
		y := i * high
		if i == highlight {
			gc = c.gcHigh
			fill := []xproto.Rectangle{{X: 0, Y: int16(y), Width: uint16(wide), Height: uint16(high)}}
			xproto.PolyFillRectangle(c.conn, xproto.Drawable(win), c.gcFill, fill)
		}
		x := (wide - c.textWidth(s)) / 2
		xproto.ImageText8(c.conn, byte(min(len(s), 255)), xproto.Drawable(win), gc,
			int16(x), int16(y+c.ascent), s)
	}
	return nil
}

// HideMenu unmaps the menu window of layer.
func (c *Conn) HideMenu(layer display.MenuLayer) error {
	return xproto.UnmapWindowChecked(c.conn, c.menuWindow(layer)).Check()
}

// XorOutline draws the rubber-band rectangle on the root. Drawing the same
// rectangle again erases it.
func (c *Conn) XorOutline(r display.Rect) error {
	return xproto.PolyRectangleChecked(c.conn, xproto.Drawable(c.root), c.gcXor, []xproto.Rectangle{xrect(r)}).Check()
}

// titlePad is the smallest gap left of a title that does not fit.
const titlePad = 4

// titleOf returns the titlebar of frame, creating and mapping it when the
// frame has none yet.
func (c *Conn) titleOf(frame xproto.Window, r display.Rect) (xproto.Window, bool, error) {
	c.mu.Lock()
	title, ok := c.titles[frame]
	c.mu.Unlock()
	if ok {
		return title, false, nil
	}
	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, false, err
	}
	err = xproto.CreateWindowChecked(c.conn, 0, wid, frame,
		int16(r.X), int16(r.Y), uint16(max(r.Width, 1)), uint16(max(r.Height, 1)), 0,
		xproto.WindowClassInputOutput, xproto.Visualid(0),
		xproto.CwBackPixel|xproto.CwEventMask, []uint32{c.colors.titleBG, titleEventMask}).Check()
	if err != nil {
		return 0, false, mapErr(err)
	}
	if err := xproto.MapWindowChecked(c.conn, wid).Check(); err != nil {
		return 0, false, mapErr(err)
	}
	c.mu.Lock()
	c.titles[frame] = wid
	c.owners[wid] = frame
	c.mu.Unlock()
	return wid, true, nil
}

// DrawTitle places the titlebar of frame at r and draws title centred in it.
func (c *Conn) DrawTitle(frame display.Window, r display.Rect, title string) error {
	win, created, err := c.titleOf(xproto.Window(frame), r)
	if err != nil {
		return err
	}
	if !created {
		err := xproto.ConfigureWindowChecked(c.conn, win, configureMask, configureValues(r, 0)).Check()
		if err != nil {
			return mapErr(err)
		}
	}
	if err := xproto.ClearAreaChecked(c.conn, false, win, 0, 0, 0, 0).Check(); err != nil {
		return mapErr(err)
	}
	if len(title) > 255 {
		title = title[:255]
	}
	x := max((r.Width-c.textWidth(title))/2, titlePad)
	xproto.ImageText8(c.conn, byte(len(title)), xproto.Drawable(win), c.gcTitle,
		int16(x), int16(c.ascent+2), title)
	return nil
}

// RemoveTitle destroys the titlebar of frame.
func (c *Conn) RemoveTitle(frame display.Window) error {
	c.mu.Lock()
	title, ok := c.titles[xproto.Window(frame)]
	delete(c.titles, xproto.Window(frame))
	delete(c.owners, title)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return mapErr(xproto.DestroyWindowChecked(c.conn, title).Check())
}

// ShowOverview maps the overview over the whole screen and draws cells.
func (c *Conn) ShowOverview(cells []display.OverviewCell) error {
	err := xproto.ConfigureWindowChecked(c.conn, c.spaces,
		configureMask|xproto.ConfigWindowStackMode,
		append(configureValues(c.screen, 0), xproto.StackModeAbove)).Check()
	if err != nil {
		return err
	}
	if err := xproto.MapWindowChecked(c.conn, c.spaces).Check(); err != nil {
		return err
	}
	return c.DrawOverview(cells)
}

// DrawOverview redraws the workspace cells: a frame per cell, three pixels
// wide for the current workspace, the label, and an outline per client.
// The target cell is filled in the highlight colour.
func (c *Conn) DrawOverview(cells []display.OverviewCell) error {
	win := xproto.Drawable(c.spaces)
	if err := xproto.ClearAreaChecked(c.conn, false, c.spaces, 0, 0, 0, 0).Check(); err != nil {
		return err
	}
	for _, cell := range cells {
		r := cell.Rect
		text := c.gcMenu
		if cell.Target {
			fill := xproto.Rectangle{X: int16(r.X), Y: int16(r.Y), Width: uint16(max(r.Width, 0)), Height: uint16(max(r.Height, 0))}
			xproto.PolyFillRectangle(c.conn, win, c.gcFill, []xproto.Rectangle{fill})
			text = c.gcHigh
		}
		edges := 1
		if cell.Current {
			edges = 3
		}
		frames := make([]xproto.Rectangle, 0, edges)
		for i := 0; i < edges; i++ {
			frames = append(frames, xrect(display.Rect{X: r.X + i, Y: r.Y + i, Width: r.Width - 2*i, Height: r.Height - 2*i}))
		}
		xproto.PolyRectangle(c.conn, win, c.gcMenu, frames)

		x := r.X + (r.Width-c.textWidth(cell.Label))/2
		xproto.ImageText8(c.conn, byte(min(len(cell.Label), 255)), win, text,
			int16(x), int16(r.Y+c.ascent+5), cell.Label)

		thumbs := make([]xproto.Rectangle, 0, len(cell.Thumbs))
		for _, t := range cell.Thumbs {
			thumbs = append(thumbs, xrect(t))
		}
		if len(thumbs) > 0 {
			xproto.PolyRectangle(c.conn, win, c.gcMenu, thumbs)
		}
	}
	return nil
}

// HideOverview unmaps the overview.
func (c *Conn) HideOverview() error {
	return xproto.UnmapWindowChecked(c.conn, c.spaces).Check()
}

// xrect converts r to an outline rectangle, which X draws one pixel wider
// and taller than its size.
func xrect(r display.Rect) xproto.Rectangle {
	return xproto.Rectangle{
		X:      int16(r.X),
		Y:      int16(r.Y),
		Width:  uint16(max(r.Width-1, 0)),
		Height: uint16(max(r.Height-1, 0)),
	}
}
