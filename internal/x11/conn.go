package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xcursor"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

var (
	// ErrOtherWM is returned by Open when another window manager already
	// redirects the root window.
	ErrOtherWM = errors.New("another window manager is running")

	// ErrClosed is returned by Next once the connection is gone.
	ErrClosed = errors.New("connection closed")
)

// wmName is advertised on the _NET_SUPPORTING_WM_CHECK window.
const wmName = "shrub9"

// Cursor font glyphs.
const (
	glyphCrosshair = 34
	glyphDotbox    = 40
	glyphLeftPtr   = 68
	glyphTarget    = 128
)

const (
	rootEventMask = xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskColorMapChange |
		xproto.EventMaskButtonPress |
		xproto.EventMaskPropertyChange

	frameEventMask = xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskExposure |
		xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease |
		xproto.EventMaskEnterWindow

	clientEventMask = xproto.EventMaskColorMapChange |
		xproto.EventMaskEnterWindow |
		xproto.EventMaskPropertyChange |
		xproto.EventMaskFocusChange

	menuEventMask = xproto.EventMaskExposure |
		xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease

	titleEventMask = xproto.EventMaskExposure |
		xproto.EventMaskButtonPress

	grabEventMask = xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion
)

// supported is the EWMH subset the window manager handles.
var supported = []string{
	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_WM_NAME",
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_STATE",
	event.AtomFullscreen,
	event.AtomMoveResize,
}

// palette holds the TrueColor pixels of the configured colours.
type palette struct {
	active        uint32
	inactive      uint32
	menuBG        uint32
	menuFG        uint32
	menuHighlight uint32
	titleBG       uint32
	titleFG       uint32
}

func newPalette(a config.AppearanceConfig) (palette, error) {
	c, err := config.AppearanceColors(a)
	if err != nil {
		return palette{}, err
	}
	return paletteOf(c), nil
}

func paletteOf(c display.Colors) palette {
	return palette{
		active:        c.Active,
		inactive:      c.Inactive,
		menuBG:        c.MenuBackground,
		menuFG:        c.MenuForeground,
		menuHighlight: c.MenuHighlight,
		titleBG:       c.TitleBackground,
		titleFG:       c.TitleForeground,
	}
}

// xorPixel is the rubber-band colour. It flips active frames to inactive
// and back, or inverts everything when both are the same.
func (p palette) xorPixel() uint32 {
	if x := p.active ^ p.inactive; x != 0 {
		return x
	}
	return 0xffffff
}

// Conn is a window manager connection to one X screen.
type Conn struct {
	xu     *xgbutil.XUtil
	conn   *xgb.Conn
	root   xproto.Window
	screen display.Rect
	logger *slog.Logger

	colors  palette
	font    xproto.Font
	ascent  int
	charH   int
	widths  map[byte]int
	defW    int
	gcMenu  xproto.Gcontext
	gcHigh  xproto.Gcontext
	gcFill  xproto.Gcontext
	gcXor   xproto.Gcontext
	gcTitle xproto.Gcontext
	cursors map[display.Cursor]xproto.Cursor
	menus   [2]xproto.Window
	spaces  xproto.Window
	sink    xproto.Window
	shaped  bool

	mu     sync.Mutex
	frames map[xproto.Window]bool
	chords []string
	// titles maps frames to their titlebars, owners titlebars to frames.
	titles map[xproto.Window]xproto.Window
	owners map[xproto.Window]xproto.Window
}

// Open connects to the named display (empty for $DISPLAY), takes over
// window management on its default screen and prepares the fonts, graphics
// contexts and menu windows used for drawing.
func Open(name string, appearance config.AppearanceConfig, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	colors, err := newPalette(appearance)
	if err != nil {
		return nil, err
	}

	xu, err := xgbutil.NewConnDisplay(name)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	c := &Conn{
		xu:      xu,
		conn:    xu.Conn(),
		root:    xu.RootWin(),
		logger:  logger,
		colors:  colors,
		cursors: make(map[display.Cursor]xproto.Cursor),
		frames:  make(map[xproto.Window]bool),
		titles:  make(map[xproto.Window]xproto.Window),
		owners:  make(map[xproto.Window]xproto.Window),
	}
	scr := xu.Screen()
	c.screen = display.Rect{Width: int(scr.WidthInPixels), Height: int(scr.HeightInPixels)}

	if err := xproto.ChangeWindowAttributesChecked(c.conn, c.root, xproto.CwEventMask,
		[]uint32{rootEventMask}).Check(); err != nil {
		xu.Conn().Close()
		var access xproto.AccessError
		if errors.As(err, &access) {
			return nil, ErrOtherWM
		}
		return nil, fmt.Errorf("failed to select root events: %w", err)
	}

	keybind.Initialize(xu)
	if err := shape.Init(c.conn); err != nil {
		logger.Warn("SHAPE extension unavailable", "error", err)
	} else {
		c.shaped = true
	}

	if err := c.setup(appearance.Font); err != nil {
		c.Close()
		return nil, err
	}
	logger.Info("connected to X server",
		"display", name,
		"root", display.Window(c.root),
		"width", c.screen.Width,
		"height", c.screen.Height,
		"shape", c.shaped,
	)
	return c, nil
}

func (c *Conn) setup(fontName string) error {
	if err := c.openFont(fontName); err != nil {
		return err
	}

	var err error
	if c.gcMenu, err = c.createGC(xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
		c.colors.menuFG, c.colors.menuBG, uint32(c.font)); err != nil {
		return err
	}
	if c.gcHigh, err = c.createGC(xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
		c.colors.menuBG, c.colors.menuHighlight, uint32(c.font)); err != nil {
		return err
	}
	if c.gcFill, err = c.createGC(xproto.GcForeground, c.colors.menuHighlight); err != nil {
		return err
	}
	if c.gcXor, err = c.createGC(
		xproto.GcFunction|xproto.GcForeground|xproto.GcLineWidth|xproto.GcSubwindowMode,
		xproto.GxXor, c.colors.xorPixel(), 1, xproto.SubwindowModeIncludeInferiors); err != nil {
		return err
	}
	if c.gcTitle, err = c.createGC(xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
		c.colors.titleFG, c.colors.titleBG, uint32(c.font)); err != nil {
		return err
	}

	for cur, glyph := range map[display.Cursor]uint16{
		display.CursorArrow:  glyphLeftPtr,
		display.CursorTarget: glyphTarget,
		display.CursorSweep:  glyphCrosshair,
		display.CursorBox:    glyphDotbox,
	} {
		id, err := xcursor.CreateCursor(c.xu, glyph)
		if err != nil {
			return fmt.Errorf("failed to create cursor: %w", err)
		}
		c.cursors[cur] = id
	}
	if err := xproto.ChangeWindowAttributesChecked(c.conn, c.root, xproto.CwCursor,
		[]uint32{uint32(c.cursors[display.CursorArrow])}).Check(); err != nil {
		c.logger.Debug("set root cursor failed", "error", err)
	}

	for i := range c.menus {
		wid, err := c.createWindow(display.Rect{Width: 1, Height: 1}, 1, xproto.WindowClassInputOutput,
			xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwOverrideRedirect|xproto.CwSaveUnder|xproto.CwEventMask,
			c.colors.menuBG, c.colors.menuFG, 1, 1, menuEventMask)
		if err != nil {
			return fmt.Errorf("failed to create menu window: %w", err)
		}
		c.menus[i] = wid
	}
	wid, err := c.createWindow(c.screen, 0, xproto.WindowClassInputOutput,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		c.colors.menuBG, 1, menuEventMask)
	if err != nil {
		return fmt.Errorf("failed to create overview window: %w", err)
	}
	c.spaces = wid
	return nil
}

// fallbackFonts are tried in order when the configured font cannot be opened.
var fallbackFonts = []string{
	"-*-dejavu sans-bold-r-*-*-14-*-*-*-p-*-*-*",
	"-*-helvetica-bold-r-*-*-14-*-*-*-p-*-*-*",
	"lucm.latin1.9",
	"9x15bold",
	"lucidasanstypewriter-12",
	"fixed",
	"*",
}

// fontCandidates lists the names tried for the configured font: the name,
// XLFD patterns for a bare family name, fonts the server matched, then the
// fallbacks.
func fontCandidates(name string, matched []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	name = strings.TrimSpace(name)
	add(name)
	if name != "" && !strings.Contains(name, "-") {
		add("-*-" + name + "-*-*-*-*-*-*-*-*-*-*-*-*")
		add("-*-" + name + "-bold-*-*-*-14-*-*-*-*-*-*-*")
		add("-*-" + name + "-medium-*-*-*-14-*-*-*-*-*-*-*")
	}
	for _, f := range matched {
		add(f)
	}
	for _, f := range fallbackFonts {
		add(f)
	}
	return out
}

// matchingFonts asks the server for up to three fonts whose names contain
// a bare family name.
func (c *Conn) matchingFonts(name string) []string {
	if name == "" || strings.Contains(name, "-") {
		return nil
	}
	pattern := "*" + name + "*"
	reply, err := xproto.ListFonts(c.conn, 3, uint16(len(pattern)), pattern).Reply()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(reply.Names))
	for _, n := range reply.Names {
		names = append(names, n.Name)
	}
	return names
}

func (c *Conn) openFont(name string) error {
	fid, err := xproto.NewFontId(c.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate font id: %w", err)
	}
	candidates := fontCandidates(name, c.matchingFonts(strings.TrimSpace(name)))
	var opened string
	var firstErr error
	for _, cand := range candidates {
		err := xproto.OpenFontChecked(c.conn, fid, uint16(len(cand)), cand).Check()
		if err == nil {
			opened = cand
			break
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if opened == "" {
		return fmt.Errorf("failed to open font %q or any fallback: %w", name, firstErr)
	}
	if opened != name {
		c.logger.Warn("configured font unavailable, using fallback", "font", name, "fallback", opened)
	}
	name = opened
	reply, err := xproto.QueryFont(c.conn, xproto.Fontable(fid)).Reply()
	if err != nil {
		return fmt.Errorf("failed to query font %q: %w", name, err)
	}
	c.font = fid
	c.ascent = int(reply.FontAscent)
	c.charH = int(reply.FontAscent) + int(reply.FontDescent) + 1
	c.defW = int(reply.MaxBounds.CharacterWidth)
	c.widths = make(map[byte]int, len(reply.CharInfos))
	for i, info := range reply.CharInfos {
		ch := int(reply.MinCharOrByte2) + i
		if ch > 0xff {
			break
		}
		c.widths[byte(ch)] = int(info.CharacterWidth)
	}
	return nil
}

func (c *Conn) createGC(mask uint32, values ...uint32) (xproto.Gcontext, error) {
	gc, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(c.conn, gc, xproto.Drawable(c.root), mask, values).Check(); err != nil {
		return 0, fmt.Errorf("failed to create graphics context: %w", err)
	}
	return gc, nil
}

func (c *Conn) createWindow(r display.Rect, border int, class uint16, mask uint32, values ...uint32) (xproto.Window, error) {
	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, err
	}
	// Depth 0 copies the root depth.
	err = xproto.CreateWindowChecked(c.conn, 0, wid, c.root,
		int16(r.X), int16(r.Y), uint16(max(r.Width, 1)), uint16(max(r.Height, 1)), uint16(border),
		class, xproto.Visualid(0), mask, values).Check()
	if err != nil {
		return 0, mapErr(err)
	}
	return wid, nil
}

// Close releases the connection. The server reverts focus and the save set
// puts client windows back on the root.
func (c *Conn) Close() {
	c.conn.Close()
}

// SendMessage sends a format 32 client message with no payload to the root
// window of the named display, the way shrub9ctl asks a running window
// manager to exit or restart.
func SendMessage(name, atom string) error {
	xu, err := xgbutil.NewConnDisplay(name)
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer xu.Conn().Close()

	typ, err := atomID(xu, atom)
	if err != nil {
		return err
	}
	msg := xproto.ClientMessageEvent{
		Format: 32,
		Window: xu.RootWin(),
		Type:   typ,
		Data:   xproto.ClientMessageDataUnionData32New(make([]uint32, 5)),
	}
	err = xproto.SendEventChecked(xu.Conn(), false, xu.RootWin(),
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(msg.Bytes())).Check()
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", atom, err)
	}
	return nil
}

// advertise publishes the supporting window and the EWMH subset.
func (c *Conn) advertise(sink xproto.Window) {
	if err := ewmh.SupportingWmCheckSet(c.xu, c.root, sink); err != nil {
		c.logger.Debug("set supporting wm check failed", "error", err)
	}
	if err := ewmh.SupportingWmCheckSet(c.xu, sink, sink); err != nil {
		c.logger.Debug("set supporting wm check failed", "error", err)
	}
	if err := ewmh.WmNameSet(c.xu, sink, wmName); err != nil {
		c.logger.Debug("set wm name failed", "error", err)
	}
	if err := ewmh.SupportedSet(c.xu, supported); err != nil {
		c.logger.Debug("set supported hints failed", "error", err)
	}
}

// mapErr converts errors about vanished windows into display.ErrWindowGone.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case xproto.WindowError:
		return fmt.Errorf("%w: 0x%x", display.ErrWindowGone, e.BadValue)
	case xproto.DrawableError:
		return fmt.Errorf("%w: 0x%x", display.ErrWindowGone, e.BadValue)
	}
	return err
}
