package display

// ICCCM protocol names used with SendProtocol.
const (
	ProtocolDeleteWindow = "WM_DELETE_WINDOW"
	ProtocolTakeFocus    = "WM_TAKE_FOCUS"
)

// Display is the request side of the window system protocol.
// Every call that names a window may fail with ErrWindowGone.
type Display interface {
	Root() Window
	Screen() Rect

	// Discovery and properties.
	WindowInfo(w Window) (WindowInfo, error)
	Children() ([]Window, error)
	Properties(w Window) (Properties, error)
	State(w Window) (State, bool, error)
	SetState(w Window, s State) error
	SetFullscreen(w Window, on bool) error

	// Window tree.
	SelectClientInput(w Window) error
	CreateFrame(r Rect, borderWidth int) (Window, error)
	DestroyWindow(w Window) error
	Reparent(w, parent Window, x, y int) error
	SetSaveSet(w Window, add bool) error
	Map(w Window) error
	MapRaised(w Window) error
	Unmap(w Window) error
	Raise(w Window) error
	Configure(w Window, r Rect, borderWidth int) error
	SendConfigureNotify(w Window, r Rect, borderWidth int) error
	CopyShape(frame, w Window, x, y int) error

	// Focus and client protocols.
	SetInputFocus(w Window, t uint32) error
	FocusPointerRoot(t uint32) error
	CreateSink() (Window, error)
	SendProtocol(w Window, protocol string, t uint32) error
	KillClient(w Window) error
	InstallColormap(cmap uint32) error

	// Input.
	GrabButtons(w Window) error
	UngrabButtons(w Window) error
	GrabKeys(chords []string) error
	GrabPointer(cursor Cursor, t uint32) error
	UngrabPointer(t uint32) error
	GrabKeyboard(t uint32) error
	UngrabKeyboard(t uint32) error
	QueryPointer() (Pointer, error)
	WarpPointer(x, y int) error
}

// Renderer draws the window manager's own decorations.
type Renderer interface {
	SetFrameColor(frame Window, active bool) error

	// MenuMetrics returns the width of the widest item plus padding and the
	// height of one item.
	MenuMetrics(items []string) (width, height int)
	ShowMenu(layer MenuLayer, r Rect, items []string, highlight int) error
	DrawMenu(layer MenuLayer, items []string, highlight int) error
	HideMenu(layer MenuLayer) error

	// XorOutline draws the rubber-band rectangle. Drawing it twice erases it.
	XorOutline(r Rect) error

	// DrawTitle creates the titlebar of frame on first use, places it at r
	// inside the frame and draws title centred in it.
	DrawTitle(frame Window, r Rect, title string) error
	RemoveTitle(frame Window) error

	// ShowOverview raises the full screen workspace overview and draws cells.
	ShowOverview(cells []OverviewCell) error
	DrawOverview(cells []OverviewCell) error
	HideOverview() error
}

// Colors are the 0xRRGGBB pixels a Renderer paints with.
type Colors struct {
	Active          uint32
	Inactive        uint32
	MenuBackground  uint32
	MenuForeground  uint32
	MenuHighlight   uint32
	TitleBackground uint32
	TitleForeground uint32
}

// Recolorer is implemented by renderers that can change colours while
// running. Frames are not repainted; the caller redraws them.
type Recolorer interface {
	SetColors(c Colors) error
}
