// Package wm is the event dispatcher. Manager owns every piece of window
// manager state and routes each notification to the client registry, the
// focus engine, the workspace multiplexer and the modal machine.
//
// Manager is not safe for concurrent use. The daemon loop is its only caller.
package wm

import (
	"log/slog"
	"strings"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
	"github.com/jmylchreest/shrub9/internal/focus"
	"github.com/jmylchreest/shrub9/internal/modal"
	"github.com/jmylchreest/shrub9/internal/workspace"
)

// Action tells the daemon loop what to do after an event.
type Action int

const (
	Continue Action = iota
	Exit
	Restart
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Exit:
		return "exit"
	case Restart:
		return "restart"
	}
	return "unknown"
}

// Spawner starts external programs. Commands are shell command lines.
type Spawner interface {
	Spawn(command string) error
}

// opKind is the operation a running modal mode was started for.
type opKind int

const (
	opNone opKind = iota
	opMenu
	opSelect
	opSweep
	opDrag
	opArea
	opAutoReshape
	opSpaces
)

// pendingOp is what to do with the outcome of the running modal mode.
type pendingOp struct {
	kind opKind
	// command is the menu command a selection was started for.
	command string
	target  client.Handle
}

// Manager is the window manager core.
type Manager struct {
	cfg     *config.Config
	dpy     display.Display
	rnd     display.Renderer
	spawner Spawner
	logger  *slog.Logger

	reg    *client.Registry
	focus  *focus.Engine
	mux    *workspace.Multiplexer
	modal  *modal.Machine
	hidden *client.HiddenList
	menu   modal.Menu

	op       pendingOp
	deferred []event.Event

	// autoReshape makes the next managed window start with a sweep.
	autoReshape bool
	lastTime    uint32
	// title is the titlebar height frames were built with.
	title int
}

// New creates a manager for the given display. A nil config uses the defaults.
func New(cfg *config.Config, dpy display.Display, rnd display.Renderer, spawner Spawner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	reg := client.NewRegistry(dpy, logger)
	fe := focus.New(reg, dpy, rnd, logger)
	m := &Manager{
		cfg:     cfg,
		dpy:     dpy,
		rnd:     rnd,
		spawner: spawner,
		logger:  logger,
		reg:     reg,
		focus:   fe,
		hidden:  client.NewHiddenList(reg),
		title:   cfg.Appearance.TitleHeight(),
	}
	m.mux = workspace.New(cfg.Workspaces.Count, reg, dpy, fe, logger)
	m.mux.SetStaleAfter(cfg.Behavior.StaleSwitch.Milliseconds())
	m.mux.OnChange = m.rebuildMenu
	fe.Eligible = func(c *client.Client) bool {
		return c.Workspace == m.mux.Current()
	}
	m.modal = modal.New(dpy, rnd, modalOptions(cfg), logger)
	m.rebuildMenu()
	return m
}

func modalOptions(cfg *config.Config) modal.Options {
	return modal.Options{
		Border:       cfg.Appearance.Border,
		SubmenuDelay: cfg.Behavior.SubmenuDelay.Milliseconds(),
		Heartbeat:    cfg.Behavior.SweepHeartbeat.Milliseconds(),
	}
}

// Start grabs the workspace keys and adopts the windows already on screen.
func (m *Manager) Start() error {
	if err := m.grabKeys(); err != nil {
		return err
	}
	return m.Scan()
}

func (m *Manager) grabKeys() error {
	bindings := m.cfg.Bindings()
	chords := make([]string, 0, len(bindings))
	for _, b := range bindings {
		chords = append(chords, b.Chord.String())
	}
	return m.dpy.GrabKeys(chords)
}

// Registry returns the client registry.
func (m *Manager) Registry() *client.Registry {
	return m.reg
}

// Workspaces returns the workspace multiplexer.
func (m *Manager) Workspaces() *workspace.Multiplexer {
	return m.mux
}

// Focus returns the focus engine.
func (m *Manager) Focus() *focus.Engine {
	return m.focus
}

// Modal returns the modal machine.
func (m *Manager) Modal() *modal.Machine {
	return m.modal
}

// Hidden returns the list of iconified clients.
func (m *Manager) Hidden() *client.HiddenList {
	return m.hidden
}

// LastTime is the most recent server timestamp seen.
func (m *Manager) LastTime() uint32 {
	return m.lastTime
}

// Dispatch handles one notification. While a modal mode runs, events it does
// not consume are queued and replayed in order once it ends.
func (m *Manager) Dispatch(ev event.Event) Action {
	if ev.Time != 0 {
		m.lastTime = ev.Time
	}
	if m.modal.Active() {
		// A titlebar may be exposed under the overview or a menu.
		if ev.Kind == event.KindExpose && m.onExpose(ev) {
			return Continue
		}
		if !modal.Wants(ev.Kind) {
			m.deferred = append(m.deferred, ev)
			return Continue
		}
		out, done := m.modal.Feed(ev)
		if !done {
			return Continue
		}
		m.finishModal(out, ev.Time)
		return m.drain()
	}

	// Unmaps deferred behind a modal mode are still to come, so a pending
	// switch is only checked for staleness while idle.
	m.mux.Watchdog(ev.Time)
	if act := m.handle(ev); act != Continue {
		return act
	}
	return m.drain()
}

// drain replays deferred events until the queue is empty or one of them
// starts another modal mode.
func (m *Manager) drain() Action {
	for len(m.deferred) > 0 && !m.modal.Active() {
		ev := m.deferred[0]
		m.deferred = m.deferred[1:]
		if act := m.handle(ev); act != Continue {
			return act
		}
	}
	if len(m.deferred) == 0 {
		m.deferred = nil
	}
	return Continue
}

// Deferred returns the number of events waiting for the modal mode to end.
func (m *Manager) Deferred() int {
	return len(m.deferred)
}

func (m *Manager) handle(ev event.Event) Action {
	switch ev.Kind {
	case event.KindCreate:
		m.onCreate(ev)
	case event.KindMapRequest:
		m.onMapRequest(ev)
	case event.KindUnmap:
		m.onUnmap(ev)
	case event.KindDestroy:
		m.onDestroy(ev)
	case event.KindConfigureRequest:
		m.onConfigureRequest(ev)
	case event.KindCirculateRequest:
		m.logger.Debug("circulate request ignored", "window", ev.Window)
	case event.KindReparent:
		m.onReparent(ev)
	case event.KindProperty:
		m.onProperty(ev)
	case event.KindColormap:
		m.onColormap(ev)
	case event.KindClientMessage:
		return m.onClientMessage(ev)
	case event.KindEnter:
		m.onEnter(ev)
	case event.KindFocusIn:
		m.onFocusIn(ev)
	case event.KindKeyPress:
		m.onKeyPress(ev)
	case event.KindButtonPress:
		m.onButtonPress(ev)
	case event.KindShape:
		m.onShape(ev)
	case event.KindSelection:
		m.logger.Warn("unexpected selection event", "window", ev.Window, "atom", ev.Atom)
	case event.KindError:
		m.logger.Debug("protocol error", "window", ev.Window, "error", ev.Error)
	case event.KindExpose:
		m.onExpose(ev)
	case event.KindButtonRelease, event.KindMotion, event.KindTick:
	default:
		m.logger.Debug("unhandled event", "kind", ev.Kind, "window", ev.Window)
	}
	return Continue
}

// finishModal acts on the outcome of a finished modal mode.
func (m *Manager) finishModal(out modal.Outcome, t uint32) {
	op := m.op
	m.op = pendingOp{}

	switch op.kind {
	case opMenu:
		if cur, ok := m.focus.Current(); ok {
			m.focus.InstallColormaps(cur)
		}
		if out.Kind == modal.Chosen {
			m.menuHit(out.Index, t)
		}
	case opSelect:
		m.selected(op.command, out, t)
	case opSweep:
		if c, ok := m.reg.Get(op.target); ok && out.Kind == modal.Swept {
			m.reshaped(c, out.Rect, true, t)
		}
	case opAutoReshape:
		if c, ok := m.reg.Get(op.target); ok {
			m.finishAutoReshape(c, out, t)
		}
	case opDrag:
		if c, ok := m.reg.Get(op.target); ok && out.Kind == modal.Dragged {
			m.moved(c, out.Rect, t)
		}
	case opArea:
		if out.Kind == modal.AreaSwept {
			m.spawnSized(out.Rect)
		}
	case opSpaces:
		if out.Kind == modal.SpaceChosen {
			m.switchTo(out.Index, t)
		}
	}
}

// rebuildMenu lays out the button 3 menu: the configured items followed by
// the labels of the hidden clients.
func (m *Manager) rebuildMenu() {
	items := make([]modal.Item, 0, len(m.cfg.Menu.Items)+m.hidden.Len())
	for _, it := range m.cfg.Menu.Items {
		item := modal.Item{Label: m.menuLabel(it.Label)}
		for _, sub := range it.Items {
			item.Sub = append(item.Sub, m.menuLabel(sub.Label))
		}
		items = append(items, item)
	}
	for _, label := range m.hidden.Labels() {
		items = append(items, modal.Item{Label: m.menuLabel(label)})
	}
	m.menu.Items = items
	if m.menu.LastHit >= len(items) {
		m.menu.LastHit = 0
	}
}

func (m *Manager) menuLabel(s string) string {
	if m.cfg.Appearance.LowercaseMenu {
		return strings.ToLower(s)
	}
	return s
}

// decoration is the frame geometry around every client.
func (m *Manager) decoration() client.Decoration {
	return client.Decoration{
		Border:     m.cfg.Appearance.Border,
		FrameWidth: m.cfg.Appearance.FrameWidth,
		Title:      m.title,
	}
}

// gravitate moves c between its requested position and its position inside
// the frame. A titlebar pushes the client down by its height.
func (m *Manager) gravitate(c *client.Client, invert bool) {
	d := m.decoration()
	c.Gravitate(d.Border, invert)
	if invert {
		c.Y -= d.Title
	} else {
		c.Y += d.Title
	}
}

// drawTitle paints the titlebar of c when titlebars are on.
func (m *Manager) drawTitle(c *client.Client) {
	if m.title == 0 || c.Frame == display.None {
		return
	}
	m.warn(m.rnd.DrawTitle(c.Frame, m.decoration().TitleRect(c.Width), c.Title()), "draw titlebar", c)
}

// top raises c to the front of the stacking order and of its workspace list.
func (m *Manager) top(c *client.Client) {
	m.reg.Top(c.Handle)
	m.mux.Raise(c)
}

// activate gives c focus and remembers it for its workspace.
func (m *Manager) activate(c *client.Client, t uint32) {
	m.focus.Activate(c, t)
	m.mux.Remember(c)
}

// raiseAndActivate is the common response to a click or an activation request.
func (m *Manager) raiseAndActivate(c *client.Client, t uint32) {
	m.warn(m.dpy.MapRaised(c.Frame), "map frame", c)
	c.Mapped = true
	m.top(c)
	m.activate(c, t)
}

func (m *Manager) setState(c *client.Client, s display.State) {
	if err := display.IgnoreGone(m.reg.SetState(c, s)); err != nil {
		m.logger.Warn("set state failed", "window", c.Window, "error", err)
	}
}

// warn logs a failed request unless the window has simply gone away.
func (m *Manager) warn(err error, what string, c *client.Client) {
	if err = display.IgnoreGone(err); err != nil {
		m.logger.Warn(what+" failed", "window", c.Window, "error", err)
	}
}
