package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

// Next blocks until the server sends an event the dispatcher handles and
// returns it flattened. It returns ErrClosed once the connection is gone.
// Next may run on its own goroutine; the connection serialises requests.
func (c *Conn) Next() (event.Event, error) {
	for {
		xev, xerr := c.conn.WaitForEvent()
		if xev == nil && xerr == nil {
			return event.Event{}, ErrClosed
		}
		if xerr != nil {
			return event.Event{
				Kind:   event.KindError,
				Window: display.Window(xerr.BadId()),
				Error:  xerr.Error(),
			}, nil
		}
		if _, ok := xev.(xproto.MappingNotifyEvent); ok {
			c.refreshKeymap()
			continue
		}
		if ev, ok := c.translate(xev); ok {
			return ev, nil
		}
	}
}

// refreshKeymap reloads the keyboard mapping and grabs the bound chords
// again with the new keycodes.
func (c *Conn) refreshKeymap() {
	keybind.Initialize(c.xu)
	c.mu.Lock()
	chords := append([]string(nil), c.chords...)
	c.mu.Unlock()
	if len(chords) == 0 {
		return
	}
	if err := c.GrabKeys(chords); err != nil {
		c.logger.Warn("regrab keys after mapping change failed", "error", err)
	}
}

func (c *Conn) isFrame(w xproto.Window) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[w]
}

// ownerOf reports a titlebar as the frame it belongs to.
func (c *Conn) ownerOf(w xproto.Window) xproto.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	if frame, ok := c.owners[w]; ok {
		return frame
	}
	return w
}

// translate flattens one server event. Events the dispatcher has no use for
// report false.
func (c *Conn) translate(xev xgb.Event) (event.Event, bool) {
	switch e := xev.(type) {
	case xproto.CreateNotifyEvent:
		return event.Event{
			Kind:             event.KindCreate,
			Window:           display.Window(e.Window),
			Parent:           display.Window(e.Parent),
			X:                int(e.X),
			Y:                int(e.Y),
			Width:            int(e.Width),
			Height:           int(e.Height),
			BorderWidth:      int(e.BorderWidth),
			OverrideRedirect: e.OverrideRedirect,
		}, true
	case xproto.MapRequestEvent:
		return event.Event{
			Kind:   event.KindMapRequest,
			Window: display.Window(e.Window),
			Parent: display.Window(e.Parent),
		}, true
	case xproto.UnmapNotifyEvent:
		// The send-event bit is not kept by the decoder. A client window
		// never reports its own unmap on the root, except through the
		// synthetic notification of a withdrawal.
		return event.Event{
			Kind:      event.KindUnmap,
			Window:    display.Window(e.Window),
			Parent:    display.Window(e.Event),
			Synthetic: e.Event == c.root && !c.isFrame(e.Window),
		}, true
	case xproto.DestroyNotifyEvent:
		return event.Event{
			Kind:   event.KindDestroy,
			Window: display.Window(e.Window),
			Parent: display.Window(e.Event),
		}, true
	case xproto.ConfigureRequestEvent:
		return event.Event{
			Kind:        event.KindConfigureRequest,
			Window:      display.Window(e.Window),
			Parent:      display.Window(e.Parent),
			X:           int(e.X),
			Y:           int(e.Y),
			Width:       int(e.Width),
			Height:      int(e.Height),
			BorderWidth: int(e.BorderWidth),
			ValueMask:   e.ValueMask,
			StackMode:   int(e.StackMode),
		}, true
	case xproto.CirculateRequestEvent:
		return event.Event{
			Kind:   event.KindCirculateRequest,
			Window: display.Window(e.Window),
			Parent: display.Window(e.Event),
		}, true
	case xproto.ReparentNotifyEvent:
		return event.Event{
			Kind:             event.KindReparent,
			Window:           display.Window(e.Window),
			Parent:           display.Window(e.Parent),
			X:                int(e.X),
			Y:                int(e.Y),
			OverrideRedirect: e.OverrideRedirect,
		}, true
	case xproto.PropertyNotifyEvent:
		return event.Event{
			Kind:    event.KindProperty,
			Window:  display.Window(e.Window),
			Time:    uint32(e.Time),
			Atom:    atomName(c.xu, e.Atom),
			Deleted: e.State == xproto.PropertyDelete,
		}, true
	case xproto.ColormapNotifyEvent:
		ev := event.Event{Kind: event.KindColormap, Window: display.Window(e.Window)}
		ev.Data[0] = uint32(e.Colormap)
		if e.New {
			ev.Data[1] = 1
		}
		return ev, true
	case xproto.ClientMessageEvent:
		return c.clientMessage(e), true
	case xproto.EnterNotifyEvent:
		return event.Event{
			Kind:   event.KindEnter,
			Window: display.Window(e.Event),
			Child:  display.Window(e.Child),
			Time:   uint32(e.Time),
			X:      int(e.RootX),
			Y:      int(e.RootY),
			State:  e.State,
			Mode:   int(e.Mode),
			Detail: int(e.Detail),
		}, true
	case xproto.FocusInEvent:
		return event.Event{
			Kind:   event.KindFocusIn,
			Window: display.Window(e.Event),
			Mode:   int(e.Mode),
			Detail: int(e.Detail),
		}, true
	case xproto.KeyPressEvent:
		return event.Event{
			Kind:   event.KindKeyPress,
			Window: display.Window(e.Event),
			Child:  display.Window(e.Child),
			Time:   uint32(e.Time),
			X:      int(e.RootX),
			Y:      int(e.RootY),
			State:  e.State,
			Key:    keybind.LookupString(c.xu, 0, e.Detail),
		}, true
	case xproto.ButtonPressEvent:
		return pointerEvent(event.KindButtonPress, c.ownerOf(e.Event), e.Child, e.Time, e.RootX, e.RootY, e.State, int(e.Detail)), true
	case xproto.ButtonReleaseEvent:
		return pointerEvent(event.KindButtonRelease, e.Event, e.Child, e.Time, e.RootX, e.RootY, e.State, int(e.Detail)), true
	case xproto.MotionNotifyEvent:
		return pointerEvent(event.KindMotion, e.Event, e.Child, e.Time, e.RootX, e.RootY, e.State, 0), true
	case xproto.ExposeEvent:
		return event.Event{
			Kind:   event.KindExpose,
			Window: display.Window(c.ownerOf(e.Window)),
			X:      int(e.X),
			Y:      int(e.Y),
			Width:  int(e.Width),
			Height: int(e.Height),
			Count:  int(e.Count),
		}, true
	case shape.NotifyEvent:
		return event.Event{
			Kind:   event.KindShape,
			Window: display.Window(e.AffectedWindow),
			Time:   uint32(e.ServerTime),
			Shaped: e.Shaped,
		}, true
	case xproto.SelectionClearEvent:
		return event.Event{
			Kind:   event.KindSelection,
			Window: display.Window(e.Owner),
			Time:   uint32(e.Time),
			Atom:   atomName(c.xu, e.Selection),
		}, true
	}
	return event.Event{}, false
}

func pointerEvent(kind event.Kind, win, child xproto.Window, t xproto.Timestamp, x, y int16, state uint16, button int) event.Event {
	return event.Event{
		Kind:   kind,
		Window: display.Window(win),
		Child:  display.Window(child),
		Time:   uint32(t),
		X:      int(x),
		Y:      int(y),
		State:  state,
		Button: button,
	}
}

// clientMessage flattens a client message. For _NET_WM_STATE the changed
// properties are resolved and a fullscreen change is reported in Key.
func (c *Conn) clientMessage(e xproto.ClientMessageEvent) event.Event {
	ev := event.Event{
		Kind:   event.KindClientMessage,
		Window: display.Window(e.Window),
		Atom:   atomName(c.xu, e.Type),
	}
	if e.Format == 32 {
		copy(ev.Data[:], e.Data.Data32)
	}
	if ev.Atom == event.AtomWMState {
		for _, a := range ev.Data[1:3] {
			if name := atomName(c.xu, xproto.Atom(a)); name == event.AtomFullscreen {
				ev.Key = name
				break
			}
		}
	}
	return ev
}
