package x11

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

func atomID(xu *xgbutil.XUtil, name string) (xproto.Atom, error) {
	id, err := xprop.Atm(xu, name)
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	return id, nil
}

func atomName(xu *xgbutil.XUtil, id xproto.Atom) string {
	if id == 0 {
		return ""
	}
	name, err := xprop.AtomName(xu, id)
	if err != nil {
		return ""
	}
	return name
}

// alive reports whether w still exists, as ErrWindowGone when it does not.
// Property getters lose the protocol error type, so they check this first.
func (c *Conn) alive(w display.Window) error {
	_, err := xproto.GetWindowAttributes(c.conn, xproto.Window(w)).Reply()
	return mapErr(err)
}

// Properties reads the ICCCM properties of w. Missing properties leave
// their fields zero.
func (c *Conn) Properties(w display.Window) (display.Properties, error) {
	if err := c.alive(w); err != nil {
		return display.Properties{}, err
	}
	win := xproto.Window(w)
	var p display.Properties

	if name, err := ewmh.WmNameGet(c.xu, win); err == nil && name != "" {
		p.Name = name
	} else if name, err := icccm.WmNameGet(c.xu, win); err == nil {
		p.Name = name
	}
	if name, err := icccm.WmIconNameGet(c.xu, win); err == nil {
		p.IconName = name
	}
	if class, err := icccm.WmClassGet(c.xu, win); err == nil && class != nil {
		p.Instance, p.Class = class.Instance, class.Class
	}
	if nh, err := icccm.WmNormalHintsGet(c.xu, win); err == nil && nh != nil {
		p.Hints = display.SizeHints{
			Flags:      uint32(nh.Flags),
			MinWidth:   int(nh.MinWidth),
			MinHeight:  int(nh.MinHeight),
			MaxWidth:   int(nh.MaxWidth),
			MaxHeight:  int(nh.MaxHeight),
			WidthInc:   int(nh.WidthInc),
			HeightInc:  int(nh.HeightInc),
			BaseWidth:  int(nh.BaseWidth),
			BaseHeight: int(nh.BaseHeight),
			Gravity:    int(nh.WinGravity),
		}
	}
	if hints, err := icccm.WmHintsGet(c.xu, win); err == nil && hints != nil && hints.Flags&icccm.HintState != 0 {
		p.InitialState = display.State(hints.InitialState)
	}
	if protos, err := icccm.WmProtocolsGet(c.xu, win); err == nil {
		p.DeleteWindow = slices.Contains(protos, display.ProtocolDeleteWindow)
		p.TakeFocus = slices.Contains(protos, display.ProtocolTakeFocus)
	}
	if tf, err := icccm.WmTransientForGet(c.xu, win); err == nil {
		p.TransientFor = display.Window(tf)
	}
	if cw, err := icccm.WmColormapWindowsGet(c.xu, win); err == nil {
		for _, x := range cw {
			p.ColormapWindows = append(p.ColormapWindows, display.Window(x))
		}
	}
	if _, err := xprop.GetProperty(c.xu, win, event.AtomHold); err == nil {
		p.Hold = true
	}
	return p, nil
}

// State reads WM_STATE. The boolean is false when the property is absent.
func (c *Conn) State(w display.Window) (display.State, bool, error) {
	st, err := icccm.WmStateGet(c.xu, xproto.Window(w))
	if err != nil || st == nil {
		if aerr := c.alive(w); aerr != nil {
			return display.StateWithdrawn, false, aerr
		}
		return display.StateWithdrawn, false, nil
	}
	return display.State(st.State), true, nil
}

// SetState writes WM_STATE.
func (c *Conn) SetState(w display.Window, s display.State) error {
	err := icccm.WmStateSet(c.xu, xproto.Window(w), &icccm.WmState{State: uint(s)})
	if err != nil {
		if aerr := c.alive(w); aerr != nil {
			return aerr
		}
		return fmt.Errorf("set WM_STATE: %w", err)
	}
	return nil
}

// SetFullscreen records the fullscreen state in _NET_WM_STATE.
func (c *Conn) SetFullscreen(w display.Window, on bool) error {
	states := []string{}
	if on {
		states = append(states, event.AtomFullscreen)
	}
	if err := ewmh.WmStateSet(c.xu, xproto.Window(w), states); err != nil {
		if aerr := c.alive(w); aerr != nil {
			return aerr
		}
		return fmt.Errorf("set _NET_WM_STATE: %w", err)
	}
	return nil
}
