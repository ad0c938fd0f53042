package x11

import (
	"errors"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

func newTestConn() *Conn {
	return &Conn{root: 1, frames: map[xproto.Window]bool{0x800000: true}}
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))

	err := mapErr(xproto.WindowError{BadValue: 0x100})
	assert.ErrorIs(t, err, display.ErrWindowGone)
	assert.Contains(t, err.Error(), "0x100")

	assert.ErrorIs(t, mapErr(xproto.DrawableError{BadValue: 0x200}), display.ErrWindowGone)

	other := xproto.MatchError{}
	assert.False(t, errors.Is(mapErr(other), display.ErrWindowGone))
}

func TestConfigureValues(t *testing.T) {
	vals := configureValues(display.Rect{X: -5, Y: 10, Width: 0, Height: 20}, 2)
	require.Len(t, vals, 5)
	assert.Equal(t, uint32(0xfffffffb), vals[0], "negative positions are sign-extended")
	assert.Equal(t, uint32(10), vals[1])
	assert.Equal(t, uint32(1), vals[2], "sizes are at least one pixel")
	assert.Equal(t, uint32(20), vals[3])
	assert.Equal(t, uint32(2), vals[4])
}

func TestNewPalette(t *testing.T) {
	p, err := newPalette(config.DefaultConfig().Appearance)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x000000), p.active)
	assert.Equal(t, uint32(0xffffff), p.inactive)
	assert.Equal(t, uint32(0x3465a4), p.menuHighlight)

	bad := config.DefaultConfig().Appearance
	bad.MenuBackground = "chartreuse-ish"
	_, err = newPalette(bad)
	assert.Error(t, err)
}

func TestPaletteXorPixel(t *testing.T) {
	p := paletteOf(display.Colors{Active: 0x000000, Inactive: 0xffffff})
	assert.Equal(t, uint32(0xffffff), p.xorPixel())

	p = paletteOf(display.Colors{Active: 0x55aaaa, Inactive: 0x55aaaa})
	assert.Equal(t, uint32(0xffffff), p.xorPixel(), "identical colours still draw a visible outline")

	p = paletteOf(display.Colors{Active: 0xff0000, Inactive: 0x00ff00, MenuHighlight: 0x123456})
	assert.Equal(t, uint32(0xffff00), p.xorPixel())
	assert.Equal(t, uint32(0x123456), p.menuHighlight)
}

func TestFontCandidates(t *testing.T) {
	got := fontCandidates("terminus", []string{"terminus-12", "fixed"})
	require.GreaterOrEqual(t, len(got), 6)
	assert.Equal(t, []string{
		"terminus",
		"-*-terminus-*-*-*-*-*-*-*-*-*-*-*-*",
		"-*-terminus-bold-*-*-*-14-*-*-*-*-*-*-*",
		"-*-terminus-medium-*-*-*-14-*-*-*-*-*-*-*",
		"terminus-12",
	}, got[:5])
	assert.Contains(t, got, "fixed")
	assert.Equal(t, "*", got[len(got)-1])
	assert.Len(t, got, 5+len(fallbackFonts), "duplicates are dropped")

	xlfd := "-misc-fixed-medium-r-normal--13-*-*-*-*-*-*-*"
	got = fontCandidates(xlfd, nil)
	assert.Equal(t, xlfd, got[0])
	assert.Equal(t, fallbackFonts, got[1:])

	assert.Equal(t, fallbackFonts, fontCandidates("  ", nil))
}

func TestTranslateUnmap(t *testing.T) {
	c := newTestConn()

	tests := []struct {
		name      string
		ev        xproto.UnmapNotifyEvent
		synthetic bool
	}{
		{"client inside its frame", xproto.UnmapNotifyEvent{Event: 0x800000, Window: 0x100}, false},
		{"frame on the root", xproto.UnmapNotifyEvent{Event: 1, Window: 0x800000}, false},
		{"withdrawal sent to the root", xproto.UnmapNotifyEvent{Event: 1, Window: 0x100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := c.translate(tt.ev)
			require.True(t, ok)
			assert.Equal(t, event.KindUnmap, ev.Kind)
			assert.Equal(t, display.Window(tt.ev.Window), ev.Window)
			assert.Equal(t, tt.synthetic, ev.Synthetic)
		})
	}
}

func TestTranslatePointerEvents(t *testing.T) {
	c := newTestConn()

	ev, ok := c.translate(xproto.ButtonPressEvent{
		Detail: 3, Time: 500, Event: 1, Child: 0x800000, RootX: 40, RootY: 50, State: 0x40,
	})
	require.True(t, ok)
	assert.Equal(t, event.Event{
		Kind: event.KindButtonPress, Window: 1, Child: 0x800000, Time: 500, X: 40, Y: 50, State: 0x40, Button: 3,
	}, ev)

	ev, ok = c.translate(xproto.ButtonReleaseEvent{Detail: 3, Time: 600, Event: 1, State: 0x400})
	require.True(t, ok)
	assert.Equal(t, event.KindButtonRelease, ev.Kind)
	assert.False(t, ev.ButtonsHeld())

	ev, ok = c.translate(xproto.MotionNotifyEvent{Time: 700, Event: 1, RootX: 3, RootY: 4, State: 0x400})
	require.True(t, ok)
	assert.Equal(t, event.KindMotion, ev.Kind)
	assert.Equal(t, 0, ev.Button)
	assert.Equal(t, 3, ev.X)
}

func TestTranslateStructureEvents(t *testing.T) {
	c := newTestConn()

	ev, ok := c.translate(xproto.CreateNotifyEvent{Parent: 1, Window: 0x100, X: 5, Y: 6, Width: 70, Height: 80, BorderWidth: 1})
	require.True(t, ok)
	assert.Equal(t, event.KindCreate, ev.Kind)
	assert.Equal(t, display.Rect{X: 5, Y: 6, Width: 70, Height: 80}, ev.Rect())
	assert.Equal(t, 1, ev.BorderWidth)

	ev, ok = c.translate(xproto.ConfigureRequestEvent{
		Window: 0x100, Parent: 1, Width: 300, ValueMask: xproto.ConfigWindowWidth | xproto.ConfigWindowStackMode,
		StackMode: xproto.StackModeAbove,
	})
	require.True(t, ok)
	assert.Equal(t, event.KindConfigureRequest, ev.Kind)
	assert.Equal(t, event.ConfigWidth|event.ConfigStackMode, ev.ValueMask)
	assert.Equal(t, event.StackAbove, ev.StackMode)

	ev, ok = c.translate(xproto.ColormapNotifyEvent{Window: 0x100, Colormap: 0x20, New: true})
	require.True(t, ok)
	assert.Equal(t, [5]uint32{0x20, 1}, ev.Data)

	ev, ok = c.translate(xproto.EnterNotifyEvent{Event: 0x100, Mode: xproto.NotifyModeGrab, Detail: xproto.NotifyDetailNonlinearVirtual})
	require.True(t, ok)
	assert.Equal(t, event.NotifyGrab, ev.Mode)
	assert.Equal(t, event.NotifyNonlinearVirtual, ev.Detail)

	_, ok = c.translate(xproto.MapNotifyEvent{Window: 0x100})
	assert.False(t, ok, "map notifications are not dispatched")
}

func TestEventMasksSelectColormapChanges(t *testing.T) {
	assert.Equal(t, 1<<23, xproto.EventMaskColorMapChange)
	assert.NotZero(t, rootEventMask&xproto.EventMaskColorMapChange)
	assert.NotZero(t, clientEventMask&xproto.EventMaskColorMapChange)
	assert.Zero(t, frameEventMask&xproto.EventMaskColorMapChange)
}

func TestTitlebarEventsReportFrame(t *testing.T) {
	c := newTestConn()
	c.owners = map[xproto.Window]xproto.Window{0x900001: 0x800000}

	ev, ok := c.translate(xproto.ExposeEvent{Window: 0x900001, Width: 200, Height: 18})
	require.True(t, ok)
	assert.Equal(t, display.Window(0x800000), ev.Window)

	ev, ok = c.translate(xproto.ButtonPressEvent{Detail: 1, Event: 0x900001, RootX: 10, RootY: 5})
	require.True(t, ok)
	assert.Equal(t, display.Window(0x800000), ev.Window)

	ev, _ = c.translate(xproto.ExposeEvent{Window: 0x800000})
	assert.Equal(t, display.Window(0x800000), ev.Window)
}
