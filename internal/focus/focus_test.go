package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/display/displaytest"
)

type fixture struct {
	rec *displaytest.Recorder
	reg *client.Registry
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := displaytest.New()
	reg := client.NewRegistry(rec, nil)
	return &fixture{rec: rec, reg: reg, eng: New(reg, rec, rec, nil)}
}

// add creates a Normal client with a frame, the way manage leaves it.
func (f *fixture) add(t *testing.T, w display.Window) *client.Client {
	t.Helper()
	f.rec.AddWindow(w, display.Rect{Width: 100, Height: 100}, display.Properties{})
	c, _ := f.reg.LookupOrCreate(w)
	frame, err := f.rec.CreateFrame(c.FrameRect(4, 1), 1)
	require.NoError(t, err)
	f.reg.SetFrame(c, frame)
	c.State = display.StateNormal
	return c
}

// chain returns the windows reachable from current through revert links.
func (f *fixture) chain() []display.Window {
	var out []display.Window
	cur, ok := f.eng.Current()
	for ok && len(out) <= f.reg.Len() {
		out = append(out, cur.Window)
		cur, ok = f.reg.Get(cur.Revert)
	}
	return out
}

func TestActivateBuildsChain(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	c := f.add(t, 0x30)

	f.eng.Activate(a, 1)
	f.eng.Activate(b, 2)
	f.eng.Activate(c, 3)

	assert.Equal(t, []display.Window{0x30, 0x20, 0x10}, f.chain())
	assert.Equal(t, display.Window(0x30), f.rec.Focus)
	assert.True(t, f.eng.IsCurrent(c))

	// Re-activating an earlier client moves it out of the middle of the chain.
	f.eng.Activate(a, 4)
	assert.Equal(t, []display.Window{0x10, 0x30, 0x20}, f.chain())
}

func TestActivateIsNoopForCurrent(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	f.eng.Activate(a, 1)
	f.rec.Reset()

	f.eng.Activate(a, 2)
	assert.Empty(t, f.rec.Calls)
}

func TestActivateUpdatesDecorations(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	a.TakeFocus = true

	f.eng.Activate(a, 1)
	assert.Equal(t, 1, f.rec.Count("ungrab-buttons", a.Frame))
	assert.Equal(t, 1, f.rec.Count("protocol", a.Window))

	f.eng.Activate(b, 2)
	assert.Equal(t, 1, f.rec.Count("grab-buttons", a.Frame))
	last, ok := f.rec.Last("frame-color")
	require.True(t, ok)
	assert.Equal(t, b.Frame, last.Window)
	assert.Equal(t, 1, last.Arg)
}

func TestRevertSkipsDestroyedClient(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	c := f.add(t, 0x30)

	f.eng.Activate(a, 1)
	f.eng.Activate(b, 2)
	f.eng.Activate(c, 3)

	f.eng.Forget(b.Handle, 4)
	f.reg.Remove(b.Handle)

	f.eng.DeactivateToFallback(5)
	cur, ok := f.eng.Current()
	require.True(t, ok)
	assert.Same(t, a, cur)
	assert.Equal(t, display.Window(0x10), f.rec.Focus)
}

func TestFallbackSkipsNonNormal(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	c := f.add(t, 0x30)
	f.eng.Activate(a, 1)
	f.eng.Activate(b, 2)
	f.eng.Activate(c, 3)

	b.State = display.StateIconic
	f.eng.DeactivateToFallback(4)
	cur, ok := f.eng.Current()
	require.True(t, ok)
	assert.Same(t, a, cur)
}

func TestFallbackToSink(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	f.eng.Activate(a, 1)

	f.eng.DeactivateToFallback(2)
	_, ok := f.eng.Current()
	assert.False(t, ok)
	require.NotEqual(t, display.None, f.rec.Sink())
	assert.Equal(t, f.rec.Sink(), f.rec.Focus)

	// The sink is created once.
	f.eng.Activate(a, 3)
	f.eng.DeactivateToFallback(4)
	assert.Equal(t, 1, f.rec.Count("create-sink", display.None))
}

func TestFallbackHonoursEligible(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	a.Workspace = 1
	f.eng.Eligible = func(c *client.Client) bool { return c.Workspace == 0 }
	f.eng.Activate(a, 1)
	f.eng.Activate(b, 2)

	f.eng.DeactivateToFallback(3)
	_, ok := f.eng.Current()
	assert.False(t, ok)
}

func TestForgetCurrent(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	f.eng.Activate(a, 1)
	f.eng.Activate(b, 2)

	f.eng.Forget(b.Handle, 3)
	f.reg.Remove(b.Handle)
	cur, ok := f.eng.Current()
	require.True(t, ok)
	assert.Same(t, a, cur)

	f.eng.Forget(a.Handle, 4)
	f.reg.Remove(a.Handle)
	_, ok = f.eng.Current()
	assert.False(t, ok)
	assert.Equal(t, f.rec.Sink(), f.rec.Focus)
}

func TestForgetNonCurrentKeepsFocus(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	b := f.add(t, 0x20)
	f.eng.Activate(a, 1)
	f.eng.Activate(b, 2)

	f.eng.Forget(a.Handle, 3)
	assert.True(t, f.eng.IsCurrent(b))
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, 0x10)
	f.eng.Activate(a, 1)

	f.eng.Clear(2)
	_, ok := f.eng.Current()
	assert.False(t, ok)
	assert.Equal(t, display.None, f.rec.Sink())
}

func TestChainStaysAcyclic(t *testing.T) {
	f := newFixture(t)
	clients := []*client.Client{f.add(t, 0x10), f.add(t, 0x20), f.add(t, 0x30), f.add(t, 0x40)}
	order := []int{0, 1, 2, 3, 1, 0, 2, 2, 3, 0, 1}
	for i, idx := range order {
		f.eng.Activate(clients[idx], uint32(i+1))
		chain := f.chain()
		seen := make(map[display.Window]bool)
		for _, w := range chain {
			require.False(t, seen[w], "cycle through %s", w)
			seen[w] = true
		}
	}
}

func TestInstallColormaps(t *testing.T) {
	f := newFixture(t)
	owner := f.add(t, 0x10)
	owner.Colormap = 0x77
	sub := f.rec.AddWindow(0x11, display.Rect{}, display.Properties{})
	sub.Info.Colormap = 0x88
	owner.ColormapWindows = []display.Window{0x10, 0x11}

	f.rec.Reset()
	f.eng.InstallColormaps(owner)
	var installed []int
	for _, c := range f.rec.Calls {
		if c.Op == "install-colormap" {
			installed = append(installed, c.Arg)
		}
	}
	assert.Equal(t, []int{0x88, 0x77}, installed)

	dialog := f.add(t, 0x20)
	dialog.Transient = 0x10
	f.rec.Reset()
	f.eng.InstallColormaps(dialog)
	assert.Equal(t, 2, f.rec.Count("install-colormap", display.None))
}
