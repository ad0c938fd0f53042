package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/client"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/display/displaytest"
)

type fakeFocus struct {
	activated []display.Window
	cleared   int
}

func (f *fakeFocus) Activate(c *client.Client, t uint32) {
	f.activated = append(f.activated, c.Window)
}

func (f *fakeFocus) Clear(t uint32) {
	f.cleared++
}

type fixture struct {
	rec   *displaytest.Recorder
	reg   *client.Registry
	focus *fakeFocus
	mux   *Multiplexer
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	rec := displaytest.New()
	reg := client.NewRegistry(rec, nil)
	ff := &fakeFocus{}
	return &fixture{rec: rec, reg: reg, focus: ff, mux: New(n, reg, rec, ff, nil)}
}

// mapped creates a Normal client whose frame and window are mapped.
func (f *fixture) mapped(t *testing.T, w display.Window) *client.Client {
	t.Helper()
	f.rec.AddWindow(w, display.Rect{Width: 100, Height: 100}, display.Properties{})
	c, _ := f.reg.LookupOrCreate(w)
	frame, err := f.rec.CreateFrame(c.FrameRect(4, 1), 1)
	require.NoError(t, err)
	f.reg.SetFrame(c, frame)
	require.NoError(t, f.rec.Map(w))
	require.NoError(t, f.rec.Map(frame))
	c.State = display.StateNormal
	c.Mapped = true
	return c
}

// membership checks that every client is listed exactly once, in the
// workspace its field names.
func (f *fixture) membership(t *testing.T, clients ...*client.Client) {
	t.Helper()
	seen := make(map[display.Window]int)
	for ws := 0; ws < f.mux.Count(); ws++ {
		for _, c := range f.mux.Members(ws) {
			seen[c.Window]++
			assert.Equal(t, ws, c.Workspace, "client %s listed in %d", c.Window, ws)
		}
	}
	for _, c := range clients {
		if c.Workspace == -1 {
			assert.Zero(t, seen[c.Window], "unassigned client %s is listed", c.Window)
		} else {
			assert.Equal(t, 1, seen[c.Window], "client %s", c.Window)
		}
	}
}

func TestNewClampsCount(t *testing.T) {
	assert.Equal(t, 1, newFixture(t, 0).mux.Count())
	assert.Equal(t, 10, newFixture(t, 42).mux.Count())
	f := newFixture(t, 4)
	assert.Equal(t, 4, f.mux.Count())
	ws, err := f.mux.Workspace(0)
	require.NoError(t, err)
	assert.True(t, ws.Visible)
	_, err = f.mux.Workspace(4)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestAddFrontInserts(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	b := f.mapped(t, 0x20)

	require.NoError(t, f.mux.Add(a, 0))
	require.NoError(t, f.mux.Add(b, 0))
	assert.Equal(t, []*client.Client{b, a}, f.mux.Members(0))
	f.membership(t, a, b)
}

func TestAddIdempotent(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	b := f.mapped(t, 0x20)
	require.NoError(t, f.mux.Add(a, 0))
	require.NoError(t, f.mux.Add(b, 0))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.mux.Add(a, 0))
	}
	assert.Equal(t, []*client.Client{b, a}, f.mux.Members(0))
	assert.Equal(t, 0, f.mux.Pending())
	f.membership(t, a, b)
}

func TestAddOutOfRange(t *testing.T) {
	f := newFixture(t, 2)
	a := f.mapped(t, 0x10)
	assert.ErrorIs(t, f.mux.Add(a, 2), ErrOutOfRange)
	assert.ErrorIs(t, f.mux.Add(a, -1), ErrOutOfRange)
	assert.Equal(t, -1, a.Workspace)
}

func TestAddToHiddenWorkspaceUnmaps(t *testing.T) {
	f := newFixture(t, 4)
	c := f.mapped(t, 0x10)

	require.NoError(t, f.mux.Add(c, 2))

	assert.Equal(t, display.StateNormal, c.State)
	assert.False(t, f.rec.IsMapped(c.Window))
	assert.False(t, f.rec.IsMapped(c.Frame))
	assert.Equal(t, 2, f.mux.Pending())
	assert.True(t, f.mux.Switching())
	assert.Equal(t, 2, c.Workspace)

	// Repeating the add changes nothing.
	require.NoError(t, f.mux.Add(c, 2))
	assert.Equal(t, 2, f.mux.Pending())
}

func TestAddWithdrawnClientToHiddenWorkspace(t *testing.T) {
	f := newFixture(t, 4)
	c, _ := f.reg.LookupOrCreate(0x10)

	require.NoError(t, f.mux.Add(c, 1))
	assert.Equal(t, 0, f.mux.Pending())
	assert.False(t, f.mux.Switching())
}

func TestRemove(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))
	f.mux.Remember(a)

	f.mux.Remove(a)
	assert.Equal(t, -1, a.Workspace)
	assert.Empty(t, f.mux.Members(0))
	ws, _ := f.mux.Workspace(0)
	assert.True(t, ws.LastActive.IsNil())

	// Removing again is harmless.
	f.mux.Remove(a)
	f.membership(t, a)
}

func TestSwitchCountsPendingUnmaps(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))

	f.mux.Switch(1, 100)

	assert.Equal(t, 1, f.mux.Current())
	assert.Equal(t, 2, f.mux.Pending())
	assert.True(t, f.mux.Switching())
	assert.False(t, f.rec.IsMapped(a.Frame))
	assert.Equal(t, display.StateNormal, a.State)

	// The first notification is consumed and the counter stays positive.
	assert.True(t, f.mux.ConsumeUnmap())
	f.mux.Watchdog(101)
	assert.Equal(t, 1, f.mux.Pending())
	assert.True(t, f.mux.Switching())

	assert.True(t, f.mux.ConsumeUnmap())
	f.mux.Watchdog(102)
	assert.Equal(t, 0, f.mux.Pending())
	assert.False(t, f.mux.Switching())

	// Later unmaps are real withdrawals.
	assert.False(t, f.mux.ConsumeUnmap())
}

func TestSwitchShowsIncoming(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	b := f.mapped(t, 0x20)
	require.NoError(t, f.mux.Add(a, 0))
	require.NoError(t, f.mux.Add(b, 1))
	for f.mux.ConsumeUnmap() {
	}

	changed := 0
	f.mux.OnChange = func() { changed++ }
	f.mux.Switch(1, 200)

	assert.True(t, f.rec.IsMapped(b.Window))
	assert.True(t, f.rec.IsMapped(b.Frame))
	assert.True(t, b.Mapped)
	assert.False(t, a.Mapped)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, f.focus.cleared)

	ws0, _ := f.mux.Workspace(0)
	ws1, _ := f.mux.Workspace(1)
	assert.False(t, ws0.Visible)
	assert.True(t, ws1.Visible)
}

func TestSwitchRestoresRememberedClient(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))
	f.mux.Remember(a)

	f.mux.Switch(1, 10)
	f.mux.Switch(0, 20)
	assert.Equal(t, []display.Window{0x10}, f.focus.activated)
}

func TestSwitchSkipsIconic(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 1))
	for f.mux.ConsumeUnmap() {
	}
	a.State = display.StateIconic

	f.mux.Switch(1, 10)
	assert.False(t, a.Mapped)
	assert.Equal(t, 0, f.mux.Pending())
}

func TestSwitchIgnoresInvalid(t *testing.T) {
	f := newFixture(t, 2)
	f.mux.Switch(0, 1)
	f.mux.Switch(5, 1)
	f.mux.Switch(-1, 1)
	assert.Equal(t, 0, f.mux.Current())
	assert.False(t, f.mux.Switching())
	assert.Zero(t, f.focus.cleared)
}

func TestWatchdogClearsIdleFlag(t *testing.T) {
	f := newFixture(t, 2)
	f.mux.Switch(1, 10)
	assert.True(t, f.mux.Switching())
	assert.Equal(t, 0, f.mux.Pending())

	f.mux.Watchdog(11)
	assert.False(t, f.mux.Switching())
}

func TestWatchdogResetsStaleSwitch(t *testing.T) {
	f := newFixture(t, 2)
	f.mux.SetStaleAfter(2000)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))
	f.mux.Switch(1, 1000)

	f.mux.Watchdog(1000)
	f.mux.Watchdog(2500)
	assert.Equal(t, 2, f.mux.Pending())

	f.mux.Watchdog(3001)
	assert.Equal(t, 0, f.mux.Pending())
	assert.False(t, f.mux.Switching())
}

func TestMove(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))

	require.NoError(t, f.mux.Move(a, 3))
	assert.Equal(t, 3, a.Workspace)
	assert.False(t, a.Mapped)
	assert.Equal(t, 2, f.mux.Pending())
	f.membership(t, a)

	require.NoError(t, f.mux.Move(a, 0))
	assert.True(t, a.Mapped)
	assert.True(t, f.rec.IsMapped(a.Frame))
	f.membership(t, a)

	err := f.mux.Move(a, 9)
	assert.ErrorIs(t, err, ErrMoveFailed)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 0, a.Workspace)
	f.membership(t, a)
}

func TestMoveDropsStrayEntries(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	b := f.mapped(t, 0x20)
	require.NoError(t, f.mux.Add(a, 0))
	require.NoError(t, f.mux.Add(b, 0))

	// A leftover entry for a on workspace 2 that the index does not know.
	f.mux.spaces[2].clients.PushBack(a.Handle)

	require.NoError(t, f.mux.Move(a, 1))
	assert.Equal(t, 1, a.Workspace)
	assert.Empty(t, f.mux.Members(2))
	assert.Equal(t, []*client.Client{a}, f.mux.Members(1))
	f.membership(t, a, b)
}

func TestCheckPlacementRejectsUnindexedEntry(t *testing.T) {
	f := newFixture(t, 4)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))

	// The list entry on the target is dropped behind the index's back.
	require.NoError(t, f.mux.Move(a, 0))
	e := f.mux.index[a.Handle]
	f.mux.spaces[0].clients.Remove(e)
	f.mux.spaces[0].clients.PushFront(a.Handle)

	err := f.mux.checkPlacement(a)
	assert.Error(t, err)
	assert.Len(t, f.mux.Members(0), 0, "unindexed entry is dropped")
}

func TestRaise(t *testing.T) {
	f := newFixture(t, 2)
	a := f.mapped(t, 0x10)
	b := f.mapped(t, 0x20)
	require.NoError(t, f.mux.Add(a, 0))
	require.NoError(t, f.mux.Add(b, 0))

	f.mux.Raise(a)
	assert.Equal(t, []*client.Client{a, b}, f.mux.Members(0))
}

func TestHideSurvivesVanishedWindow(t *testing.T) {
	f := newFixture(t, 2)
	a := f.mapped(t, 0x10)
	require.NoError(t, f.mux.Add(a, 0))
	f.rec.Vanish(a.Window)

	f.mux.Switch(1, 5)
	assert.Equal(t, 2, f.mux.Pending())
}
