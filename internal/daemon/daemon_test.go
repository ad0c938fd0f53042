package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/display/displaytest"
	"github.com/jmylchreest/shrub9/internal/event"
	"github.com/jmylchreest/shrub9/internal/wm"
	"github.com/jmylchreest/shrub9/internal/workspace"
	"github.com/jmylchreest/shrub9/internal/x11"
)

type fakeConn struct {
	*displaytest.Recorder
	events chan event.Event
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		Recorder: displaytest.New(),
		events:   make(chan event.Event, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) Next() (event.Event, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.closed:
		return event.Event{}, x11.ErrClosed
	}
}

func (f *fakeConn) Close() {
	f.once.Do(func() { close(f.closed) })
}

type nopSpawner struct{}

func (nopSpawner) Spawn(string) error { return nil }

func startDaemon(t *testing.T, conn *fakeConn, opts Options) (*Daemon, <-chan wm.Action) {
	t.Helper()
	d, err := New(config.DefaultConfig(), conn, nopSpawner{}, opts)
	require.NoError(t, err)

	done := make(chan wm.Action, 1)
	go func() {
		act, err := d.Run(context.Background())
		assert.NoError(t, err)
		done <- act
	}()
	return d, done
}

func waitAction(t *testing.T, done <-chan wm.Action) wm.Action {
	t.Helper()
	select {
	case act := <-done:
		return act
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
		return wm.Continue
	}
}

func TestRunAdoptsAndExits(t *testing.T) {
	conn := newFakeConn()
	conn.AddWindow(0x100, display.Rect{X: 50, Y: 60, Width: 200, Height: 100}, display.Properties{Name: "xterm"})
	require.NoError(t, conn.Map(0x100))

	d, done := startDaemon(t, conn, Options{})
	ctx := context.Background()

	snap, err := d.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Clients, 1)
	assert.Equal(t, "normal", snap.Clients[0].State)
	assert.Equal(t, d.Session(), snap.Session)
	assert.NotZero(t, snap.TakenAt)
	assert.NoError(t, snap.Validate())

	conn.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomExit}
	assert.Equal(t, wm.Exit, waitAction(t, done))

	_, err = d.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, displaytest.DefaultRoot, conn.Win(0x100).Parent, "clients are given back to the root")
}

func TestRunRestart(t *testing.T) {
	conn := newFakeConn()
	_, done := startDaemon(t, conn, Options{})

	conn.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomRestart}
	assert.Equal(t, wm.Restart, waitAction(t, done))
}

func TestRestartKeepsLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.json")
	adopt := func() *fakeConn {
		conn := newFakeConn()
		for _, w := range []display.Window{0x100, 0x200} {
			conn.AddWindow(w, display.Rect{Width: 200, Height: 100}, display.Properties{Name: "w"})
			require.NoError(t, conn.Map(w))
		}
		return conn
	}

	first := adopt()
	d, done := startDaemon(t, first, Options{RestartPath: path})
	require.NoError(t, d.SwitchWorkspace(context.Background(), 2))
	first.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomRestart}
	require.Equal(t, wm.Restart, waitAction(t, done))
	require.FileExists(t, path)

	second := adopt()
	d2, done2 := startDaemon(t, second, Options{RestartPath: path})
	snap, err := d2.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Current)
	assert.ElementsMatch(t, []uint32{0x100, 0x200}, snap.Workspaces[0].Clients)
	assert.NoFileExists(t, path)

	second.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomExit}
	assert.Equal(t, wm.Exit, waitAction(t, done2))
	assert.NoFileExists(t, path, "exit does not save a layout")
}

func TestRunStopsOnCancel(t *testing.T) {
	conn := newFakeConn()
	d, err := New(nil, conn, nopSpawner{}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan wm.Action, 1)
	go func() {
		act, _ := d.Run(ctx)
		done <- act
	}()
	cancel()
	assert.Equal(t, wm.Exit, waitAction(t, done))
}

func TestControlRequests(t *testing.T) {
	conn := newFakeConn()
	conn.AddWindow(0x100, display.Rect{Width: 200, Height: 100}, display.Properties{Name: "a"})
	require.NoError(t, conn.Map(0x100))

	d, done := startDaemon(t, conn, Options{})
	ctx := context.Background()

	require.NoError(t, d.SwitchWorkspace(ctx, 1))
	snap, err := d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Current)

	assert.ErrorIs(t, d.SwitchWorkspace(ctx, 9), workspace.ErrOutOfRange)
	assert.ErrorIs(t, d.Activate(ctx, 0x999), wm.ErrUnknownWindow)

	require.NoError(t, d.Activate(ctx, 0x100))
	snap, err = d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Current)
	assert.Equal(t, uint32(0x100), snap.Active)

	assert.Error(t, d.Reload(ctx), "no config file configured")

	conn.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomExit}
	waitAction(t, done)
}

func TestReloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[terminal]\ncommand = \"st\"\n"), 0o644))

	conn := newFakeConn()
	d, done := startDaemon(t, conn, Options{ConfigPath: path})
	ctx := context.Background()

	require.NoError(t, d.Reload(ctx))
	assert.Equal(t, "st", d.cfg.Terminal.Command)

	require.NoError(t, os.WriteFile(path, []byte("[workspaces]\ncount = 0\n"), 0o644))
	assert.Error(t, d.Reload(ctx))

	conn.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomExit}
	waitAction(t, done)
}

func TestReloadAppliesTheme(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[appearance]\ntheme = \"dark\"\n"), 0o644))

	conn := newFakeConn()
	d, done := startDaemon(t, conn, Options{ConfigPath: path})

	require.NoError(t, d.Reload(context.Background()))
	assert.Equal(t, uint32(0xd0d0d0), conn.Colors.Active)
	assert.Equal(t, uint32(0x1c1c1c), conn.Colors.MenuBackground)

	conn.events <- event.Event{Kind: event.KindClientMessage, Window: displaytest.DefaultRoot, Atom: event.AtomExit}
	waitAction(t, done)
}

func TestTickTime(t *testing.T) {
	d := &Daemon{}
	now := time.Now()
	assert.Equal(t, uint32(0), d.tickTime(now))

	d.serverTime, d.seenAt = 5000, now
	assert.Equal(t, uint32(5000), d.tickTime(now))
	assert.Equal(t, uint32(5250), d.tickTime(now.Add(250*time.Millisecond)))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspaces.Count = 0
	_, err := New(cfg, newFakeConn(), nopSpawner{}, Options{})
	assert.Error(t, err)
}
