package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/model"
	"github.com/jmylchreest/shrub9/internal/wm"
	"github.com/jmylchreest/shrub9/internal/workspace"
)

type fakeController struct {
	snap      model.Snapshot
	err       error
	switched  []int
	activated []uint32
	reloads   int
}

func (f *fakeController) Snapshot(context.Context) (model.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeController) SwitchWorkspace(_ context.Context, ws int) error {
	f.switched = append(f.switched, ws)
	return f.err
}

func (f *fakeController) Activate(_ context.Context, w uint32) error {
	f.activated = append(f.activated, w)
	return f.err
}

func (f *fakeController) Reload(context.Context) error {
	f.reloads++
	return f.err
}

func TestErrorNamesRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		dbusName string
	}{
		{"busy", wm.ErrBusy, wm.ErrBusy, ErrorBusy},
		{"unknown window", fmt.Errorf("%w: 0x100", wm.ErrUnknownWindow), wm.ErrUnknownWindow, ErrorUnknownWindow},
		{"withdrawn", fmt.Errorf("%w: 0x100 is withdrawn", wm.ErrWithdrawn), wm.ErrWithdrawn, ErrorWithdrawn},
		{"out of range", fmt.Errorf("%w: 12", workspace.ErrOutOfRange), workspace.ErrOutOfRange, ErrorOutOfRange},
		{"timeout", context.DeadlineExceeded, context.DeadlineExceeded, ErrorTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derr := toDBusError(tt.err)
			require.NotNil(t, derr)
			assert.Equal(t, tt.dbusName, derr.Name)

			assert.ErrorIs(t, fromDBusError(*derr), tt.sentinel)
			assert.ErrorIs(t, fromDBusError(derr), tt.sentinel)
		})
	}
}

func TestToDBusErrorDefaults(t *testing.T) {
	assert.Nil(t, toDBusError(nil))

	derr := toDBusError(errors.New("boom"))
	require.NotNil(t, derr)
	assert.Equal(t, ErrorFailed, derr.Name)
	assert.Equal(t, []interface{}{"boom"}, derr.Body)

	assert.EqualError(t, fromDBusError(*derr), "boom")
}

func TestFromDBusErrorNotRunning(t *testing.T) {
	err := fromDBusError(dbus.Error{
		Name: "org.freedesktop.DBus.Error.ServiceUnknown",
		Body: []interface{}{"The name is not activatable"},
	})
	assert.ErrorIs(t, err, ErrNotRunning)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, fromDBusError(plain))
	assert.NoError(t, fromDBusError(nil))
}

func TestStatusEncodesSnapshot(t *testing.T) {
	ctrl := &fakeController{snap: model.Snapshot{
		Current:    1,
		Active:     0x100,
		Mode:       "idle",
		Workspaces: []model.Workspace{{ID: 0, Clients: []uint32{}}, {ID: 1, Visible: true, Clients: []uint32{0x100}}},
		Clients:    []model.Client{{Window: 0x100, Label: "xterm", State: "normal", Workspace: 1}},
	}}
	s := NewControlServer(ctrl, nil)

	out, derr := s.Status()
	require.Nil(t, derr)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, ctrl.snap, snap)
}

func TestControlMethodsForward(t *testing.T) {
	ctrl := &fakeController{}
	s := NewControlServer(ctrl, nil)

	assert.Nil(t, s.SwitchWorkspace(2))
	assert.Nil(t, s.Activate(0x200))
	assert.Nil(t, s.Reload())
	assert.Equal(t, []int{2}, ctrl.switched)
	assert.Equal(t, []uint32{0x200}, ctrl.activated)
	assert.Equal(t, 1, ctrl.reloads)

	ctrl.err = wm.ErrBusy
	derr := s.SwitchWorkspace(0)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorBusy, derr.Name)

	_, derr = s.Status()
	require.NotNil(t, derr)
	assert.Equal(t, ErrorBusy, derr.Name)
}

func TestGetServerInformation(t *testing.T) {
	s := NewControlServer(&fakeController{}, nil)
	s.SetServerInfo(ServerInfo{Name: "shrub9", Vendor: "jmylchreest", Version: "1.2.3"})

	name, vendor, version, derr := s.GetServerInformation()
	require.Nil(t, derr)
	assert.Equal(t, "shrub9", name)
	assert.Equal(t, "jmylchreest", vendor)
	assert.Equal(t, "1.2.3", version)
}

func TestEmitStateChangedNotRunning(t *testing.T) {
	s := NewControlServer(&fakeController{}, nil)
	sent, err := s.EmitStateChanged(State{Current: 1})
	assert.NoError(t, err)
	assert.False(t, sent)
}

func TestParseStateChanged(t *testing.T) {
	st, ok := parseStateChanged(&dbus.Signal{
		Name: Interface + ".StateChanged",
		Body: []interface{}{int32(2), uint32(0x300), "menu"},
	})
	require.True(t, ok)
	assert.Equal(t, State{Current: 2, Active: 0x300, Mode: "menu"}, st)

	_, ok = parseStateChanged(&dbus.Signal{Name: Interface + ".Other", Body: []interface{}{int32(2), uint32(0), ""}})
	assert.False(t, ok)
	_, ok = parseStateChanged(&dbus.Signal{Name: Interface + ".StateChanged", Body: []interface{}{"2"}})
	assert.False(t, ok)
	_, ok = parseStateChanged(nil)
	assert.False(t, ok)
}

func TestStateOf(t *testing.T) {
	st := StateOf(model.Snapshot{Current: 3, Active: 0x10, Mode: "sweeping", Pending: 2})
	assert.Equal(t, State{Current: 3, Active: 0x10, Mode: "sweeping"}, st)
}

func TestIntrospectionListsMethods(t *testing.T) {
	var names []string
	for _, m := range controlMethods() {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"GetServerInformation", "Status", "SwitchWorkspace", "Activate", "Reload"}, names)
	require.Len(t, controlSignals(), 1)
	assert.Equal(t, "StateChanged", controlSignals()[0].Name)
}
