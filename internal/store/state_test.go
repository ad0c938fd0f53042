package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/model"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Session: &model.Session{ID: "01J0000000000000000000000"},
		Current: 1,
		Workspaces: []model.Workspace{
			{ID: 0, Clients: []uint32{0x200, 0x100}},
			{ID: 1, Visible: true, Clients: []uint32{0x300}},
			{ID: 2, Clients: []uint32{}},
		},
		Clients: []model.Client{
			{Window: 0x100, Label: "xterm", Workspace: 0},
			{Window: 0x200, Label: "firefox", Workspace: 0},
			{Window: 0x300, Label: "emacs", Workspace: 1},
			{Window: 0x400, Label: "gone", Workspace: -1},
		},
	}
}

func TestFromSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := FromSnapshot(testSnapshot(), now)

	assert.Equal(t, CurrentSchemaVersion, st.SchemaVersion)
	assert.Equal(t, now.Unix(), st.SavedAt)
	assert.Equal(t, "01J0000000000000000000000", st.SessionID)
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, map[uint32]int{0x100: 0, 0x200: 0, 0x300: 1}, st.Workspaces)
	assert.Equal(t, []uint32{0x200, 0x100}, st.Order[0])
	assert.NotContains(t, st.Order, 2, "empty workspaces are not recorded")
	assert.NotContains(t, st.Labels, uint32(0x400))
}

func TestRestartStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "restart.json")
	now := time.Now()

	require.NoError(t, SaveRestartState(path, FromSnapshot(testSnapshot(), now)))

	st, err := TakeRestartState(path, now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 0, st.Workspaces[0x200])

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "taking the state removes the file")

	st, err = TakeRestartState(path, now)
	assert.NoError(t, err)
	assert.Nil(t, st)
}

func TestTakeRestartStateStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.json")
	now := time.Now()
	require.NoError(t, SaveRestartState(path, FromSnapshot(testSnapshot(), now.Add(-2*MaxAge))))

	st, err := TakeRestartState(path, now)
	assert.ErrorIs(t, err, ErrStale)
	assert.Nil(t, st)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTakeRestartStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := TakeRestartState(path, time.Now())
	assert.Error(t, err)
}

func TestRestartPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	p, err := RestartPath("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data/shrub9/restart.json", p)

	p, err = RestartPath(":0.0")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data/shrub9/restart-_0.0.json", p)

	p, err = RestartPath("host/unix:1")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data/shrub9/restart-host_unix_1.json", p)
}
