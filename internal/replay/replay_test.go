package replay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

func TestScripts(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)

			res, err := Run(s, nil)
			require.NoError(t, err)
			assert.True(t, res.OK(), "failures: %+v", res.Failures)
			if res.Action == "continue" {
				assert.NoError(t, res.Snapshot.Validate())
			}
		})
	}
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
name: parse
steps:
  - kind: key-press
    key: "2"
    state: 64
    pointer: {x: 5, y: 6}
    expect:
      workspace: 1
      active: 0x100
`))
	require.NoError(t, err)
	require.Len(t, s.Steps, 1)

	st := s.Steps[0]
	assert.Equal(t, event.KindKeyPress, st.Kind)
	assert.Equal(t, "2", st.Key)
	assert.Equal(t, uint16(64), st.State)
	require.NotNil(t, st.MovePointer)
	assert.Equal(t, Point{X: 5, Y: 6}, *st.MovePointer)
	require.NotNil(t, st.Expect)
	require.NotNil(t, st.Expect.Active)
	assert.Equal(t, display.Window(0x100), *st.Expect.Active)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown kind", "steps:\n  - kind: teleport\n"},
		{"no steps", "name: empty\n"},
		{"window without id", "windows:\n  - {width: 10, height: 10}\nsteps:\n  - kind: tick\n"},
		{"bad state", "windows:\n  - {id: 0x100, state: sleeping}\nsteps:\n  - kind: tick\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFailedExpectationIsReported(t *testing.T) {
	s, err := Parse([]byte(`
name: wrong
steps:
  - kind: create
    add: [{id: 0x100, width: 100, height: 100}]
    window: 0x100
    parent: 0x1
  - kind: map-request
    note: focus goes to the new window, not 0x200
    window: 0x100
    parent: 0x1
    expect:
      active: 0x200
      workspace: 0
`))
	require.NoError(t, err)

	res, err := Run(s, nil)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Step)
	assert.Contains(t, res.Failures[0].Err, "active")
	assert.NotContains(t, res.Failures[0].Err, "workspace")
	assert.False(t, res.OK())
}

func TestSettingsShrinkWorkspaces(t *testing.T) {
	s := &Script{Settings: Settings{Workspaces: 2}, Steps: []Step{{Event: event.Event{Kind: event.KindTick}}}}
	cfg := s.Config()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Workspaces.Keys, 2)

	res, err := Run(s, nil)
	require.NoError(t, err)
	assert.Len(t, res.Snapshot.Workspaces, 2)
}

func TestRunCountsRequests(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - {kind: create, window: 0x100, parent: 0x1, width: 100, height: 100, add: [{id: 0x100, width: 100, height: 100}]}
  - {kind: map-request, window: 0x100, parent: 0x1}
`))
	require.NoError(t, err)

	res, err := Run(s, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, "continue", res.Action)
	assert.Positive(t, res.Requests)
	require.Len(t, res.Snapshot.Clients, 1)
	assert.Equal(t, uint32(0x100), res.Snapshot.Active)
}
