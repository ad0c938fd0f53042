package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/model"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Current: 1,
		Active:  0x300,
		Mode:    "idle",
		Workspaces: []model.Workspace{
			{ID: 0, Clients: []uint32{0x100, 0x200}},
			{ID: 1, Visible: true, Clients: []uint32{0x300}},
		},
		Clients: []model.Client{
			{Window: 0x200, Label: "firefox", Class: "Firefox", State: "normal", Workspace: 0},
			{Window: 0x100, Label: "xterm", Class: "XTerm", State: "normal", Workspace: 0, Terminal: true},
			{Window: 0x300, Label: "emacs", Class: "Emacs", State: "normal", Workspace: 1},
		},
	}
}

func resetStatusOpts(t *testing.T) {
	t.Helper()
	saved := statusOpts
	t.Cleanup(func() { statusOpts = saved })
	statusOpts.sortBy = "workspace"
	statusOpts.sortOrder = "asc"
}

func windowsOf(clients []model.Client) []uint32 {
	ids := make([]uint32, len(clients))
	for i, c := range clients {
		ids[i] = c.Window
	}
	return ids
}

func TestSelectClients(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		want  []uint32
	}{
		{"default sort by workspace", func() {}, []uint32{0x200, 0x100, 0x300}},
		{"workspace flag is 1-based", func() { statusOpts.workspace = 2 }, []uint32{0x300}},
		{"filter expression", func() { statusOpts.filter = "terminal=true" }, []uint32{0x100}},
		{"sort by window descending", func() {
			statusOpts.sortBy = "window"
			statusOpts.sortOrder = "desc"
		}, []uint32{0x300, 0x200, 0x100}},
		{"class and limit", func() {
			statusOpts.class = "xterm"
			statusOpts.limit = 1
		}, []uint32{0x100}},
		{"search", func() { statusOpts.search = "emacs" }, []uint32{0x300}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetStatusOpts(t)
			tt.setup()
			got, err := selectClients(testSnapshot().Clients)
			require.NoError(t, err)
			assert.Equal(t, tt.want, windowsOf(got))
		})
	}
}

func TestSelectClientsBadFilter(t *testing.T) {
	resetStatusOpts(t)
	statusOpts.filter = "colour=red"
	_, err := selectClients(testSnapshot().Clients)
	assert.Error(t, err)
}

func TestBarStatus(t *testing.T) {
	st := barStatus(testSnapshot())
	assert.Equal(t, "2", st.Text)
	assert.Equal(t, "idle", st.Class)
	assert.Equal(t, 100, st.Percentage)
	assert.Contains(t, st.Tooltip, "Active: emacs")
	assert.Contains(t, st.Tooltip, "* 2: 1 windows")
	assert.Contains(t, st.Tooltip, "  1: 2 windows")
}
