package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/shrub9/internal/dbus"
	"github.com/jmylchreest/shrub9/internal/model"
)

type fakeSource struct {
	snap      *model.Snapshot
	err       error
	switched  []int
	activated []uint32
}

func (f *fakeSource) Status(context.Context) (*model.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeSource) SwitchWorkspace(_ context.Context, ws int) error {
	f.switched = append(f.switched, ws)
	return nil
}

func (f *fakeSource) Activate(_ context.Context, w uint32) error {
	f.activated = append(f.activated, w)
	return nil
}

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Current: 0,
		Active:  0x200,
		Mode:    "idle",
		Workspaces: []model.Workspace{
			{ID: 0, Visible: true, Clients: []uint32{0x100, 0x200}},
			{ID: 1, Clients: []uint32{0x300}},
			{ID: 2},
		},
		Clients: []model.Client{
			{Window: 0x100, Label: "xterm", Class: "XTerm", State: "normal", Workspace: 0, Terminal: true, Width: 640, Height: 480},
			{Window: 0x200, Label: "firefox", Class: "Firefox", State: "normal", Workspace: 0, Width: 800, Height: 600},
			{Window: 0x300, Label: "editor", Class: "Emacs", State: "iconic", Workspace: 1, Width: 500, Height: 400},
		},
		Hidden: []uint32{0x300},
	}
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func loaded(t *testing.T, src *fakeSource) Model {
	t.Helper()
	m := New(RunOptions{Source: src})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, m.fetch())
	return m
}

func TestNewDefaults(t *testing.T) {
	m := New(RunOptions{Source: &fakeSource{}})
	assert.Equal(t, DefaultInterval, m.interval)
	assert.Equal(t, ModeList, m.mode)
	assert.Equal(t, "Initializing...", m.View())
}

func TestSnapshotPopulatesList(t *testing.T) {
	m := loaded(t, &fakeSource{snap: sampleSnapshot()})

	items := m.list.Items()
	require.Len(t, items, 3)
	first, ok := items[0].(clientItem)
	require.True(t, ok)
	assert.Equal(t, uint32(0x100), first.client.Window)
	second := items[1].(clientItem)
	assert.True(t, second.active)

	view := m.View()
	assert.Contains(t, view, "1:2")
	assert.Contains(t, view, "1 hidden")
}

func TestStatusErrorKeepsLastSnapshot(t *testing.T) {
	src := &fakeSource{snap: sampleSnapshot()}
	m := loaded(t, src)

	src.snap, src.err = nil, errors.New("shrub9 is not running")
	m, _ = update(t, m, m.fetch())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.statusMsg, "not running")
	assert.Len(t, m.list.Items(), 3)
}

func TestWorkspaceKeys(t *testing.T) {
	src := &fakeSource{snap: sampleSnapshot()}
	m := loaded(t, src)

	_, cmd := update(t, m, runeKey('2'))
	require.NotNil(t, cmd)
	msg := cmd()
	res, ok := msg.(actionResultMsg)
	require.True(t, ok)
	assert.NoError(t, res.err)
	assert.Equal(t, []int{1}, src.switched)

	_, cmd = update(t, m, runeKey('9'))
	require.NotNil(t, cmd)
	st, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, st.isErr)
	assert.Equal(t, []int{1}, src.switched, "out of range workspace is not sent")
}

func TestWorkspaceForKey(t *testing.T) {
	tests := []struct {
		key  string
		ws   int
		isOK bool
	}{
		{"1", 0, true},
		{"9", 8, true},
		{"0", 9, true},
		{"a", 0, false},
		{"10", 0, false},
	}
	for _, tt := range tests {
		ws, ok := workspaceForKey(tt.key)
		assert.Equal(t, tt.isOK, ok, tt.key)
		assert.Equal(t, tt.ws, ws, tt.key)
	}
}

func TestFocusSelected(t *testing.T) {
	src := &fakeSource{snap: sampleSnapshot()}
	m := loaded(t, src)

	_, cmd := update(t, m, runeKey('f'))
	require.NotNil(t, cmd)
	res := cmd().(actionResultMsg)
	assert.Equal(t, "Focused 0x100", res.text)
	assert.Equal(t, []uint32{0x100}, src.activated)
}

func TestDetailMode(t *testing.T) {
	m := loaded(t, &fakeSource{snap: sampleSnapshot()})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ModeDetail, m.mode)
	require.NotNil(t, m.selected)
	assert.Equal(t, uint32(0x100), m.selected.Window)

	detail := m.renderDetail(*m.selected)
	assert.Contains(t, detail, "XTerm")
	assert.Contains(t, detail, "640x480+0+0")
	assert.Contains(t, detail, "terminal")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
	assert.Nil(t, m.selected)
}

func TestSearchFuzzy(t *testing.T) {
	m := loaded(t, &fakeSource{snap: sampleSnapshot()})

	m, _ = update(t, m, runeKey('/'))
	require.Equal(t, ModeSearch, m.mode)
	for _, r := range "fire" {
		m, _ = update(t, m, runeKey(r))
	}
	assert.Equal(t, "fire", m.searchQuery)
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, uint32(0x200), m.list.Items()[0].(clientItem).client.Window)

	// q is text while searching.
	m, cmd := update(t, m, runeKey('q'))
	assert.Equal(t, ModeSearch, m.mode)
	_ = cmd

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
	assert.Len(t, m.list.Items(), 3)
}

func TestSearchFilterExpression(t *testing.T) {
	m := loaded(t, &fakeSource{snap: sampleSnapshot()})

	m, _ = update(t, m, runeKey('/'))
	for _, r := range "state=iconic" {
		m, _ = update(t, m, runeKey(r))
	}
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, uint32(0x300), m.list.Items()[0].(clientItem).client.Window)
	assert.Empty(t, m.searchErr)
}

func TestStateSignalUpdatesHeader(t *testing.T) {
	updates := make(chan dbus.State, 1)
	src := &fakeSource{snap: sampleSnapshot()}
	m := New(RunOptions{Source: src, Updates: updates})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, m.fetch())

	updates <- dbus.State{Current: 1, Active: 0x300, Mode: "sweep"}
	msg := m.waitForState()
	st, ok := msg.(stateMsg)
	require.True(t, ok)

	m, cmd := update(t, m, st)
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.snap.Current)
	assert.Equal(t, "sweep", m.snap.Mode)

	close(updates)
	assert.Nil(t, m.waitForState())
}

func TestHelpToggle(t *testing.T) {
	m := loaded(t, &fakeSource{snap: sampleSnapshot()})

	m, _ = update(t, m, runeKey('?'))
	assert.Equal(t, ModeHelp, m.mode)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeList, m.mode)
}

func TestKeybindBarFitsWidth(t *testing.T) {
	m := New(RunOptions{Source: &fakeSource{}})
	bar := m.buildKeybindBar(20, "list")
	assert.Contains(t, bar, "quit")
	assert.NotContains(t, bar, "refresh")
}

func TestRunRequiresSource(t *testing.T) {
	assert.Error(t, Run(RunOptions{}))
}
