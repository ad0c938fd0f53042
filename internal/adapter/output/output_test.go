package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/shrub9/internal/model"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Session: &model.Session{ID: "01JTESTSESSION", StartedAt: time.Now().Add(-3 * time.Hour).Unix(), PID: 42},
		Current: 0,
		Active:  0x100,
		Mode:    "idle",
		Workspaces: []model.Workspace{
			{ID: 0, Visible: true, Clients: []uint32{0x100, 0x300}, LastActive: 0x100},
			{ID: 1, Clients: []uint32{0x200}},
		},
		Clients: []model.Client{
			{Window: 0x100, Label: "xterm", Class: "XTerm", State: "normal", Workspace: 0, Width: 640, Height: 480, Active: true, Terminal: true},
			{Window: 0x200, Label: "firefox", Class: "firefox", State: "normal", Workspace: 1, X: 10, Y: 20, Width: 1200, Height: 900},
			{Window: 0x300, Label: "emacs", Class: "Emacs", State: "iconic", Workspace: 0, Width: 800, Height: 600},
		},
		Hidden: []uint32{0x300},
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()
	assert.IsType(t, &PlainFormatter{}, NewFormatter(FormatPlain, opts))
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON, opts))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML, opts))
	assert.IsType(t, &IDsFormatter{}, NewFormatter(FormatIDs, opts))
	assert.IsType(t, &DmenuFormatter{}, NewFormatter(FormatDmenu, opts))
	assert.IsType(t, &PlainFormatter{}, NewFormatter("other", opts))
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(DefaultFormatterOptions()).Format(&buf, testSnapshot()))
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Contains(t, lines[0], "session 01JTESTSESSION (pid 42, started 3 hours ago)")
	assert.Contains(t, lines[0], "mode idle")
	assert.Contains(t, lines[0], `active 0x100 "xterm"`)

	assert.Contains(t, out, "* workspace 1 (2)\n")
	assert.Contains(t, out, "  workspace 2 (1)\n")
	assert.Contains(t, out, "  hidden (1)\n")
	assert.Contains(t, out, "640x480+0+0 XTerm [active, terminal]")
	assert.Contains(t, out, "1200x900+10+20 firefox")
	assert.Equal(t, 2, strings.Count(out, "0x300"), "hidden clients are listed on their workspace and in the hidden menu")
}

func TestPlainFormatterSwitching(t *testing.T) {
	snap := testSnapshot()
	snap.Session = nil
	snap.Switching, snap.Pending = true, 4
	snap.Active = 0

	opts := DefaultFormatterOptions()
	opts.ShowHidden = false
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, snap))

	first, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, "mode idle, switching, 4 pending", first)
	assert.NotContains(t, buf.String(), "hidden (")
}

func TestPlainFormatterTemplate(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.Template = "{{.Index}} {{.Window}} {{stateIcon .Client.State}} {{truncate .Client.Label 4}}"
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testSnapshot()))
	assert.Equal(t, "1 0x100 + x...\n2 0x200 + f...\n3 0x300 - e...\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, testSnapshot()))

	var got model.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *testSnapshot().Session, *got.Session)
	assert.Len(t, got.Clients, 3)
	assert.Contains(t, buf.String(), "\n  \"current\"")

	buf.Reset()
	opts := DefaultFormatterOptions()
	opts.Compact = true
	require.NoError(t, NewJSONFormatter(opts).Format(&buf, testSnapshot()))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter().Format(&buf, testSnapshot()))
	assert.Contains(t, buf.String(), "pending_unmaps: 0")

	var got model.Snapshot
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []uint32{0x300}, got.Hidden)
	assert.Equal(t, "iconic", got.Clients[2].State)
}

func TestIDsFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testSnapshot()))
	assert.Equal(t, "0x100\n0x200\n0x300\n", buf.String())
}

func TestDmenuFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(DefaultFormatterOptions()).Format(&buf, testSnapshot()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0x100 | 1 | xterm | XTerm", lines[0])
	assert.Equal(t, "0x300 | 1 | emacs | Emacs | hidden", lines[2])

	assert.Equal(t, "0x300", PickedWindow(lines[2], ""))
	assert.Equal(t, "emacs", PickedWindow("  emacs \n", " | "))
}

func TestDmenuFormatterTemplate(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.Template = "{{hex .Client.Window}}:{{.Client.Class}}"
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testSnapshot()))
	assert.Equal(t, "0x100:XTerm\n0x200:firefox\n0x300:Emacs\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "a...", truncate("abcdef", 4))
}
