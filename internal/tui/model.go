// Package tui provides the BubbleTea-based live view of the window manager.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/shrub9/internal/core"
	"github.com/jmylchreest/shrub9/internal/dbus"
	"github.com/jmylchreest/shrub9/internal/model"
)

// DefaultInterval is how often the view polls when no signal arrives.
const DefaultInterval = 2 * time.Second

const requestTimeout = 2 * time.Second

// Source is where the view reads state from and sends actions to.
// *dbus.Client satisfies it.
type Source interface {
	Status(ctx context.Context) (*model.Snapshot, error)
	SwitchWorkspace(ctx context.Context, ws int) error
	Activate(ctx context.Context, w uint32) error
}

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeSearch
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	src      Source
	updates  <-chan dbus.State
	interval time.Duration

	mode Mode

	// Components
	list        list.Model
	viewport    viewport.Model
	searchInput textinput.Model
	help        help.Model

	// State
	snap        *model.Snapshot
	selected    *model.Client
	searchQuery string
	searchErr   string
	width       int
	height      int
	ready       bool

	keys KeyMap

	statusMsg string
	statusErr bool
}

// clientItem wraps a client for the list component.
type clientItem struct {
	client model.Client
	active bool
}

func (i clientItem) Title() string {
	if i.client.Label == "" {
		return fmt.Sprintf("0x%x", i.client.Window)
	}
	return i.client.Label
}

func (i clientItem) Description() string {
	c := i.client
	ws := "-"
	if c.Workspace >= 0 {
		ws = fmt.Sprint(c.Workspace + 1)
	}
	return fmt.Sprintf("[%s] %s  %dx%d+%d+%d  0x%x",
		ws, c.Class, c.Width, c.Height, c.X, c.Y, c.Window)
}

func (i clientItem) FilterValue() string {
	return i.client.Label + " " + i.client.Class
}

// clientDelegate dims hidden clients and marks the active one.
type clientDelegate struct {
	list.DefaultDelegate
}

func newClientDelegate() clientDelegate {
	return clientDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item with the same layout as the default delegate.
func (d clientDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(clientItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	isSelected := index == m.Index()
	hidden := ci.client.Hidden()
	itemWidth := m.Width() - d.Styles.NormalTitle.GetHorizontalPadding()

	titleStyle, descStyle := d.Styles.NormalTitle, d.Styles.NormalDesc
	if isSelected {
		titleStyle, descStyle = d.Styles.SelectedTitle, d.Styles.SelectedDesc
	}
	if hidden {
		titleStyle = titleStyle.Foreground(lipgloss.Color("8"))
		descStyle = descStyle.Foreground(lipgloss.Color("8"))
	}

	title := ci.Title()
	switch {
	case ci.active:
		title = "* " + title
	case hidden:
		title = "[h] " + title
	}
	if itemWidth > 0 && len(title) > itemWidth {
		title = title[:itemWidth-1] + "…"
	}
	desc := ci.Description()
	if itemWidth > 0 && len(desc) > itemWidth {
		desc = desc[:itemWidth-1] + "…"
	}

	fmt.Fprint(w, titleStyle.Render(title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

// RunOptions configures the TUI.
type RunOptions struct {
	Source Source
	// Updates triggers an immediate refresh on each state change.
	Updates <-chan dbus.State
	// Interval is the polling period. Zero means DefaultInterval.
	Interval time.Duration
}

// New creates a new TUI model.
func New(opts RunOptions) Model {
	l := list.New(nil, newClientDelegate(), 0, 0)
	l.Title = "shrub9"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	searchInput := textinput.New()
	searchInput.Placeholder = "label, class or class=XTerm,workspace=1"
	searchInput.CharLimit = 100

	h := help.New()
	h.ShowAll = true

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return Model{
		src:         opts.Source,
		updates:     opts.Updates,
		interval:    interval,
		mode:        ModeList,
		list:        l,
		searchInput: searchInput,
		help:        h,
		keys:        DefaultKeyMap(),
	}
}

type snapshotMsg struct {
	snap *model.Snapshot
	err  error
}

type pollMsg struct{}

type stateMsg struct {
	state dbus.State
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

type actionResultMsg struct {
	text string
	err  error
}

// Init starts the first fetch, the poll timer and the signal watch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch, m.poll(), m.waitForState)
}

func (m Model) fetch() tea.Msg {
	if m.src == nil {
		return snapshotMsg{err: fmt.Errorf("no status source")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snap, err := m.src.Status(ctx)
	return snapshotMsg{snap: snap, err: err}
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// waitForState blocks for the next state change signal.
func (m Model) waitForState() tea.Msg {
	if m.updates == nil {
		return nil
	}
	st, ok := <-m.updates
	if !ok {
		return nil
	}
	return stateMsg{state: st}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Header and keybind bar take one line each.
		m.list.SetSize(msg.Width, msg.Height-3)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.statusMsg = "Status failed: " + msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		if m.statusErr && strings.HasPrefix(m.statusMsg, "Status failed") {
			m.statusMsg, m.statusErr = "", false
		}
		m.snap = msg.snap
		m.list.SetItems(m.buildListItems())
		if m.mode == ModeDetail && m.selected != nil {
			if c, ok := m.snap.Client(m.selected.Window); ok {
				m.selected = &c
				m.viewport.SetContent(m.renderDetail(c))
			}
		}
		return m, nil

	case pollMsg:
		return m, tea.Batch(m.fetch, m.poll())

	case stateMsg:
		if m.snap != nil {
			m.snap.Current = msg.state.Current
			m.snap.Active = msg.state.Active
			m.snap.Mode = msg.state.Mode
		}
		return m, tea.Batch(m.fetch, m.waitForState)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)

	case actionResultMsg:
		if msg.err != nil {
			return m, status(msg.text+" failed: "+msg.err.Error(), true)
		}
		return m, tea.Batch(status(msg.text, false), m.fetch)
	}

	switch m.mode {
	case ModeList:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	case ModeDetail:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case ModeSearch:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search mode owns printable keys.
	if m.mode == ModeSearch {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m, nil
}

// workspaceForKey maps 1-9 to workspaces 0-8 and 0 to the tenth.
func workspaceForKey(k string) (int, bool) {
	if len(k) != 1 || k[0] < '0' || k[0] > '9' {
		return 0, false
	}
	if k[0] == '0' {
		return 9, true
	}
	return int(k[0] - '1'), true
}

func (m Model) selectedClient() (model.Client, bool) {
	if item, ok := m.list.SelectedItem().(clientItem); ok {
		return item.client, true
	}
	return model.Client{}, false
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if c, ok := m.selectedClient(); ok {
			m.openDetail(c)
		}
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if c, ok := m.selectedClient(); ok {
			return m, m.activate(c)
		}
		return m, nil

	case key.Matches(msg, m.keys.Workspace):
		ws, _ := workspaceForKey(msg.String())
		if m.snap != nil && ws >= len(m.snap.Workspaces) {
			return m, status(fmt.Sprintf("No workspace %d", ws+1), true)
		}
		return m, m.switchWorkspace(ws)

	case key.Matches(msg, m.keys.CopyID):
		if c, ok := m.selectedClient(); ok {
			return m, m.copyToClipboard(fmt.Sprintf("0x%x", c.Window))
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyJSON):
		if m.snap == nil {
			return m, nil
		}
		data, err := json.MarshalIndent(m.snap, "", "  ")
		if err != nil {
			return m, status("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyYAML):
		if m.snap == nil {
			return m, nil
		}
		data, err := yaml.Marshal(m.snap)
		if err != nil {
			return m, status("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.Search):
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.searchErr = ""
		m.list.SetItems(m.buildListItems())
		m.mode = ModeSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleDetailKey handles keys in detail mode.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		m.selected = nil
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.selected != nil {
			return m, m.activate(*m.selected)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyID):
		if m.selected != nil {
			return m, m.copyToClipboard(fmt.Sprintf("0x%x", m.selected.Window))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSearchKey handles keys in search mode.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.mode = ModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.searchErr = ""
		m.list.SetItems(m.buildListItems())
		return m, nil

	case tea.KeyEnter:
		if c, ok := m.selectedClient(); ok {
			m.searchInput.Blur()
			m.openDetail(c)
		}
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	m.searchQuery = m.searchInput.Value()
	m.list.SetItems(m.buildListItems())

	return m, cmd
}

func (m *Model) openDetail(c model.Client) {
	m.selected = &c
	m.mode = ModeDetail
	m.viewport.SetContent(m.renderDetail(c))
	m.viewport.GotoTop()
}

func (m Model) activate(c model.Client) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := src.Activate(ctx, c.Window)
		return actionResultMsg{text: fmt.Sprintf("Focused 0x%x", c.Window), err: err}
	}
}

func (m Model) switchWorkspace(ws int) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := src.SwitchWorkspace(ctx, ws)
		return actionResultMsg{text: fmt.Sprintf("Workspace %d", ws+1), err: err}
	}
}

// isFilterExpr reports whether a query uses the field=value filter syntax.
func isFilterExpr(q string) bool {
	return strings.ContainsAny(q, "=<>") || strings.Contains(q, "~")
}

// visibleClients applies the search query to the snapshot's clients.
func (m *Model) visibleClients() []model.Client {
	if m.snap == nil {
		return nil
	}
	clients := append([]model.Client(nil), m.snap.Clients...)
	core.Sort(clients, core.DefaultSortOptions())

	m.searchErr = ""
	q := strings.TrimSpace(m.searchQuery)
	switch {
	case q == "":
		return clients
	case isFilterExpr(q):
		expr, err := core.ParseFilter(q)
		if err != nil {
			// Keep the last good list while the expression is incomplete.
			m.searchErr = err.Error()
			return clients
		}
		return core.FilterWithExpr(clients, expr)
	default:
		return core.Search(clients, q)
	}
}

// buildListItems creates list items from the current snapshot.
func (m *Model) buildListItems() []list.Item {
	clients := m.visibleClients()
	var active uint32
	if m.snap != nil {
		active = m.snap.Active
	}
	items := make([]list.Item, len(clients))
	for i, c := range clients {
		items[i] = clientItem{client: c, active: c.Window == active}
	}
	return items
}

// renderDetail renders the detail view for a client.
func (m Model) renderDetail(c model.Client) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(clientItem{client: c}.Title()) + "\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label+": ") + value + "\n")
	}
	row("Window", fmt.Sprintf("0x%x", c.Window))
	row("Frame", fmt.Sprintf("0x%x", c.Frame))
	row("Name", c.Name)
	row("Class", c.Class)
	row("Instance", c.Instance)
	row("State", c.State)
	if c.Workspace >= 0 {
		row("Workspace", fmt.Sprint(c.Workspace+1))
	} else {
		row("Workspace", "unassigned")
	}
	row("Geometry", fmt.Sprintf("%dx%d+%d+%d", c.Width, c.Height, c.X, c.Y))
	if c.Transient != 0 {
		row("Transient for", fmt.Sprintf("0x%x", c.Transient))
	}
	if c.Launcher != 0 {
		row("Launched from", fmt.Sprintf("0x%x", c.Launcher))
	}

	var flags []string
	if m.snap != nil && m.snap.Active == c.Window {
		flags = append(flags, "active")
	}
	if c.Terminal {
		flags = append(flags, "terminal")
	}
	if c.Fullscreen {
		flags = append(flags, "fullscreen")
	}
	row("Flags", strings.Join(flags, ", "))

	return b.String()
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeSearch:
		return m.viewSearch()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

// workspaceBar renders one cell per workspace, the current one highlighted.
func (m Model) workspaceBar() string {
	if m.snap == nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("waiting for shrub9...")
	}
	cur := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	used := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	empty := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	cells := make([]string, 0, len(m.snap.Workspaces)+1)
	for _, ws := range m.snap.Workspaces {
		text := fmt.Sprintf(" %d:%d ", ws.ID+1, len(ws.Clients))
		switch {
		case ws.ID == m.snap.Current:
			cells = append(cells, cur.Render(text))
		case len(ws.Clients) > 0:
			cells = append(cells, used.Render(text))
		default:
			cells = append(cells, empty.Render(text))
		}
	}

	info := []string{m.snap.Mode}
	if m.snap.Switching {
		info = append(info, "switching")
	}
	if len(m.snap.Hidden) > 0 {
		info = append(info, fmt.Sprintf("%d hidden", len(m.snap.Hidden)))
	}
	if m.snap.Session != nil {
		info = append(info, "up "+strings.TrimSuffix(humanize.Time(time.Unix(m.snap.Session.StartedAt, 0)), " ago"))
	}
	cells = append(cells, empty.Render(" "+strings.Join(info, " · ")))
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) statusLine(mode string) string {
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return statusStyle.Render(m.statusMsg)
	}
	return m.buildKeybindBar(m.width, mode)
}

func (m Model) viewList() string {
	return m.workspaceBar() + "\n" + m.list.View() + "\n" + m.statusLine("list")
}

func (m Model) viewDetail() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	header := headerStyle.Render("Window Detail")

	return header + "\n" + m.viewport.View() + "\n" + m.statusLine("detail")
}

func (m Model) viewSearch() string {
	countStr := fmt.Sprintf("(%d matches)", len(m.list.Items()))
	if m.searchErr != "" {
		countStr = m.searchErr
	}

	searchBar := "Search: " + m.searchInput.View() + " " +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(countStr)

	return searchBar + "\n" + m.list.View() + "\n" + m.buildKeybindBar(m.width, "search")
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.View(m.keys) + "\n"
	s += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")
	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "list", "detail", "search"
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "list":
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "view", 2},
			{"f", "focus", 3},
			{"1-9", "workspace", 4},
			{"?", "help", 5},
			{"/", "search", 6},
			{"y", "copy id", 7},
			{"r", "refresh", 8},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"f", "focus", 3},
			{"y", "copy id", 4},
			{"j/k", "scroll", 5},
		}
	case "search":
		binds = []keybind{
			{"enter", "view", 1},
			{"esc", "close", 2},
			{"↑/↓", "navigate", 3},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(result) + len(b.key) + 1 + len(b.desc)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// Run starts the TUI and blocks until the user quits.
func Run(opts RunOptions) error {
	if opts.Source == nil {
		return fmt.Errorf("tui: no status source")
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
