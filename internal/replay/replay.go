// Package replay runs scripted event sequences against the window manager
// core on an in-memory display. Scripts are YAML: the windows that exist
// before the manager starts, a list of steps each dispatching one event, and
// expectations checked after any step.
package replay

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/display/displaytest"
	"github.com/jmylchreest/shrub9/internal/event"
	"github.com/jmylchreest/shrub9/internal/model"
	"github.com/jmylchreest/shrub9/internal/wm"
)

// timeStep is the gap between steps that carry no timestamp.
const timeStep = 10

// Script is a replayable scenario.
type Script struct {
	Name     string   `yaml:"name"`
	Settings Settings `yaml:"settings,omitempty"`
	Windows  []Window `yaml:"windows,omitempty"`
	Pointer  *Point   `yaml:"pointer,omitempty"`
	Steps    []Step   `yaml:"steps"`
	Expect   *Expect  `yaml:"expect,omitempty"`
}

// Settings overrides parts of the default configuration.
type Settings struct {
	Workspaces  int        `yaml:"workspaces,omitempty"`
	Menu        []MenuItem `yaml:"menu,omitempty"`
	Terminal    string     `yaml:"terminal,omitempty"`
	Launcher    *bool      `yaml:"launcher,omitempty"`
	AutoReshape *bool      `yaml:"auto_reshape,omitempty"`
}

// MenuItem mirrors a configured menu entry.
type MenuItem struct {
	Label   string     `yaml:"label"`
	Command string     `yaml:"command,omitempty"`
	Items   []MenuItem `yaml:"items,omitempty"`
}

// Window is a client window present on the fake server before startup.
type Window struct {
	ID        display.Window `yaml:"id"`
	X         int            `yaml:"x,omitempty"`
	Y         int            `yaml:"y,omitempty"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Name      string         `yaml:"name,omitempty"`
	Class     string         `yaml:"class,omitempty"`
	Mapped    bool           `yaml:"mapped,omitempty"`
	State     string         `yaml:"state,omitempty"`
	Transient display.Window `yaml:"transient,omitempty"`
	Delete    bool           `yaml:"delete,omitempty"`
	Override  bool           `yaml:"override_redirect,omitempty"`
}

// Point is a pointer position.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Step dispatches one event. The pointer is moved, windows are added and
// windows vanish before the event is dispatched; a step without a kind only
// checks expectations.
type Step struct {
	event.Event `yaml:",inline"`
	Note        string           `yaml:"note,omitempty"`
	Add         []Window         `yaml:"add,omitempty"`
	MovePointer *Point           `yaml:"pointer,omitempty"`
	Vanish      []display.Window `yaml:"vanish,omitempty"`
	Expect      *Expect          `yaml:"expect,omitempty"`
}

// Expect lists the conditions to check. Unset fields are not checked.
// Members lists each workspace most recently used first. A state of "gone"
// expects the window to be unmanaged.
type Expect struct {
	Workspace *int                            `yaml:"workspace,omitempty"`
	Active    *display.Window                 `yaml:"active,omitempty"`
	Mode      string                          `yaml:"mode,omitempty"`
	Pending   *int                            `yaml:"pending,omitempty"`
	Switching *bool                           `yaml:"switching,omitempty"`
	Deferred  *int                            `yaml:"deferred,omitempty"`
	States    map[display.Window]string       `yaml:"states,omitempty"`
	Mapped    map[display.Window]bool         `yaml:"mapped,omitempty"`
	Members   map[int][]display.Window        `yaml:"members,omitempty"`
	Geometry  map[display.Window]display.Rect `yaml:"geometry,omitempty"`
	Hidden    []display.Window                `yaml:"hidden,omitempty"`
	Spawned   []string                        `yaml:"spawned,omitempty"`
	Action    string                          `yaml:"action,omitempty"`
}

// Failure is an expectation that did not hold.
type Failure struct {
	Step int    `json:"step" yaml:"step"`
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
	Err  string `json:"error" yaml:"error"`
}

// Result is the outcome of a replay.
type Result struct {
	Name     string         `json:"name" yaml:"name"`
	Steps    int            `json:"steps" yaml:"steps"`
	Action   string         `json:"action" yaml:"action"`
	Requests int            `json:"requests" yaml:"requests"`
	Spawned  []string       `json:"spawned,omitempty" yaml:"spawned,omitempty"`
	Failures []Failure      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Snapshot model.Snapshot `json:"snapshot" yaml:"snapshot"`
}

// OK reports whether every expectation held.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Steps) == 0 && s.Expect == nil {
		return nil, errors.New("script has no steps")
	}
	windows := slices.Clone(s.Windows)
	for _, st := range s.Steps {
		windows = append(windows, st.Add...)
	}
	for _, w := range windows {
		if w.ID == display.None {
			return nil, errors.New("script window has no id")
		}
		if _, err := parseState(w.State); err != nil {
			return nil, fmt.Errorf("window %s: %w", w.ID, err)
		}
	}
	return &s, nil
}

// Config builds the configuration the script runs with.
func (s *Script) Config() *config.Config {
	cfg := config.DefaultConfig()
	set := s.Settings
	if set.Workspaces > 0 {
		cfg.Workspaces.Count = set.Workspaces
		keys := cfg.Workspaces.Keys[:0]
		for _, k := range cfg.Workspaces.Keys {
			if k.Workspace < set.Workspaces {
				keys = append(keys, k)
			}
		}
		cfg.Workspaces.Keys = keys
	}
	if len(set.Menu) > 0 {
		cfg.Menu.Items = convertMenu(set.Menu)
	}
	if set.Terminal != "" {
		cfg.Terminal.Command = set.Terminal
	}
	if set.Launcher != nil {
		cfg.Terminal.LauncherMode = *set.Launcher
	}
	if set.AutoReshape != nil {
		cfg.Behavior.AutoReshapeTerminal = *set.AutoReshape
	}
	return cfg
}

func convertMenu(items []MenuItem) []config.MenuItem {
	out := make([]config.MenuItem, 0, len(items))
	for _, it := range items {
		out = append(out, config.MenuItem{Label: it.Label, Command: it.Command, Items: convertMenu(it.Items)})
	}
	return out
}

func parseState(s string) (display.State, error) {
	switch strings.ToLower(s) {
	case "", "withdrawn":
		return display.StateWithdrawn, nil
	case "normal":
		return display.StateNormal, nil
	case "iconic":
		return display.StateIconic, nil
	}
	return display.StateWithdrawn, fmt.Errorf("unknown state %q", s)
}

type recordingSpawner struct {
	commands []string
}

func (s *recordingSpawner) Spawn(command string) error {
	s.commands = append(s.commands, command)
	return nil
}

type runner struct {
	rec   *displaytest.Recorder
	m     *wm.Manager
	spawn *recordingSpawner
}

// Run replays the script and checks its expectations. The returned error is
// only set when the script could not run; failed expectations are reported
// in the result.
func Run(s *Script, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := s.Config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	rec := displaytest.New()
	if s.Pointer != nil {
		rec.MovePointer(s.Pointer.X, s.Pointer.Y)
	}
	for _, w := range s.Windows {
		if err := addWindow(rec, w); err != nil {
			return nil, err
		}
	}

	r := &runner{rec: rec, spawn: &recordingSpawner{}}
	r.m = wm.New(cfg, rec, rec, r.spawn, logger)
	if err := r.m.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	res := &Result{Name: s.Name, Action: wm.Continue.String()}
	clock := uint32(1000)
	last := wm.Continue
	for i, step := range s.Steps {
		if step.MovePointer != nil {
			rec.MovePointer(step.MovePointer.X, step.MovePointer.Y)
		}
		for _, w := range step.Add {
			if err := addWindow(rec, w); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		for _, w := range step.Vanish {
			rec.Vanish(w)
		}
		act := wm.Continue
		if step.Kind != event.KindNone {
			ev := step.Event
			if ev.Time == 0 {
				clock += timeStep
				ev.Time = clock
			} else {
				clock = ev.Time
			}
			act = r.m.Dispatch(ev)
			res.Steps++
		}
		last = act
		res.Action = act.String()
		if step.Expect != nil {
			if err := r.check(step.Expect, act); err != nil {
				res.Failures = append(res.Failures, Failure{Step: i + 1, Note: step.Note, Err: err.Error()})
			}
		}
		if act != wm.Continue {
			logger.Debug("replay stopped", "step", i+1, "action", act)
			break
		}
	}
	if s.Expect != nil {
		if err := r.check(s.Expect, last); err != nil {
			res.Failures = append(res.Failures, Failure{Step: 0, Note: "final", Err: err.Error()})
		}
	}

	res.Requests = len(rec.Calls)
	res.Spawned = r.spawn.commands
	res.Snapshot = r.m.Snapshot()
	return res, nil
}

func addWindow(rec *displaytest.Recorder, w Window) error {
	fw := rec.AddWindow(w.ID, display.Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}, display.Properties{
		Name:         w.Name,
		Class:        w.Class,
		TransientFor: w.Transient,
		DeleteWindow: w.Delete,
	})
	fw.Info.OverrideRedirect = w.Override
	if w.State != "" {
		fw.State, _ = parseState(w.State)
		fw.HasState = true
	}
	if w.Mapped {
		if err := rec.Map(w.ID); err != nil {
			return fmt.Errorf("map window %s: %w", w.ID, err)
		}
	}
	return nil
}

// check evaluates one expectation block and joins every mismatch.
func (r *runner) check(e *Expect, act wm.Action) error {
	var errs []error
	mismatch := func(what string, want, got any) {
		errs = append(errs, fmt.Errorf("%s: want %v, got %v", what, want, got))
	}

	snap := r.m.Snapshot()
	// Exit and restart release every client, so membership no longer holds.
	if act == wm.Continue {
		if err := snap.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.Workspace != nil && *e.Workspace != snap.Current {
		mismatch("workspace", *e.Workspace, snap.Current)
	}
	if e.Active != nil && uint32(*e.Active) != snap.Active {
		mismatch("active", *e.Active, display.Window(snap.Active))
	}
	if e.Mode != "" && e.Mode != snap.Mode {
		mismatch("mode", e.Mode, snap.Mode)
	}
	if e.Pending != nil && *e.Pending != snap.Pending {
		mismatch("pending unmaps", *e.Pending, snap.Pending)
	}
	if e.Switching != nil && *e.Switching != snap.Switching {
		mismatch("switching", *e.Switching, snap.Switching)
	}
	if e.Deferred != nil && *e.Deferred != r.m.Deferred() {
		mismatch("deferred", *e.Deferred, r.m.Deferred())
	}
	if e.Action != "" && e.Action != act.String() {
		mismatch("action", e.Action, act)
	}
	for _, w := range sortedKeys(e.States) {
		want := strings.ToLower(e.States[w])
		c, ok := snap.Client(uint32(w))
		switch {
		case want == "gone" && ok:
			mismatch("state of "+w.String(), want, c.State)
		case want == "gone":
		case !ok:
			mismatch("state of "+w.String(), want, "not managed")
		case c.State != want:
			mismatch("state of "+w.String(), want, c.State)
		}
	}
	for _, w := range sortedKeys(e.Mapped) {
		if got := r.rec.IsMapped(w); got != e.Mapped[w] {
			mismatch("mapped "+w.String(), e.Mapped[w], got)
		}
	}
	for _, w := range sortedKeys(e.Geometry) {
		c, ok := snap.Client(uint32(w))
		got := display.Rect{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
		if !ok || got != e.Geometry[w] {
			mismatch("geometry of "+w.String(), e.Geometry[w], got)
		}
	}
	for ws, want := range e.Members {
		if ws < 0 || ws >= len(snap.Workspaces) {
			mismatch(fmt.Sprintf("workspace %d", ws), "exists", "out of range")
			continue
		}
		got := snap.Workspaces[ws].Clients
		if !sameWindows(want, got) {
			mismatch(fmt.Sprintf("members of %d", ws), want, windows(got))
		}
	}
	if e.Hidden != nil && !sameWindows(e.Hidden, snap.Hidden) {
		mismatch("hidden", e.Hidden, windows(snap.Hidden))
	}
	if e.Spawned != nil && !slices.Equal(e.Spawned, r.spawn.commands) {
		mismatch("spawned", e.Spawned, r.spawn.commands)
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[display.Window]V) []display.Window {
	keys := make([]display.Window, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sameWindows(want []display.Window, got []uint32) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if uint32(want[i]) != got[i] {
			return false
		}
	}
	return true
}

func windows(ids []uint32) []display.Window {
	out := make([]display.Window, len(ids))
	for i, id := range ids {
		out[i] = display.Window(id)
	}
	return out
}
