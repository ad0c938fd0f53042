// Package model defines the status data shared by the window manager, the
// D-Bus control interface and the CLI formatters.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session identifies one run of the window manager daemon.
type Session struct {
	ID        string `json:"id" yaml:"id"`
	StartedAt int64  `json:"started_at" yaml:"started_at"`
	PID       int    `json:"pid" yaml:"pid"`
}

// NewSession creates a session with a generated ULID.
func NewSession(pid int) (*Session, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}
	return &Session{ID: id.String(), StartedAt: now.Unix(), PID: pid}, nil
}

// Uptime returns how long the session has been running at now.
func (s *Session) Uptime(now time.Time) time.Duration {
	if s == nil || s.StartedAt == 0 {
		return 0
	}
	d := now.Sub(time.Unix(s.StartedAt, 0))
	if d < 0 {
		return 0
	}
	return d
}

// Client is the exported view of one managed window.
type Client struct {
	Window     uint32 `json:"window" yaml:"window"`
	Frame      uint32 `json:"frame" yaml:"frame"`
	Label      string `json:"label" yaml:"label"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Instance   string `json:"instance,omitempty" yaml:"instance,omitempty"`
	Class      string `json:"class,omitempty" yaml:"class,omitempty"`
	State      string `json:"state" yaml:"state"`
	Workspace  int    `json:"workspace" yaml:"workspace"`
	X          int    `json:"x" yaml:"x"`
	Y          int    `json:"y" yaml:"y"`
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	Active     bool   `json:"active,omitempty" yaml:"active,omitempty"`
	Transient  uint32 `json:"transient,omitempty" yaml:"transient,omitempty"`
	Terminal   bool   `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	Fullscreen bool   `json:"fullscreen,omitempty" yaml:"fullscreen,omitempty"`
	// Launcher is the terminal window this client replaced, if any.
	Launcher uint32 `json:"launcher,omitempty" yaml:"launcher,omitempty"`
}

// Hidden reports whether the client is iconified.
func (c Client) Hidden() bool {
	return c.State == "iconic"
}

// Workspace is the exported view of one workspace.
type Workspace struct {
	ID         int      `json:"id" yaml:"id"`
	Visible    bool     `json:"visible" yaml:"visible"`
	Clients    []uint32 `json:"clients" yaml:"clients"`
	LastActive uint32   `json:"last_active,omitempty" yaml:"last_active,omitempty"`
}

// Snapshot is the complete window manager state at one point in time.
type Snapshot struct {
	Session    *Session    `json:"session,omitempty" yaml:"session,omitempty"`
	TakenAt    int64       `json:"taken_at" yaml:"taken_at"`
	Current    int         `json:"current" yaml:"current"`
	Active     uint32      `json:"active,omitempty" yaml:"active,omitempty"`
	Mode       string      `json:"mode" yaml:"mode"`
	Pending    int         `json:"pending_unmaps" yaml:"pending_unmaps"`
	Switching  bool        `json:"switching" yaml:"switching"`
	Workspaces []Workspace `json:"workspaces" yaml:"workspaces"`
	Clients    []Client    `json:"clients" yaml:"clients"`
	Hidden     []uint32    `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// Validation errors.
var (
	ErrNoWorkspaces     = errors.New("snapshot has no workspaces")
	ErrCurrentRange     = errors.New("current workspace out of range")
	ErrUnknownWorkspace = errors.New("client names an unknown workspace")
	ErrDuplicateMember  = errors.New("client listed in more than one workspace")
	ErrMembership       = errors.New("workspace membership does not match client")
)

// Validate checks the structural invariants of a snapshot: the current
// workspace exists and every client is listed exactly in the workspace it
// names, or in none when unassigned.
func (s *Snapshot) Validate() error {
	if len(s.Workspaces) == 0 {
		return ErrNoWorkspaces
	}
	if s.Current < 0 || s.Current >= len(s.Workspaces) {
		return fmt.Errorf("%w: %d", ErrCurrentRange, s.Current)
	}
	listed := make(map[uint32]int)
	for _, ws := range s.Workspaces {
		for _, w := range ws.Clients {
			if _, dup := listed[w]; dup {
				return fmt.Errorf("%w: 0x%x", ErrDuplicateMember, w)
			}
			listed[w] = ws.ID
		}
	}
	for _, c := range s.Clients {
		ws, ok := listed[c.Window]
		switch {
		case c.Workspace == -1 && ok:
			return fmt.Errorf("%w: 0x%x is unassigned but listed", ErrMembership, c.Window)
		case c.Workspace == -1:
		case c.Workspace < 0 || c.Workspace >= len(s.Workspaces):
			return fmt.Errorf("%w: 0x%x on %d", ErrUnknownWorkspace, c.Window, c.Workspace)
		case !ok || ws != c.Workspace:
			return fmt.Errorf("%w: 0x%x", ErrMembership, c.Window)
		}
	}
	return nil
}

// Client returns the client with the given window id.
func (s *Snapshot) Client(w uint32) (Client, bool) {
	for _, c := range s.Clients {
		if c.Window == w {
			return c, true
		}
	}
	return Client{}, false
}

// ActiveClient returns the client holding focus.
func (s *Snapshot) ActiveClient() (Client, bool) {
	if s.Active == 0 {
		return Client{}, false
	}
	return s.Client(s.Active)
}

// OnWorkspace returns the clients assigned to ws in snapshot order.
func (s *Snapshot) OnWorkspace(ws int) []Client {
	var out []Client
	for _, c := range s.Clients {
		if c.Workspace == ws {
			out = append(out, c)
		}
	}
	return out
}
