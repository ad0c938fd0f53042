package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/shrub9/internal/model"
	"github.com/jmylchreest/shrub9/internal/wm"
	"github.com/jmylchreest/shrub9/internal/workspace"
)

const (
	// Interface is the control interface name.
	Interface = "org.jmylchreest.Shrub9"
	// Path is the control object path.
	Path = "/org/jmylchreest/Shrub9"
	// BusName is the bus name the daemon claims.
	BusName = "org.jmylchreest.Shrub9"
)

// Error names returned by the control interface.
const (
	ErrorBusy          = Interface + ".Error.Busy"
	ErrorUnknownWindow = Interface + ".Error.UnknownWindow"
	ErrorWithdrawn     = Interface + ".Error.Withdrawn"
	ErrorOutOfRange    = Interface + ".Error.OutOfRange"
	ErrorTimeout       = Interface + ".Error.Timeout"
	ErrorFailed        = Interface + ".Error.Failed"
)

// ErrNotRunning is returned by the client when no daemon owns the bus name.
var ErrNotRunning = errors.New("shrub9 is not running")

// errorNames pairs the sentinels that cross the bus with their error names.
var errorNames = []struct {
	err  error
	name string
}{
	{wm.ErrBusy, ErrorBusy},
	{wm.ErrUnknownWindow, ErrorUnknownWindow},
	{wm.ErrWithdrawn, ErrorWithdrawn},
	{workspace.ErrOutOfRange, ErrorOutOfRange},
	{context.DeadlineExceeded, ErrorTimeout},
}

// Controller is the daemon side of the control interface. Implementations
// run each call on the window manager's own goroutine.
type Controller interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
	SwitchWorkspace(ctx context.Context, ws int) error
	Activate(ctx context.Context, w uint32) error
	Reload(ctx context.Context) error
}

// ServerInfo is returned by GetServerInformation.
type ServerInfo struct {
	Name    string
	Vendor  string
	Version string
}

// DefaultServerInfo returns the server information for this build.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:    "shrub9",
		Vendor:  "jmylchreest",
		Version: "dev",
	}
}

// State is the payload of the StateChanged signal.
type State struct {
	Current int
	Active  uint32
	Mode    string
}

// StateOf extracts the signalled fields from a snapshot.
func StateOf(s model.Snapshot) State {
	return State{Current: s.Current, Active: s.Active, Mode: s.Mode}
}

// toDBusError converts a controller error into a named bus error.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return dbus.NewError(e.name, []interface{}{err.Error()})
		}
	}
	return dbus.NewError(ErrorFailed, []interface{}{err.Error()})
}

// fromDBusError turns a bus error back into an error wrapping the matching
// sentinel, so callers can use errors.Is on either side of the bus.
func fromDBusError(err error) error {
	if err == nil {
		return nil
	}
	var name string
	var body []interface{}
	var val dbus.Error
	var ptr *dbus.Error
	switch {
	case errors.As(err, &ptr) && ptr != nil:
		name, body = ptr.Name, ptr.Body
	case errors.As(err, &val):
		name, body = val.Name, val.Body
	default:
		return err
	}

	msg := name
	if len(body) > 0 {
		if s, ok := body[0].(string); ok {
			msg = s
		}
	}
	if name == "org.freedesktop.DBus.Error.ServiceUnknown" || name == "org.freedesktop.DBus.Error.NameHasNoOwner" {
		return fmt.Errorf("%w: %s", ErrNotRunning, msg)
	}
	for _, e := range errorNames {
		if e.name == name {
			if msg == e.err.Error() {
				return e.err
			}
			return fmt.Errorf("%w (%s)", e.err, msg)
		}
	}
	return errors.New(msg)
}
