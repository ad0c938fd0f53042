package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// callTimeout bounds how long a bus call waits for the window manager loop.
const callTimeout = 2 * time.Second

// ControlServer exports the control interface on the session bus.
type ControlServer struct {
	conn   *dbus.Conn
	logger *slog.Logger
	ctrl   Controller

	mu         sync.Mutex
	serverInfo ServerInfo
	running    bool
	last       State
	emitted    bool
}

// NewControlServer creates a server that forwards calls to ctrl.
func NewControlServer(ctrl Controller, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{
		ctrl:       ctrl,
		logger:     logger,
		serverInfo: DefaultServerInfo(),
	}
}

// SetServerInfo sets the server information returned by GetServerInformation.
func (s *ControlServer) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverInfo = info
}

// Start connects to the session bus, exports the control object and claims
// the bus name.
func (s *ControlServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus control server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, Path, Interface)
		// The session bus connection is shared, so it stays open.
	}

	s.logger.Info("D-Bus control server stopped")
	return nil
}

func (s *ControlServer) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

// GetServerInformation returns the server name, vendor and version.
// D-Bus method: GetServerInformation() -> (sss)
func (s *ControlServer) GetServerInformation() (string, string, string, *dbus.Error) {
	s.mu.Lock()
	info := s.serverInfo
	s.mu.Unlock()
	return info.Name, info.Vendor, info.Version, nil
}

// Status returns the current snapshot as JSON.
// D-Bus method: Status() -> s
func (s *ControlServer) Status() (string, *dbus.Error) {
	ctx, cancel := s.callContext()
	defer cancel()

	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		return "", toDBusError(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", toDBusError(fmt.Errorf("encode snapshot: %w", err))
	}
	return string(data), nil
}

// SwitchWorkspace makes ws the visible workspace.
// D-Bus method: SwitchWorkspace(i) -> nothing
func (s *ControlServer) SwitchWorkspace(ws int32) *dbus.Error {
	s.logger.Debug("SwitchWorkspace called", "workspace", ws)
	ctx, cancel := s.callContext()
	defer cancel()
	return toDBusError(s.ctrl.SwitchWorkspace(ctx, int(ws)))
}

// Activate raises and focuses a managed window.
// D-Bus method: Activate(u) -> nothing
func (s *ControlServer) Activate(window uint32) *dbus.Error {
	s.logger.Debug("Activate called", "window", fmt.Sprintf("0x%x", window))
	ctx, cancel := s.callContext()
	defer cancel()
	return toDBusError(s.ctrl.Activate(ctx, window))
}

// Reload rereads the configuration file.
// D-Bus method: Reload() -> nothing
func (s *ControlServer) Reload() *dbus.Error {
	s.logger.Debug("Reload called")
	ctx, cancel := s.callContext()
	defer cancel()
	return toDBusError(s.ctrl.Reload(ctx))
}

// controlMethods returns the D-Bus method introspection data.
func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "snapshot", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "SwitchWorkspace",
			Args: []introspect.Arg{
				{Name: "workspace", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "Activate",
			Args: []introspect.Arg{
				{Name: "window", Type: "u", Direction: "in"},
			},
		},
		{Name: "Reload"},
	}
}

// controlSignals returns the D-Bus signal introspection data.
func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "StateChanged",
			Args: []introspect.Arg{
				{Name: "workspace", Type: "i"},
				{Name: "active", Type: "u"},
				{Name: "mode", Type: "s"},
			},
		},
	}
}
