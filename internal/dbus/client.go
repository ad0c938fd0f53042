package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/shrub9/internal/model"
)

// Client calls the control interface of a running daemon.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{conn: conn, obj: conn.Object(BusName, Path)}, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

// Status fetches the current snapshot.
func (c *Client) Status(ctx context.Context) (*model.Snapshot, error) {
	var data string
	if err := c.call(ctx, "Status").Store(&data); err != nil {
		return nil, fromDBusError(err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// SwitchWorkspace asks the daemon to show workspace ws.
func (c *Client) SwitchWorkspace(ctx context.Context, ws int) error {
	return fromDBusError(c.call(ctx, "SwitchWorkspace", int32(ws)).Err)
}

// Activate asks the daemon to raise and focus window w.
func (c *Client) Activate(ctx context.Context, w uint32) error {
	return fromDBusError(c.call(ctx, "Activate", w).Err)
}

// Reload asks the daemon to reread its configuration file.
func (c *Client) Reload(ctx context.Context) error {
	return fromDBusError(c.call(ctx, "Reload").Err)
}

// ServerInformation returns the daemon's name, vendor and version.
func (c *Client) ServerInformation(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.call(ctx, "GetServerInformation").Store(&info.Name, &info.Vendor, &info.Version)
	if err != nil {
		return ServerInfo{}, fromDBusError(err)
	}
	return info, nil
}

// Watcher delivers StateChanged signals from the daemon.
type Watcher struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	signals chan *dbus.Signal
	states  chan State
	done    chan struct{}
}

// Watch subscribes to StateChanged. The returned channel is closed by Stop.
func (c *Client) Watch(logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := c.conn.AddMatchSignal(
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember("StateChanged"),
		dbus.WithMatchObjectPath(Path),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}
	w := &Watcher{
		conn:    c.conn,
		logger:  logger,
		signals: make(chan *dbus.Signal, 16),
		states:  make(chan State, 16),
		done:    make(chan struct{}),
	}
	c.conn.Signal(w.signals)
	go w.run()
	return w, nil
}

// States returns the channel of received states.
func (w *Watcher) States() <-chan State {
	return w.states
}

func (w *Watcher) run() {
	defer close(w.states)
	for {
		select {
		case <-w.done:
			return
		case sig, ok := <-w.signals:
			if !ok {
				return
			}
			st, ok := parseStateChanged(sig)
			if !ok {
				continue
			}
			select {
			case w.states <- st:
			default:
				w.logger.Debug("dropped state signal", "workspace", st.Current)
			}
		}
	}
}

// Stop removes the match rule and ends delivery.
func (w *Watcher) Stop() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	w.conn.RemoveSignal(w.signals)
	return w.conn.RemoveMatchSignal(
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember("StateChanged"),
		dbus.WithMatchObjectPath(Path),
	)
}
