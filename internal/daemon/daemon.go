package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/dbus"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
	"github.com/jmylchreest/shrub9/internal/model"
	"github.com/jmylchreest/shrub9/internal/store"
	"github.com/jmylchreest/shrub9/internal/wm"
	"github.com/jmylchreest/shrub9/internal/x11"
)

// ErrStopped is returned to control requests that arrive after the loop ended.
var ErrStopped = errors.New("window manager loop has stopped")

// Conn is the display connection the daemon drives. Next blocks for the
// next event and returns x11.ErrClosed once Close has been called.
type Conn interface {
	display.Display
	display.Renderer
	Next() (event.Event, error)
	Close()
}

// Options configures a Daemon.
type Options struct {
	// ConfigPath is watched for changes and reread by Reload. Empty
	// disables both.
	ConfigPath string
	// Version is reported over D-Bus.
	Version string
	// RestartPath is where the workspace layout is handed to the next run
	// on restart. Empty disables it.
	RestartPath string
	// DBus exports the control interface on the session bus.
	DBus   bool
	Logger *slog.Logger
}

// request is a control operation run on the loop goroutine.
type request struct {
	apply func(m *wm.Manager) error
	reply chan error
}

// Daemon owns the window manager and everything that feeds it.
type Daemon struct {
	cfg         *config.Config
	cfgPath     string
	restartPath string
	conn        Conn
	m           *wm.Manager
	session     *model.Session
	logger      *slog.Logger
	version     string
	server      *dbus.ControlServer

	events   chan event.Event
	requests chan request
	reloads  chan *config.Config
	done     chan struct{}

	closeOnce sync.Once

	// serverTime is the last timestamp the X server sent and seenAt the
	// moment it arrived. Heartbeat ticks are stamped relative to them.
	serverTime uint32
	seenAt     time.Time
}

// New wires a window manager to conn. The caller keeps ownership of cfg.
func New(cfg *config.Config, conn Conn, spawner wm.Spawner, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	session, err := model.NewSession(os.Getpid())
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:         cfg,
		cfgPath:     opts.ConfigPath,
		restartPath: opts.RestartPath,
		conn:        conn,
		m:           wm.New(cfg, conn, conn, spawner, logger),
		session:     session,
		logger:      logger,
		version:     opts.Version,
		events:      make(chan event.Event, 64),
		requests:    make(chan request),
		reloads:     make(chan *config.Config, 1),
		done:        make(chan struct{}),
	}
	if opts.DBus {
		d.server = dbus.NewControlServer(d, logger)
		info := dbus.DefaultServerInfo()
		if opts.Version != "" {
			info.Version = opts.Version
		}
		d.server.SetServerInfo(info)
	}
	return d, nil
}

// Session returns the identity of this run.
func (d *Daemon) Session() *model.Session {
	return d.session
}

// Run adopts the existing windows and serves events until the window
// manager asks to exit or restart, or ctx is cancelled. The connection is
// torn down and closed before Run returns.
func (d *Daemon) Run(ctx context.Context) (wm.Action, error) {
	if err := d.m.Start(); err != nil {
		d.closeConn()
		return wm.Exit, fmt.Errorf("failed to start window manager: %w", err)
	}
	d.logger.Info("window manager started",
		"session", d.session.ID,
		"workspaces", d.m.Workspaces().Count(),
		"clients", len(d.m.Registry().All()))
	d.restoreLayout()

	if d.server != nil {
		if err := d.server.Start(); err != nil {
			d.logger.Warn("D-Bus control interface unavailable", "error", err)
		} else {
			defer func() {
				if err := d.server.Stop(); err != nil {
					d.logger.Warn("failed to stop D-Bus server", "error", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.readEvents(gctx)
	})

	if d.cfgPath != "" {
		watcher := NewConfigWatcher(d.cfgPath, d.logger)
		watcher.SetReloadCallback(func(cfg *config.Config) {
			select {
			case d.reloads <- cfg:
			case <-gctx.Done():
			}
		})
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	act := wm.Continue
	g.Go(func() error {
		defer cancel()
		act = d.loop(gctx)
		return nil
	})

	err := g.Wait()
	if act == wm.Continue {
		act = wm.Exit
	}
	return act, err
}

// readEvents forwards server events to the loop until the connection closes.
func (d *Daemon) readEvents(ctx context.Context) error {
	for {
		ev, err := d.conn.Next()
		if err != nil {
			if errors.Is(err, x11.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to read event: %w", err)
		}
		select {
		case d.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// loop is the only goroutine that touches the manager.
func (d *Daemon) loop(ctx context.Context) wm.Action {
	defer close(d.done)
	defer d.closeConn()

	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down")
			d.m.Close()
			return wm.Exit

		case ev := <-d.events:
			if ev.Kind == event.KindError {
				d.logger.Debug("protocol error", "window", ev.Window, "error", ev.Error)
			}
			if ev.Time != 0 {
				d.serverTime, d.seenAt = ev.Time, time.Now()
			}
			if ev.Kind == event.KindClientMessage && ev.Atom == event.AtomRestart {
				d.saveLayout()
			}
			if act := d.m.Dispatch(ev); act != wm.Continue {
				d.logger.Info("window manager finished", "action", act.String())
				return act
			}

		case now := <-tick:
			d.m.Dispatch(event.Event{Kind: event.KindTick, Time: d.tickTime(now)})

		case req := <-d.requests:
			req.reply <- req.apply(d.m)

		case cfg := <-d.reloads:
			d.apply(cfg)
		}

		if d.needsHeartbeat() {
			if ticker == nil {
				ticker = time.NewTicker(d.heartbeat())
				tick = ticker.C
			}
		} else if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		d.publish()
	}
}

// saveLayout records workspace membership for the next run. Teardown
// forgets it, so this runs before the restart message is dispatched.
func (d *Daemon) saveLayout() {
	if d.restartPath == "" {
		return
	}
	snap := d.m.Snapshot()
	snap.Session = d.session
	if err := store.SaveRestartState(d.restartPath, store.FromSnapshot(&snap, time.Now())); err != nil {
		d.logger.Warn("failed to save layout for restart", "path", d.restartPath, "error", err)
		return
	}
	d.logger.Debug("saved layout for restart", "path", d.restartPath)
}

// restoreLayout puts adopted windows back on the workspaces a previous run
// recorded before restarting.
func (d *Daemon) restoreLayout() {
	if d.restartPath == "" {
		return
	}
	st, err := store.TakeRestartState(d.restartPath, time.Now())
	if err != nil {
		d.logger.Warn("ignoring restart layout", "path", d.restartPath, "error", err)
		return
	}
	if st == nil {
		return
	}
	order := make(map[int][]display.Window, len(st.Order))
	for ws, wins := range st.Order {
		for _, w := range wins {
			order[ws] = append(order[ws], display.Window(w))
		}
	}
	if len(order) == 0 {
		for w, ws := range st.Workspaces {
			order[ws] = append(order[ws], display.Window(w))
		}
	}
	d.m.Restore(st.Current, order)
	d.logger.Info("restored layout from previous run", "session", st.SessionID)
}

func (d *Daemon) closeConn() {
	d.closeOnce.Do(d.conn.Close)
}

// needsHeartbeat reports whether time must advance without input: during a
// modal operation and while a workspace switch waits for its unmaps.
func (d *Daemon) needsHeartbeat() bool {
	return d.m.Modal().Active() || d.m.Workspaces().Switching()
}

func (d *Daemon) heartbeat() time.Duration {
	hb := d.cfg.Behavior.SweepHeartbeat.Duration()
	if hb <= 0 {
		hb = config.DefaultSweepHeartbeat
	}
	return hb
}

// tickTime extrapolates the server clock to now.
func (d *Daemon) tickTime(now time.Time) uint32 {
	if d.seenAt.IsZero() {
		return d.serverTime
	}
	return d.serverTime + uint32(now.Sub(d.seenAt).Milliseconds())
}

// apply installs a reloaded configuration.
func (d *Daemon) apply(cfg *config.Config) {
	if err := d.m.UpdateConfig(cfg); err != nil {
		d.logger.Warn("failed to apply configuration", "error", err)
		return
	}
	d.cfg = cfg
}

// state is the summary broadcast in StateChanged.
func (d *Daemon) state() dbus.State {
	st := dbus.State{
		Current: d.m.Workspaces().Current(),
		Mode:    d.m.Modal().Mode().String(),
	}
	if c, ok := d.m.Focus().Current(); ok {
		st.Active = uint32(c.Window)
	}
	return st
}

func (d *Daemon) publish() {
	if d.server == nil {
		return
	}
	if _, err := d.server.EmitStateChanged(d.state()); err != nil {
		d.logger.Debug("failed to publish state", "error", err)
	}
}
