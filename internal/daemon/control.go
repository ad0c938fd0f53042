package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/model"
	"github.com/jmylchreest/shrub9/internal/wm"
)

// do runs fn on the loop goroutine and waits for its result.
func (d *Daemon) do(ctx context.Context, fn func(m *wm.Manager) error) error {
	req := request{apply: fn, reply: make(chan error, 1)}
	select {
	case d.requests <- req:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state stamped with the session.
func (d *Daemon) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := d.do(ctx, func(m *wm.Manager) error {
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.Session = d.session
	snap.TakenAt = time.Now().Unix()
	return snap, nil
}

// SwitchWorkspace shows workspace ws.
func (d *Daemon) SwitchWorkspace(ctx context.Context, ws int) error {
	return d.do(ctx, func(m *wm.Manager) error {
		return m.SwitchWorkspace(ws)
	})
}

// Activate raises and focuses window w.
func (d *Daemon) Activate(ctx context.Context, w uint32) error {
	return d.do(ctx, func(m *wm.Manager) error {
		return m.ActivateWindow(display.Window(w))
	})
}

// Reload rereads the configuration file and applies it.
func (d *Daemon) Reload(ctx context.Context) error {
	if d.cfgPath == "" {
		return fmt.Errorf("no configuration file")
	}
	cfg, err := config.LoadConfig(d.cfgPath)
	if err != nil {
		return err
	}
	return d.do(ctx, func(m *wm.Manager) error {
		if err := m.UpdateConfig(cfg); err != nil {
			return err
		}
		d.cfg = cfg
		return nil
	})
}
