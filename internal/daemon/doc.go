// Package daemon runs the window manager. A single loop goroutine owns the
// wm.Manager and serialises X events, heartbeat ticks, control requests
// from D-Bus and configuration reloads.
package daemon
