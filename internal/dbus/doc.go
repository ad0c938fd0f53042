// Package dbus exposes the window manager on the session bus as
// org.jmylchreest.Shrub9. The daemon exports a ControlServer backed by a
// Controller; shrub9ctl talks to it through Client and follows state
// changes with a Watcher.
package dbus
