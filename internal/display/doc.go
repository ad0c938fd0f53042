// Package display defines the ports the window manager core talks through.
// Display covers window, pointer, focus and property requests; Renderer covers
// frame colours, menus and the rubber-band outline. The X11 adapter in
// internal/x11 implements both, and displaytest provides a recording fake.
package display
