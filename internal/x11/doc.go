// Package x11 connects the window manager core to an X server.
//
// Conn implements display.Display and display.Renderer over the core
// protocol and the SHAPE extension, using xgbutil for ICCCM and EWMH
// properties, key grabs and cursors. Next reads server events and flattens
// them into event.Event values for the dispatcher.
//
// Requests that name a window which no longer exists fail with
// display.ErrWindowGone so call sites racing with client destruction can
// discard them.
package x11
