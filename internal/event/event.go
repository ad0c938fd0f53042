// Package event defines the protocol-neutral notifications the window manager
// consumes. The X11 adapter translates server events into Event values, and
// replay scripts decode them from YAML.
package event

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/shrub9/internal/display"
)

// Kind identifies the notification type.
type Kind int

const (
	KindNone Kind = iota
	KindCreate
	KindMapRequest
	KindUnmap
	KindDestroy
	KindConfigureRequest
	KindCirculateRequest
	KindReparent
	KindProperty
	KindColormap
	KindClientMessage
	KindEnter
	KindFocusIn
	KindKeyPress
	KindButtonPress
	KindButtonRelease
	KindMotion
	KindExpose
	KindShape
	KindSelection
	KindTick
	KindError
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	KindCreate:           "create",
	KindMapRequest:       "map-request",
	KindUnmap:            "unmap",
	KindDestroy:          "destroy",
	KindConfigureRequest: "configure-request",
	KindCirculateRequest: "circulate-request",
	KindReparent:         "reparent",
	KindProperty:         "property",
	KindColormap:         "colormap",
	KindClientMessage:    "client-message",
	KindEnter:            "enter",
	KindFocusIn:          "focus-in",
	KindKeyPress:         "key-press",
	KindButtonPress:      "button-press",
	KindButtonRelease:    "button-release",
	KindMotion:           "motion",
	KindExpose:           "expose",
	KindShape:            "shape",
	KindSelection:        "selection",
	KindTick:             "tick",
	KindError:            "error",
}

// String returns the kind name used in logs and replay scripts.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", s)
}

// IsPointer reports whether the kind carries pointer coordinates and a timestamp.
func (k Kind) IsPointer() bool {
	switch k {
	case KindButtonPress, KindButtonRelease, KindMotion, KindEnter:
		return true
	}
	return false
}

// Event is a flattened notification. Only the fields meaningful for Kind are set.
type Event struct {
	Kind Kind `yaml:"kind"`
	// Window is the window the notification is about.
	Window display.Window `yaml:"window,omitempty"`
	// Parent is the window the event was reported on: the parent for create,
	// the new parent for reparent, the event window for unmap.
	Parent display.Window `yaml:"parent,omitempty"`
	// Child is the top-level child under the pointer for button events.
	Child display.Window `yaml:"child,omitempty"`
	Time  uint32         `yaml:"time,omitempty"`

	// X and Y are root pointer coordinates or requested geometry.
	X           int `yaml:"x,omitempty"`
	Y           int `yaml:"y,omitempty"`
	Width       int `yaml:"width,omitempty"`
	Height      int `yaml:"height,omitempty"`
	BorderWidth int `yaml:"border_width,omitempty"`

	// ValueMask selects the fields of a configure request.
	ValueMask uint16 `yaml:"value_mask,omitempty"`
	StackMode int    `yaml:"stack_mode,omitempty"`

	Button int    `yaml:"button,omitempty"`
	State  uint16 `yaml:"state,omitempty"`
	// Key is the keysym name of a key press. For a _NET_WM_STATE message it
	// names the fullscreen atom when either changed property is fullscreen.
	Key string `yaml:"key,omitempty"`

	// Atom is the property name or client message type. Data carries the
	// message payload; colormap events put the colormap in Data[0] and set
	// Data[1] when the colormap attribute changed.
	Atom    string    `yaml:"atom,omitempty"`
	Data    [5]uint32 `yaml:"data,omitempty,flow"`
	Deleted bool      `yaml:"deleted,omitempty"`

	Mode             int  `yaml:"mode,omitempty"`
	Detail           int  `yaml:"detail,omitempty"`
	OverrideRedirect bool `yaml:"override_redirect,omitempty"`
	Synthetic        bool `yaml:"synthetic,omitempty"`
	Shaped           bool `yaml:"shaped,omitempty"`
	Count            int  `yaml:"count,omitempty"`

	Error string `yaml:"error,omitempty"`
}

// String formats the event for debug logs.
func (e Event) String() string {
	return fmt.Sprintf("%s window=%s time=%d", e.Kind, e.Window, e.Time)
}

// Rect returns the geometry fields as a rectangle.
func (e Event) Rect() display.Rect {
	return display.Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}
