package event

// Button numbers.
const (
	Button1 = 1
	Button2 = 2
	Button3 = 3
)

// Modifier and button state bits.
const (
	ShiftMask   uint16 = 1 << 0
	Button1Mask uint16 = 1 << 8
	Button2Mask uint16 = 1 << 9
	Button3Mask uint16 = 1 << 10
	Button4Mask uint16 = 1 << 11
	Button5Mask uint16 = 1 << 12

	AllButtonsMask = Button1Mask | Button2Mask | Button3Mask | Button4Mask | Button5Mask
)

// ButtonMask returns the state bit of a button number.
func ButtonMask(button int) uint16 {
	if button < 1 || button > 5 {
		return 0
	}
	return 1 << (7 + button)
}

// Configure request value mask bits.
const (
	ConfigX           uint16 = 1 << 0
	ConfigY           uint16 = 1 << 1
	ConfigWidth       uint16 = 1 << 2
	ConfigHeight      uint16 = 1 << 3
	ConfigBorderWidth uint16 = 1 << 4
	ConfigSibling     uint16 = 1 << 5
	ConfigStackMode   uint16 = 1 << 6
)

// Stack modes.
const (
	StackAbove    = 0
	StackBelow    = 1
	StackTopIf    = 2
	StackBottomIf = 3
	StackOpposite = 4
)

// Crossing and focus modes and details.
const (
	NotifyNormal = 0
	NotifyGrab   = 1
	NotifyUngrab = 2

	NotifyAncestor         = 0
	NotifyVirtual          = 1
	NotifyInferior         = 2
	NotifyNonlinear        = 3
	NotifyNonlinearVirtual = 4
)

// Client message and property atoms the dispatcher understands.
const (
	AtomExit         = "9WM_EXIT"
	AtomRestart      = "9WM_RESTART"
	AtomChangeState  = "WM_CHANGE_STATE"
	AtomMoveResize   = "_NET_WM_MOVERESIZE"
	AtomWMState      = "_NET_WM_STATE"
	AtomFullscreen   = "_NET_WM_STATE_FULLSCREEN"
	AtomActiveWindow = "_NET_ACTIVE_WINDOW"

	AtomName            = "WM_NAME"
	AtomIconName        = "WM_ICON_NAME"
	AtomClass           = "WM_CLASS"
	AtomNormalHints     = "WM_NORMAL_HINTS"
	AtomTransientFor    = "WM_TRANSIENT_FOR"
	AtomProtocols       = "WM_PROTOCOLS"
	AtomColormapWindows = "WM_COLORMAP_WINDOWS"
	AtomHold            = "_9WM_HOLD_MODE"
)

// _NET_WM_MOVERESIZE direction for a keyboard-less move.
const MoveResizeMove = 8

// _NET_WM_STATE actions.
const (
	StateRemove = 0
	StateAdd    = 1
	StateToggle = 2
)

// ButtonsHeld reports whether any button other than the one just released is
// still down. The state carried by a release event includes the released button.
func (e Event) ButtonsHeld() bool {
	held := e.State & AllButtonsMask
	if e.Kind == KindButtonRelease {
		held &^= ButtonMask(e.Button)
	}
	return held != 0
}
