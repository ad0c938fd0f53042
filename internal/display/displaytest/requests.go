package displaytest

import (
	"github.com/jmylchreest/shrub9/internal/display"
)

func (r *Recorder) Root() display.Window { return r.RootWindow }

func (r *Recorder) Screen() display.Rect { return r.ScreenRect }

func (r *Recorder) WindowInfo(w display.Window) (display.WindowInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw, err := r.lookup(w)
	if err != nil {
		return display.WindowInfo{}, err
	}
	info := fw.Info
	info.Viewable = fw.Mapped
	return info, nil
}

func (r *Recorder) Children() ([]display.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []display.Window
	for _, w := range r.order {
		fw := r.windows[w]
		if r.gone[w] || fw == nil || fw.Parent != r.RootWindow {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *Recorder) Properties(w display.Window) (display.Properties, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw, err := r.lookup(w)
	if err != nil {
		return display.Properties{}, err
	}
	return fw.Props, nil
}

func (r *Recorder) State(w display.Window) (display.State, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw, err := r.lookup(w)
	if err != nil {
		return display.StateWithdrawn, false, err
	}
	return fw.State, fw.HasState, nil
}

func (r *Recorder) SetState(w display.Window, s display.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "set-state", Window: w, Arg: int(s)})
	fw, err := r.lookup(w)
	if err != nil {
		return err
	}
	fw.State = s
	fw.HasState = true
	return nil
}

func (r *Recorder) SetFullscreen(w display.Window, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	arg := 0
	if on {
		arg = 1
	}
	r.record(Call{Op: "fullscreen", Window: w, Arg: arg})
	_, err := r.lookup(w)
	return err
}

func (r *Recorder) SelectClientInput(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.touch("select-input", w)
	return err
}

func (r *Recorder) CreateFrame(rect display.Rect, borderWidth int) (display.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.next
	r.next++
	r.windows[w] = &Window{
		Info:   display.WindowInfo{Rect: rect, BorderWidth: borderWidth},
		Parent: r.RootWindow,
	}
	r.order = append(r.order, w)
	r.record(Call{Op: "create-frame", Window: w, Rect: rect, Arg: borderWidth})
	return w, nil
}

func (r *Recorder) DestroyWindow(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.touch("destroy", w); err != nil {
		return err
	}
	delete(r.windows, w)
	return nil
}

func (r *Recorder) Reparent(w, parent display.Window, x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "reparent", Window: w, Rect: display.Rect{X: x, Y: y}, Arg: int(parent)})
	fw, err := r.lookup(w)
	if err != nil {
		return err
	}
	fw.Parent = parent
	fw.Info.X, fw.Info.Y = x, y
	return nil
}

func (r *Recorder) SetSaveSet(w display.Window, add bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := "save-set-remove"
	if add {
		op = "save-set-add"
	}
	fw, err := r.touch(op, w)
	if err != nil {
		return err
	}
	fw.InSave = add
	return nil
}

func (r *Recorder) Map(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw, err := r.touch("map", w)
	if err != nil {
		return err
	}
	fw.Mapped = true
	return nil
}

func (r *Recorder) MapRaised(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw, err := r.touch("map-raised", w)
	if err != nil {
		return err
	}
	fw.Mapped = true
	return nil
}

func (r *Recorder) Unmap(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fw, err := r.touch("unmap", w)
	if err != nil {
		return err
	}
	fw.Mapped = false
	return nil
}

func (r *Recorder) Raise(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.touch("raise", w)
	return err
}

func (r *Recorder) Configure(w display.Window, rect display.Rect, borderWidth int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "configure", Window: w, Rect: rect, Arg: borderWidth})
	fw, err := r.lookup(w)
	if err != nil {
		return err
	}
	fw.Info.Rect = rect
	fw.Info.BorderWidth = borderWidth
	return nil
}

func (r *Recorder) SendConfigureNotify(w display.Window, rect display.Rect, borderWidth int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "configure-notify", Window: w, Rect: rect, Arg: borderWidth})
	_, err := r.lookup(w)
	return err
}

func (r *Recorder) CopyShape(frame, w display.Window, x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "shape", Window: frame, Rect: display.Rect{X: x, Y: y}, Arg: int(w)})
	_, err := r.lookup(frame)
	return err
}

func (r *Recorder) SetInputFocus(w display.Window, t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "focus", Window: w, Arg: int(t)})
	if w != r.sink {
		if _, err := r.lookup(w); err != nil {
			return err
		}
	}
	r.Focus = w
	return nil
}

func (r *Recorder) FocusPointerRoot(t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "focus-pointer-root", Arg: int(t)})
	r.Focus = r.RootWindow
	return nil
}

// Sink returns the focus sink window, or None if it was never created.
func (r *Recorder) Sink() display.Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink
}

func (r *Recorder) CreateSink() (display.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.next
	r.next++
	r.sink = w
	r.record(Call{Op: "create-sink", Window: w})
	return w, nil
}

func (r *Recorder) SendProtocol(w display.Window, protocol string, t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "protocol", Window: w, Text: protocol, Arg: int(t)})
	_, err := r.lookup(w)
	return err
}

func (r *Recorder) KillClient(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.touch("kill", w)
	return err
}

func (r *Recorder) InstallColormap(cmap uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "install-colormap", Arg: int(cmap)})
	return nil
}

func (r *Recorder) GrabButtons(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.touch("grab-buttons", w)
	return err
}

func (r *Recorder) UngrabButtons(w display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.touch("ungrab-buttons", w)
	return err
}

func (r *Recorder) GrabKeys(chords []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "grab-keys", Arg: len(chords)})
	r.Keys = append([]string(nil), chords...)
	return nil
}

func (r *Recorder) GrabPointer(cursor display.Cursor, t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "grab-pointer", Arg: int(cursor)})
	if r.GrabError != nil {
		return r.GrabError
	}
	r.Grabbed = true
	return nil
}

func (r *Recorder) UngrabPointer(t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "ungrab-pointer", Arg: int(t)})
	r.Grabbed = false
	return nil
}

func (r *Recorder) GrabKeyboard(t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "grab-keyboard", Arg: int(t)})
	r.KeyboardGrabbed = true
	return nil
}

func (r *Recorder) UngrabKeyboard(t uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "ungrab-keyboard", Arg: int(t)})
	r.KeyboardGrabbed = false
	return nil
}

func (r *Recorder) QueryPointer() (display.Pointer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "query-pointer"})
	return r.Pointer, nil
}

func (r *Recorder) WarpPointer(x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "warp", Rect: display.Rect{X: x, Y: y}})
	r.Pointer.X, r.Pointer.Y = x, y
	return nil
}

// MovePointer sets the pointer position without recording a request.
func (r *Recorder) MovePointer(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pointer.X, r.Pointer.Y = x, y
}
