package displaytest

import (
	"strings"

	"github.com/jmylchreest/shrub9/internal/display"
)

// Menu is the last drawn state of one menu layer.
type Menu struct {
	Visible   bool
	Rect      display.Rect
	Items     []string
	Highlight int
}

type menus [2]Menu

func (r *Recorder) SetFrameColor(frame display.Window, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	arg := 0
	if active {
		arg = 1
	}
	r.record(Call{Op: "frame-color", Window: frame, Arg: arg})
	_, err := r.lookup(frame)
	return err
}

// SetColors records the palette in Colors.
func (r *Recorder) SetColors(c display.Colors) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "colors", Arg: int(c.Active)})
	r.Colors = c
	return nil
}

// MenuMetrics uses a fixed-width font of CharWidth pixels and ItemHeight rows.
func (r *Recorder) MenuMetrics(items []string) (int, int) {
	width := 0
	for _, item := range items {
		if w := len(item)*CharWidth + 4; w > width {
			width = w
		}
	}
	return width, ItemHeight
}

func (r *Recorder) ShowMenu(layer display.MenuLayer, rect display.Rect, items []string, highlight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "show-menu", Rect: rect, Arg: int(layer), Text: strings.Join(items, "|")})
	r.menu[layer] = Menu{Visible: true, Rect: rect, Items: append([]string(nil), items...), Highlight: highlight}
	return nil
}

func (r *Recorder) DrawMenu(layer display.MenuLayer, items []string, highlight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "draw-menu", Arg: int(layer), Text: strings.Join(items, "|")})
	r.menu[layer].Items = append([]string(nil), items...)
	r.menu[layer].Highlight = highlight
	return nil
}

func (r *Recorder) HideMenu(layer display.MenuLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "hide-menu", Arg: int(layer)})
	r.menu[layer].Visible = false
	return nil
}

func (r *Recorder) XorOutline(rect display.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "outline", Rect: rect})
	r.outline[rect]++
	return nil
}

// MenuState returns the last drawn state of a menu layer.
func (r *Recorder) MenuState(layer display.MenuLayer) Menu {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.menu[layer]
}

// Title is the last drawn titlebar of a frame.
type Title struct {
	Rect display.Rect
	Text string
}

// Overview is the last drawn state of the spaces overview.
type Overview struct {
	Visible bool
	Cells   []display.OverviewCell
}

func (r *Recorder) DrawTitle(frame display.Window, rect display.Rect, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "title", Window: frame, Rect: rect, Text: title})
	if _, err := r.lookup(frame); err != nil {
		return err
	}
	r.titles[frame] = Title{Rect: rect, Text: title}
	return nil
}

func (r *Recorder) RemoveTitle(frame display.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "remove-title", Window: frame})
	delete(r.titles, frame)
	return nil
}

// TitleOf returns the titlebar drawn in frame.
func (r *Recorder) TitleOf(frame display.Window) (Title, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.titles[frame]
	return t, ok
}

func (r *Recorder) ShowOverview(cells []display.OverviewCell) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "show-overview", Arg: len(cells)})
	r.overview = Overview{Visible: true, Cells: cloneCells(cells)}
	return nil
}

func (r *Recorder) DrawOverview(cells []display.OverviewCell) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "draw-overview", Arg: len(cells)})
	r.overview.Cells = cloneCells(cells)
	return nil
}

func (r *Recorder) HideOverview() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "hide-overview"})
	r.overview.Visible = false
	return nil
}

// OverviewState returns the last drawn overview.
func (r *Recorder) OverviewState() Overview {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Overview{Visible: r.overview.Visible, Cells: cloneCells(r.overview.Cells)}
}

func cloneCells(cells []display.OverviewCell) []display.OverviewCell {
	out := make([]display.OverviewCell, len(cells))
	for i, c := range cells {
		out[i] = c
		out[i].Thumbs = append([]display.Rect(nil), c.Thumbs...)
	}
	return out
}
