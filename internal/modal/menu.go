package modal

import (
	"github.com/jmylchreest/shrub9/internal/display"
	"github.com/jmylchreest/shrub9/internal/event"
)

// hysteresis is how far, in pixels, the pointer may stray past the
// highlighted item before another item is picked.
const hysteresis = 3

// Item is a menu entry. An item with Sub entries is a folder.
type Item struct {
	Label string
	Sub   []string
}

// Menu is a popup menu. LastHit is the item placed under the pointer the next
// time the menu opens.
type Menu struct {
	Items   []Item
	LastHit int
}

// Labels returns the item labels in order.
func (m *Menu) Labels() []string {
	out := make([]string, len(m.Items))
	for i, it := range m.Items {
		out[i] = it.Label
	}
	return out
}

type menuState struct {
	menu   *Menu
	button int
	labels []string
	rect   display.Rect
	high   int
	cur    int

	subParent int
	subLabels []string
	subRect   display.Rect
	subCur    int
	inSub     bool
	hideAt    Deadline
}

// OpenMenu pops up menu centred on the press and grabs the pointer. The item
// hit last time sits under the pointer; when the menu has to be moved to stay
// on screen the pointer is warped along with it.
func (m *Machine) OpenMenu(press event.Event, menu *Menu) bool {
	if m.mode != Idle || menu == nil || len(menu.Items) == 0 {
		return false
	}
	labels := menu.Labels()
	wide, high := m.rnd.MenuMetrics(labels)
	if high <= 0 {
		m.logger.Warn("menu has no usable font metrics")
		return false
	}
	n := len(labels)
	cur := menu.LastHit
	if cur >= n {
		cur = n - 1
	}
	if cur < 0 {
		cur = 0
	}

	scr := m.dpy.Screen()
	px, py := press.X, press.Y
	x := px - wide/2
	y := py - cur*high - high/2
	dy := n * high
	warp := false
	if x < 0 {
		px -= x
		x = 0
		warp = true
	}
	if x+wide >= scr.Width {
		px -= x + wide - scr.Width
		x = scr.Width - wide
		warp = true
	}
	if y < 0 {
		py -= y
		y = 0
		warp = true
	}
	if y+dy >= scr.Height {
		py -= y + dy - scr.Height
		y = scr.Height - dy
		warp = true
	}
	if warp {
		if err := m.dpy.WarpPointer(px, py); err != nil {
			m.logger.Debug("warp pointer failed", "error", err)
		}
	}

	rect := display.Rect{X: x, Y: y, Width: wide, Height: dy}
	if err := m.rnd.ShowMenu(display.LayerMain, rect, labels, cur); err != nil {
		m.logger.Warn("show menu failed", "error", err)
		return false
	}
	if !m.grab(display.CursorArrow, press.Time, "menu") {
		_ = m.rnd.HideMenu(display.LayerMain)
		return false
	}

	m.menu = menuState{
		menu:      menu,
		button:    press.Button,
		labels:    labels,
		rect:      rect,
		high:      high,
		cur:       cur,
		subParent: -1,
		subCur:    -1,
	}
	m.mode = MenuOpen
	return true
}

func (m *Machine) feedMenu(ev event.Event) (Outcome, bool) {
	s := &m.menu
	if s.hideAt.Expired(ev.Time) {
		m.expireSubmenu(ev.Time)
	}

	switch ev.Kind {
	case event.KindMotion:
		m.menuMotion(ev)
	case event.KindExpose:
		m.redrawMenus()
	case event.KindKeyPress:
		if ev.Key == "Escape" {
			return m.finish(Outcome{Kind: Cancelled, Index: -1}, ev)
		}
	case event.KindButtonRelease:
		return m.menuRelease(ev)
	}
	return Outcome{}, false
}

// hit returns the main menu item under the menu-relative point, keeping old
// while the pointer stays within the hysteresis band around it.
func (s *menuState) hit(x, y, old int) int {
	i := y / s.high
	if old >= 0 && y >= old*s.high-hysteresis && y < (old+1)*s.high+hysteresis {
		i = old
	}
	if x < 0 || x > s.rect.Width || y < -hysteresis {
		return -1
	}
	if i < 0 || i >= len(s.labels) {
		return -1
	}
	return i
}

func (s *menuState) subHit(rootY int) int {
	i := (rootY - s.subRect.Y) / s.high
	if i < 0 || i >= len(s.subLabels) {
		return -1
	}
	return i
}

func (s *menuState) overSub(x, y int) bool {
	return s.subParent >= 0 && s.subRect.Contains(x, y)
}

func (m *Machine) menuMotion(ev event.Event) {
	s := &m.menu
	old := s.cur

	if s.overSub(ev.X, ev.Y) {
		s.cur = s.subParent
		s.inSub = true
		s.hideAt.Clear()
		if sc := s.subHit(ev.Y); sc != s.subCur {
			s.subCur = sc
			m.drawSub()
		}
	} else {
		s.inSub = false
		s.cur = s.hit(ev.X-s.rect.X, ev.Y-s.rect.Y, old)
		if s.cur < 0 && s.subCur >= 0 {
			s.subCur = -1
			m.drawSub()
		}
	}

	if s.cur == old {
		return
	}
	if s.subParent >= 0 && s.subParent != s.cur && !s.inSub {
		if !s.hideAt.Armed() {
			s.hideAt.Arm(ev.Time, m.opts.SubmenuDelay)
		}
	} else if s.subParent == s.cur {
		s.hideAt.Clear()
	}
	if s.cur >= 0 && s.cur != s.subParent && len(s.menu.Items[s.cur].Sub) > 0 {
		m.openSubmenu(s.cur)
	}
	if err := m.rnd.DrawMenu(display.LayerMain, s.labels, s.cur); err != nil {
		m.logger.Debug("draw menu failed", "error", err)
	}
}

// openSubmenu shows the submenu of folder idx beside its item, flipped to
// the left of the main menu when it would leave the screen.
func (m *Machine) openSubmenu(idx int) {
	s := &m.menu
	labels := s.menu.Items[idx].Sub
	wide, _ := m.rnd.MenuMetrics(labels)
	high := len(labels) * s.high
	scr := m.dpy.Screen()

	x := s.rect.X + s.rect.Width
	y := s.rect.Y + idx*s.high
	if x+wide >= scr.Width {
		x = s.rect.X - wide
	}
	if y+high >= scr.Height {
		y = scr.Height - high
	}
	if y < 0 {
		y = 0
	}

	s.subParent = idx
	s.subLabels = labels
	s.subRect = display.Rect{X: x, Y: y, Width: wide, Height: high}
	s.subCur = -1
	s.hideAt.Clear()
	if err := m.rnd.ShowMenu(display.LayerSub, s.subRect, labels, -1); err != nil {
		m.logger.Debug("show submenu failed", "error", err)
	}
}

// expireSubmenu closes the submenu once its hide deadline passed, unless the
// pointer is over it, in which case the deadline is pushed back.
func (m *Machine) expireSubmenu(now uint32) {
	s := &m.menu
	if p, err := m.dpy.QueryPointer(); err == nil && s.overSub(p.X, p.Y) {
		s.hideAt.Arm(now, m.opts.SubmenuDelay)
		return
	}
	m.closeSubmenu()
}

func (m *Machine) closeSubmenu() {
	s := &m.menu
	if s.subParent < 0 {
		return
	}
	_ = m.rnd.HideMenu(display.LayerSub)
	s.subParent = -1
	s.subLabels = nil
	s.subCur = -1
	s.inSub = false
	s.hideAt.Clear()
}

func (m *Machine) closeMenus() {
	if m.menu.menu == nil {
		return
	}
	m.closeSubmenu()
	_ = m.rnd.HideMenu(display.LayerMain)
	m.menu = menuState{}
}

func (m *Machine) drawSub() {
	s := &m.menu
	if s.subParent < 0 {
		return
	}
	if err := m.rnd.DrawMenu(display.LayerSub, s.subLabels, s.subCur); err != nil {
		m.logger.Debug("draw submenu failed", "error", err)
	}
}

func (m *Machine) redrawMenus() {
	s := &m.menu
	if err := m.rnd.DrawMenu(display.LayerMain, s.labels, s.cur); err != nil {
		m.logger.Debug("draw menu failed", "error", err)
	}
	m.drawSub()
}

// menuRelease picks the item under the released invoking button. Releasing
// another button, or releasing while other buttons are down, picks nothing.
func (m *Machine) menuRelease(ev event.Event) (Outcome, bool) {
	s := &m.menu
	miss := Outcome{Kind: Cancelled, Index: -1}
	if ev.Button != s.button {
		return m.finish(miss, ev)
	}

	if s.overSub(ev.X, ev.Y) || (s.inSub && s.subCur >= 0) {
		child := s.subCur
		if s.overSub(ev.X, ev.Y) {
			child = s.subHit(ev.Y)
		}
		if child < 0 || ev.ButtonsHeld() {
			return m.finish(miss, ev)
		}
		s.menu.LastHit = s.subParent
		idx := SubmenuBase + s.subParent*SubmenuStride + child
		return m.finish(Outcome{Kind: Chosen, Index: idx}, ev)
	}

	i := s.hit(ev.X-s.rect.X, ev.Y-s.rect.Y, s.cur)
	if i >= 0 {
		s.menu.LastHit = i
	}
	if i < 0 || ev.ButtonsHeld() {
		return m.finish(miss, ev)
	}
	return m.finish(Outcome{Kind: Chosen, Index: i}, ev)
}
