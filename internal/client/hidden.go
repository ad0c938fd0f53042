package client

import "errors"

// MaxHidden is the capacity of the hidden list.
const MaxHidden = 32

// ErrHiddenFull is returned when a client is hidden while the list is full.
var ErrHiddenFull = errors.New("hidden list is full")

// HiddenList is the ordered set of iconified clients shown in the menu,
// most recently hidden first.
type HiddenList struct {
	reg   *Registry
	items []Handle
}

// NewHiddenList creates an empty hidden list resolving handles through reg.
func NewHiddenList(reg *Registry) *HiddenList {
	return &HiddenList{reg: reg}
}

// Push inserts the client at the front. Pushing a listed client is a no-op.
func (l *HiddenList) Push(h Handle) error {
	if l.Index(h) >= 0 {
		return nil
	}
	if len(l.items) >= MaxHidden {
		return ErrHiddenFull
	}
	l.items = append([]Handle{h}, l.items...)
	return nil
}

// Remove drops the client from the list and reports whether it was listed.
func (l *HiddenList) Remove(h Handle) bool {
	i := l.Index(h)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// Index returns the position of the client, or -1.
func (l *HiddenList) Index(h Handle) int {
	for i, item := range l.items {
		if item == h {
			return i
		}
	}
	return -1
}

// At returns the live client at position i.
func (l *HiddenList) At(i int) (*Client, bool) {
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.reg.Get(l.items[i])
}

// Len returns the number of hidden clients.
func (l *HiddenList) Len() int {
	return len(l.items)
}

// Labels returns the menu labels of the hidden clients in list order.
func (l *HiddenList) Labels() []string {
	labels := make([]string, 0, len(l.items))
	for _, h := range l.items {
		if c, ok := l.reg.Get(h); ok {
			labels = append(labels, c.Label)
		}
	}
	return labels
}
