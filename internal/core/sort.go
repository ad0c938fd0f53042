package core

import (
	"sort"
	"strings"

	"github.com/jmylchreest/shrub9/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByWorkspace SortField = "workspace"
	SortByLabel     SortField = "label"
	SortByClass     SortField = "class"
	SortByWindow    SortField = "window"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField // Field to sort by
	Order SortOrder // Sort order (asc/desc)
}

// DefaultSortOptions sorts by workspace, lowest first.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByWorkspace,
		Order: SortAsc,
	}
}

// Sort sorts clients in place. Ties keep their incoming order.
func Sort(clients []model.Client, opts SortOptions) {
	if len(clients) == 0 {
		return
	}

	sort.SliceStable(clients, func(i, j int) bool {
		a, b := clients[i], clients[j]
		var less, equal bool

		switch opts.Field {
		case SortByLabel:
			la, lb := strings.ToLower(a.Label), strings.ToLower(b.Label)
			less, equal = la < lb, la == lb
		case SortByClass:
			ca, cb := strings.ToLower(a.Class), strings.ToLower(b.Class)
			less, equal = ca < cb, ca == cb
		case SortByWindow:
			less, equal = a.Window < b.Window, a.Window == b.Window
		default:
			less, equal = a.Workspace < b.Workspace, a.Workspace == b.Workspace
		}

		if equal {
			return false
		}
		if opts.Order == SortDesc {
			return !less
		}
		return less
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "workspace", "ws", "w":
		return SortByWorkspace, nil
	case "label", "l":
		return SortByLabel, nil
	case "class", "c":
		return SortByClass, nil
	case "window", "id":
		return SortByWindow, nil
	default:
		return SortByWorkspace, nil
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return SortAsc, nil
	}
}
