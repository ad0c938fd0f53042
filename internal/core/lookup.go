package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jmylchreest/shrub9/internal/model"
)

// ErrNoMatch is returned by Resolve when nothing matches the query.
var ErrNoMatch = errors.New("no matching window")

// ParseWindow parses a window id in hex ("0x1a00003") or decimal.
func ParseWindow(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s, base = rest, 16
	}
	n, err := strconv.ParseUint(s, base, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid window id: %q", s)
	}
	return uint32(n), nil
}

// LookupByWindow finds a client by its window id.
// Returns nil if not found.
func LookupByWindow(clients []model.Client, w uint32) *model.Client {
	for i := range clients {
		if clients[i].Window == w {
			return &clients[i]
		}
	}
	return nil
}

// searchText is what a query is matched against.
func searchText(c model.Client) string {
	return strings.Join([]string{c.Label, c.Name, c.Class, c.Instance}, " ")
}

// Search returns the clients whose label, name, class or instance fuzzily
// match term, best match first. An empty term returns clients unchanged.
func Search(clients []model.Client, term string) []model.Client {
	if term == "" {
		return clients
	}

	targets := make([]string, len(clients))
	for i, c := range clients {
		targets[i] = searchText(c)
	}
	ranks := fuzzy.RankFindNormalizedFold(term, targets)
	sort.Stable(ranks)

	result := make([]model.Client, 0, len(ranks))
	for _, r := range ranks {
		result = append(result, clients[r.OriginalIndex])
	}
	return result
}

// Resolve picks one client for query: a window id, then an exact label,
// then the best fuzzy match. Withdrawn clients are never picked.
func Resolve(clients []model.Client, query string) (*model.Client, error) {
	live := make([]model.Client, 0, len(clients))
	for _, c := range clients {
		if c.State != "withdrawn" {
			live = append(live, c)
		}
	}

	if w, err := ParseWindow(query); err == nil {
		if c := LookupByWindow(live, w); c != nil {
			return c, nil
		}
	}
	for i := range live {
		if strings.EqualFold(live[i].Label, query) {
			return &live[i], nil
		}
	}
	if found := Search(live, query); len(found) > 0 {
		return &found[0], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
}

// UniqueClasses returns the sorted, de-duplicated window classes.
func UniqueClasses(clients []model.Client) []string {
	seen := make(map[string]bool)
	var classes []string

	for _, c := range clients {
		if c.Class != "" && !seen[c.Class] {
			seen[c.Class] = true
			classes = append(classes, c.Class)
		}
	}

	sort.Slice(classes, func(i, j int) bool {
		return strings.ToLower(classes[i]) < strings.ToLower(classes[j])
	})
	return classes
}
