// Package core provides filtering, sorting and lookup over exported clients.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/shrub9/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Field name: class, instance, name, label, state, workspace, width, height, active, terminal, transient, fullscreen
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex   *regexp.Regexp
	intVal  int
	boolVal bool
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies simple criteria for filtering clients.
type FilterOptions struct {
	Workspace *int   // Only clients on this workspace (nil=any)
	State     string // Exact state: normal, iconic, withdrawn ("" = any)
	Class     string // Case-insensitive class match
	Limit     int    // Maximum results (0=unlimited)
}

// Filter filters clients based on the provided options.
func Filter(clients []model.Client, opts FilterOptions) []model.Client {
	result := make([]model.Client, 0, len(clients))

	for _, c := range clients {
		if opts.Workspace != nil && c.Workspace != *opts.Workspace {
			continue
		}
		if opts.State != "" && c.State != opts.State {
			continue
		}
		if opts.Class != "" && !strings.EqualFold(c.Class, opts.Class) {
			continue
		}
		result = append(result, c)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Examples:
//   - "class=XTerm" - exact class match
//   - "name~vim" - window name contains "vim"
//   - "workspace>=1,state=normal" - visible-state clients past the first workspace
//   - "label~=(?i)^term" - label matches regex
//   - "terminal=true" - terminal windows only
func ParseFilter(expr string) (*FilterExpr, error) {
	if expr == "" {
		return &FilterExpr{}, nil
	}

	filter := &FilterExpr{
		Conditions: make([]FilterCondition, 0),
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "class=XTerm".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "class", "cls":
		c.Field = "class"
	case "instance", "res":
		c.Field = "instance"
	case "name", "title":
		c.Field = "name"
	case "label":
	case "state":
		c.Value = strings.ToLower(c.Value)
	case "workspace", "ws", "width", "height":
		if c.Field == "ws" {
			c.Field = "workspace"
		}
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %s", c.Field, c.Value)
		}
		c.intVal = n
	case "active", "terminal", "transient", "fullscreen", "hidden":
		c.boolVal = parseBool(c.Value)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// parseBool parses various boolean representations.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "y", "t":
		return true
	default:
		return false
	}
}

// Match tests if a client matches the filter expression.
// All conditions must match (AND logic).
func (f *FilterExpr) Match(c model.Client) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(c) {
			return false
		}
	}
	return true
}

// Match tests if a client matches this single condition.
func (c *FilterCondition) Match(cl model.Client) bool {
	switch c.Field {
	case "class":
		return c.matchString(cl.Class)
	case "instance":
		return c.matchString(cl.Instance)
	case "name":
		return c.matchString(cl.Name)
	case "label":
		return c.matchString(cl.Label)
	case "state":
		return c.matchString(cl.State)
	case "workspace":
		return c.matchInt(cl.Workspace)
	case "width":
		return c.matchInt(cl.Width)
	case "height":
		return c.matchInt(cl.Height)
	case "active":
		return c.matchBool(cl.Active)
	case "terminal":
		return c.matchBool(cl.Terminal)
	case "transient":
		return c.matchBool(cl.Transient != 0)
	case "fullscreen":
		return c.matchBool(cl.Fullscreen)
	case "hidden":
		return c.matchBool(cl.Hidden())
	default:
		return false
	}
}

// matchString matches a string field.
func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchInt matches an integer field with numeric comparison.
func (c *FilterCondition) matchInt(fieldValue int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.intVal
	case FilterOpNotEqual:
		return fieldValue != c.intVal
	case FilterOpGreater:
		return fieldValue > c.intVal
	case FilterOpLess:
		return fieldValue < c.intVal
	case FilterOpGreaterEq:
		return fieldValue >= c.intVal
	case FilterOpLessEq:
		return fieldValue <= c.intVal
	default:
		return false
	}
}

// matchBool matches a boolean field.
func (c *FilterCondition) matchBool(fieldValue bool) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.boolVal
	case FilterOpNotEqual:
		return fieldValue != c.boolVal
	default:
		return false
	}
}

// FilterWithExpr filters clients using a filter expression.
func FilterWithExpr(clients []model.Client, expr *FilterExpr) []model.Client {
	if expr == nil || len(expr.Conditions) == 0 {
		return clients
	}

	result := make([]model.Client, 0, len(clients))
	for _, c := range clients {
		if expr.Match(c) {
			result = append(result, c)
		}
	}
	return result
}
