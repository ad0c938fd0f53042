// Package output provides output formatters for window manager snapshots.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/shrub9/internal/model"
)

// Formatter formats a snapshot for output.
type Formatter interface {
	// Format writes the formatted snapshot to the writer.
	Format(w io.Writer, snap *model.Snapshot) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatIDs   FormatType = "ids"
	FormatDmenu FormatType = "dmenu"
)

// Formats lists the accepted format names.
var Formats = []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatIDs, FormatDmenu}

// ParseFormat validates a format name.
func ParseFormat(s string) (FormatType, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (use plain, json, yaml, ids or dmenu)", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter()
	case FormatIDs:
		return NewIDsFormatter()
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string // Custom per-client template for plain/dmenu format
	ShowHidden bool   // List the hidden menu in plain format
	LabelMax   int    // Maximum label length (0 = unlimited)
	Separator  string // Field separator for dmenu format
	Compact    bool   // Single-line JSON
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowHidden: true,
		LabelMax:   40,
		Separator:  " | ",
	}
}

// templateData provides data for custom templates.
type templateData struct {
	Index  int
	Client *model.Client
	Window string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"hex":      hexWindow,
		"stateIcon": func(state string) string {
			switch state {
			case "normal":
				return "+"
			case "iconic":
				return "-"
			default:
				return "?"
			}
		},
	}
}

func parseTemplate(name, text string) *template.Template {
	if text == "" {
		return nil
	}
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil
	}
	return tmpl
}

func hexWindow(w uint32) string {
	return fmt.Sprintf("0x%x", w)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
