package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/jmylchreest/shrub9/internal/model"
)

// DmenuFormatter writes one client per line for dmenu/rofi/fuzzel. The
// window id comes first so a picked line can be passed back to focus.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	return &DmenuFormatter{opts: opts, template: parseTemplate("dmenu", opts.Template)}
}

// Format writes the clients in dmenu format.
func (f *DmenuFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	for i := range snap.Clients {
		if _, err := fmt.Fprintln(w, f.formatLine(i+1, &snap.Clients[i])); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single client line.
func (f *DmenuFormatter) formatLine(index int, c *model.Client) string {
	if f.template != nil {
		var buf strings.Builder
		data := templateData{Index: index, Client: c, Window: hexWindow(c.Window)}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}
	ws := "-"
	if c.Workspace >= 0 {
		ws = strconv.Itoa(c.Workspace + 1)
	}
	parts := []string{hexWindow(c.Window), ws, truncate(c.Label, f.opts.LabelMax)}
	if c.Class != "" {
		parts = append(parts, c.Class)
	}
	if c.Hidden() {
		parts = append(parts, "hidden")
	}
	return strings.Join(parts, sep)
}

// PickedWindow extracts the window id from a line written by the dmenu
// formatter. Other input is returned trimmed.
func PickedWindow(line, sep string) string {
	if sep == "" {
		sep = " | "
	}
	first, _, _ := strings.Cut(strings.TrimSpace(line), strings.TrimSpace(sep))
	return strings.TrimSpace(first)
}
