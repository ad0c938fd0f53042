package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/shrub9/internal/model"
)

// PlainFormatter formats snapshots as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
	now      func() time.Time
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	return &PlainFormatter{
		opts:     opts,
		template: parseTemplate("plain", opts.Template),
		now:      time.Now,
	}
}

// Format writes the snapshot grouped by workspace. With a custom template
// only the clients are written, one template execution each.
func (f *PlainFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	if f.template != nil {
		for i := range snap.Clients {
			c := &snap.Clients[i]
			data := templateData{Index: i + 1, Client: c, Window: hexWindow(c.Window)}
			if err := f.template.Execute(w, data); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		return nil
	}

	var sb strings.Builder
	sb.WriteString(f.header(snap))

	for _, ws := range snap.Workspaces {
		marker := " "
		if ws.ID == snap.Current {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s workspace %d (%d)\n", marker, ws.ID+1, len(ws.Clients))
		for _, id := range ws.Clients {
			c, ok := snap.Client(id)
			if !ok {
				continue
			}
			sb.WriteString(f.clientLine(&c))
		}
	}

	if f.opts.ShowHidden && len(snap.Hidden) > 0 {
		fmt.Fprintf(&sb, "  hidden (%d)\n", len(snap.Hidden))
		for _, id := range snap.Hidden {
			if c, ok := snap.Client(id); ok {
				sb.WriteString(f.clientLine(&c))
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PlainFormatter) header(snap *model.Snapshot) string {
	var parts []string
	if s := snap.Session; s != nil {
		started := time.Unix(s.StartedAt, 0)
		parts = append(parts, fmt.Sprintf("session %s (pid %d, started %s)", s.ID, s.PID, humanize.RelTime(started, f.now(), "ago", "from now")))
	}
	parts = append(parts, fmt.Sprintf("mode %s", snap.Mode))
	if snap.Switching {
		parts = append(parts, fmt.Sprintf("switching, %s pending", humanize.Comma(int64(snap.Pending))))
	}
	if c, ok := snap.ActiveClient(); ok {
		parts = append(parts, fmt.Sprintf("active %s %q", hexWindow(c.Window), c.Label))
	}
	return strings.Join(parts, ", ") + "\n"
}

func (f *PlainFormatter) clientLine(c *model.Client) string {
	var flags []string
	if c.Active {
		flags = append(flags, "active")
	}
	if c.Hidden() {
		flags = append(flags, "hidden")
	}
	if c.Terminal {
		flags = append(flags, "terminal")
	}
	if c.Fullscreen {
		flags = append(flags, "fullscreen")
	}
	if c.Transient != 0 {
		flags = append(flags, "transient for "+hexWindow(c.Transient))
	}
	line := fmt.Sprintf("    %-10s %-*s %dx%d+%d+%d", hexWindow(c.Window), labelWidth(f.opts.LabelMax), truncate(c.Label, f.opts.LabelMax),
		c.Width, c.Height, c.X, c.Y)
	if c.Class != "" {
		line += " " + c.Class
	}
	if len(flags) > 0 {
		line += " [" + strings.Join(flags, ", ") + "]"
	}
	return line + "\n"
}

func labelWidth(maxLen int) int {
	if maxLen <= 0 || maxLen > 24 {
		return 24
	}
	return maxLen
}
