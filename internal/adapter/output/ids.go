package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/shrub9/internal/model"
)

// IDsFormatter outputs just the client window ids, one per line.
// Useful for piping to other commands (e.g., xprop -id).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes window ids to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	for _, c := range snap.Clients {
		if _, err := fmt.Fprintln(w, hexWindow(c.Window)); err != nil {
			return err
		}
	}
	return nil
}
