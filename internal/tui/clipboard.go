package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// clipboardEnv overrides clipboard detection with a command line.
const clipboardEnv = "SHRUB9_CLIPBOARD"

// copyText copies text to the system clipboard.
func copyText(text string) error {
	cmd := strings.Fields(os.Getenv(clipboardEnv))
	if len(cmd) == 0 {
		if clipboard.Unsupported {
			return fmt.Errorf("no clipboard command available")
		}
		return clipboard.WriteAll(text)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}
