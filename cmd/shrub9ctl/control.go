package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shrub9/internal/adapter/output"
	"github.com/jmylchreest/shrub9/internal/core"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace <n>",
	Short: "Switch to workspace n (1-based)",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspace,
}

var focusOpts struct {
	dryRun bool
}

var focusCmd = &cobra.Command{
	Use:   "focus <query|->",
	Short: "Activate a window by id, label or fuzzy match",
	Long: `Activate a managed window. The query is tried as a window id (0x1a00003
or decimal), then as an exact label, then as a fuzzy match over label, name
and class. A hidden window is unhidden and a window on another workspace is
brought to the current one.

With "-" the query is read from stdin, so a line picked from
"shrub9ctl status --format dmenu" can be piped back in.`,
	Args: cobra.ExactArgs(1),
	RunE: runFocus,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := connect()
		if err != nil {
			return err
		}
		defer cancel()
		return client.Reload(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(reloadCmd)

	focusCmd.Flags().BoolVarP(&focusOpts.dryRun, "dry-run", "n", false,
		"Print the matched window instead of activating it")
}

func runWorkspace(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid workspace %q: want a number from 1", args[0])
	}

	client, ctx, cancel, err := connect()
	if err != nil {
		return err
	}
	defer cancel()
	return client.SwitchWorkspace(ctx, n-1)
}

func runFocus(cmd *cobra.Command, args []string) error {
	query := args[0]
	if query == "-" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read query from stdin: %w", err)
		}
		query = line
	}
	query = output.PickedWindow(query, "")
	if query == "" {
		return fmt.Errorf("empty query")
	}

	client, ctx, cancel, err := connect()
	if err != nil {
		return err
	}
	defer cancel()

	snap, err := client.Status(ctx)
	if err != nil {
		return err
	}
	c, err := core.Resolve(snap.Clients, query)
	if err != nil {
		return err
	}
	logger.Debug("resolved window", "query", query, "window", fmt.Sprintf("0x%x", c.Window), "label", c.Label)

	if focusOpts.dryRun {
		fmt.Printf("0x%x %s\n", c.Window, strings.TrimSpace(c.Label))
		return nil
	}
	return client.Activate(ctx, c.Window)
}
