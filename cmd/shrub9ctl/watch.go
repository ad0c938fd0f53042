package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shrub9/internal/dbus"
	"github.com/jmylchreest/shrub9/internal/tui"
)

var watchOpts struct {
	interval time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of workspaces and windows",
	Long: `Launch the interactive terminal view of the running window manager.

The view refreshes on every StateChanged signal and polls as a fallback.

Key bindings:
  j/k, ↑/↓    Navigate list
  enter       View window details
  f           Focus the selected window
  1-9, 0      Switch workspace
  /           Search (fuzzy, or a filter like class=XTerm)
  y           Copy window id to clipboard
  Y / alt+y   Copy the snapshot as JSON / YAML
  r           Refresh
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchOpts.interval, "interval", tui.DefaultInterval,
		"Polling interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := dbus.NewClient()
	if err != nil {
		return err
	}

	opts := tui.RunOptions{Source: client, Interval: watchOpts.interval}
	watcher, err := client.Watch(logger)
	if err != nil {
		logger.Warn("state signals unavailable, polling only", "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
		opts.Updates = watcher.States()
	}

	return tui.Run(opts)
}
