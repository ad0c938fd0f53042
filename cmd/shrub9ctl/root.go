// Package main provides the shrub9ctl command line client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shrub9/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// requestTimeout bounds every call to the running window manager.
const requestTimeout = 5 * time.Second

var (
	globalOpts struct {
		verbose    bool
		configPath string
		display    string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "shrub9ctl",
	Short: "Control a running shrub9 window manager",
	Long: `shrub9ctl talks to a running shrub9 window manager.

Workspace and focus commands and the status views go over the session bus.
exit and restart are sent to the root window of the X display, so they work
even when the bus is unavailable.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/shrub9/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.display, "display", "",
		"X display for exit and restart (default: $DISPLAY)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// connect opens the control client and a context bounded by requestTimeout.
func connect() (*dbus.Client, context.Context, context.CancelFunc, error) {
	client, err := dbus.NewClient()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	return client, ctx, cancel, nil
}
