package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/shrub9/internal/event"
	"github.com/jmylchreest/shrub9/internal/x11"
)

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Ask the window manager to exit",
	Long: `Send the 9WM_EXIT client message to the root window. The window manager
puts every client back on the root, restores its state and exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendRootMessage(event.AtomExit)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Ask the window manager to restart in place",
	Long: `Send the 9WM_RESTART client message to the root window. The window manager
releases its clients and executes itself again, adopting them on startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendRootMessage(event.AtomRestart)
	},
}

func init() {
	rootCmd.AddCommand(exitCmd)
	rootCmd.AddCommand(restartCmd)
}

func sendRootMessage(atom string) error {
	logger.Debug("sending root message", "display", globalOpts.display, "atom", atom)
	return x11.SendMessage(globalOpts.display, atom)
}
