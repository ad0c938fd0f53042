package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shrub9/internal/adapter/output"
	"github.com/jmylchreest/shrub9/internal/core"
	"github.com/jmylchreest/shrub9/internal/model"
)

var statusOpts struct {
	// Filter options
	workspace int
	class     string
	state     string
	filter    string
	search    string
	limit     int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	template string
	compact  bool
	noHidden bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the window manager state",
	Long: `Print the current workspaces and their clients.

Examples:
  # Workspaces and clients, grouped
  shrub9ctl status

  # Terminals on the second workspace as JSON
  shrub9ctl status --workspace 2 --filter terminal=true --format json

  # Pick a window with fuzzel and focus it
  shrub9ctl status --format dmenu | fuzzel -d | shrub9ctl focus -`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var barCmd = &cobra.Command{
	Use:   "bar",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the current workspace in Waybar's custom module JSON format.

  "custom/shrub9": {
    "exec": "shrub9ctl bar",
    "interval": 1,
    "return-type": "json",
    "on-click": "shrub9ctl watch"
  }

The output includes:
  - text: current workspace number
  - tooltip: the active window and the client count per workspace
  - class: the interaction mode (idle, sweep, drag, menu, ...)`,
	Args: cobra.NoArgs,
	RunE: runBar,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(barCmd)

	statusCmd.Flags().IntVarP(&statusOpts.workspace, "workspace", "w", 0,
		"Only clients on this workspace (1-based, 0=all)")
	statusCmd.Flags().StringVar(&statusOpts.class, "class", "",
		"Only clients of this window class (case-insensitive)")
	statusCmd.Flags().StringVar(&statusOpts.state, "state", "",
		"Only clients in this state (normal, iconic)")
	statusCmd.Flags().StringVar(&statusOpts.filter, "filter", "",
		"Filter expression, e.g. class=XTerm,width>400")
	statusCmd.Flags().StringVarP(&statusOpts.search, "search", "s", "",
		"Fuzzy search in label, name and class")
	statusCmd.Flags().IntVarP(&statusOpts.limit, "limit", "n", 0,
		"Maximum number of clients to show (0=unlimited)")

	statusCmd.Flags().StringVar(&statusOpts.sortBy, "sort", "workspace",
		"Sort by field (workspace, label, class, window)")
	statusCmd.Flags().StringVar(&statusOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml, ids, dmenu)")
	statusCmd.Flags().StringVar(&statusOpts.template, "template", "",
		"Custom Go template per client for plain and dmenu output")
	statusCmd.Flags().BoolVar(&statusOpts.compact, "compact", false,
		"Single-line JSON output")
	statusCmd.Flags().BoolVar(&statusOpts.noHidden, "no-hidden", false,
		"Leave the hidden menu out of plain output")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOpts.format)
	if err != nil {
		return err
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
	logger.Debug("fetched status", "clients", len(snap.Clients), "current", snap.Current)

	if snap.Clients, err = selectClients(snap.Clients); err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = statusOpts.template
	opts.Compact = statusOpts.compact
	opts.ShowHidden = !statusOpts.noHidden
	return output.NewFormatter(format, opts).Format(os.Stdout, snap)
}

// selectClients applies the filter, search and sort flags.
func selectClients(clients []model.Client) ([]model.Client, error) {
	opts := core.FilterOptions{
		Class: statusOpts.class,
		State: strings.ToLower(statusOpts.state),
	}
	if statusOpts.workspace > 0 {
		ws := statusOpts.workspace - 1
		opts.Workspace = &ws
	}
	clients = core.Filter(clients, opts)

	if statusOpts.filter != "" {
		expr, err := core.ParseFilter(statusOpts.filter)
		if err != nil {
			return nil, err
		}
		clients = core.FilterWithExpr(clients, expr)
	}

	if statusOpts.search != "" {
		// Search ranks its results, so it replaces the sort.
		clients = core.Search(clients, statusOpts.search)
	} else {
		field, err := core.ParseSortField(statusOpts.sortBy)
		if err != nil {
			return nil, err
		}
		order, err := core.ParseSortOrder(statusOpts.sortOrder)
		if err != nil {
			return nil, err
		}
		core.Sort(clients, core.SortOptions{Field: field, Order: order})
	}

	if statusOpts.limit > 0 && len(clients) > statusOpts.limit {
		clients = clients[:statusOpts.limit]
	}
	return clients, nil
}

func runBar(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := connect()
	if err != nil {
		return outputStatus(WaybarStatus{Text: "", Alt: "error", Class: "error", Tooltip: err.Error()})
	}
	defer cancel()

	snap, err := client.Status(ctx)
	if err != nil {
		return outputStatus(WaybarStatus{Text: "", Alt: "error", Class: "error", Tooltip: err.Error()})
	}
	return outputStatus(barStatus(snap))
}

// barStatus creates a WaybarStatus from a snapshot.
func barStatus(snap *model.Snapshot) WaybarStatus {
	lines := make([]string, 0, len(snap.Workspaces)+1)
	if c, ok := snap.ActiveClient(); ok {
		lines = append(lines, "Active: "+c.Label)
	}
	for _, ws := range snap.Workspaces {
		marker := " "
		if ws.ID == snap.Current {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("%s %d: %d windows", marker, ws.ID+1, len(ws.Clients)))
	}
	if len(snap.Hidden) > 0 {
		lines = append(lines, fmt.Sprintf("Hidden: %d", len(snap.Hidden)))
	}

	percentage := 0
	if n := len(snap.Workspaces); n > 0 {
		percentage = (snap.Current + 1) * 100 / n
	}
	return WaybarStatus{
		Text:       fmt.Sprintf("%d", snap.Current+1),
		Alt:        snap.Mode,
		Tooltip:    strings.Join(lines, "\n"),
		Class:      snap.Mode,
		Percentage: percentage,
	}
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
