package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/shrub9/internal/adapter/output"
	"github.com/jmylchreest/shrub9/internal/replay"
)

var replayOpts struct {
	format string
	quiet  bool
}

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>...",
	Short: "Run scripted event sequences against an in-memory display",
	Long: `Replay a YAML script of X events against the window manager core without
an X server, check its expectations and print the final state.

The command fails when any expectation does not hold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayOpts.format, "format", "f", "plain",
		"Output format for the final state (plain, json, yaml, ids, dmenu) or \"result\" for the full result as YAML")
	replayCmd.Flags().BoolVarP(&replayOpts.quiet, "quiet", "q", false,
		"Only report failures")
}

func runReplay(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		script, err := replay.Load(path)
		if err != nil {
			return err
		}
		res, err := replay.Run(script, logger)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !res.OK() {
			failed++
		}
		if err := printResult(path, res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scripts failed", failed, len(args))
	}
	return nil
}

func printResult(path string, res *replay.Result) error {
	status := "ok"
	if !res.OK() {
		status = "FAIL"
	}
	fmt.Fprintf(os.Stderr, "%s %s (%s): %d steps, %d requests, %s\n",
		status, res.Name, path, res.Steps, res.Requests, res.Action)
	for _, f := range res.Failures {
		where := fmt.Sprintf("step %d", f.Step)
		if f.Step == 0 {
			where = "end"
		}
		if f.Note != "" {
			where += " (" + f.Note + ")"
		}
		fmt.Fprintf(os.Stderr, "  %s: %s\n", where, f.Err)
	}
	if replayOpts.quiet {
		return nil
	}

	switch replayOpts.format {
	case "result":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case "result-json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	format, err := output.ParseFormat(replayOpts.format)
	if err != nil {
		return err
	}
	snap := res.Snapshot
	return output.NewFormatter(format, output.DefaultFormatterOptions()).Format(os.Stdout, &snap)
}
