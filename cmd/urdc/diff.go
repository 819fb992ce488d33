package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"urd/internal/compiler"
	"urd/internal/config"
	"urd/internal/diag"
	"urd/internal/diff"
	"urd/internal/imports"
)

var diffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff <old-entry.urd.md> <new-entry.urd.md>",
	Short: "Report the semantic difference between two compiled worlds",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "emit the full report as JSON instead of a summary")
}

func runDiff(cmd *cobra.Command, args []string) error {
	before, err := snapshotEntry(args[0])
	if err != nil {
		return fmt.Errorf("compiling %s: %w", args[0], err)
	}
	after, err := snapshotEntry(args[1])
	if err != nil {
		return fmt.Errorf("compiling %s: %w", args[1], err)
	}

	report := diff.Diff(before, after)

	if diffJSON {
		data, err := report.ToJSON()
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}
	fmt.Fprintln(os.Stdout, report.Summary())
	return nil
}

func snapshotEntry(entryPath string) (*diff.Snapshot, error) {
	root, rel := splitEntry(entryPath)
	reader := imports.NewDiskReader(root)

	result := compiler.Diagnostics(rel, reader, config.Default())

	collector := diag.NewCollector()
	for _, d := range result.Diagnostics {
		collector.Add(d)
	}

	worldName := ""
	if result.Symbols != nil {
		worldName = result.Symbols.WorldName
	}
	return diff.BuildSnapshot(worldName, result.Graph, result.Order, result.Symbols, result.Facts, result.PropertyIndex, collector), nil
}
