package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"urd/internal/compiler"
	"urd/internal/config"
	"urd/internal/imports"
)

var checkCmd = &cobra.Command{
	Use:   "check <entry.urd.md>",
	Short: "Report diagnostics for a .urd.md entry file without compiling it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	entryPath := args[0]
	root, rel := splitEntry(entryPath)
	reader := imports.NewDiskReader(root)

	result := compiler.Diagnostics(rel, reader, config.Default())
	printDiagnostics(os.Stdout, result.Diagnostics)

	if n := countErrors(result.Diagnostics); n > 0 {
		return fmt.Errorf("%d error(s) found", n)
	}
	return nil
}
