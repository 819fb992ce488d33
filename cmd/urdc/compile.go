package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"urd/internal/compiler"
	"urd/internal/config"
	"urd/internal/imports"
)

var compileOutput string

var compileCmd = &cobra.Command{
	Use:   "compile <entry.urd.md>",
	Short: "Compile a .urd.md entry file to its JSON world artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "out", "o", "", "write the JSON world here instead of stdout")
}

func runCompile(cmd *cobra.Command, args []string) error {
	entryPath := args[0]
	root, rel := splitEntry(entryPath)
	reader := imports.NewDiskReader(root)

	result, err := compiler.Compile(rel, reader, config.Default())
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	printDiagnostics(os.Stderr, result.Diagnostics)

	if !result.Success {
		return fmt.Errorf("compilation failed with %d error(s)", countErrors(result.Diagnostics))
	}

	if compileOutput == "" {
		fmt.Fprintln(os.Stdout, result.World)
		return nil
	}
	return os.WriteFile(compileOutput, []byte(result.World+"\n"), 0o644)
}

// splitEntry divides entryPath into the directory IMPORT resolves
// every other path relative to, and the entry's own path relative to
// that root. DiskReader.ReadFile joins paths under Root, so the root
// must be a real directory, never the entry file itself.
func splitEntry(entryPath string) (root, rel string) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return filepath.Dir(entryPath), filepath.Base(entryPath)
	}
	return filepath.Dir(abs), filepath.Base(abs)
}
