// Package main implements urdc, the command-line front-end over the
// compiler core: compiling a .urd.md entry file to its JSON world
// artifact, reporting diagnostics without compiling, diffing two
// compiled worlds, and serving the LSP operations over stdio for
// editor integration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"urd/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "urdc",
	Short: "urdc compiles interactive-narrative worlds written in .urd.md",
	Long: `urdc compiles a .urd.md entry file and its imports into a single
deterministic JSON world artifact, through the PARSE, IMPORT, LINK,
VALIDATE, ANALYZE, and EMIT phases.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		base, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.SetBase(base)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(compileCmd, checkCmd, diffCmd, lspCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
