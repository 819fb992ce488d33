package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"urd/internal/config"
	"urd/internal/imports"
	"urd/internal/logging"
	"urd/internal/lsp"
)

var lspWorkspace string

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Serve live diagnostics, go-to-definition, and completion over stdio",
	Long: `Starts urdc's editor-integration server: newline-delimited JSON
requests on stdin, newline-delimited JSON responses on stdout. Meant to
be invoked by an editor extension, not run interactively.`,
	RunE: runLSP,
}

func init() {
	lspCmd.Flags().StringVarP(&lspWorkspace, "workspace", "w", ".", "workspace root to read files from")
}

func runLSP(cmd *cobra.Command, args []string) error {
	workspace := lspWorkspace
	if abs, err := os.Getwd(); err == nil && workspace == "." {
		workspace = abs
	}

	reader := imports.NewDiskReader(workspace)
	manager := lsp.NewManager(workspace, reader, config.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Get(logging.LSP).Infow("received shutdown signal")
		cancel()
	}()

	if err := manager.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("lsp server: %w", err)
	}
	return nil
}
