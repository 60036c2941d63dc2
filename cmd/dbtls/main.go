package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	diagnosticscmd "github.com/walteh/dbtls/cmd/dbtls/diagnostics"
	dumptreecmd "github.com/walteh/dbtls/cmd/dbtls/dump-tree"
	serve_lsp "github.com/walteh/dbtls/cmd/dbtls/serve-lsp"
	logging "github.com/walteh/dbtls/pkg/debug"
)

func main() {
	ctx := context.Background()

	var verbose bool
	cmd := &cobra.Command{
		Use:   "dbtls",
		Short: "language tooling for dbt jinja templates",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout carries LSP frames and dumps, logs go to stderr
			logger := logging.NewLogger(os.Stderr, verbose, !color.NoColor)
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}
	cmd.PersistentFlags().BoolVar(&verbose, "debug", false, "enable debug logging")

	cmd.AddCommand(serve_lsp.NewServeLSPCommand())
	cmd.AddCommand(dumptreecmd.NewDumpTreeCommand())
	cmd.AddCommand(diagnosticscmd.NewDiagnosticsCommand())

	info, ok := debug.ReadBuildInfo()
	if !ok {
		cmd.Version = "unknown"
	} else {
		cmd.Version = info.Main.Version
	}

	cmd.InitDefaultVersionFlag()

	cmd.SilenceUsage = true

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
