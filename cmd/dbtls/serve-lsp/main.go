package serve_lsp

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"github.com/walteh/dbtls/pkg/lsp"
)

type Handler struct {
	debug bool
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdio",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.debug, _ = cmd.Flags().GetBool("debug")
		return me.Run(cmd.Context(), cmd.Root().Version)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, version string) error {
	// glsp logs through commonlog, which writes to stderr
	verbosity := 0
	if me.debug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	server := lsp.NewServer(ctx, lsp.Options{
		Fs:      afero.NewOsFs(),
		Version: version,
		Debug:   me.debug,
	})

	return server.RunStdio()
}
