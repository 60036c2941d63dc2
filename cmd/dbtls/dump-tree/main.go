package dump_tree

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/dbtls/pkg/parser"
	"github.com/walteh/dbtls/pkg/treedump"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	timeout time.Duration
	indent  int
	maxText int
}

func NewDumpTreeCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "dump-tree",
		Short: "parse a template from stdin and print its syntax tree",
		Args:  cobra.NoArgs,
	}

	cmd.Flags().DurationVar(&me.timeout, "timeout", time.Second, "give up when parsing and rendering take longer")
	cmd.Flags().IntVar(&me.indent, "indent", 2, "spaces per tree level")
	cmd.Flags().IntVar(&me.maxText, "max-text", 0, "truncate token text to this many characters, 0 for no limit")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	}

	return cmd
}

type rendered struct {
	dump string
	err  error
}

// Run writes the dump of the template read from in. Nothing is written to
// out unless the whole dump is ready before the timeout.
func (me *Handler) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return errors.Errorf("reading template: %w", err)
	}

	if me.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, me.timeout)
		defer cancel()
	}

	done := make(chan rendered, 1)
	go func() {
		res, err := parser.Parse(ctx, string(data))
		if err != nil {
			done <- rendered{err: err}
			return
		}
		zerolog.Ctx(ctx).Debug().Int("errors", len(res.Errors)).Int("tokens", res.Tree.TokenCount()).Msg("parsed template")

		var sb strings.Builder
		err = treedump.Write(&sb, res.Tree, treedump.Options{Indent: me.indent, MaxText: me.maxText})
		done <- rendered{dump: sb.String(), err: err}
	}()

	select {
	case <-ctx.Done():
		return errors.Errorf("dumping tree: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return errors.Errorf("dumping tree: %w", r.err)
		}
		if _, err := io.WriteString(out, r.dump); err != nil {
			return errors.Errorf("writing tree: %w", err)
		}
		return nil
	}
}
