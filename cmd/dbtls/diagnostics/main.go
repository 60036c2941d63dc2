package diagnostics

import (
	"context"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/dbtls/pkg/diagnostic"
	"github.com/walteh/dbtls/pkg/project"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// ErrProblemsFound is returned when any file has diagnostics.
var ErrProblemsFound = errors.Base("problems found")

type Handler struct {
	projectDir string
	format     string // text, json
	fs         afero.Fs
}

func NewDiagnosticsCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "diagnostics [project-dir]",
		Short: "report parse problems in every model and macro of a dbt project",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringVar(&me.format, "format", "text", "the format of the diagnostics (text, json)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.projectDir = "."
		if len(args) > 0 {
			me.projectDir = args[0]
		}
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer) error {
	formatter, err := diagnostic.NewFormatter(me.format)
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(me.projectDir)
	if err != nil {
		return errors.Errorf("resolving %s: %w", me.projectDir, err)
	}
	root, err := project.FindRoot(me.fs, filepath.ToSlash(dir))
	if err != nil {
		return err
	}

	var errs error
	prj, err := project.Load(ctx, me.fs, root)
	if err != nil {
		var merr *multierror.Error
		if prj == nil || !errors.As(err, &merr) {
			return errors.Errorf("loading project: %w", err)
		}
		for _, e := range merr.WrappedErrors() {
			errs = multierr.Append(errs, e)
		}
	}

	problems := 0
	for _, f := range prj.Files() {
		diags := diagnostic.FromParse(f.Errors, f.Index)
		if diags.Len() == 0 {
			continue
		}
		problems += diags.Len()

		name, err := filepath.Rel(root, f.Path)
		if err != nil {
			name = f.Path
		}
		data, err := formatter.Format(name, diags)
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("formatting %s: %w", name, err))
			continue
		}
		if _, err := out.Write(data); err != nil {
			errs = multierr.Append(errs, errors.Errorf("writing diagnostics: %w", err))
			break
		}
	}

	zerolog.Ctx(ctx).Debug().Str("root", root).Int("files", len(prj.Files())).Int("problems", problems).Msg("checked project")

	if problems > 0 {
		errs = multierr.Append(errs, errors.Errorf("%d problems: %w", problems, ErrProblemsFound))
	}
	return errs
}
