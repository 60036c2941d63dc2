// Package finder lists the template files of a project directory.
package finder

import (
	"context"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultExtensions are the extensions dbt compiles as jinja.
var DefaultExtensions = []string{".sql"}

// TemplateFinder is responsible for finding template files in a directory
type TemplateFinder interface {
	// FindTemplates finds all template files below dir that match the given extensions
	FindTemplates(ctx context.Context, dir string, extensions []string) ([]string, error)
}

// DefaultFinder walks an afero filesystem with doublestar globs.
type DefaultFinder struct {
	fs afero.Fs
}

func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

// FindTemplates returns the sorted absolute paths of the files below dir
// ending in one of extensions, DefaultExtensions when empty. A missing dir
// is an error.
func (f *DefaultFinder) FindTemplates(ctx context.Context, dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if ok, err := afero.DirExists(f.fs, dir); err != nil || !ok {
		return nil, errors.Errorf("listing %s: not a directory", dir)
	}

	base := afero.NewIOFS(afero.NewBasePathFs(f.fs, dir))
	var out []string
	for _, ext := range extensions {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		matches, err := doublestar.Glob(base, "**/*"+escape(ext), doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("listing %s: %w", dir, err)
		}
		for _, m := range matches {
			out = append(out, path.Join(dir, m))
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func escape(ext string) string {
	var sb strings.Builder
	for _, r := range ext {
		if strings.ContainsRune(`*?[]{}\`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
