// Package hover answers position queries over a parsed file: what is under
// the cursor, what to show for it and where it is defined.
package hover

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/dbtls/pkg/position"
	"github.com/walteh/dbtls/pkg/project"
	"gitlab.com/tozd/go/errors"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the markdown content to display, one paragraph per entry
	Content []string
	// Range is the range in the document that this hover applies to
	Range position.Range
}

// Hover describes what is under offset in f. The project may be nil, in
// which case only builtins and the kind path are known.
func Hover(ctx context.Context, prj *project.Project, f *project.File, offset int) (*HoverInfo, error) {
	if f == nil {
		return nil, errors.New("file cannot be nil")
	}
	target, ok := Locate(f.Tree, offset)
	if !ok {
		return nil, nil
	}

	info := &HoverInfo{Range: f.Index.Range(target.Range)}
	switch target.Kind {
	case TargetMacro:
		if content, ok := describeMacro(prj, target.Name); ok {
			info.Content = content
			return info, nil
		}
	case TargetRef:
		if prj != nil {
			if p, ok := prj.ModelPath(target.Name); ok {
				info.Content = []string{fmt.Sprintf("**model** `%s`", target.Name), p}
				return info, nil
			}
		}
		zerolog.Ctx(ctx).Debug().Str("model", target.Name).Msg("hover on unknown model")
	}

	info.Range = f.Index.Range(target.Token.Range())
	info.Content = []string{kindPath(target)}
	return info, nil
}

func describeMacro(prj *project.Project, name string) ([]string, bool) {
	if prj != nil {
		if m, ok := prj.LookupMacro(name); ok {
			return []string{"```jinja\n{% macro " + m.Signature() + " %}\n```", m.Path}, true
		}
	}
	i := slices.IndexFunc(project.Builtins, func(b project.Builtin) bool { return b.Name == name })
	if i < 0 {
		return nil, false
	}
	b := project.Builtins[i]
	sig := b.Name + "(" + strings.Join(b.Args, ", ") + ")"
	if b.Special {
		sig = b.Name + "(...)"
	}
	return []string{"```jinja\n" + sig + "\n```", fmt.Sprintf("[dbt docs](%s)", b.DocsURL)}, true
}

// kindPath renders the token kind and its ancestors, innermost first, e.g.
// "Name < ExprName < Variable < Template".
func kindPath(target Target) string {
	parts := []string{target.Token.TokenKind().String()}
	for n := range target.Token.Ancestors() {
		parts = append(parts, n.Kind().String())
	}
	return fmt.Sprintf("`%s`\n\n%s", target.Token.Text(), strings.Join(parts, " < "))
}
