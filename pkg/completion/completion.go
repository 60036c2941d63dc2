// Package completion suggests model names inside ref(...) and macros in
// expression position.
package completion

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/dbtls/pkg/completion/providers"
	"github.com/walteh/dbtls/pkg/project"
)

// GetCompletions returns completion items for the cursor at offset in f. A
// nil project offers only the builtins.
func GetCompletions(ctx context.Context, prj *project.Project, f *project.File, offset int) []providers.CompletionItem {
	if f == nil {
		return nil
	}
	cc := NewCompletionContext(f, offset)

	var items []providers.CompletionItem
	switch {
	case cc.InRef:
		var models []string
		if prj != nil {
			models = prj.ModelNames()
		}
		items = providers.NewModelProvider().GetCompletions(models, !cc.InString)
	case cc.InString:
		return nil
	case cc.InExpression:
		var macros []project.Macro
		if prj != nil {
			macros = prj.Macros()
		}
		items = providers.NewMacroProvider().GetCompletions(macros, project.Builtins)
	default:
		return nil
	}

	out := items[:0]
	for _, item := range items {
		if !strings.HasPrefix(item.Label, cc.Prefix) {
			continue
		}
		item.Replace = cc.Replace
		out = append(out, item)
	}

	zerolog.Ctx(ctx).Debug().
		Int("offset", offset).
		Bool("in_ref", cc.InRef).
		Str("prefix", cc.Prefix).
		Int("items", len(out)).
		Msg("completion")
	return out
}
