package providers

import (
	"github.com/walteh/dbtls/pkg/project"
)

// MacroProvider handles completions of project, package and builtin macros
type MacroProvider struct{}

// NewMacroProvider creates a new macro completion provider
func NewMacroProvider() *MacroProvider {
	return &MacroProvider{}
}

// GetCompletions returns the macros followed by the builtins.
func (p *MacroProvider) GetCompletions(macros []project.Macro, builtins []project.Builtin) []CompletionItem {
	completions := make([]CompletionItem, 0, len(macros)+len(builtins))
	for _, m := range macros {
		completions = append(completions, CompletionItem{
			Label:         m.Identifier(),
			Kind:          KindMacro,
			Detail:        m.Signature(),
			Documentation: m.Path,
			NewText:       m.Snippet(),
			Snippet:       true,
		})
	}
	for _, b := range builtins {
		completions = append(completions, CompletionItem{
			Label:         b.Name,
			Kind:          KindBuiltin,
			Detail:        "dbt builtin",
			Documentation: b.DocsURL,
			NewText:       b.Snippet(),
			Snippet:       !b.Special,
		})
	}
	return completions
}
