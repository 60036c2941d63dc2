package providers

import "github.com/walteh/dbtls/pkg/cst"

type ItemKind string

const (
	KindModel   ItemKind = "model"
	KindMacro   ItemKind = "macro"
	KindBuiltin ItemKind = "builtin"
)

// CompletionItem represents a single completion suggestion
type CompletionItem struct {
	Label         string
	Kind          ItemKind
	Detail        string
	Documentation string
	// NewText replaces Replace; it is an LSP snippet when Snippet is set.
	NewText string
	Replace cst.Range
	Snippet bool
}
