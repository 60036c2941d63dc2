package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/dbtls/pkg/completion"
	"github.com/walteh/dbtls/pkg/completion/providers"
)

func (me *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	me.track(ctx)
	doc, ok := me.documents.Get(me.ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	offset := doc.File.Index.Offset(fromProtocolPosition(params.Position))

	items := completion.GetCompletions(me.ctx, me.Project(), doc.File, offset)
	if len(items) == 0 {
		return nil, nil
	}

	out := make([]protocol.CompletionItem, 0, len(items))
	for _, item := range items {
		kind := toProtocolKind(item.Kind)
		format := protocol.InsertTextFormatPlainText
		if item.Snippet {
			format = protocol.InsertTextFormatSnippet
		}
		ci := protocol.CompletionItem{
			Label:            item.Label,
			Kind:             &kind,
			InsertTextFormat: &format,
			TextEdit: protocol.TextEdit{
				Range:   toProtocolRange(doc.File.Index.Range(item.Replace)),
				NewText: item.NewText,
			},
		}
		if item.Detail != "" {
			detail := item.Detail
			ci.Detail = &detail
		}
		if item.Documentation != "" {
			ci.Documentation = item.Documentation
		}
		out = append(out, ci)
	}
	return out, nil
}

func toProtocolKind(kind providers.ItemKind) protocol.CompletionItemKind {
	switch kind {
	case providers.KindModel:
		return protocol.CompletionItemKindFile
	case providers.KindMacro:
		return protocol.CompletionItemKindFunction
	case providers.KindBuiltin:
		return protocol.CompletionItemKindKeyword
	default:
		return protocol.CompletionItemKindText
	}
}
