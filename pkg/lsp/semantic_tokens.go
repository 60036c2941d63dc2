package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/dbtls/pkg/semtok"
)

func semanticTokensOptions() protocol.SemanticTokensOptions {
	types, modifiers := semtok.Legend()
	return protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     types,
			TokenModifiers: modifiers,
		},
		Full: true,
	}
}

func (me *Server) textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	me.track(ctx)
	doc, ok := me.documents.Get(me.ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	data := semtok.Encode(semtok.GetTokens(doc.File.Tree), doc.File.Index)
	out := &protocol.SemanticTokens{Data: make([]protocol.UInteger, len(data))}
	for i, v := range data {
		out.Data[i] = protocol.UInteger(v)
	}
	return out, nil
}
