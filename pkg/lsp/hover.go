package lsp

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/dbtls/pkg/hover"
	"gitlab.com/tozd/go/errors"
)

func (me *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	me.track(ctx)
	doc, ok := me.documents.Get(me.ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	offset := doc.File.Index.Offset(fromProtocolPosition(params.Position))

	info, err := hover.Hover(me.ctx, me.Project(), doc.File, offset)
	if err != nil {
		return nil, errors.Errorf("hovering %s: %w", params.TextDocument.URI, err)
	}
	if info == nil {
		return nil, nil
	}

	rng := toProtocolRange(info.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(info.Content, "\n\n"),
		},
		Range: &rng,
	}, nil
}

func (me *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	me.track(ctx)
	doc, ok := me.documents.Get(me.ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	offset := doc.File.Index.Offset(fromProtocolPosition(params.Position))

	loc, ok := hover.Definition(me.ctx, me.Project(), doc.File, offset)
	if !ok {
		return nil, nil
	}
	return protocol.Location{
		URI:   PathToURI(loc.Path),
		Range: toProtocolRange(loc.Range),
	}, nil
}
