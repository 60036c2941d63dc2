package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/dbtls/pkg/diagnostic"
	"github.com/walteh/dbtls/pkg/position"
)

func (me *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	me.track(ctx)
	doc := params.TextDocument
	me.documents.Update(me.ctx, doc.URI, doc.LanguageID, doc.Version, doc.Text)
	return nil
}

func (me *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	me.track(ctx)
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// full sync: the last change holds the whole text
	change := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := change.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		zerolog.Ctx(me.ctx).Warn().Str("uri", params.TextDocument.URI).Msg("ignoring incremental change")
		return nil
	}

	languageID := ""
	if prev, ok := me.documents.GetNoFallback(params.TextDocument.URI); ok {
		languageID = prev.LanguageID
	}
	me.documents.Update(me.ctx, params.TextDocument.URI, languageID, params.TextDocument.Version, whole.Text)
	return nil
}

func (me *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	me.track(ctx)
	uri := params.TextDocument.URI
	me.documents.Close(uri)

	// the buffer may have held unsaved edits
	if prj := me.Project(); prj != nil {
		if err := prj.Reload(me.ctx, URIToPath(uri)); err != nil {
			zerolog.Ctx(me.ctx).Warn().Str("uri", uri).Err(err).Msg("reloading closed document")
		}
	}

	me.send(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (me *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	me.track(ctx)
	uri := params.TextDocument.URI
	prev, open := me.documents.GetNoFallback(uri)

	switch {
	case params.Text != nil && open:
		me.documents.Update(me.ctx, uri, prev.LanguageID, prev.Version, *params.Text)
	case params.Text != nil:
		me.documents.Update(me.ctx, uri, "", 0, *params.Text)
	case me.Project() != nil:
		if err := me.Project().Reload(me.ctx, URIToPath(uri)); err != nil {
			zerolog.Ctx(me.ctx).Warn().Str("uri", uri).Err(err).Msg("reloading saved document")
		}
	}
	return nil
}

// commit runs for every stored parse: the project learns about the new
// snapshot and the client gets its diagnostics.
func (me *Server) commit(ctx context.Context, doc *Document) {
	if prj := me.Project(); prj != nil {
		prj.Store(doc.File)
	}
	me.publishDiagnostics(ctx, doc)
}

func (me *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	diags := diagnostic.FromParse(doc.File.Errors, doc.File.Index)
	version := protocol.UInteger(max(doc.Version, 0))

	params := protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: make([]protocol.Diagnostic, 0, diags.Len()),
	}
	for _, d := range diags.All() {
		params.Diagnostics = append(params.Diagnostics, toProtocolDiagnostic(d))
	}

	zerolog.Ctx(ctx).Debug().
		Str("uri", doc.URI).
		Int32("version", doc.Version).
		Int("diagnostics", len(params.Diagnostics)).
		Msg("publishing diagnostics")
	me.send(protocol.ServerTextDocumentPublishDiagnostics, params)
}

func toProtocolDiagnostic(d diagnostic.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverity(d.Severity.Protocol())
	source := lsName
	out := protocol.Diagnostic{
		Range:    toProtocolRange(d.Range),
		Severity: &severity,
		Source:   &source,
		Message:  d.Message,
	}
	if d.Code != "" {
		out.Code = &protocol.IntegerOrString{Value: d.Code}
	}
	return out
}

func toProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(r.Start),
		End:   toProtocolPosition(r.End),
	}
}

func toProtocolPosition(p position.Place) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(p.Line),
		Character: protocol.UInteger(p.Character),
	}
}

func fromProtocolPosition(p protocol.Position) position.Place {
	return position.Place{Line: int(p.Line), Character: int(p.Character)}
}
