package lsp_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/dbtls/pkg/lsp"
)

type recorder struct {
	mu    sync.Mutex
	diags []protocol.PublishDiagnosticsParams
	logs  []protocol.LogMessageParams
}

func (r *recorder) notify(method string, params any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch p := params.(type) {
	case protocol.PublishDiagnosticsParams:
		r.diags = append(r.diags, p)
	case protocol.LogMessageParams:
		r.logs = append(r.logs, p)
	}
}

func (r *recorder) last(uri string) (protocol.PublishDiagnosticsParams, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.diags) - 1; i >= 0; i-- {
		if r.diags[i].URI == uri {
			return r.diags[i], true
		}
	}
	return protocol.PublishDiagnosticsParams{}, false
}

type harness struct {
	server *lsp.Server
	h      *protocol.Handler
	rec    *recorder
	ctx    *glsp.Context
}

func newHarness(t *testing.T, debug bool) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range map[string]string{
		"/proj/dbt_project.yml":      "name: shop\n",
		"/proj/models/customers.sql": "select 1",
		"/proj/macros/util.sql":      "{% macro cents(col, scale=2) %}{{ col }} * 100{% endmacro %}",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	rec := &recorder{}
	ctx := zerolog.New(io.Discard).Level(zerolog.DebugLevel).WithContext(context.Background())
	s := lsp.NewServer(ctx, lsp.Options{Fs: fs, Version: "test", Debug: debug})
	hs := &harness{server: s, h: s.Handler(), rec: rec, ctx: &glsp.Context{Notify: rec.notify}}

	root := protocol.DocumentUri("file:///proj")
	res, err := hs.h.Initialize(hs.ctx, &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "dbtls", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.HoverProvider)
	assert.NotNil(t, result.Capabilities.DefinitionProvider)
	require.NoError(t, hs.h.Initialized(hs.ctx, &protocol.InitializedParams{}))
	return hs
}

func (hs *harness) open(t *testing.T, uri, text string) {
	t.Helper()
	require.NoError(t, hs.h.TextDocumentDidOpen(hs.ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "jinja-sql", Version: 1, Text: text},
	}))
	hs.server.Documents().Wait()
}

func at(uri string, line, char uint32) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     protocol.Position{Line: line, Character: char},
	}
}

func TestInitializeLoadsProject(t *testing.T) {
	hs := newHarness(t, false)
	require.NotNil(t, hs.server.Project())
	assert.Equal(t, "shop", hs.server.Project().Spec.Name)
	assert.Equal(t, []string{"customers"}, hs.server.Project().ModelNames())
}

func TestInitializeWithoutProject(t *testing.T) {
	s := lsp.NewServer(context.Background(), lsp.Options{Fs: afero.NewMemMapFs()})
	root := protocol.DocumentUri("file:///nowhere")
	_, err := s.Handler().Initialize(&glsp.Context{}, &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	assert.Nil(t, s.Project())
}

func TestDiagnosticsFollowEdits(t *testing.T) {
	hs := newHarness(t, false)
	uri := "file:///proj/models/orders.sql"
	hs.open(t, uri, "select *\n{% if x %}")

	diags, ok := hs.rec.last(uri)
	require.True(t, ok)
	require.Len(t, diags.Diagnostics, 1)
	d := diags.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, "dbtls", *d.Source)
	assert.Equal(t, protocol.UInteger(1), d.Range.Start.Line)
	assert.Equal(t, protocol.UInteger(1), *diags.Version)

	// the opened model is now part of the project
	assert.Equal(t, []string{"customers", "orders"}, hs.server.Project().ModelNames())

	require.NoError(t, hs.h.TextDocumentDidChange(hs.ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "{% if x %}{% endif %}"}},
	}))
	hs.server.Documents().Wait()

	diags, ok = hs.rec.last(uri)
	require.True(t, ok)
	assert.Empty(t, diags.Diagnostics)
	assert.Equal(t, protocol.UInteger(2), *diags.Version)

	require.NoError(t, hs.h.TextDocumentDidClose(hs.ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	diags, ok = hs.rec.last(uri)
	require.True(t, ok)
	assert.Empty(t, diags.Diagnostics)
	assert.Nil(t, diags.Version)
	// never saved, so closing drops it from the project again
	assert.Equal(t, []string{"customers"}, hs.server.Project().ModelNames())
}

func TestDidSaveWithText(t *testing.T) {
	hs := newHarness(t, false)
	uri := "file:///proj/models/orders.sql"
	hs.open(t, uri, "select 1")

	text := "{{ "
	require.NoError(t, hs.h.TextDocumentDidSave(hs.ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Text:         &text,
	}))
	hs.server.Documents().Wait()

	diags, ok := hs.rec.last(uri)
	require.True(t, ok)
	assert.NotEmpty(t, diags.Diagnostics)
}

func TestCompletion(t *testing.T) {
	hs := newHarness(t, false)
	uri := "file:///proj/models/orders.sql"
	hs.open(t, uri, "select *\nfrom {{ ref('') }}")

	res, err := hs.h.TextDocumentCompletion(hs.ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: at(uri, 1, 13),
	})
	require.NoError(t, err)
	items, ok := res.([]protocol.CompletionItem)
	require.True(t, ok)

	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"customers", "orders"}, labels)

	edit, ok := items[0].TextEdit.(protocol.TextEdit)
	require.True(t, ok)
	assert.Equal(t, "customers", edit.NewText)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 13},
		End:   protocol.Position{Line: 1, Character: 13},
	}, edit.Range)
	assert.Equal(t, protocol.CompletionItemKindFile, *items[0].Kind)

	res, err = hs.h.TextDocumentCompletion(hs.ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: at(uri, 0, 3),
	})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHoverAndDefinition(t *testing.T) {
	hs := newHarness(t, false)
	uri := "file:///proj/models/orders.sql"
	hs.open(t, uri, "select {{ cents('amount') }} from {{ ref('customers') }}")

	hov, err := hs.h.TextDocumentHover(hs.ctx, &protocol.HoverParams{TextDocumentPositionParams: at(uri, 0, 12)})
	require.NoError(t, err)
	require.NotNil(t, hov)
	content, ok := hov.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "cents(col, scale=2)")
	assert.Equal(t, protocol.UInteger(10), hov.Range.Start.Character)

	res, err := hs.h.TextDocumentDefinition(hs.ctx, &protocol.DefinitionParams{TextDocumentPositionParams: at(uri, 0, 12)})
	require.NoError(t, err)
	loc, ok := res.(protocol.Location)
	require.True(t, ok)
	assert.Equal(t, "file:///proj/macros/util.sql", loc.URI)
	assert.Equal(t, protocol.UInteger(9), loc.Range.Start.Character)

	res, err = hs.h.TextDocumentDefinition(hs.ctx, &protocol.DefinitionParams{TextDocumentPositionParams: at(uri, 0, 44)})
	require.NoError(t, err)
	loc, ok = res.(protocol.Location)
	require.True(t, ok)
	assert.Equal(t, "file:///proj/models/customers.sql", loc.URI)

	res, err = hs.h.TextDocumentDefinition(hs.ctx, &protocol.DefinitionParams{TextDocumentPositionParams: at(uri, 0, 2)})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHoverOnUnopenedFileReadsDisk(t *testing.T) {
	hs := newHarness(t, false)
	hov, err := hs.h.TextDocumentHover(hs.ctx, &protocol.HoverParams{
		TextDocumentPositionParams: at("file:///proj/macros/util.sql", 0, 10),
	})
	require.NoError(t, err)
	require.NotNil(t, hov)
}

func TestDebugForwardsLogs(t *testing.T) {
	hs := newHarness(t, true)
	hs.open(t, "file:///proj/models/orders.sql", "select 1")

	hs.rec.mu.Lock()
	defer hs.rec.mu.Unlock()
	assert.NotEmpty(t, hs.rec.logs)
}

func TestSemanticTokensFull(t *testing.T) {
	hs := newHarness(t, false)
	uri := "file:///proj/models/orders.sql"
	hs.open(t, uri, "{{ ref('customers') }}")

	res, err := hs.h.TextDocumentSemanticTokensFull(hs.ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []protocol.UInteger{
		0, 3, 3, 1, 4, // ref
		0, 3, 1, 5, 0, // (
		0, 1, 11, 6, 0, // 'customers'
		0, 11, 1, 5, 0, // )
	}, res.Data)
}

func TestSemanticTokensLegendAdvertised(t *testing.T) {
	s := lsp.NewServer(context.Background(), lsp.Options{Fs: afero.NewMemMapFs()})
	res, err := s.Handler().Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)
	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	opts, ok := result.Capabilities.SemanticTokensProvider.(protocol.SemanticTokensOptions)
	require.True(t, ok)
	assert.Contains(t, opts.Legend.TokenTypes, "function")
	assert.Equal(t, "keyword", opts.Legend.TokenTypes[0])
}
