// Package lsp is the dbt jinja language server. It keeps open documents in
// full sync and answers completion, hover, definition and semantic token
// requests over stdio, publishing parse diagnostics as documents change.
package lsp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"github.com/walteh/dbtls/pkg/project"
	"gitlab.com/tozd/go/errors"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "dbtls"

type Options struct {
	// Fs is where projects and unopened documents are read from.
	Fs      afero.Fs
	Version string
	// Debug forwards the server's logs to the client as window/logMessage.
	Debug bool
}

// Server represents an LSP server instance
type Server struct {
	documents *DocumentManager
	fs        afero.Fs
	project   atomic.Pointer[project.Project]

	// Server identification
	id      string
	version string
	debug   bool

	ctx     context.Context
	handler protocol.Handler
	server  *server.Server

	// LSP client for notifications, taken from the latest request
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc
}

func NewServer(ctx context.Context, opts Options) *Server {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	me := &Server{
		fs:      opts.Fs,
		id:      uuid.NewString(),
		version: opts.Version,
		debug:   opts.Debug,
	}

	logger := zerolog.Ctx(ctx).With().Str("server_id", me.id).Logger()
	if me.debug {
		logger = logger.Hook(&LogMessageHook{server: me})
	}
	me.ctx = logger.WithContext(ctx)

	me.documents = NewDocumentManager(me.fs, project.ParseFile)
	me.documents.OnCommit = me.commit

	me.handler = protocol.Handler{
		Initialize:             me.initialize,
		Initialized:            me.initialized,
		Shutdown:               me.shutdown,
		SetTrace:               me.setTrace,
		TextDocumentDidOpen:    me.textDocumentDidOpen,
		TextDocumentDidChange:  me.textDocumentDidChange,
		TextDocumentDidClose:   me.textDocumentDidClose,
		TextDocumentDidSave:    me.textDocumentDidSave,
		TextDocumentCompletion: me.textDocumentCompletion,
		TextDocumentHover:      me.textDocumentHover,
		TextDocumentDefinition: me.textDocumentDefinition,

		TextDocumentSemanticTokensFull: me.textDocumentSemanticTokensFull,
	}
	me.server = server.NewServer(&me.handler, lsName, me.debug)
	return me
}

func (me *Server) Documents() *DocumentManager {
	return me.documents
}

// Handler exposes the request handlers, mostly for driving the server
// without a connection.
func (me *Server) Handler() *protocol.Handler {
	return &me.handler
}

// Project is the loaded project, nil before initialization or when the
// workspace has no dbt_project.yml.
func (me *Server) Project() *project.Project {
	return me.project.Load()
}

// RunStdio serves on stdin and stdout until the client exits.
func (me *Server) RunStdio() error {
	zerolog.Ctx(me.ctx).Info().Str("version", me.version).Msg("starting language server")
	if err := me.server.RunStdio(); err != nil {
		return errors.Errorf("running language server: %w", err)
	}
	return nil
}

// track remembers the connection of the latest request so background
// parses can notify the client.
func (me *Server) track(ctx *glsp.Context) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	me.notifyMu.Lock()
	me.notify = ctx.Notify
	me.notifyMu.Unlock()
}

func (me *Server) send(method string, params any) {
	me.notifyMu.Lock()
	notify := me.notify
	me.notifyMu.Unlock()
	if notify != nil {
		notify(method, params)
	}
}
