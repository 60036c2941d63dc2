package lsp

import (
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/dbtls/pkg/project"
	"gitlab.com/tozd/go/errors"
)

func (me *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	me.track(ctx)

	workspace := ""
	switch {
	case params.RootURI != nil && *params.RootURI != "":
		workspace = URIToPath(*params.RootURI)
	case params.RootPath != nil && *params.RootPath != "":
		workspace = *params.RootPath
	case len(params.WorkspaceFolders) > 0:
		workspace = URIToPath(params.WorkspaceFolders[0].URI)
	}

	if workspace != "" {
		if err := me.loadProject(workspace); err != nil {
			return nil, err
		}
	}

	capabilities := me.handler.CreateServerCapabilities()
	openClose := true
	change := protocol.TextDocumentSyncKindFull
	includeText := true
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
		Save:      &protocol.SaveOptions{IncludeText: &includeText},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"(", "'", "\"", "."},
	}
	capabilities.SemanticTokensProvider = semanticTokensOptions()

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &me.version,
		},
	}, nil
}

// loadProject finds the dbt project containing workspace. A workspace
// without one is served file by file.
func (me *Server) loadProject(workspace string) error {
	logger := zerolog.Ctx(me.ctx)

	root, err := project.FindRoot(me.fs, workspace)
	if err != nil {
		if errors.Is(err, project.ErrNoProject) {
			logger.Warn().Str("workspace", workspace).Msg("no dbt project found, serving single files")
			return nil
		}
		return errors.Errorf("finding project for %s: %w", workspace, err)
	}

	prj, err := project.Load(me.ctx, me.fs, root)
	var merr *multierror.Error
	switch {
	case err == nil:
	case errors.As(err, &merr) && prj != nil:
		logger.Warn().Err(err).Int("files", merr.Len()).Msg("some project files could not be loaded")
	default:
		return errors.Errorf("loading project %s: %w", root, err)
	}

	me.project.Store(prj)
	logger.Info().Str("root", root).Str("name", prj.Spec.Name).Msg("loaded project")
	return nil
}

func (me *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	me.track(ctx)
	return nil
}

func (me *Server) shutdown(ctx *glsp.Context) error {
	me.documents.Wait()
	return nil
}

func (me *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
