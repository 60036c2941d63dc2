// Command kindgen renders the kind constants of pkg/kind from syntax.toml.
package main

import (
	"bytes"
	"context"
	"go/format"
	"os"
	"text/template"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/dbtls/pkg/kind"
	"gitlab.com/tozd/go/errors"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx = logger.WithContext(ctx)

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run generator")
	}
}

type Handler struct {
	in  string
	out string
	pkg string
}

func newRootCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "kindgen",
		Short: "generate token and syntax kind constants",
	}

	cmd.Flags().StringVar(&me.in, "in", "syntax.toml", "syntax description to read")
	cmd.Flags().StringVar(&me.out, "out", "kind_gen.go", "go file to write")
	cmd.Flags().StringVar(&me.pkg, "package", "kind", "package clause of the generated file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	f, err := os.Open(me.in)
	if err != nil {
		return errors.Errorf("opening syntax description: %w", err)
	}
	defer f.Close()

	table, err := kind.Load(f)
	if err != nil {
		return errors.Errorf("loading %s: %w", me.in, err)
	}

	src, err := Render(me.pkg, table)
	if err != nil {
		return err
	}

	if err := os.WriteFile(me.out, src, 0644); err != nil {
		return errors.Errorf("writing %s: %w", me.out, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("path", me.out).
		Int("token_kinds", table.TokenCount()).
		Int("syntax_kinds", table.SyntaxCount()).
		Msg("generated file")

	return nil
}

type constant struct {
	Name string
	ID   int
}

type templateData struct {
	Package     string
	TokenCount  int
	SyntaxCount int
	LeafLast    int
	Tokens      []constant
	Syntax      []constant
}

var fileTemplate = template.Must(template.New("kind").Parse(`// Code generated by kindgen from syntax.toml. DO NOT EDIT.

package {{ .Package }}

const (
	tokenKindCount  = {{ .TokenCount }}
	syntaxKindCount = {{ .SyntaxCount }}
)

// Token kinds.
const (
	ErrorToken TokenKind = 0
{{- range .Tokens }}
	{{ .Name }} TokenKind = {{ .ID }}
{{- end }}
)

// Syntax kinds. Ids 1 through {{ .LeafLast }} are the leaf mirrors of the token kinds.
const (
	ErrorNode SyntaxKind = 0
{{- range .Syntax }}
	{{ .Name }} SyntaxKind = {{ .ID }}
{{- end }}
)
`))

// Render produces the formatted constants file for table.
func Render(pkg string, table *kind.Table) ([]byte, error) {
	data := templateData{
		Package:     pkg,
		TokenCount:  table.TokenCount(),
		SyntaxCount: table.SyntaxCount(),
		LeafLast:    table.TokenCount() - 1,
	}
	for id, name := range table.TokenNames() {
		if id == 0 {
			continue
		}
		data.Tokens = append(data.Tokens, constant{Name: name, ID: id})
	}
	names := table.SyntaxNames()
	for id := int(table.Root()); id < len(names); id++ {
		data.Syntax = append(data.Syntax, constant{Name: names[id], ID: id})
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, errors.Errorf("executing template: %w", err)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Errorf("formatting generated source: %w", err)
	}
	return out, nil
}
