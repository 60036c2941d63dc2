package project

import (
	"fmt"
	"strings"

	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
)

// DefaultArg is a macro parameter with a default value, kept as source text.
type DefaultArg struct {
	Name  string
	Value string
}

// Macro is a {% macro %} definition.
type Macro struct {
	Name        string
	Args        []string
	DefaultArgs []DefaultArg
	// Declaration covers the whole macro block, NameRange just its name.
	Declaration cst.Range
	NameRange   cst.Range
	// Path is the file defining the macro, Package the installed package
	// providing it ("" for the root project).
	Path    string
	Package string
}

// Identifier is the name the macro is called by: package qualified for
// macros of installed packages.
func (m Macro) Identifier() string {
	if m.Package != "" {
		return m.Package + "." + m.Name
	}
	return m.Name
}

// Signature renders the macro header, e.g. "greet(name, greeting='hi')".
func (m Macro) Signature() string {
	parts := make([]string, 0, len(m.Args)+len(m.DefaultArgs))
	parts = append(parts, m.Args...)
	for _, d := range m.DefaultArgs {
		parts = append(parts, d.Name+"="+d.Value)
	}
	return m.Identifier() + "(" + strings.Join(parts, ", ") + ")"
}

// Snippet is an LSP snippet calling the macro with placeholders for its
// positional arguments.
func (m Macro) Snippet() string {
	return snippet(m.Identifier(), m.Args)
}

func snippet(name string, args []string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "${%d:%s}", i+1, a)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Materialization is a {% materialization %} definition.
type Materialization struct {
	Name string
	// Adapter is "default" unless the header names one.
	Adapter string
}

// Builtin is a macro dbt provides.
type Builtin struct {
	Name    string
	Args    []string
	DocsURL string
	// Special builtins take arguments that are completed separately.
	Special bool
}

func (b Builtin) Snippet() string {
	if b.Special {
		return b.Name
	}
	return snippet(b.Name, b.Args)
}

var Builtins = []Builtin{
	{Name: "source", Args: []string{"source_name", "table_name"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/source"},
	{Name: "env_var", Args: []string{"ENV_VAR"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/env_var"},
	{Name: "var", Args: []string{"variable"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/var"},
	{Name: "fromjson", Args: []string{"json_str"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/fromjson"},
	{Name: "fromyaml", Args: []string{"yaml_str"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/fromyaml"},
	{Name: "tojson", Args: []string{"object"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/tojson"},
	{Name: "toyaml", Args: []string{"object"}, DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/toyaml"},
	{Name: "ref", DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/ref", Special: true},
	{Name: "config", DocsURL: "https://docs.getdbt.com/reference/dbt-jinja-functions/config", Special: true},
}

// Extract finds the macro and materialization definitions in tree. Blocks
// that did not parse as macros (unclosed ones become error nodes) are
// skipped.
func Extract(tree *cst.Tree) ([]Macro, []Materialization) {
	var macros []Macro
	var mats []Materialization
	for n := range tree.Root().DescendantNodes() {
		switch n.Kind() {
		case kind.StmtMacro:
			macros = append(macros, extractMacro(n))
		case kind.StmtMaterialization:
			mats = append(mats, extractMaterialization(n))
		}
	}
	return macros, mats
}

func extractMacro(n cst.Node) Macro {
	m := Macro{Declaration: n.Range()}
	start, ok := n.NodeOfKind(kind.MacroBlockStart)
	if !ok {
		return m
	}
	if name, ok := start.NodeOfKind(kind.ExprName); ok {
		m.Name = name.Text()
		m.NameRange = name.Range()
	}
	sig, ok := start.NodeOfKind(kind.Signature)
	if !ok {
		return m
	}
	for _, arg := range sig.ChildNodes() {
		switch arg.Kind() {
		case kind.SignatureArg:
			if name, ok := arg.NodeOfKind(kind.ExprName); ok {
				m.Args = append(m.Args, name.Text())
			}
		case kind.SignatureDefaultArg:
			m.DefaultArgs = append(m.DefaultArgs, extractDefault(arg))
		}
	}
	return m
}

// extractDefault reads "name = value": the first name before the '=' and
// the first meaningful element after it.
func extractDefault(n cst.Node) DefaultArg {
	var d DefaultArg
	seenAssign := false
	for _, c := range n.Children() {
		if !seenAssign {
			switch {
			case c.Kind() == kind.ExprName:
				d.Name = c.Text()
			case c.Kind() == kind.Assign.Syntax():
				seenAssign = true
			}
			continue
		}
		if !c.IsTrivia() {
			d.Value = c.Text()
			break
		}
	}
	return d
}

func extractMaterialization(n cst.Node) Materialization {
	mat := Materialization{Adapter: "default"}
	start, ok := n.NodeOfKind(kind.MaterializationBlockStart)
	if !ok {
		return mat
	}
	if name, ok := start.NodeOfKind(kind.ExprName); ok {
		mat.Name = name.Text()
	}
	// an adapter that is not a string literal is a parse error and keeps
	// the default
	if adapter, ok := start.NodeOfKind(kind.MaterializationAdapter); ok {
		if s, ok := adapter.NodeOfKind(kind.ExprConstantString); ok {
			mat.Adapter = Unquote(s.Text())
		}
	}
	return mat
}

// Unquote strips the quotes of a single jinja string literal.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
