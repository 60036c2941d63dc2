package parser_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
	"github.com/walteh/dbtls/pkg/lexer"
	"github.com/walteh/dbtls/pkg/parser"
)

// shape renders the node structure of n, ignoring tokens.
func shape(n cst.Node) string {
	kids := n.ChildNodes()
	if len(kids) == 0 {
		return n.Kind().String()
	}
	parts := make([]string, len(kids))
	for i, c := range kids {
		parts[i] = shape(c)
	}
	return n.Kind().String() + "(" + strings.Join(parts, " ") + ")"
}

func parse(t *testing.T, src string) *parser.Result {
	t.Helper()
	res, err := parser.Parse(context.Background(), src)
	require.NoError(t, err)
	require.NotNil(t, res.Tree)
	return res
}

func first(t *testing.T, root cst.Node, k kind.SyntaxKind) cst.Node {
	t.Helper()
	for n := range root.DescendantNodes() {
		if n.Kind() == k {
			return n
		}
	}
	require.Failf(t, "node not found", "no %s in %s", k, shape(root))
	return cst.Node{}
}

func TestShapes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		shape string
	}{
		{
			name:  "precedence",
			src:   "{{ 1 + 2 * 3 }}",
			shape: "Template(Variable(ExprAdd(ExprConstantInteger ExprMultiply(ExprConstantInteger ExprConstantInteger))))",
		},
		{
			name:  "power_is_right_associative",
			src:   "{{ 2 ** 3 ** 2 }}",
			shape: "Template(Variable(ExprPower(ExprConstantInteger ExprPower(ExprConstantInteger ExprConstantInteger))))",
		},
		{
			name:  "not_binds_looser_than_compare",
			src:   "{{ not a and b }}",
			shape: "Template(Variable(ExprAnd(ExprNot(NameOperatorNot ExprName) NameOperatorAnd ExprName)))",
		},
		{
			name:  "unary",
			src:   "{{ -x }}",
			shape: "Template(Variable(ExprNegative(ExprName)))",
		},
		{
			name:  "chained_compare",
			src:   "{{ a == b not in c }}",
			shape: "Template(Variable(ExprCompare(ExprName Operand(ExprName) Operand(NameOperatorNotIn ExprName))))",
		},
		{
			name:  "ternary",
			src:   "{{ a if b else c }}",
			shape: "Template(Variable(ExprTernary(ExprName NameOperatorIf ExprName NameOperatorElse ExprName)))",
		},
		{
			name:  "concat",
			src:   "{{ a ~ b ~ c }}",
			shape: "Template(Variable(ExprConcat(ExprName ExprName ExprName)))",
		},
		{
			name:  "postfix_and_filter",
			src:   "{{ a.b[0] | upper }}",
			shape: "Template(Variable(ExprFilter(ExprGetItem(ExprGetAttr(ExprName Subscript) Subscript(ExprConstantInteger)) ExprFilterName)))",
		},
		{
			name:  "filter_with_args",
			src:   "{{ x | replace('a', 'b') }}",
			shape: "Template(Variable(ExprFilter(ExprName ExprFilterName(CallArguments(CallStaticArg(ExprConstantString) CallStaticArg(ExprConstantString))))))",
		},
		{
			name:  "test",
			src:   "{{ x is not none }}",
			shape: "Template(Variable(ExprTest(ExprName NameOperatorIs NameOperatorNot)))",
		},
		{
			name:  "slice",
			src:   "{{ x[1:2] }}",
			shape: "Template(Variable(ExprGetItem(ExprName Subscript(ExprSlice(ExprConstantInteger ExprConstantInteger)))))",
		},
		{
			name:  "step_only_slice",
			src:   "{{ x[::2] }}",
			shape: "Template(Variable(ExprGetItem(ExprName Subscript(ExprSlice(ExprConstantInteger)))))",
		},
		{
			name:  "dict",
			src:   "{{ {'a': 1} }}",
			shape: "Template(Variable(ExprDict(Pair(ExprConstantString ExprConstantInteger))))",
		},
		{
			name:  "list_and_constants",
			src:   "{{ [true, none, 1.5] }}",
			shape: "Template(Variable(ExprList(ExprConstantBool ExprConstantNone ExprConstantFloat)))",
		},
		{
			name:  "tuple",
			src:   "{{ a, (b, c) }}",
			shape: "Template(Variable(ExprTuple(ExprName ExprWrapped(ExprTuple(ExprName ExprName)))))",
		},
		{
			name:  "dynamic_call_args",
			src:   "{{ f(*a, **b) }}",
			shape: "Template(Variable(ExprCall(ExprName CallArguments(CallDynamicArgs(ExprName) CallDynamicKwargs(ExprName)))))",
		},
		{
			name:  "if_else",
			src:   "{% if x %}a{% else %}b{% endif %}",
			shape: "Template(StmtIf(IfStart(ExprName) ExprData IfElse ExprData IfEnd))",
		},
		{
			name:  "if_elif",
			src:   "{% if x %}a{% elif y %}b{% endif %}",
			shape: "Template(StmtIf(IfStart(ExprName) ExprData IfElif(ExprName) ExprData IfEnd))",
		},
		{
			name:  "for",
			src:   "{% for x in items %}{{ x }}{% endfor %}",
			shape: "Template(StmtFor(ForStart(ExprName NameOperatorIn ExprName) Variable(ExprName) ForEnd))",
		},
		{
			name:  "for_else_with_filter",
			src:   "{% for k, v in d if v %}a{% else %}b{% endfor %}",
			shape: "Template(StmtFor(ForStart(ExprTuple(ExprName ExprName) NameOperatorIn ExprName NameOperatorIf ExprName) ExprData ForElse ExprData ForEnd))",
		},
		{
			name:  "macro",
			src:   "{% macro greet(name, greeting='hi') %}{{ greeting }} {{ name }}{% endmacro %}",
			shape: "Template(StmtMacro(MacroBlockStart(ExprName Signature(SignatureArg(ExprName) SignatureDefaultArg(ExprName ExprConstantString))) Variable(ExprName) ExprData Variable(ExprName) MacroBlockEnd))",
		},
		{
			name:  "set",
			src:   "{% set x = 1 %}",
			shape: "Template(StmtAssign(ExprName ExprConstantInteger))",
		},
		{
			name:  "set_namespace",
			src:   "{% set ns.total = ns.total + 1 %}",
			shape: "Template(StmtAssign(ExprNamespaceRef ExprAdd(ExprGetAttr(ExprName Subscript) ExprConstantInteger)))",
		},
		{
			name:  "set_block",
			src:   "{% set x | trim %}a{% endset %}",
			shape: "Template(StmtAssignBlock(AssignBlockStart(ExprName ExprFilter(ExprFilterName)) ExprData AssignBlockEnd))",
		},
		{
			name:  "call_block",
			src:   "{% call(row) grid(rows) %}{{ row }}{% endcall %}",
			shape: "Template(StmtCallBlock(CallBlockStart(Signature(SignatureArg(ExprName)) ExprCall(ExprName CallArguments(CallStaticArg(ExprName)))) Variable(ExprName) CallBlockEnd))",
		},
		{
			name:  "filter_block",
			src:   "{% filter upper %}x{% endfilter %}",
			shape: "Template(StmtFilterBlock(FilterBlockStart(ExprFilter(ExprFilterName)) ExprData FilterBlockEnd))",
		},
		{
			name:  "with",
			src:   "{% with a = 1 %}{{ a }}{% endwith %}",
			shape: "Template(StmtWith(WithBlockStart(Pair(ExprName ExprConstantInteger)) Variable(ExprName) WithBlockEnd))",
		},
		{
			name:  "block",
			src:   "{% block body scoped %}x{% endblock body %}",
			shape: "Template(StmtBlock(BlockBlockStart(ExprName) ExprData BlockBlockEnd(ExprName)))",
		},
		{
			name:  "materialization",
			src:   "{% materialization table, adapter='postgres' %}x{% endmaterialization %}",
			shape: "Template(StmtMaterialization(MaterializationBlockStart(ExprName MaterializationAdapter(ExprName ExprConstantString)) ExprData MaterializationBlockEnd))",
		},
		{
			name:  "materialization_default",
			src:   "{% materialization view, default %}{% endmaterialization %}",
			shape: "Template(StmtMaterialization(MaterializationBlockStart(ExprName MaterializationDefault) MaterializationBlockEnd))",
		},
		{
			name:  "docs",
			src:   "{% docs orders %}text{% enddocs %}",
			shape: "Template(StmtDocs(DocsBlockStart(ExprName) ExprData DocsBlockEnd))",
		},
		{
			name:  "test_block",
			src:   "{% test not_null(model, column_name) %}select 1{% endtest %}",
			shape: "Template(StmtTest(TestBlockStart(ExprName Signature(SignatureArg(ExprName) SignatureArg(ExprName))) ExprData TestBlockEnd))",
		},
		{
			name:  "snapshot",
			src:   "{% snapshot orders_snapshot %}select 1{% endsnapshot %}",
			shape: "Template(StmtSnapshot(SnapshotBlockStart(ExprName) ExprData SnapshotBlockEnd))",
		},
		{
			name:  "include",
			src:   "{% include 'a.sql' ignore missing without context %}",
			shape: "Template(StmtInclude(ExprConstantString IncludeModifier IncludeModifier))",
		},
		{
			name:  "import",
			src:   "{% import 'macros.sql' as m %}",
			shape: "Template(StmtImport(ExprConstantString ExprName))",
		},
		{
			name:  "from_import",
			src:   "{% from 'forms.html' import input as i, textarea %}",
			shape: "Template(StmtFromImport(ExprConstantString ImportName(ExprName ExprName) ImportName(ExprName)))",
		},
		{
			name:  "do_and_extends",
			src:   "{% extends 'base.html' %}{% do x.append(1) %}",
			shape: "Template(StmtExtends(ExprConstantString) StmtDo(ExprCall(ExprGetAttr(ExprName Subscript) CallArguments(CallStaticArg(ExprConstantInteger)))))",
		},
		{
			name:  "comment_and_raw",
			src:   "{# note #}{% raw %}{{ x }}{% endraw %}",
			shape: "Template(Comment StmtRaw)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parse(t, tt.src)
			assert.Empty(t, res.Errors)
			assert.Equal(t, tt.shape, shape(res.Tree.Root()))
			assert.Equal(t, tt.src, res.Tree.Root().Text())
		})
	}
}

func TestCallRoundTrip(t *testing.T) {
	src := "select * from {{ config(materialized='table') }}"
	res := parse(t, src)
	require.Empty(t, res.Errors)

	variable := first(t, res.Tree.Root(), kind.Variable)
	call, ok := variable.NodeOfKind(kind.ExprCall)
	require.True(t, ok)
	assert.Equal(t, "config(materialized='table')", call.Text())
	assert.Equal(t, src[call.Range().Start:call.Range().End], call.Text())

	callee, ok := call.NodeOfKind(kind.ExprName)
	require.True(t, ok)
	assert.Equal(t, "config", callee.Text())

	args, ok := call.NodeOfKind(kind.CallArguments)
	require.True(t, ok)
	kwarg, ok := args.NodeOfKind(kind.CallStaticKwarg)
	require.True(t, ok)

	name, ok := kwarg.TokenOfKind(kind.Name)
	require.True(t, ok)
	assert.Equal(t, "materialized", name.Text())

	value, ok := kwarg.NodeOfKind(kind.ExprConstantString)
	require.True(t, ok)
	assert.Equal(t, "'table'", value.Text())
}

func TestErrorContainment(t *testing.T) {
	src := "{% if x %}a{% endif %}{% for %}"
	res := parse(t, src)

	root := res.Tree.Root()
	assert.Equal(t, src, root.Text())
	assert.Len(t, parser.Filter(res.Errors, parser.StructuralError), 1)

	stmt, ok := root.NodeOfKind(kind.StmtIf)
	require.True(t, ok)
	assert.Equal(t, "{% if x %}a{% endif %}", stmt.Text())
	assert.Equal(t, "StmtIf(IfStart(ExprName) ExprData IfEnd)", shape(stmt))
	for _, e := range res.Errors {
		assert.GreaterOrEqual(t, e.Range.Start, stmt.Range().End, e.Error())
	}

	last := root.Child(root.ChildCount() - 1)
	assert.True(t, last.Kind().IsError())
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		shape      string
		categories []parser.Category
		check      func(t *testing.T, errs []parser.ParseError)
	}{
		{
			name:       "unclosed_inner_block",
			src:        "{% for x in y %}{% if z %}{% endfor %}",
			shape:      "Template(StmtFor(ForStart(ExprName NameOperatorIn ExprName) Error(IfStart(ExprName)) ForEnd))",
			categories: []parser.Category{parser.StructuralError},
			check: func(t *testing.T, errs []parser.ParseError) {
				assert.Equal(t, cst.Range{Start: 16, End: 26}, errs[0].Range)
				assert.Equal(t, kind.IfEnd, errs[0].Kind)
			},
		},
		{
			name:       "stray_closer",
			src:        "a{% endif %}b",
			shape:      "Template(ExprData Error ExprData)",
			categories: []parser.Category{parser.StructuralError},
			check: func(t *testing.T, errs []parser.ParseError) {
				assert.Equal(t, cst.Range{Start: 1, End: 12}, errs[0].Range)
			},
		},
		{
			name:       "stray_else",
			src:        "{% else %}",
			shape:      "Template(Error)",
			categories: []parser.Category{parser.StructuralError},
		},
		{
			name:       "macro_closes_open_blocks",
			src:        "{% if x %}{% macro m() %}{% endmacro %}",
			shape:      "Template(Error(IfStart(ExprName)) StmtMacro(MacroBlockStart(ExprName Signature) MacroBlockEnd))",
			categories: []parser.Category{parser.StructuralError},
		},
		{
			name:       "unknown_tag",
			src:        "{% frobnicate x %}after",
			shape:      "Template(Error ExprData)",
			categories: []parser.Category{parser.SyntaxError},
		},
		{
			name:       "lex_error",
			src:        "{{ a $ b }}",
			shape:      "Template(Variable(ExprName))",
			categories: []parser.Category{parser.LexError, parser.SyntaxError},
			check: func(t *testing.T, errs []parser.ParseError) {
				lex := parser.Filter(errs, parser.LexError)
				require.Len(t, lex, 1)
				assert.Equal(t, cst.Range{Start: 5, End: 6}, lex[0].Range)
			},
		},
		{
			name:       "empty_variable",
			src:        "{{ }}",
			shape:      "Template(Variable)",
			categories: []parser.Category{parser.SyntaxError},
		},
		{
			name:       "unclosed_variable",
			src:        "{{ x",
			shape:      "Template(Variable(ExprName))",
			categories: []parser.Category{parser.SyntaxError},
		},
		{
			name:       "unclosed_comment",
			src:        "{# note",
			shape:      "Template(Comment)",
			categories: []parser.Category{parser.SyntaxError},
		},
		{
			name:       "unclosed_raw",
			src:        "{% raw %}{{ x }}",
			shape:      "Template(StmtRaw)",
			categories: []parser.Category{parser.StructuralError},
		},
		{
			name:       "kwarg_before_positional",
			src:        "{{ f(a=1, b) }}",
			shape:      "Template(Variable(ExprCall(ExprName CallArguments(CallStaticKwarg(ExprConstantInteger) CallStaticArg(ExprName)))))",
			categories: []parser.Category{parser.SyntaxError},
		},
		{
			name:       "default_before_plain_argument",
			src:        "{% macro m(a=1, b) %}{% endmacro %}",
			shape:      "Template(StmtMacro(MacroBlockStart(ExprName Signature(SignatureDefaultArg(ExprName ExprConstantInteger) SignatureArg(ExprName))) MacroBlockEnd))",
			categories: []parser.Category{parser.SyntaxError},
		},
		{
			name:       "unquoted_adapter",
			src:        "{% materialization table, adapter=postgres %}x{% endmaterialization %}",
			shape:      "Template(StmtMaterialization(MaterializationBlockStart(ExprName MaterializationAdapter(ExprName ExprName)) ExprData MaterializationBlockEnd))",
			categories: []parser.Category{parser.SyntaxError},
			check: func(t *testing.T, errs []parser.ParseError) {
				assert.Equal(t, cst.Range{Start: 34, End: 42}, errs[0].Range)
				assert.Equal(t, kind.MaterializationAdapter, errs[0].Kind)
				assert.Equal(t, "expected string literal specifying adapter", errs[0].Message)
			},
		},
		{
			name:       "unclosed_at_eof",
			src:        "{% if x %}a",
			shape:      "Template(Error(IfStart(ExprName) ExprData))",
			categories: []parser.Category{parser.StructuralError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parse(t, tt.src)
			assert.Equal(t, tt.src, res.Tree.Root().Text())
			assert.Equal(t, tt.shape, shape(res.Tree.Root()))

			var got []parser.Category
			for _, e := range res.Errors {
				got = append(got, e.Category)
			}
			assert.Equal(t, tt.categories, got, "%v", res.Errors)

			if tt.check != nil {
				tt.check(t, res.Errors)
			}
		})
	}
}

var corpus = []string{
	"",
	"select 1",
	"{{ ref('orders') }}",
	"{% if a %}{% for x in y %}{{ x | upper }}{% endfor %}{% endif %}",
	"{% macro m(a, b=2) -%}\n  {{- a ~ b -}}\n{%- endmacro %}",
	"{% set x = {'a': [1, 2.5, none], 'b': (c if d else e)} %}",
	"{% raw %}{% if %}{{ }}{% endraw %}",
	"{# {{ not parsed }} #}",
	"{{ a $ b }}",
	"{% for %}{% endif %}{{",
	"{% if x %}{% else %}{% else %}{% endif %}",
	"{{ f(a=1, b, *c, **d, e=5) }",
	"{% materialization m, default %}{% call statement('main') %}{% endcall %}",
	"{{ x[1:2:3] }}{{ x[:] }}{{ x.0 }}",
	"{% from 'a' import b as c, d with context %}{% include x without context %}",
	"{ not a tag } {# unterminated",
}

func TestLosslessAndCovering(t *testing.T) {
	for _, src := range corpus {
		t.Run(fmt.Sprintf("%q", src), func(t *testing.T) {
			res := parse(t, src)
			tree := res.Tree
			assert.Equal(t, src, tree.Root().Text())

			offset := 0
			for tok := range tree.Tokens() {
				assert.Equal(t, offset, tok.Range().Start)
				assert.NotEmpty(t, tok.Text())
				offset = tok.Range().End
			}
			assert.Equal(t, len(src), offset)

			for n := range tree.Root().DescendantNodes() {
				assert.Equal(t, src[n.Range().Start:n.Range().End], n.Text())
			}
		})
	}
}

type flat struct {
	Kind  kind.SyntaxKind
	Range cst.Range
}

func flatten(tree *cst.Tree) []flat {
	var out []flat
	for e := range tree.Root().Descendants() {
		out = append(out, flat{Kind: e.Kind(), Range: e.Range()})
	}
	return out
}

func TestDeterministic(t *testing.T) {
	for _, src := range corpus {
		a := parse(t, src)
		b := parse(t, src)
		if diff := cmp.Diff(flatten(a.Tree), flatten(b.Tree)); diff != "" {
			t.Errorf("%q parsed differently (-first +second):\n%s", src, diff)
		}
		assert.Equal(t, a.Errors, b.Errors)
	}
}

func TestErrorsAreSorted(t *testing.T) {
	res := parse(t, "{% if a %}{{ }}{% for %}{{ $ }}")
	require.NotEmpty(t, res.Errors)
	for i := 1; i < len(res.Errors); i++ {
		assert.LessOrEqual(t, res.Errors[i-1].Range.Start, res.Errors[i].Range.Start)
	}
}

func TestTriviaAttachesForward(t *testing.T) {
	res := parse(t, "{{ 1 + 2 }}")
	add := first(t, res.Tree.Root(), kind.ExprAdd)
	assert.Equal(t, "1 + 2", add.Text())

	variable := first(t, res.Tree.Root(), kind.Variable)
	var kinds []kind.SyntaxKind
	for _, c := range variable.Children() {
		kinds = append(kinds, c.Kind())
	}
	assert.Equal(t, []kind.SyntaxKind{
		kind.VariableBegin.Syntax(),
		kind.Whitespace.Syntax(),
		kind.ExprAdd,
		kind.Whitespace.Syntax(),
		kind.VariableEnd.Syntax(),
	}, kinds)
}

func TestParseTokens(t *testing.T) {
	src := "{{ a }}"
	tokens, err := lexer.Tokenize(context.Background(), src)
	require.NoError(t, err)

	res, err := parser.ParseTokens(context.Background(), src, tokens)
	require.NoError(t, err)
	assert.Equal(t, "Template(Variable(ExprName))", shape(res.Tree.Root()))
}

func TestFatalErrors(t *testing.T) {
	_, err := parser.Parse(context.Background(), "{{ \xff }}")
	assert.ErrorIs(t, err, lexer.ErrInvalidEncoding)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = parser.Parse(ctx, "{{ a }}")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseErrorString(t *testing.T) {
	e := parser.ParseError{
		Range:    cst.Range{Start: 3, End: 5},
		Message:  "boom",
		Category: parser.SyntaxError,
	}
	assert.Equal(t, "syntax error at 3..5: boom", e.Error())
	assert.Equal(t, "structural", parser.StructuralError.String())
}

func TestDeepNesting(t *testing.T) {
	const depth = 100000
	tests := []struct {
		name string
		src  string
	}{
		{name: "lists", src: "{{ " + strings.Repeat("[", depth) + " }}"},
		{name: "dicts", src: "{{ " + strings.Repeat("{", depth) + " }}"},
		{name: "parens", src: "{{ " + strings.Repeat("(", depth) + " }}"},
		{name: "calls", src: "{{ " + strings.Repeat("f(", depth) + " }}"},
		{name: "signs", src: "{{ " + strings.Repeat("-", depth) + "x }}"},
		{name: "nots", src: "{{ " + strings.Repeat("not ", depth) + "x }}"},
		{name: "powers", src: "{{ " + strings.Repeat("2 ** ", depth) + "2 }}"},
		{name: "assign_target", src: "{% set " + strings.Repeat("(", depth) + "x = 1 %}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parse(t, tt.src)
			assert.Equal(t, tt.src, res.Tree.Root().Text())

			deep := 0
			for _, e := range res.Errors {
				if e.Message == "expression nested too deeply" {
					deep++
					assert.Equal(t, parser.SyntaxError, e.Category)
				}
			}
			assert.Equal(t, 1, deep)

			hasErrorToken := false
			for tok := range res.Tree.Tokens() {
				if tok.TokenKind() == kind.ErrorToken {
					hasErrorToken = true
					break
				}
			}
			assert.True(t, hasErrorToken)
		})
	}
}

func TestModerateNestingIsClean(t *testing.T) {
	src := "{{ " + strings.Repeat("[", 64) + strings.Repeat("]", 64) + " }}"
	res := parse(t, src)
	assert.Empty(t, res.Errors)
}
