package hover_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/dbtls/pkg/hover"
	"github.com/walteh/dbtls/pkg/position"
	"github.com/walteh/dbtls/pkg/project"
)

func loadProject(t *testing.T) *project.Project {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range map[string]string{
		"/proj/dbt_project.yml":                    "name: shop\n",
		"/proj/models/customers.sql":               "select 1",
		"/proj/macros/util.sql":                    "{% macro cents(col, scale=2) %}{{ col }} * 100{% endmacro %}",
		"/proj/dbt_packages/utils/dbt_project.yml": "name: dbt_utils\n",
		"/proj/dbt_packages/utils/macros/s.sql":    "{% macro star(from) %}*{% endmacro %}",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	prj, err := project.Load(context.Background(), fs, "/proj")
	require.NoError(t, err)
	return prj
}

func model(t *testing.T, prj *project.Project, text string) *project.File {
	t.Helper()
	f, err := prj.Update(context.Background(), "/proj/models/orders.sql", text)
	require.NoError(t, err)
	return f
}

func at(text, needle string) int {
	return strings.Index(text, needle) + 1
}

func TestLocate(t *testing.T) {
	text := "{{ dbt_utils.star(ref('customers')) }} {{ foo }} {{ x.y(1) }}"
	f, err := project.ParseFile(context.Background(), "m.sql", text)
	require.NoError(t, err)

	tests := []struct {
		name     string
		offset   int
		wantKind hover.TargetKind
		wantName string
	}{
		{"qualified macro", at(text, "star"), hover.TargetMacro, "dbt_utils.star"},
		{"package half of the callee", at(text, "utils"), hover.TargetMacro, "dbt_utils.star"},
		{"ref callee", at(text, "ref"), hover.TargetMacro, "ref"},
		{"ref argument", at(text, "customers"), hover.TargetRef, "customers"},
		{"plain name", at(text, "foo"), hover.TargetToken, ""},
		{"attribute call", at(text, ".y"), hover.TargetMacro, "x.y"},
		{"inside non ref arguments", at(text, "(1"), hover.TargetToken, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := hover.Locate(f.Tree, tt.offset)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, target.Kind)
			assert.Equal(t, tt.wantName, target.Name)
		})
	}

	_, ok := hover.Locate(f.Tree, len(text)+5)
	assert.False(t, ok)
}

func TestTokenNearPrefersTheTokenEndingAtTheCursor(t *testing.T) {
	f, err := project.ParseFile(context.Background(), "m.sql", "{{ foo }}")
	require.NoError(t, err)

	tok, ok := hover.TokenNear(f.Tree, 6)
	require.True(t, ok)
	assert.Equal(t, "foo", tok.Text())

	tok, ok = hover.TokenNear(f.Tree, 3)
	require.True(t, ok)
	assert.Equal(t, "foo", tok.Text())
}

func TestHover(t *testing.T) {
	ctx := context.Background()
	prj := loadProject(t)
	text := "select {{ cents('amount') }}, {{ dbt_utils.star('x') }}, {{ var('v') }} from {{ ref('customers') }} {{ other }}"
	f := model(t, prj, text)

	tests := []struct {
		name      string
		offset    int
		wantFirst string
		wantRange position.Range
	}{
		{
			name:      "project macro",
			offset:    at(text, "cents"),
			wantFirst: "```jinja\n{% macro cents(col, scale=2) %}\n```",
			wantRange: position.Range{Start: position.Place{Character: 10}, End: position.Place{Character: 15}},
		},
		{
			name:      "package macro",
			offset:    at(text, "star"),
			wantFirst: "```jinja\n{% macro dbt_utils.star(from) %}\n```",
		},
		{
			name:      "builtin",
			offset:    at(text, "var"),
			wantFirst: "```jinja\nvar(variable)\n```",
		},
		{
			name:      "model reference",
			offset:    at(text, "customers"),
			wantFirst: "**model** `customers`",
		},
		{
			name:      "plain token",
			offset:    at(text, "other"),
			wantFirst: "`other`\n\nName < ExprName < Variable < Template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := hover.Hover(ctx, prj, f, tt.offset)
			require.NoError(t, err)
			require.NotNil(t, info)
			require.NotEmpty(t, info.Content)
			assert.Equal(t, tt.wantFirst, info.Content[0])
			if tt.wantRange != (position.Range{}) {
				assert.Equal(t, tt.wantRange, info.Range)
			}
		})
	}
}

func TestHoverWithoutProject(t *testing.T) {
	f, err := project.ParseFile(context.Background(), "m.sql", "{{ cents(1) }} data")
	require.NoError(t, err)

	info, err := hover.Hover(context.Background(), nil, f, 4)
	require.NoError(t, err)
	assert.Equal(t, "`cents`\n\nName < ExprName < ExprCall < Variable < Template", info.Content[0])

	info, err = hover.Hover(context.Background(), nil, f, 16)
	require.NoError(t, err)
	assert.Equal(t, "` data`\n\nData < ExprData < Template", info.Content[0])

	_, err = hover.Hover(context.Background(), nil, nil, 0)
	assert.Error(t, err)
}

func TestDefinition(t *testing.T) {
	ctx := context.Background()
	prj := loadProject(t)
	text := "{{ cents(1) }} {{ dbt_utils.star('x') }} {{ ref('customers') }} {{ ref('missing') }} {{ nope() }}"
	f := model(t, prj, text)

	loc, ok := hover.Definition(ctx, prj, f, at(text, "cents"))
	require.True(t, ok)
	assert.Equal(t, hover.Location{
		Path:  "/proj/macros/util.sql",
		Range: position.Range{Start: position.Place{Character: 9}, End: position.Place{Character: 14}},
	}, loc)

	loc, ok = hover.Definition(ctx, prj, f, at(text, "star"))
	require.True(t, ok)
	assert.Equal(t, hover.Location{
		Path:  "/proj/dbt_packages/utils/macros/s.sql",
		Range: position.Range{Start: position.Place{Character: 9}, End: position.Place{Character: 13}},
	}, loc)

	loc, ok = hover.Definition(ctx, prj, f, at(text, "customers"))
	require.True(t, ok)
	assert.Equal(t, hover.Location{Path: "/proj/models/customers.sql"}, loc)

	_, ok = hover.Definition(ctx, prj, f, at(text, "missing"))
	assert.False(t, ok)
	_, ok = hover.Definition(ctx, prj, f, at(text, "nope"))
	assert.False(t, ok)
	_, ok = hover.Definition(ctx, nil, f, at(text, "cents"))
	assert.False(t, ok)
}
