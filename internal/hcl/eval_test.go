package hcl

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestEvalStringList(t *testing.T) {
	t.Parallel()

	vars := map[string]cty.Value{
		"profile": cty.StringVal("release"),
		"release": cty.True,
	}

	testCases := []struct {
		name   string
		src    string
		expect []string
		ok     bool
		errMsg string
	}{
		{name: "literal", src: `["test", "--workspace"]`, expect: []string{"test", "--workspace"}, ok: true},
		{name: "empty strings dropped", src: `["build", release ? "--release" : ""]`, expect: []string{"build", "--release"}, ok: true},
		{name: "numbers convert", src: `["-j", 4]`, expect: []string{"-j", "4"}, ok: true},
		{name: "functions", src: `concat(["a"], [upper(profile)])`, expect: []string{"a", "RELEASE"}, ok: true},
		{name: "null means absent", src: `null`, ok: false},
		{name: "empty list", src: `[]`, expect: []string{}, ok: true},
		{name: "not a list", src: `{a = 1}`, errMsg: "list of strings"},
		{name: "unknown variable", src: `[module.name]`, errMsg: "Unknown variable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok, err := EvalStringList(parseExpr(t, tc.src), EvalContext(vars))
			if tc.errMsg != "" {
				require.ErrorContains(t, err, tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestEvalStringList_NilExpression(t *testing.T) {
	t.Parallel()

	got, ok, err := EvalStringList(nil, EvalContext(nil))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestEvalContext_ExposesEnv(t *testing.T) {
	t.Setenv("MODGRID_EVAL_TEST", "yes")

	got, ok, err := EvalStringList(parseExpr(t, `[env.MODGRID_EVAL_TEST]`), EvalContext(nil))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"yes"}, got)
}
