package hcl

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// functions available to every expression in a workspace file.
var functions = map[string]function.Function{
	"concat":    stdlib.ConcatFunc,
	"join":      stdlib.JoinFunc,
	"lower":     stdlib.LowerFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"upper":     stdlib.UpperFunc,
}

// EvalContext returns an evaluation context exposing the process
// environment as `env`, the workspace function set, and vars.
func EvalContext(vars map[string]cty.Value) *hcl.EvalContext {
	all := map[string]cty.Value{"env": envObject()}
	for k, v := range vars {
		all[k] = v
	}
	return &hcl.EvalContext{
		Variables: all,
		Functions: functions,
	}
}

func envObject() cty.Value {
	attrs := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		attrs[k] = cty.StringVal(v)
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// EvalStringList evaluates expr into a list of strings. Empty strings are
// dropped so that conditionals can produce optional arguments. The boolean
// result is false when expr is absent or evaluates to null.
func EvalStringList(expr hcl.Expression, evalCtx *hcl.EvalContext) ([]string, bool, error) {
	if expr == nil {
		return nil, false, nil
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, false, diags
	}
	if val.IsNull() {
		return nil, false, nil
	}
	if !val.IsWhollyKnown() {
		return nil, false, fmt.Errorf("argument list is not fully known")
	}

	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, false, fmt.Errorf("arguments must be a list of strings: %w", err)
	}

	out := make([]string, 0, list.LengthInt())
	for it := list.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.IsNull() {
			continue
		}
		var s string
		if err := gocty.FromCtyValue(elem, &s); err != nil {
			return nil, false, err
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out, true, nil
}
