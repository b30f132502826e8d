package schema

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Filter is a compiled CEL predicate over a record's raw scalar fields,
// exposed to the expression as the map variable `record`.
type Filter struct {
	expr string
	prg  cel.Program
}

// CompileFilter parses and type-checks a boolean CEL expression.
func CompileFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against a record. A nil filter matches everything.
func (f *Filter) Match(record map[string]any) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{"record": record})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", f.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.expr, out.Value())
	}
	return b, nil
}
