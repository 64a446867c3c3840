package memory

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"querykit/internal/domain"
	"querykit/internal/domain/predicate"
)

// Engine lowers predicates to CEL and caches compiled programs by expression.
type Engine struct {
	env      *cel.Env
	prgCache sync.Map // map[string]cel.Program
}

// NewEngine creates the CEL environment. Expressions see the hydrated row as
// `row` and bound values as `params`.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("params", cel.ListType(cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &Engine{env: env}, nil
}

// Matcher evaluates one lowered predicate.
type Matcher struct {
	expr   string
	params []any
	prg    cel.Program
}

// Expr returns the CEL source.
func (m *Matcher) Expr() string { return m.expr }

// Params returns the bound values in placeholder order.
func (m *Matcher) Params() []any { return m.params }

// Compile lowers p and builds (or reuses) its program.
func (e *Engine) Compile(p predicate.Predicate) (*Matcher, error) {
	expr, params := Lower(p)

	if v, ok := e.prgCache.Load(expr); ok {
		return &Matcher{expr: expr, params: params, prg: v.(cel.Program)}, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	v, _ := e.prgCache.LoadOrStore(expr, prg)
	return &Matcher{expr: expr, params: params, prg: v.(cel.Program)}, nil
}

// Match reports whether row satisfies the predicate.
func (m *Matcher) Match(row domain.Row) (bool, error) {
	out, _, err := m.prg.Eval(map[string]any{
		"row":    map[string]any(row),
		"params": m.params,
	})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", m.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: result is %T, not bool", m.expr, out.Value())
	}
	return result, nil
}

// Lower renders p as a CEL expression over `row` with values bound in `params`.
func Lower(p predicate.Predicate) (string, []any) {
	l := &lowering{}
	return l.expr(p, "row"), l.params
}

type lowering struct {
	params []any
	vars   int
}

func (l *lowering) param(v any) string {
	l.params = append(l.params, normalize(v))
	return fmt.Sprintf("params[%d]", len(l.params)-1)
}

func ref(scope, name string) string {
	return fmt.Sprintf("%s[%q]", scope, name)
}

func (l *lowering) expr(p predicate.Predicate, scope string) string {
	switch v := p.(type) {
	case nil:
		return "true"
	case predicate.Compare:
		return l.compare(v, scope)
	case predicate.And:
		return l.join([]predicate.Predicate(v), scope, " && ", "true")
	case predicate.Or:
		return l.join([]predicate.Predicate(v), scope, " || ", "false")
	case predicate.Exists:
		l.vars++
		x := fmt.Sprintf("x%d", l.vars)
		return fmt.Sprintf("%s.exists(%s, %s)", ref(scope, v.Relation.Name), x, l.expr(v.Where, x))
	case predicate.Has:
		rel := ref(scope, v.Relation.Name)
		return fmt.Sprintf("(%s != null && %s)", rel, l.expr(v.Where, rel))
	}
	return "false"
}

func (l *lowering) join(items []predicate.Predicate, scope, sep, empty string) string {
	if len(items) == 0 {
		return empty
	}
	parts := make([]string, 0, len(items))
	for _, c := range items {
		parts = append(parts, l.expr(c, scope))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (l *lowering) compare(c predicate.Compare, scope string) string {
	col := ref(scope, c.Field)
	switch c.Op {
	case predicate.IsNull:
		return col + " == null"
	case predicate.IsNotNull:
		return col + " != null"
	case predicate.IsNot:
		return fmt.Sprintf("%s != %s", col, l.param(c.Value))
	case predicate.Eq:
		return fmt.Sprintf("%s == %s", col, l.param(c.Value))
	case predicate.In:
		return fmt.Sprintf("%s in %s", col, l.param(c.Value))
	case predicate.NotIn:
		return fmt.Sprintf("(%s != null && !(%s in %s))", col, col, l.param(c.Value))
	case predicate.Like, predicate.ILike:
		re := likeToRegexp(fmt.Sprint(c.Value), c.Op == predicate.ILike)
		return fmt.Sprintf("(%s != null && string(%s).matches(%s))", col, col, l.param(re))
	default:
		// SQL semantics: comparisons against NULL are never true.
		return fmt.Sprintf("(%s != null && %s %s %s)", col, col, celOp(c.Op), l.param(c.Value))
	}
}

func celOp(op predicate.Comparison) string {
	if op == predicate.NotEq {
		return "!="
	}
	return string(op)
}

// likeToRegexp translates a LIKE pattern into an anchored RE2 expression.
func likeToRegexp(pattern string, insensitive bool) string {
	var b strings.Builder
	b.WriteString("(?s)")
	if insensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
