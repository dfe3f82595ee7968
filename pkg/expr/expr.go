// Package expr parses and evaluates binding expressions.
//
// Expressions use Go expression syntax with a few template-friendly
// semantics: missing names evaluate to nil, "+" concatenates as soon as
// either side is a string, "&&" and "||" return an operand rather than a
// bool, and any value has a truthiness (see Truthy).
//
//	e, err := expr.Parse(`"Hello " + user.name + "!"`)
//	v, err := e.Eval(scope)
//
// Supported forms are identifiers, literals, selectors, index expressions,
// parentheses, unary ! - +, arithmetic, comparisons, logical operators and
// calls to scope functions or the builtins len, upper, lower and join.
package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/vango-dev/fbind/pkg/scope"
)

var (
	// ErrSyntax reports an expression that does not parse.
	ErrSyntax = errors.New("expr: syntax error")

	// ErrUnsupported reports a Go construct expressions do not support.
	ErrUnsupported = errors.New("expr: unsupported expression")

	// ErrType reports an operation applied to values of the wrong type.
	ErrType = errors.New("expr: type error")
)

// newlines would otherwise trigger Go's automatic semicolon insertion
// inside multi-line interpolations.
var foldNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Expr is a parsed expression, safe to evaluate many times.
type Expr struct {
	src  string
	root ast.Expr
}

// Parse parses src.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	root, err := parser.ParseExpr(foldNewlines.Replace(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	return &Expr{src: src, root: root}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expr) String() string {
	return e.src
}

// Path returns the dotted path for expressions that name an assignable
// location ("user.name"), and false otherwise.
func (e *Expr) Path() (string, bool) {
	return pathOf(e.root)
}

// IsCall reports whether the expression is a call.
func (e *Expr) IsCall() bool {
	_, ok := unparen(e.root).(*ast.CallExpr)
	return ok
}

// Eval evaluates the expression against s.
func (e *Expr) Eval(s scope.Scope) (any, error) {
	return (&evaluator{scope: s}).eval(e.root)
}

// Eval parses and evaluates src in one step.
func Eval(src string, s scope.Scope) (any, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return e.Eval(s)
}

func unparen(n ast.Expr) ast.Expr {
	for {
		p, ok := n.(*ast.ParenExpr)
		if !ok {
			return n
		}
		n = p.X
	}
}

func pathOf(n ast.Expr) (string, bool) {
	switch t := unparen(n).(type) {
	case *ast.Ident:
		if _, reserved := keywords[t.Name]; reserved {
			return "", false
		}
		return t.Name, true
	case *ast.SelectorExpr:
		head, ok := pathOf(t.X)
		if !ok {
			return "", false
		}
		return head + "." + t.Sel.Name, true
	}
	return "", false
}

var keywords = map[string]any{
	"true":      true,
	"false":     false,
	"nil":       nil,
	"null":      nil,
	"undefined": nil,
}

type evaluator struct {
	scope scope.Scope
}

func (ev *evaluator) eval(n ast.Expr) (any, error) {
	switch t := n.(type) {
	case *ast.ParenExpr:
		return ev.eval(t.X)
	case *ast.BasicLit:
		return literal(t)
	case *ast.Ident:
		if v, ok := keywords[t.Name]; ok {
			return v, nil
		}
		if ev.scope == nil {
			return nil, nil
		}
		v, _ := ev.scope.Lookup(t.Name)
		return v, nil
	case *ast.SelectorExpr:
		x, err := ev.eval(t.X)
		if err != nil {
			return nil, err
		}
		return member(x, t.Sel.Name), nil
	case *ast.IndexExpr:
		x, err := ev.eval(t.X)
		if err != nil {
			return nil, err
		}
		idx, err := ev.eval(t.Index)
		if err != nil {
			return nil, err
		}
		return index(x, idx), nil
	case *ast.UnaryExpr:
		return ev.unary(t)
	case *ast.BinaryExpr:
		return ev.binary(t)
	case *ast.CallExpr:
		return ev.call(t)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, n)
}

func (ev *evaluator) unary(t *ast.UnaryExpr) (any, error) {
	x, err := ev.eval(t.X)
	if err != nil {
		return nil, err
	}
	switch t.Op {
	case token.NOT:
		return !Truthy(x), nil
	case token.SUB:
		if i, ok := x.(int); ok {
			return -i, nil
		}
		f, ok := toFloat(x)
		if !ok {
			return nil, fmt.Errorf("%w: cannot negate %T", ErrType, x)
		}
		return -f, nil
	case token.ADD:
		if _, ok := toFloat(x); !ok {
			return nil, fmt.Errorf("%w: unary + on %T", ErrType, x)
		}
		return normalize(x), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, t.Op)
}

func (ev *evaluator) binary(t *ast.BinaryExpr) (any, error) {
	x, err := ev.eval(t.X)
	if err != nil {
		return nil, err
	}

	// Short-circuit, returning the deciding operand.
	switch t.Op {
	case token.LAND:
		if !Truthy(x) {
			return x, nil
		}
		return ev.eval(t.Y)
	case token.LOR:
		if Truthy(x) {
			return x, nil
		}
		return ev.eval(t.Y)
	}

	y, err := ev.eval(t.Y)
	if err != nil {
		return nil, err
	}

	switch t.Op {
	case token.ADD:
		_, xs := x.(string)
		_, ys := y.(string)
		if xs || ys {
			return ToString(x) + ToString(y), nil
		}
		return arith(t.Op, x, y)
	case token.SUB, token.MUL, token.QUO, token.REM:
		return arith(t.Op, x, y)
	case token.EQL:
		return Equal(x, y), nil
	case token.NEQ:
		return !Equal(x, y), nil
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		return compare(t.Op, x, y)
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, t.Op)
}

func (ev *evaluator) call(t *ast.CallExpr) (any, error) {
	args := make([]any, len(t.Args))
	for i, a := range t.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if id, ok := t.Fun.(*ast.Ident); ok {
		if ev.scope != nil {
			if fn, found := ev.scope.Lookup(id.Name); found && fn != nil {
				return Call(fn, args...)
			}
		}
		if b, ok := builtins[id.Name]; ok {
			return b(args)
		}
		return nil, fmt.Errorf("%w: %s is not a function", ErrType, id.Name)
	}

	fn, err := ev.eval(t.Fun)
	if err != nil {
		return nil, err
	}
	return Call(fn, args...)
}
