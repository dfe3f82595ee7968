package expr

import (
	"fmt"
	"go/ast"
	"go/token"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/vango-dev/fbind/pkg/scope"
)

func literal(t *ast.BasicLit) (any, error) {
	switch t.Kind {
	case token.INT:
		i, err := strconv.ParseInt(t.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return int(i), nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return f, nil
	case token.STRING, token.CHAR:
		s, err := strconv.Unquote(t.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: literal %s", ErrUnsupported, t.Kind)
}

// member resolves x.name.
func member(x any, name string) any {
	switch t := x.(type) {
	case nil:
		return nil
	case scope.Scope:
		v, _ := t.Lookup(name)
		return v
	case map[string]any:
		return t[name]
	case string:
		if name == "length" {
			return len([]rune(t))
		}
		return nil
	case []any:
		if name == "length" {
			return len(t)
		}
		return nil
	}

	v := reflect.ValueOf(x)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		f := v.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			e := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
			if e.IsValid() {
				return e.Interface()
			}
		}
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return v.Len()
		}
	}
	return nil
}

// index resolves x[idx]. Out of range and missing keys yield nil.
func index(x, idx any) any {
	switch t := x.(type) {
	case nil:
		return nil
	case []any:
		if i, ok := toIndex(idx); ok && i >= 0 && i < len(t) {
			return t[i]
		}
		return nil
	case string:
		r := []rune(t)
		if i, ok := toIndex(idx); ok && i >= 0 && i < len(r) {
			return string(r[i])
		}
		return nil
	}
	if key, ok := idx.(string); ok {
		return member(x, key)
	}

	v := reflect.ValueOf(x)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if i, ok := toIndex(idx); ok && i >= 0 && i < v.Len() {
			return v.Index(i).Interface()
		}
	}
	return nil
}

func toIndex(v any) (int, bool) {
	if i, ok := asInt(v); ok {
		return i, true
	}
	if f, ok := toFloat(v); ok && f == math.Trunc(f) {
		return int(f), true
	}
	return 0, false
}

// asInt converts integer kinds to int.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	}
	return 0, false
}

// toFloat converts any numeric kind to float64.
func toFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

// normalize maps numeric kinds onto int or float64.
func normalize(v any) any {
	if i, ok := asInt(v); ok {
		return i
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}

func arith(op token.Token, x, y any) (any, error) {
	xi, xok := asInt(x)
	yi, yok := asInt(y)
	if xok && yok {
		switch op {
		case token.ADD:
			return xi + yi, nil
		case token.SUB:
			return xi - yi, nil
		case token.MUL:
			return xi * yi, nil
		case token.QUO:
			if yi == 0 {
				return nil, fmt.Errorf("%w: division by zero", ErrType)
			}
			if xi%yi == 0 {
				return xi / yi, nil
			}
			return float64(xi) / float64(yi), nil
		case token.REM:
			if yi == 0 {
				return nil, fmt.Errorf("%w: division by zero", ErrType)
			}
			return xi % yi, nil
		}
	}

	xf, xok := toFloat(x)
	yf, yok := toFloat(y)
	if !xok || !yok {
		return nil, fmt.Errorf("%w: %T %s %T", ErrType, x, op, y)
	}
	switch op {
	case token.ADD:
		return xf + yf, nil
	case token.SUB:
		return xf - yf, nil
	case token.MUL:
		return xf * yf, nil
	case token.QUO:
		if yf == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrType)
		}
		return xf / yf, nil
	case token.REM:
		if yf == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrType)
		}
		return math.Mod(xf, yf), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
}

func compare(op token.Token, x, y any) (bool, error) {
	var c int
	xf, xok := toFloat(x)
	yf, yok := toFloat(y)
	xs, xstr := x.(string)
	ys, ystr := y.(string)
	switch {
	case xok && yok:
		switch {
		case xf < yf:
			c = -1
		case xf > yf:
			c = 1
		}
	case xstr && ystr:
		c = strings.Compare(xs, ys)
	default:
		return false, fmt.Errorf("%w: cannot compare %T and %T", ErrType, x, y)
	}

	switch op {
	case token.LSS:
		return c < 0, nil
	case token.LEQ:
		return c <= 0, nil
	case token.GTR:
		return c > 0, nil
	}
	return c >= 0, nil
}

// Equal compares two values, treating all numeric kinds by value.
func Equal(x, y any) bool {
	xf, xok := toFloat(x)
	yf, yok := toFloat(y)
	if xok && yok {
		return xf == yf
	}
	return reflect.DeepEqual(x, y)
}

// Truthy reports whether v counts as true in a condition: nil, false,
// zero, NaN and the empty string are false, everything else is true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ToString renders a value for text output. nil renders as "".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	}
	if i, ok := asInt(v); ok {
		return strconv.Itoa(i)
	}
	return fmt.Sprint(v)
}

// ToSlice returns v as a slice of values, or false if it is not a list.
func ToSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Call invokes fn with args, converting arguments to the parameter types.
// A trailing error result is returned as the call's error.
func Call(fn any, args ...any) (any, error) {
	switch f := fn.(type) {
	case func():
		f()
		return nil, nil
	case func() any:
		return f(), nil
	case func(any):
		f(arg(args, 0))
		return nil, nil
	case func(any) any:
		return f(arg(args, 0)), nil
	case func(...any) any:
		return f(args...), nil
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is not a function", ErrType, fn)
	}
	ft := v.Type()

	in := make([]reflect.Value, 0, len(args))
	for i, a := range args {
		var pt reflect.Type
		switch {
		case ft.IsVariadic() && i >= ft.NumIn()-1:
			pt = ft.In(ft.NumIn() - 1).Elem()
		case i < ft.NumIn():
			pt = ft.In(i)
		default:
			return nil, fmt.Errorf("%w: too many arguments for %s", ErrType, ft)
		}
		av, err := convert(a, pt)
		if err != nil {
			return nil, err
		}
		in = append(in, av)
	}
	for i := len(args); i < ft.NumIn(); i++ {
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			break
		}
		in = append(in, reflect.Zero(ft.In(i)))
	}

	out := v.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return out[0].Interface(), nil
	}
	res := out[0].Interface()
	if ft.Out(len(out)-1) == errorType {
		if err, _ := out[len(out)-1].Interface().(error); err != nil {
			return res, err
		}
	}
	return res, nil
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func convert(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	_, num := toFloat(a)
	if num && v.Type().ConvertibleTo(t) && t.Kind() != reflect.String {
		return v.Convert(t), nil
	}
	if t.Kind() == reflect.String {
		return reflect.ValueOf(ToString(a)).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %T as %s", ErrType, a, t)
}

type builtin func(args []any) (any, error)

var builtins = map[string]builtin{
	"len": func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: len takes one argument", ErrType)
		}
		switch t := args[0].(type) {
		case nil:
			return 0, nil
		case string:
			return len([]rune(t)), nil
		case *scope.Object:
			return len(t.Keys()), nil
		}
		v := reflect.ValueOf(args[0])
		switch v.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return v.Len(), nil
		}
		return nil, fmt.Errorf("%w: len of %T", ErrType, args[0])
	},
	"upper": func(args []any) (any, error) {
		return strings.ToUpper(ToString(arg(args, 0))), nil
	},
	"lower": func(args []any) (any, error) {
		return strings.ToLower(ToString(arg(args, 0))), nil
	},
	"join": func(args []any) (any, error) {
		list, ok := ToSlice(arg(args, 0))
		if !ok {
			return nil, fmt.Errorf("%w: join of %T", ErrType, arg(args, 0))
		}
		sep := ","
		if len(args) > 1 {
			sep = ToString(args[1])
		}
		parts := make([]string, len(list))
		for i, e := range list {
			parts[i] = ToString(e)
		}
		return strings.Join(parts, sep), nil
	},
}
