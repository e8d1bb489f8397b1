package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToStr is the str() conversion.
func ToStr(v Value) string {
	switch x := v.(type) {
	case Str:
		return string(x)
	case *Exception:
		return x.Message()
	case *Object:
		if s, ok := objectText(x, "__str__"); ok {
			return s
		}
	}
	return Repr(v)
}

// Repr is the repr() conversion.
func Repr(v Value) string {
	switch x := v.(type) {
	case nil, NoneType:
		return "None"
	case Bool:
		if x {
			return "True"
		}
		return "False"
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return formatFloat(float64(x))
	case Str:
		return quote(string(x))
	case *Tuple:
		if len(x.Items) == 1 {
			return "(" + Repr(x.Items[0]) + ",)"
		}
		return "(" + joinRepr(x.Items) + ")"
	case *List:
		return "[" + joinRepr(x.Items) + "]"
	case *Dict:
		parts := make([]string, 0, x.Len())
		x.Each(func(k, v Value) {
			parts = append(parts, Repr(k)+": "+Repr(v))
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case *Set:
		if x.Len() == 0 {
			return "set()"
		}
		return "{" + joinRepr(x.Items()) + "}"
	case *Slice:
		return fmt.Sprintf("slice(%s, %s, %s)", Repr(x.Start), Repr(x.Stop), Repr(x.Step))
	case *Range:
		if x.Step == 1 {
			return fmt.Sprintf("range(%d, %d)", x.Start, x.Stop)
		}
		return fmt.Sprintf("range(%d, %d, %d)", x.Start, x.Stop, x.Step)
	case *Builtin:
		return "<built-in function " + x.Name + ">"
	case *BoundMethod:
		return "<bound method of " + Repr(x.Self) + ">"
	case *Type:
		return "<class '" + x.Name + "'>"
	case *Class:
		return "<class '" + x.Name + "'>"
	case *ExceptionClass:
		return "<class '" + x.Name + "'>"
	case *Exception:
		return x.Class.Name + "(" + joinRepr(x.Args) + ")"
	case *Module:
		return "<module '" + x.Name + "'>"
	case *Iterator:
		return "<iterator object>"
	case *Object:
		if s, ok := objectText(x, "__repr__"); ok {
			return s
		}
		return "<" + x.Class.Name + " object>"
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("<%s object>", TypeName(v))
}

func objectText(o *Object, dunder string) (string, bool) {
	v, ok, err := o.callMethod(dunder)
	if !ok || err != nil {
		return "", false
	}
	s, ok := v.(Str)
	return string(s), ok
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Repr(item)
	}
	return strings.Join(parts, ", ")
}

// quote renders a string literal the way the host language does: single
// quotes unless the text contains one and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// formatFloat produces the shortest round-tripping text, switching to
// exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	exp := 0
	if f != 0 {
		exp = int(math.Floor(math.Log10(math.Abs(f))))
	}
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// Truthy implements the truth test used by conditional jumps and `not`.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, NoneType:
		return false
	case Bool:
		return bool(x)
	case Int:
		return x != 0
	case Float:
		return x != 0
	case Str:
		return x != ""
	case *Tuple:
		return len(x.Items) > 0
	case *List:
		return len(x.Items) > 0
	case *Dict:
		return x.Len() > 0
	case *Set:
		return x.Len() > 0
	case *Range:
		return x.Len() > 0
	case *Object:
		if r, ok, err := x.callMethod("__bool__"); ok && err == nil {
			return Truthy(r)
		}
		if r, ok, err := x.callMethod("__len__"); ok && err == nil {
			return Truthy(r)
		}
	}
	return true
}

// Len implements len().
func Len(v Value) (int, error) {
	switch x := v.(type) {
	case Str:
		return len([]rune(string(x))), nil
	case *Tuple:
		return len(x.Items), nil
	case *List:
		return len(x.Items), nil
	case *Dict:
		return x.Len(), nil
	case *Set:
		return x.Len(), nil
	case *Range:
		return int(x.Len()), nil
	case *Object:
		if r, ok, err := x.callMethod("__len__"); ok {
			if err != nil {
				return 0, err
			}
			if n, ok := r.(Int); ok {
				return int(n), nil
			}
			return 0, Errorf(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(r))
		}
	}
	return 0, Errorf(TypeError, "object of type '%s' has no len()", TypeName(v))
}
