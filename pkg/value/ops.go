package value

import (
	"math"
	"strings"
)

var binaryDunders = map[string]string{
	"+":  "__add__",
	"-":  "__sub__",
	"*":  "__mul__",
	"/":  "__truediv__",
	"//": "__floordiv__",
	"%":  "__mod__",
	"**": "__pow__",
	"<<": "__lshift__",
	">>": "__rshift__",
	"&":  "__and__",
	"|":  "__or__",
	"^":  "__xor__",
	"@":  "__matmul__",
}

// BinaryOp applies an infix operator given by its source text, such as "+"
// or "+=". Augmented forms mutate lists, dicts and sets in place.
func BinaryOp(op string, a, b Value) (Value, error) {
	if base, ok := strings.CutSuffix(op, "="); ok && base != "" {
		if v, done, err := inplace(base, a, b); done || err != nil {
			return v, err
		}
		op = base
	}
	if o, ok := a.(*Object); ok {
		if name, known := binaryDunders[op]; known {
			if v, found, err := o.callMethod(name, b); found {
				return v, err
			}
		}
	}
	switch op {
	case "+":
		return add(a, b)
	case "-":
		return sub(a, b)
	case "*":
		return mul(a, b)
	case "/":
		return trueDiv(a, b)
	case "//":
		return floorDiv(a, b)
	case "%":
		return mod(a, b)
	case "**":
		return power(a, b)
	case "<<", ">>":
		return shift(op, a, b)
	case "&", "|", "^":
		return bitwise(op, a, b)
	}
	return nil, unsupported(op, a, b)
}

func inplace(op string, a, b Value) (Value, bool, error) {
	switch x := a.(type) {
	case *List:
		switch op {
		case "+":
			items, err := Collect(b)
			if err != nil {
				return nil, true, err
			}
			x.Items = append(x.Items, items...)
			return x, true, nil
		case "*":
			n, ok := asInt(b)
			if !ok {
				return nil, true, unsupported(op+"=", a, b)
			}
			items, err := repeat(x.Items, n)
			if err != nil {
				return nil, true, err
			}
			x.Items = items
			return x, true, nil
		}
	case *Dict:
		if y, ok := b.(*Dict); ok && op == "|" {
			return x, true, x.Update(y)
		}
	case *Set:
		if y, ok := b.(*Set); ok && op == "|" {
			for _, item := range y.Items() {
				if err := x.Add(item); err != nil {
					return nil, true, err
				}
			}
			return x, true, nil
		}
	}
	return nil, false, nil
}

func unsupported(op string, a, b Value) error {
	return Errorf(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(a), TypeName(b))
}

func asInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case Int:
		return int64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Float:
		return float64(x), true
	case Int:
		return float64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsIndex converts an int-like value to a Go int.
func AsIndex(v Value) (int, error) {
	if i, ok := asInt(v); ok {
		return int(i), nil
	}
	return 0, Errorf(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(v))
}

// MaxSequenceLen bounds the length of a sequence built by repetition.
const MaxSequenceLen = 1 << 28

// repeatLen returns the length of size repeated n times, or an error when it
// would exceed MaxSequenceLen.
func repeatLen(size int, n int64) (int, error) {
	if size == 0 || n <= 0 {
		return 0, nil
	}
	if n > int64(MaxSequenceLen/size) {
		return 0, Errorf(OverflowError, "repeated sequence is too long")
	}
	return size * int(n), nil
}

func repeat(items []Value, n int64) ([]Value, error) {
	total, err := repeatLen(len(items), n)
	if err != nil || total == 0 {
		return nil, err
	}
	out := make([]Value, 0, total)
	for len(out) < total {
		out = append(out, items...)
	}
	return out, nil
}

func overflow(op string) error {
	return Errorf(OverflowError, "integer overflow in %s", op)
}

func add(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return x + y, nil
		}
	case *List:
		if y, ok := b.(*List); ok {
			items := make([]Value, 0, len(x.Items)+len(y.Items))
			return NewList(append(append(items, x.Items...), y.Items...)...), nil
		}
	case *Tuple:
		if y, ok := b.(*Tuple); ok {
			items := make([]Value, 0, len(x.Items)+len(y.Items))
			return NewTuple(append(append(items, x.Items...), y.Items...)...), nil
		}
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			r := x + y
			if (x^r)&(y^r) < 0 {
				return nil, overflow("+")
			}
			return Int(r), nil
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return Float(x + y), nil
		}
	}
	return nil, unsupported("+", a, b)
}

func sub(a, b Value) (Value, error) {
	if x, ok := a.(*Set); ok {
		if y, ok := b.(*Set); ok {
			out := &Set{}
			for _, item := range x.Items() {
				in, _ := y.Contains(item)
				if !in {
					_ = out.Add(item)
				}
			}
			return out, nil
		}
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			r := x - y
			if (x^y)&(x^r) < 0 {
				return nil, overflow("-")
			}
			return Int(r), nil
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return Float(x - y), nil
		}
	}
	return nil, unsupported("-", a, b)
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	return r, true
}

func mul(a, b Value) (Value, error) {
	seq, n := a, b
	if _, ok := asInt(a); ok {
		seq, n = b, a
	}
	if count, ok := asInt(n); ok {
		switch x := seq.(type) {
		case Str:
			total, err := repeatLen(len(x), count)
			if err != nil || total == 0 {
				return Str(""), err
			}
			return Str(strings.Repeat(string(x), int(count))), nil
		case *List:
			items, err := repeat(x.Items, count)
			if err != nil {
				return nil, err
			}
			return NewList(items...), nil
		case *Tuple:
			items, err := repeat(x.Items, count)
			if err != nil {
				return nil, err
			}
			return NewTuple(items...), nil
		}
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			r, ok := mulInt(x, y)
			if !ok {
				return nil, overflow("*")
			}
			return Int(r), nil
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return Float(x * y), nil
		}
	}
	return nil, unsupported("*", a, b)
}

func trueDiv(a, b Value) (Value, error) {
	x, ok1 := asFloat(a)
	y, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return nil, unsupported("/", a, b)
	}
	if y == 0 {
		return nil, Errorf(ZeroDivisionError, "division by zero")
	}
	return Float(x / y), nil
}

func floorDiv(a, b Value) (Value, error) {
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			if y == 0 {
				return nil, Errorf(ZeroDivisionError, "integer division or modulo by zero")
			}
			if x == math.MinInt64 && y == -1 {
				return nil, overflow("//")
			}
			q := x / y
			if x%y != 0 && (x < 0) != (y < 0) {
				q--
			}
			return Int(q), nil
		}
	}
	x, ok1 := asFloat(a)
	y, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return nil, unsupported("//", a, b)
	}
	if y == 0 {
		return nil, Errorf(ZeroDivisionError, "float floor division by zero")
	}
	return Float(math.Floor(x / y)), nil
}

func mod(a, b Value) (Value, error) {
	if s, ok := a.(Str); ok {
		return percentFormat(string(s), b)
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			if y == 0 {
				return nil, Errorf(ZeroDivisionError, "integer division or modulo by zero")
			}
			r := x % y
			if r != 0 && (r < 0) != (y < 0) {
				r += y
			}
			return Int(r), nil
		}
	}
	x, ok1 := asFloat(a)
	y, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return nil, unsupported("%", a, b)
	}
	if y == 0 {
		return nil, Errorf(ZeroDivisionError, "float modulo")
	}
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return Float(r), nil
}

func power(a, b Value) (Value, error) {
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok && y >= 0 {
			result, base := int64(1), x
			for e := y; e > 0; e >>= 1 {
				var fits bool
				if e&1 == 1 {
					if result, fits = mulInt(result, base); !fits {
						return nil, overflow("**")
					}
				}
				if e > 1 {
					if base, fits = mulInt(base, base); !fits {
						return nil, overflow("**")
					}
				}
			}
			return Int(result), nil
		}
	}
	x, ok1 := asFloat(a)
	y, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return nil, unsupported("** or pow()", a, b)
	}
	if x == 0 && y < 0 {
		return nil, Errorf(ZeroDivisionError, "0.0 cannot be raised to a negative power")
	}
	return Float(math.Pow(x, y)), nil
}

func shift(op string, a, b Value) (Value, error) {
	x, ok1 := asInt(a)
	y, ok2 := asInt(b)
	if !ok1 || !ok2 {
		return nil, unsupported(op, a, b)
	}
	if y < 0 {
		return nil, Errorf(ValueError, "negative shift count")
	}
	if op == ">>" {
		if y > 63 {
			y = 63
		}
		return Int(x >> uint(y)), nil
	}
	if y > 62 || (x != 0 && (x<<uint(y))>>uint(y) != x) {
		return nil, overflow("<<")
	}
	return Int(x << uint(y)), nil
}

func bitwise(op string, a, b Value) (Value, error) {
	if x, ok := a.(Bool); ok {
		if y, ok := b.(Bool); ok {
			switch op {
			case "&":
				return x && y, nil
			case "|":
				return x || y, nil
			default:
				return Bool(x != y), nil
			}
		}
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			switch op {
			case "&":
				return Int(x & y), nil
			case "|":
				return Int(x | y), nil
			default:
				return Int(x ^ y), nil
			}
		}
	}
	if x, ok := a.(*Set); ok {
		if y, ok := b.(*Set); ok {
			return setAlgebra(op, x, y), nil
		}
	}
	if x, ok := a.(*Dict); ok && op == "|" {
		if y, ok := b.(*Dict); ok {
			out := x.Copy()
			return out, out.Update(y)
		}
	}
	return nil, unsupported(op, a, b)
}

func setAlgebra(op string, x, y *Set) *Set {
	out := &Set{}
	switch op {
	case "|":
		for _, item := range x.Items() {
			_ = out.Add(item)
		}
		for _, item := range y.Items() {
			_ = out.Add(item)
		}
	case "&":
		for _, item := range x.Items() {
			if in, _ := y.Contains(item); in {
				_ = out.Add(item)
			}
		}
	default:
		for _, item := range x.Items() {
			if in, _ := y.Contains(item); !in {
				_ = out.Add(item)
			}
		}
		for _, item := range y.Items() {
			if in, _ := x.Contains(item); !in {
				_ = out.Add(item)
			}
		}
	}
	return out
}

// UnaryOp applies one of the prefix operators by name.
func UnaryOp(op string, v Value) (Value, error) {
	switch op {
	case "not":
		return Bool(!Truthy(v)), nil
	case "repr":
		return Str(Repr(v)), nil
	}
	if o, ok := v.(*Object); ok {
		name := map[string]string{"+": "__pos__", "-": "__neg__", "~": "__invert__"}[op]
		if r, found, err := o.callMethod(name); found {
			return r, err
		}
	}
	switch x := v.(type) {
	case Bool:
		n := Int(0)
		if x {
			n = 1
		}
		return UnaryOp(op, n)
	case Int:
		switch op {
		case "+":
			return x, nil
		case "-":
			if x == math.MinInt64 {
				return nil, overflow("-")
			}
			return -x, nil
		case "~":
			return ^x, nil
		}
	case Float:
		switch op {
		case "+":
			return x, nil
		case "-":
			return -x, nil
		}
	}
	return nil, Errorf(TypeError, "bad operand type for unary %s: '%s'", op, TypeName(v))
}
