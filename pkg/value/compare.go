package value

import "strings"

// Identical is the `is` test: reference identity for heap values, value
// identity for scalars.
func Identical(a, b Value) bool {
	if a == nil || b == nil {
		return isNone(a) && isNone(b)
	}
	return a == b
}

func isNone(v Value) bool {
	return v == nil || v == Value(None)
}

// Equal is the `==` test.
func Equal(a, b Value) bool {
	if o, ok := a.(*Object); ok {
		if r, found, err := o.callMethod("__eq__", b); found && err == nil {
			return Truthy(r)
		}
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			return x == y
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return x == y
		}
	}
	switch x := a.(type) {
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalItems(x.Items, y.Items)
	case *List:
		y, ok := b.(*List)
		return ok && equalItems(x.Items, y.Items)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		same := true
		x.Each(func(k, v Value) {
			other, found, err := y.Get(k)
			if err != nil || !found || !Equal(v, other) {
				same = false
			}
		})
		return same
	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, item := range x.Items() {
			if in, _ := y.Contains(item); !in {
				return false
			}
		}
		return true
	case *Range:
		y, ok := b.(*Range)
		return ok && *x == *y
	}
	return Identical(a, b)
}

func equalItems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Less is the `<` ordering used by comparisons and sorting.
func Less(a, b Value) (bool, error) {
	if o, ok := a.(*Object); ok {
		if r, found, err := o.callMethod("__lt__", b); found {
			if err != nil {
				return false, err
			}
			return Truthy(r), nil
		}
	}
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			return x < y, nil
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return x < y, nil
		}
	}
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return x < y, nil
		}
	case *Tuple:
		if y, ok := b.(*Tuple); ok {
			return lessItems(x.Items, y.Items)
		}
	case *List:
		if y, ok := b.(*List); ok {
			return lessItems(x.Items, y.Items)
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			if x.Len() >= y.Len() {
				return false, nil
			}
			for _, item := range x.Items() {
				if in, _ := y.Contains(item); !in {
					return false, nil
				}
			}
			return true, nil
		}
	}
	return false, Errorf(TypeError, "'<' not supported between instances of '%s' and '%s'", TypeName(a), TypeName(b))
}

func lessItems(a, b []Value) (bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		return Less(a[i], b[i])
	}
	return len(a) < len(b), nil
}

// Contains is the `in` test.
func Contains(container, item Value) (bool, error) {
	switch x := container.(type) {
	case Str:
		s, ok := item.(Str)
		if !ok {
			return false, Errorf(TypeError, "'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(string(x), string(s)), nil
	case *Tuple:
		return containsItem(x.Items, item), nil
	case *List:
		return containsItem(x.Items, item), nil
	case *Dict:
		_, found, err := x.Get(item)
		return found, err
	case *Set:
		return x.Contains(item)
	case *Range:
		n, ok := asInt(item)
		if !ok {
			return false, nil
		}
		for i := int64(0); i < x.Len(); i++ {
			if int64(x.At(i)) == n {
				return true, nil
			}
		}
		return false, nil
	case *Object:
		if r, found, err := x.callMethod("__contains__", item); found {
			if err != nil {
				return false, err
			}
			return Truthy(r), nil
		}
	}
	it, err := Iter(container)
	if err != nil {
		return false, Errorf(TypeError, "argument of type '%s' is not iterable", TypeName(container))
	}
	for {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return false, err
		}
		if Equal(v, item) {
			return true, nil
		}
	}
}

func containsItem(items []Value, item Value) bool {
	for _, v := range items {
		if Identical(v, item) || Equal(v, item) {
			return true
		}
	}
	return false
}

// ExceptionMatch reports whether exc (an exception instance or class) matches
// the class or tuple of classes in target.
func ExceptionMatch(exc, target Value) bool {
	var cls *ExceptionClass
	switch x := exc.(type) {
	case *Exception:
		cls = x.Class
	case *ExceptionClass:
		cls = x
	default:
		return false
	}
	switch t := target.(type) {
	case *ExceptionClass:
		return cls.IsSubclass(t)
	case *Tuple:
		for _, item := range t.Items {
			if ExceptionMatch(cls, item) {
				return true
			}
		}
	}
	return false
}

// Compare applies a comparison, membership or identity operator by its
// symbolic text.
func Compare(op string, a, b Value) (Value, error) {
	switch op {
	case "==":
		return Bool(Equal(a, b)), nil
	case "!=":
		return Bool(!Equal(a, b)), nil
	case "<":
		r, err := Less(a, b)
		return Bool(r), err
	case ">":
		r, err := Less(b, a)
		return Bool(r), err
	case "<=":
		if Equal(a, b) {
			return Bool(true), nil
		}
		r, err := Less(a, b)
		return Bool(r), err
	case ">=":
		if Equal(a, b) {
			return Bool(true), nil
		}
		r, err := Less(b, a)
		return Bool(r), err
	case "in":
		r, err := Contains(b, a)
		return Bool(r), err
	case "not in":
		r, err := Contains(b, a)
		return Bool(!r), err
	case "is":
		return Bool(Identical(a, b)), nil
	case "is not":
		return Bool(!Identical(a, b)), nil
	case "exception match":
		return Bool(ExceptionMatch(a, b)), nil
	}
	return nil, Errorf(ValueError, "unknown comparison operator %q", op)
}
