// Package builtins provides the builtin-name mapping and the host import
// table handed to a Machine.
package builtins

import (
	"fmt"
	"io"
	"math"
	"strings"

	"bytevm/pkg/value"
)

type table struct {
	out io.Writer
	ids map[value.Value]int64
}

// New returns a fresh builtin-name mapping. print writes to out.
func New(out io.Writer) map[string]value.Value {
	t := &table{out: out, ids: make(map[value.Value]int64)}
	b := map[string]value.Value{
		"None":  value.None,
		"True":  value.Bool(true),
		"False": value.Bool(false),
	}
	add := func(name string, fn value.BuiltinFunc) {
		b[name] = value.NewBuiltin(name, fn)
	}

	add("print", t.print)
	add("len", builtinLen)
	add("range", builtinRange)
	add("abs", builtinAbs)
	add("min", extreme("min", false))
	add("max", extreme("max", true))
	add("sum", builtinSum)
	add("sorted", builtinSorted)
	add("reversed", builtinReversed)
	add("enumerate", builtinEnumerate)
	add("zip", builtinZip)
	add("map", builtinMap)
	add("filter", builtinFilter)
	add("iter", builtinIter)
	add("next", builtinNext)
	add("isinstance", builtinIsInstance)
	add("repr", builtinRepr)
	add("any", anyAll("any", true))
	add("all", anyAll("all", false))
	add("round", builtinRound)
	add("divmod", builtinDivmod)
	add("hash", builtinHash)
	add("id", t.id)
	add("getattr", builtinGetAttr)
	add("setattr", builtinSetAttr)
	add("hasattr", builtinHasAttr)
	add("callable", builtinCallable)
	add("__build_class__", buildClass)

	for _, typ := range Types {
		b[typ.Name] = typ
	}
	for _, c := range value.ExceptionClasses {
		b[c.Name] = c
	}
	return b
}

func arity(name string, args []value.Value, min, max int) error {
	switch {
	case len(args) < min && min == max:
		return value.Errorf(value.TypeError, "%s() takes exactly %d argument%s (%d given)", name, min, plural(min), len(args))
	case len(args) < min:
		return value.Errorf(value.TypeError, "%s() takes at least %d argument%s (%d given)", name, min, plural(min), len(args))
	case max >= 0 && len(args) > max:
		return value.Errorf(value.TypeError, "%s() takes at most %d argument%s (%d given)", name, max, plural(max), len(args))
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func noKwargs(name string, kwargs *value.Dict) error {
	if kwargs.Len() > 0 {
		return value.Errorf(value.TypeError, "%s() takes no keyword arguments", name)
	}
	return nil
}

// kwargs collects keyword arguments, rejecting names outside allowed.
func kwargs(name string, kw *value.Dict, allowed ...string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, kw.Len())
	var err error
	kw.Each(func(k, v value.Value) {
		s, ok := k.(value.Str)
		if !ok || !contains(allowed, string(s)) {
			err = value.Errorf(value.TypeError, "'%s' is an invalid keyword argument for %s()", value.ToStr(k), name)
			return
		}
		out[string(s)] = v
	})
	return out, err
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (t *table) print(args []value.Value, kw *value.Dict) (value.Value, error) {
	opts, err := kwargs("print", kw, "sep", "end")
	if err != nil {
		return nil, err
	}
	sep, end := " ", "\n"
	if v, ok := opts["sep"]; ok && v != value.None {
		sep = value.ToStr(v)
	}
	if v, ok := opts["end"]; ok && v != value.None {
		end = value.ToStr(v)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.ToStr(a)
	}
	fmt.Fprint(t.out, strings.Join(parts, sep)+end)
	return value.None, nil
}

// id numbers values in order of first request.
func (t *table) id(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("id", args, 1, 1); err != nil {
		return nil, err
	}
	v := args[0]
	n, ok := t.ids[v]
	if !ok {
		n = int64(len(t.ids) + 1)
		t.ids[v] = n
	}
	return value.Int(n), nil
}

func builtinLen(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := value.Len(args[0])
	if err != nil {
		return nil, err
	}
	return value.Int(n), nil
}

func builtinRange(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		n, err := value.AsIndex(a)
		if err != nil {
			return nil, err
		}
		bounds[i] = int64(n)
	}
	r := &value.Range{Step: 1}
	switch len(bounds) {
	case 1:
		r.Stop = bounds[0]
	case 2:
		r.Start, r.Stop = bounds[0], bounds[1]
	case 3:
		r.Start, r.Stop, r.Step = bounds[0], bounds[1], bounds[2]
	}
	if r.Step == 0 {
		return nil, value.Errorf(value.ValueError, "range() arg 3 must not be zero")
	}
	return r, nil
}

func builtinAbs(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case value.Bool:
		if x {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.Int:
		if x < 0 {
			return -x, nil
		}
		return x, nil
	case value.Float:
		return value.Float(math.Abs(float64(x))), nil
	}
	return nil, value.Errorf(value.TypeError, "bad operand type for abs(): '%s'", value.TypeName(args[0]))
}

// extreme builds min and max. A single argument is iterated.
func extreme(name string, greatest bool) value.BuiltinFunc {
	return func(args []value.Value, kw *value.Dict) (value.Value, error) {
		opts, err := kwargs(name, kw, "key", "default")
		if err != nil {
			return nil, err
		}
		if err := arity(name, args, 1, -1); err != nil {
			return nil, err
		}
		items := args
		if len(args) == 1 {
			if items, err = value.Collect(args[0]); err != nil {
				return nil, err
			}
		}
		if len(items) == 0 {
			if d, ok := opts["default"]; ok {
				return d, nil
			}
			return nil, value.Errorf(value.ValueError, "%s() arg is an empty sequence", name)
		}
		key, _ := opts["key"].(value.Callable)

		best := items[0]
		bestKey, err := applyKey(key, best)
		if err != nil {
			return nil, err
		}
		for _, item := range items[1:] {
			k, err := applyKey(key, item)
			if err != nil {
				return nil, err
			}
			a, b := k, bestKey
			if greatest {
				a, b = b, a
			}
			less, err := value.Less(a, b)
			if err != nil {
				return nil, err
			}
			if less {
				best, bestKey = item, k
			}
		}
		return best, nil
	}
}

func applyKey(key value.Callable, v value.Value) (value.Value, error) {
	if key == nil {
		return v, nil
	}
	return key.Call([]value.Value{v}, nil)
}

func builtinSum(args []value.Value, kw *value.Dict) (value.Value, error) {
	opts, err := kwargs("sum", kw, "start")
	if err != nil {
		return nil, err
	}
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}
	var acc value.Value = value.Int(0)
	if len(args) == 2 {
		acc = args[1]
	} else if s, ok := opts["start"]; ok {
		acc = s
	}
	if _, ok := acc.(value.Str); ok {
		return nil, value.Errorf(value.TypeError, "sum() can't sum strings [use ''.join(seq) instead]")
	}
	items, err := value.Collect(args[0])
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if acc, err = value.BinaryOp("+", acc, item); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func builtinSorted(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("sorted", args, 1, 1); err != nil {
		return nil, err
	}
	key, reverse, err := value.SortOptions(kw)
	if err != nil {
		return nil, err
	}
	items, err := value.Collect(args[0])
	if err != nil {
		return nil, err
	}
	if err := value.SortValues(items, key, reverse); err != nil {
		return nil, err
	}
	return value.NewList(items...), nil
}

func builtinReversed(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("reversed", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := value.Collect(args[0])
	if err != nil {
		return nil, err
	}
	i := len(items)
	return value.NewIterator(func() (value.Value, bool, error) {
		if i == 0 {
			return nil, false, nil
		}
		i--
		return items[i], true, nil
	}), nil
}

func builtinEnumerate(args []value.Value, kw *value.Dict) (value.Value, error) {
	opts, err := kwargs("enumerate", kw, "start")
	if err != nil {
		return nil, err
	}
	if err := arity("enumerate", args, 1, 2); err != nil {
		return nil, err
	}
	var n int64
	start, ok := opts["start"]
	if len(args) == 2 {
		start, ok = args[1], true
	}
	if ok {
		i, err := value.AsIndex(start)
		if err != nil {
			return nil, err
		}
		n = int64(i)
	}
	it, err := value.Iter(args[0])
	if err != nil {
		return nil, err
	}
	return value.NewIterator(func() (value.Value, bool, error) {
		v, ok, err := it.Next()
		if !ok || err != nil {
			return nil, false, err
		}
		n++
		return value.NewTuple(value.Int(n-1), v), true, nil
	}), nil
}

func iterators(args []value.Value) ([]*value.Iterator, error) {
	its := make([]*value.Iterator, len(args))
	for i, a := range args {
		it, err := value.Iter(a)
		if err != nil {
			return nil, err
		}
		its[i] = it
	}
	return its, nil
}

// nextAll advances every iterator and stops at the shortest.
func nextAll(its []*value.Iterator) ([]value.Value, bool, error) {
	vals := make([]value.Value, len(its))
	for i, it := range its {
		v, ok, err := it.Next()
		if !ok || err != nil {
			return nil, false, err
		}
		vals[i] = v
	}
	return vals, true, nil
}

func builtinZip(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := noKwargs("zip", kw); err != nil {
		return nil, err
	}
	its, err := iterators(args)
	if err != nil {
		return nil, err
	}
	return value.NewIterator(func() (value.Value, bool, error) {
		if len(its) == 0 {
			return nil, false, nil
		}
		vals, ok, err := nextAll(its)
		if !ok {
			return nil, false, err
		}
		return value.NewTuple(vals...), true, nil
	}), nil
}

func builtinMap(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("map", args, 2, -1); err != nil {
		return nil, err
	}
	fn, ok := args[0].(value.Callable)
	if !ok {
		return nil, value.Errorf(value.TypeError, "'%s' object is not callable", value.TypeName(args[0]))
	}
	its, err := iterators(args[1:])
	if err != nil {
		return nil, err
	}
	return value.NewIterator(func() (value.Value, bool, error) {
		vals, ok, err := nextAll(its)
		if !ok {
			return nil, false, err
		}
		r, err := fn.Call(vals, nil)
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}), nil
}

func builtinFilter(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("filter", args, 2, 2); err != nil {
		return nil, err
	}
	var pred value.Callable
	if args[0] != value.None {
		fn, ok := args[0].(value.Callable)
		if !ok {
			return nil, value.Errorf(value.TypeError, "'%s' object is not callable", value.TypeName(args[0]))
		}
		pred = fn
	}
	it, err := value.Iter(args[1])
	if err != nil {
		return nil, err
	}
	return value.NewIterator(func() (value.Value, bool, error) {
		for {
			v, ok, err := it.Next()
			if !ok || err != nil {
				return nil, false, err
			}
			test, err := applyKey(pred, v)
			if err != nil {
				return nil, false, err
			}
			if value.Truthy(test) {
				return v, true, nil
			}
		}
	}), nil
}

func builtinIter(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("iter", args, 1, 1); err != nil {
		return nil, err
	}
	return value.Iter(args[0])
}

func builtinNext(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("next", args, 1, 2); err != nil {
		return nil, err
	}
	it, ok := args[0].(*value.Iterator)
	if !ok {
		return nil, value.Errorf(value.TypeError, "'%s' object is not an iterator", value.TypeName(args[0]))
	}
	v, ok, err := it.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, &value.Exception{Class: value.StopIteration}
	}
	return v, nil
}

func builtinIsInstance(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("isinstance", args, 2, 2); err != nil {
		return nil, err
	}
	classes := []value.Value{args[1]}
	if t, ok := args[1].(*value.Tuple); ok {
		classes = t.Items
	}
	for _, c := range classes {
		ok, err := isInstance(args[0], c)
		if err != nil {
			return nil, err
		}
		if ok {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func isInstance(v, class value.Value) (bool, error) {
	switch c := class.(type) {
	case *value.Type:
		if c.Of == value.KindInt && v.Kind() == value.KindBool {
			return true, nil
		}
		return v.Kind() == c.Of, nil
	case *value.Class:
		o, ok := v.(*value.Object)
		return ok && o.Class.IsSubclass(c), nil
	case *value.ExceptionClass:
		e, ok := v.(*value.Exception)
		return ok && e.Class.IsSubclass(c), nil
	}
	return false, value.Errorf(value.TypeError, "isinstance() arg 2 must be a type or tuple of types")
}

func builtinRepr(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("repr", args, 1, 1); err != nil {
		return nil, err
	}
	return value.Str(value.Repr(args[0])), nil
}

// anyAll builds any (stop on the first truthy item) and all (stop on the
// first falsy one).
func anyAll(name string, stopOn bool) value.BuiltinFunc {
	return func(args []value.Value, kw *value.Dict) (value.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		it, err := value.Iter(args[0])
		if err != nil {
			return nil, err
		}
		for {
			v, ok, err := it.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				return value.Bool(!stopOn), nil
			}
			if value.Truthy(v) == stopOn {
				return value.Bool(stopOn), nil
			}
		}
	}
}

// builtinRound rounds half to even like the host language.
func builtinRound(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	ndigits := value.Value(value.None)
	if len(args) == 2 {
		ndigits = args[1]
	}
	switch x := args[0].(type) {
	case value.Int, value.Bool:
		n, _ := toInt(x)
		return value.Int(n), nil
	case value.Float:
		if ndigits == value.None {
			return value.Int(int64(math.RoundToEven(float64(x)))), nil
		}
		d, err := value.AsIndex(ndigits)
		if err != nil {
			return nil, err
		}
		scale := math.Pow(10, float64(d))
		return value.Float(math.RoundToEven(float64(x)*scale) / scale), nil
	}
	return nil, value.Errorf(value.TypeError, "type %s doesn't define __round__ method", value.TypeName(args[0]))
}

func builtinDivmod(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("divmod", args, 2, 2); err != nil {
		return nil, err
	}
	q, err := value.BinaryOp("//", args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := value.BinaryOp("%", args[0], args[1])
	if err != nil {
		return nil, err
	}
	return value.NewTuple(q, r), nil
}

func builtinHash(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("hash", args, 1, 1); err != nil {
		return nil, err
	}
	h, err := value.Hash(args[0])
	if err != nil {
		return nil, err
	}
	return value.Int(h), nil
}

func attrName(fn string, v value.Value) (string, error) {
	s, ok := v.(value.Str)
	if !ok {
		return "", value.Errorf(value.TypeError, "%s(): attribute name must be string", fn)
	}
	return string(s), nil
}

func builtinGetAttr(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("getattr", args, 2, 3); err != nil {
		return nil, err
	}
	name, err := attrName("getattr", args[1])
	if err != nil {
		return nil, err
	}
	v, err := value.GetAttr(args[0], name)
	if err != nil && len(args) == 3 && value.IsInstance(err, value.AttributeError) {
		return args[2], nil
	}
	return v, err
}

func builtinSetAttr(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("setattr", args, 3, 3); err != nil {
		return nil, err
	}
	name, err := attrName("setattr", args[1])
	if err != nil {
		return nil, err
	}
	if err := value.SetAttr(args[0], name, args[2]); err != nil {
		return nil, err
	}
	return value.None, nil
}

func builtinHasAttr(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("hasattr", args, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("hasattr", args[1])
	if err != nil {
		return nil, err
	}
	_, err = value.GetAttr(args[0], name)
	return value.Bool(err == nil), nil
}

func builtinCallable(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("callable", args, 1, 1); err != nil {
		return nil, err
	}
	return value.Bool(value.IsCallable(args[0])), nil
}
