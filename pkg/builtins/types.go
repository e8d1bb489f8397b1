package builtins

import (
	"math"
	"strconv"
	"strings"

	"bytevm/pkg/value"
)

var (
	StrType   = &value.Type{Name: "str", Of: value.KindStr, New: newStr}
	IntType   = &value.Type{Name: "int", Of: value.KindInt, New: newInt}
	FloatType = &value.Type{Name: "float", Of: value.KindFloat, New: newFloat}
	BoolType  = &value.Type{Name: "bool", Of: value.KindBool, New: newBool}
	ListType  = &value.Type{Name: "list", Of: value.KindList, New: newList}
	TupleType = &value.Type{Name: "tuple", Of: value.KindTuple, New: newTuple}
	DictType  = &value.Type{Name: "dict", Of: value.KindDict, New: newDict}
	SetType   = &value.Type{Name: "set", Of: value.KindSet, New: newSet}
)

// Types lists the builtin type objects registered by New.
var Types = []*value.Type{StrType, IntType, FloatType, BoolType, ListType, TupleType, DictType, SetType}

// toInt converts numbers and bools to an integer, truncating floats.
func toInt(v value.Value) (int64, error) {
	switch x := v.(type) {
	case value.Int:
		return int64(x), nil
	case value.Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case value.Float:
		f := float64(x)
		if math.IsInf(f, 0) {
			return 0, value.Errorf(value.OverflowError, "cannot convert float infinity to integer")
		}
		if math.IsNaN(f) {
			return 0, value.Errorf(value.ValueError, "cannot convert float NaN to integer")
		}
		return int64(f), nil
	}
	return 0, value.Errorf(value.TypeError, "int() argument must be a string or a number, not '%s'", value.TypeName(v))
}

// toFloat converts numbers and bools to a float.
func toFloat(v value.Value) (float64, error) {
	switch x := v.(type) {
	case value.Float:
		return float64(x), nil
	case value.Int:
		return float64(x), nil
	case value.Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return 0, value.Errorf(value.TypeError, "must be real number, not %s", value.TypeName(v))
}

func newStr(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("str", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.Str(""), nil
	}
	return value.Str(value.ToStr(args[0])), nil
}

func newInt(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("int", args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.Int(0), nil
	}
	s, isStr := args[0].(value.Str)
	if len(args) == 2 && !isStr {
		return nil, value.Errorf(value.TypeError, "int() can't convert non-string with explicit base")
	}
	if !isStr {
		n, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		return value.Int(n), nil
	}
	base := 10
	if len(args) == 2 {
		b, err := value.AsIndex(args[1])
		if err != nil {
			return nil, err
		}
		base = b
	}
	text := strings.ReplaceAll(strings.TrimSpace(string(s)), "_", "")
	n, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		return nil, value.Errorf(value.ValueError, "invalid literal for int() with base %d: %s", base, value.Repr(s))
	}
	return value.Int(n), nil
}

func newFloat(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.Float(0), nil
	}
	if s, ok := args[0].(value.Str); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
		if err != nil {
			return nil, value.Errorf(value.ValueError, "could not convert string to float: %s", value.Repr(s))
		}
		return value.Float(f), nil
	}
	f, err := toFloat(args[0])
	if err != nil {
		return nil, value.Errorf(value.TypeError, "float() argument must be a string or a real number, not '%s'", value.TypeName(args[0]))
	}
	return value.Float(f), nil
}

func newBool(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("bool", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.Bool(false), nil
	}
	return value.Bool(value.Truthy(args[0])), nil
}

func collectArg(name string, args []value.Value) ([]value.Value, error) {
	if err := arity(name, args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, nil
	}
	return value.Collect(args[0])
}

func newList(args []value.Value, kw *value.Dict) (value.Value, error) {
	items, err := collectArg("list", args)
	if err != nil {
		return nil, err
	}
	return value.NewList(items...), nil
}

func newTuple(args []value.Value, kw *value.Dict) (value.Value, error) {
	items, err := collectArg("tuple", args)
	if err != nil {
		return nil, err
	}
	return value.NewTuple(items...), nil
}

func newSet(args []value.Value, kw *value.Dict) (value.Value, error) {
	items, err := collectArg("set", args)
	if err != nil {
		return nil, err
	}
	return value.NewSet(items...)
}

// newDict accepts a mapping or pairs plus keyword entries.
func newDict(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("dict", args, 0, 1); err != nil {
		return nil, err
	}
	d := value.NewDict()
	if len(args) == 1 {
		src, err := value.ToDict(args[0])
		if err != nil {
			return nil, err
		}
		d = src
	}
	if err := d.Update(kw); err != nil {
		return nil, err
	}
	return d, nil
}
