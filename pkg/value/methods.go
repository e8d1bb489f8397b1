package value

import (
	"sort"
	"strings"
	"unicode"
)

type method func(self Value, args []Value, kwargs *Dict) (Value, error)

var methodTables map[Kind]map[string]method

func init() {
	methodTables = map[Kind]map[string]method{
		KindStr:   strMethods,
		KindList:  listMethods,
		KindTuple: tupleMethods,
		KindDict:  dictMethods,
		KindSet:   setMethods,
	}
}

func lookupMethod(v Value, name string) (Value, bool) {
	table, ok := methodTables[v.Kind()]
	if !ok {
		return nil, false
	}
	m, ok := table[name]
	if !ok {
		return nil, false
	}
	return NewBuiltin(name, func(args []Value, kwargs *Dict) (Value, error) {
		return m(v, args, kwargs)
	}), true
}

func arity(name string, args []Value, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return Errorf(TypeError, "%s() takes exactly %d argument(s) (%d given)", name, min, len(args))
		}
		return Errorf(TypeError, "%s() takes from %d to %d arguments (%d given)", name, min, max, len(args))
	}
	return nil
}

func strArg(name string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", Errorf(TypeError, "%s() argument must be str, not %s", name, TypeName(v))
	}
	return string(s), nil
}

var strMethods = map[string]method{
	"upper": func(self Value, args []Value, _ *Dict) (Value, error) {
		return Str(strings.ToUpper(string(self.(Str)))), arity("upper", args, 0, 0)
	},
	"lower": func(self Value, args []Value, _ *Dict) (Value, error) {
		return Str(strings.ToLower(string(self.(Str)))), arity("lower", args, 0, 0)
	},
	"strip":  trimMethod("strip", strings.TrimSpace, strings.Trim),
	"lstrip": trimMethod("lstrip", func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }, strings.TrimLeft),
	"rstrip": trimMethod("rstrip", func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }, strings.TrimRight),
	"split": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("split", args, 0, 1); err != nil {
			return nil, err
		}
		var parts []string
		if len(args) == 0 || isNone(args[0]) {
			parts = strings.Fields(string(self.(Str)))
		} else {
			sep, err := strArg("split", args[0])
			if err != nil {
				return nil, err
			}
			parts = strings.Split(string(self.(Str)), sep)
		}
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = Str(p)
		}
		return NewList(out...), nil
	},
	"join": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("join", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := Collect(args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(Str)
			if !ok {
				return nil, Errorf(TypeError, "sequence item %d: expected str instance, %s found", i, TypeName(item))
			}
			parts[i] = string(s)
		}
		return Str(strings.Join(parts, string(self.(Str)))), nil
	},
	"replace": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("replace", args, 2, 2); err != nil {
			return nil, err
		}
		old, err := strArg("replace", args[0])
		if err != nil {
			return nil, err
		}
		repl, err := strArg("replace", args[1])
		if err != nil {
			return nil, err
		}
		return Str(strings.ReplaceAll(string(self.(Str)), old, repl)), nil
	},
	"startswith": affixMethod("startswith", strings.HasPrefix),
	"endswith":   affixMethod("endswith", strings.HasSuffix),
	"find": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("find", args, 1, 1); err != nil {
			return nil, err
		}
		sub, err := strArg("find", args[0])
		if err != nil {
			return nil, err
		}
		s := string(self.(Str))
		i := strings.Index(s, sub)
		if i < 0 {
			return Int(-1), nil
		}
		return Int(len([]rune(s[:i]))), nil
	},
	"count": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("count", args, 1, 1); err != nil {
			return nil, err
		}
		sub, err := strArg("count", args[0])
		if err != nil {
			return nil, err
		}
		return Int(strings.Count(string(self.(Str)), sub)), nil
	},
	"isdigit": func(self Value, args []Value, _ *Dict) (Value, error) {
		s := string(self.(Str))
		return Bool(s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0), nil
	},
	"isalpha": func(self Value, args []Value, _ *Dict) (Value, error) {
		s := string(self.(Str))
		return Bool(s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0), nil
	},
	"capitalize": func(self Value, args []Value, _ *Dict) (Value, error) {
		r := []rune(strings.ToLower(string(self.(Str))))
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		return Str(string(r)), nil
	},
	"format": func(self Value, args []Value, kwargs *Dict) (Value, error) {
		return formatMethod(string(self.(Str)), args, kwargs)
	},
}

func trimMethod(name string, space func(string) string, cut func(string, string) string) method {
	return func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		s := string(self.(Str))
		if len(args) == 0 || isNone(args[0]) {
			return Str(space(s)), nil
		}
		chars, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return Str(cut(s, chars)), nil
	}
}

func affixMethod(name string, test func(string, string) bool) method {
	return func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		s := string(self.(Str))
		if t, ok := args[0].(*Tuple); ok {
			for _, item := range t.Items {
				a, err := strArg(name, item)
				if err != nil {
					return nil, err
				}
				if test(s, a) {
					return Bool(true), nil
				}
			}
			return Bool(false), nil
		}
		a, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return Bool(test(s, a)), nil
	}
}

func indexOf(items []Value, v Value) int {
	for i, item := range items {
		if Equal(item, v) {
			return i
		}
	}
	return -1
}

func countOf(items []Value, v Value) Int {
	n := Int(0)
	for _, item := range items {
		if Equal(item, v) {
			n++
		}
	}
	return n
}

var listMethods = map[string]method{
	"append": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("append", args, 1, 1); err != nil {
			return nil, err
		}
		l := self.(*List)
		l.Items = append(l.Items, args[0])
		return None, nil
	},
	"extend": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("extend", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := Collect(args[0])
		if err != nil {
			return nil, err
		}
		l := self.(*List)
		l.Items = append(l.Items, items...)
		return None, nil
	},
	"insert": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("insert", args, 2, 2); err != nil {
			return nil, err
		}
		l := self.(*List)
		i, err := AsIndex(args[0])
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += len(l.Items)
		}
		i = max(0, min(i, len(l.Items)))
		l.Items = append(l.Items[:i], append([]Value{args[1]}, l.Items[i:]...)...)
		return None, nil
	},
	"pop": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("pop", args, 0, 1); err != nil {
			return nil, err
		}
		l := self.(*List)
		if len(l.Items) == 0 {
			return nil, Errorf(IndexError, "pop from empty list")
		}
		var key Value = Int(-1)
		if len(args) == 1 {
			key = args[0]
		}
		i, err := normIndex(key, len(l.Items), "pop")
		if err != nil {
			return nil, err
		}
		v := l.Items[i]
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return v, nil
	},
	"remove": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("remove", args, 1, 1); err != nil {
			return nil, err
		}
		l := self.(*List)
		i := indexOf(l.Items, args[0])
		if i < 0 {
			return nil, Errorf(ValueError, "list.remove(x): x not in list")
		}
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return None, nil
	},
	"index": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("index", args, 1, 1); err != nil {
			return nil, err
		}
		i := indexOf(self.(*List).Items, args[0])
		if i < 0 {
			return nil, Errorf(ValueError, "%s is not in list", Repr(args[0]))
		}
		return Int(i), nil
	},
	"count": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("count", args, 1, 1); err != nil {
			return nil, err
		}
		return countOf(self.(*List).Items, args[0]), nil
	},
	"reverse": func(self Value, args []Value, _ *Dict) (Value, error) {
		items := self.(*List).Items
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		return None, arity("reverse", args, 0, 0)
	},
	"sort": func(self Value, args []Value, kwargs *Dict) (Value, error) {
		if err := arity("sort", args, 0, 0); err != nil {
			return nil, err
		}
		key, reverse, err := SortOptions(kwargs)
		if err != nil {
			return nil, err
		}
		return None, SortValues(self.(*List).Items, key, reverse)
	},
	"clear": func(self Value, args []Value, _ *Dict) (Value, error) {
		self.(*List).Items = nil
		return None, nil
	},
	"copy": func(self Value, args []Value, _ *Dict) (Value, error) {
		return NewList(append([]Value(nil), self.(*List).Items...)...), nil
	},
}

var tupleMethods = map[string]method{
	"index": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("index", args, 1, 1); err != nil {
			return nil, err
		}
		i := indexOf(self.(*Tuple).Items, args[0])
		if i < 0 {
			return nil, Errorf(ValueError, "tuple.index(x): x not in tuple")
		}
		return Int(i), nil
	},
	"count": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("count", args, 1, 1); err != nil {
			return nil, err
		}
		return countOf(self.(*Tuple).Items, args[0]), nil
	},
}

var dictMethods = map[string]method{
	"get": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("get", args, 1, 2); err != nil {
			return nil, err
		}
		v, found, err := self.(*Dict).Get(args[0])
		if err != nil {
			return nil, err
		}
		if found {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return None, nil
	},
	"keys": func(self Value, args []Value, _ *Dict) (Value, error) {
		return NewList(self.(*Dict).Keys()...), nil
	},
	"values": func(self Value, args []Value, _ *Dict) (Value, error) {
		return NewList(self.(*Dict).Values()...), nil
	},
	"items": func(self Value, args []Value, _ *Dict) (Value, error) {
		var out []Value
		self.(*Dict).Each(func(k, v Value) {
			out = append(out, NewTuple(k, v))
		})
		return NewList(out...), nil
	},
	"pop": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("pop", args, 1, 2); err != nil {
			return nil, err
		}
		d := self.(*Dict)
		v, found, err := d.Get(args[0])
		if err != nil {
			return nil, err
		}
		if !found {
			if len(args) == 2 {
				return args[1], nil
			}
			return nil, NewException(KeyError, args[0])
		}
		_, err = d.Delete(args[0])
		return v, err
	},
	"setdefault": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("setdefault", args, 1, 2); err != nil {
			return nil, err
		}
		d := self.(*Dict)
		v, found, err := d.Get(args[0])
		if err != nil || found {
			return v, err
		}
		var def Value = None
		if len(args) == 2 {
			def = args[1]
		}
		return def, d.Set(args[0], def)
	},
	"update": func(self Value, args []Value, kwargs *Dict) (Value, error) {
		if err := arity("update", args, 0, 1); err != nil {
			return nil, err
		}
		d := self.(*Dict)
		if len(args) == 1 {
			other, err := ToDict(args[0])
			if err != nil {
				return nil, err
			}
			if err := d.Update(other); err != nil {
				return nil, err
			}
		}
		return None, d.Update(kwargs)
	},
	"copy": func(self Value, args []Value, _ *Dict) (Value, error) {
		return self.(*Dict).Copy(), nil
	},
	"clear": func(self Value, args []Value, _ *Dict) (Value, error) {
		self.(*Dict).Clear()
		return None, nil
	},
}

var setMethods = map[string]method{
	"add": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("add", args, 1, 1); err != nil {
			return nil, err
		}
		return None, self.(*Set).Add(args[0])
	},
	"discard": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("discard", args, 1, 1); err != nil {
			return nil, err
		}
		_, err := self.(*Set).Discard(args[0])
		return None, err
	},
	"remove": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("remove", args, 1, 1); err != nil {
			return nil, err
		}
		found, err := self.(*Set).Discard(args[0])
		if err == nil && !found {
			err = NewException(KeyError, args[0])
		}
		return None, err
	},
	"update": func(self Value, args []Value, _ *Dict) (Value, error) {
		s := self.(*Set)
		for _, a := range args {
			items, err := Collect(a)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				if err := s.Add(item); err != nil {
					return nil, err
				}
			}
		}
		return None, nil
	},
	"union":        setAlgebraMethod("|"),
	"intersection": setAlgebraMethod("&"),
	"difference": func(self Value, args []Value, _ *Dict) (Value, error) {
		if err := arity("difference", args, 1, 1); err != nil {
			return nil, err
		}
		other, err := ToSet(args[0])
		if err != nil {
			return nil, err
		}
		return sub(self, other)
	},
	"copy": func(self Value, args []Value, _ *Dict) (Value, error) {
		return self.(*Set).Copy(), nil
	},
	"clear": func(self Value, args []Value, _ *Dict) (Value, error) {
		self.(*Set).Clear()
		return None, nil
	},
}

func setAlgebraMethod(op string) method {
	return func(self Value, args []Value, _ *Dict) (Value, error) {
		out := self.(*Set)
		for _, a := range args {
			other, err := ToSet(a)
			if err != nil {
				return nil, err
			}
			out = setAlgebra(op, out, other)
		}
		if len(args) == 0 {
			return out.Copy(), nil
		}
		return out, nil
	}
}

// ToSet builds a set from any iterable.
func ToSet(v Value) (*Set, error) {
	if s, ok := v.(*Set); ok {
		return s, nil
	}
	items, err := Collect(v)
	if err != nil {
		return nil, err
	}
	return NewSet(items...)
}

// ToDict builds a dict from a mapping or an iterable of pairs.
func ToDict(v Value) (*Dict, error) {
	if d, ok := v.(*Dict); ok {
		return d.Copy(), nil
	}
	items, err := Collect(v)
	if err != nil {
		return nil, err
	}
	d := NewDict()
	for i, item := range items {
		pair, err := Collect(item)
		if err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, Errorf(ValueError, "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := d.Set(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SortOptions extracts the key= and reverse= keyword arguments of sort().
func SortOptions(kwargs *Dict) (Callable, bool, error) {
	var key Callable
	reverse := false
	var err error
	kwargs.Each(func(k, v Value) {
		switch k {
		case Str("key"):
			if isNone(v) {
				return
			}
			fn, ok := v.(Callable)
			if !ok {
				err = Errorf(TypeError, "'%s' object is not callable", TypeName(v))
				return
			}
			key = fn
		case Str("reverse"):
			reverse = Truthy(v)
		default:
			err = Errorf(TypeError, "'%s' is an invalid keyword argument for sort()", ToStr(k))
		}
	})
	return key, reverse, err
}

// SortValues sorts items in place, stable, with an optional key function.
func SortValues(items []Value, key Callable, reverse bool) error {
	keys := items
	if key != nil {
		keys = make([]Value, len(items))
		for i, item := range items {
			k, err := key.Call([]Value{item}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		if reverse {
			a, b = b, a
		}
		less, err := Less(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}
