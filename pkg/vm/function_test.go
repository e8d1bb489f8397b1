package vm_test

import (
	"errors"
	"strings"
	"testing"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
	"bytevm/pkg/vm"
)

// localsBody returns a code unit whose body returns its locals as a dict.
func localsBody(configure func(b *bytecode.Builder)) *bytecode.CodeUnit {
	b := bytecode.NewBuilder("f")
	configure(b)
	b.Emit(bytecode.OpLoadLocals, nil).Emit(bytecode.OpReturnValue, nil)
	return b.MustBuild()
}

// makeFunction runs make_function over code with the given operands
// already on the stack and returns the resulting function.
func makeFunction(t *testing.T, code *bytecode.CodeUnit, flags int, operands ...value.Value) *vm.Function {
	t.Helper()
	b := bytecode.NewBuilder("<module>")
	for _, v := range operands {
		b.Emit(bytecode.OpLoadConst, v)
	}
	b.Emit(bytecode.OpLoadConst, code).
		Emit(bytecode.OpMakeFunction, flags).
		Emit(bytecode.OpReturnValue, nil)
	v := mustEval(t, b)
	fn, ok := v.(*vm.Function)
	if !ok {
		t.Fatalf("expected a function, got %s", value.Repr(v))
	}
	return fn
}

func kwargs(pairs ...any) *value.Dict {
	d := value.NewDict()
	for i := 0; i < len(pairs); i += 2 {
		d.SetStr(pairs[i].(string), bytecode.ToValue(pairs[i+1]))
	}
	return d
}

func ints(ns ...int) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.Int(n)
	}
	return out
}

func TestArgumentBinding(t *testing.T) {
	ab := localsBody(func(b *bytecode.Builder) { b.Params("a", "b") })
	posOnly := localsBody(func(b *bytecode.Builder) { b.Params("a", "b").PosOnly(1) })
	posOnlyKw := localsBody(func(b *bytecode.Builder) { b.Params("a").PosOnly(1).VarKeywords("kw") })
	kwOnly := localsBody(func(b *bytecode.Builder) { b.KwOnly("k") })
	star := localsBody(func(b *bytecode.Builder) { b.Params("a").VarArgs("rest") })
	collector := localsBody(func(b *bytecode.Builder) { b.Params("a").VarKeywords("kw") })

	defaultB := value.NewTuple(value.Int(10))
	defaultK := kwargs("k", 3)

	tests := []struct {
		description string
		code        *bytecode.CodeUnit
		flags       int
		operands    []value.Value
		args        []value.Value
		kwargs      *value.Dict
		expected    string
	}{
		{"default fills missing positional", ab, vm.FuncDefaults, []value.Value{defaultB}, ints(5), nil, "{'a': 5, 'b': 10}"},
		{"positional overrides default", ab, vm.FuncDefaults, []value.Value{defaultB}, ints(5, 6), nil, "{'a': 5, 'b': 6}"},
		{"keyword for second parameter", ab, 0, nil, ints(5), kwargs("b", 3), "{'a': 5, 'b': 3}"},
		{"keyword wins over positional", ab, 0, nil, ints(1), kwargs("a", 2), "{'a': 2, 'b': 1}"},
		{"keywords only", ab, vm.FuncDefaults, []value.Value{defaultB}, nil, kwargs("a", 1), "{'a': 1, 'b': 10}"},
		{"named defaults dict", ab, vm.FuncDefaults, []value.Value{kwargs("b", 4)}, ints(1), nil, "{'a': 1, 'b': 4}"},
		{"positional-only from args", posOnly, 0, nil, ints(1, 2), nil, "{'a': 1, 'b': 2}"},
		{"positional-only keyword goes to **kwargs", posOnlyKw, 0, nil, ints(1), kwargs("a", 2), "{'a': 1, 'kw': {'a': 2}}"},
		{"keyword-only default", kwOnly, vm.FuncKwDefaults, []value.Value{defaultK}, nil, nil, "{'k': 3}"},
		{"keyword-only given", kwOnly, 0, nil, nil, kwargs("k", 8), "{'k': 8}"},
		{"extra positionals collected", star, 0, nil, ints(1, 2, 3), nil, "{'a': 1, 'rest': (2, 3)}"},
		{"empty *args", star, 0, nil, ints(1), nil, "{'a': 1, 'rest': ()}"},
		{"unknown keyword collected", collector, 0, nil, ints(1), kwargs("z", 9), "{'a': 1, 'kw': {'z': 9}}"},
		{"known keyword not collected", collector, 0, nil, nil, kwargs("a", 2, "z", 9), "{'a': 2, 'kw': {'z': 9}}"},
		{"empty **kwargs", collector, 0, nil, ints(1), nil, "{'a': 1, 'kw': {}}"},
	}

	for _, test := range tests {
		fn := makeFunction(t, test.code, test.flags, test.operands...)
		got, err := fn.Call(test.args, test.kwargs)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.description, err)
			continue
		}
		d, ok := got.(*value.Dict)
		if !ok {
			t.Errorf("%s: expected a dict, got %s", test.description, value.Repr(got))
			continue
		}
		sorted := value.NewDict()
		for _, name := range test.code.Params() {
			if v, found, _ := d.Get(value.Str(name)); found {
				sorted.SetStr(name, v)
			}
		}
		if r := value.Repr(sorted); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.description, test.expected, r)
		}
	}
}

func TestArgumentBindingErrors(t *testing.T) {
	ab := localsBody(func(b *bytecode.Builder) { b.Params("a", "b") })
	posOnly := localsBody(func(b *bytecode.Builder) { b.Params("a").PosOnly(1) })
	kwOnly := localsBody(func(b *bytecode.Builder) { b.KwOnly("k") })
	defaultB := value.NewTuple(value.Int(10))

	tests := []struct {
		description string
		code        *bytecode.CodeUnit
		flags       int
		operands    []value.Value
		args        []value.Value
		kwargs      *value.Dict
	}{
		{"too many positionals", ab, vm.FuncDefaults, []value.Value{defaultB}, ints(5, 6, 7), nil},
		{"missing positional", ab, vm.FuncDefaults, []value.Value{defaultB}, nil, nil},
		{"unexpected keyword", ab, 0, nil, ints(1, 2), kwargs("c", 3)},
		{"positional-only passed by keyword", posOnly, 0, nil, nil, kwargs("a", 1)},
		{"missing keyword-only", kwOnly, 0, nil, nil, nil},
	}

	for _, test := range tests {
		fn := makeFunction(t, test.code, test.flags, test.operands...)
		_, err := fn.Call(test.args, test.kwargs)
		var binding *vm.CallBindingError
		if !errors.As(err, &binding) {
			t.Errorf("%s: expected CallBindingError, got %v", test.description, err)
			continue
		}
		exc, ok := vm.AsException(err)
		if !ok || exc.Class != value.TypeError {
			t.Errorf("%s: expected a TypeError, got %v", test.description, err)
		}
	}
}

func TestMalformedSignatureIsAnError(t *testing.T) {
	code := localsBody(func(b *bytecode.Builder) { b.Params("a") })
	fn := makeFunction(t, code, 0)

	tests := []struct {
		description string
		mutate      func(c *bytecode.CodeUnit)
	}{
		{"*args flag without a name", func(c *bytecode.CodeUnit) { c.Flags |= bytecode.FlagVarArgs }},
		{"**kwargs flag without a name", func(c *bytecode.CodeUnit) { c.Flags |= bytecode.FlagVarKeywords }},
		{"negative keyword-only count", func(c *bytecode.CodeUnit) { c.KwOnlyArgCount = -1 }},
		{"positional-only beyond positional", func(c *bytecode.CodeUnit) { c.PosOnlyArgCount = 2 }},
	}

	for _, test := range tests {
		broken := *code
		test.mutate(&broken)
		fn.Code = &broken
		if _, err := fn.Call(ints(1), nil); err == nil {
			t.Errorf("%s: expected an error from the call", test.description)
		}
	}
}

func TestEvalValidatesNestedCode(t *testing.T) {
	code := localsBody(func(b *bytecode.Builder) { b.Params("a") })
	module := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, code).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	code.Flags |= bytecode.FlagVarKeywords
	if _, err := vm.NewMachine(nil).Eval(module); err == nil || !strings.Contains(err.Error(), "signature") {
		t.Errorf("expected a signature error before running, got %v", err)
	}
}

func TestCallThroughBytecode(t *testing.T) {
	body := bytecode.NewBuilder("pair").Params("a", "b").
		Emit(bytecode.OpLoadFast, "a").
		Emit(bytecode.OpLoadFast, "b").
		Emit(bytecode.OpBuildTuple, 2).
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, body).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpStoreName, "pair").
		Emit(bytecode.OpLoadName, "pair").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpLoadConst, 2).
		Emit(bytecode.OpKwNames, value.NewTuple(value.Str("b"))).
		Emit(bytecode.OpCall, 2).
		Emit(bytecode.OpStoreName, "first").
		Emit(bytecode.OpLoadName, "pair").
		Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(3))).
		Emit(bytecode.OpLoadConst, "b").
		Emit(bytecode.OpLoadConst, 4).
		Emit(bytecode.OpBuildMap, 1).
		Emit(bytecode.OpCallFunctionEx, 1).
		Emit(bytecode.OpLoadName, "first").
		Emit(bytecode.OpBuildTuple, 2).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "((3, 4), (1, 2))")
}

func TestLocalsShadowGlobals(t *testing.T) {
	body := bytecode.NewBuilder("f").Params("x").
		Emit(bytecode.OpLoadName, "x").
		Emit(bytecode.OpLoadGlobal, "x").
		Emit(bytecode.OpBuildTuple, 2).
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpStoreName, "x").
		Emit(bytecode.OpLoadConst, body).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpLoadConst, 2).
		Emit(bytecode.OpCall, 1).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "(2, 1)")
}

func TestCapturedLocalsAreASnapshot(t *testing.T) {
	body := bytecode.NewBuilder("f").
		Emit(bytecode.OpLoadName, "x").
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpStoreName, "x").
		Emit(bytecode.OpLoadConst, body).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpStoreName, "f").
		Emit(bytecode.OpLoadConst, 2).
		Emit(bytecode.OpStoreName, "x").
		Emit(bytecode.OpLoadName, "f").
		Emit(bytecode.OpCall, 0).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "1")
}

func TestRecursionLimit(t *testing.T) {
	body := bytecode.NewBuilder("loop").
		Emit(bytecode.OpLoadGlobal, "loop").
		Emit(bytecode.OpCall, 0).
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, body).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpStoreName, "loop").
		Emit(bytecode.OpLoadName, "loop").
		Emit(bytecode.OpCall, 0).
		Emit(bytecode.OpReturnValue, nil)
	_, err := eval(t, b, vm.WithMaxDepth(10))
	if !errors.Is(err, vm.ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}
}

func TestFunctionAttributes(t *testing.T) {
	code := localsBody(func(b *bytecode.Builder) { b.Params("a", "b") })
	fn := makeFunction(t, code, vm.FuncDefaults, value.NewTuple(value.Int(10)))

	tests := []struct {
		attr     string
		expected string
	}{
		{"__name__", "'f'"},
		{"__defaults__", "(10,)"},
		{"__code__", "<code object f>"},
	}

	for _, test := range tests {
		v, err := value.GetAttr(fn, test.attr)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.attr, err)
			continue
		}
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.attr, test.expected, r)
		}
	}
}
