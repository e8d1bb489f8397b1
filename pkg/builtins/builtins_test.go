package builtins_test

import (
	"bytes"
	"io"
	"testing"

	"bytevm/pkg/builtins"
	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
	"bytevm/pkg/vm"
)

func call(t *testing.T, b map[string]value.Value, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	fn, ok := b[name].(value.Callable)
	if !ok {
		t.Fatalf("%s is not a callable builtin", name)
	}
	return fn.Call(args, nil)
}

func list(items ...value.Value) *value.List { return value.NewList(items...) }

func ints(ns ...int) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.Int(n)
	}
	return out
}

func TestBuiltinFunctions(t *testing.T) {
	b := builtins.New(io.Discard)
	rng, err := call(t, b, "range", ints(1, 7, 2)...)
	if err != nil {
		t.Fatalf("range: %v", err)
	}

	tests := []struct {
		name     string
		args     []value.Value
		expected string
	}{
		{"len", []value.Value{value.Str("héllo")}, "5"},
		{"list", []value.Value{rng}, "[1, 3, 5]"},
		{"abs", ints(-3), "3"},
		{"abs", []value.Value{value.Float(-1.5)}, "1.5"},
		{"min", ints(3, 1, 2), "1"},
		{"max", []value.Value{list(ints(1, 5, 2)...)}, "5"},
		{"sum", []value.Value{list(ints(1, 2, 3)...)}, "6"},
		{"sorted", []value.Value{list(ints(3, 1, 2)...)}, "[1, 2, 3]"},
		{"int", []value.Value{value.Str(" 42 ")}, "42"},
		{"int", []value.Value{value.Str("ff"), value.Int(16)}, "255"},
		{"int", []value.Value{value.Float(-2.9)}, "-2"},
		{"float", []value.Value{value.Str("2.5")}, "2.5"},
		{"str", ints(12), "'12'"},
		{"bool", ints(0), "False"},
		{"tuple", []value.Value{list(ints(1, 2)...)}, "(1, 2)"},
		{"divmod", ints(7, 2), "(3, 1)"},
		{"divmod", ints(-7, 2), "(-4, 1)"},
		{"round", []value.Value{value.Float(2.5)}, "2"},
		{"round", []value.Value{value.Float(3.5)}, "4"},
		{"round", []value.Value{value.Float(1.234), value.Int(2)}, "1.23"},
		{"isinstance", []value.Value{value.Bool(true), builtins.IntType}, "True"},
		{"isinstance", []value.Value{value.Str("x"), value.NewTuple(builtins.IntType, builtins.StrType)}, "True"},
		{"isinstance", []value.Value{value.Int(1), builtins.FloatType}, "False"},
		{"any", []value.Value{list(ints(0, 1)...)}, "True"},
		{"any", []value.Value{list()}, "False"},
		{"all", []value.Value{list()}, "True"},
		{"all", []value.Value{list(ints(1, 0)...)}, "False"},
		{"repr", []value.Value{value.Str("a")}, "\"'a'\""},
		{"callable", []value.Value{b["len"]}, "True"},
		{"callable", ints(1), "False"},
		{"hasattr", []value.Value{value.Str("x"), value.Str("upper")}, "True"},
		{"getattr", []value.Value{value.Int(1), value.Str("nope"), value.None}, "None"},
	}

	for _, test := range tests {
		v, err := call(t, b, test.name, test.args...)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.name, test.expected, r)
		}
	}
}

func TestIteratorBuiltins(t *testing.T) {
	b := builtins.New(io.Discard)
	collect := func(name string, args ...value.Value) string {
		t.Helper()
		it, err := call(t, b, name, args...)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		items, err := value.Collect(it)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return value.Repr(value.NewList(items...))
	}

	tests := []struct {
		got      string
		expected string
	}{
		{collect("reversed", list(ints(1, 2, 3)...)), "[3, 2, 1]"},
		{collect("enumerate", value.Str("ab")), "[(0, 'a'), (1, 'b')]"},
		{collect("enumerate", value.Str("a"), value.Int(5)), "[(5, 'a')]"},
		{collect("zip", list(ints(1, 2, 3)...), value.Str("ab")), "[(1, 'a'), (2, 'b')]"},
		{collect("map", b["abs"], list(ints(-1, 2)...)), "[1, 2]"},
		{collect("filter", value.None, list(ints(0, 1, 2)...)), "[1, 2]"},
	}

	for _, test := range tests {
		if test.got != test.expected {
			t.Errorf("expected %s, got %s", test.expected, test.got)
		}
	}
}

func TestBuiltinErrors(t *testing.T) {
	b := builtins.New(io.Discard)
	empty, _ := call(t, b, "iter", list())

	tests := []struct {
		name     string
		args     []value.Value
		expected *value.ExceptionClass
	}{
		{"len", ints(1), value.TypeError},
		{"len", nil, value.TypeError},
		{"int", []value.Value{value.Str("x")}, value.ValueError},
		{"range", ints(1, 2, 0), value.ValueError},
		{"min", []value.Value{list()}, value.ValueError},
		{"next", []value.Value{empty}, value.StopIteration},
		{"getattr", []value.Value{value.Int(1), value.Str("nope")}, value.AttributeError},
		{"sum", []value.Value{list(), value.Str("")}, value.TypeError},
	}

	for _, test := range tests {
		_, err := call(t, b, test.name, test.args...)
		if !value.IsInstance(err, test.expected) {
			t.Errorf("%s: expected %s, got %v", test.name, test.expected.Name, err)
		}
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	b := builtins.New(&out)
	kw := value.NewDict()
	kw.SetStr("sep", value.Str("-"))
	kw.SetStr("end", value.Str("!\n"))

	p := b["print"].(value.Callable)
	if _, err := p.Call([]value.Value{value.Int(1), value.Str("a")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Call([]value.Value{value.Int(1), value.Int(2)}, kw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "1 a\n1-2!\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestClassConstruction(t *testing.T) {
	initCode := bytecode.NewBuilder("__init__").Params("self", "x").
		Emit(bytecode.OpLoadFast, "x").
		Emit(bytecode.OpLoadFast, "self").
		Emit(bytecode.OpStoreAttr, "x").
		Emit(bytecode.OpReturnConst, nil).
		MustBuild()
	getCode := bytecode.NewBuilder("get").Params("self").
		Emit(bytecode.OpLoadFast, "self").
		Emit(bytecode.OpLoadAttr, "x").
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()
	body := bytecode.NewBuilder("Point").
		Emit(bytecode.OpLoadConst, initCode).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpStoreName, "__init__").
		Emit(bytecode.OpLoadConst, getCode).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpStoreName, "get").
		Emit(bytecode.OpReturnConst, nil).
		MustBuild()

	code := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadBuildClass, nil).
		Emit(bytecode.OpLoadConst, body).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpLoadConst, "Point").
		Emit(bytecode.OpCall, 2).
		Emit(bytecode.OpStoreName, "Point").
		Emit(bytecode.OpLoadName, "Point").
		Emit(bytecode.OpLoadConst, 7).
		Emit(bytecode.OpCall, 1).
		Emit(bytecode.OpLoadMethod, "get").
		Emit(bytecode.OpCall, 0).
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	m := vm.NewMachine(builtins.New(io.Discard))
	v, err := m.Eval(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := value.Repr(v); r != "7" {
		t.Errorf("expected 7, got %s", r)
	}
	if _, ok := m.Globals()["Point"].(*value.Class); !ok {
		t.Errorf("expected Point to be a class, got %s", value.Repr(m.Globals()["Point"]))
	}
}

func TestExceptionSubclass(t *testing.T) {
	body := bytecode.NewBuilder("MyError").
		Emit(bytecode.OpReturnConst, nil).
		MustBuild()
	code := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadBuildClass, nil).
		Emit(bytecode.OpLoadConst, body).
		Emit(bytecode.OpMakeFunction, 0).
		Emit(bytecode.OpLoadConst, "MyError").
		Emit(bytecode.OpLoadName, "ValueError").
		Emit(bytecode.OpCall, 3).
		Emit(bytecode.OpLoadConst, "boom").
		Emit(bytecode.OpCall, 1).
		Emit(bytecode.OpRaiseVarargs, 1).
		MustBuild()

	err := vm.Run(code, builtins.New(io.Discard))
	exc, ok := vm.AsException(err)
	if !ok {
		t.Fatalf("expected an exception, got %v", err)
	}
	if exc.Class.Name != "MyError" || !exc.Class.IsSubclass(value.ValueError) {
		t.Errorf("expected MyError deriving from ValueError, got %s", exc.Class.Name)
	}
	if exc.Error() != "MyError: boom" {
		t.Errorf("unexpected message %q", exc.Error())
	}
}

func TestImporter(t *testing.T) {
	imp := builtins.NewImporter()
	first, err := imp.Import("math", value.None, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := imp.Import("math", value.None, 0)
	if first != second {
		t.Errorf("expected repeated imports to return the same module")
	}

	math := first.(*value.Module)
	tests := []struct {
		fn       string
		arg      value.Value
		expected string
	}{
		{"sqrt", value.Int(16), "4.0"},
		{"floor", value.Float(2.7), "2"},
		{"ceil", value.Float(2.1), "3"},
		{"fabs", value.Int(-2), "2.0"},
	}
	for _, test := range tests {
		v, err := math.Dict[test.fn].(value.Callable).Call([]value.Value{test.arg}, nil)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.fn, err)
			continue
		}
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.fn, test.expected, r)
		}
	}

	if _, err := imp.Import("nope", value.None, 0); !value.IsInstance(err, value.ModuleNotFoundError) {
		t.Errorf("expected ModuleNotFoundError, got %v", err)
	}
	if _, err := imp.Import("math", value.None, 1); !value.IsInstance(err, value.ImportError) {
		t.Errorf("expected ImportError for relative import, got %v", err)
	}
}

func TestImportThroughMachine(t *testing.T) {
	code := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 0).
		Emit(bytecode.OpLoadConst, nil).
		Emit(bytecode.OpImportName, "math").
		Emit(bytecode.OpStoreName, "math").
		Emit(bytecode.OpLoadName, "math").
		Emit(bytecode.OpLoadAttr, "sqrt").
		Emit(bytecode.OpLoadConst, 9).
		Emit(bytecode.OpCall, 1).
		Emit(bytecode.OpReturnValue, nil).
		MustBuild()

	m := vm.NewMachine(builtins.New(io.Discard), vm.WithImporter(builtins.NewImporter().Import))
	v, err := m.Eval(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := value.Repr(v); r != "3.0" {
		t.Errorf("expected 3.0, got %s", r)
	}
}
