package vm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
	"bytevm/pkg/vm"
)

func eval(t *testing.T, b *bytecode.Builder, opts ...vm.Option) (value.Value, error) {
	t.Helper()
	code, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return vm.NewMachine(nil, opts...).Eval(code)
}

func mustEval(t *testing.T, b *bytecode.Builder, opts ...vm.Option) value.Value {
	t.Helper()
	v, err := eval(t, b, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func expectRepr(t *testing.T, got value.Value, expected string) {
	t.Helper()
	if r := value.Repr(got); r != expected {
		t.Errorf("expected %s, got %s", expected, r)
	}
}

func TestReturnConstant(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 42).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "42")
}

func TestStoreThenLoadFast(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 7).
		Emit(bytecode.OpStoreFast, "x").
		Emit(bytecode.OpLoadFast, "x").
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "7")
}

func TestBinaryOp(t *testing.T) {
	tests := []struct {
		symbol   string
		expected string
	}{
		{"+", "7"},
		{"-", "-1"},
		{"*", "12"},
		{"**", "81"},
		{"//", "0"},
		{"<<", "48"},
	}

	for _, test := range tests {
		b := bytecode.NewBuilder("<module>").
			Emit(bytecode.OpLoadConst, 3).
			Emit(bytecode.OpLoadConst, 4).
			BinaryOp(test.symbol).
			Emit(bytecode.OpReturnValue, nil)
		v := mustEval(t, b)
		if r := value.Repr(v); r != test.expected {
			t.Errorf("3 %s 4: expected %s, got %s", test.symbol, test.expected, r)
		}
	}
}

func TestBinaryOpByIndex(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 3).
		Emit(bytecode.OpLoadConst, 4).
		Emit(bytecode.OpBinaryOp, bytecode.BinaryOperatorIndex("-")).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "-1")
}

func TestAugmentedAddExtendsListInPlace(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpBuildList, 1).
		Emit(bytecode.OpStoreName, "l").
		Emit(bytecode.OpLoadName, "l").
		Emit(bytecode.OpLoadConst, 2).
		Emit(bytecode.OpBuildList, 1).
		BinaryOp("+=").
		Emit(bytecode.OpPopTop, nil).
		Emit(bytecode.OpLoadName, "l").
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "[1, 2]")
}

func TestCompareOp(t *testing.T) {
	tests := []struct {
		arg      any
		expected string
	}{
		{"<", "True"},
		{">=", "False"},
		{0 << 4, "True"},
		{1 << 4, "True"},
		{2 << 4, "False"},
		{3 << 4, "True"},
		{4 << 4, "False"},
		{5 << 4, "False"},
		{2, "True"},            // < with flag bits set
		{2<<4 | 0x0a, "False"}, // == with flag bits set
	}

	for _, test := range tests {
		b := bytecode.NewBuilder("<module>").
			Emit(bytecode.OpLoadConst, 3).
			Emit(bytecode.OpLoadConst, 4).
			Emit(bytecode.OpCompareOp, test.arg).
			Emit(bytecode.OpReturnValue, nil)
		v := mustEval(t, b)
		if r := value.Repr(v); r != test.expected {
			t.Errorf("compare_op %v: expected %s, got %s", test.arg, test.expected, r)
		}
	}
}

func TestCompareOpRejectsUnknownOperator(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 3).
		Emit(bytecode.OpLoadConst, 4).
		Emit(bytecode.OpCompareOp, 6<<4).
		Emit(bytecode.OpReturnValue, nil)
	if _, err := eval(t, b); err == nil || !strings.Contains(err.Error(), "unknown operator") {
		t.Errorf("expected an unknown operator error, got %v", err)
	}
}

func TestCompareOpFromAssembly(t *testing.T) {
	code, err := bytecode.ParseAssembly(`
code:
  - load_const: 3
  - load_const: 4
  - compare_op: 18
  - return_value
`, "cmp.yaml")
	if err != nil {
		t.Fatalf("ParseAssembly: %v", err)
	}
	v, err := vm.NewMachine(nil).Eval(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, v, "True")
}

func TestJumpForwardLandsOnTarget(t *testing.T) {
	b := bytecode.NewBuilder("<module>")
	skip := b.NewLabel()
	b.Emit(bytecode.OpLoadConst, 1).
		EmitJump(bytecode.OpJumpForward, skip).
		Emit(bytecode.OpLoadConst, 99).
		Emit(bytecode.OpReturnValue, nil).
		Mark(skip).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "1")
}

func TestConditionalJumps(t *testing.T) {
	tests := []struct {
		op       bytecode.Opcode
		cond     any
		expected string
	}{
		{bytecode.OpPopJumpIfTrue, true, "'jumped'"},
		{bytecode.OpPopJumpIfTrue, 0, "'fell'"},
		{bytecode.OpPopJumpIfFalse, "", "'jumped'"},
		{bytecode.OpPopJumpIfFalse, 1, "'fell'"},
		{bytecode.OpPopJumpIfNone, nil, "'jumped'"},
		{bytecode.OpPopJumpIfNotNone, nil, "'fell'"},
		{bytecode.OpPopJumpIfNotNone, 0, "'jumped'"},
	}

	for _, test := range tests {
		b := bytecode.NewBuilder("<module>")
		target := b.NewLabel()
		b.Emit(bytecode.OpLoadConst, test.cond).
			EmitJump(test.op, target).
			Emit(bytecode.OpReturnConst, "fell").
			Mark(target).
			Emit(bytecode.OpReturnConst, "jumped")
		v := mustEval(t, b)
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s on %v: expected %s, got %s", test.op, test.cond, test.expected, r)
		}
	}
}

func TestJumpIfOrPopKeepsValueWhenJumping(t *testing.T) {
	b := bytecode.NewBuilder("<module>")
	done := b.NewLabel()
	b.Emit(bytecode.OpLoadConst, "left").
		EmitJump(bytecode.OpJumpIfTrueOrPop, done).
		Emit(bytecode.OpLoadConst, "right").
		Mark(done).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "'left'")

	b = bytecode.NewBuilder("<module>")
	done = b.NewLabel()
	b.Emit(bytecode.OpLoadConst, "left").
		EmitJump(bytecode.OpJumpIfFalseOrPop, done).
		Emit(bytecode.OpLoadConst, "right").
		Mark(done).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "'right'")
}

func TestForIterSumsAndExits(t *testing.T) {
	b := bytecode.NewBuilder("<module>")
	top, done := b.NewLabel(), b.NewLabel()
	b.Emit(bytecode.OpLoadConst, 0).
		Emit(bytecode.OpStoreName, "total").
		Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(1), value.Int(2), value.Int(3))).
		Emit(bytecode.OpGetIter, nil).
		Mark(top).
		EmitJump(bytecode.OpForIter, done).
		Emit(bytecode.OpStoreName, "x").
		Emit(bytecode.OpLoadName, "total").
		Emit(bytecode.OpLoadName, "x").
		BinaryOp("+").
		Emit(bytecode.OpStoreName, "total").
		EmitJump(bytecode.OpJumpBackward, top).
		Mark(done).
		Emit(bytecode.OpEndFor, nil).
		Emit(bytecode.OpLoadName, "total").
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "6")
}

func TestUnpackSequence(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(1), value.Int(2))).
		Emit(bytecode.OpUnpackSequence, 2).
		Emit(bytecode.OpStoreName, "a").
		Emit(bytecode.OpStoreName, "b").
		Emit(bytecode.OpLoadName, "a").
		Emit(bytecode.OpLoadName, "b").
		BinaryOp("-").
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "-1")

	b = bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(1), value.Int(2))).
		Emit(bytecode.OpUnpackSequence, 3)
	_, err := eval(t, b)
	if !value.IsInstance(err, value.ValueError) {
		t.Errorf("expected ValueError, got %v", err)
	}
}

func TestBuildContainers(t *testing.T) {
	tests := []struct {
		description string
		build       func(b *bytecode.Builder)
		expected    string
	}{
		{"list", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpLoadConst, 2).Emit(bytecode.OpBuildList, 2)
		}, "[1, 2]"},
		{"tuple", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpBuildTuple, 1)
		}, "(1,)"},
		{"map pairs keys with values", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 1).
				Emit(bytecode.OpLoadConst, "b").Emit(bytecode.OpLoadConst, 2).
				Emit(bytecode.OpBuildMap, 2)
		}, "{'a': 1, 'b': 2}"},
		{"const key map", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpLoadConst, 2).
				Emit(bytecode.OpLoadConst, value.NewTuple(value.Str("x"), value.Str("y"))).
				Emit(bytecode.OpBuildConstKeyMap, 2)
		}, "{'x': 1, 'y': 2}"},
		{"string", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, "n=").Emit(bytecode.OpLoadConst, 3).
				Emit(bytecode.OpFormatValue, 0).Emit(bytecode.OpBuildString, 2)
		}, "'n=3'"},
		{"slice of list", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpLoadConst, 2).Emit(bytecode.OpLoadConst, 3).
				Emit(bytecode.OpBuildList, 3).
				Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpLoadConst, nil).
				Emit(bytecode.OpBinarySlice, nil)
		}, "[2, 3]"},
		{"subscript", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(5), value.Int(6))).
				Emit(bytecode.OpLoadConst, -1).
				Emit(bytecode.OpBinarySubscr, nil)
		}, "6"},
		{"list to tuple", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpBuildList, 1).
				Intrinsic("INTRINSIC_LIST_TO_TUPLE")
		}, "(1,)"},
	}

	for _, test := range tests {
		b := bytecode.NewBuilder("<module>")
		test.build(b)
		b.Emit(bytecode.OpReturnValue, nil)
		v := mustEval(t, b)
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.description, test.expected, r)
		}
	}
}

// buildEval runs build and returns the value it leaves on top of the stack.
func buildEval(t *testing.T, build func(b *bytecode.Builder)) (value.Value, error) {
	t.Helper()
	b := bytecode.NewBuilder("<module>")
	build(b)
	b.Emit(bytecode.OpReturnValue, nil)
	return eval(t, b)
}

func TestContainerUpdatesAtDepth(t *testing.T) {
	tests := []struct {
		description string
		build       func(b *bytecode.Builder)
		expected    string
	}{
		{"list_append below another value", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildList, 0).Emit(bytecode.OpLoadConst, 1).
				Emit(bytecode.OpLoadConst, 2).Emit(bytecode.OpListAppend, 2).
				Emit(bytecode.OpBuildTuple, 2)
		}, "([2], 1)"},
		{"list_extend", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildList, 0).
				Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(1), value.Int(2))).
				Emit(bytecode.OpListExtend, 1)
		}, "[1, 2]"},
		{"set_add", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildSet, 0).Emit(bytecode.OpLoadConst, 3).Emit(bytecode.OpSetAdd, 1)
		}, "{3}"},
		{"set_update below another value", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildSet, 0).Emit(bytecode.OpLoadConst, "x").
				Emit(bytecode.OpLoadConst, value.NewTuple(value.Int(1), value.Int(1), value.Int(2))).
				Emit(bytecode.OpSetUpdate, 2).
				Emit(bytecode.OpBuildTuple, 2)
		}, "({1, 2}, 'x')"},
		{"map_add pops value then key", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildMap, 0).Emit(bytecode.OpLoadConst, "k").
				Emit(bytecode.OpLoadConst, 7).Emit(bytecode.OpMapAdd, 1)
		}, "{'k': 7}"},
		{"dict_update overwrites", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpBuildMap, 1).
				Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 2).
				Emit(bytecode.OpLoadConst, "b").Emit(bytecode.OpLoadConst, 3).Emit(bytecode.OpBuildMap, 2).
				Emit(bytecode.OpDictUpdate, 1)
		}, "{'a': 2, 'b': 3}"},
		{"dict_merge with fresh keys", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpBuildMap, 1).
				Emit(bytecode.OpLoadConst, "b").Emit(bytecode.OpLoadConst, 3).Emit(bytecode.OpBuildMap, 1).
				Emit(bytecode.OpDictMerge, 1)
		}, "{'a': 1, 'b': 3}"},
	}

	for _, test := range tests {
		v, err := buildEval(t, test.build)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.description, err)
			continue
		}
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.description, test.expected, r)
		}
	}
}

func TestSubscriptStoreAndDelete(t *testing.T) {
	tests := []struct {
		description string
		build       func(b *bytecode.Builder)
		expected    string
	}{
		{"store_subscr pops value, container, key", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildMap, 0).Emit(bytecode.OpStoreName, "d").
				Emit(bytecode.OpLoadConst, 7).Emit(bytecode.OpLoadName, "d").Emit(bytecode.OpLoadConst, "k").
				Emit(bytecode.OpStoreSubscr, nil).
				Emit(bytecode.OpLoadName, "d")
		}, "{'k': 7}"},
		{"store_subscr into a list", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpLoadConst, 2).Emit(bytecode.OpBuildList, 2).
				Emit(bytecode.OpStoreName, "l").
				Emit(bytecode.OpLoadConst, 9).Emit(bytecode.OpLoadName, "l").Emit(bytecode.OpLoadConst, 0).
				Emit(bytecode.OpStoreSubscr, nil).
				Emit(bytecode.OpLoadName, "l")
		}, "[9, 2]"},
		{"delete_subscr pops container, key", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpLoadConst, 2).Emit(bytecode.OpLoadConst, 3).
				Emit(bytecode.OpBuildList, 3).Emit(bytecode.OpStoreName, "l").
				Emit(bytecode.OpLoadName, "l").Emit(bytecode.OpLoadConst, -1).
				Emit(bytecode.OpDeleteSubscr, nil).
				Emit(bytecode.OpLoadName, "l")
		}, "[1, 2]"},
		{"delete_subscr on a dict", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 1).
				Emit(bytecode.OpLoadConst, "b").Emit(bytecode.OpLoadConst, 2).
				Emit(bytecode.OpBuildMap, 2).Emit(bytecode.OpStoreName, "d").
				Emit(bytecode.OpLoadName, "d").Emit(bytecode.OpLoadConst, "a").
				Emit(bytecode.OpDeleteSubscr, nil).
				Emit(bytecode.OpLoadName, "d")
		}, "{'b': 2}"},
	}

	for _, test := range tests {
		v, err := buildEval(t, test.build)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.description, err)
			continue
		}
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.description, test.expected, r)
		}
	}
}

// copy n pushes the n-th value from the top, so copy 1 duplicates the top.
func TestCopyAndSwap(t *testing.T) {
	tests := []struct {
		description string
		op          bytecode.Opcode
		arg         int
		depth       int
		expected    string
	}{
		{"copy 1 duplicates the top", bytecode.OpCopy, 1, 2, "(1, 2, 2)"},
		{"copy 2 pushes the second value", bytecode.OpCopy, 2, 2, "(1, 2, 1)"},
		{"copy 3 reaches the bottom", bytecode.OpCopy, 3, 3, "(1, 2, 3, 1)"},
		{"swap 2", bytecode.OpSwap, 2, 2, "(2, 1)"},
		{"swap 3 leaves the middle", bytecode.OpSwap, 3, 3, "(3, 2, 1)"},
	}

	for _, test := range tests {
		v, err := buildEval(t, func(b *bytecode.Builder) {
			for i := 1; i <= test.depth; i++ {
				b.Emit(bytecode.OpLoadConst, i)
			}
			b.Emit(test.op, test.arg)
			size := test.depth
			if test.op == bytecode.OpCopy {
				size++
			}
			b.Emit(bytecode.OpBuildTuple, size)
		})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.description, err)
			continue
		}
		if r := value.Repr(v); r != test.expected {
			t.Errorf("%s: expected %s, got %s", test.description, test.expected, r)
		}
	}
}

func TestLookupMisses(t *testing.T) {
	tests := []struct {
		description string
		build       func(b *bytecode.Builder)
		check       func(err error) bool
	}{
		{"load_fast_check on an unbound name", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadFastCheck, "ghost")
		}, func(err error) bool {
			var unbound *vm.UnboundLocalError
			return errors.As(err, &unbound) && unbound.Name == "ghost"
		}},
		{"dict_merge with a duplicate key", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpBuildMap, 1).
				Emit(bytecode.OpLoadConst, "a").Emit(bytecode.OpLoadConst, 2).Emit(bytecode.OpBuildMap, 1).
				Emit(bytecode.OpDictMerge, 1)
		}, func(err error) bool {
			var miss *vm.KeyLookupError
			return errors.As(err, &miss) && miss.Key == value.Str("a")
		}},
		{"delete_subscr of a missing key", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpBuildMap, 0).Emit(bytecode.OpLoadConst, "k").Emit(bytecode.OpDeleteSubscr, nil)
		}, func(err error) bool {
			var miss *vm.KeyLookupError
			return errors.As(err, &miss)
		}},
		{"store_subscr past the end of a list", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 1).Emit(bytecode.OpBuildList, 0).Emit(bytecode.OpLoadConst, 5).
				Emit(bytecode.OpStoreSubscr, nil)
		}, func(err error) bool {
			var miss *vm.KeyLookupError
			return errors.As(err, &miss)
		}},
	}

	for _, test := range tests {
		_, err := buildEval(t, test.build)
		if !test.check(err) {
			t.Errorf("%s: unexpected error %v", test.description, err)
		}
	}
}

func TestMissingKeyIsKeyLookupError(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpBuildMap, 0).
		Emit(bytecode.OpLoadConst, "nope").
		Emit(bytecode.OpBinarySubscr, nil)
	_, err := eval(t, b)
	var miss *vm.KeyLookupError
	if !errors.As(err, &miss) {
		t.Fatalf("expected KeyLookupError, got %v", err)
	}
	if !value.IsInstance(err, value.KeyError) {
		t.Errorf("expected KeyError underneath, got %v", miss.Err)
	}
}

func TestPopOnEmptyStackYieldsNone(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "None")
}

func TestPopNUnderflowPanics(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpBuildList, 2)
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic on stack underflow")
		}
	}()
	_, _ = eval(t, b)
}

func TestFallingOffTheEnd(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpPopTop, nil)
	expectRepr(t, mustEval(t, b), "None")

	b = bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 9).
		Emit(bytecode.OpYieldValue, nil).
		Emit(bytecode.OpPopTop, nil)
	expectRepr(t, mustEval(t, b), "9")
}

func TestNameResolution(t *testing.T) {
	builtins := map[string]value.Value{"answer": value.Int(42), "x": value.Int(0)}

	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadName, "answer").
		Emit(bytecode.OpReturnValue, nil)
	code := b.MustBuild()
	v, err := vm.NewMachine(builtins).Eval(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, v, "42")

	b = bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpStoreGlobal, "x").
		Emit(bytecode.OpLoadName, "x").
		Emit(bytecode.OpReturnValue, nil)
	v, err = vm.NewMachine(builtins).Eval(b.MustBuild())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectRepr(t, v, "1")
}

func TestNameErrors(t *testing.T) {
	tests := []struct {
		op       bytecode.Opcode
		expected *value.ExceptionClass
	}{
		{bytecode.OpLoadName, value.NameError},
		{bytecode.OpLoadGlobal, value.NameError},
		{bytecode.OpLoadFast, value.UnboundLocalError},
		{bytecode.OpDeleteName, value.NameError},
		{bytecode.OpDeleteFast, value.NameError},
		{bytecode.OpDeleteGlobal, value.NameError},
	}

	for _, test := range tests {
		b := bytecode.NewBuilder("<module>").Emit(test.op, "missing")
		_, err := eval(t, b)
		exc, ok := vm.AsException(err)
		if !ok {
			t.Errorf("%s: expected an exception, got %v", test.op, err)
			continue
		}
		if exc.Class != test.expected {
			t.Errorf("%s: expected %s, got %s", test.op, test.expected.Name, exc.Class.Name)
		}
	}
}

func TestCallOnNonCallablePushesItBack(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 5).
		Emit(bytecode.OpCall, 0).
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b), "5")
}

func TestPrintIntrinsic(t *testing.T) {
	var out bytes.Buffer
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, "hi").
		Intrinsic("INTRINSIC_PRINT").
		Emit(bytecode.OpReturnValue, nil)
	v := mustEval(t, b, vm.WithWriter(&out))
	expectRepr(t, v, "None")
	if out.String() != "hi\n" {
		t.Errorf("expected output %q, got %q", "hi\n", out.String())
	}

	out.Reset()
	b = bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 3).
		Emit(bytecode.OpCallIntrinsic1, bytecode.IntrinsicIndex("INTRINSIC_PRINT"))
	mustEval(t, b, vm.WithWriter(&out))
	if out.String() != "3\n" {
		t.Errorf("expected output %q, got %q", "3\n", out.String())
	}
}

func TestRaise(t *testing.T) {
	builtins := map[string]value.Value{
		"ValueError": value.ValueError,
		"KeyError":   value.KeyError,
	}
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadName, "ValueError").
		Emit(bytecode.OpLoadConst, "bad").
		Emit(bytecode.OpCall, 1).
		Emit(bytecode.OpLoadName, "KeyError").
		Emit(bytecode.OpRaiseVarargs, 2)
	_, err := vm.NewMachine(builtins).Eval(b.MustBuild())

	var raised *vm.RaisedCondition
	if !errors.As(err, &raised) {
		t.Fatalf("expected RaisedCondition, got %v", err)
	}
	exc := raised.Exception
	if exc.Class != value.ValueError || exc.Message() != "bad" {
		t.Errorf("expected ValueError: bad, got %v", exc)
	}
	if exc.Cause == nil || exc.Cause.Class != value.KeyError {
		t.Errorf("expected KeyError cause, got %v", exc.Cause)
	}

	tests := []struct {
		description string
		build       func(b *bytecode.Builder)
		expected    *value.ExceptionClass
	}{
		{"bare reraise", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpRaiseVarargs, 0)
		}, value.RuntimeError},
		{"class is instantiated", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadName, "KeyError").Emit(bytecode.OpRaiseVarargs, 1)
		}, value.KeyError},
		{"non exception", func(b *bytecode.Builder) {
			b.Emit(bytecode.OpLoadConst, 5).Emit(bytecode.OpRaiseVarargs, 1)
		}, value.TypeError},
	}

	for _, test := range tests {
		b := bytecode.NewBuilder("<module>")
		test.build(b)
		_, err := vm.NewMachine(builtins).Eval(b.MustBuild())
		exc, ok := vm.AsException(err)
		if !ok || exc.Class != test.expected {
			t.Errorf("%s: expected %s, got %v", test.description, test.expected.Name, err)
		}
	}
}

func mathModule() *value.Module {
	m := value.NewModule("math")
	m.Dict["pi"] = value.Float(3.5)
	m.Dict["_private"] = value.Int(1)
	return m
}

func importer(name string, _ value.Value, _ int) (value.Value, error) {
	if name == "math" {
		return mathModule(), nil
	}
	return nil, value.Errorf(value.ModuleNotFoundError, "No module named '%s'", name)
}

func TestImport(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 0).
		Emit(bytecode.OpLoadConst, value.NewTuple(value.Str("pi"))).
		Emit(bytecode.OpImportName, "math").
		Emit(bytecode.OpImportFrom, "pi").
		Emit(bytecode.OpStoreName, "pi").
		Emit(bytecode.OpPopTop, nil).
		Emit(bytecode.OpLoadName, "pi").
		Emit(bytecode.OpReturnValue, nil)
	expectRepr(t, mustEval(t, b, vm.WithImporter(importer)), "3.5")

	b = bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 0).
		Emit(bytecode.OpLoadConst, nil).
		Emit(bytecode.OpImportName, "math").
		Emit(bytecode.OpImportFrom, "tau")
	_, err := eval(t, b, vm.WithImporter(importer))
	if !value.IsInstance(err, value.ImportError) {
		t.Errorf("expected ImportError, got %v", err)
	}

	b = bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 0).
		Emit(bytecode.OpLoadConst, nil).
		Emit(bytecode.OpImportName, "math")
	_, err = eval(t, b)
	if !value.IsInstance(err, value.ModuleNotFoundError) {
		t.Errorf("expected ModuleNotFoundError without an importer, got %v", err)
	}
}

func TestImportStar(t *testing.T) {
	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 0).
		Emit(bytecode.OpLoadConst, value.NewTuple(value.Str("*"))).
		Emit(bytecode.OpImportName, "math").
		Intrinsic("INTRINSIC_IMPORT_STAR").
		Emit(bytecode.OpPopTop, nil)
	m := vm.NewMachine(nil, vm.WithImporter(importer))
	if err := m.Run(b.MustBuild()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Globals()["pi"]; !ok {
		t.Errorf("expected pi to be imported")
	}
	if _, ok := m.Globals()["_private"]; ok {
		t.Errorf("expected _private to be skipped")
	}
}

func TestMaxSteps(t *testing.T) {
	b := bytecode.NewBuilder("<module>")
	loop := b.NewLabel()
	b.Mark(loop).EmitJump(bytecode.OpJumpBackward, loop)

	m := vm.NewMachine(nil, vm.WithMaxSteps(100))
	err := m.Run(b.MustBuild())
	if !errors.Is(err, vm.ErrMaxStepsExceeded) {
		t.Fatalf("expected ErrMaxStepsExceeded, got %v", err)
	}
	if m.Steps() != 100 {
		t.Errorf("expected 100 steps, got %d", m.Steps())
	}
}

func TestDispatchCoversEveryOpcode(t *testing.T) {
	for op := 0; op < bytecode.NumOpcodes; op++ {
		if !vm.Handles(bytecode.Opcode(op)) {
			t.Errorf("no handler for %s", bytecode.Opcode(op))
		}
	}
}

func TestTraceLogsDispatch(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf)
	l.SetLevel(log.DebugLevel)

	b := bytecode.NewBuilder("<module>").
		Emit(bytecode.OpLoadConst, 1).
		Emit(bytecode.OpReturnValue, nil)
	mustEval(t, b, vm.WithLogger(l), vm.WithTrace(true))

	out := buf.String()
	for _, expected := range []string{"dispatch", "LOAD_CONST", "RETURN_VALUE"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected trace to mention %s, got:\n%s", expected, out)
		}
	}
}
